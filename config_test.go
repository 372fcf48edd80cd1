package kizami_test

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edwinsyarief/kizami"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// go test -run ^TestLoadConfig$ . -count 1
func TestLoadConfig(t *testing.T) {
	t.Run("toml", func(t *testing.T) {
		path := writeFile(t, "world.toml", `
initial_capacity = 4096
batch_size = 256
workers = 2

[logging]
level = "debug"
format = "json"
`)
		cfg, err := kizami.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 4096, cfg.InitialCapacity)
		assert.Equal(t, 256, cfg.BatchSize)
		assert.Equal(t, 2, cfg.Workers)
		assert.Equal(t, "debug", cfg.Logging.Level)
		assert.Equal(t, "json", cfg.Logging.Format)
		assert.Equal(t, kizami.DefaultConfig().TableCapacity, cfg.TableCapacity, "missing keys keep defaults")
	})

	t.Run("yaml", func(t *testing.T) {
		path := writeFile(t, "world.yml", `
table_capacity: 16
check_tick_threshold: 500
logging:
  level: warn
`)
		cfg, err := kizami.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, 16, cfg.TableCapacity)
		assert.Equal(t, uint32(500), cfg.CheckTickThreshold)
		assert.Equal(t, "warn", cfg.Logging.Level)
		assert.Equal(t, "console", cfg.Logging.Format)
	})

	t.Run("invalid values are normalized", func(t *testing.T) {
		path := writeFile(t, "world.toml", "batch_size = -5\nworkers = 0\n")
		cfg, err := kizami.LoadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, kizami.DefaultConfig().BatchSize, cfg.BatchSize)
		assert.Equal(t, runtime.GOMAXPROCS(0), cfg.Workers)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		path := writeFile(t, "world.json", "{}")
		_, err := kizami.LoadConfig(path)
		assert.ErrorContains(t, err, "unsupported extension")
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := kizami.LoadConfig(filepath.Join(t.TempDir(), "nope.toml"))
		assert.ErrorIs(t, err, os.ErrNotExist)
	})

	t.Run("malformed", func(t *testing.T) {
		path := writeFile(t, "world.toml", "batch_size = [")
		_, err := kizami.LoadConfig(path)
		assert.ErrorContains(t, err, "parse config")
	})
}

// go test -run ^TestNewLogger$ . -count 1
func TestNewLogger(t *testing.T) {
	for _, format := range []string{"json", "console"} {
		t.Run(format, func(t *testing.T) {
			log, err := kizami.NewLogger(kizami.LoggingConfig{Level: "warn", Format: format})
			require.NoError(t, err)
			assert.False(t, log.Core().Enabled(-1))
			assert.True(t, log.Core().Enabled(1))
		})
	}

	t.Run("unknown level falls back to info", func(t *testing.T) {
		log, err := kizami.NewLogger(kizami.LoggingConfig{Level: "loud"})
		require.NoError(t, err)
		assert.False(t, log.Core().Enabled(-1))
		assert.True(t, log.Core().Enabled(0))
	})
}

// go test -run ^TestNewWorldFromConfig$ . -count 1
func TestNewWorldFromConfig(t *testing.T) {
	path := writeFile(t, "world.toml", "batch_size = 32\n[logging]\nlevel = \"error\"\n")
	w, err := kizami.NewWorldFromConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 32, w.Config().BatchSize)
	assert.False(t, w.Logger().Core().Enabled(1))

	_, err = kizami.NewWorldFromConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
