package kizami

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// Config tunes storage growth, parallel iteration and logging of a World.
type Config struct {
	InitialCapacity    int           `toml:"initial_capacity" yaml:"initial_capacity"` // entity location slots reserved up front
	TableCapacity      int           `toml:"table_capacity" yaml:"table_capacity"`     // rows reserved by each new table
	BatchSize          int           `toml:"batch_size" yaml:"batch_size"`             // rows per parallel batch
	Workers            int           `toml:"workers" yaml:"workers"`                   // 0 = GOMAXPROCS
	CheckTickThreshold uint32        `toml:"check_tick_threshold" yaml:"check_tick_threshold"`
	Logging            LoggingConfig `toml:"logging" yaml:"logging"`
}

// LoggingConfig selects the level and encoder of the logger NewLogger builds.
type LoggingConfig struct {
	Level  string `toml:"level" yaml:"level"`   // debug, info, warn, error
	Format string `toml:"format" yaml:"format"` // console or json
}

// DefaultConfig returns the configuration used when none is given.
func DefaultConfig() Config {
	return Config{
		InitialCapacity:    1024,
		TableCapacity:      64,
		BatchSize:          1024,
		Workers:            runtime.GOMAXPROCS(0),
		CheckTickThreshold: CheckTickThreshold,
		Logging: LoggingConfig{
			Level:  "info",
			Format: "console",
		},
	}
}

// normalize replaces unset or invalid values with defaults.
func (c *Config) normalize() {
	def := DefaultConfig()
	if c.InitialCapacity <= 0 {
		c.InitialCapacity = def.InitialCapacity
	}
	if c.TableCapacity <= 0 {
		c.TableCapacity = def.TableCapacity
	}
	if c.BatchSize <= 0 {
		c.BatchSize = def.BatchSize
	}
	if c.Workers <= 0 {
		c.Workers = def.Workers
	}
	if c.CheckTickThreshold == 0 {
		c.CheckTickThreshold = def.CheckTickThreshold
	}
	if c.Logging.Level == "" {
		c.Logging.Level = def.Logging.Level
	}
	if c.Logging.Format == "" {
		c.Logging.Format = def.Logging.Format
	}
}

// LoadConfig reads a TOML (.toml) or YAML (.yaml, .yml) file. Keys missing
// from the file keep their DefaultConfig values.
func LoadConfig(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	cfg := DefaultConfig()
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &cfg)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &cfg)
	default:
		return Config{}, fmt.Errorf("parse config %s: unsupported extension %q", path, ext)
	}
	if err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	cfg.normalize()
	return cfg, nil
}
