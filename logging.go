package kizami

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a zap logger from cfg. Format "json" gives the production
// encoder; anything else a compact colored console. An unknown level falls
// back to info.
func NewLogger(cfg LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}

// NewWorldFromConfig loads the config file at path and creates a world using
// it together with a logger built from its logging section.
func NewWorldFromConfig(path string, opts ...Option) (*World, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}
	log, err := NewLogger(cfg.Logging)
	if err != nil {
		return nil, err
	}
	return NewWorld(append([]Option{WithConfig(cfg), WithLogger(log)}, opts...)...), nil
}
