package logger

import (
	"github.com/BearBump/TrackMirror/config"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

// New builds a zap logger from the log section. Empty values mean info/json.
func New(cfg config.LogConfig) (*zap.Logger, error) {
	level := cfg.Level
	if level == "" {
		level = "info"
	}
	// преобразуем текстовый уровень логирования в zap.AtomicLevel
	lvl, err := zap.ParseAtomicLevel(level)
	if err != nil {
		return nil, errors.Wrap(err, "parse log level")
	}

	var zcfg zap.Config
	switch cfg.Format {
	case "", "json":
		zcfg = zap.NewProductionConfig()
	case "console":
		zcfg = zap.NewDevelopmentConfig()
	default:
		return nil, errors.Errorf("unknown log format %q", cfg.Format)
	}
	zcfg.Level = lvl

	zl, err := zcfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "build logger")
	}
	return zl, nil
}
