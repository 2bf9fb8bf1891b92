package utils

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Zlog is the process-wide structured logger. It is a no-op logger until
// InitLogger is called so packages and tests can log unconditionally.
var Zlog = zap.NewNop()

// InitLogger replaces Zlog with a production (or development, when debug is
// set) logger at the given level.
func InitLogger(level string, debug bool, fields ...zap.Field) error {
	var cfg zap.Config
	if debug {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg = zap.NewProductionConfig()
	}

	lvl := zapcore.InfoLevel
	if err := lvl.UnmarshalText([]byte(level)); err == nil {
		cfg.Level = zap.NewAtomicLevelAt(lvl)
	}

	logger, err := cfg.Build(zap.Fields(fields...))
	if err != nil {
		return err
	}
	Zlog = logger
	return nil
}

// SyncLogger flushes buffered log entries.
func SyncLogger() {
	_ = Zlog.Sync()
}
