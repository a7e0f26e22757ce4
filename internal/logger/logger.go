package logger

import (
	"os"

	"trade-dashboard-go/internal/config"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger creates a new zap.Logger instance based on the provided level and format.
func NewLogger(level string, format string) (*zap.Logger, error) {
	log, _, err := New(config.Logger{Level: level, Format: format, Stderr: true})
	return log, err
}

// New builds a logger from the logger section of the config. The returned
// AtomicLevel can be changed at runtime to adjust verbosity.
// When File is set, output is rotated by lumberjack; Stderr controls whether
// the console sink is kept as well.
func New(cfg config.Logger) (*zap.Logger, zap.AtomicLevel, error) {
	atom := zap.NewAtomicLevel()
	logLevel, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return nil, atom, err
	}
	atom.SetLevel(logLevel)

	var encCfg zapcore.EncoderConfig
	if cfg.Format == "json" {
		encCfg = zap.NewProductionEncoderConfig()
	} else {
		encCfg = zap.NewDevelopmentEncoderConfig()
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder

	var encoder zapcore.Encoder
	if cfg.Format == "json" {
		encoder = zapcore.NewJSONEncoder(encCfg)
	} else {
		encoder = zapcore.NewConsoleEncoder(encCfg)
	}

	var cores []zapcore.Core
	if cfg.Stderr || cfg.File == "" {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.Lock(os.Stderr), atom))
	}
	if cfg.File != "" {
		rotator := &lumberjack.Logger{
			Filename:   cfg.File,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   true,
		}
		cores = append(cores, zapcore.NewCore(encoder.Clone(), zapcore.AddSync(rotator), atom))
	}

	return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), atom, nil
}

// ApplyLevel switches atom to level, leaving it untouched when level does not parse.
func ApplyLevel(atom zap.AtomicLevel, level string) error {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return err
	}
	atom.SetLevel(lvl)
	return nil
}
