package logger

import (
	"sync"

	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	Log      *zap.Logger
	onceInit sync.Once
)

// Options selects the log level and encoding ("console" or "json").
type Options struct {
	Level    zapcore.Level
	Encoding string
}

// Init builds the process logger once and installs it as zap's global.
func Init(opts Options, meta ...zap.Field) error {
	var buildErr error
	onceInit.Do(func() {
		instance, err := configure(opts).Build(zap.AddCaller())
		if err != nil {
			buildErr = errors.Wrap(err, "build logger")
			return
		}
		Log = instance.With(meta...)
		zap.ReplaceGlobals(Log)
	})
	if buildErr != nil {
		return buildErr
	}
	if Log == nil {
		return errors.New("logger not initialized")
	}
	return nil
}

// ParseLevel accepts zap level names and falls back to info.
func ParseLevel(raw string) zapcore.Level {
	level, err := zapcore.ParseLevel(raw)
	if err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func configure(opts Options) zap.Config {
	encoding := opts.Encoding
	if encoding != "json" {
		encoding = "console"
	}
	encoder := zap.NewProductionEncoderConfig()
	encoder.TimeKey = "timestamp"
	encoder.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder.EncodeLevel = zapcore.CapitalLevelEncoder
	if encoding == "console" {
		encoder.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	encoder.EncodeCaller = zapcore.ShortCallerEncoder
	encoder.EncodeDuration = zapcore.SecondsDurationEncoder
	encoder.EncodeName = zapcore.FullNameEncoder
	encoder.CallerKey = "caller"
	return zap.Config{
		Level:             zap.NewAtomicLevelAt(opts.Level),
		Development:       false,
		DisableCaller:     false,
		DisableStacktrace: false,
		Encoding:          encoding,
		EncoderConfig:     encoder,
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}
}
