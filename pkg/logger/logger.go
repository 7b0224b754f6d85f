package logger

import (
	"os"
	"path/filepath"

	"downloadgateway/internal/model"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the process-wide logger. It discards everything until Init runs.
var Logger = zap.NewNop()

// Init initializes the logger
func Init(cfg *model.LoggingConfig) error {
	outputs := []string{"stdout"}
	errOutputs := []string{"stderr"}

	if cfg.FilePath != "" {
		// Create log directory if not exists
		if err := os.MkdirAll(filepath.Dir(cfg.FilePath), 0755); err != nil {
			return err
		}
		outputs = append(outputs, cfg.FilePath)
		errOutputs = append(errOutputs, cfg.FilePath)
	}

	var logLevel zapcore.Level
	if err := logLevel.UnmarshalText([]byte(cfg.Level)); err != nil {
		logLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:       zap.NewAtomicLevelAt(logLevel),
		Development: false,
		Encoding:    "json",
		EncoderConfig: zapcore.EncoderConfig{
			TimeKey:        "timestamp",
			LevelKey:       "level",
			NameKey:        "logger",
			CallerKey:      "caller",
			FunctionKey:    zapcore.OmitKey,
			MessageKey:     "msg",
			StacktraceKey:  "stacktrace",
			LineEnding:     zapcore.DefaultLineEnding,
			EncodeLevel:    zapcore.LowercaseLevelEncoder,
			EncodeTime:     zapcore.ISO8601TimeEncoder,
			EncodeDuration: zapcore.SecondsDurationEncoder,
			EncodeCaller:   zapcore.ShortCallerEncoder,
		},
		OutputPaths:      outputs,
		ErrorOutputPaths: errOutputs,
	}

	l, err := config.Build()
	if err != nil {
		return err
	}
	Logger = l

	return nil
}

// InitWithFallback initializes the logger and, when the log file cannot be
// opened, retries with console output only. fileErr reports the dropped file
// output; err is only set when no logger could be built at all.
func InitWithFallback(cfg *model.LoggingConfig) (fileErr, err error) {
	err = Init(cfg)
	if err == nil || cfg.FilePath == "" {
		return nil, err
	}

	console := *cfg
	console.FilePath = ""
	if consoleErr := Init(&console); consoleErr != nil {
		return err, consoleErr
	}
	return err, nil
}

// Sync flushes the logger
func Sync() error {
	if Logger != nil {
		return Logger.Sync()
	}
	return nil
}
