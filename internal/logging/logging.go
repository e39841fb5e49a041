// Package logging builds the zap-backed log sink used by the logport
// binary: a console stream for interactive runs and a rotating file for
// everything received from clients.
package logging

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"github.com/fjall/logport"
)

// Options selects the log destinations and verbosity.
type Options struct {
	// Level is one of "debug", "info", "warn", "error". Anything else
	// falls back to info.
	Level string
	// FilePath enables a rotating log file when non-empty.
	FilePath string
	// Console enables a stderr stream. Leave off when a terminal UI
	// owns the screen.
	Console bool
}

// New constructs a Logger from the options. The returned flush function
// should be deferred by the caller.
func New(opts Options) (logport.Logger, func()) {
	level := parseLevel(opts.Level)

	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalLevelEncoder

	var cores []zapcore.Core
	if opts.FilePath != "" {
		file := &lumberjack.Logger{
			Filename:   opts.FilePath,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
		}
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.AddSync(file),
			level,
		))
	}
	if opts.Console {
		cores = append(cores, zapcore.NewCore(
			zapcore.NewConsoleEncoder(encoderConfig),
			zapcore.Lock(os.Stderr),
			level,
		))
	}

	var logger *zap.Logger
	if len(cores) == 0 {
		logger = zap.NewNop()
	} else {
		logger = zap.New(zapcore.NewTee(cores...))
	}

	return &sugared{logger.Sugar()}, func() { _ = logger.Sync() }
}

func parseLevel(level string) zapcore.Level {
	switch level {
	case "debug":
		return zapcore.DebugLevel
	case "warn":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

// sugared adapts a zap SugaredLogger to the logport Logger interface.
type sugared struct {
	s *zap.SugaredLogger
}

func (l *sugared) Debug(msg string, args ...any) { l.s.Debugw(msg, args...) }
func (l *sugared) Info(msg string, args ...any)  { l.s.Infow(msg, args...) }
func (l *sugared) Warn(msg string, args ...any)  { l.s.Warnw(msg, args...) }
func (l *sugared) Error(msg string, args ...any) { l.s.Errorw(msg, args...) }
