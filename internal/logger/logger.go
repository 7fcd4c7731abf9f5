// internal/logger/logger.go
package logger

import (
	"errors"
	"io"
	"os"
	"syscall"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options selects where logs go.
type Options struct {
	// Debug lowers the level to debug on every core.
	Debug bool
	// File, when set, receives JSON lines through a SafeFileWriter.
	File string
	// Console receives the pretty output; os.Stderr when nil.
	Console io.Writer
	// FlushInterval for the file writer; one second when zero.
	FlushInterval time.Duration
}

// New builds a logger that tees pretty console output and, optionally, a
// JSON file. The returned close function flushes and closes the file.
func New(opts Options) (*zap.Logger, func() error, error) {
	level := zapcore.InfoLevel
	if opts.Debug {
		level = zapcore.DebugLevel
	}
	console := opts.Console
	if console == nil {
		console = os.Stderr
	}

	cores := []zapcore.Core{
		zapcore.NewCore(PrettyEncoder(), zapcore.Lock(zapcore.AddSync(console)), level),
	}
	closeFn := func() error { return nil }

	if opts.File != "" {
		interval := opts.FlushInterval
		if interval <= 0 {
			interval = time.Second
		}
		fw, err := NewSafeFileWriter(opts.File, interval, zap.NewNop())
		if err != nil {
			return nil, nil, err
		}

		encCfg := zap.NewProductionEncoderConfig()
		encCfg.TimeKey = "timestamp"
		encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
		encCfg.EncodeDuration = zapcore.StringDurationEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), fw, level))
		closeFn = fw.Close
	}

	logger := zap.New(zapcore.NewTee(cores...),
		zap.AddCaller(),
		zap.AddStacktrace(zapcore.ErrorLevel))
	return logger, closeFn, nil
}

// WithOperation tags a logger with an operation name and a correlation id.
func WithOperation(logger *zap.Logger, operation string) *zap.Logger {
	return logger.With(
		zap.String("operation", operation),
		zap.String("correlation_id", uuid.New().String()))
}

// Sync flushes logger, ignoring the errors terminals return for fsync.
func Sync(logger *zap.Logger) error {
	err := logger.Sync()
	if err == nil || errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
		return nil
	}
	return err
}
