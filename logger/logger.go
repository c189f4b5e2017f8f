// Package logger is the structured logging sink shared by the server and its handlers.
package logger

import (
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Logger is the logging capability injected into middleware and handlers.
type Logger interface {
	Debug(msg string, fields ...Field)
	Info(msg string, fields ...Field)
	Warn(msg string, fields ...Field)
	Error(msg string, fields ...Field)
	With(fields ...Field) Logger
	Sync() error
}

// Field is a structured log field.
type Field struct {
	zap.Field
}

// Options configures New.
type Options struct {
	Level       string // debug, info, warn, error
	Format      string // console or json
	Service     string
	Environment string
}

type zapLogger struct {
	z *zap.Logger
}

// New builds a zap-backed logger writing to stdout.
func New(opts Options) (Logger, error) {
	level := zapcore.InfoLevel
	if opts.Level != "" {
		parsed, err := zapcore.ParseLevel(opts.Level)
		if err != nil {
			return nil, fmt.Errorf("invalid log level %q: %w", opts.Level, err)
		}
		level = parsed
	}

	var encoder zapcore.Encoder
	switch opts.Format {
	case "", "console":
		encoder = zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
	case "json":
		cfg := zap.NewProductionEncoderConfig()
		cfg.TimeKey = "time"
		cfg.EncodeTime = zapcore.ISO8601TimeEncoder
		cfg.EncodeDuration = zapcore.MillisDurationEncoder
		encoder = zapcore.NewJSONEncoder(cfg)
	default:
		return nil, fmt.Errorf("invalid log format %q", opts.Format)
	}

	core := zapcore.NewCore(encoder, zapcore.AddSync(os.Stdout), zap.NewAtomicLevelAt(level))
	z := zap.New(core, zap.AddCaller(), zap.AddCallerSkip(1), zap.AddStacktrace(zapcore.ErrorLevel))

	if opts.Service != "" {
		z = z.With(zap.String("service", opts.Service))
	}
	if opts.Environment != "" {
		z = z.With(zap.String("environment", opts.Environment))
	}

	return &zapLogger{z: z}, nil
}

// FromZap wraps an existing zap logger.
func FromZap(z *zap.Logger) Logger {
	return &zapLogger{z: z}
}

// NewNop returns a logger that discards everything.
func NewNop() Logger {
	return &zapLogger{z: zap.NewNop()}
}

func (l *zapLogger) Debug(msg string, fields ...Field) { l.z.Debug(msg, unwrap(fields)...) }
func (l *zapLogger) Info(msg string, fields ...Field) { l.z.Info(msg, unwrap(fields)...) }
func (l *zapLogger) Warn(msg string, fields ...Field) { l.z.Warn(msg, unwrap(fields)...) }
func (l *zapLogger) Error(msg string, fields ...Field) { l.z.Error(msg, unwrap(fields)...) }

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{z: l.z.With(unwrap(fields)...)}
}

func (l *zapLogger) Sync() error {
	return l.z.Sync()
}

func unwrap(fields []Field) []zap.Field {
	if len(fields) == 0 {
		return nil
	}
	out := make([]zap.Field, len(fields))
	for i, f := range fields {
		out[i] = f.Field
	}
	return out
}

func String(key, val string) Field { return Field{zap.String(key, val)} }
func Int(key string, val int) Field { return Field{zap.Int(key, val)} }
func Int64(key string, val int64) Field { return Field{zap.Int64(key, val)} }
func Float64(key string, val float64) Field { return Field{zap.Float64(key, val)} }
func Bool(key string, val bool) Field { return Field{zap.Bool(key, val)} }
func Duration(key string, val time.Duration) Field { return Field{zap.Duration(key, val)} }
func Any(key string, val any) Field { return Field{zap.Any(key, val)} }

// Err records err under the "error" key.
func Err(err error) Field {
	if err == nil {
		return Field{zap.String("error", "nil")}
	}
	return Field{zap.Error(err)}
}
