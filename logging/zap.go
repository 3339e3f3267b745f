package logging

import (
	"context"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapConfig configures the zap backend
type ZapConfig struct {
	Level             string `mapstructure:"level"`
	Encoding          string `mapstructure:"encoding"` // json or console
	Development       bool   `mapstructure:"development"`
	Sampling          bool   `mapstructure:"sampling"`
	DisableCaller     bool   `mapstructure:"disable_caller"`
	DisableStacktrace bool   `mapstructure:"disable_stacktrace"`
}

// NewZap builds a zap.Logger from cfg
func NewZap(cfg ZapConfig) (*zap.Logger, zap.AtomicLevel, error) {
	level := zapcore.InfoLevel
	if err := level.Set(strings.ToLower(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}
	atom := zap.NewAtomicLevelAt(level)

	encoding := cfg.Encoding
	if encoding == "" {
		encoding = "json"
	}

	zc := zap.Config{
		Level:             atom,
		Development:       cfg.Development,
		Encoding:          encoding,
		DisableCaller:     cfg.DisableCaller,
		DisableStacktrace: cfg.DisableStacktrace,
		EncoderConfig:     zap.NewProductionEncoderConfig(),
		OutputPaths:       []string{"stdout"},
		ErrorOutputPaths:  []string{"stderr"},
	}

	if encoding == "console" {
		zc.EncoderConfig = zap.NewDevelopmentEncoderConfig()
	}

	if cfg.Sampling {
		zc.Sampling = &zap.SamplingConfig{
			Initial:    100,
			Thereafter: 100,
		}
	}

	zl, err := zc.Build()
	if err != nil {
		return nil, atom, err
	}
	return zl, atom, nil
}

// ZapLogger adapts a zap.Logger to the Logger interface
type ZapLogger struct {
	zl    *zap.Logger
	level zap.AtomicLevel
}

// NewZapLogger wraps zl; level controls SetLevel and may be shared with zl's config
func NewZapLogger(zl *zap.Logger, level zap.AtomicLevel) *ZapLogger {
	return &ZapLogger{
		zl:    zl.WithOptions(zap.AddCallerSkip(1)),
		level: level,
	}
}

// Zap returns the underlying zap logger
func (z *ZapLogger) Zap() *zap.Logger {
	return z.zl
}

// Sync flushes buffered entries
func (z *ZapLogger) Sync() error {
	return z.zl.Sync()
}

func (z *ZapLogger) Debug(msg string, fields ...Fields) {
	z.zl.Debug(msg, zapFields(nil, fields...)...)
}

func (z *ZapLogger) Info(msg string, fields ...Fields) {
	z.zl.Info(msg, zapFields(nil, fields...)...)
}

func (z *ZapLogger) Warn(msg string, fields ...Fields) {
	z.zl.Warn(msg, zapFields(nil, fields...)...)
}

func (z *ZapLogger) Error(err error, msg string, fields ...Fields) {
	z.zl.Error(msg, zapFields(err, fields...)...)
}

func (z *ZapLogger) Fatal(err error, msg string, fields ...Fields) {
	z.zl.Fatal(msg, zapFields(err, fields...)...)
}

func (z *ZapLogger) WithFields(fields Fields) Logger {
	return &ZapLogger{
		zl:    z.zl.With(zapFields(nil, fields)...),
		level: z.level,
	}
}

func (z *ZapLogger) WithContext(ctx context.Context) Logger {
	if fields := FieldsFromContext(ctx); fields != nil {
		return z.WithFields(fields)
	}
	return z
}

func (z *ZapLogger) SetLevel(level Level) {
	switch level {
	case DebugLevel:
		z.level.SetLevel(zapcore.DebugLevel)
	case InfoLevel:
		z.level.SetLevel(zapcore.InfoLevel)
	case WarnLevel:
		z.level.SetLevel(zapcore.WarnLevel)
	case ErrorLevel:
		z.level.SetLevel(zapcore.ErrorLevel)
	case FatalLevel:
		z.level.SetLevel(zapcore.FatalLevel)
	}
}

// zapFields converts merged Fields to zap fields in key order
func zapFields(err error, fields ...Fields) []zap.Field {
	all := mergeFields(nil, fields...)

	keys := make([]string, 0, len(all))
	for k := range all {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]zap.Field, 0, len(keys)+1)
	for _, k := range keys {
		out = append(out, zap.Any(k, all[k]))
	}
	if err != nil {
		out = append(out, zap.Error(err))
	}
	return out
}
