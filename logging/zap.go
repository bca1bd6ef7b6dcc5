package logging

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger adapts a zap SugaredLogger to the Logger interface.
type ZapLogger struct {
	sugar *zap.SugaredLogger
	level zap.AtomicLevel
}

// NewZapLogger wraps an existing sugared logger. The returned logger filters
// on its own level in addition to whatever the zap core enforces.
func NewZapLogger(sugar *zap.SugaredLogger) *ZapLogger {
	return &ZapLogger{
		sugar: sugar,
		level: zap.NewAtomicLevelAt(zapcore.DebugLevel),
	}
}

// NewZapProductionLogger builds a JSON zap logger writing to stderr at the
// given level, leaving stdout free for program output.
func NewZapProductionLogger(level Level) (*ZapLogger, error) {
	rawJSON := []byte(`{
	  "level": "debug",
	  "encoding": "json",
	  "outputPaths": ["stderr"],
	  "errorOutputPaths": ["stderr"],
	  "encoderConfig": {
	    "messageKey": "message",
	    "levelKey": "level",
	    "timeKey": "ts",
	    "timeEncoder": "iso8601",
	    "levelEncoder": "lowercase"
	  }
	}`)

	var cfg zap.Config
	if err := json.Unmarshal(rawJSON, &cfg); err != nil {
		return nil, err
	}
	cfg.Level = zap.NewAtomicLevelAt(toZapLevel(level))

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}

	z := NewZapLogger(logger.Sugar())
	z.level = cfg.Level
	return z, nil
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zapcore.DebugLevel
	case WarnLevel:
		return zapcore.WarnLevel
	case ErrorLevel:
		return zapcore.ErrorLevel
	case FatalLevel:
		return zapcore.FatalLevel
	default:
		return zapcore.InfoLevel
	}
}

func keysAndValues(fields []Fields) []any {
	all := mergeFields(fields)
	kv := make([]any, 0, len(all)*2)
	for k, v := range all {
		kv = append(kv, k, v)
	}
	return kv
}

func (z *ZapLogger) Debug(msg string, fields ...Fields) {
	if z.level.Enabled(zapcore.DebugLevel) {
		z.sugar.Debugw(msg, keysAndValues(fields)...)
	}
}

func (z *ZapLogger) Info(msg string, fields ...Fields) {
	if z.level.Enabled(zapcore.InfoLevel) {
		z.sugar.Infow(msg, keysAndValues(fields)...)
	}
}

func (z *ZapLogger) Warn(msg string, fields ...Fields) {
	if z.level.Enabled(zapcore.WarnLevel) {
		z.sugar.Warnw(msg, keysAndValues(fields)...)
	}
}

func (z *ZapLogger) Error(err error, msg string, fields ...Fields) {
	if z.level.Enabled(zapcore.ErrorLevel) {
		z.sugar.Errorw(msg, append(keysAndValues(fields), zap.Error(err))...)
	}
}

func (z *ZapLogger) Fatal(err error, msg string, fields ...Fields) {
	z.sugar.Fatalw(msg, append(keysAndValues(fields), zap.Error(err))...)
}

func (z *ZapLogger) WithFields(fields Fields) Logger {
	return &ZapLogger{
		sugar: z.sugar.With(keysAndValues([]Fields{fields})...),
		level: z.level,
	}
}

func (z *ZapLogger) WithContext(ctx context.Context) Logger {
	if fields, ok := FieldsFromContext(ctx); ok {
		return z.WithFields(fields)
	}
	return z
}

func (z *ZapLogger) SetLevel(level Level) {
	z.level.SetLevel(toZapLevel(level))
}

// Sync flushes buffered log entries.
func (z *ZapLogger) Sync() error {
	return z.sugar.Sync()
}
