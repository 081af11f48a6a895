// Copyright 2025 James Ross
package obs

import (
    "os"
    "strings"

    "github.com/blockprover/orchestrator/internal/config"
    "go.uber.org/zap"
    "go.uber.org/zap/zapcore"
    "gopkg.in/natefinch/lumberjack.v2"
)

func levelFor(level string) zapcore.Level {
    switch strings.ToLower(level) {
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

// NewLogger builds a stderr-only JSON logger at the given level. Kept for
// callers (tests, small tools) that don't carry a full config.Config.
func NewLogger(level string) (*zap.Logger, error) {
    cfg := zap.NewProductionConfig()
    cfg.Level = zap.NewAtomicLevelAt(levelFor(level))
    cfg.Encoding = "json"
    return cfg.Build()
}

// NewLoggerFromConfig builds the process logger per cfg.Observability. When
// LogFile is set, output additionally rotates through lumberjack alongside
// stderr; otherwise it behaves like NewLogger.
func NewLoggerFromConfig(cfg *config.Config) (*zap.Logger, error) {
    enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
    level := zap.NewAtomicLevelAt(levelFor(cfg.Observability.LogLevel))

    cores := []zapcore.Core{
        zapcore.NewCore(enc, zapcore.Lock(os.Stderr), level),
    }
    if cfg.Observability.LogFile != "" {
        rotator := &lumberjack.Logger{
            Filename:   cfg.Observability.LogFile,
            MaxSize:    cfg.Observability.LogFileMaxSizeMB,
            MaxAge:     cfg.Observability.LogFileMaxAgeDays,
            MaxBackups: cfg.Observability.LogFileMaxBackups,
            Compress:   true,
        }
        cores = append(cores, zapcore.NewCore(enc, zapcore.AddSync(rotator), level))
    }
    return zap.New(zapcore.NewTee(cores...), zap.AddCaller()), nil
}

// Convenience typed fields
func String(k, v string) zap.Field { return zap.String(k, v) }
func Int(k string, v int) zap.Field { return zap.Int(k, v) }
func Bool(k string, v bool) zap.Field { return zap.Bool(k, v) }
func Err(err error) zap.Field { return zap.Error(err) }
