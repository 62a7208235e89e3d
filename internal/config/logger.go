package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// NewLogger пишет в stderr: stdout занят JSON-результатом CLI.
// Уровень "off" отключает логи совсем.
func NewLogger(cfg LogConfig) (*zap.Logger, error) {
	if isOff(cfg.Level) {
		return zap.NewNop(), nil
	}
	level := parseLogLevel(cfg.Level)

	var zc zap.Config
	if level == zapcore.DebugLevel {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	} else {
		zc = zap.NewProductionConfig()
		zc.EncoderConfig.TimeKey = "timestamp"
		zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
		zc.Sampling = nil
	}

	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stderr"}
	zc.ErrorOutputPaths = []string{"stderr"}
	zc.EncoderConfig.CallerKey = "caller"
	zc.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	return zc.Build(zap.Fields(zap.String("app", "webctx")))
}

func isOff(level string) bool {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "off", "none", "silent":
		return true
	}
	return false
}

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		return zapcore.DebugLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
