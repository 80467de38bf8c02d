package logging

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var logger *zap.Logger

// LogLevelEnvVar is the environment variable that controls logging verbosity.
// When unset or empty, logging is silent (no zap output).
// Valid values: "debug", "info", "warn", "error"
const LogLevelEnvVar = "TOONAPP_LOG_LEVEL"

// sensitiveKeys are query/form keys whose values never reach the log
var sensitiveKeys = map[string]bool{
	"password":            true,
	"clientIdChecksum":    true,
	"agreementIdChecksum": true,
}

// Initialize creates a new logger with the specified level.
// If level is empty, it checks TOONAPP_LOG_LEVEL environment variable.
// If neither is set, logging is disabled (silent mode).
func Initialize(level string) error {
	if level == "" {
		level = os.Getenv(LogLevelEnvVar)
	}

	if level == "" {
		logger = zap.NewNop()
		return nil
	}

	var zapLevel zapcore.Level
	switch strings.ToLower(level) {
	case "debug":
		zapLevel = zapcore.DebugLevel
	case "info":
		zapLevel = zapcore.InfoLevel
	case "warn":
		zapLevel = zapcore.WarnLevel
	case "error":
		zapLevel = zapcore.ErrorLevel
	default:
		// Unknown level - use info as default when explicitly set to something
		zapLevel = zapcore.InfoLevel
	}

	config := zap.Config{
		Level:            zap.NewAtomicLevelAt(zapLevel),
		Development:      false,
		Encoding:         "console",
		EncoderConfig:    zap.NewDevelopmentEncoderConfig(),
		OutputPaths:      []string{"stderr"},
		ErrorOutputPaths: []string{"stderr"},
	}

	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder

	var err error
	logger, err = config.Build()
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	return nil
}

// InitializeFromEnv initializes the logger from the TOONAPP_LOG_LEVEL
// environment variable.
func InitializeFromEnv() error {
	return Initialize("")
}

// GetLogger returns the global logger instance
func GetLogger() *zap.Logger {
	if logger == nil {
		// Silent unless explicitly initialized
		logger = zap.NewNop()
	}
	return logger
}

// SetLogger replaces the global logger. Passing nil restores silent mode.
func SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	logger = l
}

// Info logs an info message
func Info(msg string, fields ...zap.Field) {
	GetLogger().Info(msg, fields...)
}

// Debug logs a debug message
func Debug(msg string, fields ...zap.Field) {
	GetLogger().Debug(msg, fields...)
}

// Warn logs a warning message
func Warn(msg string, fields ...zap.Field) {
	GetLogger().Warn(msg, fields...)
}

// Error logs an error message
func Error(msg string, fields ...zap.Field) {
	GetLogger().Error(msg, fields...)
}

// LogAPIRequest logs an outgoing API request on l with sensitive values masked
func LogAPIRequest(l *zap.Logger, method, path string, query map[string]string, attempt int) {
	l.Debug("API request",
		zap.String("method", method),
		zap.String("path", path),
		zap.String("query", RedactQuery(query)),
		zap.Int("attempt", attempt),
	)
}

// LogAPIResponse logs a received API response on l
func LogAPIResponse(l *zap.Logger, path string, statusCode int, body []byte) {
	fields := []zap.Field{
		zap.String("path", path),
		zap.Int("status_code", statusCode),
		zap.Int("length", len(body)),
	}

	if l.Core().Enabled(zapcore.DebugLevel) {
		fields = append(fields, zap.String("body", asciiDump(body)))
	}

	l.Debug("API response", fields...)
}

// RedactQuery renders query parameters as k=v pairs in key order,
// masking values of sensitive keys
func RedactQuery(query map[string]string) string {
	if len(query) == 0 {
		return ""
	}

	keys := make([]string, 0, len(query))
	for k := range query {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		v := query[k]
		if sensitiveKeys[k] {
			v = "***"
		}
		parts = append(parts, k+"="+v)
	}
	return strings.Join(parts, "&")
}

// asciiDump renders printable bytes as-is and everything else as '.'
func asciiDump(data []byte) string {
	if len(data) == 0 {
		return ""
	}
	// Limit to first 256 bytes
	truncated := len(data) > 256
	if truncated {
		data = data[:256]
	}

	result := make([]byte, len(data))
	for i, b := range data {
		if b >= 32 && b <= 126 {
			result[i] = b
		} else {
			result[i] = '.'
		}
	}
	if truncated {
		return string(result) + "..."
	}
	return string(result)
}

// Sync flushes any buffered log entries
func Sync() {
	if logger != nil {
		_ = logger.Sync()
	}
}
