package logger

import (
	"context"
	"os"
	"strings"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	// Global sugared logger; nop until Init is called so packages can log from tests.
	global = zap.NewNop().Sugar()
	// Whether debug lines are emitted
	detailedLogging bool
)

// LogConfig holds logging configuration
type LogConfig struct {
	Level           string // DEBUG, INFO, WARN, ERROR
	Format          string // json or console
	DetailedLogging bool   // Enable debug lines
}

// Init initializes the global logger from environment variables
func Init() error {
	return InitWithConfig(LoadConfigFromEnv())
}

// LoadConfigFromEnv loads logging configuration from environment variables
func LoadConfigFromEnv() LogConfig {
	return LogConfig{
		Level:           getEnvOrDefault("LOG_LEVEL", "INFO"),
		Format:          getEnvOrDefault("LOG_FORMAT", "json"),
		DetailedLogging: getEnvOrDefault("LOG_DETAILED", "false") == "true",
	}
}

// InitWithConfig builds the zap logger for the given configuration
func InitWithConfig(config LogConfig) error {
	detailedLogging = config.DetailedLogging

	level := parseLogLevel(config.Level)
	if detailedLogging && level > zapcore.DebugLevel {
		level = zapcore.DebugLevel
	}

	var zc zap.Config
	if config.Format == "json" {
		zc = zap.NewProductionConfig()
	} else {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	zc.OutputPaths = []string{"stdout"}
	zc.EncoderConfig.TimeKey = "time"
	zc.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	zc.DisableCaller = !detailedLogging

	l, err := zc.Build(zap.AddCallerSkip(2))
	if err != nil {
		return err
	}
	global = l.Sugar()
	return nil
}

// InitForTest routes all output through a development logger at debug level.
func InitForTest() {
	detailedLogging = true
	global = zap.NewExample().Sugar()
}

// Sync flushes buffered log entries
func Sync() {
	_ = global.Sync()
}

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return zapcore.DebugLevel
	case "WARN":
		return zapcore.WarnLevel
	case "ERROR":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// traceAttrs extracts trace ID and span ID from context for logging
func traceAttrs(ctx context.Context) []any {
	if ctx == nil {
		return nil
	}
	sc := trace.SpanFromContext(ctx).SpanContext()
	if !sc.IsValid() {
		return nil
	}
	return []any{"trace_id", sc.TraceID().String(), "span_id", sc.SpanID().String()}
}

func log(ctx context.Context, level zapcore.Level, msg string, args ...any) {
	if ta := traceAttrs(ctx); ta != nil {
		args = append(ta, args...)
	}
	switch level {
	case zapcore.DebugLevel:
		global.Debugw(msg, args...)
	case zapcore.WarnLevel:
		global.Warnw(msg, args...)
	case zapcore.ErrorLevel:
		global.Errorw(msg, args...)
	default:
		global.Infow(msg, args...)
	}
}

// Debug logs a debug message when detailed logging is on
func Debug(ctx context.Context, msg string, args ...any) {
	if !detailedLogging {
		return
	}
	log(ctx, zapcore.DebugLevel, msg, args...)
}

// Info logs an info message
func Info(ctx context.Context, msg string, args ...any) {
	log(ctx, zapcore.InfoLevel, msg, args...)
}

// Warn logs a warning message
func Warn(ctx context.Context, msg string, args ...any) {
	log(ctx, zapcore.WarnLevel, msg, args...)
}

// Error logs an error message
func Error(ctx context.Context, msg string, args ...any) {
	log(ctx, zapcore.ErrorLevel, msg, args...)
}

// ErrorWithErr logs an error and records it on the active span
func ErrorWithErr(ctx context.Context, msg string, err error, args ...any) {
	if ctx != nil {
		span := trace.SpanFromContext(ctx)
		if span.SpanContext().IsValid() {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}
	log(ctx, zapcore.ErrorLevel, msg, append([]any{"error", err}, args...)...)
}

// Signal logs a detected candlestick signal
func Signal(ctx context.Context, symbol, pattern, direction string, strength float64, fields ...any) {
	addEvent(ctx, "pattern_signal",
		attribute.String("symbol", symbol),
		attribute.String("pattern", pattern),
		attribute.String("direction", direction),
		attribute.Float64("strength", strength),
	)
	all := append([]any{
		"type", "SIGNAL",
		"symbol", symbol,
		"pattern", pattern,
		"direction", direction,
		"strength", strength,
	}, fields...)
	log(ctx, zapcore.InfoLevel, "Pattern detected", all...)
}

// Trade logs a trade open or close (always logged regardless of level)
func Trade(ctx context.Context, symbol, event, status string, price float64, fields ...any) {
	addEvent(ctx, "trade_"+event,
		attribute.String("symbol", symbol),
		attribute.String("status", status),
		attribute.Float64("price", price),
	)
	all := append([]any{
		"type", "TRADE",
		"symbol", symbol,
		"event", event,
		"status", status,
		"price", price,
	}, fields...)
	log(ctx, zapcore.InfoLevel, "Trade "+event, all...)
}

// Risk logs a discarded opportunity or other risk event
func Risk(ctx context.Context, symbol, eventType string, fields ...any) {
	addEvent(ctx, "risk_event",
		attribute.String("symbol", symbol),
		attribute.String("event_type", eventType),
	)
	all := append([]any{
		"type", "RISK",
		"symbol", symbol,
		"event_type", eventType,
	}, fields...)
	log(ctx, zapcore.WarnLevel, "Risk event", all...)
}

func addEvent(ctx context.Context, name string, attrs ...attribute.KeyValue) {
	if ctx == nil {
		return
	}
	span := trace.SpanFromContext(ctx)
	if span.SpanContext().IsValid() {
		span.AddEvent(name, trace.WithAttributes(attrs...))
	}
}

// IsDebugEnabled returns whether debug logging is enabled
func IsDebugEnabled() bool {
	return detailedLogging
}
