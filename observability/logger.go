// Package observability carries the ambient stack this repo's core format
// deliberately leaves unspecified: structured logging, metrics, and tracing
// around the encode/decode/signature-verification pipelines, built on the
// same mtlog/Prometheus/OTel stack a NuGet-style package toolchain uses for
// its restore/download operations, restructured around this repo's own
// operations instead.
package observability

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/willibrandon/mtlog"
	"github.com/willibrandon/mtlog/core"
	"github.com/willibrandon/mtlog/sinks"
)

// Logger is the structured-logging interface every component in this repo
// depends on, wrapping mtlog so call sites never import it directly.
type Logger interface {
	Debug(messageTemplate string, args ...any)
	DebugContext(ctx context.Context, messageTemplate string, args ...any)

	Info(messageTemplate string, args ...any)
	InfoContext(ctx context.Context, messageTemplate string, args ...any)

	Warn(messageTemplate string, args ...any)
	WarnContext(ctx context.Context, messageTemplate string, args ...any)

	Error(messageTemplate string, args ...any)
	ErrorContext(ctx context.Context, messageTemplate string, args ...any)

	// ForContext returns a child logger carrying an extra structured field.
	ForContext(key string, value any) Logger

	// ForOperation returns a child logger tagged with a fresh correlation ID
	// for one encode/decode/verify call, so every log line for that call can
	// be grepped together.
	ForOperation(operation string) (Logger, string)
}

type mtlogAdapter struct {
	logger core.Logger
}

// LogLevel is the minimum severity a Logger emits.
type LogLevel int

const (
	// DebugLevel emits every diagnostic line, including per-section decode detail.
	DebugLevel LogLevel = iota
	// InfoLevel emits lifecycle events: encode started, signature verified, package written.
	InfoLevel
	// WarnLevel emits recoverable anomalies: schema validation tolerating unknown keys, retried RPCs.
	WarnLevel
	// ErrorLevel emits only failures that abort the current operation.
	ErrorLevel
)

// NewLogger builds a logger writing structured lines to output at the given
// minimum level, tagging every line with the process and machine identity.
func NewLogger(output io.Writer, level LogLevel) Logger {
	consoleSink := sinks.NewConsoleSinkWithWriter(output)

	opts := []mtlog.Option{
		mtlog.WithSink(consoleSink),
		mtlog.WithTimestamp(),
		mtlog.WithMachineName(),
		mtlog.WithProcess(),
	}

	switch level {
	case DebugLevel:
		opts = append(opts, mtlog.Debug())
	case InfoLevel:
		opts = append(opts, mtlog.Information())
	case WarnLevel:
		opts = append(opts, mtlog.Warning())
	case ErrorLevel:
		opts = append(opts, mtlog.Error())
	}

	return &mtlogAdapter{logger: mtlog.New(opts...)}
}

// NewDefaultLogger returns a stdout logger at InfoLevel, the front end's default.
func NewDefaultLogger() Logger {
	return NewLogger(os.Stdout, InfoLevel)
}

func (a *mtlogAdapter) Debug(messageTemplate string, args ...any) {
	a.logger.Debug(messageTemplate, args...)
}
func (a *mtlogAdapter) DebugContext(ctx context.Context, messageTemplate string, args ...any) {
	a.logger.DebugContext(ctx, messageTemplate, args...)
}
func (a *mtlogAdapter) Info(messageTemplate string, args ...any) {
	a.logger.Info(messageTemplate, args...)
}
func (a *mtlogAdapter) InfoContext(ctx context.Context, messageTemplate string, args ...any) {
	a.logger.InfoContext(ctx, messageTemplate, args...)
}
func (a *mtlogAdapter) Warn(messageTemplate string, args ...any) {
	a.logger.Warn(messageTemplate, args...)
}
func (a *mtlogAdapter) WarnContext(ctx context.Context, messageTemplate string, args ...any) {
	a.logger.WarnContext(ctx, messageTemplate, args...)
}
func (a *mtlogAdapter) Error(messageTemplate string, args ...any) {
	a.logger.Error(messageTemplate, args...)
}
func (a *mtlogAdapter) ErrorContext(ctx context.Context, messageTemplate string, args ...any) {
	a.logger.ErrorContext(ctx, messageTemplate, args...)
}

func (a *mtlogAdapter) ForContext(key string, value any) Logger {
	return &mtlogAdapter{logger: a.logger.ForContext(key, value)}
}

func (a *mtlogAdapter) ForOperation(operation string) (Logger, string) {
	correlationID := uuid.NewString()
	child := a.logger.ForContext("operation", operation).ForContext("correlationId", correlationID)
	return &mtlogAdapter{logger: child}, correlationID
}

type nullLogger struct{}

// NewNullLogger returns a Logger that discards everything, for tests and
// library callers that don't want the front end's log stream.
func NewNullLogger() Logger { return &nullLogger{} }

func (n *nullLogger) Debug(string, ...any)                          {}
func (n *nullLogger) DebugContext(context.Context, string, ...any)  {}
func (n *nullLogger) Info(string, ...any)                           {}
func (n *nullLogger) InfoContext(context.Context, string, ...any)   {}
func (n *nullLogger) Warn(string, ...any)                           {}
func (n *nullLogger) WarnContext(context.Context, string, ...any)   {}
func (n *nullLogger) Error(string, ...any)                          {}
func (n *nullLogger) ErrorContext(context.Context, string, ...any)  {}
func (n *nullLogger) ForContext(key string, value any) Logger       { return n }
func (n *nullLogger) ForOperation(operation string) (Logger, string) {
	return n, uuid.NewString()
}
