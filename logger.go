package bucketgo

import (
	"context"
	"log/slog"
	"os"

	"github.com/hupe1980/bucketgo/bucket"
	"github.com/hupe1980/bucketgo/model"
)

// Logger wraps slog.Logger with bucketgo-specific context.
// This provides structured logging with consistent field names.
type Logger struct {
	*slog.Logger
}

// NewLogger creates a new Logger with the given handler.
// If handler is nil, uses default text handler to stderr.
func NewLogger(handler slog.Handler) *Logger {
	if handler == nil {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
			Level: slog.LevelInfo,
		})
	}
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewJSONLogger creates a Logger that outputs JSON-formatted logs.
// level sets the minimum log level (e.g., slog.LevelDebug, slog.LevelInfo).
func NewJSONLogger(level slog.Level) *Logger {
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NewTextLogger creates a Logger that outputs human-readable text logs.
func NewTextLogger(level slog.Level) *Logger {
	handler := slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: level,
	})
	return &Logger{
		Logger: slog.New(handler),
	}
}

// NoopLogger creates a Logger that discards all log output.
// Use this to disable logging entirely.
func NoopLogger() *Logger {
	return &Logger{
		Logger: slog.New(slog.DiscardHandler),
	}
}

// WithBucket adds a bucket ID field to the logger.
func (l *Logger) WithBucket(id bucket.ID) *Logger {
	return &Logger{
		Logger: l.Logger.With("bucket", uint32(id)),
	}
}

// WithObject adds an object ID field to the logger.
func (l *Logger) WithObject(id model.ObjectID) *Logger {
	return &Logger{
		Logger: l.Logger.With("object", uint64(id)),
	}
}

// WithLocator adds a locator field to the logger.
func (l *Logger) WithLocator(locator string) *Logger {
	return &Logger{
		Logger: l.Logger.With("locator", locator),
	}
}

// WithCount adds a count field to the logger.
func (l *Logger) WithCount(count int) *Logger {
	return &Logger{
		Logger: l.Logger.With("count", count),
	}
}

// LogAdd logs an insert operation.
func (l *Logger) LogAdd(ctx context.Context, id model.ObjectID, size int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "add failed",
			"object", uint64(id),
			"size", size,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "add completed",
			"object", uint64(id),
			"size", size,
		)
	}
}

// LogBatchAdd logs a batch insert operation.
func (l *Logger) LogBatchAdd(ctx context.Context, count, failed int) {
	if failed > 0 {
		l.WarnContext(ctx, "batch add completed with failures",
			"total", count,
			"failed", failed,
			"success", count-failed,
		)
	} else {
		l.InfoContext(ctx, "batch add completed",
			"count", count,
		)
	}
}

// LogDelete logs a delete operation.
func (l *Logger) LogDelete(ctx context.Context, id model.ObjectID, err error) {
	if err != nil {
		l.ErrorContext(ctx, "delete failed",
			"object", uint64(id),
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "delete completed",
			"object", uint64(id),
		)
	}
}

// LogQuery logs a query operation.
func (l *Logger) LogQuery(ctx context.Context, buckets, results int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "query failed",
			"buckets", buckets,
			"error", err,
		)
	} else {
		l.DebugContext(ctx, "query completed",
			"buckets", buckets,
			"results", results,
		)
	}
}

// LogSplit logs a bucket split operation.
func (l *Logger) LogSplit(ctx context.Context, id bucket.ID, moved int, err error) {
	if err != nil {
		l.ErrorContext(ctx, "split failed",
			"bucket", uint32(id),
			"moved", moved,
			"error", err,
		)
	} else {
		l.InfoContext(ctx, "split completed",
			"bucket", uint32(id),
			"moved", moved,
		)
	}
}
