package bucketgo

import (
	"log/slog"

	"github.com/hupe1980/bucketgo/bucket"
	"github.com/hupe1980/bucketgo/resource"
)

type options struct {
	logger           *Logger
	metricsCollector MetricsCollector
	poolSize         int
	controller       *resource.Controller
	bucketOptFns     []func(o *bucket.Options)
}

// Option configures scan constructor behavior.
type Option func(*options)

// WithBucketOptions configures the buckets a scan creates. The functions are
// applied to every bucket, in order, on top of the storage-kind defaults.
func WithBucketOptions(optFns ...func(o *bucket.Options)) Option {
	return func(o *options) {
		o.bucketOptFns = append(o.bucketOptFns, optFns...)
	}
}

// WithPoolSize configures the number of worker goroutines a parallel scan
// uses for concurrent bucket execution. Values <= 0 default to GOMAXPROCS.
func WithPoolSize(numWorkers int) Option {
	return func(o *options) {
		o.poolSize = numWorkers
	}
}

// WithController configures resource limits (background worker slots, IO
// budget) applied to the scan's asynchronous execution.
func WithController(rc *resource.Controller) Option {
	return func(o *options) {
		o.controller = rc
	}
}

// WithMetricsCollector configures a metrics collector for monitoring
// operations. Pass nil to disable metrics collection.
//
// Example with BasicMetricsCollector:
//
//	metrics := &bucketgo.BasicMetricsCollector{}
//	scan := bucketgo.NewSequentialScan(b, bucketgo.WithMetricsCollector(metrics))
//	// ... use scan ...
//	stats := metrics.GetStats()
//	fmt.Printf("Adds: %d, Avg latency: %dns\n", stats.AddCount, stats.AddAvgNanos)
func WithMetricsCollector(mc MetricsCollector) Option {
	return func(o *options) {
		o.metricsCollector = mc
	}
}

// WithLogger configures structured logging for operations.
// Pass nil to disable logging.
//
// Example with JSON logging:
//
//	logger := bucketgo.NewJSONLogger(slog.LevelInfo)
//	scan := bucketgo.NewSequentialScan(b, bucketgo.WithLogger(logger))
func WithLogger(logger *Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithLogLevel creates a text logger with the specified level and sets it.
// Convenience wrapper for WithLogger(NewTextLogger(level)).
func WithLogLevel(level slog.Level) Option {
	return func(o *options) {
		o.logger = NewTextLogger(level)
	}
}

func applyOptions(optFns []Option) options {
	o := options{
		metricsCollector: NoopMetricsCollector{},
		logger:           NoopLogger(),
	}
	for _, fn := range optFns {
		if fn != nil {
			fn(&o)
		}
	}
	if o.metricsCollector == nil {
		o.metricsCollector = NoopMetricsCollector{}
	}
	if o.logger == nil {
		o.logger = NoopLogger()
	}
	return o
}
