package resultlist

import (
	"github.com/KevoDB/rowcursor/pkg/common/log"
	"github.com/KevoDB/rowcursor/pkg/config"
	"github.com/google/go-cmp/cmp"
)

type options struct {
	logger        log.Logger
	metrics       ViewMetrics
	equal         any
	windowSize    int
	cacheCapacity int
}

// Option configures a view
type Option func(*options)

// WithLogger sets the logger used for early frees and swallowed close errors
func WithLogger(logger log.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithMetrics sets the metrics recorder of the view
func WithMetrics(metrics ViewMetrics) Option {
	return func(o *options) {
		o.metrics = metrics
	}
}

// WithEqual sets the row equality used by Contains, IndexOf and LastIndexOf.
// The default is cmp.Equal. An equality for another row type is ignored.
func WithEqual[T any](equal func(a, b T) bool) Option {
	return func(o *options) {
		o.equal = equal
	}
}

// WithWindowSize sets the window capacity of a Windowed view
func WithWindowSize(size int) Option {
	return func(o *options) {
		o.windowSize = size
	}
}

// WithCacheCapacity bounds the sparse cache of a RandomAccessCaching view.
// Zero keeps every fetched row.
func WithCacheCapacity(capacity int) Option {
	return func(o *options) {
		o.cacheCapacity = capacity
	}
}

func buildOptions(strategy config.Strategy, opts []Option) *options {
	o := &options{windowSize: config.DefaultWindowSize}
	for _, opt := range opts {
		opt(o)
	}

	if o.logger == nil {
		o.logger = log.WithFields(map[string]interface{}{
			"component": "resultlist",
			"strategy":  string(strategy),
		})
	}
	if o.metrics == nil {
		o.metrics = NewNoopViewMetrics()
	}
	return o
}

func equalFor[T any](o *options) func(a, b T) bool {
	if eq, ok := o.equal.(func(a, b T) bool); ok && eq != nil {
		return eq
	}
	return func(a, b T) bool {
		return cmp.Equal(a, b)
	}
}
