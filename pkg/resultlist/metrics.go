// ABOUTME: Result list telemetry metrics interface and implementation
// ABOUTME: Tracks provider calls, cache hits, LRU evictions and early provider frees

package resultlist

import (
	"context"
	"time"

	"github.com/KevoDB/rowcursor/pkg/provider"
	"github.com/KevoDB/rowcursor/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

// ViewMetrics defines the telemetry operations of a view.
// All metrics are optional - implementations can safely be no-op.
type ViewMetrics interface {
	telemetry.ComponentMetrics

	// RecordProviderCall records one call made by a view to its provider.
	RecordProviderCall(ctx context.Context, strategy string, op provider.Op, duration time.Duration, err error)

	// RecordCacheHit records whether a read was served without the provider.
	RecordCacheHit(ctx context.Context, strategy string, hit bool)

	// RecordEviction records a row dropped from a bounded cache.
	RecordEviction(ctx context.Context, strategy string)

	// RecordProviderFreed records a provider released before Close.
	RecordProviderFreed(ctx context.Context, strategy string, reason string)
}

// viewMetrics implements ViewMetrics using the telemetry interface.
type viewMetrics struct {
	tel telemetry.Telemetry
}

// NewViewMetrics creates a new view metrics implementation.
// If tel is nil, returns a no-op implementation.
func NewViewMetrics(tel telemetry.Telemetry) ViewMetrics {
	if tel == nil {
		return &noopViewMetrics{}
	}
	return &viewMetrics{tel: tel}
}

// NewNoopViewMetrics creates a no-op view metrics implementation.
func NewNoopViewMetrics() ViewMetrics {
	return &noopViewMetrics{}
}

func (m *viewMetrics) RecordProviderCall(ctx context.Context, strategy string, op provider.Op, duration time.Duration, err error) {
	status := telemetry.StatusSuccess
	if err != nil {
		status = telemetry.StatusError
	}

	m.tel.RecordHistogram(ctx, "rowcursor.provider.call.duration", duration.Seconds(),
		attribute.String(telemetry.AttrComponent, telemetry.ComponentResultList),
		attribute.String(telemetry.AttrStrategy, strategy),
		attribute.String(telemetry.AttrOperationType, string(op)),
	)

	m.tel.RecordCounter(ctx, "rowcursor.provider.calls.total", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentResultList),
		attribute.String(telemetry.AttrStrategy, strategy),
		attribute.String(telemetry.AttrOperationType, string(op)),
		attribute.String(telemetry.AttrStatus, status),
	)
}

func (m *viewMetrics) RecordCacheHit(ctx context.Context, strategy string, hit bool) {
	name := "rowcursor.cache.misses.total"
	if hit {
		name = "rowcursor.cache.hits.total"
	}
	m.tel.RecordCounter(ctx, name, 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentResultList),
		attribute.String(telemetry.AttrStrategy, strategy),
	)
}

func (m *viewMetrics) RecordEviction(ctx context.Context, strategy string) {
	m.tel.RecordCounter(ctx, "rowcursor.cache.evictions.total", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentResultList),
		attribute.String(telemetry.AttrStrategy, strategy),
	)
}

func (m *viewMetrics) RecordProviderFreed(ctx context.Context, strategy string, reason string) {
	m.tel.RecordCounter(ctx, "rowcursor.provider.freed.total", 1,
		attribute.String(telemetry.AttrComponent, telemetry.ComponentResultList),
		attribute.String(telemetry.AttrStrategy, strategy),
		attribute.String(telemetry.AttrReason, reason),
	)
}

// Close does nothing; the telemetry instance is owned by the caller.
func (m *viewMetrics) Close() error {
	return nil
}

type noopViewMetrics struct{}

func (n *noopViewMetrics) RecordProviderCall(ctx context.Context, strategy string, op provider.Op, duration time.Duration, err error) {
}

func (n *noopViewMetrics) RecordCacheHit(ctx context.Context, strategy string, hit bool) {}

func (n *noopViewMetrics) RecordEviction(ctx context.Context, strategy string) {}

func (n *noopViewMetrics) RecordProviderFreed(ctx context.Context, strategy string, reason string) {
}

func (n *noopViewMetrics) Close() error { return nil }
