package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metrics records folding operation and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records one backend computation.
	RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error)

	// RecordCacheLookup records whether a memoized operation was served from cache.
	RecordCacheLookup(ctx context.Context, meta OpMeta, hit bool)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	hitCount     metric.Int64Counter
	missCount    metric.Int64Counter
}

// NewMetrics creates the fold instruments on the given meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(
		"fold.op.total",
		metric.WithDescription("Total number of backend computations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(
		"fold.op.errors",
		metric.WithDescription("Total number of failed backend computations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(
		"fold.op.duration_ms",
		metric.WithDescription("Backend computation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	hitCount, err := meter.Int64Counter(
		"fold.cache.hits",
		metric.WithDescription("Memoized operations served without computing"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	missCount, err := meter.Int64Counter(
		"fold.cache.misses",
		metric.WithDescription("Memoized operations that ran a computation"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		hitCount:     hitCount,
		missCount:    missCount,
	}, nil
}

func (m *metricsImpl) RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, err error) {
	opt := metric.WithAttributes(
		attribute.String("fold.engine", meta.Engine),
		attribute.String("fold.op", meta.Operation),
	)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, meta OpMeta, hit bool) {
	opt := metric.WithAttributes(
		attribute.String("fold.engine", meta.Engine),
		attribute.String("fold.op", meta.Operation),
	)
	if hit {
		m.hitCount.Add(ctx, 1, opt)
		return
	}
	m.missCount.Add(ctx, 1, opt)
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(context.Context, OpMeta, time.Duration, error) {}
func (noopMetrics) RecordCacheLookup(context.Context, OpMeta, bool)               {}
