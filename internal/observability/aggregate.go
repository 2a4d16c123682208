package observability

import (
	"fmt"

	"go.opentelemetry.io/otel/metric"
)

// Metrics bundles the collectors handed to the pipelines, the query cache and the HTTP layer.
// A nil *Metrics means metrics are disabled.
type Metrics struct {
	Pipeline PipelineMetrics
	Cache    CacheMetrics
	API      APIMetrics
}

// NewMetrics registers every collector on meter. Returns (nil, nil) for a nil meter.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	m := &Metrics{}

	var err error

	if m.Pipeline, err = NewPipelineMetrics(meter); err != nil {
		return nil, fmt.Errorf("pipeline metrics: %w", err)
	}

	if m.Cache, err = NewCacheMetrics(meter); err != nil {
		return nil, fmt.Errorf("cache metrics: %w", err)
	}

	if m.API, err = NewAPIMetrics(meter); err != nil {
		return nil, fmt.Errorf("api metrics: %w", err)
	}

	return m, nil
}
