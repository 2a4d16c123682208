package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// PipelineMetrics records per-request outcomes of the retrieval pipelines and the latency of
// generation backend calls. Labels are bounded (pipeline, outcome).
type PipelineMetrics interface {
	RecordOutcome(ctx context.Context, pipeline, outcome string)
	RecordGenerationDuration(ctx context.Context, pipeline, outcome string, duration time.Duration)
}

// pipelineMetrics implements PipelineMetrics.
type pipelineMetrics struct {
	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewPipelineMetrics creates PipelineMetrics. Returns (nil, nil) when meter is nil (metrics disabled).
func NewPipelineMetrics(meter metric.Meter) (PipelineMetrics, error) {
	if meter == nil {
		//nolint:nilnil // intentional: callers use "if metrics != nil" when metrics disabled
		return nil, nil
	}

	requests, err := meter.Int64Counter(
		MetricNamePipelineRequests,
		metric.WithDescription("Pipeline requests by outcome. Label pipeline: recipe, waste. "+
			"Label outcome: generated, fallback, degraded, no_data, rejected."),
		metric.WithUnit("1"),
	)
	if err != nil {
		return nil, fmt.Errorf("create pipeline requests counter: %w", err)
	}

	duration, err := meter.Float64Histogram(
		MetricNameGenerationDuration,
		metric.WithDescription("Duration of generation backend calls in seconds, including timeouts"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, fmt.Errorf("create generation duration histogram: %w", err)
	}

	return &pipelineMetrics{requests: requests, duration: duration}, nil
}

func pipelineAttrs(pipeline, outcome string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String(AttrPipeline, NormalizeReason(pipeline, AllowedPipelines)),
		attribute.String(AttrOutcome, NormalizeReason(outcome, AllowedOutcomes)),
	)
}

func (p *pipelineMetrics) RecordOutcome(ctx context.Context, pipeline, outcome string) {
	p.requests.Add(ctx, 1, pipelineAttrs(pipeline, outcome))
}

func (p *pipelineMetrics) RecordGenerationDuration(ctx context.Context, pipeline, outcome string, duration time.Duration) {
	p.duration.Record(ctx, duration.Seconds(), pipelineAttrs(pipeline, outcome))
}
