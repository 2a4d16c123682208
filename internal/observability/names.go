// Package observability provides OpenTelemetry metrics and tracing for the hub API.
package observability

// Metric names (Prometheus / OpenTelemetry).
const (
	MetricNamePipelineRequests    = "hub_pipeline_requests_total"
	MetricNameGenerationDuration  = "hub_generation_duration_seconds"
	MetricNameCacheLookups        = "hub_cache_lookups_total"
	MetricNameHTTPRequests        = "hub_http_requests_total"
	MetricNameHTTPRequestDuration = "hub_http_request_duration_seconds"
	MetricNameRequestBodyTooLarge = "hub_api_request_body_too_large_total"
)

// Attribute keys.
const (
	AttrPipeline    = "pipeline"
	AttrOutcome     = "outcome"
	AttrCache       = "cache"
	AttrResult      = "result"
	AttrMethod      = "method"
	AttrRoute       = "route"
	AttrStatusClass = "status_class"
)

// Pipeline names.
const (
	PipelineRecipe = "recipe"
	PipelineWaste  = "waste"
)

// Pipeline outcomes.
const (
	OutcomeGenerated = "generated"
	OutcomeFallback  = "fallback"
	OutcomeDegraded  = "degraded"
	OutcomeNoData    = "no_data"
	OutcomeRejected  = "rejected"
)

// AllowedPipelines for hub_pipeline_requests_total and hub_generation_duration_seconds.
var AllowedPipelines = map[string]bool{
	PipelineRecipe: true,
	PipelineWaste:  true,
}

// AllowedOutcomes for hub_pipeline_requests_total and hub_generation_duration_seconds.
var AllowedOutcomes = map[string]bool{
	OutcomeGenerated: true,
	OutcomeFallback:  true,
	OutcomeDegraded:  true,
	OutcomeNoData:    true,
	OutcomeRejected:  true,
}

// AllowedCacheNames for hub_cache_lookups_total.
var AllowedCacheNames = map[string]bool{
	"waste_query_embedding": true,
}

// NormalizeReason returns reason if in allowed, otherwise "other".
func NormalizeReason(reason string, allowed map[string]bool) string {
	if allowed[reason] {
		return reason
	}

	return "other"
}

// NormalizeCacheName returns name if in AllowedCacheNames, otherwise "other".
func NormalizeCacheName(name string) string {
	return NormalizeReason(name, AllowedCacheNames)
}

// StatusClass maps an HTTP status code to "2xx".."5xx" (bounded route label).
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	default:
		return "2xx"
	}
}
