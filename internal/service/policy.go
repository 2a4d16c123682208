package service

import "github.com/freshkeep/hub/internal/models"

// Mode is the operating mode of a pipeline, fixed at startup.
type Mode string

// Pipeline modes.
const (
	ModeConfigured Mode = "configured"
	ModeDegraded   Mode = "degraded"
)

// DegradedReason explains why a pipeline runs degraded.
type DegradedReason string

// Degraded reasons. A missing credential takes precedence over a missing corpus, which takes
// precedence over a corpus embedded at other dimensions than the query embeddings.
const (
	ReasonNone                    DegradedReason = ""
	ReasonMissingCredential       DegradedReason = "missing_credential"
	ReasonMissingCorpus           DegradedReason = "missing_corpus"
	ReasonCorpusDimensionMismatch DegradedReason = "corpus_dimension_mismatch"
)

// Policy is the degradation decision of one pipeline. It is computed once when the service is
// built and never changes for the lifetime of the process.
type Policy struct {
	mode   Mode
	reason DegradedReason
}

// NewPolicy decides the mode from whether a generation credential is present and how many
// corpus entries were loaded.
func NewPolicy(credentialPresent bool, corpusSize int) Policy {
	switch {
	case !credentialPresent:
		return Policy{mode: ModeDegraded, reason: ReasonMissingCredential}
	case corpusSize <= 0:
		return Policy{mode: ModeDegraded, reason: ReasonMissingCorpus}
	default:
		return Policy{mode: ModeConfigured, reason: ReasonNone}
	}
}

// withDimensionCheck degrades a configured policy when any chunk embedding length differs from
// dims. dims <= 0 skips the check.
func (p Policy) withDimensionCheck(chunks []models.CorpusChunk, dims int) (Policy, int) {
	if p.Degraded() || dims <= 0 {
		return p, 0
	}

	for _, c := range chunks {
		if len(c.Embedding) != dims {
			return Policy{mode: ModeDegraded, reason: ReasonCorpusDimensionMismatch}, len(c.Embedding)
		}
	}

	return p, 0
}

// Mode returns the pipeline mode.
func (p Policy) Mode() Mode { return p.mode }

// Reason returns why the pipeline is degraded, or ReasonNone.
func (p Policy) Reason() DegradedReason { return p.reason }

// Degraded reports whether the pipeline must answer with its fixed degraded payload.
func (p Policy) Degraded() bool { return p.mode == ModeDegraded }

// PipelineStatus describes one pipeline for the status endpoint.
type PipelineStatus struct {
	Pipeline   string         `json:"pipeline"`
	Mode       Mode           `json:"mode"`
	Reason     DegradedReason `json:"reason,omitempty"`
	CorpusSize int            `json:"corpus_size"`
}
