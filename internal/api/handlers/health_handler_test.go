package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/freshkeep/hub/internal/service"
)

func TestHealthHandler_Check(t *testing.T) {
	rec := httptest.NewRecorder()
	NewHealthHandler().Check(rec, httptest.NewRequest(http.MethodGet, "/health", http.NoBody))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "OK", rec.Body.String())
}

func TestStatusHandler_Pipelines(t *testing.T) {
	h := NewStatusHandler(
		staticStatus{Pipeline: "recipe", Mode: service.ModeConfigured, CorpusSize: 120},
		staticStatus{Pipeline: "waste", Mode: service.ModeDegraded, Reason: service.ReasonMissingCredential},
	)

	rec := httptest.NewRecorder()
	h.Pipelines(rec, httptest.NewRequest(http.MethodGet, "/v1/pipelines/status", http.NoBody))

	require.Equal(t, http.StatusOK, rec.Code)

	var out PipelineStatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	require.Len(t, out.Pipelines, 2)
	assert.Equal(t, service.ModeConfigured, out.Pipelines[0].Mode)
	assert.Equal(t, service.ReasonMissingCredential, out.Pipelines[1].Reason)

	var raw struct {
		Pipelines []map[string]any `json:"pipelines"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &raw))
	assert.NotContains(t, raw.Pipelines[0], "reason")
}
