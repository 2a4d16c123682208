package handlers

import (
	"log/slog"
	"net/http"

	"github.com/freshkeep/hub/internal/api/response"
	"github.com/freshkeep/hub/internal/service"
)

// HealthHandler handles health check requests.
type HealthHandler struct{}

// NewHealthHandler creates a new health handler.
func NewHealthHandler() *HealthHandler {
	return &HealthHandler{}
}

// Check handles GET /health.
func (h *HealthHandler) Check(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("OK")); err != nil {
		slog.Error("Failed to write health check response", "error", err)
	}
}

// PipelineStatusProvider reports the startup mode of one pipeline.
type PipelineStatusProvider interface {
	Status() service.PipelineStatus
}

// PipelineStatusResponse lists the mode of every pipeline.
type PipelineStatusResponse struct {
	Pipelines []service.PipelineStatus `json:"pipelines"`
}

// StatusHandler reports whether each pipeline is configured or degraded.
// The mode is fixed at startup, so this never calls an AI backend.
type StatusHandler struct {
	providers []PipelineStatusProvider
}

// NewStatusHandler creates a status handler over the given pipelines.
func NewStatusHandler(providers ...PipelineStatusProvider) *StatusHandler {
	return &StatusHandler{providers: providers}
}

// Pipelines handles GET /v1/pipelines/status.
func (h *StatusHandler) Pipelines(w http.ResponseWriter, _ *http.Request) {
	resp := PipelineStatusResponse{Pipelines: make([]service.PipelineStatus, 0, len(h.providers))}
	for _, p := range h.providers {
		resp.Pipelines = append(resp.Pipelines, p.Status())
	}

	response.RespondJSON(w, http.StatusOK, resp)
}
