package handler

import (
	"encoding/json"
	"net/http"

	"github.com/joss/taskd/internal/health/usecase"
	"github.com/joss/taskd/internal/metrics"
)

// HealthHandler handles HTTP requests for health checks
type HealthHandler struct {
	useCase *usecase.HealthUseCase
	metrics *metrics.Metrics
}

// NewHealthHandler creates a new health handler. m may be nil.
func NewHealthHandler(useCase *usecase.HealthUseCase, m *metrics.Metrics) *HealthHandler {
	return &HealthHandler{
		useCase: useCase,
		metrics: m,
	}
}

// HandleHealth handles the /health endpoint
func (h *HealthHandler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if h.metrics != nil {
		h.metrics.RecordHealthCheck()
	}
	response := h.useCase.Check()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(response)
}
