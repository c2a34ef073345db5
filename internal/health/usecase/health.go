package usecase

// HealthResponse represents the health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Tools   int    `json:"tools"`
}

// ToolCounter reports how many tools are registered.
type ToolCounter interface {
	Len() int
}

// HealthUseCase handles health check business logic
type HealthUseCase struct {
	version string
	tools   ToolCounter
}

// NewHealthUseCase creates a new health use case
func NewHealthUseCase(version string, tools ToolCounter) *HealthUseCase {
	return &HealthUseCase{
		version: version,
		tools:   tools,
	}
}

// Check performs a health check
func (h *HealthUseCase) Check() HealthResponse {
	n := 0
	if h.tools != nil {
		n = h.tools.Len()
	}
	return HealthResponse{
		Status:  "ok",
		Version: h.version,
		Tools:   n,
	}
}
