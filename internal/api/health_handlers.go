package api

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/danielgtaylor/huma/v2"
)

func (s *Server) registerHealthRoutes() {
	huma.Register(s.api, huma.Operation{
		OperationID: "healthCheck",
		Method:      http.MethodGet,
		Path:        "/health",
		Summary:     "Health check",
		Description: "Returns server health status with component checks",
		Tags:        []string{"Health"},
	}, s.handleHealthCheck)
}

// ComponentHealth describes the health of a single component.
type ComponentHealth struct {
	Status  string `json:"status" doc:"Component status: healthy, degraded, or unhealthy"`
	Latency string `json:"latency,omitempty" doc:"Response time for this component"`
	Message string `json:"message,omitempty" doc:"Additional status information"`
}

// HealthResponse contains health check data in API responses.
type HealthResponse struct {
	Status     string                     `json:"status" doc:"Overall status: healthy, degraded, or unhealthy"`
	Components map[string]ComponentHealth `json:"components" doc:"Individual component statuses"`
}

// HealthOutput wraps the health response for Huma. Status is 503 when the
// server cannot serve the catalog.
type HealthOutput struct {
	Status int
	Body   HealthResponse
}

func (s *Server) handleHealthCheck(ctx context.Context, _ *struct{}) (*HealthOutput, error) {
	components := map[string]ComponentHealth{
		"database": s.checkDatabase(ctx),
		"cache":    s.checkCache(),
		"events":   s.checkEvents(),
	}

	overall := "healthy"
	// The catalog cannot serve without its database.
	if components["database"].Status != "healthy" {
		overall = "unhealthy"
	} else {
		for _, c := range components {
			if c.Status != "healthy" {
				overall = "degraded"
			}
		}
	}

	status := http.StatusOK
	if overall == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	return &HealthOutput{Status: status, Body: HealthResponse{Status: overall, Components: components}}, nil
}

func (s *Server) checkDatabase(ctx context.Context) ComponentHealth {
	if s.services.Database == nil {
		return ComponentHealth{Status: "unhealthy", Message: "not configured"}
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	start := time.Now()
	if err := s.services.Database.Ping(ctx); err != nil {
		return ComponentHealth{Status: "unhealthy", Message: err.Error()}
	}
	return ComponentHealth{Status: "healthy", Latency: time.Since(start).String()}
}

func (s *Server) checkCache() ComponentHealth {
	if s.services.Cache == nil {
		return ComponentHealth{Status: "degraded", Message: "not configured"}
	}
	start := time.Now()
	if err := s.services.Cache.Ping(); err != nil {
		return ComponentHealth{Status: "degraded", Message: err.Error()}
	}
	return ComponentHealth{Status: "healthy", Latency: time.Since(start).String()}
}

func (s *Server) checkEvents() ComponentHealth {
	if s.services.Events == nil {
		return ComponentHealth{Status: "degraded", Message: "not configured"}
	}
	return ComponentHealth{
		Status:  "healthy",
		Message: strconv.Itoa(s.services.Events.ClientCount()) + " connected clients",
	}
}
