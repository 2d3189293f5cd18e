package handlers

import (
	"context"
	"net/http"
	"time"
)

const version = "1.0.0"

// Check is the outcome of probing one dependency.
type Check struct {
	Status  string `json:"status"` // pass, fail or skip
	Latency string `json:"latency,omitempty"`
	Message string `json:"message,omitempty"`
}

// HealthResponse is the body of GET /health.
type HealthResponse struct {
	Status    string           `json:"status"` // healthy or degraded
	Version   string           `json:"version"`
	Checks    map[string]Check `json:"checks"`
	Timestamp string           `json:"timestamp"`
}

type pinger interface {
	Ping(ctx context.Context) error
}

func probe(ctx context.Context, p pinger) Check {
	start := time.Now()
	if err := p.Ping(ctx); err != nil {
		return Check{Status: "fail", Message: "connection failed"}
	}
	return Check{Status: "pass", Latency: time.Since(start).String()}
}

// Health pings the database and, when configured, Redis.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	checks := map[string]Check{
		"database": probe(ctx, h.store),
		"redis":    {Status: "skip", Message: "not configured"},
	}
	if h.throttle != nil {
		checks["redis"] = probe(ctx, h.throttle)
	}

	resp := HealthResponse{
		Status:    "healthy",
		Version:   version,
		Checks:    checks,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	status := http.StatusOK
	for _, c := range checks {
		if c.Status == "fail" {
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
		}
	}
	h.JSON(w, status, resp)
}

// Root identifies the service.
func (h *Handler) Root(w http.ResponseWriter, r *http.Request) {
	h.JSON(w, http.StatusOK, map[string]string{
		"name":    "questions-app",
		"version": version,
	})
}
