package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/carloswilll/dashboard-cartolaFC2025/pkg/solver"
)

// Pinger is anything whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a plain function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) Ping(ctx context.Context) error {
	return f(ctx)
}

type HealthHandler struct {
	checks     map[string]Pinger
	capability solver.Capability
}

func NewHealthHandler(checks map[string]Pinger, capability solver.Capability) *HealthHandler {
	return &HealthHandler{
		checks:     checks,
		capability: capability,
	}
}

// GetHealth returns basic health status - always returns 200 if server is running
func (h *HealthHandler) GetHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "ok",
		"timestamp": time.Now().UTC(),
		"service":   "cartola-optimizer",
	})
}

// GetReady returns 200 only when every dependency answers. The solver
// status is reported but does not gate readiness.
func (h *HealthHandler) GetReady(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	ready := true
	deps := make(map[string]string, len(h.checks))
	for name, check := range h.checks {
		if err := check.Ping(ctx); err != nil {
			ready = false
			deps[name] = err.Error()
			continue
		}
		deps[name] = "ok"
	}

	body := gin.H{
		"dependencies": deps,
		"solver": gin.H{
			"status":     h.capability.Status.String(),
			"reason":     h.capability.Reason,
			"checked_at": h.capability.CheckedAt,
		},
	}
	if ready {
		body["status"] = "ready"
		c.JSON(http.StatusOK, body)
		return
	}
	body["status"] = "not_ready"
	c.JSON(http.StatusServiceUnavailable, body)
}
