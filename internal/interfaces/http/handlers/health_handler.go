package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/clauselens/clauselens/pkg/types/common"
)

// Checker probes one backing dependency.
type Checker func(ctx context.Context) error

// HealthHandler serves liveness and readiness probes.
type HealthHandler struct {
	version  string
	checkers map[string]Checker
	timeout  time.Duration
}

// NewHealthHandler builds a HealthHandler.  checkers maps component names
// (postgres, redis, ...) to their probes; readiness fails when any probe does.
func NewHealthHandler(version string, checkers map[string]Checker) *HealthHandler {
	return &HealthHandler{
		version:  version,
		checkers: checkers,
		timeout:  2 * time.Second,
	}
}

// Liveness reports that the process is up.
//
//	GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": string(common.HealthUp), "version": h.version})
}

// Readiness probes every registered dependency.
//
//	GET /readyz
func (h *HealthHandler) Readiness(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
	defer cancel()

	status := common.HealthUp
	components := make([]common.ComponentHealth, 0, len(h.checkers))
	for name, check := range h.checkers {
		start := time.Now()
		err := check(ctx)
		component := common.ComponentHealth{
			Name:    name,
			Status:  common.HealthUp,
			Latency: time.Since(start),
		}
		if err != nil {
			component.Status = common.HealthDown
			component.Message = err.Error()
			status = common.HealthDown
		}
		components = append(components, component)
	}

	code := http.StatusOK
	if status == common.HealthDown {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, gin.H{
		"status":     string(status),
		"version":    h.version,
		"components": components,
	})
}
