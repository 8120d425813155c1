package controller

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

const healthCheckTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Controller handles general HTTP requests.
type Controller struct {
	checks map[string]HealthCheck
}

// New creates a new Controller running the given named health checks on every ping.
func New(checks map[string]HealthCheck) *Controller {
	return &Controller{
		checks: checks,
	}
}

// Ping handles the HTTP GET request for health check endpoint.
func (con *Controller) Ping(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), healthCheckTimeout)
	defer cancel()

	for name, check := range con.checks {
		if err := check(ctx); err != nil {
			slog.Error("Health check failed", slog.String("dependency", name), slog.Any("err", err))
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"error":      "Service Unavailable",
				"dependency": name,
			})
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"message": "pong",
	})
}
