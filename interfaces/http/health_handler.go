package http

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"social-publisher/domain/repository"
	"social-publisher/infrastructure/breaker"
)

type IHealthHandler interface {
	Health(ctx *gin.Context)
	Breakers(ctx *gin.Context)
}

type healthHandler struct {
	queue    repository.IJobQueue
	breakers *breaker.Registry
}

func NewHealthHandler(queue repository.IJobQueue, breakers *breaker.Registry) IHealthHandler {
	return &healthHandler{queue: queue, breakers: breakers}
}

func (h *healthHandler) Health(c *gin.Context) {
	size, err := h.queue.Size(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "error": "queue unreachable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "queue_depth": size})
}

// Breakers exposes circuit state per platform for operator dashboards.
func (h *healthHandler) Breakers(c *gin.Context) {
	out := gin.H{}
	for _, key := range h.breakers.Keys() {
		m := h.breakers.Metrics(key)
		out[key] = gin.H{
			"state":          m.State,
			"failure_count":  m.FailureCount,
			"success_count":  m.SuccessCount,
			"rejected_count": m.RejectedCount,
		}
	}
	c.JSON(http.StatusOK, out)
}
