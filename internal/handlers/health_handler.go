package handlers

import (
	"net/http"

	"ticket-gate/utils"

	"github.com/pocketbase/pocketbase/core"
	"github.com/redis/go-redis/v9"
)

type HealthHandler struct {
	redis   *redis.Client
	breaker *utils.CircuitBreaker
}

// NewHealthHandler builds the health endpoint. redisClient may be nil when
// nothing in the deployment uses Redis.
func NewHealthHandler(redisClient *redis.Client, breaker *utils.CircuitBreaker) *HealthHandler {
	return &HealthHandler{redis: redisClient, breaker: breaker}
}

// Health - Report Redis reachability and the ticket store breaker state
func (h *HealthHandler) Health(e *core.RequestEvent) error {
	storeState := h.breaker.State()

	if h.redis != nil {
		if err := utils.RedisHealthCheck(h.redis); err != nil {
			return e.JSON(http.StatusServiceUnavailable, map[string]string{
				"status":       "unhealthy",
				"error":        err.Error(),
				"ticket_store": storeState.String(),
			})
		}
	}

	if storeState == utils.StateOpen {
		return e.JSON(http.StatusServiceUnavailable, map[string]string{
			"status":       "unhealthy",
			"ticket_store": storeState.String(),
		})
	}

	return e.JSON(http.StatusOK, map[string]string{
		"status":       "healthy",
		"ticket_store": storeState.String(),
	})
}
