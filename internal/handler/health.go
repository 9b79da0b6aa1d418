package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

// Pinger is satisfied by *pgxpool.Pool and lock.RedisLocker.
type Pinger interface {
	Ping(ctx context.Context) error
}

type dependency struct {
	name string
	p    Pinger
}

type HealthHandler struct {
	db   Pinger
	deps []dependency
}

func NewHealthHandler(db Pinger) *HealthHandler {
	return &HealthHandler{db: db}
}

// WithDependency adds an optional backend to the report. A failing
// dependency marks the service unhealthy just like the database.
func (h *HealthHandler) WithDependency(name string, p Pinger) *HealthHandler {
	h.deps = append(h.deps, dependency{name: name, p: p})
	return h
}

func (h *HealthHandler) Health(c *gin.Context) {
	ctx := c.Request.Context()
	resp := gin.H{"database": "connected"}
	healthy := true

	if h.db == nil || h.db.Ping(ctx) != nil {
		resp["database"] = "disconnected"
		healthy = false
	}
	for _, d := range h.deps {
		if err := d.p.Ping(ctx); err != nil {
			log.Warn().Err(err).Str("dependency", d.name).Msg("health check failed")
			resp[d.name] = "disconnected"
			healthy = false
			continue
		}
		resp[d.name] = "connected"
	}

	if !healthy {
		resp["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, resp)
		return
	}
	resp["status"] = "healthy"
	c.JSON(http.StatusOK, resp)
}
