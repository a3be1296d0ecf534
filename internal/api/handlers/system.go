package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/joywufn/portfolio-insight/backend/internal/realtime/cache"
	"github.com/joywufn/portfolio-insight/backend/pkg/database"
	"github.com/joywufn/portfolio-insight/backend/pkg/logger"
)

// HealthChecker reports database health
type HealthChecker interface {
	HealthCheck(ctx context.Context) (*database.HealthStatus, error)
}

// Pinger reports connectivity of an optional dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// StatsSource reports realtime price cache statistics
type StatsSource interface {
	Stats() cache.CacheStats
}

// ClientCounter reports connected WebSocket clients
type ClientCounter interface {
	Clients() int
}

// SystemHandler serves health and status endpoints
type SystemHandler struct {
	db      HealthChecker
	redis   Pinger
	prices  StatsSource
	hub     ClientCounter
	version string
	started time.Time
	logger  *logger.Logger
}

// NewSystemHandler creates a new system handler; every dependency may be nil
func NewSystemHandler(db HealthChecker, redis Pinger, prices StatsSource, hub ClientCounter, version string, log *logger.Logger) *SystemHandler {
	return &SystemHandler{
		db:      db,
		redis:   redis,
		prices:  prices,
		hub:     hub,
		version: version,
		started: time.Now(),
		logger:  log.WithComponent("system_api"),
	}
}

// Health is a liveness probe
// GET /health
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "ok",
		"version": h.version,
	})
}

// Status is the body of GET /api/status
type Status struct {
	Healthy   bool                   `json:"healthy"`
	Version   string                 `json:"version"`
	Uptime    string                 `json:"uptime"`
	Database  *database.HealthStatus `json:"database,omitempty"`
	Redis     string                 `json:"redis"`
	Prices    *cache.CacheStats      `json:"prices,omitempty"`
	WSClients int                    `json:"ws_clients"`
}

// GetStatus reports dependency health; 503 when the database is down
// GET /api/status/
func (h *SystemHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	status := Status{
		Healthy: true,
		Version: h.version,
		Uptime:  time.Since(h.started).Round(time.Second).String(),
		Redis:   "disabled",
	}

	if h.db != nil {
		health, err := h.db.HealthCheck(ctx)
		status.Database = health
		if err != nil {
			h.logger.WithError(err).Warn("Database health check failed")
			status.Healthy = false
		}
	}

	if h.redis != nil {
		if err := h.redis.Ping(ctx); err != nil {
			h.logger.WithError(err).Warn("Redis ping failed")
			status.Redis = "unavailable"
		} else {
			status.Redis = "ok"
		}
	}

	if h.prices != nil {
		stats := h.prices.Stats()
		status.Prices = &stats
	}
	if h.hub != nil {
		status.WSClients = h.hub.Clients()
	}

	code := http.StatusOK
	if !status.Healthy {
		code = http.StatusServiceUnavailable
	}
	respondJSON(w, code, Envelope{Success: status.Healthy, Data: status, Timestamp: time.Now()})
}
