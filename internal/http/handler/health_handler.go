package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/salesflow/salesflow-api/internal/database"
	"github.com/salesflow/salesflow-api/internal/jobs"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const healthCheckTimeout = 5 * time.Second

// Pinger probes an upstream dependency
type Pinger interface {
	Ping(ctx context.Context) error
}

// JobReporter lists scheduled jobs and their last outcome
type JobReporter interface {
	Status() []jobs.JobStatus
}

// HealthHandler serves liveness and readiness probes
type HealthHandler struct {
	db      *gorm.DB
	backend Pinger
	jobs    JobReporter
	logger  *zap.Logger
}

// NewHealthHandler creates a new health handler. backend may be nil.
func NewHealthHandler(db *gorm.DB, backend Pinger, logger *zap.Logger) *HealthHandler {
	return &HealthHandler{db: db, backend: backend, logger: logger}
}

// WithJobs adds the scheduled jobs to the readiness report. Call before serving.
func (h *HealthHandler) WithJobs(reporter JobReporter) *HealthHandler {
	h.jobs = reporter
	return h
}

// Live godoc
// @Summary Liveness probe
// @Tags Health
// @Produce plain
// @Success 200 {string} string "OK"
// @Router /health [get]
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

// Database godoc
// @Summary Database health
// @Description Pings the local database and reports pool statistics
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/db [get]
func (h *HealthHandler) Database(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	stats, err := database.HealthCheckWithStats(ctx, h.db)
	if err != nil {
		h.logger.Error("database health check failed", zap.Error(err))
		respondJSON(w, http.StatusServiceUnavailable, map[string]interface{}{
			"status":  "unhealthy",
			"error":   err.Error(),
			"service": "database",
		})
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "healthy",
		"service": "database",
		"stats": map[string]interface{}{
			"max_open_connections": stats.MaxOpenConnections,
			"open_connections":     stats.OpenConnections,
			"in_use":               stats.InUse,
			"idle":                 stats.Idle,
			"wait_count":           stats.WaitCount,
			"wait_duration_ms":     stats.WaitDuration.Milliseconds(),
		},
	})
}

// Ready godoc
// @Summary Readiness probe
// @Description Checks the local database and the CRM backend, and lists scheduled jobs.
// @Description A failed job run is reported but does not fail readiness.
// @Tags Health
// @Produce json
// @Success 200 {object} map[string]interface{}
// @Failure 503 {object} map[string]interface{}
// @Router /health/ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	checks := make(map[string]interface{})
	allHealthy := true

	if err := database.Ping(ctx, h.db); err != nil {
		h.logger.Error("database health check failed", zap.Error(err))
		checks["database"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
		allHealthy = false
	} else {
		checks["database"] = map[string]interface{}{"status": "healthy"}
	}

	if h.backend != nil {
		if err := h.backend.Ping(ctx); err != nil {
			h.logger.Warn("backend health check failed", zap.Error(err))
			checks["backend"] = map[string]interface{}{"status": "unhealthy", "error": err.Error()}
			allHealthy = false
		} else {
			checks["backend"] = map[string]interface{}{"status": "healthy"}
		}
	}

	status, code := "healthy", http.StatusOK
	if !allHealthy {
		status, code = "unhealthy", http.StatusServiceUnavailable
	}
	body := map[string]interface{}{
		"status": status,
		"checks": checks,
	}
	if h.jobs != nil {
		body["jobs"] = h.jobs.Status()
	}
	respondJSON(w, code, body)
}
