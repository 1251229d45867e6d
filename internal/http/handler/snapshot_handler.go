package handler

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/salesflow/salesflow-api/internal/domain"
	"github.com/salesflow/salesflow-api/internal/service"
	"go.uber.org/zap"
)

// SnapshotHandler serves pipeline snapshots and their exported reports
type SnapshotHandler struct {
	snapshotService *service.SnapshotService
	logger          *zap.Logger
}

// NewSnapshotHandler creates a new snapshot handler
func NewSnapshotHandler(snapshotService *service.SnapshotService, logger *zap.Logger) *SnapshotHandler {
	return &SnapshotHandler{
		snapshotService: snapshotService,
		logger:          logger,
	}
}

// Capture godoc
// @Summary Capture pipeline snapshot
// @Description Computes current pipeline metrics, stores them and exports a JSON report. Privileged roles only.
// @Tags Pipeline
// @Produce json
// @Success 201 {object} domain.PipelineSnapshotDTO
// @Failure 403 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/snapshots [post]
func (h *SnapshotHandler) Capture(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.snapshotService.Capture(r.Context(), domain.SnapshotTriggerManual)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, snapshot)
}

// List godoc
// @Summary List pipeline snapshots
// @Tags Pipeline
// @Produce json
// @Param page query int false "Page number" default(1)
// @Param pageSize query int false "Items per page (max 200)" default(20)
// @Param since query string false "Captured at or after (RFC3339 or YYYY-MM-DD)"
// @Param until query string false "Captured before (RFC3339 or YYYY-MM-DD)"
// @Success 200 {object} domain.Page[domain.PipelineSnapshotDTO]
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/snapshots [get]
func (h *SnapshotHandler) List(w http.ResponseWriter, r *http.Request) {
	since, err := parseTimeParam(r, "since")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	until, err := parseTimeParam(r, "until")
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	pageSize, _ := strconv.Atoi(r.URL.Query().Get("pageSize"))

	result, err := h.snapshotService.List(r.Context(), since, until, page, pageSize)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, result)
}

// Latest godoc
// @Summary Get latest pipeline snapshot
// @Tags Pipeline
// @Produce json
// @Success 200 {object} domain.PipelineSnapshotDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/snapshots/latest [get]
func (h *SnapshotHandler) Latest(w http.ResponseWriter, r *http.Request) {
	snapshot, err := h.snapshotService.Latest(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// GetByID godoc
// @Summary Get pipeline snapshot
// @Tags Pipeline
// @Produce json
// @Param id path string true "Snapshot ID"
// @Success 200 {object} domain.PipelineSnapshotDTO
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/snapshots/{id} [get]
func (h *SnapshotHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	snapshot, err := h.snapshotService.GetByID(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, snapshot)
}

// Report godoc
// @Summary Download pipeline report
// @Description Streams the JSON report exported for a snapshot
// @Tags Pipeline
// @Produce json
// @Param id path string true "Snapshot ID"
// @Success 200 {file} file
// @Failure 404 {object} domain.APIError
// @Security BearerAuth
// @Router /pipeline/snapshots/{id}/report [get]
func (h *SnapshotHandler) Report(w http.ResponseWriter, r *http.Request) {
	id, ok := parseID(w, r)
	if !ok {
		return
	}
	report, err := h.snapshotService.Report(r.Context(), id)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	defer report.Close()

	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="pipeline-%s.json"`, id))
	w.WriteHeader(http.StatusOK)
	if _, err := io.Copy(w, report); err != nil {
		h.logger.Warn("failed to stream pipeline report",
			zap.String("snapshot_id", id.String()),
			zap.Error(err))
	}
}

// parseTimeParam reads an optional RFC3339 or YYYY-MM-DD query parameter
func parseTimeParam(r *http.Request, name string) (*time.Time, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return nil, nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return &t, nil
	}
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return &t, nil
	}
	return nil, fmt.Errorf("invalid %s: use RFC3339 or YYYY-MM-DD", name)
}
