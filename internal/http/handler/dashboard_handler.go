package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/salesflow/salesflow-api/internal/service"
	"go.uber.org/zap"
)

type DashboardHandler struct {
	dashboardService *service.DashboardService
	logger           *zap.Logger
}

func NewDashboardHandler(dashboardService *service.DashboardService, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		logger:           logger,
	}
}

// Overview godoc
// @Summary Get dashboard overview
// @Description Backend dashboard payload, passed through unchanged
// @Tags Dashboard
// @Produce json
// @Success 200 {object} object
// @Security BearerAuth
// @Router /dashboard [get]
func (h *DashboardHandler) Overview(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboardService.Overview(r.Context())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondRawJSON(w, data)
}

// Report godoc
// @Summary Get report
// @Description Named backend report; query parameters are forwarded
// @Tags Dashboard
// @Produce json
// @Param name path string true "Report name"
// @Success 200 {object} object
// @Failure 400 {object} domain.APIError
// @Security BearerAuth
// @Router /reports/{name} [get]
func (h *DashboardHandler) Report(w http.ResponseWriter, r *http.Request) {
	data, err := h.dashboardService.Report(r.Context(), chi.URLParam(r, "name"), r.URL.Query())
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}
	respondRawJSON(w, data)
}
