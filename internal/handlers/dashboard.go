package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"degradation_monitor/internal/dashboard"
	"degradation_monitor/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	errDashboardRefresh = "failed to refresh dashboard"
	errAnalysisRun      = "failed to run analysis"
	errBaselineReset    = "failed to reset baseline"
	errAnalysisStatus   = "failed to load analysis status"
)

// VisibilityRequest reports whether the dashboard view is on screen.
type VisibilityRequest struct {
	Active *bool `json:"active" binding:"required" example:"true"`
}

// @Summary      Get dashboard
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  dashboard.Snapshot
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/dashboard [get]
// @Security     BearerAuth
func (h *Handler) getDashboard(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Dashboard.Snapshot())
}

// @Summary      Set dashboard visibility
// @Description  Activating a stale or never loaded view refreshes it before responding.
// @Tags         dashboard
// @Accept       json
// @Produce      json
// @Param        body  body      VisibilityRequest  true  "Visibility"
// @Success      200   {object}  dashboard.Snapshot
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      502   {object}  map[string]string
// @Router       /api/v1/dashboard/visibility [put]
// @Security     BearerAuth
func (h *Handler) setDashboardVisibility(c *gin.Context) {
	var req VisibilityRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if err := h.services.Dashboard.SetActive(c.Request.Context(), *req.Active); err != nil {
		h.logAndJSONError(c, http.StatusBadGateway, errDashboardRefresh, "dashboard_refresh_failed", err)
		return
	}
	c.JSON(http.StatusOK, h.services.Dashboard.Snapshot())
}

// @Summary      Run analysis
// @Description  Triggers batch analysis and reloads the dashboard. A failed reload still reports the run.
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "processed_categories, dashboard"
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/dashboard/analysis [post]
// @Security     BearerAuth
func (h *Handler) runAnalysis(c *gin.Context) {
	resp, err := h.services.Dashboard.RunAnalysis(c.Request.Context())
	if err != nil && !isRefreshError(err) {
		h.logAndJSONError(c, http.StatusBadGateway, errAnalysisRun, "analysis_run_failed", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"processed_categories": resp.ProcessedCategories,
		"dashboard":            h.services.Dashboard.Snapshot(),
	})
}

// @Summary      Reset baseline from the dashboard
// @Tags         dashboard
// @Produce      json
// @Param        id   path      int  true  "Category ID"
// @Success      200  {object}  dashboard.Snapshot
// @Failure      400  {object}  map[string]string
// @Failure      401  {object}  map[string]string
// @Failure      502  {object}  map[string]string
// @Router       /api/v1/dashboard/baseline/{id} [delete]
// @Security     BearerAuth
func (h *Handler) deleteDashboardBaseline(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidCategoryID})
		return
	}
	if err := h.services.Dashboard.DeleteBaseline(c.Request.Context(), models.CategoryID(id)); err != nil && !isRefreshError(err) {
		h.logAndJSONError(c, http.StatusBadGateway, errBaselineReset, "dashboard_baseline_reset_failed", err, "category_id", id)
		return
	}
	c.JSON(http.StatusOK, h.services.Dashboard.Snapshot())
}

// @Summary      Dismiss dashboard error
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  dashboard.Snapshot
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/dashboard/error [delete]
// @Security     BearerAuth
func (h *Handler) clearDashboardError(c *gin.Context) {
	h.services.Dashboard.ClearError()
	c.JSON(http.StatusOK, h.services.Dashboard.Snapshot())
}

// @Summary      Scheduled analysis status
// @Tags         dashboard
// @Produce      json
// @Success      200  {object}  models.AnalysisRunState
// @Failure      401  {object}  map[string]string
// @Failure      500  {object}  map[string]string
// @Router       /api/v1/analysis/status [get]
// @Security     BearerAuth
func (h *Handler) getAnalysisStatus(c *gin.Context) {
	st, err := h.services.Scheduler.Status(c.Request.Context())
	if err != nil {
		h.logAndJSONError(c, http.StatusInternalServerError, errAnalysisStatus, "analysis_status_failed", err)
		return
	}
	c.JSON(http.StatusOK, st)
}

func isRefreshError(err error) bool {
	var re *dashboard.RefreshError
	return errors.As(err, &re)
}
