package handlers

import (
	"net/http"

	"degradation_monitor/internal/models"

	"github.com/gin-gonic/gin"
)

// LoadCategoryRequest selects the category to configure. Zero clears the session.
type LoadCategoryRequest struct {
	CategoryID *models.CategoryID `json:"category_id" binding:"required" example:"12"`
}

// RangeRequest is a candidate baseline period; both ends inclusive.
type RangeRequest struct {
	Start models.Timestamp `json:"start" binding:"required" example:"2024-01-01T00:00:00"`
	End   models.Timestamp `json:"end" binding:"required" example:"2024-01-31T00:00:00"`
}

// SensitivityRequest sets the sensitivity slider. Out-of-bounds values are clamped.
type SensitivityRequest struct {
	Sensitivity *float64 `json:"sensitivity" binding:"required" example:"0.5"`
}

// ToggleExclusionRequest flips one record index in the exclusion set.
type ToggleExclusionRequest struct {
	Index *int `json:"index" binding:"required" example:"3"`
}

// InteractionModeRequest selects how chart gestures are interpreted.
type InteractionModeRequest struct {
	Mode models.InteractionMode `json:"mode" binding:"required" example:"select"`
}

// @Summary      Get session state
// @Tags         session
// @Produce      json
// @Success      200  {object}  session.State
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/session [get]
// @Security     BearerAuth
func (h *Handler) getSession(c *gin.Context) {
	c.JSON(http.StatusOK, h.services.Session.Snapshot())
}

// @Summary      Load category
// @Description  Starts loading records, results and the baseline of a category. category_id 0 clears the session.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      LoadCategoryRequest  true  "Category"
// @Success      200   {object}  session.State
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      503   {object}  map[string]string
// @Router       /api/v1/session/load [post]
// @Security     BearerAuth
func (h *Handler) loadCategory(c *gin.Context) {
	var req LoadCategoryRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if *req.CategoryID < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidCategoryID})
		return
	}
	st, err := h.services.Session.Load(c.Request.Context(), *req.CategoryID)
	h.respondSession(c, st, err, "session_load_failed")
}

// @Summary      Set baseline range
// @Description  Only applies while the category is unconfigured. An invalid range leaves the state unchanged.
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      RangeRequest  true  "Range"
// @Success      200   {object}  session.State
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/session/range [put]
// @Security     BearerAuth
func (h *Handler) setRange(c *gin.Context) {
	var req RangeRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	st, err := h.services.Session.SetRange(c.Request.Context(), models.Range{Start: req.Start, End: req.End})
	h.respondSession(c, st, err, "session_set_range_failed")
}

// @Summary      Set sensitivity
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      SensitivityRequest  true  "Sensitivity"
// @Success      200   {object}  session.State
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/session/sensitivity [put]
// @Security     BearerAuth
func (h *Handler) setSensitivity(c *gin.Context) {
	var req SensitivityRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	st, err := h.services.Session.SetSensitivity(c.Request.Context(), *req.Sensitivity)
	h.respondSession(c, st, err, "session_set_sensitivity_failed")
}

// @Summary      Toggle point exclusion
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      ToggleExclusionRequest  true  "Record index"
// @Success      200   {object}  session.State
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/session/exclusions/toggle [post]
// @Security     BearerAuth
func (h *Handler) toggleExclude(c *gin.Context) {
	var req ToggleExclusionRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	st, err := h.services.Session.ToggleExclude(c.Request.Context(), *req.Index)
	h.respondSession(c, st, err, "session_toggle_exclude_failed")
}

// @Summary      Set interaction mode
// @Tags         session
// @Accept       json
// @Produce      json
// @Param        body  body      InteractionModeRequest  true  "Mode"
// @Success      200   {object}  session.State
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Router       /api/v1/session/mode [put]
// @Security     BearerAuth
func (h *Handler) setInteractionMode(c *gin.Context) {
	var req InteractionModeRequest
	if ok := h.bindJSONOrBadRequest(c, &req); !ok {
		return
	}
	if !req.Mode.Valid() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "mode must be select or operate"})
		return
	}
	st, err := h.services.Session.SetInteractionMode(c.Request.Context(), req.Mode)
	h.respondSession(c, st, err, "session_set_mode_failed")
}

// @Summary      Save baseline
// @Description  Persists range, sensitivity and exclusions. The save completes asynchronously; follow /ws or poll GET /session.
// @Tags         session
// @Produce      json
// @Success      200  {object}  session.State
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/session/baseline [post]
// @Security     BearerAuth
func (h *Handler) saveBaseline(c *gin.Context) {
	st, err := h.services.Session.Save(c.Request.Context())
	h.respondSession(c, st, err, "session_save_failed")
}

// @Summary      Reset baseline
// @Tags         session
// @Produce      json
// @Success      200  {object}  session.State
// @Failure      401  {object}  map[string]string
// @Failure      503  {object}  map[string]string
// @Router       /api/v1/session/baseline [delete]
// @Security     BearerAuth
func (h *Handler) deleteBaseline(c *gin.Context) {
	st, err := h.services.Session.Delete(c.Request.Context())
	h.respondSession(c, st, err, "session_delete_failed")
}

// @Summary      Dismiss session error
// @Tags         session
// @Produce      json
// @Success      200  {object}  session.State
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/session/error [delete]
// @Security     BearerAuth
func (h *Handler) clearSessionError(c *gin.Context) {
	st, err := h.services.Session.ClearError(c.Request.Context())
	h.respondSession(c, st, err, "session_clear_error_failed")
}

// @Summary      Highlighted anomalies
// @Description  Anomalies whose score is at least 1 - sensitivity.
// @Tags         session
// @Produce      json
// @Success      200  {object}  map[string]interface{}  "sensitivity, count, anomalies"
// @Failure      401  {object}  map[string]string
// @Router       /api/v1/session/anomalies/highlighted [get]
// @Security     BearerAuth
func (h *Handler) getHighlighted(c *gin.Context) {
	st := h.services.Session.Snapshot()
	highlighted := st.Highlighted()
	c.JSON(http.StatusOK, gin.H{
		"category_id": st.CategoryID,
		"sensitivity": st.Sensitivity,
		"count":       len(highlighted),
		"anomalies":   highlighted,
	})
}
