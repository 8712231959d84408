package handlers

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"degradation_monitor/internal/models"
	"degradation_monitor/internal/service"

	"github.com/gin-gonic/gin"
)

const (
	errFromInvalid     = "invalid 'from' time; use RFC3339 or YYYY-MM-DD"
	errToInvalid       = "invalid 'to' time; use RFC3339 or YYYY-MM-DD"
	errCategoryInvalid = "invalid 'category_id'; use a positive integer"
	errOperatorInvalid = "invalid 'operator_id'; use a positive integer"
	errLimitInvalid    = "invalid 'limit'; use a non-negative integer"
	errListAudit       = "failed to load audit log"

	layoutDateTime = "2006-01-02 15:04:05"
	layoutDate     = "2006-01-02"
)

// isDateOnly reports whether the query string represents a date without time component.
func isDateOnly(s string) bool {
	return !strings.ContainsAny(s, "T ")
}

// @Summary      List audit events
// @Description  Filter by date (RFC3339, 'YYYY-MM-DD HH:MM:SS', or 'YYYY-MM-DD'). If 'to' is date-only, it is treated as end-of-day inclusive.
// @Tags         audit
// @Produce      json
// @Param        from         query   string  false  "Start of range"  example(2025-08-01)
// @Param        to           query   string  false  "End of range. Date-only treated as end of day."  example(2025-08-31)
// @Param        type         query   string  false  "Event type"  Enums(BASELINE_SAVED,BASELINE_DELETED,ANALYSIS_RUN)
// @Param        category_id  query   int     false  "Category ID"
// @Param        operator_id  query   int     false  "Operator who made the change"
// @Param        limit        query   int     false  "Max events (default 100, max 1000)"
// @Success      200   {object}  map[string]interface{}  "count, events"
// @Failure      400   {object}  map[string]string
// @Failure      401   {object}  map[string]string
// @Failure      500   {object}  map[string]string
// @Router       /api/v1/audit [get]
// @Security     BearerAuth
func (h *Handler) getAudit(c *gin.Context) {
	f := service.AuditFilter{Type: c.Query("type")}
	var err error
	if qs := c.Query("from"); qs != "" {
		if f.From, err = parseQueryTime(qs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errFromInvalid})
			return
		}
	}
	if qs := c.Query("to"); qs != "" {
		if f.To, err = parseQueryTime(qs); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errToInvalid})
			return
		}
		if isDateOnly(qs) {
			f.To = f.To.Add(24*time.Hour - time.Nanosecond).UTC()
		}
	}
	if qs := c.Query("category_id"); qs != "" {
		id, err := strconv.ParseInt(qs, 10, 64)
		if err != nil || id <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errCategoryInvalid})
			return
		}
		f.CategoryID = models.CategoryID(id)
	}
	if qs := c.Query("operator_id"); qs != "" {
		if f.OperatorID, err = strconv.Atoi(qs); err != nil || f.OperatorID <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errOperatorInvalid})
			return
		}
	}
	if qs := c.Query("limit"); qs != "" {
		if f.Limit, err = strconv.Atoi(qs); err != nil || f.Limit < 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": errLimitInvalid})
			return
		}
	}

	events, err := h.services.AuditLog.List(c.Request.Context(), f)
	if err != nil {
		if errors.Is(err, service.ErrInvalidFilter) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.logAndJSONError(c, http.StatusInternalServerError, errListAudit, "audit_list_failed", err,
			"from", f.From, "to", f.To, "type", f.Type, "category_id", f.CategoryID, "operator_id", f.OperatorID)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"count":  len(events),
		"events": events,
	})
}

func parseQueryTime(s string) (time.Time, error) {
	for _, layout := range []string{time.RFC3339, layoutDateTime, layoutDate} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf(
		"invalid time format %q, expected one of: "+
			"RFC3339 (e.g. 2025-08-27T15:04:05Z), "+
			"'YYYY-MM-DD HH:MM:SS', "+
			"'YYYY-MM-DD'",
		s,
	)
}
