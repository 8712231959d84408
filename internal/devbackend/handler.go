package devbackend

import (
	"io"
	"net/http"
	"strconv"
	"time"

	"degradation_monitor/internal/logger"
	"degradation_monitor/internal/models"

	"github.com/gin-gonic/gin"
)

const (
	defaultKeepAlive = 15 * time.Second

	errInvalidCategoryID = "invalid category id"
	errBaselineNotFound  = "baseline definition not found"
)

// Backend serves the analysis API contract from an in-memory Store.
type Backend struct {
	store     *Store
	bus       *EventBus
	log       *logger.Logger
	keepAlive time.Duration
}

func New(store *Store, bus *EventBus, log *logger.Logger) *Backend {
	return &Backend{store: store, bus: bus, log: log, keepAlive: defaultKeepAlive}
}

// Bus exposes the backend's event bus.
func (b *Backend) Bus() *EventBus { return b.bus }

// Store exposes the backend's state.
func (b *Backend) Store() *Store { return b.store }

// Routes builds the gin router for the API under /api.
func (b *Backend) Routes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	api := router.Group("/api")
	{
		api.GET("/health", func(c *gin.Context) { c.JSON(http.StatusOK, gin.H{"status": "ok"}) })
		api.GET("/categories", b.getCategories)
		api.GET("/records", b.getRecords)
		api.GET("/results/:id", b.getResults)
		api.GET("/models/:id", b.getBaseline)
		api.PUT("/models/:id", b.putBaseline)
		api.DELETE("/models/:id", b.deleteBaseline)
		api.POST("/analysis/run", b.runAnalysis)
		api.GET("/dashboard/summary", b.dashboardSummary)
		api.GET("/events", b.events)
	}
	return router
}

func (b *Backend) getCategories(c *gin.Context) {
	var root models.CategoryID
	if qs := c.Query("root"); qs != "" {
		id, err := parseID(qs)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidCategoryID})
			return
		}
		root = id
	}
	nodes, ok := b.store.Tree(root)
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "category not found"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"categories": nodes})
}

func (b *Backend) getRecords(c *gin.Context) {
	id, err := parseID(c.Query("category_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidCategoryID})
		return
	}
	recs := b.store.Records(id, models.Timestamp(c.Query("start")), models.Timestamp(c.Query("end")))
	c.JSON(http.StatusOK, gin.H{"records": recs})
}

func (b *Backend) getResults(c *gin.Context) {
	id, ok := b.pathID(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, b.store.Results(id))
}

func (b *Backend) getBaseline(c *gin.Context) {
	id, ok := b.pathID(c)
	if !ok {
		return
	}
	def, found := b.store.Baseline(id)
	if !found {
		c.JSON(http.StatusNotFound, gin.H{"error": errBaselineNotFound})
		return
	}
	c.JSON(http.StatusOK, def)
}

func (b *Backend) putBaseline(c *gin.Context) {
	id, ok := b.pathID(c)
	if !ok {
		return
	}
	var def models.BaselineDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid body: " + err.Error()})
		return
	}
	if def.Start == "" || def.End == "" || def.Start > def.End {
		c.JSON(http.StatusBadRequest, gin.H{"error": "baseline_start must be <= baseline_end"})
		return
	}
	if def.Sensitivity < 0 || def.Sensitivity > 1 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "sensitivity must be within [0, 1]"})
		return
	}
	b.store.SaveBaseline(id, def)
	b.notify("baseline_saved", id)
	c.JSON(http.StatusOK, models.SaveBaselineResponse{Retrained: true})
}

func (b *Backend) deleteBaseline(c *gin.Context) {
	id, ok := b.pathID(c)
	if !ok {
		return
	}
	deleted := b.store.DeleteBaseline(id)
	b.notify("baseline_deleted", id)
	c.JSON(http.StatusOK, models.DeleteBaselineResponse{Deleted: deleted})
}

func (b *Backend) runAnalysis(c *gin.Context) {
	n := b.store.RunAnalysis()
	b.notify("analysis_run", models.NoCategory)
	c.JSON(http.StatusOK, models.RunAnalysisResponse{ProcessedCategories: n})
}

func (b *Backend) dashboardSummary(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"rows": b.store.DashboardRows()})
}

// events streams bus notifications as SSE until the client disconnects.
func (b *Backend) events(c *gin.Context) {
	ch, cancel := b.bus.Subscribe()
	defer cancel()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Status(http.StatusOK)
	c.Writer.Flush()

	keepAlive := time.NewTicker(b.keepAlive)
	defer keepAlive.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-c.Request.Context().Done():
			return false
		case ev, ok := <-ch:
			if !ok {
				return false
			}
			c.SSEvent(ev.Name, ev.Data)
			return true
		case <-keepAlive.C:
			_, err := io.WriteString(w, ": keep-alive\n\n")
			return err == nil
		}
	})
}

// notify publishes a dashboard-updated event for a state change.
func (b *Backend) notify(reason string, id models.CategoryID) {
	if b.log != nil {
		b.log.Debugw("devbackend_state_changed", "reason", reason, "category_id", id)
	}
	b.bus.Publish(models.PushEventDashboardUpdated, "")
}

func (b *Backend) pathID(c *gin.Context) (models.CategoryID, bool) {
	id, err := parseID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": errInvalidCategoryID})
		return 0, false
	}
	return id, true
}

func parseID(s string) (models.CategoryID, error) {
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil || v <= 0 {
		return 0, strconv.ErrSyntax
	}
	return models.CategoryID(v), nil
}
