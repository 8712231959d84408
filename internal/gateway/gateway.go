// Package gateway is the typed client of the external analysis API: category
// tree, records, analysis results, baseline definition CRUD, the batch
// analysis trigger, the dashboard summary and the server-push channel.
package gateway

import (
	"context"
	"net/http"
	"strings"
	"time"

	"degradation_monitor/internal/logger"
	"degradation_monitor/internal/models"
)

// Gateway is the full contract of the analysis API as seen by the console.
type Gateway interface {
	Categories(ctx context.Context, root models.CategoryID) ([]models.CategoryNode, error)
	Records(ctx context.Context, id models.CategoryID, start, end models.Timestamp) ([]models.WorkRecord, error)
	Results(ctx context.Context, id models.CategoryID) (models.AnalysisResult, error)
	Baseline(ctx context.Context, id models.CategoryID) (models.BaselineDefinition, error)
	SaveBaseline(ctx context.Context, id models.CategoryID, def models.BaselineDefinition) (models.SaveBaselineResponse, error)
	DeleteBaseline(ctx context.Context, id models.CategoryID) (models.DeleteBaselineResponse, error)
	RunAnalysis(ctx context.Context) (models.RunAnalysisResponse, error)
	DashboardSummary(ctx context.Context) ([]models.DashboardRow, error)
	Subscribe(ctx context.Context) (<-chan models.PushEvent, error)
	Follow(ctx context.Context) <-chan models.PushEvent
}

// DefaultTimeout bounds every non-streaming request.
const DefaultTimeout = 30 * time.Second

// Client talks to the analysis API over HTTP.
type Client struct {
	baseURL string
	http    *http.Client // bounded by a timeout, used for REST calls
	stream  *http.Client // no overall timeout, used for the SSE channel
	log     *logger.Logger

	reconnect reconnectPolicy
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the REST client. The streaming client reuses its transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
		c.stream = &http.Client{Transport: hc.Transport}
	}
}

// WithLogger attaches a logger for transport diagnostics.
func WithLogger(log *logger.Logger) Option {
	return func(c *Client) { c.log = log }
}

// WithReconnect tunes the push channel's reconnect backoff.
func WithReconnect(initial, max time.Duration) Option {
	return func(c *Client) {
		c.reconnect = reconnectPolicy{initial: initial, max: max}
	}
}

// NewClient builds a Client for baseURL (e.g. "http://localhost:8000/api").
func NewClient(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL:   strings.TrimRight(baseURL, "/"),
		http:      &http.Client{Timeout: timeout},
		stream:    &http.Client{},
		reconnect: defaultReconnect,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

var _ Gateway = (*Client)(nil)
