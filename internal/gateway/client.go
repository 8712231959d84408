package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"

	"degradation_monitor/internal/models"
)

// Operation names used in error messages.
const (
	opCategories     = "list categories"
	opRecords        = "list records"
	opResults        = "get results"
	opGetBaseline    = "get baseline"
	opSaveBaseline   = "save baseline"
	opDeleteBaseline = "delete baseline"
	opRunAnalysis    = "run analysis"
	opDashboard      = "dashboard summary"
)

type categoriesEnvelope struct {
	Categories []models.CategoryNode `json:"categories"`
}

type recordsEnvelope struct {
	Records []models.WorkRecord `json:"records"`
}

type dashboardEnvelope struct {
	Rows []models.DashboardRow `json:"rows"`
}

// Categories returns the category tree, optionally rooted at root.
func (c *Client) Categories(ctx context.Context, root models.CategoryID) ([]models.CategoryNode, error) {
	q := url.Values{}
	if root != models.NoCategory {
		q.Set("root", formatID(root))
	}
	var env categoriesEnvelope
	if err := c.doJSON(ctx, opCategories, http.MethodGet, "/categories", q, nil, &env); err != nil {
		return nil, err
	}
	return nonNil(env.Categories), nil
}

// Records returns the work records of a category ordered by recorded_at.
// Empty start/end leave the window open on that side.
func (c *Client) Records(ctx context.Context, id models.CategoryID, start, end models.Timestamp) ([]models.WorkRecord, error) {
	q := url.Values{}
	q.Set("category_id", formatID(id))
	if start != "" {
		q.Set("start", string(start))
	}
	if end != "" {
		q.Set("end", string(end))
	}
	var env recordsEnvelope
	if err := c.doJSON(ctx, opRecords, http.MethodGet, "/records", q, nil, &env); err != nil {
		return nil, err
	}
	return nonNil(env.Records), nil
}

// Results returns the latest trend and anomalies of a category.
func (c *Client) Results(ctx context.Context, id models.CategoryID) (models.AnalysisResult, error) {
	var res models.AnalysisResult
	if err := c.doJSON(ctx, opResults, http.MethodGet, "/results/"+formatID(id), nil, nil, &res); err != nil {
		return models.AnalysisResult{}, err
	}
	res.Anomalies = nonNil(res.Anomalies)
	return res, nil
}

// Baseline returns the persisted baseline definition. A 404 is reported as
// ErrNotFound so callers can tell it apart from transport failures.
func (c *Client) Baseline(ctx context.Context, id models.CategoryID) (models.BaselineDefinition, error) {
	var def models.BaselineDefinition
	err := c.doJSON(ctx, opGetBaseline, http.MethodGet, "/models/"+formatID(id), nil, nil, &def)
	if StatusCode(err) == http.StatusNotFound {
		return models.BaselineDefinition{}, fmt.Errorf("%s %d: %w", opGetBaseline, id, ErrNotFound)
	}
	if err != nil {
		return models.BaselineDefinition{}, err
	}
	def.ExcludedPoints = nonNil(def.ExcludedPoints)
	return def, nil
}

// SaveBaseline replaces the baseline definition of a category.
func (c *Client) SaveBaseline(ctx context.Context, id models.CategoryID, def models.BaselineDefinition) (models.SaveBaselineResponse, error) {
	def.ExcludedPoints = nonNil(def.ExcludedPoints)
	var resp models.SaveBaselineResponse
	if err := c.doJSON(ctx, opSaveBaseline, http.MethodPut, "/models/"+formatID(id), nil, def, &resp); err != nil {
		return models.SaveBaselineResponse{}, err
	}
	return resp, nil
}

// DeleteBaseline removes the baseline definition of a category.
func (c *Client) DeleteBaseline(ctx context.Context, id models.CategoryID) (models.DeleteBaselineResponse, error) {
	var resp models.DeleteBaselineResponse
	if err := c.doJSON(ctx, opDeleteBaseline, http.MethodDelete, "/models/"+formatID(id), nil, nil, &resp); err != nil {
		return models.DeleteBaselineResponse{}, err
	}
	return resp, nil
}

// RunAnalysis triggers a batch recompute across all categories.
func (c *Client) RunAnalysis(ctx context.Context) (models.RunAnalysisResponse, error) {
	var resp models.RunAnalysisResponse
	if err := c.doJSON(ctx, opRunAnalysis, http.MethodPost, "/analysis/run", nil, nil, &resp); err != nil {
		return models.RunAnalysisResponse{}, err
	}
	return resp, nil
}

// DashboardSummary returns the server-side joined per-leaf summary.
func (c *Client) DashboardSummary(ctx context.Context) ([]models.DashboardRow, error) {
	var env dashboardEnvelope
	if err := c.doJSON(ctx, opDashboard, http.MethodGet, "/dashboard/summary", nil, nil, &env); err != nil {
		return nil, err
	}
	return nonNil(env.Rows), nil
}

// doJSON performs one request, encoding body (when non-nil) and decoding a
// 2xx response into out. Non-2xx responses become *StatusError.
func (c *Client) doJSON(ctx context.Context, op, method, path string, q url.Values, body, out any) error {
	req, err := c.newRequest(ctx, method, path, q, body)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		c.logFailure(op, err)
		return fmt.Errorf("%s: %w", op, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		se := &StatusError{Op: op, StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(b))}
		if resp.StatusCode != http.StatusNotFound {
			c.logFailure(op, se)
		}
		return se
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode response: %w", op, err)
	}
	return nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body any) (*http.Request, error) {
	target := c.baseURL + path
	if len(q) > 0 {
		target += "?" + q.Encode()
	}
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rdr = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rdr)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return req, nil
}

func (c *Client) logFailure(op string, err error) {
	if c.log != nil {
		c.log.Warnw("gateway_request_failed", "op", op, "err", err)
	}
}

func formatID(id models.CategoryID) string {
	return strconv.FormatInt(int64(id), 10)
}

// nonNil turns a nil slice into an empty one so JSON consumers see [].
func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
