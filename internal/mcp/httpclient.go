package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/juanrdzmb/fitsmartv3/internal/models"
	"github.com/juanrdzmb/fitsmartv3/internal/storage"
)

// HTTPClient implements RunSource by calling the FitSmart REST API.
// Used for remote MCP mode where the binary runs locally (stdio) but
// the run log lives on the server.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
}

// Compile-time check: HTTPClient satisfies RunSource.
var _ RunSource = (*HTTPClient)(nil)

// NewHTTPClient creates an HTTPClient targeting the given base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *HTTPClient) get(ctx context.Context, path string, params url.Values) ([]byte, error) {
	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("httpclient: create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("httpclient: %s: %w", path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("httpclient: read body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("httpclient: %s returned %d: %s", path, resp.StatusCode, body)
	}

	return body, nil
}

// RunQueryParams encodes q the way the REST API reads it.
func RunQueryParams(q models.StageRunQuery) url.Values {
	v := url.Values{}
	if q.SessionID != "" {
		v.Set("session_id", q.SessionID)
	}
	if q.Stage != "" {
		v.Set("stage", q.Stage)
	}
	if q.Status != "" {
		v.Set("status", string(q.Status))
	}
	if q.Limit > 0 {
		v.Set("limit", strconv.Itoa(q.Limit))
	}
	return v
}

func (c *HTTPClient) QueryStageRuns(ctx context.Context, q models.StageRunQuery) ([]models.StageRun, error) {
	body, err := c.get(ctx, "/api/v1/runs", RunQueryParams(q))
	if err != nil {
		return nil, err
	}

	var runs []models.StageRun
	if err := json.Unmarshal(body, &runs); err != nil {
		return nil, fmt.Errorf("httpclient: decode stage runs: %w", err)
	}
	return runs, nil
}

func (c *HTTPClient) GetStageStats(ctx context.Context) ([]storage.StageStat, error) {
	body, err := c.get(ctx, "/api/v1/runs/stats", nil)
	if err != nil {
		return nil, err
	}

	var stats []storage.StageStat
	if err := json.Unmarshal(body, &stats); err != nil {
		return nil, fmt.Errorf("httpclient: decode stage stats: %w", err)
	}
	return stats, nil
}
