package sdk

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

const defaultTimeout = 2 * time.Minute

// Client calls the skylens HTTP API.
type Client struct {
	baseURL string
	apiKey  string
	httpc   *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the bearer token sent with every request.
func WithAPIKey(key string) Option {
	return func(c *Client) { c.apiKey = key }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpc *http.Client) Option {
	return func(c *Client) { c.httpc = httpc }
}

// New creates a client for the API at baseURL (e.g. "http://localhost:8080").
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: baseURL,
		httpc:   &http.Client{Timeout: defaultTimeout},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// APIError is a non-2xx response from the API.
type APIError struct {
	StatusCode int
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("skylens: %s (%s, http %d)", e.Message, e.Code, e.StatusCode)
}

// Clusters runs semantic clustering over the selected telemetry slice.
// The API always answers 200 with a structurally valid result; inspect
// Error/Message on the result for degraded runs.
func (c *Client) Clusters(ctx context.Context, req ClustersRequest) (ClusteringResult, error) {
	var out ClusteringResult
	err := c.post(ctx, "/v1/insights/clusters", req, &out)
	return out, err
}

// Anomalies flags intervals whose record counts deviate beyond the z-score
// threshold.
func (c *Client) Anomalies(ctx context.Context, req SeriesRequest) (AnomalyReport, error) {
	var out AnomalyReport
	err := c.post(ctx, "/v1/insights/anomalies", req, &out)
	return out, err
}

// Trends classifies the direction of the record-count series.
func (c *Client) Trends(ctx context.Context, req SeriesRequest) (TrendReport, error) {
	var out TrendReport
	err := c.post(ctx, "/v1/insights/trends", req, &out)
	return out, err
}

// Forecast projects the record-count series ahead of the observed window.
func (c *Client) Forecast(ctx context.Context, req SeriesRequest) (ForecastReport, error) {
	var out ForecastReport
	err := c.post(ctx, "/v1/insights/forecast", req, &out)
	return out, err
}

// RecordsCount counts records matching the query.
func (c *Client) RecordsCount(ctx context.Context, q CountQuery) (int, error) {
	values := url.Values{}
	setIf := func(name, v string) {
		if v != "" {
			values.Set(name, v)
		}
	}
	setIf("kind", q.Kind)
	setIf("service", q.Service)
	setIf("operation", q.Operation)
	setIf("status", q.Status)
	setIf("severity", q.Severity)
	if !q.From.IsZero() {
		values.Set("from", q.From.Format(time.RFC3339))
	}
	if !q.Until.IsZero() {
		values.Set("until", q.Until.Format(time.RFC3339))
	}

	path := "/v1/records/count"
	if len(values) > 0 {
		path += "?" + values.Encode()
	}

	var out struct {
		Count int `json:"count"`
	}
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return 0, err
	}
	return out.Count, nil
}

// Health reports component availability. A degraded or unhealthy service
// answers 503; the report is still returned alongside the error.
func (c *Client) Health(ctx context.Context) (HealthReport, error) {
	var out HealthReport
	err := c.do(ctx, http.MethodGet, "/health", nil, &out)
	return out, err
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	return c.do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("skylens: encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("skylens: build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		return fmt.Errorf("skylens: %s %s: %w", method, path, err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		// Health answers 503 with a report body rather than an error envelope,
		// so fall back to the status text when no message decodes.
		if err := json.NewDecoder(resp.Body).Decode(apiErr); err != nil || apiErr.Message == "" {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("skylens: decode response: %w", err)
	}
	return nil
}
