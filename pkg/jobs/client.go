// Package jobs is the client for the analysis job-status backend
package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/agentdesk/agentdesk/pkg/types"
	"github.com/agentdesk/agentdesk/pkg/version"
)

// Client wraps HTTP operations for the job endpoints
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// MinBackendVersion is the oldest analysis backend this client understands
const MinBackendVersion = "0.3.0"

// ErrorResponse represents an error response from the API
type ErrorResponse struct {
	Error string `json:"error"`
}

// NewClient creates a new job client
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// StartJob submits an analysis request and returns the job id
func (c *Client) StartJob(ctx context.Context, req *types.JobRequest) (*types.JobResponse, error) {
	bodyBytes, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal job request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/jobs", bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create job request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	var result types.JobResponse
	if err := c.do(httpReq, "start job", &result); err != nil {
		return nil, err
	}
	if result.JobID == "" {
		return nil, fmt.Errorf("start job: response has no job_id")
	}
	return &result, nil
}

// GetJob fetches the status of a job
func (c *Client) GetJob(ctx context.Context, jobID string) (*types.JobStatusResponse, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/jobs/"+url.PathEscape(jobID), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create job status request: %w", err)
	}

	var result types.JobStatusResponse
	if err := c.do(httpReq, "get job", &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CheckVersion fetches the backend build info and fails when it is older
// than MinBackendVersion.
func (c *Client) CheckVersion(ctx context.Context) (*version.BuildInfo, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/version", nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create version request: %w", err)
	}

	var info version.BuildInfo
	if err := c.do(httpReq, "get version", &info); err != nil {
		return nil, err
	}
	ok, err := version.AtLeast(info.Version, MinBackendVersion)
	if err != nil {
		return &info, err
	}
	if !ok {
		return &info, fmt.Errorf("analysis backend %s is older than %s", info.Version, MinBackendVersion)
	}
	return &info, nil
}

func (c *Client) do(req *http.Request, op string, out interface{}) error {
	req.Header.Set("User-Agent", version.UserAgent())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to %s: %w", op, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read %s response: %w", op, err)
	}

	if resp.StatusCode == http.StatusNotFound {
		return types.ErrJobNotFound
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var errResp ErrorResponse
		if json.Unmarshal(body, &errResp) == nil && errResp.Error != "" {
			return fmt.Errorf("%s failed: %s", op, errResp.Error)
		}
		return fmt.Errorf("%s failed with status %d: %s", op, resp.StatusCode, string(body))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to parse %s response: %w", op, err)
	}
	return nil
}

// DecodeResult decodes the JSON-encoded recommendation carried in a job result
func DecodeResult(raw string) (*types.Recommendation, error) {
	var payload struct {
		Command       string  `json:"command"`
		Quantity      float64 `json:"quantity"`
		Summary       string  `json:"summary"`
		RiskReduction float64 `json:"risk_reduction"`
	}
	if err := json.Unmarshal([]byte(raw), &payload); err != nil {
		return nil, fmt.Errorf("failed to decode job result: %w", err)
	}

	cmd, err := types.ParseCommand(payload.Command)
	if err != nil {
		return nil, err
	}
	rec := &types.Recommendation{
		Command:       cmd,
		Quantity:      payload.Quantity,
		Summary:       payload.Summary,
		RiskReduction: payload.RiskReduction,
	}
	if err := rec.Validate(); err != nil {
		return nil, err
	}
	return rec, nil
}

// EncodeResult is the inverse of DecodeResult, used by the analysis backend
func EncodeResult(rec *types.Recommendation) (*types.JobResult, error) {
	b, err := json.Marshal(rec)
	if err != nil {
		return nil, fmt.Errorf("failed to encode job result: %w", err)
	}
	return &types.JobResult{Raw: string(b)}, nil
}
