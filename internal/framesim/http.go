package framesim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to the recognition API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{baseURL: baseURL, client: &http.Client{Timeout: timeout}}
}

// StatusError reports an unexpected HTTP status.
type StatusError struct {
	Path   string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: unexpected status %d: %s", e.Path, e.Status, e.Body)
}

type detection struct {
	Descriptor []float64 `json:"descriptor"`
}

type frameRequest struct {
	FrameID    string      `json:"frame_id"`
	Detections []detection `json:"detections"`
}

// TickResult is the subset of the sync tick response the simulator reads.
type TickResult struct {
	State  string `json:"state"`
	Result *struct {
		Predicted  string  `json:"predicted"`
		Confidence float64 `json:"confidence"`
		Threshold  float64 `json:"threshold"`
	} `json:"result"`
}

// Report is the subset of GET /stats the simulator reads.
type Report struct {
	TotalFeedback      int                `json:"totalFeedback"`
	Accuracy           float64            `json:"accuracy"`
	AdaptiveThresholds map[string]float64 `json:"adaptiveThresholds"`
	AccuracyCurve      []float64          `json:"accuracyCurve"`
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", nil, http.StatusOK, nil)
}

// Enroll registers a descriptor under name.
func (c *Client) Enroll(ctx context.Context, name string, d []float64) error {
	body := map[string]any{"name": name, "descriptor": d}
	return c.do(ctx, http.MethodPost, "/people/descriptor", body, http.StatusCreated, nil)
}

// Tick runs one synchronous recognition step.
func (c *Client) Tick(ctx context.Context, f Frame) (TickResult, error) {
	var out TickResult
	req := frameRequest{FrameID: f.ID, Detections: []detection{{Descriptor: f.Descriptor}}}
	err := c.do(ctx, http.MethodPost, "/frames/sync", req, http.StatusOK, &out)
	return out, err
}

// Confirm answers the open result as correct.
func (c *Client) Confirm(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/feedback", map[string]string{"type": "confirmed"}, http.StatusOK, nil)
}

// Correct answers the open result with the actual name.
func (c *Client) Correct(ctx context.Context, actual string) error {
	body := map[string]string{"type": "corrected", "actual_name": actual}
	return c.do(ctx, http.MethodPost, "/feedback", body, http.StatusOK, nil)
}

// Stats reads the learning report.
func (c *Client) Stats(ctx context.Context) (Report, error) {
	var out Report
	err := c.do(ctx, http.MethodGet, "/stats", nil, http.StatusOK, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body any, want int, out any) error {
	var rd io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		rd = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if resp.StatusCode != want {
		return &StatusError{Path: path, Status: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("decode %s: %w", path, err)
		}
	}
	return nil
}
