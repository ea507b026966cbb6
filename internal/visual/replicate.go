package visual

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultReplicateBaseURL is the prediction API root.
const DefaultReplicateBaseURL = "https://api.replicate.com/v1"

// Prediction statuses.
const (
	StatusStarting   = "starting"
	StatusProcessing = "processing"
	StatusSucceeded  = "succeeded"
	StatusFailed     = "failed"
	StatusCanceled   = "canceled"
)

// Prediction is a media generation job on the prediction API.
type Prediction struct {
	ID      string            `json:"id"`
	Version string            `json:"version,omitempty"`
	Status  string            `json:"status"`
	Output  json.RawMessage   `json:"output,omitempty"`
	Error   json.RawMessage   `json:"error,omitempty"`
	URLs    map[string]string `json:"urls,omitempty"`
}

// OutputURLs decodes the output, which is either a single URL or a list.
// multi reports whether the provider returned a list.
func (p *Prediction) OutputURLs() (urls []string, multi bool, err error) {
	out := bytes.TrimSpace(p.Output)
	if len(out) == 0 || bytes.Equal(out, []byte("null")) {
		return nil, false, fmt.Errorf("prediction %s has no output", p.ID)
	}
	if out[0] == '[' {
		if err := json.Unmarshal(out, &urls); err != nil {
			return nil, true, fmt.Errorf("failed to decode prediction output: %w", err)
		}
		if len(urls) == 0 {
			return nil, true, fmt.Errorf("prediction %s returned an empty output list", p.ID)
		}
		return urls, true, nil
	}
	var single string
	if err := json.Unmarshal(out, &single); err != nil {
		return nil, false, fmt.Errorf("failed to decode prediction output: %w", err)
	}
	return []string{single}, false, nil
}

// ErrorMessage returns the provider's error as text.
func (p *Prediction) ErrorMessage() string {
	raw := bytes.TrimSpace(p.Error)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return string(raw)
}

// ProviderError is a non-2xx response from the prediction API.
type ProviderError struct {
	StatusCode int
	Body       string
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("prediction API error (status %d): %s", e.StatusCode, e.Body)
}

// PredictionClient handles prediction API interactions.
type PredictionClient struct {
	token      string
	httpClient *http.Client
	baseURL    string
}

// NewPredictionClient creates a new prediction API client.
func NewPredictionClient(token, baseURL string) *PredictionClient {
	if baseURL == "" {
		baseURL = DefaultReplicateBaseURL
	}
	return &PredictionClient{
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		baseURL:    strings.TrimRight(baseURL, "/"),
	}
}

type createPredictionRequest struct {
	Version string         `json:"version"`
	Input   map[string]any `json:"input"`
}

// Create submits a prediction for version with input.
func (c *PredictionClient) Create(ctx context.Context, version string, input map[string]any) (*Prediction, error) {
	reqBody, err := json.Marshal(createPredictionRequest{Version: version, Input: input})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}
	return c.do(ctx, http.MethodPost, c.baseURL+"/predictions", reqBody)
}

// Get fetches the current state of prediction id.
func (c *PredictionClient) Get(ctx context.Context, id string) (*Prediction, error) {
	return c.do(ctx, http.MethodGet, c.baseURL+"/predictions/"+id, nil)
}

func (c *PredictionClient) do(ctx context.Context, method, url string, reqBody []byte) (*Prediction, error) {
	var body io.Reader
	if reqBody != nil {
		body = bytes.NewReader(reqBody)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	if reqBody != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &ProviderError{StatusCode: resp.StatusCode, Body: string(respBody)}
	}

	var prediction Prediction
	if err := json.Unmarshal(respBody, &prediction); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return &prediction, nil
}
