package autorun

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

// RefreshPath is the knowledge-base refresh endpoint.
const RefreshPath = "/api/admin/knowledge-base/refresh"

// RefreshClient asks the site to re-index its knowledge base.
type RefreshClient struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// NewRefreshClient creates a knowledge-base refresh client.
func NewRefreshClient(baseURL, apiKey string) *RefreshClient {
	return &RefreshClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 2 * time.Minute},
	}
}

type refreshRequest struct {
	Slugs []string `json:"slugs,omitempty"`
}

// Refresh re-indexes the given slugs, or everything when slugs is empty.
func (c *RefreshClient) Refresh(ctx context.Context, slugs []string) error {
	reqBody, err := json.Marshal(refreshRequest{Slugs: slugs})
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+RefreshPath, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to make request: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("knowledge base refresh failed (status %d): %s", resp.StatusCode, string(body))
	}
	return nil
}
