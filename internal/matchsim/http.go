package matchsim

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/okian/affinity/internal/domain/model"
)

// matchRequest is the body every matching endpoint accepts.
type matchRequest struct {
	Kind      string           `json:"kind,omitempty"`
	Clients   []model.Client   `json:"clients"`
	Employees []model.Employee `json:"employees"`
}

type apiError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// httpClient wraps http.Client with the service base URL.
type httpClient struct {
	client  *http.Client
	baseURL string
}

func newHTTPClient(baseURL string, timeout time.Duration) *httpClient {
	return &httpClient{
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
	}
}

// health performs GET /healthz.
func (c *httpClient) health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/healthz", http.NoBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to connect to service: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("service health check failed with status: %d", resp.StatusCode)
	}
	return nil
}

// match posts a dataset to path and decodes the AssignmentResult.
func (c *httpClient) match(ctx context.Context, path, kind string, ds Dataset) (model.AssignmentResult, error) {
	var result model.AssignmentResult

	body, err := json.Marshal(matchRequest{Kind: kind, Clients: ds.Clients, Employees: ds.Employees})
	if err != nil {
		return result, fmt.Errorf("failed to marshal request body: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return result, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return result, fmt.Errorf("POST %s: %w", path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return result, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var ae apiError
		_ = json.Unmarshal(data, &ae)
		return result, fmt.Errorf("POST %s: status %d: %s %s", path, resp.StatusCode, ae.Code, ae.Message)
	}
	if err := json.Unmarshal(data, &result); err != nil {
		return result, fmt.Errorf("decode result: %w", err)
	}
	return result, nil
}
