package cloud

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

// Client is a thin wrapper around the cloud provider's instance-lifecycle
// API: create, fetch by id, delete, list by tag.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// APIError is a non-2xx response from the provider.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("cloud api: status %d: %s", e.StatusCode, e.Message)
}

func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

// Create requests a new machine. The provider may return a descriptor whose
// network list is still empty; callers must poll Get until an address is
// attached.
func (c *Client) Create(ctx context.Context, req CreateRequest) (*Machine, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal create machine: %w", err)
	}

	var out struct {
		Machine Machine `json:"machine"`
	}
	if err := c.do(ctx, http.MethodPost, "/machines", bytes.NewReader(body), &out); err != nil {
		return nil, fmt.Errorf("create machine %s: %w", req.Name, err)
	}
	return &out.Machine, nil
}

// Get fetches a machine descriptor by provider id.
func (c *Client) Get(ctx context.Context, id string) (*Machine, error) {
	var out struct {
		Machine Machine `json:"machine"`
	}
	if err := c.do(ctx, http.MethodGet, "/machines/"+url.PathEscape(id), nil, &out); err != nil {
		return nil, fmt.Errorf("get machine %s: %w", id, err)
	}
	return &out.Machine, nil
}

// Delete destroys a machine by provider id.
func (c *Client) Delete(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/machines/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete machine %s: %w", id, err)
	}
	return nil
}

// ListByTag returns all machines carrying the given tag.
func (c *Client) ListByTag(ctx context.Context, tag string) ([]Machine, error) {
	var out struct {
		Machines []Machine `json:"machines"`
	}
	path := "/machines?tag=" + url.QueryEscape(tag)
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, fmt.Errorf("list machines by tag %s: %w", tag, err)
	}
	return out.Machines, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Message: string(respBody)}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
