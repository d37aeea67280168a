package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"flame/service/app"
)

// StatusError is returned for any non-2xx API response.
type StatusError struct {
	Method string
	Path   string
	Code   int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: %d %s", e.Method, e.Path, e.Code, e.Body)
}

// Client talks to the flame JSON API. It implements the add and update store
// actions of appform.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

func New(baseURL, apiKey string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

func (c *Client) AddApp(ctx context.Context, payload app.Payload) error {
	_, err := c.send(ctx, http.MethodPost, "/api/apps", payload)
	return err
}

func (c *Client) UpdateApp(ctx context.Context, id int64, payload app.Payload) error {
	_, err := c.send(ctx, http.MethodPut, fmt.Sprintf("/api/apps/%d", id), payload)
	return err
}

// CreateApp is AddApp returning the stored app.
func (c *Client) CreateApp(ctx context.Context, payload app.Payload) (*app.App, error) {
	return c.send(ctx, http.MethodPost, "/api/apps", payload)
}

func (c *Client) ListApps(ctx context.Context) ([]app.App, error) {
	var apps []app.App
	if err := c.do(ctx, http.MethodGet, "/api/apps", nil, "", &apps); err != nil {
		return nil, err
	}
	return apps, nil
}

func (c *Client) GetApp(ctx context.Context, id int64) (*app.App, error) {
	var a app.App
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/api/apps/%d", id), nil, "", &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) DeleteApp(ctx context.Context, id int64) error {
	return c.do(ctx, http.MethodDelete, fmt.Sprintf("/api/apps/%d", id), nil, "", nil)
}

func (c *Client) send(ctx context.Context, method, path string, payload app.Payload) (*app.App, error) {
	body, contentType, err := payload.Encode()
	if err != nil {
		return nil, err
	}

	var a app.App
	if err := c.do(ctx, method, path, bytes.NewReader(body), contentType, &a); err != nil {
		return nil, err
	}
	return &a, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &StatusError{
			Method: method,
			Path:   path,
			Code:   resp.StatusCode,
			Body:   strings.TrimSpace(string(msg)),
		}
	}

	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s %s response: %w", method, path, err)
	}
	return nil
}
