// Package client talks to a running yq-monitor control API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/Sangdi-IT/yq-monitor/internal/domain"
)

type Client struct {
	BaseURL string
	HTTP    *http.Client
}

func New(baseURL string) *Client {
	return &Client{BaseURL: strings.TrimRight(baseURL, "/"), HTTP: http.DefaultClient}
}

// APIError is the server's error envelope.
type APIError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Details any    `json:"details,omitempty"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s (%d): %s", e.Code, e.Status, e.Message)
}

// Send posts one trigger message.
func (c *Client) Send(ctx context.Context, msg domain.Message) (domain.Response, error) {
	var out domain.Response
	err := c.do(ctx, http.MethodPost, "/_api/v1/messages", msg, &out)
	return out, err
}

func (c *Client) StartCapture(ctx context.Context) (domain.Response, error) {
	return c.Send(ctx, domain.Message{Action: domain.ActionStartCapture})
}

func (c *Client) StopCapture(ctx context.Context) (domain.Response, error) {
	return c.Send(ctx, domain.Message{Action: domain.ActionStopCapture})
}

// StartClicking starts the loop; intervalMs <= 0 keeps the current delay.
func (c *Client) StartClicking(ctx context.Context, intervalMs int) (domain.Response, error) {
	if intervalMs < 0 {
		intervalMs = 0
	}
	return c.Send(ctx, domain.Message{Type: domain.TypeStartClicking, Interval: intervalMs})
}

func (c *Client) StopClicking(ctx context.Context) (domain.Response, error) {
	return c.Send(ctx, domain.Message{Type: domain.TypeStopClicking})
}

func (c *Client) Status(ctx context.Context) (domain.Status, error) {
	var out domain.Status
	err := c.do(ctx, http.MethodGet, "/_api/v1/status", nil, &out)
	return out, err
}

// ExportHAR asks the server to save the host HAR; an empty filename uses the server default.
func (c *Client) ExportHAR(ctx context.Context, filename string) (domain.ExportRecord, error) {
	var out domain.ExportRecord
	err := c.do(ctx, http.MethodPost, "/_api/v1/har", map[string]string{"filename": filename}, &out)
	return out, err
}

func (c *Client) ListExports(ctx context.Context, limit, offset int) ([]domain.ExportRecord, int, error) {
	q := url.Values{}
	q.Set("limit", fmt.Sprint(limit))
	q.Set("offset", fmt.Sprint(offset))
	var out struct {
		Items []domain.ExportRecord `json:"items"`
		Total int                   `json:"total"`
	}
	if err := c.do(ctx, http.MethodGet, "/_api/v1/exports?"+q.Encode(), nil, &out); err != nil {
		return nil, 0, err
	}
	return out.Items, out.Total, nil
}

// ClearExports forgets the server's export history.
func (c *Client) ClearExports(ctx context.Context) error {
	return c.do(ctx, http.MethodDelete, "/_api/v1/exports", nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.HTTP.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		var env struct {
			Error APIError `json:"error"`
		}
		data, _ := io.ReadAll(resp.Body)
		if json.Unmarshal(data, &env) != nil || env.Error.Code == "" {
			env.Error = APIError{Code: http.StatusText(resp.StatusCode), Message: strings.TrimSpace(string(data))}
		}
		env.Error.Status = resp.StatusCode
		return &env.Error
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
