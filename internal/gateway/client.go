// Package gateway is the typed request wrapper over the remote ride API.
// It centralizes bearer-header injection and 401 handling so no screen
// ever deals with raw HTTP.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/example/tricy-client/internal/logging"
	"github.com/example/tricy-client/internal/observability"
	"github.com/example/tricy-client/internal/session"
)

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Sessions   session.Store
	Log        *slog.Logger
}

func New(baseURL string, sessions session.Store, log *slog.Logger) *Client {
	if log == nil {
		log = logging.Discard()
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		Sessions:   sessions,
		Log:        log,
	}
}

func (c *Client) Get(ctx context.Context, path string, out any) error {
	return c.Do(ctx, http.MethodGet, path, nil, out)
}

func (c *Client) Post(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPost, path, body, out)
}

func (c *Client) Patch(ctx context.Context, path string, body, out any) error {
	return c.Do(ctx, http.MethodPatch, path, body, out)
}

// Do issues one request and decodes the JSON response into out when out is
// non-nil. Error kinds: *Unauthorized (session cleared, logout broadcast),
// *Conflict (409), *ServerError (other non-2xx), *NetworkError (transport).
// Context cancellation surfaces as the context's error so an unmounted
// screen can tell its own abort apart from a server failure.
func (c *Client) Do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return err
		}
		rd = bytes.NewReader(raw)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, rd)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	if sess, err := c.Sessions.Load(); err == nil && sess != nil {
		req.Header.Set("Authorization", "Bearer "+sess.Token)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			observability.GatewayRequests.WithLabelValues(method, "cancelled").Inc()
			return ctx.Err()
		}
		observability.GatewayRequests.WithLabelValues(method, "network").Inc()
		return &NetworkError{Cause: err}
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized:
		observability.GatewayRequests.WithLabelValues(method, "unauthorized").Inc()
		// Clear emits the logout signal itself, and only once even when
		// several in-flight requests all come back 401.
		if err := c.Sessions.Clear(); err != nil {
			c.Log.Error("clearing session after 401", "error", err)
		}
		return &Unauthorized{}
	case resp.StatusCode == http.StatusConflict:
		observability.GatewayRequests.WithLabelValues(method, "conflict").Inc()
		return &Conflict{Message: errorMessage(resp)}
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		observability.GatewayRequests.WithLabelValues(method, "server_error").Inc()
		return &ServerError{Status: resp.StatusCode, Message: errorMessage(resp)}
	}

	observability.GatewayRequests.WithLabelValues(method, "ok").Inc()
	if out == nil {
		return nil
	}
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Cause: err}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &ServerError{Status: resp.StatusCode, Message: "malformed response body"}
	}
	return nil
}

// errorMessage pulls a human-readable message out of a failure response:
// the JSON detail/message field when decodable, else the status text.
func errorMessage(resp *http.Response) string {
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err == nil && len(raw) > 0 {
		var payload struct {
			Detail  string `json:"detail"`
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &payload) == nil {
			if payload.Detail != "" {
				return payload.Detail
			}
			if payload.Message != "" {
				return payload.Message
			}
		}
	}
	return http.StatusText(resp.StatusCode)
}
