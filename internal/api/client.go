// Package api is the REST client for the remote StockFlow inventory API.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	apperrors "github.com/arbitroy/stockflow/backend/internal/errors"
	"github.com/arbitroy/stockflow/backend/internal/metrics"
)

// DefaultTimeout bounds ordinary data requests.
const DefaultTimeout = 10 * time.Second

// Observer is told about every exchange with the API, so connection state
// follows real traffic and not only health probes.
type Observer interface {
	ObserveResponse(status int)
	ObserveFailure(err error)
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	HTTPClient *http.Client
	Observer   Observer
	Metrics    *metrics.Metrics
}

// Client talks JSON to the remote API.
type Client struct {
	baseURL  string
	http     *http.Client
	observer Observer
	metrics  *metrics.Metrics
}

// NewClient creates a Client.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: timeout}
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		http:     hc,
		observer: cfg.Observer,
		metrics:  cfg.Metrics,
	}
}

// BaseURL returns the API root this client targets.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// errorBody is the error document the API returns.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
}

// do sends one request. route is the templated path used as a metric label.
func (c *Client) do(ctx context.Context, method, route, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return apperrors.Wrap(apperrors.ErrInvalid, "failed to encode request", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return apperrors.Wrap(apperrors.ErrInvalid, "failed to build request", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.metrics.ObserveAPIRequest(method, route, 0, time.Since(start))
		// A caller-side cancellation says nothing about the API.
		if c.observer != nil && !errors.Is(err, context.Canceled) {
			c.observer.ObserveFailure(err)
		}
		return transportError(method, path, err)
	}
	defer resp.Body.Close()

	c.metrics.ObserveAPIRequest(method, route, resp.StatusCode, time.Since(start))
	if c.observer != nil {
		c.observer.ObserveResponse(resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return transportError(method, path, err)
	}

	if resp.StatusCode >= 400 {
		var eb errorBody
		msg := ""
		if json.Unmarshal(data, &eb) == nil {
			msg = eb.Message
			if msg == "" {
				msg = eb.Error
			}
		}
		return httpError(method, path, resp.StatusCode, msg)
	}

	if out == nil || len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return apperrors.Wrap(apperrors.ErrRemote, fmt.Sprintf("%s %s: malformed response", method, path), err)
	}
	return nil
}

func escape(id string) string {
	return url.PathEscape(id)
}
