// Package remote is the HTTP client for the restaurant REST API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

// DefaultTimeout bounds every outbound request.
const DefaultTimeout = 10 * time.Second

// NetworkError reports that the API could not be reached at all.
type NetworkError struct {
	BaseURL string
	Err     error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("Network error: unable to reach API at %s. %v", e.BaseURL, e.Err)
}

func (e *NetworkError) Unwrap() error { return e.Err }

// StatusError is a response outside the 2xx range.
type StatusError struct {
	Method string
	Route  string
	Status int
	Body   []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Route, e.Status, bytes.TrimSpace(e.Body))
}

// Client issues JSON requests against a fixed base URL.
type Client struct {
	baseURL string
	http    *http.Client
}

// New constructs a Client. baseURL must end with a slash; routes are appended verbatim.
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{baseURL: baseURL, http: &http.Client{Timeout: timeout}}
}

// BaseURL returns the configured base URL.
func (c *Client) BaseURL() string { return c.baseURL }

// Do sends body as JSON and decodes the response into out when out is not nil.
// It returns the response status code whenever a response was received.
func (c *Client) Do(ctx context.Context, method, route string, body, out any) (int, error) {
	url := c.baseURL + route

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return 0, fmt.Errorf("encode %s %s: %w", method, route, err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			return 0, ctxErr
		}
		log.Printf("network error when calling %s: %v", url, err)
		return 0, &NetworkError{BaseURL: c.baseURL, Err: err}
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, &NetworkError{BaseURL: c.baseURL, Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp.StatusCode, &StatusError{Method: method, Route: route, Status: resp.StatusCode, Body: raw}
	}
	if out != nil && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, fmt.Errorf("decode %s %s: %w", method, route, err)
		}
	}
	return resp.StatusCode, nil
}

type listEnvelope[T any] struct {
	Data []T `json:"data"`
}

func getList[T any](ctx context.Context, c *Client, route string) ([]T, error) {
	var env listEnvelope[T]
	if _, err := c.Do(ctx, http.MethodGet, route, nil, &env); err != nil {
		return nil, err
	}
	return env.Data, nil
}

// IsNetworkError reports whether err came from a transport failure.
func IsNetworkError(err error) bool {
	var ne *NetworkError
	return errors.As(err, &ne)
}
