// Package httputil provides helpers for calling external JSON APIs.
package httputil

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"time"
)

// NewClient creates an HTTP client for the named API.
// Requests are logged at debug level and their latency is recorded per API.
func NewClient(api string, timeout time.Duration) *http.Client {
	base := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        10,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}

	return &http.Client{
		Timeout:   timeout,
		Transport: Instrument(api, LogRequests(api, base)),
	}
}

// Request describes a GET call against a bearer-token protected JSON API.
type Request struct {
	// Operation names the call in errors and logs, e.g. "list incidents".
	Operation string
	URL       string
	Token     string
	Query     url.Values
}

// GetJSON performs the request and decodes a 2xx JSON response into out.
// Non-2xx responses are returned as *APIError.
func GetJSON(ctx context.Context, client *http.Client, r Request, out any) error {
	endpoint := r.URL
	if len(r.Query) > 0 {
		endpoint += "?" + r.Query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("%s: create request: %w", r.Operation, err)
	}
	req.Header.Set("Authorization", "Bearer "+r.Token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: send request: %w", r.Operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(r.Operation, resp, out)
}

// PostJSON encodes body as JSON and posts it to endpoint without credentials.
// Used for incoming webhooks, where the secret is part of the URL.
// Non-2xx responses are returned as *APIError.
func PostJSON(ctx context.Context, client *http.Client, operation, endpoint string, body any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("%s: marshal payload: %w", operation, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("%s: create request: %w", operation, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("%s: send request: %w", operation, err)
	}
	defer func() { _ = resp.Body.Close() }()

	return handleResponse(operation, resp, nil)
}
