package remote

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/rs/zerolog/log"
)

const (
	defaultMaxAttempts    = 3
	requestTimeout        = 5 * time.Second
	connectTimeout        = 2 * time.Second
	retryBackoffStep      = 100 * time.Millisecond
	maxResponseBodyLength = 1 << 20
)

// Response is a fully-read collaborator response. The body is retained so
// it can be cached and replayed byte-identical by the idempotency store.
type Response struct {
	StatusCode int
	Body       []byte
}

// DecodeJSON unmarshals the response body into v
func (r *Response) DecodeJSON(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// Client performs outbound HTTP calls to collaborator services. A 4xx
// status is a definitive application answer and is never retried; only
// transport failures and 5xx responses are.
type Client struct {
	httpClient  *http.Client
	maxAttempts int
}

// NewClient creates a client with a 5 second total timeout and a 2 second
// connection timeout
func NewClient() *Client {
	dialer := &net.Dialer{Timeout: connectTimeout}
	return &Client{
		httpClient: &http.Client{
			Timeout: requestTimeout,
			Transport: &http.Transport{
				DialContext: dialer.DialContext,
			},
		},
		maxAttempts: defaultMaxAttempts,
	}
}

// Do performs a single request. A non-2xx status is returned as a Response,
// not an error; only transport-level failures produce an error.
func (c *Client) Do(method, url string, body interface{}) (*Response, error) {
	return c.do(method, url, body, "")
}

func (c *Client) do(method, url string, body interface{}, bearerToken string) (*Response, error) {
	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequest(method, url, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if bearerToken != "" {
		req.Header.Set("Authorization", "Bearer "+bearerToken)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyLength))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return &Response{StatusCode: resp.StatusCode, Body: data}, nil
}

// DoWithRetry performs the request up to maxAttempts times. Attempt n
// sleeps 100ms*n before the next try; no backoff is applied after the
// final attempt. The last response or transport error is surfaced as-is.
func (c *Client) DoWithRetry(method, url string, body interface{}) (*Response, error) {
	return c.doWithRetry(method, url, body, "")
}

// DoWithRetryAuth is DoWithRetry with a bearer token attached to every
// attempt
func (c *Client) DoWithRetryAuth(method, url string, body interface{}, bearerToken string) (*Response, error) {
	return c.doWithRetry(method, url, body, bearerToken)
}

func (c *Client) doWithRetry(method, url string, body interface{}, bearerToken string) (*Response, error) {
	var (
		resp    *Response
		lastErr error
	)

	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		resp, lastErr = c.do(method, url, body, bearerToken)
		if lastErr == nil && resp.StatusCode < http.StatusInternalServerError {
			return resp, nil
		}

		if attempt < c.maxAttempts {
			log.Debug().
				Str("method", method).
				Str("url", url).
				Int("attempt", attempt).
				Err(lastErr).
				Msg("retrying collaborator call")
			time.Sleep(retryBackoffStep * time.Duration(attempt))
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("request failed after %d attempts: %w", c.maxAttempts, lastErr)
	}
	return resp, nil
}
