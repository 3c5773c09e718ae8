package connection

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yndnr/reasonjournal/internal/core/service"
	"github.com/yndnr/reasonjournal/internal/infra/buildinfo"
	"github.com/yndnr/reasonjournal/internal/server/httpserver/handler"
	"github.com/yndnr/reasonjournal/internal/storage"
)

// DefaultTimeout bounds a single request.
const DefaultTimeout = 30 * time.Second

// HTTPClient talks to rjournald over HTTP or HTTPS.
type HTTPClient struct {
	baseURL   string
	client    *http.Client
	userAgent string
}

// Option configures an HTTPClient.
type Option func(*HTTPClient)

// WithTLSConfig enables HTTPS with cfg.
func WithTLSConfig(cfg *tls.Config) Option {
	return func(c *HTTPClient) {
		c.client.Transport = &http.Transport{
			TLSClientConfig: cfg,
			Proxy:           http.ProxyFromEnvironment,
		}
		if !strings.Contains(c.baseURL, "://") {
			c.baseURL = "https://" + c.baseURL
		}
	}
}

// WithTimeout overrides DefaultTimeout.
func WithTimeout(d time.Duration) Option {
	return func(c *HTTPClient) {
		c.client.Timeout = d
	}
}

// NewHTTPClient creates a client for server, given as host:port or URL.
func NewHTTPClient(server string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL:   strings.TrimRight(server, "/"),
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: "rjournal/" + buildinfo.Version,
	}
	for _, opt := range opts {
		opt(c)
	}
	if !strings.Contains(c.baseURL, "://") {
		c.baseURL = "http://" + c.baseURL
	}
	return c
}

// BaseURL returns the base URL of the client.
func (c *HTTPClient) BaseURL() string {
	return c.baseURL
}

// Get performs a GET request.
func (c *HTTPClient) Get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

// Post performs a POST request with a JSON body. A nil body sends none.
func (c *HTTPClient) Post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

func (c *HTTPClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.client.Do(req)
}

// Append posts one record.
func (c *HTTPClient) Append(ctx context.Context, reasonTag string, payload []byte) (*service.AppendResponse, error) {
	resp, err := c.Post(ctx, "/v1/records", &handler.AppendRecordRequest{
		ReasonTag: reasonTag,
		Payload:   payload,
	})
	if err != nil {
		return nil, err
	}
	var out service.AppendResponse
	if err := ParseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Stats fetches the daemon's session metrics.
func (c *HTTPClient) Stats(ctx context.Context) (*service.Stats, error) {
	resp, err := c.Get(ctx, "/v1/stats")
	if err != nil {
		return nil, err
	}
	var out service.Stats
	if err := ParseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Verify asks the daemon to verify its journal. A broken chain comes
// back as an *APIError with status 422.
func (c *HTTPClient) Verify(ctx context.Context) (*storage.VerifyReport, error) {
	resp, err := c.Post(ctx, "/v1/verify", nil)
	if err != nil {
		return nil, err
	}
	var out storage.VerifyReport
	if err := ParseResponse(resp, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ready reports whether the daemon has an open journal.
func (c *HTTPClient) Ready(ctx context.Context) error {
	resp, err := c.Get(ctx, "/ready")
	if err != nil {
		return err
	}
	return ParseResponse(resp, nil)
}

// APIError is a non-2xx response from the daemon.
type APIError struct {
	Status    int
	Code      string
	Message   string
	RequestID string
	Details   json.RawMessage
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("request failed with status %d", e.Status)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// envelope mirrors handler.Response with the payload left raw.
type envelope struct {
	Code      string          `json:"code"`
	Message   string          `json:"message"`
	RequestID string          `json:"request_id"`
	Data      json.RawMessage `json:"data"`
	Details   json.RawMessage `json:"details"`
}

// ParseResponse decodes the envelope of resp into target and closes the
// body. Error statuses return *APIError.
func ParseResponse(resp *http.Response, target any) error {
	defer resp.Body.Close()

	var env envelope
	decodeErr := json.NewDecoder(resp.Body).Decode(&env)

	if resp.StatusCode >= 400 {
		apiErr := &APIError{Status: resp.StatusCode}
		if decodeErr == nil {
			apiErr.Code = env.Code
			apiErr.Message = env.Message
			apiErr.RequestID = env.RequestID
			apiErr.Details = env.Details
		}
		return apiErr
	}
	if decodeErr != nil {
		return fmt.Errorf("parse response: %w", decodeErr)
	}

	if target != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, target); err != nil {
			return fmt.Errorf("parse response data: %w", err)
		}
	}
	return nil
}
