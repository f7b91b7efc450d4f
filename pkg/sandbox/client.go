// Package sandbox provides a client for a remote code execution sandbox.
// Submitted snippets run in an isolated Python interpreter; the response
// carries captured streams, the last expression value, and any raised error.
package sandbox

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rotisserie/eris"
)

// Default base URL for the sandbox API.
const defaultBaseURL = "https://api.e2b.dev/v1"

// Client defines the sandbox operations.
type Client interface {
	// Execute runs a Python snippet and returns its captured output.
	Execute(ctx context.Context, source string) (*Execution, error)
}

// ExecuteRequest is the body for POST /execute.
type ExecuteRequest struct {
	Language string `json:"language"`
	Code     string `json:"code"`
}

// Execution is the outcome of one snippet run. Error is non-nil when the
// interpreter raised; stdout and stderr are captured either way.
type Execution struct {
	Stdout     []string   `json:"stdout"`
	Stderr     []string   `json:"stderr"`
	ResultText string     `json:"result_text"`
	Error      *ExecError `json:"error,omitempty"`
}

// ExecError is a raised interpreter error.
type ExecError struct {
	Name      string `json:"name"`
	Value     string `json:"value"`
	Traceback string `json:"traceback"`
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("%s: %s", e.Name, e.Value)
}

// CombinedStdout joins captured stdout lines.
func (x *Execution) CombinedStdout() string {
	return strings.Join(x.Stdout, "\n")
}

// CombinedStderr joins captured stderr lines.
func (x *Execution) CombinedStderr() string {
	return strings.Join(x.Stderr, "\n")
}

// APIError is returned when the sandbox responds with a non-2xx status.
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("sandbox: HTTP %d: %s", e.StatusCode, e.Body)
}

// Option configures the sandbox client.
type Option func(*httpClient)

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

type httpClient struct {
	apiKey  string
	baseURL string
	http    *http.Client
}

// NewClient creates a new sandbox client.
func NewClient(apiKey string, opts ...Option) Client {
	c := &httpClient{
		apiKey:  apiKey,
		baseURL: defaultBaseURL,
		http: &http.Client{
			Timeout: 60 * time.Second,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 20,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *httpClient) Execute(ctx context.Context, source string) (*Execution, error) {
	payload, err := json.Marshal(ExecuteRequest{Language: "python", Code: source})
	if err != nil {
		return nil, eris.Wrap(err, "sandbox: marshal request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/execute", bytes.NewReader(payload))
	if err != nil {
		return nil, eris.Wrap(err, "sandbox: create request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", c.apiKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "sandbox: execute request")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "sandbox: read response body")
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var result Execution
	if err := json.Unmarshal(body, &result); err != nil {
		return nil, eris.Wrap(err, "sandbox: unmarshal response")
	}

	return &result, nil
}
