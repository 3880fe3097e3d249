// Package api is the JSON-over-HTTP transport to the onboarding, generation,
// persistence and publishing services. The session is an ambient cookie kept
// in the client's jar; no token is handled here.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"strings"
	"time"

	"campaigner/internal/logging"
	"campaigner/internal/types"

	"github.com/google/uuid"
	"golang.org/x/net/publicsuffix"
)

// maxResponseBytes bounds how much of a response body is read.
const maxResponseBytes = 8 << 20

// RequestIDHeader carries the per-call correlation id.
const RequestIDHeader = "X-Request-ID"

// Recorder observes the outcome of every call (see internal/usage).
type Recorder interface {
	Record(operation string, err error)
}

// Config configures a Client.
type Config struct {
	BaseURL    string
	Timeout    time.Duration
	UserAgent  string
	Jar        http.CookieJar // defaults to an in-memory public-suffix aware jar
	HTTPClient *http.Client   // overrides Timeout and Jar when set
	Recorder   Recorder
	// SlowCall is the duration above which a call is logged as a warning.
	// Zero disables the warning.
	SlowCall time.Duration
}

// Client calls the collaborator services.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	recorder   Recorder
	slowCall   time.Duration
}

// NewClient creates a new API client.
func NewClient(cfg Config) (*Client, error) {
	if strings.TrimSpace(cfg.BaseURL) == "" {
		return nil, fmt.Errorf("api base URL required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		jar := cfg.Jar
		if jar == nil {
			var err error
			jar, err = cookiejar.New(&cookiejar.Options{PublicSuffixList: publicsuffix.List})
			if err != nil {
				return nil, fmt.Errorf("failed to create cookie jar: %w", err)
			}
		}
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout, Jar: jar}
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		userAgent:  cfg.UserAgent,
		httpClient: httpClient,
		recorder:   cfg.Recorder,
		slowCall:   cfg.SlowCall,
	}, nil
}

// BaseURL returns the service root the client talks to.
func (c *Client) BaseURL() string { return c.baseURL }

// errorBody is the error shape shared by all services.
type errorBody struct {
	Message string `json:"message"`
}

// Do sends one JSON request and decodes a 2xx body into out (when non-nil).
//
// Failures are *types.Error values without a lifecycle kind:
//   - no response obtained: Kind ErrTransport, the cause in Err
//   - non-2xx: Status set, Message from the body's "message" field (may be empty)
//   - undecodable 2xx body: Status set, the decode error in Err
//
// Callers re-kind them (types.Rekind) at their component boundary.
func (c *Client) Do(ctx context.Context, operation, method, path string, in, out any) error {
	err := c.do(ctx, operation, method, path, in, out)
	if c.recorder != nil {
		c.recorder.Record(operation, err)
	}
	return err
}

func (c *Client) do(ctx context.Context, operation, method, path string, in, out any) error {
	requestID := uuid.NewString()
	log := logging.Get(logging.CategoryAPI).With("op", operation, "request_id", requestID)
	timer := logging.StartTimer(logging.CategoryAPI, operation)
	defer func() {
		if c.slowCall > 0 {
			timer.StopWithThreshold(c.slowCall)
		} else {
			timer.Stop()
		}
	}()

	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return &types.Error{Err: fmt.Errorf("failed to marshal request: %w", err)}
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &types.Error{Err: fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set(RequestIDHeader, requestID)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	log.Debug("%s %s", method, path)
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.With("kind", "transport").Error("request failed: %v", err)
		return &types.Error{Kind: types.ErrTransport, Err: err}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		log.With("kind", "transport", "status", resp.StatusCode).Error("failed to read response: %v", err)
		return &types.Error{Kind: types.ErrTransport, Status: resp.StatusCode, Err: err}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var eb errorBody
		_ = json.Unmarshal(data, &eb)
		log.With("kind", "status", "status", resp.StatusCode).Warn("service returned %d: %s", resp.StatusCode, eb.Message)
		return &types.Error{Message: eb.Message, Status: resp.StatusCode}
	}

	if out != nil && len(bytes.TrimSpace(data)) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			log.With("status", resp.StatusCode).Error("failed to parse response: %v", err)
			return &types.Error{Status: resp.StatusCode, Err: fmt.Errorf("failed to parse response: %w", err)}
		}
	}

	log.Debug("%s %s -> %d (%d bytes)", method, path, resp.StatusCode, len(data))
	return nil
}
