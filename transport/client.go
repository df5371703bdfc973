package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vitrinelabs/vitrine/core"
)

// Client is the shared HTTP client the service clients are built on. It owns
// the gateway base URL, the retry policy and response decoding; credential
// injection happens below it in the AuthTransport.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Logger     core.Logger
	Retry      core.RetryConfig
}

// NewClient creates a client for the given gateway prefix
func NewClient(baseURL string, httpClient *http.Client, logger core.Logger, retry core.RetryConfig) *Client {
	if logger == nil {
		logger = &core.NoOpLogger{}
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	if retry.MaxAttempts < 1 {
		retry = core.RetryConfig{MaxAttempts: 1}
	}
	return &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: httpClient,
		Logger:     logger,
		Retry:      retry,
	}
}

// Request describes one backend call
type Request struct {
	// Op names the operation for errors and logs (e.g., "cart.Add")
	Op string
	// Method and Path of the call; Path is appended to the gateway prefix
	Method string
	Path   string
	// Query parameters, may be nil
	Query url.Values
	// Body is JSON-encoded unless it is a string, which is sent verbatim
	// as text/plain (the order service takes the bare status string)
	Body interface{}
	// Out receives the decoded JSON response when non-nil. A *string Out
	// receives the raw response body instead.
	Out interface{}
	// Messages overrides the user-facing message per status code
	Messages StatusMessages
}

// Do executes the request with retry and classifies failures.
// Server errors and transport failures are retried with exponential backoff;
// 4xx responses are returned immediately.
func (c *Client) Do(ctx context.Context, r Request) error {
	var payload []byte
	contentType := ""
	if r.Body != nil {
		if s, ok := r.Body.(string); ok {
			payload = []byte(s)
			contentType = "text/plain"
		} else {
			data, err := json.Marshal(r.Body)
			if err != nil {
				return core.NewAPIError(r.Op, 0, "failed to encode request", err)
			}
			payload = data
			contentType = "application/json"
		}
	}

	resp, body, err := c.execute(ctx, r, payload, contentType)
	if err != nil {
		// a canceled or expired context is the caller's doing, not a
		// connectivity problem
		if ctxErr := ctx.Err(); ctxErr != nil {
			return core.NewAPIError(r.Op, 0, "request canceled", ctxErr)
		}
		c.Logger.Error("Request failed", map[string]interface{}{
			"operation": r.Op,
			"method":    r.Method,
			"path":      r.Path,
			"error":     err.Error(),
		})
		return core.NewAPIError(r.Op, 0, "service unreachable, please check your connection", fmt.Errorf("%w: %v", core.ErrTransport, err))
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := Classify(r.Op, resp.StatusCode, r.Messages)
		c.Logger.Error("Request rejected", map[string]interface{}{
			"operation":   r.Op,
			"method":      r.Method,
			"path":        r.Path,
			"status_code": resp.StatusCode,
		})
		return apiErr
	}

	if r.Out != nil {
		if s, ok := r.Out.(*string); ok {
			*s = string(body)
		} else if len(body) > 0 {
			if err := json.Unmarshal(body, r.Out); err != nil {
				c.Logger.Error("Response parse failed", map[string]interface{}{
					"operation": r.Op,
					"error":     err.Error(),
				})
				return core.NewAPIError(r.Op, resp.StatusCode, "unexpected response from server", err)
			}
		}
	}

	c.Logger.Debug("Request completed", map[string]interface{}{
		"operation":   r.Op,
		"method":      r.Method,
		"status_code": resp.StatusCode,
	})
	return nil
}

// execute performs the HTTP round trips with exponential backoff. The
// response body is fully read and the response closed before returning.
func (c *Client) execute(ctx context.Context, r Request, payload []byte, contentType string) (*http.Response, []byte, error) {
	target := c.BaseURL + r.Path
	if len(r.Query) > 0 {
		target += "?" + r.Query.Encode()
	}

	var lastErr error
	delay := c.Retry.InitialDelay

	for attempt := 0; attempt < c.Retry.MaxAttempts; attempt++ {
		if attempt > 0 {
			c.Logger.Warn("Retrying request", map[string]interface{}{
				"operation":   r.Op,
				"attempt":     attempt + 1,
				"max_retries": c.Retry.MaxAttempts,
				"last_error":  lastErr.Error(),
			})
			timer := time.NewTimer(delay)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, nil, ctx.Err()
			case <-timer.C:
			}
			delay = time.Duration(float64(delay) * c.Retry.BackoffFactor)
			if c.Retry.MaxDelay > 0 && delay > c.Retry.MaxDelay {
				delay = c.Retry.MaxDelay
			}
		}

		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}
		req, err := http.NewRequestWithContext(ctx, r.Method, target, reader)
		if err != nil {
			return nil, nil, err
		}
		if contentType != "" {
			req.Header.Set("Content-Type", contentType)
		}
		req.Header.Set("Accept", "application/json")

		resp, err := c.HTTPClient.Do(req)
		if err != nil {
			lastErr = err
			continue
		}

		body, readErr := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if readErr != nil {
			lastErr = readErr
			continue
		}

		// Retry server-side failures and rate limiting, return everything
		// else to the caller
		if resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests {
			lastErr = fmt.Errorf("server error: status %d", resp.StatusCode)
			if attempt < c.Retry.MaxAttempts-1 {
				continue
			}
			return resp, body, nil
		}

		return resp, body, nil
	}

	return nil, nil, fmt.Errorf("request failed after %d attempts: %w", c.Retry.MaxAttempts, lastErr)
}
