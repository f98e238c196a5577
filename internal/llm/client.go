package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Backend is the uniform request/response contract the agent loop depends on.
// Implementations: the HTTP Client (remote inference API) and LocalBackend
// (local inference process).
type Backend interface {
	Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error)
}

// AuthError reports a credential failure (HTTP 401/403). It is never retried
// and the agent loop treats it as fatal to the session.
type AuthError struct {
	StatusCode int
	Body       string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("authentication failed (HTTP %d): %s", e.StatusCode, e.Body)
}

type Client struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewClient creates a chat-completions client. proxyURL may be empty; when
// set, outbound requests go through it.
func NewClient(baseURL, apiKey, proxyURL string) (*Client, error) {
	transport := &http.Transport{
		DisableKeepAlives: true, // Disable connection reuse to avoid EOF issues
	}
	if proxyURL != "" {
		parsed, err := url.Parse(proxyURL)
		if err != nil {
			return nil, fmt.Errorf("parse proxy url: %w", err)
		}
		transport.Proxy = http.ProxyURL(parsed)
	}
	return &Client{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Transport: transport},
	}, nil
}

// isRetryableStatus returns true if the status code should trigger a retry.
// 429 = rate limited, 5xx = server errors.
func isRetryableStatus(statusCode int) bool {
	return statusCode == 429 || statusCode >= 500
}

func (c *Client) Chat(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	const maxRetries = 5
	baseDelay := 1 * time.Second
	maxDelay := 32 * time.Second

	var lastErr error

	for attempt := 0; attempt <= maxRetries; attempt++ {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		// Exponential backoff before each retry
		if attempt > 0 {
			delay := baseDelay * time.Duration(1<<(attempt-1))
			if delay > maxDelay {
				delay = maxDelay
			}
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		if c.apiKey != "" {
			httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
		}

		resp, err := c.client.Do(httpReq)
		if err != nil {
			// Surface cancellation as-is so the loop can classify it
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			lastErr = fmt.Errorf("execute request: %w", err)
			continue // network errors are retryable
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			lastErr = fmt.Errorf("read response: %w", readErr)
			continue
		}

		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			return nil, &AuthError{StatusCode: resp.StatusCode, Body: bodyPreview(respBody)}
		}

		if resp.StatusCode != http.StatusOK {
			lastErr = fmt.Errorf("API error %d: %s", resp.StatusCode, bodyPreview(respBody))
			if isRetryableStatus(resp.StatusCode) && attempt < maxRetries {
				continue
			}
			return nil, lastErr
		}

		var chatResp ChatResponse
		if err := json.Unmarshal(respBody, &chatResp); err != nil {
			return nil, fmt.Errorf("decode response: %w (body preview: %s)", err, bodyPreview(respBody))
		}
		return &chatResp, nil
	}

	return nil, fmt.Errorf("after %d retries: %w", maxRetries, lastErr)
}

// bodyPreview truncates a response body for error messages.
func bodyPreview(body []byte) string {
	const limit = 500
	if len(body) > limit {
		return string(body[:limit]) + "..."
	}
	return string(body)
}
