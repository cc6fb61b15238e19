package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"
)

const defaultResendBaseURL = "https://api.resend.com"

// ResendClient sends mail through the Resend HTTP API. Transient failures
// (429, 5xx, network errors) are retried with exponential backoff and
// jitter; client errors return immediately.
type ResendClient struct {
	apiKey     string
	baseURL    string
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
}

// NewResendClient builds a client with a sane request timeout.
func NewResendClient(apiKey string) *ResendClient {
	return &ResendClient{
		apiKey:     apiKey,
		baseURL:    defaultResendBaseURL,
		client:     &http.Client{Timeout: 30 * time.Second},
		maxRetries: 3,
		baseDelay:  time.Second,
	}
}

// WithBaseURL overrides the API endpoint, used by tests.
func (c *ResendClient) WithBaseURL(u string) *ResendClient {
	c.baseURL = u
	return c
}

type resendRequest struct {
	From    string            `json:"from"`
	To      []string          `json:"to"`
	Subject string            `json:"subject"`
	Text    string            `json:"text"`
	Headers map[string]string `json:"headers,omitempty"`
}

type resendResponse struct {
	ID string `json:"id"`
}

type resendError struct {
	Name    string `json:"name"`
	Message string `json:"message"`
}

// Send posts the message and returns Resend's message id.
func (c *ResendClient) Send(ctx context.Context, msg *Message) (string, error) {
	from := msg.From
	if msg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", msg.FromName, msg.From)
	}
	payload := resendRequest{
		From:    from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
		Headers: msg.Headers,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(c.backoff(attempt)):
			case <-ctx.Done():
				return "", ctx.Err()
			}
		}

		id, retryable, err := c.post(ctx, body)
		if err == nil {
			return id, nil
		}
		if !retryable || ctx.Err() != nil {
			return "", err
		}
		lastErr = err
	}
	return "", lastErr
}

// post performs one API call. retryable marks transient failures.
func (c *ResendClient) post(ctx context.Context, body []byte) (id string, retryable bool, err error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return "", false, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return "", true, fmt.Errorf("post email: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return "", true, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		retryable = resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500
		var apiErr resendError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Message != "" {
			return "", retryable, fmt.Errorf("resend api %d: %s", resp.StatusCode, apiErr.Message)
		}
		return "", retryable, fmt.Errorf("resend api %d: %s", resp.StatusCode, string(raw))
	}

	var out resendResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return "", false, fmt.Errorf("decode response: %w", err)
	}
	return out.ID, false, nil
}

// backoff doubles the delay per attempt with full jitter, floored so a
// zero roll cannot busy-loop.
func (c *ResendClient) backoff(attempt int) time.Duration {
	d := c.baseDelay << (attempt - 1)
	if d > 30*time.Second {
		d = 30 * time.Second
	}
	jittered := time.Duration(rand.Float64() * float64(d))
	if jittered < 100*time.Millisecond {
		jittered = 100 * time.Millisecond
	}
	return jittered
}
