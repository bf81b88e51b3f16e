package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// maxResponseBytes bounds how much of the receiver's response is read.
const maxResponseBytes = 10 * 1024

// DeliveryResult represents the outcome of one delivery attempt.
type DeliveryResult struct {
	Success      bool
	ResponseCode int
	Error        error
}

// Client delivers signed event payloads to a single configured endpoint.
type Client struct {
	url    string
	secret string
	http   *http.Client
}

// NewClient creates a delivery client for the given endpoint. The secret is
// used to compute the HMAC signature receivers verify.
func NewClient(url, secret string, timeout time.Duration) *Client {
	return &Client{
		url:    url,
		secret: secret,
		http: &http.Client{
			Timeout: timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}
}

// ComputeSignature computes the hex HMAC-SHA256 signature for a payload.
func ComputeSignature(payload []byte, secret string) string {
	h := hmac.New(sha256.New, []byte(secret))
	h.Write(payload)
	return hex.EncodeToString(h.Sum(nil))
}

// Deliver posts the payload to the configured endpoint with an HMAC
// signature. Any 2xx response counts as delivered.
func (c *Client) Deliver(ctx context.Context, payload []byte) DeliveryResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(payload))
	if err != nil {
		return DeliveryResult{Error: fmt.Errorf("failed to create request: %w", err)}
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "Arcana-Webhook/1.0")
	req.Header.Set("X-Arcana-Signature", ComputeSignature(payload, c.secret))
	req.Header.Set("X-Arcana-Signature-Algorithm", "sha256")

	startTime := time.Now()
	resp, err := c.http.Do(req)
	duration := time.Since(startTime)

	if err != nil {
		slog.Warn("audit webhook delivery failed", "url", c.url, "duration", duration, "error", err)
		return DeliveryResult{Error: fmt.Errorf("request failed: %w", err)}
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	success := resp.StatusCode >= 200 && resp.StatusCode < 300
	if !success {
		slog.Warn("audit webhook received non-2xx status",
			"url", c.url,
			"status_code", resp.StatusCode,
			"duration", duration,
		)
	}

	return DeliveryResult{Success: success, ResponseCode: resp.StatusCode}
}

// RetryDelay returns the backoff before the next attempt. Delays grow
// exponentially from one second and cap at sixty.
func RetryDelay(attemptCount int) time.Duration {
	if attemptCount < 0 {
		return time.Second
	}
	if attemptCount > 30 {
		attemptCount = 30
	}

	delay := time.Second * time.Duration(1<<uint(attemptCount))
	if delay > 60*time.Second {
		delay = 60 * time.Second
	}
	return delay
}

// ShouldRetry reports whether another attempt is allowed.
func ShouldRetry(attemptCount, maxRetries int) bool {
	return attemptCount < maxRetries
}
