package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/graaaaa/suiticket-companion/internal/appinfo"
	"github.com/graaaaa/suiticket-companion/internal/config"
	"github.com/graaaaa/suiticket-companion/internal/version"
)

// SendResult is the outcome of one webhook delivery.
type SendResult int

const (
	SendOK SendResult = iota
	// SendRetryable covers 429, 5xx and network errors.
	SendRetryable
	// SendFatal covers other 4xx and misconfiguration. The notifier
	// disables itself on it.
	SendFatal
)

func (r SendResult) String() string {
	switch r {
	case SendOK:
		return "ok"
	case SendRetryable:
		return "retryable"
	case SendFatal:
		return "fatal"
	}
	return "unknown"
}

// maxErrorBody bounds how much of an error response is read.
const maxErrorBody = 4 << 10

// Sender delivers one payload. A positive duration is the server's
// requested wait before the next attempt.
type Sender interface {
	Send(ctx context.Context, payload DiscordPayload) (SendResult, time.Duration)
}

// DiscordSender posts payloads to a Discord webhook.
type DiscordSender struct {
	webhookURL config.Secret
	client     *http.Client
	userAgent  string
	logger     *slog.Logger
}

// SenderOption configures a DiscordSender.
type SenderOption func(*DiscordSender)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) SenderOption {
	return func(s *DiscordSender) { s.client = client }
}

// WithSenderLogger sets the logger.
func WithSenderLogger(logger *slog.Logger) SenderOption {
	return func(s *DiscordSender) { s.logger = logger }
}

// NewDiscordSender creates a sender. The URL stays a Secret so it logs
// redacted.
func NewDiscordSender(webhookURL config.Secret, opts ...SenderOption) *DiscordSender {
	s := &DiscordSender{
		webhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
		userAgent:  appinfo.AppName + " (" + version.String() + ")",
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send implements Sender.
func (s *DiscordSender) Send(ctx context.Context, payload DiscordPayload) (SendResult, time.Duration) {
	if s.webhookURL.IsEmpty() {
		s.logger.Warn("webhook url not configured")
		return SendFatal, 0
	}

	body, err := json.Marshal(payload)
	if err != nil {
		s.logger.Error("failed to marshal webhook payload", "error", err)
		return SendFatal, 0
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.webhookURL.Value(), bytes.NewReader(body))
	if err != nil {
		s.logger.Error("failed to create webhook request", "webhook_url", s.webhookURL, "error", err)
		return SendFatal, 0
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", s.userAgent)

	resp, err := s.client.Do(req)
	if err != nil {
		s.logger.Warn("webhook request failed", "error", err)
		return SendRetryable, 0
	}
	defer resp.Body.Close()

	var errBody []byte
	if resp.StatusCode >= 400 {
		errBody, _ = io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	}
	// Drain for connection reuse
	_, _ = io.Copy(io.Discard, resp.Body)

	result, wait := classifyResponse(resp.StatusCode, resp.Header, errBody)
	switch result {
	case SendOK:
		s.logger.Debug("webhook delivered", "status", resp.StatusCode)
	case SendFatal:
		s.logger.Error("webhook rejected", "status", resp.StatusCode, "webhook_url", s.webhookURL)
	default:
		s.logger.Warn("webhook delivery deferred", "status", resp.StatusCode, "retry_after", wait)
	}
	return result, wait
}

// classifyResponse maps a webhook response to a SendResult. For 429 the
// wait comes from Retry-After, then X-RateLimit-Reset-After, then the
// JSON body's retry_after.
func classifyResponse(status int, h http.Header, body []byte) (SendResult, time.Duration) {
	switch {
	case status >= 200 && status < 300:
		return SendOK, 0
	case status == http.StatusTooManyRequests:
		wait := parseRetryAfter(h.Get("Retry-After"))
		if wait == 0 {
			wait = parseRetryAfter(h.Get("X-RateLimit-Reset-After"))
		}
		if wait == 0 {
			var rl struct {
				RetryAfter float64 `json:"retry_after"`
			}
			if json.Unmarshal(body, &rl) == nil && rl.RetryAfter > 0 {
				wait = time.Duration(rl.RetryAfter * float64(time.Second))
			}
		}
		return SendRetryable, wait
	case status >= 400 && status < 500:
		return SendFatal, 0
	default:
		return SendRetryable, 0
	}
}

// parseRetryAfter reads whole or fractional seconds.
func parseRetryAfter(v string) time.Duration {
	if v == "" {
		return 0
	}
	if secs, err := strconv.Atoi(v); err == nil {
		return time.Duration(secs) * time.Second
	}
	if secs, err := strconv.ParseFloat(v, 64); err == nil && secs > 0 {
		return time.Duration(secs * float64(time.Second))
	}
	return 0
}
