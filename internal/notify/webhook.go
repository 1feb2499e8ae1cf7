package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
)

// WebhookNotifier posts messages as signed JSON to a single endpoint.
type WebhookNotifier struct {
	URL    string
	Secret string
	Client *http.Client
	Now    func() time.Time
}

type webhookPayload struct {
	ID      string    `json:"id"`
	To      string    `json:"to"`
	Message string    `json:"message"`
	SentAt  time.Time `json:"sentAt"`
}

// Send implements Notifier. Any non-2xx response is reported as an error.
func (n WebhookNotifier) Send(ctx context.Context, to, message string) error {
	ctx, span := otel.Tracer("notify.WebhookNotifier").Start(ctx, "WebhookNotifier.Send")
	defer span.End()

	if err := ValidateURL(n.URL); err != nil {
		span.RecordError(err)
		return err
	}
	now := time.Now
	if n.Now != nil {
		now = n.Now
	}
	sentAt := now().UTC()
	payload := webhookPayload{ID: uuid.NewString(), To: to, Message: message, SentAt: sentAt}
	body, err := json.Marshal(payload)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("webhook notify: encode: %w", err)
	}
	span.SetAttributes(attribute.String("notify.message_id", payload.ID))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.URL, bytes.NewReader(body))
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("webhook notify: build request: %w", err)
	}
	ts := sentAt.Unix()
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "pricing-pipeline-notify/1.0")
	req.Header.Set("X-Message-ID", payload.ID)
	req.Header.Set("X-Timestamp", strconv.FormatInt(ts, 10))
	if n.Secret != "" {
		req.Header.Set("X-Signature", ComputeSignature(n.Secret, ts, payload.ID, body))
	}

	client := n.Client
	if client == nil {
		client = HTTPClient(5*time.Second, nil)
	}
	resp, err := client.Do(req)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("webhook notify: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	_, _ = io.Copy(io.Discard, resp.Body)
	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook notify: unexpected status %d", resp.StatusCode)
	}
	return nil
}

// ComputeSignature calculates the webhook signature: HMAC-SHA256 over
// "<ts>.<messageID>.<body>" keyed with the shared secret.
func ComputeSignature(secret string, ts int64, messageID string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(strconv.FormatInt(ts, 10)))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write([]byte(messageID))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// HTTPClient returns an HTTP client with tracing instrumentation for webhook delivery.
// base defaults to http.DefaultTransport; timeout bounds the whole delivery including retries.
func HTTPClient(timeout time.Duration, base http.RoundTripper) *http.Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	if base == nil {
		base = http.DefaultTransport
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(base),
	}
}

// ValidateURL accepts https endpoints, and plain http only for local hosts.
func ValidateURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("invalid webhook url: %w", err)
	}
	if parsed.Scheme != "https" && parsed.Scheme != "http" {
		return errors.New("webhook url must be http or https")
	}
	if parsed.Host == "" {
		return errors.New("webhook url must include host")
	}
	if parsed.Scheme == "http" {
		host := parsed.Hostname()
		if host != "localhost" && host != "127.0.0.1" {
			return errors.New("http webhook only allowed for localhost")
		}
	}
	return nil
}
