package resilience

import (
	"io"
	"net/http"
	"time"
)

// Transport retries requests that fail at the transport level or with a 5xx status and
// refuses to call the target while its breaker is open. Requests with a body are only
// retried when GetBody is set.
type Transport struct {
	Base        http.RoundTripper
	Breaker     *Breaker
	MaxAttempts int
	BaseBackoff time.Duration
	Jitter      float64
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	ctx := req.Context()
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	attempts := t.MaxAttempts
	if attempts <= 0 {
		attempts = 1
	}
	if req.Body != nil && req.Body != http.NoBody && req.GetBody == nil {
		attempts = 1
	}

	for attempt := 1; ; attempt++ {
		if t.Breaker != nil && !t.Breaker.Allow(ctx) {
			return nil, ErrOpenCircuit
		}
		attemptReq, err := rewind(req, attempt)
		if err != nil {
			return nil, err
		}
		resp, err := base.RoundTrip(attemptReq)
		failed := err != nil || resp.StatusCode >= http.StatusInternalServerError
		if t.Breaker != nil {
			t.Breaker.Report(ctx, !failed)
		}
		if !failed || attempt >= attempts {
			return resp, err
		}
		if resp != nil {
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		timer := time.NewTimer(Backoff(t.BaseBackoff, attempt, t.Jitter))
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}
}

func rewind(req *http.Request, attempt int) (*http.Request, error) {
	if attempt == 1 {
		return req, nil
	}
	clone := req.Clone(req.Context())
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, err
		}
		clone.Body = body
	}
	return clone, nil
}
