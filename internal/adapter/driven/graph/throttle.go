package graph

import (
	"context"
	"io"
	"math/rand"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Graph service-protection limits for Intune reporting workloads. The client
// stays under them proactively rather than relying on 429 responses alone.
const (
	perMinuteLimit = 600
	perSecondLimit = 10
	maxAttempts    = 3

	defaultRetryAfter = 5 * time.Second
	maxJitter         = time.Second
)

// throttleTransport is an http.RoundTripper that enforces the per-second and
// per-minute request budgets with sliding windows, honours Retry-After on
// 429, and retries transient failures (5xx, transport errors) with
// exponential backoff.
type throttleTransport struct {
	base http.RoundTripper

	mu   sync.Mutex
	sent []time.Time // send times within the last minute, oldest first
}

func newThrottleTransport(base http.RoundTripper) *throttleTransport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &throttleTransport{base: base}
}

func (t *throttleTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	for attempt := 1; ; attempt++ {
		if err := t.wait(req.Context()); err != nil {
			return nil, err
		}

		resp, err := t.base.RoundTrip(req)
		if err == nil && resp.StatusCode != http.StatusTooManyRequests && resp.StatusCode < 500 {
			return resp, nil
		}
		if attempt >= maxAttempts {
			return resp, err
		}

		var delay time.Duration
		if err != nil {
			delay = backoff(attempt)
		} else {
			if resp.StatusCode == http.StatusTooManyRequests {
				delay = retryAfter(resp) + jitter()
			} else {
				delay = backoff(attempt)
			}
			// The connection can only be reused once the body is drained.
			_, _ = io.Copy(io.Discard, resp.Body)
			_ = resp.Body.Close()
		}

		if req.Body != nil {
			if req.GetBody == nil {
				return resp, err
			}
			body, bodyErr := req.GetBody()
			if bodyErr != nil {
				return resp, err
			}
			req.Body = body
		}

		if err := sleepCtx(req.Context(), delay); err != nil {
			return nil, err
		}
	}
}

// wait blocks until both sliding windows have room, then records the send.
func (t *throttleTransport) wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		now := time.Now()

		cutoff := now.Add(-time.Minute)
		for len(t.sent) > 0 && t.sent[0].Before(cutoff) {
			t.sent = t.sent[1:]
		}

		var delay time.Duration
		if n := len(t.sent); n >= perMinuteLimit {
			delay = t.sent[n-perMinuteLimit].Add(time.Minute).Sub(now)
		}
		secondAgo := now.Add(-time.Second)
		recent := 0
		for i := len(t.sent) - 1; i >= 0 && !t.sent[i].Before(secondAgo); i-- {
			recent++
		}
		if recent >= perSecondLimit {
			if d := t.sent[len(t.sent)-perSecondLimit].Add(time.Second).Sub(now); d > delay {
				delay = d
			}
		}

		if delay <= 0 {
			t.sent = append(t.sent, now)
			t.mu.Unlock()
			return nil
		}
		t.mu.Unlock()

		if err := sleepCtx(ctx, delay); err != nil {
			return err
		}
	}
}

// retryAfter reads the 429 Retry-After header (delta-seconds form).
func retryAfter(resp *http.Response) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs >= 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return defaultRetryAfter
}

func backoff(attempt int) time.Duration {
	return time.Duration(1<<(attempt-1))*time.Second + jitter()
}

func jitter() time.Duration {
	return time.Duration(rand.Int63n(int64(maxJitter)))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
