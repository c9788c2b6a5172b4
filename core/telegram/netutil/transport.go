package netutil

import (
	"net/http"
	"time"
)

// RetryTransport repeats requests that failed with a ShouldRetry error. A
// request whose body cannot be replayed (no GetBody) is tried once.
type RetryTransport struct {
	Base       http.RoundTripper
	MaxRetries int
	// Backoff is multiplied by the attempt number between tries.
	Backoff time.Duration
}

func (t *RetryTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	replayable := req.Body == nil || req.Body == http.NoBody || req.GetBody != nil

	for attempt := 1; ; attempt++ {
		resp, err := base.RoundTrip(req)
		if err == nil || !replayable || attempt > t.MaxRetries || !ShouldRetry(err) {
			return resp, err
		}

		if delay := t.Backoff * time.Duration(attempt); delay > 0 {
			timer := time.NewTimer(delay)
			select {
			case <-req.Context().Done():
				timer.Stop()
				return nil, req.Context().Err()
			case <-timer.C:
			}
		}

		next := req.Clone(req.Context())
		if req.GetBody != nil {
			body, berr := req.GetBody()
			if berr != nil {
				return nil, berr
			}
			next.Body = body
		}
		req = next
	}
}
