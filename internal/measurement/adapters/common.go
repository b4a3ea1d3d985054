package adapters

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
)

// backoffConfig controls exponential backoff behaviour.
type backoffConfig struct {
	maxRetries      int
	initialInterval time.Duration
	maxInterval     time.Duration
}

var defaultBackoff = backoffConfig{
	maxRetries:      3,
	initialInterval: 500 * time.Millisecond,
	maxInterval:     5 * time.Second,
}

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

// httpFetcher wraps an HTTP client with retries, exponential backoff and a
// per-upstream circuit breaker.
type httpFetcher struct {
	client  *http.Client
	backoff backoffConfig
	circuit *gobreaker.CircuitBreaker
}

func newHTTPFetcher(client *http.Client, name string) *httpFetcher {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})

	return &httpFetcher{
		client:  client,
		backoff: defaultBackoff,
		circuit: cb,
	}
}

// get fetches url, retrying transient failures until the retry budget is
// spent or the circuit opens.
func (f *httpFetcher) get(ctx context.Context, url string) (*http.Response, error) {
	if f.client == nil {
		return nil, errNoHTTPClient
	}

	var attempt int
	var lastErr error

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return nil, err
		}

		result, err := f.circuit.Execute(func() (interface{}, error) {
			resp, execErr := f.client.Do(req)
			if execErr != nil {
				return nil, execErr
			}

			if resp.StatusCode == http.StatusTooManyRequests {
				resp.Body.Close()
				return nil, errRateLimited
			}
			if resp.StatusCode >= 500 {
				resp.Body.Close()
				return nil, errServerError
			}
			if resp.StatusCode < 200 || resp.StatusCode >= 300 {
				resp.Body.Close()
				return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
			}

			return resp, nil
		})

		if err == nil {
			resp, ok := result.(*http.Response)
			if !ok {
				return nil, fmt.Errorf("unexpected result type from circuit breaker")
			}
			return resp, nil
		}

		// An open circuit means the upstream is known-bad; retrying now
		// would only burn the budget.
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %v", errCircuitOpen, err)
		}

		lastErr = err
		if attempt >= f.backoff.maxRetries {
			return nil, lastErr
		}

		delay := f.backoff.initialInterval * time.Duration(math.Pow(2, float64(attempt)))
		if delay > f.backoff.maxInterval && f.backoff.maxInterval > 0 {
			delay = f.backoff.maxInterval
		}

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
			// next attempt
		}

		attempt++
	}
}
