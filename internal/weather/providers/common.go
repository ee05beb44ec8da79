package providers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/sony/gobreaker"

	"github.com/i474232898/skycast/internal/metrics"
	"github.com/i474232898/skycast/internal/weather"
)

// HTTPClientConfig bundles the shared HTTP client and instrumentation.
type HTTPClientConfig struct {
	Client  *http.Client
	Metrics *metrics.Metrics
}

var (
	errRateLimited  = errors.New("rate limited")
	errServerError  = errors.New("server error")
	errUnexpected   = errors.New("unexpected status code")
	errCircuitOpen  = errors.New("circuit breaker open")
	errNoHTTPClient = errors.New("http client not configured")
)

func newCircuitBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 5,
		Interval:    1 * time.Minute,
		Timeout:     2 * time.Minute,
	})
}

// doRequest executes a single attempt through the circuit breaker.
// A 404 is treated as a healthy upstream answer and surfaces as weather.ErrCityNotFound;
// every other failure surfaces as weather.ErrNetwork.
func doRequest(
	ctx context.Context,
	cfg HTTPClientConfig,
	cb *gobreaker.CircuitBreaker,
	provider, endpoint string,
	buildRequest func(ctx context.Context) (*http.Request, error),
) (*http.Response, error) {
	if cfg.Client == nil {
		return nil, fmt.Errorf("%w: %v", weather.ErrConfiguration, errNoHTTPClient)
	}

	req, err := buildRequest(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: build %s request: %v", weather.ErrNetwork, endpoint, err)
	}

	start := time.Now()
	result, err := cb.Execute(func() (interface{}, error) {
		resp, execErr := cfg.Client.Do(req)
		if execErr != nil {
			return nil, execErr
		}

		switch {
		case resp.StatusCode == http.StatusNotFound:
			return resp, nil
		case resp.StatusCode == http.StatusTooManyRequests:
			drainAndClose(resp)
			return nil, errRateLimited
		case resp.StatusCode >= 500:
			drainAndClose(resp)
			return nil, fmt.Errorf("%w: %d", errServerError, resp.StatusCode)
		case resp.StatusCode < 200 || resp.StatusCode >= 300:
			drainAndClose(resp)
			return nil, fmt.Errorf("%w: %d", errUnexpected, resp.StatusCode)
		}
		return resp, nil
	})
	elapsed := time.Since(start).Seconds()

	if err != nil {
		cfg.Metrics.ObserveUpstream(provider, endpoint, "error", elapsed)
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%w: %s %s: %v: %v", weather.ErrNetwork, provider, endpoint, errCircuitOpen, err)
		}
		return nil, fmt.Errorf("%w: %s %s: %v", weather.ErrNetwork, provider, endpoint, err)
	}

	resp, ok := result.(*http.Response)
	if !ok {
		cfg.Metrics.ObserveUpstream(provider, endpoint, "error", elapsed)
		return nil, fmt.Errorf("%w: unexpected result type from circuit breaker", weather.ErrNetwork)
	}
	if resp.StatusCode == http.StatusNotFound {
		drainAndClose(resp)
		cfg.Metrics.ObserveUpstream(provider, endpoint, "not_found", elapsed)
		return nil, fmt.Errorf("%w: %s %s", weather.ErrCityNotFound, provider, endpoint)
	}

	cfg.Metrics.ObserveUpstream(provider, endpoint, "ok", elapsed)
	return resp, nil
}

func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("%w: decode response: %v", weather.ErrNetwork, err)
	}
	return nil
}

func drainAndClose(resp *http.Response) {
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
	_ = resp.Body.Close()
}
