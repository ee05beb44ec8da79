package providers

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/sony/gobreaker"

	"github.com/i474232898/skycast/internal/weather"
)

// DefaultUnsplashBaseURL is the Unsplash API root.
const DefaultUnsplashBaseURL = "https://api.unsplash.com"

// UnsplashProvider implements weather.ImageProvider using Unsplash photo search.
type UnsplashProvider struct {
	name      string
	accessKey string
	baseURL   string
	httpCfg   HTTPClientConfig
	circuit   *gobreaker.CircuitBreaker
}

func NewUnsplashProvider(cfg HTTPClientConfig, accessKey, baseURL string) *UnsplashProvider {
	if baseURL == "" {
		baseURL = DefaultUnsplashBaseURL
	}
	return &UnsplashProvider{
		name:      "unsplash",
		accessKey: accessKey,
		baseURL:   strings.TrimRight(baseURL, "/"),
		httpCfg:   cfg,
		circuit:   newCircuitBreaker("unsplash"),
	}
}

func (p *UnsplashProvider) Name() string {
	return p.name
}

// SearchImage returns the full-size URL of the first landscape photo for query,
// or "" when the search has no results.
func (p *UnsplashProvider) SearchImage(ctx context.Context, query string) (string, error) {
	if p.accessKey == "" {
		return "", fmt.Errorf("%w: unsplash access key is not configured", weather.ErrConfiguration)
	}
	query = strings.TrimSpace(query)
	if query == "" {
		return "", weather.ErrEmptyQuery
	}

	buildRequest := func(ctx context.Context) (*http.Request, error) {
		values := url.Values{}
		values.Set("query", query)
		values.Set("orientation", "landscape")
		values.Set("per_page", "1")
		values.Set("client_id", p.accessKey)

		u := fmt.Sprintf("%s/search/photos?%s", p.baseURL, values.Encode())
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, err
		}
		req.Header.Set("Accept-Version", "v1")
		return req, nil
	}

	resp, err := doRequest(ctx, p.httpCfg, p.circuit, p.name, "search_photos", buildRequest)
	if err != nil {
		return "", err
	}

	var payload struct {
		Results []struct {
			URLs struct {
				Full string `json:"full"`
			} `json:"urls"`
		} `json:"results"`
	}
	if err := decodeJSON(resp, &payload); err != nil {
		return "", err
	}

	if len(payload.Results) == 0 {
		return "", nil
	}
	return payload.Results[0].URLs.Full, nil
}
