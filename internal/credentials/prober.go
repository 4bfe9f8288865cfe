package credentials

import (
	"context"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// ProviderProber validates candidate keys with a lightweight authenticated
// request against each provider's model-listing endpoint.
type ProviderProber struct {
	openRouterURL string
	geminiURL     string
	http          *http.Client
}

// NewProviderProber creates a prober against the public provider endpoints.
func NewProviderProber() *ProviderProber {
	return &ProviderProber{
		openRouterURL: "https://openrouter.ai/api/v1/models",
		geminiURL:     "https://generativelanguage.googleapis.com/v1beta/models",
		http:          &http.Client{Timeout: 5 * time.Second},
	}
}

// WithEndpoints overrides the probe endpoints (tests).
func (p *ProviderProber) WithEndpoints(openRouterURL, geminiURL string) *ProviderProber {
	p.openRouterURL = openRouterURL
	p.geminiURL = geminiURL
	return p
}

// Probe issues a GET with the candidate key and accepts only a 2xx answer.
func (p *ProviderProber) Probe(ctx context.Context, provider, key string) error {
	var url string
	var authorize func(*http.Request)
	switch provider {
	case "openrouter":
		url = p.openRouterURL
		authorize = func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+key) }
	case "gemini":
		url = p.geminiURL
		authorize = func(r *http.Request) { r.Header.Set("x-goog-api-key", key) }
	default:
		return eris.Errorf("credentials: unknown provider %s", provider)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return eris.Wrap(err, "credentials: create probe request")
	}
	authorize(req)

	resp, err := p.http.Do(req)
	if err != nil {
		return eris.Wrap(err, "credentials: probe request")
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return eris.Errorf("credentials: probe rejected with status %d", resp.StatusCode)
	}
	return nil
}
