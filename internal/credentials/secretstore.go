package credentials

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
)

// HTTPSecretStore reads secrets from a remote key-value vault over HTTP.
// GET {base}/secrets/{key} with a bearer token; 404 means absent.
type HTTPSecretStore struct {
	baseURL string
	token   string
	http    *http.Client
}

// NewHTTPSecretStore creates an HTTP-backed secret store client.
func NewHTTPSecretStore(baseURL, token string) *HTTPSecretStore {
	return &HTTPSecretStore{
		baseURL: baseURL,
		token:   token,
		http:    &http.Client{Timeout: 5 * time.Second},
	}
}

// WithHTTPClient overrides the HTTP client (tests).
func (s *HTTPSecretStore) WithHTTPClient(hc *http.Client) *HTTPSecretStore {
	s.http = hc
	return s
}

// Get fetches a secret by key. Returns found=false on 404.
func (s *HTTPSecretStore) Get(ctx context.Context, key string) (string, bool, error) {
	url := fmt.Sprintf("%s/secrets/%s", s.baseURL, key)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", false, eris.Wrap(err, "secretstore: create request")
	}
	req.Header.Set("Authorization", "Bearer "+s.token)

	resp, err := s.http.Do(req)
	if err != nil {
		return "", false, eris.Wrap(err, "secretstore: send request")
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return "", false, nil
	}
	if resp.StatusCode != http.StatusOK {
		return "", false, eris.Errorf("secretstore: unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", false, eris.Wrap(err, "secretstore: read response")
	}

	var payload struct {
		Value string `json:"value"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", false, eris.Wrap(err, "secretstore: unmarshal response")
	}
	if payload.Value == "" {
		return "", false, nil
	}
	return payload.Value, true, nil
}
