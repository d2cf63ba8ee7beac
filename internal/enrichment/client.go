// Package enrichment talks to the remote flight-data service for the three
// lookups that cannot be answered locally: timezone offsets, terrain
// elevation profiles, and the token exchange that authorizes them.
package enrichment

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultBaseURL     = "https://pgc.api.pwfc.cloud"
	defaultHTTPTimeout = 30 * time.Second

	// elevationBatchSize is the maximum number of positions the service
	// accepts per request.
	elevationBatchSize = 200
)

// ErrUnauthorized reports a missing or rejected access token.
var ErrUnauthorized = errors.New("enrichment: unauthorized")

// Client wraps the enrichment service API.
type Client struct {
	baseURL     string
	accessToken string
	httpClient  *http.Client
}

// Option customizes the enrichment client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the default service base (useful for tests/mocks).
func WithBaseURL(base string) Option {
	return func(c *Client) {
		base = strings.TrimSpace(base)
		if base != "" {
			c.baseURL = strings.TrimRight(base, "/")
		}
	}
}

// WithAccessToken sets the token sent on authorized endpoints.
func WithAccessToken(token string) Option {
	return func(c *Client) {
		c.accessToken = strings.TrimSpace(token)
	}
}

// NewClient constructs an enrichment service client.
func NewClient(opts ...Option) *Client {
	client := &Client{
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: defaultHTTPTimeout},
	}
	for _, opt := range opts {
		opt(client)
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}
	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: defaultHTTPTimeout}
	}
	return client
}

// Authenticate exchanges credentials for an access token.
func (c *Client) Authenticate(ctx context.Context, email, password string) (string, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return "", errors.New("enrichment authenticate: email and password required")
	}
	payload := map[string]string{
		"strategy": "local",
		"email":    email,
		"password": password,
	}
	var result struct {
		AccessToken string `json:"accessToken"`
	}
	if err := c.post(ctx, "/authentication", payload, false, &result); err != nil {
		return "", fmt.Errorf("enrichment authenticate: %w", err)
	}
	if result.AccessToken == "" {
		return "", errors.New("enrichment authenticate: empty token in response")
	}
	c.accessToken = result.AccessToken
	return result.AccessToken, nil
}

// VerifyToken checks that the stored access token is still accepted.
func (c *Client) VerifyToken(ctx context.Context) error {
	if c.accessToken == "" {
		return ErrUnauthorized
	}
	payload := map[string]string{
		"strategy":    "jwt",
		"accessToken": c.accessToken,
	}
	if err := c.post(ctx, "/authentication", payload, false, nil); err != nil {
		return fmt.Errorf("enrichment verify token: %w", ErrUnauthorized)
	}
	return nil
}

// Timezone resolves the UTC offset in hours at a position, optionally for a
// reference instant so historic flights get the offset in force at the
// time. A nil result means the service has no answer for the position.
func (c *Client) Timezone(ctx context.Context, lat, lon float64, ref *time.Time) (*float64, error) {
	payload := map[string]any{
		"lat": lat,
		"lon": lon,
	}
	if ref != nil {
		payload["ref_iso_date"] = ref.UTC().Format(time.RFC3339)
	}
	var result struct {
		GMTOffset *float64 `json:"gmt_offset"`
	}
	if err := c.post(ctx, "/timezone", payload, false, &result); err != nil {
		return nil, fmt.Errorf("enrichment timezone: %w", err)
	}
	return result.GMTOffset, nil
}

// Position is one query point for the elevation endpoint.
type Position struct {
	Latitude  float64 `json:"latitude"`
	Longitude float64 `json:"longitude"`
}

// Elevations resolves terrain elevation for every position, preserving
// order. Requests go out in service-sized batches; any batch failure fails
// the whole lookup so a partial profile is never returned.
func (c *Client) Elevations(ctx context.Context, positions []Position) ([]float64, error) {
	if c.accessToken == "" {
		return nil, ErrUnauthorized
	}
	elevations := make([]float64, 0, len(positions))
	for start := 0; start < len(positions); start += elevationBatchSize {
		end := min(start+elevationBatchSize, len(positions))
		var batch []float64
		if err := c.post(ctx, "/elevations", positions[start:end], true, &batch); err != nil {
			return nil, fmt.Errorf("enrichment elevations: batch at %d: %w", start, err)
		}
		if len(batch) != end-start {
			return nil, fmt.Errorf("enrichment elevations: batch at %d: got %d values for %d positions", start, len(batch), end-start)
		}
		elevations = append(elevations, batch...)
	}
	return elevations, nil
}

func (c *Client) post(ctx context.Context, path string, payload any, authorized bool, result any) error {
	endpoint, err := url.JoinPath(c.baseURL, path)
	if err != nil {
		return fmt.Errorf("build url: %w", err)
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(encoded))
	if err != nil {
		return fmt.Errorf("request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if authorized {
		req.Header.Set("Authorization", "JWT "+c.accessToken)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return ErrUnauthorized
	}
	if resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("http %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if result == nil {
		return nil
	}
	if err := json.Unmarshal(body, result); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
