// Package postgrest provides the REST client for the hosted Postgres backend.
// Tables are exposed PostgREST-style under /rest/v1/<table>; this package
// treats everything behind that surface as a black box.
package postgrest

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	neturl "net/url"
	"os"
	"strings"
	"time"
)

const (
	// EnvBackendURL and EnvBackendKey are the environment fallbacks used when
	// the corresponding Config fields are empty.
	EnvBackendURL = "COMMUNITY_BACKEND_URL"
	EnvBackendKey = "COMMUNITY_BACKEND_KEY"

	maxResponseBytes  = 8 << 20  // 8 MiB
	maxErrorBodyBytes = 32 << 10 // 32 KiB
)

// TokenProvider supplies the bearer token for the current request. When it
// returns "", the client falls back to the anonymous API key. The auth
// package's session manager is the usual provider.
type TokenProvider func() string

// Config holds backend client configuration.
type Config struct {
	// URL is the backend project URL, e.g. https://xyz.example.co.
	// Falls back to COMMUNITY_BACKEND_URL.
	URL string

	// APIKey is the anonymous API key sent as the apikey header.
	// Falls back to COMMUNITY_BACKEND_KEY.
	APIKey string

	// Token optionally supplies the signed-in user's access token.
	Token TokenProvider

	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// Client wraps the backend REST API.
type Client struct {
	url        string
	apiKey     string
	token      TokenProvider
	httpClient *http.Client
}

// NewClient creates a new backend REST client.
func NewClient(cfg Config) (*Client, error) {
	url := cfg.URL
	if url == "" {
		url = os.Getenv(EnvBackendURL)
	}
	if url == "" {
		return nil, fmt.Errorf("backend URL is required")
	}

	key := cfg.APIKey
	if key == "" {
		key = os.Getenv(EnvBackendKey)
	}
	if key == "" {
		return nil, fmt.Errorf("backend API key is required")
	}

	parsed, err := neturl.Parse(url)
	if err != nil || parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("backend URL must be a valid URL")
	}
	if parsed.User != nil {
		return nil, fmt.Errorf("backend URL must not include user info")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		transport := http.DefaultTransport
		if base, ok := http.DefaultTransport.(*http.Transport); ok {
			cloned := base.Clone()
			if cloned.TLSClientConfig == nil {
				cloned.TLSClientConfig = &tls.Config{MinVersion: tls.VersionTLS12}
			} else if cloned.TLSClientConfig.MinVersion < tls.VersionTLS12 {
				cloned.TLSClientConfig = cloned.TLSClientConfig.Clone()
				cloned.TLSClientConfig.MinVersion = tls.VersionTLS12
			}
			transport = cloned
		}
		httpClient = &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		}
	}

	return &Client{
		url:        strings.TrimRight(url, "/"),
		apiKey:     key,
		token:      cfg.Token,
		httpClient: httpClient,
	}, nil
}

// SetTokenProvider wires a bearer-token source into the client after
// construction. The DI container uses this to connect the session manager.
func (c *Client) SetTokenProvider(token TokenProvider) {
	c.token = token
}

// BaseURL returns the configured backend project URL, without trailing slash.
func (c *Client) BaseURL() string {
	return c.url
}

// APIKey returns the anonymous API key.
func (c *Client) APIKey() string {
	return c.apiKey
}

// HTTPClient returns the underlying HTTP client, shared with the auth client.
func (c *Client) HTTPClient() *http.Client {
	return c.httpClient
}

// bearer resolves the Authorization token for the next request.
func (c *Client) bearer() string {
	if c.token != nil {
		if tok := c.token(); tok != "" {
			return tok
		}
	}
	return c.apiKey
}

// request makes an HTTP request to a table endpoint and returns the raw body.
func (c *Client) request(ctx context.Context, method, table string, body any, query string, headers map[string]string) ([]byte, error) {
	url := fmt.Sprintf("%s/rest/v1/%s", c.url, neturl.PathEscape(table))
	if query != "" {
		url += "?" + query
	}

	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	req.Header.Set("Authorization", "Bearer "+c.bearer())
	if method != http.MethodGet {
		req.Header.Set("Prefer", "return=representation")
	}
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		msg, truncated, readErr := readLimited(resp.Body, maxErrorBodyBytes)
		if readErr != nil {
			return nil, fmt.Errorf("read error response: %w", readErr)
		}
		text := strings.TrimSpace(string(msg))
		if truncated {
			text += "...(truncated)"
		}
		return nil, &Error{Status: resp.StatusCode, Message: text}
	}

	respBody, truncated, err := readLimited(resp.Body, maxResponseBytes)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	if truncated {
		return nil, fmt.Errorf("response exceeds %d bytes", maxResponseBytes)
	}

	return respBody, nil
}

// readLimited reads at most limit bytes and reports whether the body was cut.
func readLimited(r io.Reader, limit int64) ([]byte, bool, error) {
	data, err := io.ReadAll(io.LimitReader(r, limit+1))
	if err != nil {
		return nil, false, err
	}
	if int64(len(data)) > limit {
		return data[:limit], true, nil
	}
	return data, false, nil
}
