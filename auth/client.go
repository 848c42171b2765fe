// Package auth provides the sign-in/sign-out sub-API and the session state
// the rest of the client keys authorization decisions on. The session machine
// has exactly two states, no-session and session-active, driven by the
// sign-in and sign-out events this package emits.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Client calls the backend auth endpoints under /auth/v1.
type Client struct {
	url        string
	apiKey     string
	httpClient *http.Client
}

// ClientConfig configures the auth client.
type ClientConfig struct {
	// URL is the backend project URL, same value the postgrest client uses.
	URL string
	// APIKey is the anonymous API key.
	APIKey string
	// HTTPClient overrides the default HTTP client.
	HTTPClient *http.Client
}

// NewClient creates an auth API client.
func NewClient(cfg ClientConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, fmt.Errorf("auth URL is required")
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("auth API key is required")
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}

	return &Client{
		url:        strings.TrimRight(cfg.URL, "/"),
		apiKey:     cfg.APIKey,
		httpClient: httpClient,
	}, nil
}

type passwordGrant struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInWithPassword exchanges email/password credentials for a session.
func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	var session Session
	err := c.do(ctx, http.MethodPost, "/auth/v1/token?grant_type=password",
		passwordGrant{Email: email, Password: password}, "", &session)
	if err != nil {
		return nil, err
	}
	session.hydrate(time.Now())
	return &session, nil
}

// GetUser fetches the identity behind an access token.
func (c *Client) GetUser(ctx context.Context, accessToken string) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/auth/v1/user", nil, accessToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

// RevokeToken invalidates the session server-side.
func (c *Client) RevokeToken(ctx context.Context, accessToken string) error {
	return c.do(ctx, http.MethodPost, "/auth/v1/logout", nil, accessToken, nil)
}

func (c *Client) do(ctx context.Context, method, path string, body any, bearer string, dest any) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.url+path, reqBody)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("apikey", c.apiKey)
	if bearer == "" {
		bearer = c.apiKey
	}
	req.Header.Set("Authorization", "Bearer "+bearer)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 400 {
		return &APIError{Status: resp.StatusCode, Message: strings.TrimSpace(string(data))}
	}

	if dest == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dest); err != nil {
		return fmt.Errorf("unmarshal auth response: %w", err)
	}
	return nil
}

// APIError is an auth endpoint failure, passed through verbatim.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("auth API error %d: %s", e.Status, e.Message)
}
