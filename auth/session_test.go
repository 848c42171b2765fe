package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rs/zerolog"
)

func signedToken(t *testing.T, subject, email string, expiresAt time.Time) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, accessTokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: email,
	})
	signed, err := token.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func newTestManager(t *testing.T, handler http.HandlerFunc) *Manager {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	client, err := NewClient(ClientConfig{URL: srv.URL, APIKey: "anon-key", HTTPClient: srv.Client()})
	require.NoError(t, err)
	return NewManager(client, zerolog.Nop())
}

func authHandler(t *testing.T, accessToken string, revoked *bool) http.HandlerFunc {
	t.Helper()

	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			assert.Equal(t, "password", r.URL.Query().Get("grant_type"))
			var grant struct {
				Email    string `json:"email"`
				Password string `json:"password"`
			}
			require.NoError(t, json.NewDecoder(r.Body).Decode(&grant))
			if grant.Password != "correct" {
				w.WriteHeader(http.StatusBadRequest)
				w.Write([]byte(`{"error":"invalid_grant"}`))
				return
			}
			json.NewEncoder(w).Encode(map[string]any{
				"access_token":  accessToken,
				"token_type":    "bearer",
				"refresh_token": "refresh-1",
				"expires_in":    3600,
			})
		case "/auth/v1/logout":
			if revoked != nil {
				*revoked = true
			}
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func TestManager_SignInWithPassword(t *testing.T) {
	expiresAt := time.Now().Add(time.Hour).Truncate(time.Second)
	token := signedToken(t, "u-1", "ada@example.com", expiresAt)
	m := newTestManager(t, authHandler(t, token, nil))

	session, err := m.SignInWithPassword(context.Background(), "ada@example.com", "correct")
	require.NoError(t, err)

	// Identity comes out of the token claims, not the response body.
	assert.Equal(t, "u-1", session.User.ID)
	assert.Equal(t, "ada@example.com", session.User.Email)
	assert.WithinDuration(t, expiresAt, session.ExpiresAt, time.Second)

	assert.Equal(t, token, m.AccessToken())

	user, err := m.CurrentUser()
	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
}

func TestManager_SignInFailureKeepsNoSession(t *testing.T) {
	m := newTestManager(t, authHandler(t, "unused", nil))

	_, err := m.SignInWithPassword(context.Background(), "ada@example.com", "wrong")
	require.Error(t, err)

	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)

	assert.Nil(t, m.CurrentSession())
	assert.Empty(t, m.AccessToken())
}

func TestManager_CurrentUserRequiresSession(t *testing.T) {
	m := newTestManager(t, authHandler(t, "unused", nil))

	_, err := m.CurrentUser()
	assert.ErrorIs(t, err, ErrAuthenticationRequired)
}

func TestManager_SignOut(t *testing.T) {
	revoked := false
	token := signedToken(t, "u-1", "ada@example.com", time.Now().Add(time.Hour))
	m := newTestManager(t, authHandler(t, token, &revoked))

	_, err := m.SignInWithPassword(context.Background(), "ada@example.com", "correct")
	require.NoError(t, err)

	require.NoError(t, m.SignOut(context.Background()))
	assert.True(t, revoked)
	assert.Nil(t, m.CurrentSession())
	assert.Empty(t, m.AccessToken())

	// Signing out with no session is a no-op.
	assert.NoError(t, m.SignOut(context.Background()))
}

func TestManager_SignOutClearsLocallyOnRevokeFailure(t *testing.T) {
	token := signedToken(t, "u-1", "ada@example.com", time.Now().Add(time.Hour))
	m := newTestManager(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/auth/v1/logout" {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		authHandler(t, token, nil)(w, r)
	})

	_, err := m.SignInWithPassword(context.Background(), "ada@example.com", "correct")
	require.NoError(t, err)

	err = m.SignOut(context.Background())
	assert.Error(t, err, "upstream failure is reported")
	assert.Nil(t, m.CurrentSession(), "local state is cleared anyway")
}

func TestManager_OnAuthStateChange(t *testing.T) {
	token := signedToken(t, "u-1", "ada@example.com", time.Now().Add(time.Hour))
	m := newTestManager(t, authHandler(t, token, nil))

	var events []Event
	var sessions []*Session
	unsubscribe := m.OnAuthStateChange(func(event Event, session *Session) {
		events = append(events, event)
		sessions = append(sessions, session)
	})

	_, err := m.SignInWithPassword(context.Background(), "ada@example.com", "correct")
	require.NoError(t, err)
	require.NoError(t, m.SignOut(context.Background()))

	require.Equal(t, []Event{EventSignedIn, EventSignedOut}, events)
	require.NotNil(t, sessions[0])
	assert.Equal(t, "u-1", sessions[0].User.ID)
	assert.Nil(t, sessions[1])

	// After unsubscribing nothing more is delivered.
	unsubscribe()
	_, err = m.SignInWithPassword(context.Background(), "ada@example.com", "correct")
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestParseClaims_BadToken(t *testing.T) {
	_, err := parseClaims("not-a-jwt")
	assert.Error(t, err)
}
