package di

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/villagehq/go-community-client/communities"
)

// fakeBackend emulates the data and auth endpoints and counts data-plane
// hits per path so cache behaviour is observable.
type fakeBackend struct {
	t     *testing.T
	token string
	hits  map[string]int
	auths []string
}

func newFakeBackend(t *testing.T) *fakeBackend {
	t.Helper()

	claims := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "u-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	token, err := claims.SignedString([]byte("secret"))
	require.NoError(t, err)

	return &fakeBackend{t: t, token: token, hits: map[string]int{}}
}

func (b *fakeBackend) handler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/auth/v1/token":
			json.NewEncoder(w).Encode(map[string]any{
				"access_token": b.token,
				"token_type":   "bearer",
				"expires_in":   3600,
			})
		case "/auth/v1/logout":
			w.WriteHeader(http.StatusNoContent)
		case "/rest/v1/communities":
			b.hits[r.URL.Path]++
			b.auths = append(b.auths, r.Header.Get("Authorization"))
			json.NewEncoder(w).Encode([]map[string]any{
				{"id": "c-1", "name": "Gardeners", "organizer_id": "u-org", "is_active": true},
			})
		default:
			b.t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
			w.WriteHeader(http.StatusNotFound)
		}
	}
}

func newTestContainer(t *testing.T) (*Container, *fakeBackend) {
	t.Helper()

	backend := newFakeBackend(t)
	srv := httptest.NewServer(backend.handler())
	t.Cleanup(srv.Close)

	container, err := New(Config{
		URL:        srv.URL,
		APIKey:     "anon-key",
		Logger:     zerolog.Nop(),
		HTTPClient: srv.Client(),
	})
	require.NoError(t, err)
	t.Cleanup(container.Close)
	return container, backend
}

func TestContainer_WiresSessionTokenIntoDataPlane(t *testing.T) {
	container, backend := newTestContainer(t)
	ctx := context.Background()

	_, err := container.Communities().Fetch(ctx, communities.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, "Bearer anon-key", backend.auths[0], "anonymous before sign-in")

	_, err = container.Auth().SignInWithPassword(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	_, err = container.Communities().Fetch(ctx, communities.FetchOptions{IncludeDeleted: true})
	require.NoError(t, err)
	assert.Equal(t, "Bearer "+backend.token, backend.auths[1], "session token after sign-in")
}

func TestContainer_CachesReads(t *testing.T) {
	container, backend := newTestContainer(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		list, err := container.Communities().Fetch(ctx, communities.FetchOptions{})
		require.NoError(t, err)
		require.Len(t, list, 1)
	}

	assert.Equal(t, 1, backend.hits["/rest/v1/communities"], "repeat reads are cache hits")
}

func TestContainer_SignOutClearsCache(t *testing.T) {
	container, backend := newTestContainer(t)
	ctx := context.Background()

	_, err := container.Auth().SignInWithPassword(ctx, "ada@example.com", "pw")
	require.NoError(t, err)

	_, err = container.Communities().Fetch(ctx, communities.FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, backend.hits["/rest/v1/communities"])

	require.NoError(t, container.Auth().SignOut(ctx))

	// The cached view belonged to the previous identity; it must be refetched.
	_, err = container.Communities().Fetch(ctx, communities.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 2, backend.hits["/rest/v1/communities"])
}

func TestContainer_CloseDetachesSessionEvents(t *testing.T) {
	container, backend := newTestContainer(t)
	ctx := context.Background()

	_, err := container.Communities().Fetch(ctx, communities.FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, 1, backend.hits["/rest/v1/communities"])

	container.Close()

	// With the subscription gone, sign-out no longer clears the cache.
	_, err = container.Auth().SignInWithPassword(ctx, "ada@example.com", "pw")
	require.NoError(t, err)
	require.NoError(t, container.Auth().SignOut(ctx))

	_, err = container.Communities().Fetch(ctx, communities.FetchOptions{})
	require.NoError(t, err)
	assert.Equal(t, 1, backend.hits["/rest/v1/communities"])
}
