package shoutouts

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/villagehq/go-community-client/auth"
	"github.com/villagehq/go-community-client/postgrest"
	"github.com/villagehq/go-community-client/users"
)

var testNow = time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)

type fakeSessions struct {
	user *auth.User
}

func (f *fakeSessions) CurrentUser() (*auth.User, error) {
	if f.user == nil {
		return nil, auth.ErrAuthenticationRequired
	}
	return f.user, nil
}

func newTestService(t *testing.T, sessions *fakeSessions, handler http.HandlerFunc) *Service {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	db, err := postgrest.NewClient(postgrest.Config{URL: srv.URL, APIKey: "anon", HTTPClient: srv.Client()})
	require.NoError(t, err)

	profiles := users.NewService(db, sessions, zerolog.Nop())
	svc := NewService(db, sessions, profiles, zerolog.Nop())
	svc.now = func() time.Time { return testNow }
	return svc
}

func writeJSON(t *testing.T, w http.ResponseWriter, v any) {
	t.Helper()
	require.NoError(t, json.NewEncoder(w).Encode(v))
}

func TestService_FetchShoutouts_DefaultExcludesDeleted(t *testing.T) {
	var query url.Values
	svc := newTestService(t, &fakeSessions{}, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/shoutouts":
			query = r.URL.Query()
			writeJSON(t, w, []shoutoutRow{
				{ID: "s-1", FromUserID: "u-1", ToUserID: "u-2", Message: "great talk", IsActive: true, CreatedAt: testNow},
			})
		case "/rest/v1/profiles":
			writeJSON(t, w, []map[string]any{
				{"id": "u-1", "first_name": "Ada"},
				{"id": "u-2", "first_name": "Grace"},
			})
		}
	})

	list, err := svc.FetchShoutouts(context.Background(), FetchOptions{})
	require.NoError(t, err)

	assert.Equal(t, "eq.true", query.Get("is_active"))
	assert.Equal(t, "created_at.desc", query.Get("order"))
	require.Len(t, list, 1)
	require.NotNil(t, list[0].From)
	require.NotNil(t, list[0].To)
	assert.Equal(t, "Ada", list[0].From.FirstName)
	assert.Equal(t, "Grace", list[0].To.FirstName)
}

func TestService_FetchShoutouts_RecipientFilter(t *testing.T) {
	var query url.Values
	svc := newTestService(t, &fakeSessions{}, func(w http.ResponseWriter, r *http.Request) {
		query = r.URL.Query()
		writeJSON(t, w, []shoutoutRow{})
	})

	_, err := svc.FetchShoutouts(context.Background(), FetchOptions{ToUserID: "u-2"})
	require.NoError(t, err)
	assert.Equal(t, "eq.u-2", query.Get("to_user_id"))
}

func TestService_CreateShoutout_SelfRejected(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-1"}}
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		t.Error("self shoutout should not reach the backend")
	})

	_, err := svc.CreateShoutout(context.Background(), CreateShoutoutData{ToUserID: "u-1", Message: "nice"})
	assert.ErrorIs(t, err, ErrSelfShoutout)
}

func TestService_CreateShoutout_SenderIsCaller(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-1"}}

	var inserted shoutoutRow
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&inserted))
		writeJSON(t, w, []shoutoutRow{inserted})
	})

	shoutout, err := svc.CreateShoutout(context.Background(), CreateShoutoutData{ToUserID: "u-2", Message: "nice"})
	require.NoError(t, err)
	assert.Equal(t, "u-1", shoutout.FromUserID)
	assert.True(t, inserted.IsActive)
}

func TestService_CreateThanks_SelfRejected(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-1"}}
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		t.Error("self thanks should not reach the backend")
	})

	_, err := svc.CreateThanks(context.Background(), CreateThanksData{ToUserID: "u-1"})
	assert.ErrorIs(t, err, ErrSelfThanks)
}

func TestService_DeleteShoutout_SenderOnly(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-2"}}
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []shoutoutRow{{ID: "s-1", FromUserID: "u-1", ToUserID: "u-2", IsActive: true}})
	})

	err := svc.DeleteShoutout(context.Background(), "s-1")
	assert.ErrorIs(t, err, ErrNotSender)
}

func TestService_DeleteShoutout_SoftDeletes(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-1"}}

	var patch map[string]any
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(t, w, []shoutoutRow{{ID: "s-1", FromUserID: "u-1", ToUserID: "u-2", IsActive: true}})
		case http.MethodPatch:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			writeJSON(t, w, []shoutoutRow{})
		}
	})

	require.NoError(t, svc.DeleteShoutout(context.Background(), "s-1"))
	assert.Equal(t, false, patch["is_active"])
	assert.NotEmpty(t, patch["deleted_at"])
}

func TestService_DeleteThanks_MissingRowIsAnError(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-1"}}
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []thanksRow{})
	})

	err := svc.DeleteThanks(context.Background(), "missing")
	assert.True(t, postgrest.IsNotFound(err), "want NotFoundError, got %v", err)
}

func TestAttachUsers_RejectsMismatchedSender(t *testing.T) {
	shoutout := shoutoutFromRow(shoutoutRow{ID: "s-1", FromUserID: "u-1", ToUserID: "u-2"})

	err := shoutout.AttachUsers(users.UserInfo{ID: "u-9"}, users.UserInfo{ID: "u-2"})
	var mismatch *MismatchError
	require.ErrorAs(t, err, &mismatch)
	assert.Equal(t, "from_user_id", mismatch.Field)
	assert.Nil(t, shoutout.From)
}
