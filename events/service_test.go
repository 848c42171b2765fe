package events

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
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

func eventAt(id, organizerID string, startsAt time.Time, capacity *int, attendees int) eventRow {
	return eventRow{
		ID:            id,
		Title:         "Seed swap",
		OrganizerID:   organizerID,
		CommunityID:   "c-1",
		StartsAt:      startsAt,
		EndsAt:        startsAt.Add(2 * time.Hour),
		Capacity:      capacity,
		AttendeeCount: attendees,
		IsActive:      true,
		CreatedAt:     testNow.Add(-24 * time.Hour),
		UpdatedAt:     testNow.Add(-24 * time.Hour),
	}
}

func TestService_Fetch_UpcomingOnly(t *testing.T) {
	svc := newTestService(t, &fakeSessions{}, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []eventRow{
			eventAt("e-past", "u-org", testNow.Add(-time.Hour), nil, 0),
			eventAt("e-future", "u-org", testNow.Add(time.Hour), nil, 0),
		})
	})

	events, err := svc.Fetch(context.Background(), FetchOptions{UpcomingOnly: true})
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "e-future", events[0].ID)
}

func TestService_Create_RejectsEndBeforeStart(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-1"}}
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		t.Error("invalid input should not reach the backend")
	})

	_, err := svc.Create(context.Background(), CreateEventData{
		Title:       "Seed swap",
		CommunityID: "c-1",
		StartsAt:    testNow.Add(2 * time.Hour),
		EndsAt:      testNow.Add(time.Hour),
	})
	assert.Error(t, err)
}

func TestService_Create_CallerBecomesOrganizer(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-1"}}

	var inserted eventRow
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&inserted))
		writeJSON(t, w, []eventRow{inserted})
	})

	event, err := svc.Create(context.Background(), CreateEventData{
		Title:       "Seed swap",
		CommunityID: "c-1",
		StartsAt:    testNow.Add(time.Hour),
		EndsAt:      testNow.Add(3 * time.Hour),
	})
	require.NoError(t, err)
	assert.Equal(t, "u-1", event.OrganizerID)
	assert.True(t, inserted.IsActive)
}

func TestService_Update_OrganizerOnly(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-other"}}
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []eventRow{eventAt("e-1", "u-org", testNow.Add(time.Hour), nil, 0)})
	})

	title := "Renamed"
	_, err := svc.Update(context.Background(), "e-1", UpdateEventData{Title: &title})
	assert.ErrorIs(t, err, ErrNotOrganizer)
}

func TestService_Join_FullEventRejected(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-1"}}
	capacity := 10
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []eventRow{eventAt("e-1", "u-org", testNow.Add(time.Hour), &capacity, 10)})
	})

	_, err := svc.Join(context.Background(), "e-1")
	assert.ErrorIs(t, err, ErrEventFull)
}

func TestService_Join_NoCapacityLimitAdmitsAnyone(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-1"}}
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.URL.Path == "/rest/v1/events":
			writeJSON(t, w, []eventRow{eventAt("e-1", "u-org", testNow.Add(time.Hour), nil, 5000)})
		case r.Method == http.MethodGet:
			writeJSON(t, w, []attendanceRow{})
		default:
			var row attendanceRow
			require.NoError(t, json.NewDecoder(r.Body).Decode(&row))
			writeJSON(t, w, []attendanceRow{row})
		}
	})

	attendance, err := svc.Join(context.Background(), "e-1")
	require.NoError(t, err)
	assert.Equal(t, "u-1", attendance.UserID)
	assert.Equal(t, "e-1", attendance.EventID)
}

func TestService_Join_DuplicateRejected(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-1"}}
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/events":
			writeJSON(t, w, []eventRow{eventAt("e-1", "u-org", testNow.Add(time.Hour), nil, 1)})
		case "/rest/v1/event_attendees":
			writeJSON(t, w, []attendanceRow{{ID: "a-1", EventID: "e-1", UserID: "u-1"}})
		}
	})

	_, err := svc.Join(context.Background(), "e-1")
	assert.ErrorIs(t, err, ErrAlreadyAttending)
}

func TestService_Leave_NotAttendingRejected(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-1"}}
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		writeJSON(t, w, []attendanceRow{})
	})

	_, err := svc.Leave(context.Background(), "e-1")
	assert.ErrorIs(t, err, ErrNotAttending)
}

func TestService_FetchAttendees_EmbedsProfiles(t *testing.T) {
	svc := newTestService(t, &fakeSessions{}, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/rest/v1/event_attendees":
			writeJSON(t, w, []attendanceRow{{ID: "a-1", EventID: "e-1", UserID: "u-1", RegisteredAt: testNow}})
		case "/rest/v1/profiles":
			writeJSON(t, w, []map[string]any{{"id": "u-1", "first_name": "Ada"}})
		}
	})

	attendees, err := svc.FetchAttendees(context.Background(), "e-1")
	require.NoError(t, err)
	require.Len(t, attendees, 1)
	require.NotNil(t, attendees[0].Attendee)
	assert.Equal(t, "Ada", attendees[0].Attendee.FirstName)
}

func TestService_Delete_SoftDeletes(t *testing.T) {
	sessions := &fakeSessions{user: &auth.User{ID: "u-org"}}

	var patch map[string]any
	svc := newTestService(t, sessions, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			writeJSON(t, w, []eventRow{eventAt("e-1", "u-org", testNow.Add(time.Hour), nil, 0)})
		case http.MethodPatch:
			require.NoError(t, json.NewDecoder(r.Body).Decode(&patch))
			writeJSON(t, w, []eventRow{})
		}
	})

	require.NoError(t, svc.Delete(context.Background(), "e-1"))
	assert.Equal(t, false, patch["is_active"])
	assert.NotEmpty(t, patch["deleted_at"])
}
