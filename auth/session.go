package auth

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrAuthenticationRequired is the fixed error every mutating service call
// surfaces when no user is signed in. No write is performed after it.
var ErrAuthenticationRequired = errors.New("authentication required")

// Event is a session state change.
type Event string

const (
	// EventSignedIn fires after a successful sign-in.
	EventSignedIn Event = "SIGNED_IN"
	// EventSignedOut fires after sign-out.
	EventSignedOut Event = "SIGNED_OUT"
)

// User is the authenticated identity as the auth API reports it.
type User struct {
	ID        string     `json:"id"`
	Email     string     `json:"email"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

// Session is an active sign-in: tokens plus the user they belong to.
type Session struct {
	AccessToken  string    `json:"access_token"`
	TokenType    string    `json:"token_type"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresIn    int       `json:"expires_in"`
	User         User      `json:"user"`
	ExpiresAt    time.Time `json:"-"`
}

// hydrate fills the derived fields from the access token claims, falling back
// to the expires_in the token endpoint reported.
func (s *Session) hydrate(now time.Time) {
	claims, err := parseClaims(s.AccessToken)
	if err == nil {
		if s.User.ID == "" {
			s.User.ID = claims.subject
		}
		if s.User.Email == "" {
			s.User.Email = claims.email
		}
		if !claims.expiresAt.IsZero() {
			s.ExpiresAt = claims.expiresAt
			return
		}
	}
	if s.ExpiresIn > 0 {
		s.ExpiresAt = now.Add(time.Duration(s.ExpiresIn) * time.Second)
	}
}

// UserSource is what the entity services depend on to resolve the caller.
// *Manager implements it.
type UserSource interface {
	CurrentUser() (*User, error)
}

type subscriber func(Event, *Session)

// Manager owns the session state machine: {no-session} -> sign-in ->
// {session-active} -> sign-out -> {no-session}. State changes are delivered
// to subscribers; the DI container translates them into cache invalidation.
type Manager struct {
	client *Client
	log    zerolog.Logger

	mu          sync.RWMutex
	session     *Session
	subscribers map[int]subscriber
	nextSubID   int
}

// NewManager creates a session manager over the auth client.
func NewManager(client *Client, log zerolog.Logger) *Manager {
	return &Manager{
		client:      client,
		log:         log,
		subscribers: make(map[int]subscriber),
	}
}

// SignInWithPassword signs in and transitions to session-active.
func (m *Manager) SignInWithPassword(ctx context.Context, email, password string) (*Session, error) {
	m.log.Debug().Str("email", email).Msg("signing in")

	session, err := m.client.SignInWithPassword(ctx, email, password)
	if err != nil {
		m.log.Error().Err(err).Msg("sign-in failed")
		return nil, err
	}

	m.mu.Lock()
	m.session = session
	m.mu.Unlock()

	m.log.Info().Str("user_id", session.User.ID).Msg("signed in")
	m.emit(EventSignedIn, session)
	return session, nil
}

// SignOut revokes the session upstream and transitions to no-session. The
// local state is cleared even when the revoke call fails; the returned error
// only reports the upstream outcome.
func (m *Manager) SignOut(ctx context.Context) error {
	m.mu.Lock()
	session := m.session
	m.session = nil
	m.mu.Unlock()

	if session == nil {
		return nil
	}

	err := m.client.RevokeToken(ctx, session.AccessToken)
	if err != nil {
		m.log.Error().Err(err).Msg("token revoke failed")
	} else {
		m.log.Info().Str("user_id", session.User.ID).Msg("signed out")
	}

	m.emit(EventSignedOut, nil)
	return err
}

// CurrentSession returns a copy of the active session, or nil.
func (m *Manager) CurrentSession() *Session {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil
	}
	copied := *m.session
	return &copied
}

// CurrentUser returns the signed-in user or ErrAuthenticationRequired.
func (m *Manager) CurrentUser() (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return nil, ErrAuthenticationRequired
	}
	user := m.session.User
	return &user, nil
}

// AccessToken returns the active bearer token, or "" in the no-session state.
// Wired into the postgrest client as its TokenProvider.
func (m *Manager) AccessToken() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.session == nil {
		return ""
	}
	return m.session.AccessToken
}

// OnAuthStateChange registers a state-change subscriber and returns its
// unsubscribe function.
func (m *Manager) OnAuthStateChange(fn func(Event, *Session)) func() {
	m.mu.Lock()
	id := m.nextSubID
	m.nextSubID++
	m.subscribers[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subscribers, id)
		m.mu.Unlock()
	}
}

// emit delivers an event outside the lock so subscribers may call back in.
func (m *Manager) emit(event Event, session *Session) {
	m.mu.RLock()
	fns := make([]subscriber, 0, len(m.subscribers))
	for _, fn := range m.subscribers {
		fns = append(fns, fn)
	}
	m.mu.RUnlock()

	for _, fn := range fns {
		fn(event, session)
	}
}
