// Package di wires the client together: one backend connection, one auth
// session manager, one cache, one invalidation dispatcher, and the cached
// services on top. Construct a Container once per configuration and pass it
// down instead of threading each dependency separately.
package di

import (
	"context"
	"net/http"

	"github.com/rs/zerolog"

	"github.com/villagehq/go-community-client/auth"
	"github.com/villagehq/go-community-client/cache"
	"github.com/villagehq/go-community-client/communities"
	"github.com/villagehq/go-community-client/conversations"
	"github.com/villagehq/go-community-client/events"
	"github.com/villagehq/go-community-client/postgrest"
	"github.com/villagehq/go-community-client/querykeys"
	"github.com/villagehq/go-community-client/shoutouts"
	"github.com/villagehq/go-community-client/users"
)

// Config configures the container. URL and APIKey fall back to the same
// environment variables the postgrest client reads.
type Config struct {
	// URL is the backend project URL.
	URL string
	// APIKey is the anonymous API key.
	APIKey string
	// Cache configures the request cache; zero value means defaults.
	Cache cache.Config
	// Logger is the root logger; sub-components log under it.
	Logger zerolog.Logger
	// HTTPClient overrides the HTTP client shared by the data and auth APIs.
	HTTPClient *http.Client
}

// Container holds the singleton instances of every client component. Session
// changes propagate into the cache automatically: signing in invalidates the
// identity views, signing out clears everything cached under the previous
// identity.
type Container struct {
	db          *postgrest.Client
	sessions    *auth.Manager
	cache       cache.CacheService
	invalidator *cache.Invalidator
	unsubscribe func()

	users         *users.Cached
	communities   *communities.Cached
	events        *events.Cached
	conversations *conversations.Cached
	shoutouts     *shoutouts.Cached
}

// New creates a fully wired container.
func New(cfg Config) (*Container, error) {
	if cfg.Cache == (cache.Config{}) {
		cfg.Cache = cache.DefaultConfig()
	}

	db, err := postgrest.NewClient(postgrest.Config{
		URL:        cfg.URL,
		APIKey:     cfg.APIKey,
		HTTPClient: cfg.HTTPClient,
	})
	if err != nil {
		return nil, err
	}

	authClient, err := auth.NewClient(auth.ClientConfig{
		URL:        db.BaseURL(),
		APIKey:     db.APIKey(),
		HTTPClient: db.HTTPClient(),
	})
	if err != nil {
		return nil, err
	}

	sessions := auth.NewManager(authClient, cfg.Logger.With().Str("component", "auth").Logger())
	db.SetTokenProvider(sessions.AccessToken)

	cacheService, err := cache.NewCacheService(cfg.Cache)
	if err != nil {
		return nil, err
	}
	invalidator := cache.NewInvalidator(cacheService, querykeys.Dependencies(), cfg.Logger.With().Str("component", "cache").Logger())

	c := &Container{
		db:          db,
		sessions:    sessions,
		cache:       cacheService,
		invalidator: invalidator,
	}
	c.unsubscribe = sessions.OnAuthStateChange(c.onAuthStateChange)

	log := cfg.Logger

	userSvc := users.NewService(db, sessions, log.With().Str("component", "users").Logger())
	c.users = users.NewCached(userSvc, cacheService, invalidator)

	communitySvc := communities.NewService(db, sessions, userSvc, log.With().Str("component", "communities").Logger())
	c.communities = communities.NewCached(communitySvc, cacheService, invalidator)

	eventSvc := events.NewService(db, sessions, userSvc, log.With().Str("component", "events").Logger())
	c.events = events.NewCached(eventSvc, cacheService, invalidator)

	conversationSvc := conversations.NewService(db, sessions, userSvc, log.With().Str("component", "conversations").Logger())
	c.conversations = conversations.NewCached(conversationSvc, sessions, cacheService, invalidator)

	shoutoutSvc := shoutouts.NewService(db, sessions, userSvc, log.With().Str("component", "shoutouts").Logger())
	c.shoutouts = shoutouts.NewCached(shoutoutSvc, cacheService, invalidator)

	return c, nil
}

// NewWithDefaults creates a container from environment configuration with
// default cache settings and a no-op logger.
func NewWithDefaults() (*Container, error) {
	return New(Config{Logger: zerolog.Nop()})
}

// onAuthStateChange keeps the cache consistent with the session. Cached views
// are scoped to an identity, so a sign-in drops the identity-dependent
// entries and a sign-out drops everything.
func (c *Container) onAuthStateChange(event auth.Event, session *auth.Session) {
	ctx := context.Background()
	switch event {
	case auth.EventSignedIn:
		ref := cache.EntityRef{Kind: querykeys.KindSession}
		if session != nil && session.User.ID != "" {
			ref.ID = session.User.ID
			ref.Related = map[string]string{"user": session.User.ID}
		}
		_ = c.invalidator.OnMutation(ctx, ref)
	case auth.EventSignedOut:
		_ = c.invalidator.Clear(ctx)
	}
}

// Close tears the container down, detaching it from session events.
func (c *Container) Close() {
	if c.unsubscribe != nil {
		c.unsubscribe()
		c.unsubscribe = nil
	}
}

// DB returns the shared backend client.
func (c *Container) DB() *postgrest.Client { return c.db }

// Auth returns the session manager.
func (c *Container) Auth() *auth.Manager { return c.sessions }

// CacheService returns the shared request cache.
func (c *Container) CacheService() cache.CacheService { return c.cache }

// Invalidator returns the invalidation dispatcher.
func (c *Container) Invalidator() *cache.Invalidator { return c.invalidator }

// Users returns the cached profile service.
func (c *Container) Users() *users.Cached { return c.users }

// Communities returns the cached community service.
func (c *Container) Communities() *communities.Cached { return c.communities }

// Events returns the cached event service.
func (c *Container) Events() *events.Cached { return c.events }

// Conversations returns the cached conversation service.
func (c *Container) Conversations() *conversations.Cached { return c.conversations }

// Shoutouts returns the cached shoutout service.
func (c *Container) Shoutouts() *shoutouts.Cached { return c.shoutouts }
