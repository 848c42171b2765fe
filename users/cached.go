package users

import (
	"context"

	"github.com/villagehq/go-community-client/cache"
	"github.com/villagehq/go-community-client/querykeys"
)

// Cached wraps the profile service with keyed read-through caching and
// dependency-table invalidation.
type Cached struct {
	svc   *Service
	cache cache.CacheService
	inv   *cache.Invalidator
}

// NewCached creates the cached profile service.
func NewCached(svc *Service, cacheService cache.CacheService, inv *cache.Invalidator) *Cached {
	return &Cached{svc: svc, cache: cacheService, inv: inv}
}

// Fetch lists profiles through the cache.
func (c *Cached) Fetch(ctx context.Context, opts FetchOptions) ([]User, error) {
	return cache.GetOrFetch(ctx, c.cache, querykeys.UserList(opts), func(ctx context.Context) ([]User, error) {
		return c.svc.Fetch(ctx, opts)
	})
}

// FetchByID returns one profile through the cache.
func (c *Cached) FetchByID(ctx context.Context, id string) (*User, error) {
	return cache.GetOrFetch(ctx, c.cache, querykeys.UserProfile(id), func(ctx context.Context) (*User, error) {
		return c.svc.FetchByID(ctx, id)
	})
}

// FetchCurrent resolves the caller locally, then reads their profile through
// the per-user cache key.
func (c *Cached) FetchCurrent(ctx context.Context) (*User, error) {
	caller, err := c.svc.sessions.CurrentUser()
	if err != nil {
		return nil, err
	}
	return c.FetchByID(ctx, caller.ID)
}

// Update applies a profile update and invalidates the profile's cached views.
func (c *Cached) Update(ctx context.Context, id string, patch UpdateProfileData) (*User, error) {
	user, err := c.svc.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if err := c.inv.OnMutation(ctx, cache.EntityRef{Kind: querykeys.KindProfile, ID: id}); err != nil {
		return nil, err
	}
	return user, nil
}
