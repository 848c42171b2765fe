package communities

import (
	"context"

	"github.com/villagehq/go-community-client/cache"
	"github.com/villagehq/go-community-client/querykeys"
)

// Cached wraps the community service with keyed read-through caching and
// dependency-table invalidation. Mutations report what they touched; the
// invalidator expands that through the declared table, so this layer never
// enumerates keys by hand.
type Cached struct {
	svc   *Service
	cache cache.CacheService
	inv   *cache.Invalidator
}

// NewCached creates the cached community service.
func NewCached(svc *Service, cacheService cache.CacheService, inv *cache.Invalidator) *Cached {
	return &Cached{svc: svc, cache: cacheService, inv: inv}
}

// Fetch lists communities through the cache.
func (c *Cached) Fetch(ctx context.Context, opts FetchOptions) ([]Community, error) {
	return cache.GetOrFetch(ctx, c.cache, querykeys.CommunityList(opts), func(ctx context.Context) ([]Community, error) {
		return c.svc.Fetch(ctx, opts)
	})
}

// FetchByID returns one community through the cache.
func (c *Cached) FetchByID(ctx context.Context, id string) (*Community, error) {
	return cache.GetOrFetch(ctx, c.cache, querykeys.Community(id), func(ctx context.Context) (*Community, error) {
		return c.svc.FetchByID(ctx, id)
	})
}

// FetchMembers lists a community's memberships through the cache.
func (c *Cached) FetchMembers(ctx context.Context, communityID string) ([]Membership, error) {
	return cache.GetOrFetch(ctx, c.cache, querykeys.CommunityMembers(communityID), func(ctx context.Context) ([]Membership, error) {
		return c.svc.FetchMembers(ctx, communityID)
	})
}

// FetchUserMemberships lists a user's memberships through the cache.
func (c *Cached) FetchUserMemberships(ctx context.Context, userID string) ([]Membership, error) {
	return cache.GetOrFetch(ctx, c.cache, querykeys.UserMemberships(userID), func(ctx context.Context) ([]Membership, error) {
		return c.svc.FetchUserMemberships(ctx, userID)
	})
}

// Create inserts a community and invalidates its dependent views, including
// the creator's membership views (the organizer membership row is written in
// the same operation).
func (c *Cached) Create(ctx context.Context, data CreateCommunityData) (*Community, error) {
	community, err := c.svc.Create(ctx, data)
	if err != nil {
		return nil, err
	}
	err = c.inv.OnMutation(ctx, cache.EntityRef{
		Kind: querykeys.KindMembership,
		ID:   community.ID,
		Related: map[string]string{
			"community": community.ID,
			"user":      community.OrganizerID,
		},
	})
	if err != nil {
		return nil, err
	}
	return community, nil
}

// Update applies a community update and invalidates its dependent views.
func (c *Cached) Update(ctx context.Context, id string, patch UpdateCommunityData) (*Community, error) {
	community, err := c.svc.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if err := c.inv.OnMutation(ctx, cache.EntityRef{Kind: querykeys.KindCommunity, ID: id}); err != nil {
		return nil, err
	}
	return community, nil
}

// Delete soft-deletes a community and invalidates its dependent views.
func (c *Cached) Delete(ctx context.Context, id string) error {
	if err := c.svc.Delete(ctx, id); err != nil {
		return err
	}
	return c.inv.OnMutation(ctx, cache.EntityRef{Kind: querykeys.KindCommunity, ID: id})
}

// Join adds the caller to a community and invalidates both the community's
// and the caller's membership views.
func (c *Cached) Join(ctx context.Context, communityID string) (*Membership, error) {
	membership, err := c.svc.Join(ctx, communityID)
	if err != nil {
		return nil, err
	}
	err = c.inv.OnMutation(ctx, cache.EntityRef{
		Kind: querykeys.KindMembership,
		ID:   membership.ID,
		Related: map[string]string{
			"community": membership.CommunityID,
			"user":      membership.UserID,
		},
	})
	if err != nil {
		return nil, err
	}
	return membership, nil
}

// Leave removes the caller's membership and invalidates the same views as Join.
func (c *Cached) Leave(ctx context.Context, communityID string) error {
	membership, err := c.svc.Leave(ctx, communityID)
	if err != nil {
		return err
	}
	return c.inv.OnMutation(ctx, cache.EntityRef{
		Kind: querykeys.KindMembership,
		ID:   membership.ID,
		Related: map[string]string{
			"community": membership.CommunityID,
			"user":      membership.UserID,
		},
	})
}
