package shoutouts

import (
	"context"

	"github.com/villagehq/go-community-client/cache"
	"github.com/villagehq/go-community-client/querykeys"
)

// Cached wraps the shoutout service with keyed read-through caching and
// dependency-table invalidation.
type Cached struct {
	svc   *Service
	cache cache.CacheService
	inv   *cache.Invalidator
}

// NewCached creates the cached shoutout service.
func NewCached(svc *Service, cacheService cache.CacheService, inv *cache.Invalidator) *Cached {
	return &Cached{svc: svc, cache: cacheService, inv: inv}
}

// FetchShoutouts lists shoutouts through the cache.
func (c *Cached) FetchShoutouts(ctx context.Context, opts FetchOptions) ([]Shoutout, error) {
	return cache.GetOrFetch(ctx, c.cache, querykeys.ShoutoutList(opts), func(ctx context.Context) ([]Shoutout, error) {
		return c.svc.FetchShoutouts(ctx, opts)
	})
}

// FetchThanks lists thanks through the cache.
func (c *Cached) FetchThanks(ctx context.Context, opts FetchOptions) ([]Thanks, error) {
	return cache.GetOrFetch(ctx, c.cache, querykeys.ThanksList(opts), func(ctx context.Context) ([]Thanks, error) {
		return c.svc.FetchThanks(ctx, opts)
	})
}

// CreateShoutout sends a shoutout and invalidates shoutout list views.
func (c *Cached) CreateShoutout(ctx context.Context, data CreateShoutoutData) (*Shoutout, error) {
	shoutout, err := c.svc.CreateShoutout(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := c.inv.OnMutation(ctx, cache.EntityRef{Kind: querykeys.KindShoutout, ID: shoutout.ID}); err != nil {
		return nil, err
	}
	return shoutout, nil
}

// DeleteShoutout soft-deletes a shoutout and invalidates shoutout list views.
func (c *Cached) DeleteShoutout(ctx context.Context, id string) error {
	if err := c.svc.DeleteShoutout(ctx, id); err != nil {
		return err
	}
	return c.inv.OnMutation(ctx, cache.EntityRef{Kind: querykeys.KindShoutout, ID: id})
}

// CreateThanks sends thanks and invalidates thanks list views.
func (c *Cached) CreateThanks(ctx context.Context, data CreateThanksData) (*Thanks, error) {
	thanks, err := c.svc.CreateThanks(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := c.inv.OnMutation(ctx, cache.EntityRef{Kind: querykeys.KindThanks, ID: thanks.ID}); err != nil {
		return nil, err
	}
	return thanks, nil
}

// DeleteThanks soft-deletes thanks and invalidates thanks list views.
func (c *Cached) DeleteThanks(ctx context.Context, id string) error {
	if err := c.svc.DeleteThanks(ctx, id); err != nil {
		return err
	}
	return c.inv.OnMutation(ctx, cache.EntityRef{Kind: querykeys.KindThanks, ID: id})
}
