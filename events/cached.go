package events

import (
	"context"

	"github.com/villagehq/go-community-client/cache"
	"github.com/villagehq/go-community-client/querykeys"
)

// Cached wraps the event service with keyed read-through caching and
// dependency-table invalidation.
type Cached struct {
	svc   *Service
	cache cache.CacheService
	inv   *cache.Invalidator
}

// NewCached creates the cached event service.
func NewCached(svc *Service, cacheService cache.CacheService, inv *cache.Invalidator) *Cached {
	return &Cached{svc: svc, cache: cacheService, inv: inv}
}

// Fetch lists events through the cache.
func (c *Cached) Fetch(ctx context.Context, opts FetchOptions) ([]Event, error) {
	return cache.GetOrFetch(ctx, c.cache, querykeys.EventList(opts), func(ctx context.Context) ([]Event, error) {
		return c.svc.Fetch(ctx, opts)
	})
}

// FetchByID returns one event through the cache.
func (c *Cached) FetchByID(ctx context.Context, id string) (*Event, error) {
	return cache.GetOrFetch(ctx, c.cache, querykeys.Event(id), func(ctx context.Context) (*Event, error) {
		return c.svc.FetchByID(ctx, id)
	})
}

// FetchAttendees lists an event's registrations through the cache.
func (c *Cached) FetchAttendees(ctx context.Context, eventID string) ([]Attendance, error) {
	return cache.GetOrFetch(ctx, c.cache, querykeys.EventAttendees(eventID), func(ctx context.Context) ([]Attendance, error) {
		return c.svc.FetchAttendees(ctx, eventID)
	})
}

// FetchUserEvents lists a user's registrations through the cache.
func (c *Cached) FetchUserEvents(ctx context.Context, userID string) ([]Attendance, error) {
	return cache.GetOrFetch(ctx, c.cache, querykeys.UserEvents(userID), func(ctx context.Context) ([]Attendance, error) {
		return c.svc.FetchUserEvents(ctx, userID)
	})
}

// Create inserts an event and invalidates event list views.
func (c *Cached) Create(ctx context.Context, data CreateEventData) (*Event, error) {
	event, err := c.svc.Create(ctx, data)
	if err != nil {
		return nil, err
	}
	if err := c.inv.OnMutation(ctx, cache.EntityRef{Kind: querykeys.KindEvent, ID: event.ID}); err != nil {
		return nil, err
	}
	return event, nil
}

// Update applies an event update and invalidates its dependent views.
func (c *Cached) Update(ctx context.Context, id string, patch UpdateEventData) (*Event, error) {
	event, err := c.svc.Update(ctx, id, patch)
	if err != nil {
		return nil, err
	}
	if err := c.inv.OnMutation(ctx, cache.EntityRef{Kind: querykeys.KindEvent, ID: id}); err != nil {
		return nil, err
	}
	return event, nil
}

// Delete soft-deletes an event and invalidates its dependent views.
func (c *Cached) Delete(ctx context.Context, id string) error {
	if err := c.svc.Delete(ctx, id); err != nil {
		return err
	}
	return c.inv.OnMutation(ctx, cache.EntityRef{Kind: querykeys.KindEvent, ID: id})
}

// Join registers the caller and invalidates both the event's and the caller's
// attendance views.
func (c *Cached) Join(ctx context.Context, eventID string) (*Attendance, error) {
	attendance, err := c.svc.Join(ctx, eventID)
	if err != nil {
		return nil, err
	}
	err = c.inv.OnMutation(ctx, cache.EntityRef{
		Kind: querykeys.KindAttendance,
		ID:   attendance.ID,
		Related: map[string]string{
			"event": attendance.EventID,
			"user":  attendance.UserID,
		},
	})
	if err != nil {
		return nil, err
	}
	return attendance, nil
}

// Leave removes the caller's registration and invalidates the same views as
// Join.
func (c *Cached) Leave(ctx context.Context, eventID string) error {
	attendance, err := c.svc.Leave(ctx, eventID)
	if err != nil {
		return err
	}
	return c.inv.OnMutation(ctx, cache.EntityRef{
		Kind: querykeys.KindAttendance,
		ID:   attendance.ID,
		Related: map[string]string{
			"event": attendance.EventID,
			"user":  attendance.UserID,
		},
	})
}
