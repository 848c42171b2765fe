package cache

import (
	"context"

	"github.com/rs/zerolog"
)

// EntityRef identifies one mutated entity instance. Kind names the entity
// ("community", "membership", ...), ID is the mutated row's id, and Related
// carries the foreign keys the dependency table may need (e.g. the community
// and user ids of a membership).
type EntityRef struct {
	Kind    string
	ID      string
	Related map[string]string
}

// Rel returns the related id stored under name, or "" when absent.
func (r EntityRef) Rel(name string) string {
	if r.Related == nil {
		return ""
	}
	return r.Related[name]
}

// KeyPattern derives one cache-key prefix from a mutated entity. Returning ""
// skips the pattern for this mutation (e.g. a related id is not set).
type KeyPattern func(ref EntityRef) string

// DependencyTable declares, per entity kind, which cache-key prefixes a
// mutation of that kind affects. It replaces hand-enumerated invalidation
// lists at every mutation site: a single dispatcher consults the table, so a
// new derived view only needs one new row here instead of edits across every
// mutating call.
type DependencyTable map[string][]KeyPattern

// Static returns a KeyPattern that always yields the same prefix.
func Static(prefix string) KeyPattern {
	return func(EntityRef) string { return prefix }
}

// Keyed returns a KeyPattern producing `kind::<id>` for the mutated entity.
func Keyed(kind string) KeyPattern {
	return func(ref EntityRef) string {
		if ref.ID == "" {
			return ""
		}
		return kind + KeySeparator + ref.ID
	}
}

// Related returns a KeyPattern producing `kind::<related-id>` using the id
// stored in the ref under relation.
func Related(kind, relation string) KeyPattern {
	return func(ref EntityRef) string {
		id := ref.Rel(relation)
		if id == "" {
			return ""
		}
		return kind + KeySeparator + id
	}
}

// Invalidator is the single invalidation dispatcher. Every cached mutation
// reports the entity it touched; the invalidator expands that into concrete
// key prefixes through the dependency table and drops them from the cache.
type Invalidator struct {
	cache CacheService
	table DependencyTable
	log   zerolog.Logger
}

// NewInvalidator creates an invalidator over the given cache and table.
func NewInvalidator(cache CacheService, table DependencyTable, log zerolog.Logger) *Invalidator {
	if table == nil {
		table = DependencyTable{}
	}
	return &Invalidator{cache: cache, table: table, log: log}
}

// Register adds patterns for an entity kind, appending to any existing entry.
func (inv *Invalidator) Register(kind string, patterns ...KeyPattern) {
	inv.table[kind] = append(inv.table[kind], patterns...)
}

// OnMutation invalidates every key prefix the dependency table declares for
// the mutated entity, plus any extra keys carried on the context via
// WithInvalidationKeys. Unknown kinds invalidate nothing but are logged, since
// they usually mean a missing table row.
func (inv *Invalidator) OnMutation(ctx context.Context, ref EntityRef) error {
	patterns, ok := inv.table[ref.Kind]
	if !ok {
		inv.log.Warn().Str("kind", ref.Kind).Msg("no invalidation dependencies declared")
	}

	for _, pattern := range patterns {
		prefix := pattern(ref)
		if prefix == "" {
			continue
		}
		if err := inv.cache.DeleteByPrefix(ctx, prefix); err != nil {
			inv.log.Error().Err(err).Str("prefix", prefix).Msg("cache invalidation failed")
			return err
		}
		inv.log.Debug().Str("kind", ref.Kind).Str("prefix", prefix).Msg("cache keys invalidated")
	}

	if extra := invalidationKeysFromContext(ctx); len(extra) > 0 {
		if err := inv.cache.InvalidateKeys(ctx, extra); err != nil {
			inv.log.Error().Err(err).Msg("context key invalidation failed")
			return err
		}
	}

	return nil
}

// Clear removes every cached entry. Used on sign-out, where all cached views
// belonged to the previous identity.
func (inv *Invalidator) Clear(ctx context.Context) error {
	return inv.cache.Clear(ctx)
}
