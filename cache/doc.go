// Package cache provides the keyed read-through cache and the invalidation
// dispatcher the entity services are built on.
//
// # Overview
//
// Three pieces live here:
//
//   - CacheService: a generic keyed cache with read-through GetOrFetch
//   - KeySerializer: builds stable keys following the `[entityKind, ...params]`
//     convention, joined with KeySeparator
//   - Invalidator: a single dispatcher that, given a mutated entity, consults
//     a declared DependencyTable and drops the affected key prefixes
//
// # Key convention
//
// List views key under the plural kind ("communities", "events", ...) with the
// query options serialized behind it; single-entity views key under the
// singular kind plus the id ("community::<id>"). Because list and single kinds
// are distinct strings, prefix invalidation of one never touches the other.
//
//	serializer := cache.NewDefaultKeySerializer()
//	key := serializer.SerializeKey("communities", opts) // communities::struct:{...}
//
// # Invalidation
//
// Mutations never enumerate keys inline. Each entity kind declares its
// dependent prefixes once, in the DependencyTable (see the querykeys package
// for the canonical table), and every cached mutation reports an EntityRef to
// Invalidator.OnMutation:
//
//	inv.OnMutation(ctx, cache.EntityRef{
//		Kind:    "membership",
//		ID:      m.ID,
//		Related: map[string]string{"community": m.CommunityID, "user": m.UserID},
//	})
//
// One-off keys can be attached per call with WithInvalidationKeys.
//
// # Determinism warning
//
// Options structs used as key params must carry only exported, comparable
// data. Function-typed fields would serialize unstably and are rejected by
// the JSON fallback; keep query options plain.
package cache
