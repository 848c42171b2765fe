package cache

import "context"

type invalidationKeysContextKey struct{}

// WithInvalidationKeys attaches additional cache keys to the context. The
// Invalidator drops them, on top of the dependency table entries, when a
// mutation carried out under this context succeeds. Callers use this for
// one-off derived views the static table cannot know about.
func WithInvalidationKeys(ctx context.Context, keys ...string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	if len(keys) == 0 {
		return ctx
	}

	combined := append(invalidationKeysFromContext(ctx), keys...)
	combined = dedupeStrings(combined)
	if len(combined) == 0 {
		return ctx
	}

	return context.WithValue(ctx, invalidationKeysContextKey{}, combined)
}

func invalidationKeysFromContext(ctx context.Context) []string {
	if ctx == nil {
		return nil
	}
	if keys, ok := ctx.Value(invalidationKeysContextKey{}).([]string); ok {
		return append([]string(nil), keys...)
	}
	return nil
}

func dedupeStrings(values []string) []string {
	if len(values) == 0 {
		return nil
	}
	seen := make(map[string]struct{}, len(values))
	out := values[:0]
	for _, v := range values {
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
