package cacheinfra

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	if cfg.Capacity != 10000 {
		t.Errorf("expected Capacity to be 10000, got %d", cfg.Capacity)
	}

	if cfg.NumShards != 256 {
		t.Errorf("expected NumShards to be 256, got %d", cfg.NumShards)
	}

	if cfg.TTL != 5*time.Minute {
		t.Errorf("expected TTL to be 5 minutes, got %v", cfg.TTL)
	}

	if cfg.EvictionPercentage != 10 {
		t.Errorf("expected EvictionPercentage to be 10, got %d", cfg.EvictionPercentage)
	}

	if !cfg.MissingRecordStorage {
		t.Error("expected MissingRecordStorage to be true")
	}

	if cfg.EarlyRefresh == nil {
		t.Fatal("expected EarlyRefresh to be configured")
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		cfg       Config
		wantField string
	}{
		{
			name: "valid config",
			cfg:  DefaultConfig(),
		},
		{
			name:      "zero capacity",
			cfg:       Config{Capacity: 0, NumShards: 4, TTL: time.Minute, EvictionPercentage: 10},
			wantField: "Capacity",
		},
		{
			name:      "zero shards",
			cfg:       Config{Capacity: 100, NumShards: 0, TTL: time.Minute, EvictionPercentage: 10},
			wantField: "NumShards",
		},
		{
			name:      "zero TTL",
			cfg:       Config{Capacity: 100, NumShards: 4, TTL: 0, EvictionPercentage: 10},
			wantField: "TTL",
		},
		{
			name:      "eviction percentage out of range",
			cfg:       Config{Capacity: 100, NumShards: 4, TTL: time.Minute, EvictionPercentage: 101},
			wantField: "EvictionPercentage",
		},
		{
			name: "negative early refresh",
			cfg: Config{
				Capacity: 100, NumShards: 4, TTL: time.Minute, EvictionPercentage: 10,
				EarlyRefresh: &EarlyRefreshConfig{MinAsyncRefreshTime: -time.Second},
			},
			wantField: "EarlyRefresh.MinAsyncRefreshTime",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantField == "" {
				if err != nil {
					t.Fatalf("Validate() error = %v, want nil", err)
				}
				return
			}

			var cfgErr *ConfigError
			if !errors.As(err, &cfgErr) {
				t.Fatalf("Validate() error = %v, want ConfigError", err)
			}
			if cfgErr.Field != tt.wantField {
				t.Errorf("ConfigError.Field = %s, want %s", cfgErr.Field, tt.wantField)
			}
		})
	}
}

func TestNewSturdycService_InvalidConfig(t *testing.T) {
	if _, err := NewSturdycService(Config{}); err == nil {
		t.Fatal("expected error for zero config")
	}
}

func testService(t *testing.T) *sturdycService {
	t.Helper()

	cfg := Config{
		Capacity:           100,
		NumShards:          4,
		TTL:                time.Minute,
		EvictionPercentage: 10,
	}
	svc, err := NewSturdycService(cfg)
	if err != nil {
		t.Fatalf("NewSturdycService() error = %v", err)
	}
	return svc
}

func TestSturdycService_GetOrFetch(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	calls := 0
	fetch := func(ctx context.Context) (any, error) {
		calls++
		return "value", nil
	}

	got, err := svc.GetOrFetch(ctx, "k1", fetch)
	if err != nil {
		t.Fatalf("GetOrFetch() error = %v", err)
	}
	if got != "value" {
		t.Errorf("GetOrFetch() = %v, want value", got)
	}

	// Second call is a hit.
	if _, err := svc.GetOrFetch(ctx, "k1", fetch); err != nil {
		t.Fatalf("GetOrFetch() error = %v", err)
	}
	if calls != 1 {
		t.Errorf("fetch called %d times, want 1", calls)
	}
}

func TestSturdycService_GetOrFetch_Error(t *testing.T) {
	svc := testService(t)

	wantErr := errors.New("backend down")
	_, err := svc.GetOrFetch(context.Background(), "k1", func(ctx context.Context) (any, error) {
		return nil, wantErr
	})
	if !errors.Is(err, wantErr) {
		t.Fatalf("GetOrFetch() error = %v, want %v", err, wantErr)
	}
}

func TestSturdycService_DeleteByPrefix(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	seed := func(key, value string) {
		_, err := svc.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
			return value, nil
		})
		if err != nil {
			t.Fatalf("seed %s: %v", key, err)
		}
	}

	seed("communities", "list")
	seed("communities::struct:{RootsOnly:true}", "roots")
	seed("community::c-1", "single")

	if err := svc.DeleteByPrefix(ctx, "communities"); err != nil {
		t.Fatalf("DeleteByPrefix() error = %v", err)
	}

	// The single-entity key survives; its prefix is different.
	refetched := 0
	fetch := func(ctx context.Context) (any, error) {
		refetched++
		return "fresh", nil
	}
	if _, err := svc.GetOrFetch(ctx, "communities", fetch); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.GetOrFetch(ctx, "communities::struct:{RootsOnly:true}", fetch); err != nil {
		t.Fatal(err)
	}
	if refetched != 2 {
		t.Errorf("prefixed keys refetched %d times, want 2", refetched)
	}

	got, err := svc.GetOrFetch(ctx, "community::c-1", fetch)
	if err != nil {
		t.Fatal(err)
	}
	if got != "single" {
		t.Errorf("community::c-1 = %v, want cached value", got)
	}
}

func TestSturdycService_Clear(t *testing.T) {
	svc := testService(t)
	ctx := context.Background()

	for _, key := range []string{"a", "b", "c"} {
		if _, err := svc.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) { return key, nil }); err != nil {
			t.Fatal(err)
		}
	}

	if err := svc.Clear(ctx); err != nil {
		t.Fatalf("Clear() error = %v", err)
	}

	refetched := 0
	for _, key := range []string{"a", "b", "c"} {
		if _, err := svc.GetOrFetch(ctx, key, func(ctx context.Context) (any, error) {
			refetched++
			return key, nil
		}); err != nil {
			t.Fatal(err)
		}
	}
	if refetched != 3 {
		t.Errorf("refetched %d keys after Clear, want 3", refetched)
	}
}
