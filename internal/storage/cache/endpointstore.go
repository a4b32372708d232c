package cache

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"

	"github.com/tinywideclouds/go-sns-push-service/pkg/dispatch"
)

// Client defines the subset of cache commands we need.
type Client interface {
	// Get decodes the stored value into dest, or returns ErrMiss.
	Get(ctx context.Context, key string, dest any) error
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, key string) error
}

// CachedEndpointStore adds read-aside caching to any dispatch.EndpointStore.
// Writes go to the wrapped store first and then invalidate the user's entry.
type CachedEndpointStore struct {
	store  dispatch.EndpointStore
	cache  Client
	ttl    time.Duration
	logger *slog.Logger
}

func NewCachedEndpointStore(store dispatch.EndpointStore, cache Client, ttl time.Duration, logger *slog.Logger) *CachedEndpointStore {
	return &CachedEndpointStore{
		store:  store,
		cache:  cache,
		ttl:    ttl,
		logger: logger.With("component", "CachedEndpointStore"),
	}
}

func (s *CachedEndpointStore) Fetch(ctx context.Context, user urn.URN) ([]dispatch.Endpoint, error) {
	key := cacheKey(user)

	var cached []dispatch.Endpoint
	err := s.cache.Get(ctx, key, &cached)
	if err == nil {
		return cached, nil
	}
	if !errors.Is(err, ErrMiss) {
		s.logger.Warn("Cache read failed, falling back to store", "err", err)
	}

	fresh, err := s.store.Fetch(ctx, user)
	if err != nil {
		return nil, err
	}

	// A failed fill only costs the next read a store round-trip.
	if err := s.cache.Set(ctx, key, fresh, s.ttl); err != nil {
		s.logger.Warn("Cache fill failed", "err", err)
	}
	return fresh, nil
}

func (s *CachedEndpointStore) Register(ctx context.Context, user urn.URN, endpoint dispatch.Endpoint) error {
	if err := s.store.Register(ctx, user, endpoint); err != nil {
		return err
	}
	return s.invalidate(ctx, user)
}

func (s *CachedEndpointStore) Unregister(ctx context.Context, user urn.URN, token string) error {
	if err := s.store.Unregister(ctx, user, token); err != nil {
		return err
	}
	return s.invalidate(ctx, user)
}

func (s *CachedEndpointStore) invalidate(ctx context.Context, user urn.URN) error {
	if err := s.cache.Del(ctx, cacheKey(user)); err != nil {
		return fmt.Errorf("failed to invalidate cached endpoints: %w", err)
	}
	return nil
}

func cacheKey(user urn.URN) string {
	return fmt.Sprintf("sns:endpoints:%s", user.String())
}
