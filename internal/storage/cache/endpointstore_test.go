package cache_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	urn "github.com/tinywideclouds/go-platform/pkg/net/v1"

	"github.com/tinywideclouds/go-sns-push-service/internal/storage/cache"
	"github.com/tinywideclouds/go-sns-push-service/pkg/dispatch"
	"github.com/tinywideclouds/go-sns-push-service/pkg/platform"
)

// --- Mocks ---
type MockCache struct {
	mock.Mock
}

func (m *MockCache) Get(ctx context.Context, key string, dest any) error {
	return m.Called(ctx, key, dest).Error(0)
}
func (m *MockCache) Set(ctx context.Context, key string, value any, ttl time.Duration) error {
	return m.Called(ctx, key, value, ttl).Error(0)
}
func (m *MockCache) Del(ctx context.Context, key string) error {
	return m.Called(ctx, key).Error(0)
}

type MockStore struct {
	mock.Mock
}

func (m *MockStore) Register(ctx context.Context, user urn.URN, endpoint dispatch.Endpoint) error {
	return m.Called(ctx, user, endpoint).Error(0)
}
func (m *MockStore) Unregister(ctx context.Context, user urn.URN, token string) error {
	return m.Called(ctx, user, token).Error(0)
}
func (m *MockStore) Fetch(ctx context.Context, user urn.URN) ([]dispatch.Endpoint, error) {
	args := m.Called(ctx, user)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]dispatch.Endpoint), args.Error(1)
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestCachedEndpointStore(t *testing.T) {
	ctx := context.Background()
	logger := newTestLogger()
	userURN, _ := urn.Parse("urn:sm:user:cached-user")
	cacheKey := "sns:endpoints:urn:sm:user:cached-user"

	endpoints := []dispatch.Endpoint{{
		Platform:    platform.Android,
		Token:       "tok-1",
		EndpointARN: "arn:endpoint:1",
	}}

	t.Run("Cache hit skips the store", func(t *testing.T) {
		mockCache := new(MockCache)
		mockStore := new(MockStore)
		store := cache.NewCachedEndpointStore(mockStore, mockCache, time.Hour, logger)

		mockCache.On("Get", ctx, cacheKey, mock.Anything).
			Run(func(args mock.Arguments) {
				dest := args.Get(2).(*[]dispatch.Endpoint)
				*dest = endpoints
			}).
			Return(nil)

		got, err := store.Fetch(ctx, userURN)
		require.NoError(t, err)
		assert.Equal(t, endpoints, got)
		mockStore.AssertNotCalled(t, "Fetch", mock.Anything, mock.Anything)
	})

	t.Run("Miss reads through and fills", func(t *testing.T) {
		mockCache := new(MockCache)
		mockStore := new(MockStore)
		store := cache.NewCachedEndpointStore(mockStore, mockCache, time.Hour, logger)

		mockCache.On("Get", ctx, cacheKey, mock.Anything).Return(cache.ErrMiss)
		mockStore.On("Fetch", ctx, userURN).Return(endpoints, nil)
		mockCache.On("Set", ctx, cacheKey, endpoints, time.Hour).Return(nil)

		got, err := store.Fetch(ctx, userURN)
		require.NoError(t, err)
		assert.Equal(t, endpoints, got)
		mockCache.AssertExpectations(t)
		mockStore.AssertExpectations(t)
	})

	t.Run("Cache outage still serves from store", func(t *testing.T) {
		mockCache := new(MockCache)
		mockStore := new(MockStore)
		store := cache.NewCachedEndpointStore(mockStore, mockCache, time.Hour, logger)

		mockCache.On("Get", ctx, cacheKey, mock.Anything).Return(assert.AnError)
		mockStore.On("Fetch", ctx, userURN).Return(endpoints, nil)
		mockCache.On("Set", ctx, cacheKey, endpoints, time.Hour).Return(assert.AnError)

		got, err := store.Fetch(ctx, userURN)
		require.NoError(t, err)
		assert.Equal(t, endpoints, got)
	})

	t.Run("Writes invalidate", func(t *testing.T) {
		mockCache := new(MockCache)
		mockStore := new(MockStore)
		store := cache.NewCachedEndpointStore(mockStore, mockCache, time.Hour, logger)

		mockStore.On("Register", ctx, userURN, endpoints[0]).Return(nil)
		mockStore.On("Unregister", ctx, userURN, "tok-1").Return(nil)
		mockCache.On("Del", ctx, cacheKey).Return(nil)

		require.NoError(t, store.Register(ctx, userURN, endpoints[0]))
		require.NoError(t, store.Unregister(ctx, userURN, "tok-1"))
		mockCache.AssertNumberOfCalls(t, "Del", 2)
	})

	t.Run("Failed write leaves cache untouched", func(t *testing.T) {
		mockCache := new(MockCache)
		mockStore := new(MockStore)
		store := cache.NewCachedEndpointStore(mockStore, mockCache, time.Hour, logger)

		mockStore.On("Unregister", ctx, userURN, "tok-1").Return(assert.AnError)

		err := store.Unregister(ctx, userURN, "tok-1")
		assert.ErrorIs(t, err, assert.AnError)
		mockCache.AssertNotCalled(t, "Del", mock.Anything, mock.Anything)
	})
}
