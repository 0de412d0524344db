package profile

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "mindspend/pkg/domain-errors"
)

// scriptedStore answers ProfileByID from a queue of results.
type scriptedStore struct {
	mu      sync.Mutex
	results []result
	calls   int
}

type result struct {
	profile *Profile
	err     error
}

func (s *scriptedStore) ProfileByID(_ context.Context, _ uuid.UUID) (*Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if len(s.results) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no rows in profiles")
	}
	next := s.results[0]
	s.results = s.results[1:]
	return next.profile, next.err
}

func (s *scriptedStore) UpdateProfile(_ context.Context, _ uuid.UUID, _ Patch) (*Profile, error) {
	return nil, dErrors.New(dErrors.CodeStoreUnavailable, "not scripted")
}

func (s *scriptedStore) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

func notFound() result {
	return result{err: dErrors.New(dErrors.CodeNotFound, "no rows in profiles")}
}

func TestFetchOnce(t *testing.T) {
	userID := uuid.New()

	t.Run("missing row is nil, not an error", func(t *testing.T) {
		loader := NewLoader(&scriptedStore{results: []result{notFound()}})
		p, err := loader.FetchOnce(context.Background(), userID)
		require.NoError(t, err)
		assert.Nil(t, p)
	})

	t.Run("query failure propagates as store unavailable", func(t *testing.T) {
		store := &scriptedStore{results: []result{
			{err: dErrors.New(dErrors.CodeStoreUnavailable, "connection refused")},
		}}
		loader := NewLoader(store)
		p, err := loader.FetchOnce(context.Background(), userID)
		require.Error(t, err)
		assert.Nil(t, p)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeStoreUnavailable))
	})

	t.Run("present row is returned", func(t *testing.T) {
		want := &Profile{ID: userID, FirstName: "Ada"}
		loader := NewLoader(&scriptedStore{results: []result{{profile: want}}})
		p, err := loader.FetchOnce(context.Background(), userID)
		require.NoError(t, err)
		assert.Equal(t, want, p)
	})
}

func TestFetchWithRetryEarlyExit(t *testing.T) {
	userID := uuid.New()
	want := &Profile{ID: userID, FirstName: "Ada"}

	// Row appears on the second attempt; the third must not happen.
	store := &scriptedStore{results: []result{notFound(), {profile: want}}}
	loader := NewLoader(store)

	p, err := loader.FetchWithRetry(context.Background(), userID, 3, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, want, p)
	assert.Equal(t, 2, store.callCount())
}

func TestFetchWithRetryExhaustion(t *testing.T) {
	userID := uuid.New()
	store := &scriptedStore{} // never has a row
	loader := NewLoader(store)

	p, err := loader.FetchWithRetry(context.Background(), userID, 3, 5*time.Millisecond)
	require.NoError(t, err, "exhaustion is not an error")
	assert.Nil(t, p)
	assert.Equal(t, 3, store.callCount())
}

func TestFetchWithRetryBridgesStoreFailures(t *testing.T) {
	userID := uuid.New()
	want := &Profile{ID: userID}
	store := &scriptedStore{results: []result{
		{err: dErrors.New(dErrors.CodeStoreUnavailable, "flaky")},
		{profile: want},
	}}
	loader := NewLoader(store)

	p, err := loader.FetchWithRetry(context.Background(), userID, 3, 5*time.Millisecond)
	require.NoError(t, err)
	assert.Equal(t, want, p)
}

func TestFetchWithRetryContextCancel(t *testing.T) {
	userID := uuid.New()
	loader := NewLoader(&scriptedStore{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := loader.FetchWithRetry(ctx, userID, 3, time.Minute)
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
