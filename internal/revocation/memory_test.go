package revocation

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryRecordAndIsActive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Record(ctx, "id-1", "42", time.Now().Add(time.Hour)))

	active, err := store.IsActive(ctx, "id-1")
	require.NoError(t, err)
	assert.True(t, active)

	active, err = store.IsActive(ctx, "unknown")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestMemoryExpiredEntryIsInactive(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Record(ctx, "id-1", "42", time.Now().Add(-time.Second)))

	active, err := store.IsActive(ctx, "id-1")
	require.NoError(t, err)
	assert.False(t, active)
}

func TestMemoryRevoke(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Record(ctx, "id-1", "42", time.Now().Add(time.Hour)))
	require.NoError(t, store.Revoke(ctx, "id-1"))

	active, err := store.IsActive(ctx, "id-1")
	require.NoError(t, err)
	assert.False(t, active)

	// Revoking an unknown identifier is not an error.
	assert.NoError(t, store.Revoke(ctx, "unknown"))
}

func TestMemoryRevokeAll(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	expiry := time.Now().Add(time.Hour)

	require.NoError(t, store.Record(ctx, "id-1", "42", expiry))
	require.NoError(t, store.Record(ctx, "id-2", "42", expiry))
	require.NoError(t, store.Record(ctx, "id-3", "7", expiry))

	require.NoError(t, store.RevokeAll(ctx, "42"))

	for _, id := range []string{"id-1", "id-2"} {
		active, err := store.IsActive(ctx, id)
		require.NoError(t, err)
		assert.False(t, active, "id %s", id)
	}

	active, err := store.IsActive(ctx, "id-3")
	require.NoError(t, err)
	assert.True(t, active, "other subject survives")
}

func TestMemoryRotate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	expiry := time.Now().Add(time.Hour)

	require.NoError(t, store.Record(ctx, "old", "42", expiry))
	require.NoError(t, store.Rotate(ctx, "old", "new", "42", expiry))

	active, err := store.IsActive(ctx, "old")
	require.NoError(t, err)
	assert.False(t, active)

	active, err = store.IsActive(ctx, "new")
	require.NoError(t, err)
	assert.True(t, active)

	// The old identifier was consumed, so rotating it again fails.
	err = store.Rotate(ctx, "old", "other", "42", expiry)
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestMemoryRotateExpired(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Record(ctx, "old", "42", time.Now().Add(-time.Second)))

	err := store.Rotate(ctx, "old", "new", "42", time.Now().Add(time.Hour))
	assert.ErrorIs(t, err, ErrNotActive)
}

func TestMemoryConcurrentRotateSingleWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	expiry := time.Now().Add(time.Hour)

	require.NoError(t, store.Record(ctx, "old", "42", expiry))

	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Rotate(ctx, "old", fmt.Sprintf("new-%d", i), "42", expiry)
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range errs {
		if err == nil {
			winners++
		} else {
			assert.ErrorIs(t, err, ErrNotActive)
		}
	}
	assert.Equal(t, 1, winners)
}
