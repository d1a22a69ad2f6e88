package badgerkv

import (
	"context"
	"testing"
	"time"

	"okrdash/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetDeleteInMemory(t *testing.T) {
	kv, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer kv.Close()

	ctx := context.Background()
	_, err = kv.Get(ctx, store.KeyCycle)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, kv.Set(ctx, store.KeyCycle, `"Q4 2025"`))
	got, err := kv.Get(ctx, store.KeyCycle)
	require.NoError(t, err)
	assert.Equal(t, `"Q4 2025"`, got)

	require.NoError(t, kv.Delete(ctx, store.KeyCycle))
	_, err = kv.Get(ctx, store.KeyCycle)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestPersistsAcrossReopen(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Path = t.TempDir()
	cfg.GCInterval = 0

	kv, err := Open(cfg)
	require.NoError(t, err)
	require.NoError(t, kv.Set(context.Background(), store.KeyObjectives, `{"engineering":[]}`))
	require.NoError(t, kv.Close())

	reopened, err := Open(cfg)
	require.NoError(t, err)
	defer reopened.Close()
	got, err := reopened.Get(context.Background(), store.KeyObjectives)
	require.NoError(t, err)
	assert.Equal(t, `{"engineering":[]}`, got)
}

func TestWatchReportsExactKeys(t *testing.T) {
	kv, err := Open(InMemoryConfig())
	require.NoError(t, err)
	defer kv.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := kv.Watch(ctx, store.KeyCycle)
	require.NoError(t, err)

	// the subscription registers asynchronously; keep writing until one lands
	var got store.Change
	require.Eventually(t, func() bool {
		_ = kv.Set(ctx, store.KeyCycle+"-suffix", "noise")
		_ = kv.Set(ctx, store.KeyCycle, `"Q1 2026"`)
		select {
		case got = <-changes:
			return true
		case <-time.After(50 * time.Millisecond):
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, store.KeyCycle, got.Key)
	assert.Equal(t, `"Q1 2026"`, got.Value)
	assert.False(t, got.Deleted)

	require.NoError(t, kv.Delete(ctx, store.KeyCycle))
	require.Eventually(t, func() bool {
		select {
		case change := <-changes:
			return change.Deleted
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}
