package filekv

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"okrdash/internal/store"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetSetDelete(t *testing.T) {
	kv, err := Open(t.TempDir(), nil)
	require.NoError(t, err)
	ctx := context.Background()

	_, err = kv.Get(ctx, store.KeyObjectives)
	require.ErrorIs(t, err, store.ErrNotFound)

	require.NoError(t, kv.Set(ctx, store.KeyObjectives, `{"sales":[]}`))
	got, err := kv.Get(ctx, store.KeyObjectives)
	require.NoError(t, err)
	assert.Equal(t, `{"sales":[]}`, got)

	require.NoError(t, kv.Delete(ctx, store.KeyObjectives))
	require.NoError(t, kv.Delete(ctx, store.KeyObjectives))
	_, err = kv.Get(ctx, store.KeyObjectives)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestWatchSeesExternalEdits(t *testing.T) {
	dir := t.TempDir()
	kv, err := Open(dir, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	changes, err := kv.Watch(ctx, store.KeyCycle)
	require.NoError(t, err)

	// a hand edit from another process
	path := filepath.Join(dir, store.KeyCycle+".json")
	require.NoError(t, os.WriteFile(path, []byte(`"Q2 2026"`), 0o600))

	var got store.Change
	require.Eventually(t, func() bool {
		select {
		case got = <-changes:
			return got.Value == `"Q2 2026"`
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
	assert.Equal(t, store.KeyCycle, got.Key)

	require.NoError(t, os.Remove(path))
	require.Eventually(t, func() bool {
		select {
		case change := <-changes:
			return change.Deleted
		default:
			return false
		}
	}, 5*time.Second, 10*time.Millisecond)
}

func TestKeysAreEscapedIntoFileNames(t *testing.T) {
	key, ok := keyFromPath("/tmp/x/a%2Fb.json")
	require.True(t, ok)
	assert.Equal(t, "a/b", key)

	_, ok = keyFromPath("/tmp/x/.tmp-123")
	assert.False(t, ok)
}
