package blob_test

import (
	"context"
	"testing"

	"github.com/scoins/coinmarket/internal/blob"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStoreRoundTrip(t *testing.T) {
	t.Parallel()

	store, err := blob.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	_, err = store.Load(ctx, "save-user_abc")
	assert.ErrorIs(t, err, blob.ErrNotFound)

	require.NoError(t, store.Save(ctx, "save-user_abc", []byte(`{"balance":100}`)))

	data, err := store.Load(ctx, "save-user_abc")
	require.NoError(t, err)
	assert.JSONEq(t, `{"balance":100}`, string(data))
}

func TestFileStoreSanitizesKeys(t *testing.T) {
	t.Parallel()

	store, err := blob.NewFileStore(t.TempDir())
	require.NoError(t, err)
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, "../escape/attempt", []byte("x")))
	data, err := store.Load(ctx, "../escape/attempt")
	require.NoError(t, err)
	assert.Equal(t, "x", string(data))
}

func TestMemStoreIsolatesCallers(t *testing.T) {
	t.Parallel()

	store := blob.NewMemStore()
	ctx := context.Background()

	original := []byte(`[1,2,3]`)
	require.NoError(t, store.Save(ctx, "global-marketplace", original))

	loaded, err := store.Load(ctx, "global-marketplace")
	require.NoError(t, err)
	loaded[0] = 'X'

	again, err := store.Load(ctx, "global-marketplace")
	require.NoError(t, err)
	assert.Equal(t, `[1,2,3]`, string(again))
}

func TestPersistErrorUnwraps(t *testing.T) {
	t.Parallel()

	inner := assert.AnError
	err := &blob.PersistError{Key: "save-u1", Err: inner}
	assert.ErrorIs(t, err, inner)
	assert.Contains(t, err.Error(), "save-u1")
}
