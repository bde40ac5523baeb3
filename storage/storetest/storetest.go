// Package storetest holds the behavioral suite every storage.Store
// implementation must pass.
package storetest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcleod/visaexpress/storage"
)

// Run exercises store against the storage.Store contract.
func Run(t *testing.T, store storage.Store) {
	t.Helper()

	t.Run("SetAndGet", func(t *testing.T) {
		require.NoError(t, store.Set("globals", []byte(`{"currentUser":{"authdata":"abc123"}}`)))
		got, err := store.Get("globals")
		require.NoError(t, err)
		assert.JSONEq(t, `{"currentUser":{"authdata":"abc123"}}`, string(got))
	})

	t.Run("GetMissing", func(t *testing.T) {
		_, err := store.Get("no-such-key")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, store.Set("ow", []byte("v1")))
		require.NoError(t, store.Set("ow", []byte("v2")))
		got, err := store.Get("ow")
		require.NoError(t, err)
		assert.Equal(t, "v2", string(got))
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, store.Set("del", []byte("x")))
		require.NoError(t, store.Delete("del"))
		_, err := store.Get("del")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("DeleteMissing", func(t *testing.T) {
		assert.ErrorIs(t, store.Delete("never-existed"), storage.ErrNotFound)
	})

	t.Run("Isolation", func(t *testing.T) {
		value := []byte("original")
		require.NoError(t, store.Set("iso", value))
		value[0] = 'X'

		got, err := store.Get("iso")
		require.NoError(t, err)
		assert.Equal(t, "original", string(got), "store must not alias the caller's slice")

		got[0] = 'Y'
		again, err := store.Get("iso")
		require.NoError(t, err)
		assert.Equal(t, "original", string(again), "store must not hand out its internal slice")
	})
}
