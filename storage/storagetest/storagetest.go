// Package storagetest holds the behaviour suite every storage.Repository
// backend must pass.
package storagetest

import (
	"errors"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelflux/core/storage"
)

// Run exercises repo. The repository must start empty.
func Run(t *testing.T, repo storage.Repository) {
	t.Helper()

	t.Run("PutGet", func(t *testing.T) {
		require.NoError(t, repo.Put("station", "1", []byte(`{"id":1}`)))
		got, err := repo.Get("station", "1")
		require.NoError(t, err)
		assert.JSONEq(t, `{"id":1}`, string(got))
	})

	t.Run("Overwrite", func(t *testing.T) {
		require.NoError(t, repo.Put("station", "ow", []byte(`{"v":1}`)))
		require.NoError(t, repo.Put("station", "ow", []byte(`{"v":2}`)))
		got, err := repo.Get("station", "ow")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":2}`, string(got))
	})

	t.Run("GetNotFound", func(t *testing.T) {
		_, err := repo.Get("station", "missing")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		_, err = repo.Get("no-such-type", "1")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("List", func(t *testing.T) {
		require.NoError(t, repo.Put("tank", "a", []byte(`{}`)))
		require.NoError(t, repo.Put("tank", "b", []byte(`{}`)))
		require.NoError(t, repo.Put("pump", "c", []byte(`{}`)))

		ids, err := repo.List("tank")
		require.NoError(t, err)
		sort.Strings(ids)
		assert.Equal(t, []string{"a", "b"}, ids)

		ids, err = repo.List("no-such-type")
		require.NoError(t, err)
		assert.Empty(t, ids)
	})

	t.Run("Delete", func(t *testing.T) {
		require.NoError(t, repo.Put("user", "del", []byte(`{}`)))
		require.NoError(t, repo.Delete("user", "del"))
		_, err := repo.Get("user", "del")
		assert.ErrorIs(t, err, storage.ErrNotFound)
		assert.ErrorIs(t, repo.Delete("user", "del"), storage.ErrNotFound)
	})

	t.Run("BatchCommit", func(t *testing.T) {
		err := repo.Batch(func(tx storage.BatchTx) error {
			if err := tx.Put("user", "b1", []byte(`{"n":1}`)); err != nil {
				return err
			}
			return tx.Put("user", "b2", []byte(`{"n":2}`))
		})
		require.NoError(t, err)
		_, err = repo.Get("user", "b1")
		assert.NoError(t, err)
		_, err = repo.Get("user", "b2")
		assert.NoError(t, err)
	})

	t.Run("BatchRollback", func(t *testing.T) {
		require.NoError(t, repo.Put("user", "keep", []byte(`{"v":"old"}`)))
		boom := errors.New("boom")
		err := repo.Batch(func(tx storage.BatchTx) error {
			if err := tx.Put("user", "keep", []byte(`{"v":"new"}`)); err != nil {
				return err
			}
			if err := tx.Put("user", "rolled-back", []byte(`{}`)); err != nil {
				return err
			}
			return boom
		})
		require.ErrorIs(t, err, boom)

		got, err := repo.Get("user", "keep")
		require.NoError(t, err)
		assert.JSONEq(t, `{"v":"old"}`, string(got))
		_, err = repo.Get("user", "rolled-back")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})
}
