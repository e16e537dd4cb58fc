package bbolt

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelflux/core/storage/storagetest"
)

func newTestStore(t *testing.T) (*Store, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "catalog-test.db")
	s, err := NewRepositoryFromFile(path, nil)
	require.NoError(t, err)
	return s, path
}

func TestBBoltStorage(t *testing.T) {
	s, _ := newTestStore(t)
	defer s.Close()
	storagetest.Run(t, s)
}

func TestBBoltPersistsAcrossReopen(t *testing.T) {
	s, path := newTestStore(t)
	require.NoError(t, s.Put("pump", "p1", []byte(`{"uid":"abc"}`)))
	require.NoError(t, s.Close())

	reopened, err := NewRepositoryFromFile(path, nil)
	require.NoError(t, err)
	defer reopened.Close()

	got, err := reopened.Get("pump", "p1")
	require.NoError(t, err)
	assert.JSONEq(t, `{"uid":"abc"}`, string(got))
}
