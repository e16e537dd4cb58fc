package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fuelflux/core/storage/storagetest"
)

func TestMemoryRepository(t *testing.T) {
	storagetest.Run(t, NewRepository())
}

func TestMemoryRepositoryCopiesData(t *testing.T) {
	repo := NewRepository()
	data := []byte(`{"name":"A"}`)
	require.NoError(t, repo.Put("station", "1", data))
	data[2] = 'X'

	got, err := repo.Get("station", "1")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"A"}`, string(got))

	got[2] = 'Y'
	again, err := repo.Get("station", "1")
	require.NoError(t, err)
	assert.Equal(t, `{"name":"A"}`, string(again))
}
