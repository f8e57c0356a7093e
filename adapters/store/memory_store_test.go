package store

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	_, found, err := s.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "wc@2:session:abc", `{"topic":"abc"}`))

	val, found, err := s.Get(ctx, "wc@2:session:abc")
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, `{"topic":"abc"}`, val)

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"wc@2:session:abc"}, keys)

	require.NoError(t, s.Remove(ctx, "wc@2:session:abc"))
	_, found, err = s.Get(ctx, "wc@2:session:abc")
	require.NoError(t, err)
	assert.False(t, found)

	// Removing an absent key is not an error.
	require.NoError(t, s.Remove(ctx, "wc@2:session:abc"))
}

func TestMemoryStoreClear(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	require.NoError(t, s.Set(ctx, "a", "1"))
	require.NoError(t, s.Set(ctx, "b", "2"))
	s.Clear()

	keys, err := s.Keys(ctx)
	require.NoError(t, err)
	assert.Empty(t, keys)
}
