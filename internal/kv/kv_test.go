package kv

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func storesUnderTest(t *testing.T) map[string]Store {
	t.Helper()
	gs, err := OpenSQLite(filepath.Join(t.TempDir(), "kv.db"))
	require.NoError(t, err)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"gorm":   gs,
	}
}

func TestStore_PutGetOverwrite(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			_, ok, err := s.Get(ctx, "slot")
			require.NoError(t, err)
			assert.False(t, ok)

			require.NoError(t, s.Put(ctx, "slot", []byte("one")))
			require.NoError(t, s.Put(ctx, "slot", []byte("two")))

			v, ok, err := s.Get(ctx, "slot")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "two", string(v))

			require.NoError(t, s.Delete(ctx, "slot"))
			_, ok, err = s.Get(ctx, "slot")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestStore_EmptyKey(t *testing.T) {
	ctx := context.Background()
	for name, s := range storesUnderTest(t) {
		t.Run(name, func(t *testing.T) {
			assert.ErrorIs(t, s.Put(ctx, "", []byte("x")), ErrEmptyKey)
			_, _, err := s.Get(ctx, "")
			assert.ErrorIs(t, err, ErrEmptyKey)
		})
	}
}

func TestMemoryStore_CopiesValues(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	buf := []byte("abc")
	require.NoError(t, s.Put(ctx, "k", buf))
	buf[0] = 'z'

	v, _, err := s.Get(ctx, "k")
	require.NoError(t, err)
	assert.Equal(t, "abc", string(v))
}
