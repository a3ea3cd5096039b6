package memstore_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Breeze/breeze.sharp-sub000/offline/memstore"
)

func TestStore(t *testing.T) {
	ctx := context.Background()
	s := memstore.New()

	got, err := s.Get(ctx, "app:a")
	require.NoError(t, err)
	assert.Nil(t, got)

	v := []byte("one")
	require.NoError(t, s.Set(ctx, "app:a", v))
	v[0] = 'X'
	got, err = s.Get(ctx, "app:a")
	require.NoError(t, err)
	assert.Equal(t, []byte("one"), got)
	got[0] = 'Y'
	got, _ = s.Get(ctx, "app:a")
	assert.Equal(t, []byte("one"), got)

	require.NoError(t, s.Set(ctx, "app:b", nil))
	got, err = s.Get(ctx, "app:b")
	require.NoError(t, err)
	assert.NotNil(t, got)
	require.NoError(t, s.Set(ctx, "other:a", []byte("x")))
	assert.Equal(t, []string{"app:a", "app:b"}, s.Keys("app:"))

	require.NoError(t, s.Delete(ctx, "app:a"))
	assert.Equal(t, []string{"app:b", "other:a"}, s.Keys(""))
	require.NoError(t, s.DeletePrefix(ctx, "app:"))
	assert.Equal(t, []string{"other:a"}, s.Keys(""))
	require.NoError(t, s.Clear(ctx))
	assert.Empty(t, s.Keys(""))
}
