package blob

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	mr := miniredis.RunT(t)
	s, err := NewStore(&redis.Options{Addr: mr.Addr()}, "test")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestPutGetRoundTrip(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	data := []byte{0x89, 0x50, 0x4e, 0x47} // PNG magic
	require.NoError(t, s.Put(ctx, "abc.png", data))

	got, err := s.Get(ctx, "abc.png")
	require.NoError(t, err)
	assert.Equal(t, data, got)
}

func TestPutIsIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, s.Put(ctx, "abc.png", []byte("first")))
	require.NoError(t, s.Put(ctx, "abc.png", []byte("retry")))

	got, err := s.Get(ctx, "abc.png")
	require.NoError(t, err)
	assert.Equal(t, []byte("retry"), got)
}

func TestGetMissingIsNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.Get(context.Background(), "nope.png")
	assert.True(t, IsNotFound(err))
}

func TestPutEmptyNameFails(t *testing.T) {
	s := newTestStore(t)
	assert.Error(t, s.Put(context.Background(), "", []byte("data")))
}
