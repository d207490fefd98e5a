package objectstore

import (
	"context"
	"io"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryBackend_PutGet(t *testing.T) {
	b := NewMemoryBackend()
	ctx := context.Background()

	err := b.Put(ctx, "key1", strings.NewReader("hello"), 5)
	require.NoError(t, err)

	rc, err := b.Get(ctx, "key1")
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(got))
}

func TestMemoryBackend_GetMissing(t *testing.T) {
	b := NewMemoryBackend()

	_, err := b.Get(context.Background(), "nope")
	require.ErrorIs(t, err, ErrNotFound)
}

type eofReader struct{ err error }

func (r eofReader) Read([]byte) (int, error) { return 0, r.err }

// A failed body read must not leave a partial object behind.
func TestMemoryBackend_PutFailedReadStoresNothing(t *testing.T) {
	b := NewMemoryBackend()

	err := b.Put(context.Background(), "key1", eofReader{err: io.ErrClosedPipe}, 10)
	require.Error(t, err)
	assert.Equal(t, 0, b.Len())
}
