package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"io"
	"strings"
	"testing"

	"github.com/memofn/evalstore/common/logger"
	"github.com/memofn/evalstore/common/objectstore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestStore() (*Store, *objectstore.MemoryBackend) {
	backend := objectstore.NewMemoryBackend()
	return NewStore(backend, nil, logger.New("error", "text")), backend
}

func hashOf(data []byte) string {
	sum := sha256.Sum256(data)
	return hex.EncodeToString(sum[:])
}

func TestStore_UploadDownloadRoundTrip(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	payload := []byte("some serialized eval result")
	key, err := store.Upload(ctx, bytes.NewReader(payload), hashOf(payload), int64(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, hashOf(payload), key)

	rc, err := store.Download(ctx, key)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestStore_UploadIsIdempotent(t *testing.T) {
	store, backend := newTestStore()
	ctx := context.Background()

	payload := []byte("dedup me")
	hash := hashOf(payload)

	_, err := store.Upload(ctx, bytes.NewReader(payload), hash, int64(len(payload)))
	require.NoError(t, err)
	_, err = store.Upload(ctx, bytes.NewReader(payload), hash, int64(len(payload)))
	require.NoError(t, err)

	assert.Equal(t, 1, backend.Len())
}

// A payload whose bytes do not hash to the claimed digest must be
// rejected, and the bogus key must not become readable.
func TestStore_UploadWrongHash(t *testing.T) {
	store, backend := newTestStore()
	ctx := context.Background()

	payload := []byte("actual content")
	wrongHash := hashOf([]byte("different content"))

	_, err := store.Upload(ctx, bytes.NewReader(payload), wrongHash, int64(len(payload)))
	require.ErrorIs(t, err, ErrIntegrity)

	assert.Equal(t, 0, backend.Len())
	_, err = store.Download(ctx, wrongHash)
	require.ErrorIs(t, err, objectstore.ErrNotFound)
}

func TestStore_UploadStreamShorterThanClaimed(t *testing.T) {
	store, backend := newTestStore()
	ctx := context.Background()

	payload := []byte("short")
	_, err := store.Upload(ctx, bytes.NewReader(payload), hashOf(payload), int64(len(payload))+10)
	require.ErrorIs(t, err, ErrIntegrity)
	assert.Equal(t, 0, backend.Len())
}

func TestStore_UploadStreamLongerThanClaimed(t *testing.T) {
	store, backend := newTestStore()
	ctx := context.Background()

	payload := []byte("longer than it says")
	_, err := store.Upload(ctx, bytes.NewReader(payload), hashOf(payload), int64(len(payload))-3)
	require.ErrorIs(t, err, ErrIntegrity)
	assert.Equal(t, 0, backend.Len())
}

func TestStore_UploadEmptyPayload(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	key, err := store.Upload(ctx, strings.NewReader(""), hashOf(nil), 0)
	require.NoError(t, err)

	rc, err := store.Download(ctx, key)
	require.NoError(t, err)
	defer rc.Close()

	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestStore_UploadMalformedHash(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	for _, claimed := range []string{
		"",
		"abc123",
		strings.Repeat("z", 64),
		strings.Repeat("a", 63),
		strings.Repeat("a", 65),
	} {
		_, err := store.Upload(ctx, strings.NewReader("x"), claimed, 1)
		assert.ErrorIs(t, err, ErrInvalidHash, "claimed hash %q", claimed)
	}
}

func TestStore_UploadUppercaseHashNormalized(t *testing.T) {
	store, _ := newTestStore()
	ctx := context.Background()

	payload := []byte("case insensitive claim")
	upper := strings.ToUpper(hashOf(payload))

	key, err := store.Upload(ctx, bytes.NewReader(payload), upper, int64(len(payload)))
	require.NoError(t, err)
	assert.Equal(t, hashOf(payload), key)

	// Download accepts either case too.
	rc, err := store.Download(ctx, upper)
	require.NoError(t, err)
	rc.Close()
}

func TestStore_DownloadMissing(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.Download(context.Background(), hashOf([]byte("never uploaded")))
	require.ErrorIs(t, err, objectstore.ErrNotFound)
}

func TestStore_DownloadMalformedHash(t *testing.T) {
	store, _ := newTestStore()

	_, err := store.Download(context.Background(), "not-a-hash")
	require.ErrorIs(t, err, ErrInvalidHash)
}
