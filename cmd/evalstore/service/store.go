package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"hash"
	"io"
	"time"

	"github.com/memofn/evalstore/common/logger"
	"github.com/memofn/evalstore/common/objectstore"
	"github.com/memofn/evalstore/common/telemetry"
)

var (
	// ErrIntegrity means the payload bytes did not hash to the claimed digest.
	ErrIntegrity = errors.New("content hash does not match payload")

	// ErrInvalidHash means the claimed digest is not a well-formed sha256 hex string.
	ErrInvalidHash = errors.New("malformed content hash")
)

// ErrNotFound is re-exported so handlers do not reach into the
// objectstore package for a storage-level sentinel.
var ErrNotFound = objectstore.ErrNotFound

// Store is a content-addressed blob store. Objects are keyed by the
// sha256 of their bytes, so an upload carries its own proof of
// integrity: the digest the client claims is verified against the
// stream while it is being written to the backend, and a mismatch
// fails the upload before the key ever becomes readable.
//
// Downloads trust the backend. Bytes are verified exactly once, on the
// way in, and a backend that later corrupts an object is not caught
// here.
type Store struct {
	backend objectstore.Backend
	tel     *telemetry.Telemetry
	log     *logger.Logger
}

// NewStore creates a content-addressed store over the backend.
func NewStore(backend objectstore.Backend, tel *telemetry.Telemetry, log *logger.Logger) *Store {
	return &Store{backend: backend, tel: tel, log: log}
}

// NormalizeHash validates a claimed sha256 digest and returns the
// lowercase hex form used as the storage key. Accepts 64 hex characters
// in either case; anything else is ErrInvalidHash. Handlers call this
// on path parameters before touching the database so a malformed hash
// never reaches a query.
func NormalizeHash(claimed string) (string, error) {
	key, _, err := normalizeHash(claimed)
	return key, err
}

func normalizeHash(claimed string) (string, []byte, error) {
	if len(claimed) != sha256.Size*2 {
		return "", nil, ErrInvalidHash
	}
	digest, err := hex.DecodeString(claimed)
	if err != nil {
		return "", nil, ErrInvalidHash
	}
	return hex.EncodeToString(digest), digest, nil
}

// Upload streams payload into the backend under its content hash,
// verifying the claimed digest and length against the bytes as they
// pass through. Returns ErrInvalidHash for a malformed claim and
// ErrIntegrity when the stream is shorter, longer, or hashes
// differently than claimed. Uploading a hash that already exists is a
// no-op at the backend's discretion; the store itself is idempotent.
func (s *Store) Upload(ctx context.Context, payload io.Reader, claimedHash string, length int64) (string, error) {
	key, want, err := normalizeHash(claimedHash)
	if err != nil {
		return "", err
	}
	if s.tel != nil {
		defer s.tel.RecordDuration("blob_upload", time.Now())
	}

	v := newHashVerifier(payload, want, length)
	if err := s.backend.Put(ctx, key, v, length); err != nil {
		if errors.Is(err, ErrIntegrity) {
			s.recordIntegrityFailure(key)
			return "", ErrIntegrity
		}
		return "", fmt.Errorf("failed to store blob: %w", err)
	}

	// Backends that buffer before writing report success on EOF, so a
	// short stream can slip through Put without the verifier firing.
	if !v.verified {
		s.recordIntegrityFailure(key)
		return "", ErrIntegrity
	}

	if s.tel != nil {
		s.tel.UploadsTotal.Inc()
		s.tel.UploadBytesTotal.Add(float64(length))
	}
	s.log.WithContentHash(key).Debug("blob stored", "length", length)

	return key, nil
}

// Download opens the blob stored under the hash. Returns
// objectstore.ErrNotFound when no such object exists. The caller owns
// the returned reader.
func (s *Store) Download(ctx context.Context, hexHash string) (io.ReadCloser, error) {
	key, _, err := normalizeHash(hexHash)
	if err != nil {
		return nil, ErrInvalidHash
	}

	if s.tel != nil {
		defer s.tel.RecordDuration("blob_download", time.Now())
	}

	rc, err := s.backend.Get(ctx, key)
	if err != nil {
		if errors.Is(err, objectstore.ErrNotFound) {
			return nil, objectstore.ErrNotFound
		}
		return nil, fmt.Errorf("failed to fetch blob: %w", err)
	}

	if s.tel != nil {
		s.tel.DownloadsTotal.Inc()
	}

	return rc, nil
}

func (s *Store) recordIntegrityFailure(key string) {
	if s.tel != nil {
		s.tel.IntegrityFailures.Inc()
	}
	s.log.WithContentHash(key).Warn("integrity check failed")
}

// hashVerifier wraps the payload stream and checks the running sha256
// against the claimed digest as the declared length is reached. Reads
// past the declared length, a digest mismatch at the boundary, or EOF
// before the boundary all surface as ErrIntegrity, which makes the
// backend's copy loop abort mid-write instead of completing the
// object.
type hashVerifier struct {
	src      io.Reader
	h        hash.Hash
	want     []byte
	length   int64
	seen     int64
	verified bool
}

func newHashVerifier(src io.Reader, want []byte, length int64) *hashVerifier {
	v := &hashVerifier{src: src, h: sha256.New(), want: want, length: length}
	if length == 0 {
		v.verified = bytes.Equal(v.h.Sum(nil), want)
	}
	return v
}

func (v *hashVerifier) Read(p []byte) (int, error) {
	n, err := v.src.Read(p)
	if n > 0 {
		if v.seen+int64(n) > v.length {
			return 0, ErrIntegrity
		}
		v.h.Write(p[:n])
		v.seen += int64(n)
		if v.seen == v.length {
			if !bytes.Equal(v.h.Sum(nil), v.want) {
				return 0, ErrIntegrity
			}
			v.verified = true
		}
	}
	if err == io.EOF && !v.verified {
		return n, ErrIntegrity
	}
	return n, err
}
