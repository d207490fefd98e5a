package models

// Blob is a content-addressed binary object owned by a user.
// Maps to: blobs table. The object bytes themselves live in the remote
// object store under the hex encoding of ContentHash; the row only
// records ownership.
type Blob struct {
	ID          int64  `db:"id" json:"id"`
	ContentHash string `db:"content_hash" json:"content_hash"`
}

// BlobInsert is the metadata block of a framed blob upload.
type BlobInsert struct {
	// ContentHash is the client-claimed sha256 digest, hex encoded.
	// It is verified against the transmitted bytes before anything is
	// recorded.
	ContentHash string `json:"content_hash"`

	// ContentLength is the declared payload size in bytes. Used as an
	// upload hint, not a trust boundary.
	ContentLength int64 `json:"content_length"`
}
