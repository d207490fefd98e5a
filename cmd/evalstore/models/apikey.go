package models

import (
	"crypto/rand"
	"encoding/base64"
	"time"

	"github.com/google/uuid"
)

// APIKey is a long-lived bearer credential. Maps to: api_keys table.
//
// Keys are stored in plaintext. They are randomly generated strings
// that cannot be guessed and will not be reused by users on other
// services, so they behave like session tokens rather than passwords;
// hashing them would add a verification cost to every request for no
// real gain.
type APIKey struct {
	UserID    uuid.UUID `db:"user_id" json:"user_id"`
	Label     string    `db:"label" json:"label"`
	Key       string    `db:"key" json:"key"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// NewKey generates a 32-byte random key, URL-safe base64 encoded.
func NewKey() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}
