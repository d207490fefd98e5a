package models

import "github.com/google/uuid"

// User is a tenant account provisioned through GitHub login.
// Maps to: users table.
type User struct {
	ID            uuid.UUID `db:"id" json:"id"`
	GhID          int64     `db:"gh_id" json:"gh_id"`
	GhEmail       string    `db:"gh_email" json:"gh_email"`
	GhLogin       string    `db:"gh_login" json:"gh_login"`
	GhAvatarURL   string    `db:"gh_avatar_url" json:"gh_avatar_url"`
	EmailVerified bool      `db:"email_verified" json:"email_verified"`
}

// UserUpsert carries the GitHub profile recorded at login time.
type UserUpsert struct {
	GhID          int64
	GhEmail       string
	GhLogin       string
	GhToken       string
	GhAvatarURL   string
	EmailVerified bool
}
