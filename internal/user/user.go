// Package user defines the user model and the per-request identity
// derived from a credential token.
package user

import "time"

// User represents a registered account.
type User struct {
	// ID is the numeric identifier assigned by the store on creation.
	ID int64 `json:"id"`

	// Username is unique and case-sensitive. It never changes once set.
	Username string `json:"username"`

	// PasswordHash is the bcrypt digest of the password. It is only read by the login flow.
	PasswordHash string `json:"-"`

	CreatedAt time.Time `json:"created_at"`
}

// Identity is the authenticated caller extracted from a verified token.
// It lives for a single request and is never persisted.
type Identity struct {
	UserID   int64
	Username string
}

// Owns reports whether the identity owns a resource with the given owner id.
// A nil owner is never matched.
func (i *Identity) Owns(ownerID *int64) bool {
	return i != nil && ownerID != nil && *ownerID == i.UserID
}
