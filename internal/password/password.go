// Package password hashes and verifies user passwords with bcrypt.
package password

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
)

// DefaultCost is the bcrypt work factor used unless configured otherwise.
const DefaultCost = 10

// ErrTooLong is returned for passwords bcrypt cannot hash (over 72 bytes).
var ErrTooLong = bcrypt.ErrPasswordTooLong

// Hasher produces and checks salted bcrypt digests.
type Hasher struct {
	cost int
}

// New returns a Hasher with the given cost. Out of range costs fall back to DefaultCost.
func New(cost int) *Hasher {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = DefaultCost
	}
	return &Hasher{cost: cost}
}

// Hash returns the bcrypt digest of plaintext.
func (h *Hasher) Hash(plaintext string) (string, error) {
	digest, err := bcrypt.GenerateFromPassword([]byte(plaintext), h.cost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrTooLong
		}
		return "", fmt.Errorf("in internal/password/password.go/Hash(): error while `bcrypt.GenerateFromPassword()` calling: %w", err)
	}
	return string(digest), nil
}

// Verify reports whether plaintext matches digest. The comparison is constant time.
func (h *Hasher) Verify(plaintext, digest string) bool {
	return bcrypt.CompareHashAndPassword([]byte(digest), []byte(plaintext)) == nil
}
