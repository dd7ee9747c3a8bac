package password

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func TestHashAndVerify(t *testing.T) {
	hasher := New(bcrypt.MinCost)

	digest, err := hasher.Hash("s3cret")
	require.NoError(t, err)
	assert.NotEqual(t, "s3cret", digest)

	assert.True(t, hasher.Verify("s3cret", digest))
	assert.False(t, hasher.Verify("s3cret ", digest))
	assert.False(t, hasher.Verify("", digest))
	assert.False(t, hasher.Verify("s3cret", "not a digest"))
}

func TestHashIsSalted(t *testing.T) {
	hasher := New(bcrypt.MinCost)

	first, err := hasher.Hash("same")
	require.NoError(t, err)
	second, err := hasher.Hash("same")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDefaultCost(t *testing.T) {
	hasher := New(0)

	digest, err := hasher.Hash("pw")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, DefaultCost, cost)
}

func TestHashTooLong(t *testing.T) {
	_, err := New(bcrypt.MinCost).Hash(strings.Repeat("x", 73))
	assert.ErrorIs(t, err, ErrTooLong)
}
