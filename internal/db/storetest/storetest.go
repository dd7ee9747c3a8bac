// Package storetest is a behaviour suite every storage backend must pass.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/essayshare/internal/essay"
	"github.com/patric-chuzhbe/essayshare/internal/models"
	"github.com/patric-chuzhbe/essayshare/internal/user"
)

// Storage is the full storage contract.
type Storage interface {
	CreateUser(ctx context.Context, usr *user.User) (*user.User, error)
	GetUserByUsername(ctx context.Context, username string) (*user.User, error)
	CreateEssay(ctx context.Context, e *essay.Essay) (*essay.Essay, error)
	GetEssay(ctx context.Context, id int64) (*essay.Essay, error)
	ListPublicEssays(ctx context.Context) ([]essay.Essay, error)
	ListEssaysByOwner(ctx context.Context, userID int64) ([]essay.Essay, error)
	UpdateEssay(ctx context.Context, id int64, fields essay.Fields) (*essay.Essay, error)
	DeleteEssay(ctx context.Context, id int64) error
	GetEssayOwner(ctx context.Context, id int64) (*int64, error)
	GetNumberOfUsers(ctx context.Context) (int64, error)
	GetNumberOfEssays(ctx context.Context) (int64, error)
	Ping(ctx context.Context) error
	Close() error
}

// Factory creates an empty storage using now as its clock.
type Factory func(t *testing.T, now func() time.Time) Storage

// Clock is a manually advanced time source safe for concurrent use.
type Clock struct {
	mu  sync.Mutex
	now time.Time
}

// NewClock returns a clock starting at a fixed instant.
func NewClock() *Clock {
	return &Clock{now: time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)}
}

// Now returns the current simulated time.
func (c *Clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Advance moves the clock forward.
func (c *Clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func ownerID(id int64) *int64 {
	return &id
}

func ids(essays []essay.Essay) []int64 {
	result := make([]int64, 0, len(essays))
	for _, e := range essays {
		result = append(result, e.ID)
	}
	return result
}

// Run executes the suite against storages built by newStorage.
func Run(t *testing.T, newStorage Factory) {
	t.Run("users", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock()
		storage := newStorage(t, clock.Now)

		created, err := storage.CreateUser(ctx, &user.User{Username: "alice", PasswordHash: "digest"})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "alice", created.Username)

		_, err = storage.CreateUser(ctx, &user.User{Username: "alice", PasswordHash: "other"})
		assert.ErrorIs(t, err, models.ErrDuplicateUsername)

		other, err := storage.CreateUser(ctx, &user.User{Username: "Alice", PasswordHash: "digest"})
		require.NoError(t, err, "usernames are case-sensitive")
		assert.NotEqual(t, created.ID, other.ID)

		found, err := storage.GetUserByUsername(ctx, "alice")
		require.NoError(t, err)
		assert.Equal(t, created.ID, found.ID)
		assert.Equal(t, "digest", found.PasswordHash)

		_, err = storage.GetUserByUsername(ctx, "nobody")
		assert.ErrorIs(t, err, models.ErrNotFound)

		count, err := storage.GetNumberOfUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(2), count)
	})

	t.Run("essay lifecycle", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock()
		storage := newStorage(t, clock.Now)

		created, err := storage.CreateEssay(ctx, &essay.Essay{
			Title:    "title",
			Content:  "content",
			UserID:   ownerID(1),
			IsPublic: false,
		})
		require.NoError(t, err)
		assert.NotZero(t, created.ID)
		assert.Equal(t, "title", created.Title)
		require.NotNil(t, created.UserID)
		assert.Equal(t, int64(1), *created.UserID)
		assert.True(t, clock.Now().Equal(created.CreatedAt))
		assert.True(t, created.CreatedAt.Equal(created.UpdatedAt))

		owner, err := storage.GetEssayOwner(ctx, created.ID)
		require.NoError(t, err)
		require.NotNil(t, owner)
		assert.Equal(t, int64(1), *owner)

		clock.Advance(time.Minute)
		updated, err := storage.UpdateEssay(ctx, created.ID, essay.Fields{Title: "new", Content: "", IsPublic: true})
		require.NoError(t, err)
		assert.Equal(t, "new", updated.Title)
		assert.Equal(t, "", updated.Content)
		assert.True(t, updated.IsPublic)
		assert.True(t, created.CreatedAt.Equal(updated.CreatedAt))
		assert.True(t, clock.Now().Equal(updated.UpdatedAt))
		require.NotNil(t, updated.UserID)
		assert.Equal(t, int64(1), *updated.UserID, "the owner never changes")

		fetched, err := storage.GetEssay(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, updated.Title, fetched.Title)

		count, err := storage.GetNumberOfEssays(ctx)
		require.NoError(t, err)
		assert.Equal(t, int64(1), count)

		require.NoError(t, storage.DeleteEssay(ctx, created.ID))

		_, err = storage.GetEssay(ctx, created.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		_, err = storage.GetEssayOwner(ctx, created.ID)
		assert.ErrorIs(t, err, models.ErrNotFound)
		assert.ErrorIs(t, storage.DeleteEssay(ctx, created.ID), models.ErrNotFound)
		_, err = storage.UpdateEssay(ctx, created.ID, essay.Fields{Title: "x"})
		assert.ErrorIs(t, err, models.ErrNotFound)
	})

	t.Run("ownerless essay", func(t *testing.T) {
		ctx := context.Background()
		storage := newStorage(t, NewClock().Now)

		created, err := storage.CreateEssay(ctx, &essay.Essay{Title: "legacy"})
		require.NoError(t, err)
		assert.Nil(t, created.UserID)

		owner, err := storage.GetEssayOwner(ctx, created.ID)
		require.NoError(t, err)
		assert.Nil(t, owner)
	})

	t.Run("listings", func(t *testing.T) {
		ctx := context.Background()
		clock := NewClock()
		storage := newStorage(t, clock.Now)

		create := func(owner *int64, public bool) int64 {
			clock.Advance(time.Second)
			created, err := storage.CreateEssay(ctx, &essay.Essay{Title: "t", UserID: owner, IsPublic: public})
			require.NoError(t, err)
			return created.ID
		}

		alicePrivate := create(ownerID(1), false)
		alicePublic := create(ownerID(1), true)
		bobPublic := create(ownerID(2), true)
		bobPrivate := create(ownerID(2), false)
		legacyPublic := create(nil, true)
		aliceLatestPrivate := create(ownerID(1), false)

		public, err := storage.ListPublicEssays(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{legacyPublic, bobPublic, alicePublic}, ids(public))
		for _, e := range public {
			assert.True(t, e.IsPublic)
		}

		alice, err := storage.ListEssaysByOwner(ctx, 1)
		require.NoError(t, err)
		assert.Equal(t, []int64{aliceLatestPrivate, alicePublic, alicePrivate}, ids(alice))

		bob, err := storage.ListEssaysByOwner(ctx, 2)
		require.NoError(t, err)
		assert.Equal(t, []int64{bobPrivate, bobPublic}, ids(bob))

		nobody, err := storage.ListEssaysByOwner(ctx, 3)
		require.NoError(t, err)
		assert.NotNil(t, nobody)
		assert.Empty(t, nobody)
	})

	t.Run("same creation time falls back to id order", func(t *testing.T) {
		ctx := context.Background()
		storage := newStorage(t, NewClock().Now)

		first, err := storage.CreateEssay(ctx, &essay.Essay{Title: "a", IsPublic: true})
		require.NoError(t, err)
		second, err := storage.CreateEssay(ctx, &essay.Essay{Title: "b", IsPublic: true})
		require.NoError(t, err)

		public, err := storage.ListPublicEssays(ctx)
		require.NoError(t, err)
		assert.Equal(t, []int64{second.ID, first.ID}, ids(public))
	})

	t.Run("ping", func(t *testing.T) {
		storage := newStorage(t, NewClock().Now)
		assert.NoError(t, storage.Ping(context.Background()))
	})
}
