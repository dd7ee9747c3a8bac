package sqlitedb

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/essayshare/internal/db/sqlstore"
	"github.com/patric-chuzhbe/essayshare/internal/db/storetest"
	"github.com/patric-chuzhbe/essayshare/internal/essay"
)

func TestStorageBehaviour(t *testing.T) {
	storetest.Run(t, func(t *testing.T, now func() time.Time) storetest.Storage {
		theStorage, err := New(
			context.Background(),
			filepath.Join(t.TempDir(), "essays.db"),
			sqlstore.WithClock(now),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, theStorage.Close())
		})
		return theStorage
	})
}

func TestMigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "essays.db")

	first, err := New(ctx, path)
	require.NoError(t, err)
	created, err := first.CreateEssay(ctx, &essay.Essay{Title: "kept", IsPublic: true})
	require.NoError(t, err)
	require.NoError(t, first.Close())

	second, err := New(ctx, path)
	require.NoError(t, err)
	defer second.Close()

	fetched, err := second.GetEssay(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "kept", fetched.Title)
	assert.True(t, fetched.IsPublic)
}
