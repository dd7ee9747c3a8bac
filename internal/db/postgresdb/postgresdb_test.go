package postgresdb

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/patric-chuzhbe/essayshare/internal/db/sqlstore"
	"github.com/patric-chuzhbe/essayshare/internal/db/storetest"
)

func TestStorageBehaviour(t *testing.T) {
	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN is not set")
	}

	storetest.Run(t, func(t *testing.T, now func() time.Time) storetest.Storage {
		theStorage, err := New(
			context.Background(),
			dsn,
			10*time.Second,
			WithDBPreReset(true),
			WithStoreOptions(sqlstore.WithClock(now)),
		)
		require.NoError(t, err)
		t.Cleanup(func() {
			require.NoError(t, theStorage.Close())
		})
		return theStorage
	})
}
