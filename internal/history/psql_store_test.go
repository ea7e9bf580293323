//go:build integration_test || all_tests

package history

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/2beens/fittrack/internal/apperr"
	"github.com/2beens/fittrack/internal/db"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testPsqlStoreSetup(t *testing.T, maxEntries int) (*PsqlStore, func()) {
	t.Helper()

	timeoutCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	host := os.Getenv("POSTGRES_HOST")
	if host == "" {
		host = "localhost"
	}
	t.Logf("using postres host: %s", host)

	dbPool, err := db.NewDBPool(timeoutCtx, db.NewDBPoolParams{
		DBHost:         host,
		DBPort:         "5432",
		DBName:         "fittrack",
		TracingEnabled: false,
	})
	require.NoError(t, err)

	_, err = dbPool.Exec(timeoutCtx, Schema)
	require.NoError(t, err)

	return NewPsqlStore(dbPool, maxEntries), func() {
		dbPool.Close()
	}
}

func TestPsqlStore_AppendList(t *testing.T) {
	ctx := context.Background()
	store, shutdown := testPsqlStoreSetup(t, 0)
	defer shutdown()

	// newer than anything left behind by previous runs
	base := time.Now().UTC().Add(24 * time.Hour).Truncate(time.Second)
	prefix := gofakeit.UUID()

	var appended []Entry
	for i := 0; i < 3; i++ {
		e, err := NewEntry(
			fmt.Sprintf("%s-%d", prefix, i),
			KindWorkout,
			gofakeit.Name(),
			base.Add(time.Duration(i)*time.Minute),
			testPayload{Distance: gofakeit.Float64Range(0, 10000), Calories: i},
		)
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, e))
		appended = append(appended, e)
	}

	entries, err := store.List(ctx, KindWorkout, 2)
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, appended[2].ID, entries[0].ID)
	assert.Equal(t, appended[1].ID, entries[1].ID)
	assert.Equal(t, appended[2].Name, entries[0].Name)
	assert.True(t, appended[2].FinishedAt.Equal(entries[0].FinishedAt.UTC()))
	assert.JSONEq(t, string(appended[2].Payload), string(entries[0].Payload))

	// duplicate id
	assert.ErrorIs(t, store.Append(ctx, appended[0]), apperr.ErrInvariantViolation)
}

func TestPsqlStore_AppendTrimsToMaxEntries(t *testing.T) {
	ctx := context.Background()
	store, shutdown := testPsqlStoreSetup(t, 3)
	defer shutdown()

	// non-UTC finish times, newer than the rows of other tests
	zone := time.FixedZone("CEST", 2*60*60)
	base := time.Now().In(zone).Add(48 * time.Hour).Truncate(time.Second)
	prefix := gofakeit.UUID()

	var appended []Entry
	for i := 0; i < 5; i++ {
		e, err := NewEntry(
			fmt.Sprintf("%s-%d", prefix, i),
			KindActivity,
			gofakeit.Name(),
			base.Add(time.Duration(i)*time.Minute),
			testPayload{Distance: gofakeit.Float64Range(0, 10000), Calories: i},
		)
		require.NoError(t, err)
		require.NoError(t, store.Append(ctx, e))
		appended = append(appended, e)
	}

	entries, err := store.List(ctx, KindActivity, 0)
	require.NoError(t, err)
	require.Len(t, entries, 3)
	for i, entry := range entries {
		want := appended[4-i]
		assert.Equal(t, want.ID, entry.ID)
		assert.True(t, want.FinishedAt.Equal(entry.FinishedAt), "finished at: %s != %s", want.FinishedAt, entry.FinishedAt)
	}
}
