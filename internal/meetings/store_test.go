package meetings

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/normanking/pheoni/internal/dates"
)

var testNow = time.Date(2025, time.March, 10, 9, 0, 0, 0, time.Local)

func setupTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(t.TempDir())
	require.NoError(t, err)
	store.SetClock(func() time.Time { return testNow })
	t.Cleanup(func() { store.Close() })
	return store
}

func TestCreate(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	t.Run("normalizes relative dates", func(t *testing.T) {
		m, err := store.Create(ctx, "tomorrow", "3:30 PM", "Alice")
		require.NoError(t, err)
		assert.NotEmpty(t, m.ID)
		assert.Equal(t, "2025-03-11", m.Date)
		assert.Equal(t, "3:30 PM", m.Time)
		assert.Equal(t, "Alice", m.Counterpart)
		assert.Equal(t, DefaultDescription, m.Description)
	})

	t.Run("empty time becomes sentinel", func(t *testing.T) {
		m, err := store.Create(ctx, "10th march 2025", "", "Bob")
		require.NoError(t, err)
		assert.Equal(t, "Not specified", m.Time)
	})

	t.Run("unparseable date persists nothing", func(t *testing.T) {
		before, err := store.ListAll(ctx)
		require.NoError(t, err)

		_, err = store.Create(ctx, "someday", "", "Carol")
		assert.ErrorIs(t, err, dates.ErrUnparseable)

		after, err := store.ListAll(ctx)
		require.NoError(t, err)
		assert.Len(t, after, len(before))
	})
}

func TestListAllInsertionOrder(t *testing.T) {
	store := setupTestStore(t)
	ctx := context.Background()

	for _, with := range []string{"one", "two", "three"} {
		_, err := store.Create(ctx, "2025-06-01", "", with)
		require.NoError(t, err)
	}

	all, err := store.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "one", all[0].Counterpart)
	assert.Equal(t, "two", all[1].Counterpart)
	assert.Equal(t, "three", all[2].Counterpart)
}

func TestCancel(t *testing.T) {
	ctx := context.Background()

	t.Run("case-insensitive full match", func(t *testing.T) {
		store := setupTestStore(t)
		_, err := store.Create(ctx, "2025-05-01", "", "Alice")
		require.NoError(t, err)

		n, err := store.Cancel(ctx, "2025-05-01", "ALICE")
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("substring does not match", func(t *testing.T) {
		store := setupTestStore(t)
		_, err := store.Create(ctx, "2025-05-01", "", "Alice Smith")
		require.NoError(t, err)

		n, err := store.Cancel(ctx, "2025-05-01", "Alice")
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("deletes all matches on the date", func(t *testing.T) {
		store := setupTestStore(t)
		for i := 0; i < 2; i++ {
			_, err := store.Create(ctx, "2025-05-01", "", "Alice")
			require.NoError(t, err)
		}
		_, err := store.Create(ctx, "2025-05-02", "", "Alice")
		require.NoError(t, err)

		n, err := store.Cancel(ctx, "2025-05-01", "alice")
		require.NoError(t, err)
		assert.Equal(t, 2, n)

		left, err := store.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, "2025-05-02", left[0].Date)
	})

	t.Run("unparseable date is an error, not a zero", func(t *testing.T) {
		store := setupTestStore(t)
		_, err := store.Cancel(ctx, "whenever", "Alice")
		assert.ErrorIs(t, err, dates.ErrUnparseable)
	})
}

func TestSweepExpired(t *testing.T) {
	ctx := context.Background()

	t.Run("timed record expires one second after its instant", func(t *testing.T) {
		store := setupTestStore(t)
		_, err := store.Create(ctx, "2025-03-10", "3:30 PM", "Alice")
		require.NoError(t, err)
		_, err = store.Create(ctx, "2025-03-10", "5:00 PM", "Bob")
		require.NoError(t, err)

		due := time.Date(2025, time.March, 10, 15, 30, 0, 0, time.Local)
		n, err := store.SweepExpired(ctx, due.Add(time.Second))
		require.NoError(t, err)
		assert.Equal(t, 1, n)

		left, err := store.ListAll(ctx)
		require.NoError(t, err)
		require.Len(t, left, 1)
		assert.Equal(t, "Bob", left[0].Counterpart)
	})

	t.Run("unspecified time expires once the date is past", func(t *testing.T) {
		store := setupTestStore(t)
		_, err := store.Create(ctx, "2025-03-09", "", "Alice")
		require.NoError(t, err)

		// Still 2025-03-10: the 03-09 record's date is already past.
		n, err := store.SweepExpired(ctx, testNow)
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})

	t.Run("unspecified time survives on its own date", func(t *testing.T) {
		store := setupTestStore(t)
		_, err := store.Create(ctx, "2025-03-10", "", "Alice")
		require.NoError(t, err)

		n, err := store.SweepExpired(ctx, testNow)
		require.NoError(t, err)
		assert.Equal(t, 0, n)
	})

	t.Run("unparseable time is treated as date-only", func(t *testing.T) {
		store := setupTestStore(t)
		_, err := store.Create(ctx, "2025-03-10", "half past noon", "Alice")
		require.NoError(t, err)

		n, err := store.SweepExpired(ctx, testNow)
		require.NoError(t, err)
		assert.Equal(t, 0, n)

		n, err = store.SweepExpired(ctx, testNow.AddDate(0, 0, 1))
		require.NoError(t, err)
		assert.Equal(t, 1, n)
	})
}

func TestSweeperLifecycle(t *testing.T) {
	store := setupTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())

	_, err := store.Create(ctx, "2025-01-01", "", "Old")
	require.NoError(t, err)

	store.StartSweeper(ctx, 10*time.Millisecond)

	assert.Eventually(t, func() bool {
		all, err := store.ListAll(context.Background())
		return err == nil && len(all) == 0
	}, 2*time.Second, 20*time.Millisecond)

	cancel()
}
