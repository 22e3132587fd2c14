package eventstore

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"librarium/internal/testutil"
)

type testEvent struct {
	Message string `json:"message"`
}

func appendOne(t testing.TB, store *EventStore, aggregateID string, expected int, msg string) error {
	t.Helper()
	ctx := context.Background()

	ev, err := NewEvent("TestEvent", testEvent{Message: msg})
	require.NoError(t, err)

	tx, err := store.db.BeginTxx(ctx, nil)
	require.NoError(t, err)
	defer tx.Rollback()

	if err := store.Append(ctx, tx, aggregateID, "test_aggregate", expected, []Event{ev}); err != nil {
		return err
	}
	return tx.Commit()
}

func TestAppendAndLoad(t *testing.T) {
	db := testutil.OpenDB(t)
	store := NewEventStore(db)

	require.NoError(t, appendOne(t, store, "978-0", 0, "first"))
	require.NoError(t, appendOne(t, store, "978-0", 1, "second"))

	events, err := store.Load(context.Background(), "978-0")
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, 1, events[0].Version)
	assert.Equal(t, 2, events[1].Version)
	assert.JSONEq(t, `{"message":"second"}`, string(events[1].EventData))
}

func TestAppend_VersionConflict(t *testing.T) {
	db := testutil.OpenDB(t)
	store := NewEventStore(db)

	require.NoError(t, appendOne(t, store, "978-1", 0, "first"))
	err := appendOne(t, store, "978-1", 0, "stale writer")
	assert.ErrorIs(t, err, ErrConcurrencyConflict)
}

func TestAppend_NoEvents(t *testing.T) {
	db := testutil.OpenDB(t)
	store := NewEventStore(db)

	tx, err := db.BeginTxx(context.Background(), nil)
	require.NoError(t, err)
	defer tx.Rollback()

	assert.ErrorIs(t, store.Append(context.Background(), tx, "x", "book", 0, nil), ErrNoEvents)
}

func TestStream(t *testing.T) {
	db := testutil.OpenDB(t)
	store := NewEventStore(db)

	for i := 0; i < 3; i++ {
		require.NoError(t, appendOne(t, store, fmt.Sprintf("agg-%d", i), 0, "hello"))
	}

	first, err := store.Stream(context.Background(), 0, 2)
	require.NoError(t, err)
	require.Len(t, first, 2)

	rest, err := store.Stream(context.Background(), first[1].ID, 10)
	require.NoError(t, err)
	assert.Len(t, rest, 1)
}

func BenchmarkAppend(b *testing.B) {
	db := testutil.OpenDB(b)
	store := NewEventStore(db)

	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if err := appendOne(b, store, fmt.Sprintf("bench-%d", i), 0, "event"); err != nil {
			b.Fatalf("Append failed: %v", err)
		}
	}
}
