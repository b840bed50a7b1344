package table

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline/table-sync-service/internal/domain/event"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestSession(t *testing.T, store Store, exporter Exporter, width, height int32, records []CellRecord) *Session {
	t.Helper()
	if exporter == nil {
		exporter = NopExporter{}
	}
	return newSession(42, width, height, records, store, exporter, testLogger(), defaultOptions())
}

func TestSessionSnapshotReflectsTextAndOwners(t *testing.T) {
	store := newFakeStore()
	sess := newTestSession(t, store, nil, 3, 2, []CellRecord{
		{Row: 0, Col: 0, Text: "Hello"},
		{Row: 1, Col: 2, Text: "World"},
	})

	sub := sess.Subscribe()
	defer sess.Unsubscribe(sub)

	require.True(t, sess.ApplyEdit(5, event.Insert{Cell: event.Ref{Row: 1, Col: 2}, Index: 0, Text: ">"}))

	snap := sess.Snapshot()
	require.Len(t, snap, 2)
	require.Len(t, snap[0], 3)

	assert.Equal(t, "Hello", snap[0][0].Text)
	assert.Nil(t, snap[0][0].OwnerID)

	assert.Equal(t, ">World", snap[1][2].Text)
	require.NotNil(t, snap[1][2].OwnerID)
	assert.Equal(t, uint64(5), *snap[1][2].OwnerID)
}

func TestSessionApplyEditOutOfBoundsIsDropped(t *testing.T) {
	sess := newTestSession(t, newFakeStore(), nil, 2, 2, nil)
	sub := sess.Subscribe()
	defer sess.Unsubscribe(sub)

	assert.False(t, sess.ApplyEdit(1, event.Insert{Cell: event.Ref{Row: 5, Col: 0}, Text: "x"}))
	assert.False(t, sess.ApplyEdit(1, event.Insert{Cell: event.Ref{Row: 0, Col: 5}, Text: "x"}))
	assert.False(t, sess.ApplyEdit(1, event.Insert{Cell: event.Ref{Row: -1, Col: 0}, Text: "x"}))
	assert.Empty(t, drain(sess.hub, sub))
}

func TestSessionInsertRows(t *testing.T) {
	store := newFakeStore()
	store.addTable(42, 3, 2)
	store.setCell(42, 1, 0, "bottom")
	exporter := &recordingExporter{}
	sess := newTestSession(t, store, exporter, 3, 2, []CellRecord{
		{Row: 0, Col: 0, Text: "top"},
		{Row: 1, Col: 0, Text: "bottom"},
	})
	sub := sess.Subscribe()
	defer sess.Unsubscribe(sub)

	require.True(t, sess.InsertRows(context.Background(), 9, 1, 2))

	// 2x3 becomes 4x3: rows 1 and 2 empty, original row 1 now row 3.
	assert.Equal(t, 4, sess.Height())
	snap := sess.Snapshot()
	assert.Equal(t, "top", snap[0][0].Text)
	assert.Equal(t, "", snap[1][0].Text)
	assert.Equal(t, "", snap[2][0].Text)
	assert.Equal(t, "bottom", snap[3][0].Text)

	// Exactly one insert_rows event, carrying the sender's id.
	events := drain(sess.hub, sub)
	require.Len(t, events, 1)
	m, ok := events[0].(event.InsertRows)
	require.True(t, ok)
	assert.Equal(t, uint64(9), m.ClientID)
	assert.Equal(t, uint64(1), m.InsertionIndex)
	assert.Equal(t, uint64(2), m.NumRows)

	// Storage shifted and grew in step.
	w, h, err := store.LoadDims(context.Background(), 42)
	require.NoError(t, err)
	assert.Equal(t, int32(3), w)
	assert.Equal(t, int32(4), h)
	assert.Equal(t, "bottom", store.cellText(42, 3, 0))
	assert.Equal(t, "", store.cellText(42, 1, 0))

	// Export fired once with the committed shape.
	assert.Equal(t, [][2]int{{1, 2}}, exporter.inserts)
}

func TestSessionInsertRowsPreconditions(t *testing.T) {
	store := newFakeStore()
	store.addTable(42, 2, 2)
	sess := newTestSession(t, store, nil, 2, 2, nil)
	sub := sess.Subscribe()
	defer sess.Unsubscribe(sub)

	assert.False(t, sess.InsertRows(context.Background(), 1, 3, 1)) // index > height
	assert.False(t, sess.InsertRows(context.Background(), 1, -1, 1))
	assert.False(t, sess.InsertRows(context.Background(), 1, 0, 0)) // zero rows
	assert.False(t, sess.InsertRows(context.Background(), 1, 0, maxRowsPerInsert+1))
	assert.Equal(t, 2, sess.Height())
	assert.Empty(t, drain(sess.hub, sub))

	// Appending at index == height is allowed.
	assert.True(t, sess.InsertRows(context.Background(), 1, 2, 1))
	assert.Equal(t, 3, sess.Height())
}

func TestSessionInsertRowsStorageFailureLeavesMemoryUntouched(t *testing.T) {
	store := newFakeStore()
	store.addTable(42, 2, 2)
	store.insertRowsErr = assert.AnError
	sess := newTestSession(t, store, nil, 2, 2, nil)
	sub := sess.Subscribe()
	defer sess.Unsubscribe(sub)

	assert.False(t, sess.InsertRows(context.Background(), 1, 1, 2))
	assert.Equal(t, 2, sess.Height())
	assert.Empty(t, drain(sess.hub, sub))
}

func TestSessionCellHandleSurvivesRowInsert(t *testing.T) {
	store := newFakeStore()
	store.addTable(42, 1, 2)
	sess := newTestSession(t, store, nil, 1, 2, []CellRecord{{Row: 1, Col: 0, Text: "x"}})

	// Resolve first, reshape after: the handle must still reach the same
	// cell even though its row index moved.
	handle := sess.Cell(event.Ref{Row: 1, Col: 0})
	require.NotNil(t, handle)
	require.True(t, sess.InsertRows(context.Background(), 1, 0, 3))

	assert.Equal(t, "x", handle.Text())
	assert.Same(t, handle, sess.Cell(event.Ref{Row: 4, Col: 0}))
}

func TestSessionSubscriberCount(t *testing.T) {
	sess := newTestSession(t, newFakeStore(), nil, 1, 1, nil)
	a := sess.Subscribe()
	b := sess.Subscribe()
	assert.Equal(t, int64(2), sess.SubscriberCount())
	sess.Unsubscribe(a)
	sess.Unsubscribe(b)
	assert.Equal(t, int64(0), sess.SubscriberCount())
}
