package table

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/gridline/table-sync-service/internal/domain/event"
	"github.com/gridline/table-sync-service/internal/domain/model"
)

// Session is the in-memory representation of one table currently being
// served. Cells are held behind shared handles so a writer that resolved a
// handle keeps a valid reference even when a structural insert reshapes the
// grid afterwards. Width is fixed for the session's lifetime.
type Session struct {
	id    int64
	width int

	// mu guards the rows slice itself. Individual cells have their own
	// mutexes; resolve under mu, then act under the cell's lock.
	mu   sync.RWMutex
	rows [][]*Cell

	hub         *Hub
	subscribers atomic.Int64

	store    Store
	exporter Exporter
	logger   *slog.Logger
	sweeper  *sweeper
}

func newSession(id int64, width, height int32, records []CellRecord, store Store, exporter Exporter, logger *slog.Logger, cfg options) *Session {
	rows := make([][]*Cell, height)
	for r := range rows {
		row := make([]*Cell, width)
		for c := range row {
			row[c] = &Cell{}
		}
		rows[r] = row
	}
	for _, rec := range records {
		if rec.Row < 0 || int(rec.Row) >= len(rows) || rec.Col < 0 || int(rec.Col) >= int(width) {
			logger.Warn("stored cell outside table dims, skipping",
				"table_id", id, "row", rec.Row, "col", rec.Col)
			continue
		}
		rows[rec.Row][rec.Col].text = []byte(rec.Text)
	}

	s := &Session{
		id:       id,
		width:    int(width),
		rows:     rows,
		hub:      newHub(cfg.hubCapacity),
		store:    store,
		exporter: exporter,
		logger:   logger.With("table_id", id),
	}
	s.sweeper = newSweeper(s, cfg.sweepInterval)
	return s
}

func (s *Session) ID() int64  { return s.id }
func (s *Session) Width() int { return s.width }

func (s *Session) Height() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows)
}

// Subscribe attaches a new consumer to the session's hub.
func (s *Session) Subscribe() *Subscriber {
	s.subscribers.Add(1)
	return s.hub.Subscribe()
}

// Unsubscribe detaches sub. Locks held in the grid by the departing client
// are left alone; the sweeper reclaims them.
func (s *Session) Unsubscribe(sub *Subscriber) {
	s.hub.Unsubscribe(sub)
	s.subscribers.Add(-1)
}

func (s *Session) SubscriberCount() int64 { return s.subscribers.Load() }

// Cell resolves a handle for ref, or nil when ref is out of bounds. The
// grid lock is released before the caller takes the cell's own lock.
func (s *Session) Cell(ref event.Ref) *Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if ref.Row < 0 || ref.Row >= len(s.rows) || ref.Col < 0 || ref.Col >= s.width {
		return nil
	}
	return s.rows[ref.Row][ref.Col]
}

// locate resolves cell's current coordinates. Callers hold s.mu. The hint
// is the position the caller last observed; a structural insert may have
// moved the cell further down its column since. Columns never move.
func (s *Session) locate(cell *Cell, hint event.Ref) (event.Ref, bool) {
	if hint.Col < 0 || hint.Col >= s.width {
		return event.Ref{}, false
	}
	if hint.Row >= 0 && hint.Row < len(s.rows) && s.rows[hint.Row][hint.Col] == cell {
		return hint, true
	}
	for r := range s.rows {
		if s.rows[r][hint.Col] == cell {
			return event.Ref{Row: r, Col: hint.Col}, true
		}
	}
	return event.Ref{}, false
}

// ApplyEdit routes an insert/delete/replace to its target cell. Operations
// addressing cells outside the grid are dropped silently, like every other
// precondition violation.
func (s *Session) ApplyEdit(clientID uint64, op event.Eventer) bool {
	var ref event.Ref
	switch m := op.(type) {
	case event.Insert:
		ref = m.Cell
	case event.Delete:
		ref = m.Cell
	case event.Replace:
		ref = m.Cell
	default:
		return false
	}
	cell := s.Cell(ref)
	if cell == nil {
		return false
	}
	return cell.Apply(clientID, op, s.hub)
}

// maxRowsPerInsert bounds one structural insert. Each inserted row costs a
// storage write per column inside the transaction, so an unbounded request
// would let a single frame pin the grid and the database for minutes.
const maxRowsPerInsert = 1024

// InsertRows inserts numRows empty rows at insertionIndex. Storage commits
// first (one transaction: height update, row shift, cell inserts); the grid
// mutates and the event broadcasts only after the commit, so memory never
// runs ahead of a failed write. Out-of-range indices and oversized requests
// are ignored.
func (s *Session) InsertRows(ctx context.Context, clientID uint64, insertionIndex, numRows int) bool {
	if numRows <= 0 || numRows > maxRowsPerInsert {
		return false
	}
	if !s.commitInsertRows(ctx, clientID, insertionIndex, numRows) {
		return false
	}
	// Export runs after the grid lock is dropped; a slow broker must not
	// stall readers or writers.
	s.exporter.RowsInserted(ctx, s.id, insertionIndex, numRows)
	return true
}

func (s *Session) commitInsertRows(ctx context.Context, clientID uint64, insertionIndex, numRows int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if insertionIndex < 0 || insertionIndex > len(s.rows) {
		return false
	}

	if err := s.store.InsertRows(ctx, s.id, int32(insertionIndex), int32(numRows), int32(s.width)); err != nil {
		s.logger.Error("insert rows rejected, storage transaction failed",
			"insertion_index", insertionIndex, "num_rows", numRows, "error", err)
		return false
	}

	fresh := make([][]*Cell, numRows)
	for r := range fresh {
		row := make([]*Cell, s.width)
		for c := range row {
			row[c] = &Cell{}
		}
		fresh[r] = row
	}
	s.rows = append(s.rows[:insertionIndex], append(fresh, s.rows[insertionIndex:]...)...)

	s.hub.Publish(event.InsertRows{
		ClientID:       clientID,
		InsertionIndex: uint64(insertionIndex),
		NumRows:        uint64(numRows),
	})
	return true
}

// Snapshot reads the grid row-major under each cell's lock, producing the
// Init view: current text plus the lock owner where one is held.
func (s *Session) Snapshot() [][]event.CellView {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([][]event.CellView, len(s.rows))
	for r, row := range s.rows {
		viewRow := make([]event.CellView, len(row))
		for c, cell := range row {
			viewRow[c] = cell.view()
		}
		out[r] = viewRow
	}
	return out
}

// Stats counts live locks cell by cell; cheap at this scale and only used
// by the stats surface.
func (s *Session) Stats() model.TableStats {
	s.mu.RLock()
	defer s.mu.RUnlock()
	locks := 0
	for _, row := range s.rows {
		for _, cell := range row {
			if cell.locked() {
				locks++
			}
		}
	}
	return model.TableStats{
		TableID:     s.id,
		Width:       s.width,
		Height:      len(s.rows),
		Subscribers: int(s.subscribers.Load()),
		ActiveLocks: locks,
	}
}

// snapshotRows copies the row slice so the sweeper can walk it without
// holding the grid lock across storage writes.
func (s *Session) snapshotRows() [][]*Cell {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rows := make([][]*Cell, len(s.rows))
	copy(rows, s.rows)
	return rows
}

func (s *Session) start() {
	go s.sweeper.run()
}

func (s *Session) stop() {
	s.sweeper.stop()
	s.hub.Close()
}
