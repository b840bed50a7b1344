package table

import (
	"context"
	"sync"
	"time"

	"github.com/gridline/table-sync-service/internal/domain/event"
)

const writebackTimeout = 2 * time.Second

// sweeper is the periodic task bound to one session. Every tick it walks
// the grid row-major, decrements live locks, and releases expired ones:
// persist the cell's current text, clear the lock, publish ReleaseLock.
// At most one sweeper runs per session.
type sweeper struct {
	sess     *Session
	interval time.Duration
	stopCh   chan struct{}
	stopOnce sync.Once
}

func newSweeper(sess *Session, interval time.Duration) *sweeper {
	return &sweeper{
		sess:     sess,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

func (w *sweeper) run() {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()
	for {
		select {
		case <-w.stopCh:
			return
		case <-ticker.C:
			w.sweep()
		}
	}
}

func (w *sweeper) stop() {
	w.stopOnce.Do(func() { close(w.stopCh) })
}

func (w *sweeper) sweep() {
	// A row snapshot keeps the countdown walk off the grid lock. Its
	// coordinates can go stale when a structural insert lands mid-walk, so
	// they are only a hint: the release path re-resolves each cell's current
	// position under the grid lock before touching storage.
	for r, row := range w.sess.snapshotRows() {
		for c, cell := range row {
			if cell.tickDown() {
				w.release(cell, event.Ref{Row: r, Col: c})
			}
		}
	}
}

// release persists and clears one expired lock. Grid lock before cell lock,
// the same order Snapshot uses; holding the read lock across the writeback
// keeps InsertRows out, so the row number the text persists under cannot
// move underneath us.
func (w *sweeper) release(cell *Cell, hint event.Ref) {
	s := w.sess

	s.mu.RLock()
	ref, ok := s.locate(cell, hint)
	if !ok {
		s.mu.RUnlock()
		return
	}

	cell.mu.Lock()
	if cell.lock == nil || cell.lock.remaining >= releaseBelow {
		// The owner wrote again between the countdown and this point; the
		// refreshed lock gets its full grace window.
		cell.mu.Unlock()
		s.mu.RUnlock()
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), writebackTimeout)
	defer cancel()

	text := string(cell.text)
	persisted := true
	if err := s.store.UpdateCell(ctx, s.id, int32(ref.Row), int32(ref.Col), text); err != nil {
		// No retry queue: the lock is released and the event emitted
		// regardless, and the in-memory text stays authoritative.
		persisted = false
		s.logger.Error("cell writeback failed on lock release",
			"cell", ref, "error", err)
	}
	cell.lock = nil
	s.hub.Publish(event.ReleaseLock{Cell: ref})
	cell.mu.Unlock()
	s.mu.RUnlock()

	// Export only after every lock is dropped; a slow broker must not stall
	// the cell's writers or the grid.
	if persisted {
		s.exporter.CellPersisted(ctx, s.id, ref.Row, ref.Col, text)
	}
}
