/*
Package table implements the in-memory collaboration engine: one Session per
active table, a grid of individually locked Cells, a bounded broadcast Hub
delivering the canonical event order, and a per-session sweeper that expires
soft cell locks and writes released text back to storage.

Key architectural concepts:
  - Fine-grained locking: every Cell carries its own mutex; the grid mutex
    only guards the row slice so structural inserts can reshape it. Writers
    resolve a cell handle under the grid lock, release it, then take the
    cell lock, so handles stay valid across row shifts.
  - Canonical ordering: every mutation publishes to the Hub inside the same
    critical section that performed it, so broadcast order equals mutation
    order for all subscribers.
  - Soft locks: a successful write claims the cell for its author for about
    three seconds; contention is prevented, not merged.
*/
package table

import (
	"sync"

	"github.com/gridline/table-sync-service/internal/domain/event"
)

const (
	// lockTTLTicks is the remaining_seconds value set on every admitted
	// write. Combined with the release threshold below it yields three
	// sweeper decrements, i.e. a ~3 s grace window after the last edit.
	lockTTLTicks uint32 = 3

	// releaseBelow: a lock whose remaining ticks drop under this value is
	// released on the next sweep.
	releaseBelow uint32 = 2
)

// cellLock is a soft, time-limited claim on a cell's writer role. It is not
// persisted and survives its owner's disconnect until swept.
type cellLock struct {
	owner     uint64
	remaining uint32
}

// Cell is the smallest unit of collaboration: UTF-8 text plus an optional
// lock. All indices in the protocol are byte offsets into the text. A Cell
// is exclusively owned by its Session and mutated only under its mutex.
type Cell struct {
	mu   sync.Mutex
	text []byte
	lock *cellLock
}

// Apply runs the edit state machine for one inbound operation.
//
// Admission: the write is admitted when the cell is unlocked or already
// owned by clientID; otherwise it is dropped silently (the client UI knows
// who owns the cell and should not have sent it).
//
// Admitted operations mutate the text, acquire or refresh the lock, and
// publish two events in order inside this critical section: the operation
// itself (client_id rewritten to the requester) and an AcquireLock. A
// Delete/Replace whose byte range is invalid neither refreshes the lock nor
// publishes. Returns whether the operation was applied.
func (c *Cell) Apply(clientID uint64, op event.Eventer, hub *Hub) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.lock != nil && c.lock.owner != clientID {
		return false
	}

	var out event.Eventer
	var ref event.Ref

	switch m := op.(type) {
	case event.Insert:
		if m.Index >= uint64(len(c.text)) {
			c.text = append(c.text, m.Text...)
		} else {
			idx := int(m.Index)
			c.text = append(c.text[:idx], append([]byte(m.Text), c.text[idx:]...)...)
		}
		m.ClientID = clientID
		out, ref = m, m.Cell

	case event.Delete:
		if m.Start > m.End || m.End > uint64(len(c.text)) {
			return false
		}
		c.text = append(c.text[:m.Start], c.text[m.End:]...)
		m.ClientID = clientID
		out, ref = m, m.Cell

	case event.Replace:
		if m.Start > m.End || m.End > uint64(len(c.text)) {
			return false
		}
		tail := append([]byte(m.Text), c.text[m.End:]...)
		c.text = append(c.text[:m.Start], tail...)
		m.ClientID = clientID
		out, ref = m, m.Cell

	default:
		return false
	}

	// Acquire on first write, refresh on every subsequent one.
	c.lock = &cellLock{owner: clientID, remaining: lockTTLTicks}

	hub.Publish(out)
	hub.Publish(event.AcquireLock{ClientID: clientID, Cell: ref})
	return true
}

// Text returns a copy of the current text.
func (c *Cell) Text() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return string(c.text)
}

// view materializes this cell's contribution to an Init snapshot.
func (c *Cell) view() event.CellView {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := event.CellView{Text: string(c.text)}
	if c.lock != nil {
		owner := c.lock.owner
		v.OwnerID = &owner
	}
	return v
}

// tickDown decrements a live lock's countdown and reports whether the lock
// has expired and is due for release. The release itself happens under the
// grid lock, so it is a separate step.
func (c *Cell) tickDown() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.lock == nil {
		return false
	}
	if c.lock.remaining >= releaseBelow {
		c.lock.remaining--
		return false
	}
	return true
}

// locked reports whether the cell currently holds a lock.
func (c *Cell) locked() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lock != nil
}
