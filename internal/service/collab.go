package service

import (
	"context"
	"math"
	"sync/atomic"

	"github.com/gridline/table-sync-service/internal/domain/event"
	"github.com/gridline/table-sync-service/internal/domain/table"
)

// Collab is the primary interface transport handlers talk to.
type Collab interface {
	// Open resolves the live session for tableID, materializing it on first
	// use. Returns table.ErrNotFound for unknown ids.
	Open(ctx context.Context, tableID int64) (*table.Session, error)

	// Attach assigns a fresh client id and subscribes to the session's hub.
	Attach(sess *table.Session) (clientID uint64, sub *table.Subscriber)

	// Detach drops the subscription. Locks held by the client stay in the
	// grid until the sweeper reclaims them.
	Detach(sess *table.Session, sub *table.Subscriber)

	// Apply runs one client-authored operation against the session.
	// Server-authored kinds and malformed operations are ignored.
	Apply(ctx context.Context, sess *table.Session, clientID uint64, op event.Eventer)
}

type CollabService struct {
	registry *table.Registry

	// nextClientID issues process-local monotonic ids starting at 0. Never
	// persisted, never reused within a process lifetime.
	nextClientID atomic.Uint64
}

func NewCollabService(registry *table.Registry) *CollabService {
	return &CollabService{registry: registry}
}

func (s *CollabService) Open(ctx context.Context, tableID int64) (*table.Session, error) {
	return s.registry.Open(ctx, tableID)
}

func (s *CollabService) Attach(sess *table.Session) (uint64, *table.Subscriber) {
	id := s.nextClientID.Add(1) - 1
	return id, sess.Subscribe()
}

func (s *CollabService) Detach(sess *table.Session, sub *table.Subscriber) {
	sess.Unsubscribe(sub)
}

func (s *CollabService) Apply(ctx context.Context, sess *table.Session, clientID uint64, op event.Eventer) {
	switch m := op.(type) {
	case event.Insert:
		sess.ApplyEdit(clientID, m)
	case event.Delete:
		sess.ApplyEdit(clientID, m)
	case event.Replace:
		sess.ApplyEdit(clientID, m)
	case event.InsertRows:
		sess.InsertRows(ctx, clientID, clampIndex(m.InsertionIndex), clampIndex(m.NumRows))
	default:
		// init/acquire_lock/release_lock are server-authored; a client
		// sending them is ignored.
	}
}

// clampIndex narrows a wire uint64 to int; absurd values land out of range
// and fail the session's precondition instead of wrapping negative.
func clampIndex(v uint64) int {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	return int(v)
}
