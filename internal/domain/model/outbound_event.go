package model

import (
	"time"

	"github.com/google/uuid"
)

// OutboundEvent is the envelope for events re-published to the message bus
// for downstream consumers (audit, search indexing, cache invalidation).
type OutboundEvent struct {
	ID        string `json:"id"`
	Source    string `json:"source"`
	TableID   int64  `json:"table_id"`
	Payload   any    `json:"payload"`
	Timestamp int64  `json:"timestamp"`
}

func NewOutboundEvent(tableID int64, payload any) *OutboundEvent {
	return &OutboundEvent{
		ID:        uuid.NewString(),
		Source:    "table-sync-service",
		TableID:   tableID,
		Payload:   payload,
		Timestamp: time.Now().UnixMilli(),
	}
}

// CellPersisted is emitted after a released lock's text reaches storage.
type CellPersisted struct {
	Row  int    `json:"row"`
	Col  int    `json:"col"`
	Text string `json:"text"`
}

// RowsInserted is emitted after a committed structural insert.
type RowsInserted struct {
	InsertionIndex int `json:"insertion_index"`
	NumRows        int `json:"num_rows"`
}
