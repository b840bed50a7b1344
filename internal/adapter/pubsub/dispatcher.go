// Package pubsub re-publishes durable state changes to the message bus so
// downstream consumers (audit, search indexing, cache invalidation) can
// follow the table without speaking the WebSocket protocol. Export is
// best-effort: failures are logged and never reach the edit path.
package pubsub

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/gridline/table-sync-service/internal/domain/model"
	"github.com/gridline/table-sync-service/internal/domain/table"
)

const (
	TopicCellUpdated  = "table.cell.updated.v1"
	TopicRowsInserted = "table.rows.inserted.v1"
)

// Interface guard
var _ table.Exporter = (*EventDispatcher)(nil)

type EventDispatcher struct {
	publisher message.Publisher
	logger    *slog.Logger
}

func NewEventDispatcher(pub message.Publisher, logger *slog.Logger) *EventDispatcher {
	return &EventDispatcher{publisher: pub, logger: logger}
}

func (d *EventDispatcher) CellPersisted(ctx context.Context, tableID int64, row, col int, text string) {
	d.publish(ctx, TopicCellUpdated, tableID, model.CellPersisted{Row: row, Col: col, Text: text})
}

func (d *EventDispatcher) RowsInserted(ctx context.Context, tableID int64, insertionIndex, numRows int) {
	d.publish(ctx, TopicRowsInserted, tableID, model.RowsInserted{InsertionIndex: insertionIndex, NumRows: numRows})
}

func (d *EventDispatcher) publish(ctx context.Context, topic string, tableID int64, payload any) {
	if err := d.tryPublish(ctx, topic, tableID, payload); err != nil {
		d.logger.Warn("event export failed", "topic", topic, "table_id", tableID, "error", err)
	}
}

func (d *EventDispatcher) tryPublish(ctx context.Context, topic string, tableID int64, payload any) error {
	body, err := json.Marshal(model.NewOutboundEvent(tableID, payload))
	if err != nil {
		return fmt.Errorf("event dispatcher: marshal failure: %w", err)
	}
	msg := message.NewMessage(watermill.NewUUID(), body)
	msg.SetContext(ctx)
	if err := d.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("event dispatcher: publish to %s: %w", topic, err)
	}
	return nil
}
