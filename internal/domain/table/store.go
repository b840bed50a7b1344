package table

import (
	"context"
	"errors"
)

// ErrNotFound is returned by Open when the table id does not exist in
// durable storage (or storage failed to answer; the connection path treats
// both the same way).
var ErrNotFound = errors.New("table not found")

// CellRecord is one stored cell as loaded from the table_cells relation.
type CellRecord struct {
	Row  int32
	Col  int32
	Text string
}

// Store is the narrow gateway to durable storage. Implementations must be
// safe for concurrent use; the sweeper and structural mutations call it from
// different goroutines.
type Store interface {
	LoadDims(ctx context.Context, tableID int64) (width, height int32, err error)
	LoadCells(ctx context.Context, tableID int64) ([]CellRecord, error)
	UpdateCell(ctx context.Context, tableID int64, row, col int32, text string) error
	UpdateHeight(ctx context.Context, tableID int64, delta int32) error
	ShiftRowNumbers(ctx context.Context, tableID int64, fromRow, by int32) error
	InsertCell(ctx context.Context, tableID int64, row, col int32, text string) error

	// InsertRows performs the structural mutation (height update, row shift,
	// empty cell inserts) as one atomic unit.
	InsertRows(ctx context.Context, tableID int64, insertionIndex, numRows, width int32) error
}

// Exporter re-publishes durable state changes to the message bus for
// downstream consumers. Export is best-effort: implementations log failures
// and never propagate them into the edit path.
type Exporter interface {
	CellPersisted(ctx context.Context, tableID int64, row, col int, text string)
	RowsInserted(ctx context.Context, tableID int64, insertionIndex, numRows int)
}

// NopExporter is used when no message bus is configured.
type NopExporter struct{}

func (NopExporter) CellPersisted(context.Context, int64, int, int, string) {}
func (NopExporter) RowsInserted(context.Context, int64, int, int)          {}
