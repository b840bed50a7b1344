// Package postgres implements the storage gateway over the tables /
// table_cells relations. Every call runs through a circuit breaker so a
// dying database degrades the sweeper's writebacks instead of piling up
// blocked goroutines behind the connection pool.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq" // Postgres driver
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/gridline/table-sync-service/internal/domain/table"
)

// Interface guard
var _ table.Store = (*Store)(nil)

type Store struct {
	db      *sql.DB
	breaker *gobreaker.CircuitBreaker
	logger  *slog.Logger
	tracer  trace.Tracer
}

func NewStore(dsn string, logger *slog.Logger) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	db.SetMaxOpenConns(16)
	db.SetMaxIdleConns(4)
	db.SetConnMaxLifetime(30 * time.Minute)

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:    "postgres",
		Timeout: 10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		// An absent table is an answer, not an outage.
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, sql.ErrNoRows)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("storage breaker state change",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Store{
		db:      db,
		breaker: breaker,
		logger:  logger,
		tracer:  otel.Tracer("adapter/postgres"),
	}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// Ping verifies connectivity at startup.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) LoadDims(ctx context.Context, tableID int64) (int32, int32, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.load_dims")
	defer span.End()

	var width, height int32
	_, err := s.breaker.Execute(func() (any, error) {
		row := s.db.QueryRowContext(ctx,
			`SELECT width, height FROM tables WHERE id = $1`, tableID)
		return nil, row.Scan(&width, &height)
	})
	if errors.Is(err, sql.ErrNoRows) {
		return 0, 0, table.ErrNotFound
	}
	if err != nil {
		return 0, 0, fmt.Errorf("postgres: load dims for table %d: %w", tableID, err)
	}
	return width, height, nil
}

func (s *Store) LoadCells(ctx context.Context, tableID int64) ([]table.CellRecord, error) {
	ctx, span := s.tracer.Start(ctx, "postgres.load_cells")
	defer span.End()

	res, err := s.breaker.Execute(func() (any, error) {
		rows, err := s.db.QueryContext(ctx,
			`SELECT row_num, column_num, text
			   FROM table_cells
			  WHERE table_id = $1
			  ORDER BY row_num, column_num`, tableID)
		if err != nil {
			return nil, err
		}
		defer rows.Close()

		var records []table.CellRecord
		for rows.Next() {
			var rec table.CellRecord
			if err := rows.Scan(&rec.Row, &rec.Col, &rec.Text); err != nil {
				return nil, err
			}
			records = append(records, rec)
		}
		return records, rows.Err()
	})
	if err != nil {
		return nil, fmt.Errorf("postgres: load cells for table %d: %w", tableID, err)
	}
	return res.([]table.CellRecord), nil
}

func (s *Store) UpdateCell(ctx context.Context, tableID int64, row, col int32, text string) error {
	ctx, span := s.tracer.Start(ctx, "postgres.update_cell")
	defer span.End()

	_, err := s.breaker.Execute(func() (any, error) {
		return s.db.ExecContext(ctx,
			`UPDATE table_cells SET text = $4
			  WHERE table_id = $1 AND row_num = $2 AND column_num = $3`,
			tableID, row, col, text)
	})
	if err != nil {
		return fmt.Errorf("postgres: update cell (%d,%d) of table %d: %w", row, col, tableID, err)
	}
	return nil
}

func (s *Store) UpdateHeight(ctx context.Context, tableID int64, delta int32) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return s.db.ExecContext(ctx,
			`UPDATE tables SET height = height + $2 WHERE id = $1`, tableID, delta)
	})
	if err != nil {
		return fmt.Errorf("postgres: update height of table %d: %w", tableID, err)
	}
	return nil
}

func (s *Store) ShiftRowNumbers(ctx context.Context, tableID int64, fromRow, by int32) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return nil, shiftRows(ctx, s.db, tableID, fromRow, by)
	})
	if err != nil {
		return fmt.Errorf("postgres: shift rows of table %d: %w", tableID, err)
	}
	return nil
}

func (s *Store) InsertCell(ctx context.Context, tableID int64, row, col int32, text string) error {
	_, err := s.breaker.Execute(func() (any, error) {
		return s.db.ExecContext(ctx,
			`INSERT INTO table_cells (table_id, row_num, column_num, text)
			 VALUES ($1, $2, $3, $4)`,
			tableID, row, col, text)
	})
	if err != nil {
		return fmt.Errorf("postgres: insert cell (%d,%d) of table %d: %w", row, col, tableID, err)
	}
	return nil
}

// InsertRows performs the structural mutation as a single transaction:
// bump the stored height, shift existing rows down, insert the new empty
// cells. A mid-sequence failure rolls everything back so storage never
// holds a half-shifted table.
func (s *Store) InsertRows(ctx context.Context, tableID int64, insertionIndex, numRows, width int32) error {
	ctx, span := s.tracer.Start(ctx, "postgres.insert_rows")
	defer span.End()

	_, err := s.breaker.Execute(func() (any, error) {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return nil, err
		}
		defer tx.Rollback()

		if _, err := tx.ExecContext(ctx,
			`UPDATE tables SET height = height + $2 WHERE id = $1`,
			tableID, numRows); err != nil {
			return nil, err
		}
		if err := shiftRows(ctx, tx, tableID, insertionIndex, numRows); err != nil {
			return nil, err
		}
		for r := insertionIndex; r < insertionIndex+numRows; r++ {
			for c := int32(0); c < width; c++ {
				if _, err := tx.ExecContext(ctx,
					`INSERT INTO table_cells (table_id, row_num, column_num, text)
					 VALUES ($1, $2, $3, '')`,
					tableID, r, c); err != nil {
					return nil, err
				}
			}
		}
		return nil, tx.Commit()
	})
	if err != nil {
		return fmt.Errorf("postgres: insert %d rows at %d of table %d: %w",
			numRows, insertionIndex, tableID, err)
	}
	return nil
}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// shiftRows moves row_num for every row >= fromRow by the given amount.
// The (table_id, row_num, column_num) key is unique and Postgres checks it
// per-row during an UPDATE, so the shift goes through a negated
// intermediate range instead of relying on update order.
func shiftRows(ctx context.Context, db execer, tableID int64, fromRow, by int32) error {
	if _, err := db.ExecContext(ctx,
		`UPDATE table_cells SET row_num = -(row_num + $3)
		  WHERE table_id = $1 AND row_num >= $2`,
		tableID, fromRow, by); err != nil {
		return err
	}
	_, err := db.ExecContext(ctx,
		`UPDATE table_cells SET row_num = -row_num
		  WHERE table_id = $1 AND row_num < 0`,
		tableID)
	return err
}
