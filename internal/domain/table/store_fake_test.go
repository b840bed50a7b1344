package table

import (
	"context"
	"sync"
	"sync/atomic"
)

// fakeStore is the in-memory storage gateway used across the package tests.
type fakeStore struct {
	mu    sync.Mutex
	dims  map[int64][2]int32 // width, height
	cells map[int64]map[[2]int32]string

	loadDimsCalls  atomic.Int64
	loadCellsCalls atomic.Int64
	updateCalls    atomic.Int64
	insertRowsErr  error
	updateCellErr  error
	loadErr        error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		dims:  make(map[int64][2]int32),
		cells: make(map[int64]map[[2]int32]string),
	}
}

func (f *fakeStore) addTable(id int64, width, height int32) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.dims[id] = [2]int32{width, height}
	grid := make(map[[2]int32]string)
	for r := int32(0); r < height; r++ {
		for c := int32(0); c < width; c++ {
			grid[[2]int32{r, c}] = ""
		}
	}
	f.cells[id] = grid
}

func (f *fakeStore) setCell(id int64, row, col int32, text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cells[id][[2]int32{row, col}] = text
}

func (f *fakeStore) cellText(id int64, row, col int32) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.cells[id][[2]int32{row, col}]
}

func (f *fakeStore) LoadDims(_ context.Context, tableID int64) (int32, int32, error) {
	f.loadDimsCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return 0, 0, f.loadErr
	}
	d, ok := f.dims[tableID]
	if !ok {
		return 0, 0, ErrNotFound
	}
	return d[0], d[1], nil
}

func (f *fakeStore) LoadCells(_ context.Context, tableID int64) ([]CellRecord, error) {
	f.loadCellsCalls.Add(1)
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.loadErr != nil {
		return nil, f.loadErr
	}
	grid, ok := f.cells[tableID]
	if !ok {
		return nil, ErrNotFound
	}
	records := make([]CellRecord, 0, len(grid))
	for pos, text := range grid {
		records = append(records, CellRecord{Row: pos[0], Col: pos[1], Text: text})
	}
	return records, nil
}

func (f *fakeStore) UpdateCell(_ context.Context, tableID int64, row, col int32, text string) error {
	f.updateCalls.Add(1)
	if f.updateCellErr != nil {
		return f.updateCellErr
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cells[tableID][[2]int32{row, col}] = text
	return nil
}

func (f *fakeStore) UpdateHeight(_ context.Context, tableID int64, delta int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	d := f.dims[tableID]
	f.dims[tableID] = [2]int32{d[0], d[1] + delta}
	return nil
}

func (f *fakeStore) ShiftRowNumbers(_ context.Context, tableID int64, fromRow, by int32) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	grid := f.cells[tableID]
	shifted := make(map[[2]int32]string, len(grid))
	for pos, text := range grid {
		if pos[0] >= fromRow {
			pos[0] += by
		}
		shifted[pos] = text
	}
	f.cells[tableID] = shifted
	return nil
}

func (f *fakeStore) InsertCell(_ context.Context, tableID int64, row, col int32, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.cells[tableID][[2]int32{row, col}] = text
	return nil
}

func (f *fakeStore) InsertRows(ctx context.Context, tableID int64, insertionIndex, numRows, width int32) error {
	if f.insertRowsErr != nil {
		return f.insertRowsErr
	}
	if err := f.UpdateHeight(ctx, tableID, numRows); err != nil {
		return err
	}
	if err := f.ShiftRowNumbers(ctx, tableID, insertionIndex, numRows); err != nil {
		return err
	}
	for r := insertionIndex; r < insertionIndex+numRows; r++ {
		for c := int32(0); c < width; c++ {
			if err := f.InsertCell(ctx, tableID, r, c, ""); err != nil {
				return err
			}
		}
	}
	return nil
}

// recordingExporter captures export calls for assertions.
type recordingExporter struct {
	mu        sync.Mutex
	persisted []CellRecord
	inserts   [][2]int
}

func (e *recordingExporter) CellPersisted(_ context.Context, _ int64, row, col int, text string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.persisted = append(e.persisted, CellRecord{Row: int32(row), Col: int32(col), Text: text})
}

func (e *recordingExporter) RowsInserted(_ context.Context, _ int64, insertionIndex, numRows int) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.inserts = append(e.inserts, [2]int{insertionIndex, numRows})
}
