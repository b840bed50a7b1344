package event

// Indices are byte offsets into the UTF-8 encoding of the cell text.
// The server rewrites ClientID on every inbound mutation before broadcast,
// so subscribers always see the authoritative author.

type Insert struct {
	ClientID uint64 `json:"client_id"`
	Cell     Ref    `json:"cell"`
	Index    uint64 `json:"index"`
	Text     string `json:"text"`
}

type Delete struct {
	ClientID uint64 `json:"client_id"`
	Cell     Ref    `json:"cell"`
	Start    uint64 `json:"start"`
	End      uint64 `json:"end"`
}

type Replace struct {
	ClientID uint64 `json:"client_id"`
	Cell     Ref    `json:"cell"`
	Start    uint64 `json:"start"`
	End      uint64 `json:"end"`
	Text     string `json:"text"`
}

type InsertRows struct {
	ClientID       uint64 `json:"client_id"`
	InsertionIndex uint64 `json:"insertion_index"`
	NumRows        uint64 `json:"num_rows"`
}

type AcquireLock struct {
	ClientID uint64 `json:"client_id"`
	Cell     Ref    `json:"cell"`
}

type ReleaseLock struct {
	Cell Ref `json:"cell"`
}

// CellView is one cell of the Init snapshot: current text plus the lock
// owner when the cell is held.
type CellView struct {
	Text    string  `json:"text"`
	OwnerID *uint64 `json:"owner_id,omitempty"`
}

type Init struct {
	ClientID uint64       `json:"client_id"`
	Table    [][]CellView `json:"table"`
}

func (Insert) EventKind() Kind      { return KindInsert }
func (Delete) EventKind() Kind      { return KindDelete }
func (Replace) EventKind() Kind     { return KindReplace }
func (InsertRows) EventKind() Kind  { return KindInsertRows }
func (AcquireLock) EventKind() Kind { return KindAcquireLock }
func (ReleaseLock) EventKind() Kind { return KindReleaseLock }
func (Init) EventKind() Kind        { return KindInit }
