package event

import (
	"encoding/json"
	"fmt"
)

// Ref addresses one cell. On the wire it is the two-element array
// [row, col], matching the frontend protocol.
type Ref struct {
	Row int
	Col int
}

func (r Ref) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{r.Row, r.Col})
}

func (r *Ref) UnmarshalJSON(data []byte) error {
	var pair [2]int
	if err := json.Unmarshal(data, &pair); err != nil {
		return fmt.Errorf("cell ref: %w", err)
	}
	r.Row, r.Col = pair[0], pair[1]
	return nil
}

func (r Ref) String() string {
	return fmt.Sprintf("(%d,%d)", r.Row, r.Col)
}
