package wsmarshaller

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gridline/table-sync-service/internal/domain/event"
)

func TestMarshalEventFlattensTypeIntoPayload(t *testing.T) {
	data, err := MarshalEvent(event.Insert{
		ClientID: 3,
		Cell:     event.Ref{Row: 1, Col: 2},
		Index:    4,
		Text:     "hi",
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"insert","client_id":3,"cell":[1,2],"index":4,"text":"hi"}`,
		string(data))
}

func TestMarshalInitFrame(t *testing.T) {
	owner := uint64(2)
	data, err := MarshalEvent(event.Init{
		ClientID: 5,
		Table: [][]event.CellView{
			{{Text: "a"}, {Text: "b", OwnerID: &owner}},
		},
	})
	require.NoError(t, err)
	assert.JSONEq(t,
		`{"type":"init","client_id":5,"table":[[{"text":"a"},{"text":"b","owner_id":2}]]}`,
		string(data))
}

func TestMarshalReleaseLock(t *testing.T) {
	data, err := MarshalEvent(event.ReleaseLock{Cell: event.Ref{Row: 3, Col: 0}})
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"release_lock","cell":[3,0]}`, string(data))
}

func TestUnmarshalClientFrames(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want event.Eventer
	}{
		{
			name: "insert",
			in:   `{"type":"insert","client_id":0,"cell":[0,1],"index":2,"text":"x"}`,
			want: event.Insert{Cell: event.Ref{Row: 0, Col: 1}, Index: 2, Text: "x"},
		},
		{
			name: "delete",
			in:   `{"type":"delete","client_id":0,"cell":[1,1],"start":0,"end":3}`,
			want: event.Delete{Cell: event.Ref{Row: 1, Col: 1}, End: 3},
		},
		{
			name: "replace",
			in:   `{"type":"replace","client_id":0,"cell":[2,0],"start":1,"end":2,"text":"y"}`,
			want: event.Replace{Cell: event.Ref{Row: 2, Col: 0}, Start: 1, End: 2, Text: "y"},
		},
		{
			name: "insert_rows",
			in:   `{"type":"insert_rows","client_id":0,"insertion_index":4,"num_rows":2}`,
			want: event.InsertRows{InsertionIndex: 4, NumRows: 2},
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got, err := UnmarshalClientFrame([]byte(tc.in))
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestUnmarshalRejectsServerAuthoredTypes(t *testing.T) {
	for _, frame := range []string{
		`{"type":"init","client_id":0,"table":[]}`,
		`{"type":"acquire_lock","client_id":0,"cell":[0,0]}`,
		`{"type":"release_lock","cell":[0,0]}`,
	} {
		_, err := UnmarshalClientFrame([]byte(frame))
		assert.ErrorIs(t, err, ErrUnknownType, frame)
	}
}

func TestUnmarshalRejectsGarbage(t *testing.T) {
	for _, frame := range []string{
		``,
		`not json`,
		`{}`,
		`{"type":"teleport"}`,
		`{"type":"insert","cell":"not-a-pair"}`,
	} {
		_, err := UnmarshalClientFrame([]byte(frame))
		assert.Error(t, err, frame)
	}
}

func TestRoundTripClientKinds(t *testing.T) {
	events := []event.Eventer{
		event.Insert{ClientID: 1, Cell: event.Ref{Row: 9, Col: 9}, Index: 1, Text: "é"},
		event.Delete{ClientID: 1, Cell: event.Ref{Row: 0, Col: 0}, Start: 2, End: 5},
		event.Replace{ClientID: 1, Cell: event.Ref{Row: 1, Col: 0}, Start: 0, End: 1, Text: ""},
		event.InsertRows{ClientID: 1, InsertionIndex: 0, NumRows: 10},
	}
	for _, ev := range events {
		data, err := MarshalEvent(ev)
		require.NoError(t, err)
		got, err := UnmarshalClientFrame(data)
		require.NoError(t, err)
		assert.Equal(t, ev, got)
	}
}
