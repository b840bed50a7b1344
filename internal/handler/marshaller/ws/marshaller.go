// Package wsmarshaller encodes and decodes the JSON text frames of the
// collaboration protocol. Every frame carries a snake_case "type"
// discriminator next to the payload fields.
package wsmarshaller

import (
	"encoding/json"
	"fmt"

	"github.com/gridline/table-sync-service/internal/domain/event"
)

const (
	TypeInit        = "init"
	TypeInsert      = "insert"
	TypeDelete      = "delete"
	TypeReplace     = "replace"
	TypeInsertRows  = "insert_rows"
	TypeAcquireLock = "acquire_lock"
	TypeReleaseLock = "release_lock"
)

// ErrUnknownType marks frames whose "type" is absent or not part of the
// protocol. Callers drop such frames silently.
var ErrUnknownType = fmt.Errorf("unknown message type")

// MarshalEvent prepares one event for transmission.
func MarshalEvent(ev event.Eventer) ([]byte, error) {
	name, ok := typeName(ev.EventKind())
	if !ok {
		return nil, fmt.Errorf("marshal: %w: kind %d", ErrUnknownType, ev.EventKind())
	}
	return json.Marshal(envelope{Type: name, Payload: ev})
}

// UnmarshalClientFrame decodes an inbound text frame into its event. Only
// client-authored kinds decode; server-authored types and undecodable
// frames return an error so the handler can drop them.
func UnmarshalClientFrame(data []byte) (event.Eventer, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}

	switch head.Type {
	case TypeInsert:
		var m event.Insert
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", head.Type, err)
		}
		return m, nil
	case TypeDelete:
		var m event.Delete
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", head.Type, err)
		}
		return m, nil
	case TypeReplace:
		var m event.Replace
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", head.Type, err)
		}
		return m, nil
	case TypeInsertRows:
		var m event.InsertRows
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("unmarshal %s: %w", head.Type, err)
		}
		return m, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownType, head.Type)
	}
}

// envelope flattens the payload fields next to "type" on encode.
type envelope struct {
	Type    string
	Payload event.Eventer
}

func (e envelope) MarshalJSON() ([]byte, error) {
	body, err := json.Marshal(e.Payload)
	if err != nil {
		return nil, err
	}
	// Splice {"type":...} into the payload object.
	head, err := json.Marshal(struct {
		Type string `json:"type"`
	}{e.Type})
	if err != nil {
		return nil, err
	}
	if len(body) == 2 { // empty object
		return head, nil
	}
	out := make([]byte, 0, len(head)+len(body))
	out = append(out, head[:len(head)-1]...)
	out = append(out, ',')
	out = append(out, body[1:]...)
	return out, nil
}

func typeName(k event.Kind) (string, bool) {
	switch k {
	case event.KindInit:
		return TypeInit, true
	case event.KindInsert:
		return TypeInsert, true
	case event.KindDelete:
		return TypeDelete, true
	case event.KindReplace:
		return TypeReplace, true
	case event.KindInsertRows:
		return TypeInsertRows, true
	case event.KindAcquireLock:
		return TypeAcquireLock, true
	case event.KindReleaseLock:
		return TypeReleaseLock, true
	}
	return "", false
}
