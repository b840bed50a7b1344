// Package event defines the canonical messages flowing through a table's
// hub. The same types describe both directions of the wire protocol: clients
// submit insert/delete/replace/insert_rows, the server alone authors
// init/acquire_lock/release_lock.
package event

type Kind int16

const (
	KindInit Kind = iota + 1
	KindInsert
	KindDelete
	KindReplace
	KindInsertRows
	KindAcquireLock
	KindReleaseLock
)

// Eventer is the contract for every packet accepted by the hub.
type Eventer interface {
	EventKind() Kind
}

// ClientAuthored reports whether clients are allowed to submit this kind.
// Everything else is server-authored and silently ignored on the inbound path.
func ClientAuthored(k Kind) bool {
	switch k {
	case KindInsert, KindDelete, KindReplace, KindInsertRows:
		return true
	}
	return false
}
