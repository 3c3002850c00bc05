package domain

// EntryStore is the local-first mirror of the remote board (BoltDB + memory).
type EntryStore interface {
	// === Mirror ===
	GetEntries() ([]Entry, bool)
	SaveEntries(entries []Entry, serverTS int64) error
	PutEntry(entry Entry) error
	DeleteEntry(id string) error

	// IsFresh checks if stored timestamp >= serverTS
	IsFresh(serverTS int64) bool

	// === Outbox ===
	QueueOp(op PendingOp) error
	PendingOps() []PendingOp
	AckOp(seq uint64) error

	// === Invalidation ===
	InvalidateAll()

	Close() error
}
