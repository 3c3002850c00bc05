package domain

import "strings"

// EntryKind distinguishes dashboard entry types
type EntryKind string

const (
	KindNote EntryKind = "note"
	KindLink EntryKind = "link"
	KindTodo EntryKind = "todo"
)

// Valid reports whether k is a known kind
func (k EntryKind) Valid() bool {
	switch k {
	case KindNote, KindLink, KindTodo:
		return true
	}
	return false
}

// Entry is a single dashboard item
type Entry struct {
	ID        string    // Stable identifier (uuid for locally created entries)
	Kind      EntryKind // note, link, or todo
	Title     string    // Display title
	Body      string    // Free text
	URL       string    // Target for links
	Tags      []string  // User tags
	Done      bool      // Completion state for todos
	Pinned    bool      // Sorted first in the list
	UpdatedAt int64     // Unix timestamp of the last write

	// Pending is set while a local write has not reached the server yet.
	// It is never sent over the wire.
	Pending bool
}

// TagLine joins tags for display and search
func (e Entry) TagLine() string {
	return strings.Join(e.Tags, " ")
}

// Board is the dashboard header the server reports
type Board struct {
	Name      string
	UpdatedAt int64 // Unix timestamp of the last change to any entry
}

// OpKind is the type of a queued local write
type OpKind string

const (
	OpPut    OpKind = "put"
	OpDelete OpKind = "delete"
)

// PendingOp is a local write waiting to be pushed to the server
type PendingOp struct {
	Seq     uint64 // Enqueue order, assigned by the store
	Kind    OpKind
	EntryID string
	Entry   *Entry // Set for OpPut
}

// SyncResult describes the outcome of a refresh
type SyncResult struct {
	FromCache bool // Local copy was already fresh
	Count     int  // Entries now mirrored locally
	Pushed    int  // Pending writes flushed before fetching
}
