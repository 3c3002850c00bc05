package domain

import "context"

// EntryRepository provides access to the remote dashboard API
type EntryRepository interface {
	// GetBoard returns the board header including its last-change timestamp
	GetBoard(ctx context.Context) (Board, error)

	// ListEntries returns every entry on the board
	ListEntries(ctx context.Context) ([]Entry, error)

	// PutEntry creates or replaces an entry and returns the stored copy
	PutEntry(ctx context.Context, entry Entry) (Entry, error)

	// DeleteEntry removes an entry; deleting a missing entry is not an error
	DeleteEntry(ctx context.Context, id string) error
}
