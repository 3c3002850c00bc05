package tui

import (
	"github.com/mmcdole/perch/internal/activity"
	"github.com/mmcdole/perch/internal/domain"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// Snapshot is the local board state after an operation
type Snapshot struct {
	Entries []domain.Entry
	Cached  bool // false until the first successful sync or local write
	Pending int
}

// EntriesLoadedMsg carries the locally cached board
type EntriesLoadedMsg struct {
	Snapshot
}

// RefreshDoneMsg signals a finished refresh
type RefreshDoneMsg struct {
	Snapshot
	Result domain.SyncResult
	Force  bool
}

// EntrySavedMsg signals that an entry was written locally (and maybe pushed)
type EntrySavedMsg struct {
	Snapshot
	Entry domain.Entry
}

// EntryDeletedMsg signals that an entry was removed locally
type EntryDeletedMsg struct {
	Snapshot
	ID    string
	Title string
}

// ActivityMsg forwards a sync indicator change from the tracker
type ActivityMsg struct {
	Change activity.Change
}

// TickMsg is a general tick message for animations
type TickMsg struct{}

// ClearStatusMsg clears the status bar message
type ClearStatusMsg struct{}

// StatusMsg sets a temporary status message
type StatusMsg struct {
	Message string
	IsError bool
}
