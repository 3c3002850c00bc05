package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/perch/internal/activity"
	"github.com/mmcdole/perch/internal/domain"
)

// Command factories for async operations

const (
	localTimeout   = 5 * time.Second
	refreshTimeout = 30 * time.Second
)

func snapshot(ctx context.Context, svc BoardService) Snapshot {
	entries, ok := svc.Entries(ctx)
	return Snapshot{Entries: entries, Cached: ok, Pending: svc.Pending()}
}

// LoadEntriesCmd reads the locally cached board without touching the network
func LoadEntriesCmd(svc BoardService) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), localTimeout)
		defer cancel()
		return EntriesLoadedMsg{Snapshot: snapshot(ctx, svc)}
	}
}

// RefreshCmd syncs with the server. force skips the freshness check.
func RefreshCmd(svc BoardService, force bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		result, err := svc.Refresh(ctx, force)
		if err != nil {
			return ErrMsg{Err: err, Context: "sync"}
		}
		return RefreshDoneMsg{Snapshot: snapshot(ctx, svc), Result: result, Force: force}
	}
}

// SaveEntryCmd writes an entry locally and queues it for the server
func SaveEntryCmd(svc BoardService, entry domain.Entry) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		saved, err := svc.Save(ctx, entry)
		if err != nil {
			return ErrMsg{Err: err, Context: "saving entry"}
		}
		return EntrySavedMsg{Snapshot: snapshot(ctx, svc), Entry: saved}
	}
}

// ToggleDoneCmd flips the done state of a todo
func ToggleDoneCmd(svc BoardService, id string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		saved, err := svc.ToggleDone(ctx, id)
		if err != nil {
			return ErrMsg{Err: err, Context: "updating entry"}
		}
		return EntrySavedMsg{Snapshot: snapshot(ctx, svc), Entry: saved}
	}
}

// DeleteEntryCmd removes an entry
func DeleteEntryCmd(svc BoardService, id, title string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), refreshTimeout)
		defer cancel()

		if err := svc.Delete(ctx, id); err != nil {
			return ErrMsg{Err: err, Context: "deleting entry"}
		}
		return EntryDeletedMsg{Snapshot: snapshot(ctx, svc), ID: id, Title: title}
	}
}

// WaitForActivityCmd blocks until the tracker reports a change.
// It must be re-armed after every ActivityMsg.
func WaitForActivityCmd(ch <-chan activity.Change) tea.Cmd {
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		change, ok := <-ch
		if !ok {
			return nil
		}
		return ActivityMsg{Change: change}
	}
}

// TickCmd returns a command that sends a tick after a delay
func TickCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

// ClearStatusCmd returns a command that clears status after a delay
func ClearStatusCmd(delay time.Duration) tea.Cmd {
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return ClearStatusMsg{}
	})
}

// OpenLinkCmd hands url to the opener
func OpenLinkCmd(opener LinkOpener, url string) tea.Cmd {
	return func() tea.Msg {
		if err := opener.Open(url); err != nil {
			return StatusMsg{Message: "Open failed: " + err.Error(), IsError: true}
		}
		return StatusMsg{Message: "Opened " + url}
	}
}
