package tui

import (
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/perch/internal/domain"
)

// handleKeyMsg handles keyboard input
func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// ctrl+c always quits, even while typing
	if msg.String() == "ctrl+c" {
		return m, tea.Quit
	}

	// Handle state-specific keys
	switch m.State {
	case StateHelp:
		if key.Matches(msg, Keys.Escape, Keys.Help, Keys.Quit) {
			m.State = StateBrowsing
		}
		return m, nil

	case StateConfirmDelete:
		switch {
		case key.Matches(msg, Keys.Confirm):
			target := m.deleteTarget
			m.State = StateBrowsing
			m.deleteTarget = nil
			if target == nil {
				return m, nil
			}
			return m, DeleteEntryCmd(m.svc, target.ID, target.Title)
		case key.Matches(msg, Keys.Deny):
			m.State = StateBrowsing
			m.deleteTarget = nil
		}
		return m, nil

	case StateFiltering:
		return m.handleFilterKey(msg)

	case StateComposing:
		return m.handleComposeKey(msg)
	}

	// Browsing
	switch {
	case key.Matches(msg, Keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, Keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, Keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.ensureVisible()
		}
		return m, nil

	case key.Matches(msg, Keys.Down):
		if m.cursor < len(m.visible)-1 {
			m.cursor++
			m.ensureVisible()
		}
		return m, nil

	case key.Matches(msg, Keys.Home):
		m.cursor = 0
		m.offset = 0
		return m, nil

	case key.Matches(msg, Keys.End):
		m.cursor = max(len(m.visible)-1, 0)
		m.ensureVisible()
		return m, nil

	case key.Matches(msg, Keys.Escape):
		// Clear active filter if any
		if m.filterInput.Value() != "" {
			m.filterInput.SetValue("")
			m.applyFilter()
		}
		return m, nil

	case key.Matches(msg, Keys.Filter):
		m.State = StateFiltering
		m.filterInput.CursorEnd()
		return m, m.filterInput.Focus()

	case key.Matches(msg, Keys.NewNote):
		m.State = StateComposing
		m.compose.Show(domain.KindNote)
		return m, nil

	case key.Matches(msg, Keys.NewTodo):
		m.State = StateComposing
		m.compose.Show(domain.KindTodo)
		return m, nil

	case key.Matches(msg, Keys.ToggleDone):
		e := m.selectedEntry()
		if e == nil {
			return m, nil
		}
		if e.Kind != domain.KindTodo {
			return m.setStatus("Only todos can be marked done", false)
		}
		return m, ToggleDoneCmd(m.svc, e.ID)

	case key.Matches(msg, Keys.Delete):
		e := m.selectedEntry()
		if e == nil {
			return m, nil
		}
		m.State = StateConfirmDelete
		m.deleteTarget = e
		return m, nil

	case key.Matches(msg, Keys.Open):
		e := m.selectedEntry()
		if e == nil {
			return m, nil
		}
		if e.Kind != domain.KindLink || e.URL == "" {
			return m.setStatus("Only links can be opened", false)
		}
		if m.opener == nil {
			return m.setStatus("No link opener configured", true)
		}
		return m, OpenLinkCmd(m.opener, e.URL)

	case key.Matches(msg, Keys.ShowDone):
		m.ShowDone = !m.ShowDone
		m.applyFilter()
		if m.ShowDone {
			return m.setStatus("Showing completed todos", false)
		}
		return m.setStatus("Hiding completed todos", false)

	case key.Matches(msg, Keys.Refresh):
		return m.startRefresh(false)

	case key.Matches(msg, Keys.RefreshAll):
		return m.startRefresh(true)
	}

	return m, nil
}

func (m Model) startRefresh(force bool) (tea.Model, tea.Cmd) {
	if m.Syncing {
		return m, nil
	}
	m.Syncing = true
	return m, RefreshCmd(m.svc, force)
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, Keys.Escape):
		m.State = StateBrowsing
		m.filterInput.SetValue("")
		m.filterInput.Blur()
		m.applyFilter()
		return m, nil
	case key.Matches(msg, Keys.Enter):
		// Accept filter, blur input to allow navigation
		m.State = StateBrowsing
		m.filterInput.Blur()
		return m, nil
	case msg.Type == tea.KeyUp || msg.Type == tea.KeyDown:
		m.State = StateBrowsing
		m.filterInput.Blur()
		return m.handleKeyMsg(msg)
	}

	var cmd tea.Cmd
	m.filterInput, cmd = m.filterInput.Update(msg)
	m.cursor = 0
	m.offset = 0
	m.applyFilter()
	return m, cmd
}

func (m Model) handleComposeKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	var (
		cmd       tea.Cmd
		submitted bool
	)
	m.compose, cmd, submitted = m.compose.Update(msg)

	if !m.compose.IsVisible() {
		m.State = StateBrowsing
		return m, cmd
	}
	if !submitted {
		return m, cmd
	}

	entry := m.compose.Entry()
	if entry.Title == "" {
		m.StatusMsg = "Nothing to save"
		m.StatusIsErr = true
		return m, ClearStatusCmd(2 * time.Second)
	}
	m.compose.Hide()
	m.State = StateBrowsing
	return m, SaveEntryCmd(m.svc, entry)
}
