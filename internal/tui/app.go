// Package tui is the Bubble Tea front end: a single board list with a
// header sync indicator driven by the activity tracker.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/perch/internal/activity"
	"github.com/mmcdole/perch/internal/domain"
	"github.com/mmcdole/perch/internal/prefs"
	"github.com/mmcdole/perch/internal/search"
	"github.com/mmcdole/perch/internal/tui/styles"
)

// BoardService is what the TUI needs from the board service
type BoardService interface {
	Entries(ctx context.Context) ([]domain.Entry, bool)
	Refresh(ctx context.Context, force bool) (domain.SyncResult, error)
	Save(ctx context.Context, entry domain.Entry) (domain.Entry, error)
	Delete(ctx context.Context, id string) error
	ToggleDone(ctx context.Context, id string) (domain.Entry, error)
	Pending() int
}

// LinkOpener opens a link entry outside the terminal
type LinkOpener interface {
	Open(url string) error
}

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateBrowsing ApplicationState = iota
	StateFiltering
	StateComposing
	StateConfirmDelete
	StateHelp
)

const (
	// header + footer
	ChromeHeight = 2

	// "↑ more" / "↓ more" rows are always reserved
	ScrollIndicatorLines = 2

	tickInterval = 100 * time.Millisecond
)

// Options configures a Model
type Options struct {
	Title    string                 // Shown in the header
	Activity <-chan activity.Change // Tracker changes; nil disables the indicator feed
	Status   activity.Status        // Indicator state at startup
	Prefs    prefs.Prefs
	Opener   LinkOpener // nil disables the open key
}

// Model is the main Bubble Tea model for the application
type Model struct {
	// Application state
	State ApplicationState
	Ready bool

	svc      BoardService
	activity <-chan activity.Change
	opener   LinkOpener
	title    string

	// Data
	entries []domain.Entry  // Everything cached locally
	visible []search.Result // After done-filter and query
	cached  bool
	pending int

	// Cursor
	cursor int
	offset int

	// UI Components
	filterInput textinput.Model
	compose     Compose

	// Dimensions
	Width  int
	Height int

	// UI state
	Status       activity.Status
	SpinnerFrame int
	StatusMsg    string
	StatusIsErr  bool
	ShowDone     bool
	Syncing      bool // a refresh command is in flight
	deleteTarget *domain.Entry
}

// NewModel creates a new application model
func NewModel(svc BoardService, opts Options) Model {
	fi := textinput.New()
	fi.Prompt = "/"
	fi.PromptStyle = styles.FilterPromptStyle
	fi.Placeholder = "filter"
	fi.PlaceholderStyle = styles.DimStyle
	fi.CharLimit = 100
	fi.SetValue(opts.Prefs.LastFilter)

	title := opts.Title
	if title == "" {
		title = "perch"
	}

	m := Model{
		State:       StateBrowsing,
		svc:         svc,
		activity:    opts.Activity,
		opener:      opts.Opener,
		title:       title,
		filterInput: fi,
		compose:     NewCompose(),
		Status:      opts.Status,
		ShowDone:    opts.Prefs.ShowDone,
	}
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		LoadEntriesCmd(m.svc),
		RefreshCmd(m.svc, false),
		WaitForActivityCmd(m.activity),
		TickCmd(tickInterval),
	)
}

// Prefs returns the preferences to persist on exit
func (m Model) Prefs() prefs.Prefs {
	return prefs.Prefs{
		ShowDone:   m.ShowDone,
		LastFilter: strings.TrimSpace(m.filterInput.Value()),
	}
}

// Visible returns the entries currently listed, in display order
func (m Model) Visible() []domain.Entry {
	return search.Entries(m.visible)
}

// Cursor returns the selected row index
func (m Model) Cursor() int {
	return m.cursor
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		m.filterInput.Width = max(msg.Width-4, 10)
		m.ensureVisible()
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case TickMsg:
		m.SpinnerFrame++
		return m, TickCmd(tickInterval)

	case ActivityMsg:
		m.Status = msg.Change.To
		return m, WaitForActivityCmd(m.activity)

	case EntriesLoadedMsg:
		m.applySnapshot(msg.Snapshot)
		return m, nil

	case RefreshDoneMsg:
		m.Syncing = false
		m.applySnapshot(msg.Snapshot)
		switch {
		case msg.Result.Pushed > 0:
			return m.setStatus(fmt.Sprintf("Pushed %d local change%s", msg.Result.Pushed, plural(msg.Result.Pushed)), false)
		case msg.Force:
			return m.setStatus(fmt.Sprintf("Synced %d entr%s", msg.Result.Count, pluralY(msg.Result.Count)), false)
		}
		return m, nil

	case EntrySavedMsg:
		m.applySnapshot(msg.Snapshot)
		m.selectID(msg.Entry.ID)
		if msg.Entry.Pending {
			return m.setStatus("Saved locally, will sync when the server is reachable", false)
		}
		return m.setStatus("Saved: "+msg.Entry.Title, false)

	case EntryDeletedMsg:
		m.applySnapshot(msg.Snapshot)
		return m.setStatus("Deleted: "+msg.Title, false)

	case ErrMsg:
		m.Syncing = false
		m.StatusMsg = msg.Error()
		m.StatusIsErr = true
		return m, ClearStatusCmd(5 * time.Second)

	case StatusMsg:
		return m.setStatus(msg.Message, msg.IsError)

	case ClearStatusMsg:
		m.StatusMsg = ""
		m.StatusIsErr = false
		return m, nil
	}

	// Cursor blink and other textinput internals
	var cmd tea.Cmd
	switch m.State {
	case StateFiltering:
		m.filterInput, cmd = m.filterInput.Update(msg)
	case StateComposing:
		m.compose, cmd, _ = m.compose.Update(msg)
	}
	return m, cmd
}

func (m Model) setStatus(text string, isErr bool) (tea.Model, tea.Cmd) {
	m.StatusMsg = text
	m.StatusIsErr = isErr
	return m, ClearStatusCmd(3 * time.Second)
}

func (m *Model) applySnapshot(s Snapshot) {
	selected := m.selectedID()
	m.entries = s.Entries
	m.cached = s.Cached
	m.pending = s.Pending
	m.applyFilter()
	if selected != "" {
		m.selectID(selected)
	}
}

// applyFilter recomputes the visible rows from entries, the done toggle and
// the filter query.
func (m *Model) applyFilter() {
	entries := m.entries
	if !m.ShowDone {
		entries = make([]domain.Entry, 0, len(m.entries))
		for _, e := range m.entries {
			if !(e.Kind == domain.KindTodo && e.Done) {
				entries = append(entries, e)
			}
		}
	}
	m.visible = search.Filter(m.filterInput.Value(), entries)
	if m.cursor >= len(m.visible) {
		m.cursor = max(len(m.visible)-1, 0)
	}
	m.ensureVisible()
}

func (m Model) selectedEntry() *domain.Entry {
	if m.cursor < 0 || m.cursor >= len(m.visible) {
		return nil
	}
	e := m.visible[m.cursor].Entry
	return &e
}

func (m Model) selectedID() string {
	if e := m.selectedEntry(); e != nil {
		return e.ID
	}
	return ""
}

func (m *Model) selectID(id string) {
	for i, r := range m.visible {
		if r.Entry.ID == id {
			m.cursor = i
			m.ensureVisible()
			return
		}
	}
}

func (m Model) filterBarVisible() bool {
	return m.State == StateFiltering || m.filterInput.Value() != ""
}

func (m Model) maxVisible() int {
	h := m.Height - ChromeHeight - ScrollIndicatorLines
	if m.filterBarVisible() {
		h--
	}
	return max(h, 1)
}

func (m *Model) ensureVisible() {
	// Don't adjust offset if size hasn't been set yet
	if !m.Ready {
		return
	}
	maxVisible := m.maxVisible()
	if m.cursor < m.offset {
		m.offset = m.cursor
	}
	if m.cursor >= m.offset+maxVisible {
		m.offset = m.cursor - maxVisible + 1
	}
	if m.offset < 0 {
		m.offset = 0
	}
}

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.State == StateHelp {
		return m.renderHelp()
	}

	header := m.renderHeader()
	footer := m.renderFooter()
	body := m.renderList()
	if m.filterBarVisible() {
		body += "\n" + " " + m.filterInput.View()
	}

	bodyHeight := m.Height - ChromeHeight
	body = lipgloss.NewStyle().Height(bodyHeight).MaxHeight(bodyHeight).Render(body)

	if m.State == StateComposing {
		body = lipgloss.Place(m.Width, bodyHeight, lipgloss.Center, lipgloss.Center, m.compose.View())
	}

	return lipgloss.JoinVertical(lipgloss.Left, header, body, footer)
}

// renderHeader renders the title on the left and the sync indicator on the right
func (m Model) renderHeader() string {
	left := " " + styles.TitleStyle.Render(m.title)
	if n := len(m.entries); n > 0 {
		left += " " + styles.DimStyle.Render(fmt.Sprintf("(%d)", n))
	}

	right := RenderIndicator(m.Status, m.SpinnerFrame)
	if badge := RenderPendingBadge(m.pending); badge != "" {
		right = badge + " " + right
	}
	right += " "

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderList() string {
	width := max(m.Width, 10)

	if len(m.visible) == 0 {
		msg := "No entries yet. Press n to add a note."
		switch {
		case !m.cached:
			msg = RenderSpinner(m.SpinnerFrame) + " Loading board..."
		case m.filterInput.Value() != "":
			msg = "No matches"
		case len(m.entries) > 0:
			msg = "Everything is done. Press H to show completed todos."
		}
		return " \n " + styles.DimStyle.Render(msg) + "\n "
	}

	maxVisible := m.maxVisible()
	end := min(m.offset+maxVisible, len(m.visible))

	lines := make([]string, 0, end-m.offset+2)

	// Always reserve the indicator rows to prevent layout shifts
	if m.offset > 0 {
		lines = append(lines, " "+styles.DimStyle.Render("↑ more"))
	} else {
		lines = append(lines, " ")
	}
	for i := m.offset; i < end; i++ {
		lines = append(lines, renderEntryRow(m.visible[i], i == m.cursor, width))
	}
	if end < len(m.visible) {
		lines = append(lines, " "+styles.DimStyle.Render("↓ more"))
	} else {
		lines = append(lines, " ")
	}
	return strings.Join(lines, "\n")
}

func entryGlyph(e domain.Entry) (string, lipgloss.Color) {
	switch e.Kind {
	case domain.KindLink:
		return styles.LinkChar, styles.Blue
	case domain.KindTodo:
		if e.Done {
			return styles.TodoDoneChar, styles.Green
		}
		return styles.TodoChar, styles.Accent
	default:
		return styles.NoteChar, styles.LightGray
	}
}

func renderEntryRow(r search.Result, selected bool, width int) string {
	e := r.Entry
	glyph, glyphColor := entryGlyph(e)

	parts := []styles.RowPart{{Text: glyph + " ", Foreground: &glyphColor}}

	title := styles.Truncate(e.Title, max(width-24, 8))
	parts = append(parts, highlightTitle(title, r.MatchedIndexes)...)

	if len(e.Tags) > 0 {
		dim := styles.DimGray
		parts = append(parts, styles.RowPart{Text: "  #" + strings.Join(e.Tags, " #"), Foreground: &dim})
	}
	if e.Pending {
		accent := styles.Accent
		parts = append(parts, styles.RowPart{Text: " " + styles.PendingChar, Foreground: &accent})
	}
	return styles.RenderListRow(parts, selected, width)
}

// highlightTitle splits title into plain and matched parts. Indexes past the
// truncated title are ignored.
func highlightTitle(title string, matched []int) []styles.RowPart {
	if len(matched) == 0 {
		return []styles.RowPart{{Text: title}}
	}
	hits := make(map[int]bool, len(matched))
	for _, i := range matched {
		hits[i] = true
	}

	accent := styles.Accent
	var parts []styles.RowPart
	var run strings.Builder
	runHit := false
	flush := func() {
		if run.Len() == 0 {
			return
		}
		p := styles.RowPart{Text: run.String()}
		if runHit {
			p.Foreground = &accent
			p.Bold = true
		}
		parts = append(parts, p)
		run.Reset()
	}
	for i, r := range title {
		if hits[i] != runHit {
			flush()
			runHit = hits[i]
		}
		run.WriteRune(r)
	}
	flush()
	return parts
}

// renderFooter renders the status line
func (m Model) renderFooter() string {
	var left string
	switch {
	case m.State == StateConfirmDelete && m.deleteTarget != nil:
		left = styles.ErrorStyle.Render(fmt.Sprintf("Delete %q?", styles.Truncate(m.deleteTarget.Title, 40))) +
			" " + styles.AccentStyle.Render("y") + styles.DimStyle.Render("/") + styles.AccentStyle.Render("n")
	case m.StatusMsg != "":
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	case m.State == StateFiltering:
		left = styles.DimStyle.Render("enter accept · esc clear")
	case m.State == StateComposing:
		left = styles.DimStyle.Render("enter save · esc cancel")
	}
	left = " " + left

	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help") + " "

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(styles.ModalTitleStyle.Render("Keys"))
	b.WriteString("\n")
	for _, binding := range Keys.HelpBindings() {
		h := binding.Help()
		b.WriteString(fmt.Sprintf("%s  %s\n",
			styles.HelpKeyStyle.Render(fmt.Sprintf("%-8s", h.Key)),
			styles.HelpDescStyle.Render(h.Desc)))
	}
	b.WriteString("\n")
	b.WriteString(styles.DimStyle.Render("esc or ? to close"))

	modal := styles.ModalStyle.Render(b.String())
	return lipgloss.Place(m.Width, m.Height, lipgloss.Center, lipgloss.Center, modal)
}

func plural(n int) string {
	if n == 1 {
		return ""
	}
	return "s"
}

func pluralY(n int) string {
	if n == 1 {
		return "y"
	}
	return "ies"
}
