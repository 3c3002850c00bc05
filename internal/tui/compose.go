package tui

import (
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/perch/internal/domain"
	"github.com/mmcdole/perch/internal/tui/styles"
)

// Compose is the text input modal used to add entries
type Compose struct {
	visible bool
	kind    domain.EntryKind
	input   textinput.Model
}

// NewCompose creates a hidden compose modal
func NewCompose() Compose {
	ti := textinput.New()
	ti.CharLimit = 200
	ti.Width = 40
	ti.Prompt = ""
	ti.TextStyle = lipgloss.NewStyle().Foreground(styles.White)
	ti.PlaceholderStyle = styles.DimStyle

	return Compose{input: ti}
}

// Show displays the modal for a new entry of kind
func (c *Compose) Show(kind domain.EntryKind) {
	c.visible = true
	c.kind = kind
	switch kind {
	case domain.KindTodo:
		c.input.Placeholder = "What needs doing?"
	default:
		c.input.Placeholder = "Note text or a URL..."
	}
	c.input.SetValue("")
	c.input.Focus()
}

// Hide dismisses the modal
func (c *Compose) Hide() {
	c.visible = false
	c.input.Blur()
}

// IsVisible returns whether the modal is shown
func (c Compose) IsVisible() bool {
	return c.visible
}

// Value returns the current input value
func (c Compose) Value() string {
	return c.input.Value()
}

// Entry builds the entry described by the input. Notes whose text is a
// URL become links.
func (c Compose) Entry() domain.Entry {
	text := strings.TrimSpace(c.input.Value())
	entry := domain.Entry{Kind: c.kind, Title: text}
	if c.kind == domain.KindNote && looksLikeURL(text) {
		entry.Kind = domain.KindLink
		entry.URL = text
		if u, err := url.Parse(text); err == nil && u.Host != "" {
			entry.Title = u.Host + strings.TrimSuffix(u.Path, "/")
		}
	}
	return entry
}

func looksLikeURL(s string) bool {
	if strings.ContainsAny(s, " \t") {
		return false
	}
	return strings.HasPrefix(s, "http://") || strings.HasPrefix(s, "https://")
}

// Update handles input events, returns (modal, cmd, submitted)
func (c Compose) Update(msg tea.Msg) (Compose, tea.Cmd, bool) {
	if !c.visible {
		return c, nil, false
	}

	if keyMsg, ok := msg.(tea.KeyMsg); ok {
		switch {
		case key.Matches(keyMsg, Keys.Enter):
			return c, nil, true
		case key.Matches(keyMsg, Keys.Escape):
			c.Hide()
			return c, nil, false
		}
	}

	var cmd tea.Cmd
	c.input, cmd = c.input.Update(msg)
	return c, cmd, false
}

// View renders the compose modal
func (c Compose) View() string {
	if !c.visible {
		return ""
	}

	const modalWidth = 44

	title := "New note"
	if c.kind == domain.KindTodo {
		title = "New todo"
	}

	titleStyle := lipgloss.NewStyle().
		Foreground(styles.White).
		Bold(true).
		Width(modalWidth).
		Background(styles.SlateDark)

	inputStyle := lipgloss.NewStyle().
		Width(modalWidth).
		Background(styles.SlateDark)

	spacer := lipgloss.NewStyle().
		Width(modalWidth).
		Background(styles.SlateDark).
		Render("")

	content := lipgloss.JoinVertical(lipgloss.Left,
		titleStyle.Render(title),
		spacer,
		inputStyle.Render(c.input.View()),
	)

	return styles.ModalStyle.Render(content)
}
