// Package reader is the interactive terminal reader for a single tale.
package reader

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/pandatales/pandatales/app/core/progress"
	"github.com/pandatales/pandatales/app/core/tales"
)

// Rater stores a rating for a tale
type Rater interface {
	SetRating(ctx context.Context, taleID string, stars int) error
}

// SnapshotMsg carries fresh progress from a progress.Watcher into the program
type SnapshotMsg progress.Snapshot

type ratedMsg struct {
	stars int
	err   error
}

// reserved rows around the story viewport: title, stars, choices, status, help
const chromeHeight = 12

// Model is the Bubbletea model for the reader
type Model struct {
	ctx     context.Context
	session *tales.Session
	rater   Rater

	stars    int
	selected int

	viewport viewport.Model
	ready    bool

	snapshot  *progress.Snapshot
	showShare bool
	showHelp  bool
	errMsg    string

	width  int
	height int
}

// NewModel creates a reader for session. stars is the rating already stored.
func NewModel(ctx context.Context, session *tales.Session, rater Rater, stars int) Model {
	return Model{
		ctx:     ctx,
		session: session,
		rater:   rater,
		stars:   stars,
	}
}

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles messages and updates the model
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKeyPress(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		if !m.ready {
			m.viewport = viewport.New(msg.Width-4, max(3, msg.Height-chromeHeight))
			m.ready = true
		} else {
			m.viewport.Width = msg.Width - 4
			m.viewport.Height = max(3, msg.Height-chromeHeight)
		}
		m.refreshPage()

	case SnapshotMsg:
		s := progress.Snapshot(msg)
		m.snapshot = &s

	case ratedMsg:
		if msg.err != nil {
			m.errMsg = msg.err.Error()
		} else {
			m.stars = msg.stars
			m.errMsg = ""
		}
	}

	return m, nil
}

// handleKeyPress handles keyboard input
func (m Model) handleKeyPress(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit

	case "?", "h":
		m.showHelp = !m.showHelp

	case "up", "k":
		if m.selected > 0 {
			m.selected--
		}

	case "down", "j":
		if m.selected < len(m.session.Current().Choices)-1 {
			m.selected++
		}

	case "enter", " ":
		if m.session.Finished() {
			return m, nil
		}
		if _, err := m.session.Choose(m.ctx, m.selected); err != nil {
			m.errMsg = err.Error()
			return m, nil
		}
		m.selected = 0
		m.errMsg = ""
		m.refreshPage()

	case "1", "2", "3":
		stars := int(msg.String()[0] - '0')
		return m, m.rate(stars)

	case "r":
		m.session.Restart()
		m.selected = 0
		m.refreshPage()

	case "s":
		m.showShare = !m.showShare

	case "esc":
		m.showShare = false
		m.showHelp = false

	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	return m, nil
}

func (m Model) rate(stars int) tea.Cmd {
	ctx, taleID, rater := m.ctx, m.session.Tale().ID, m.rater
	return func() tea.Msg {
		return ratedMsg{stars: stars, err: rater.SetRating(ctx, taleID, stars)}
	}
}

// refreshPage renders the visited path into the viewport and scrolls to the newest page
func (m *Model) refreshPage() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.renderPath(max(20, m.viewport.Width)))
	m.viewport.GotoBottom()
}

func (m Model) renderPath(width int) string {
	tale := m.session.Tale()
	var b strings.Builder
	for i, step := range m.session.Path() {
		node, _ := tale.Node(step.NodeID)
		if i > 0 {
			b.WriteString("\n")
		}
		b.WriteString(pageStyle.Width(width).Render(node.Text))
		b.WriteString("\n")
		if step.Picked != "" {
			b.WriteString(pickedStyle.Width(width).Render("➜ " + step.Picked))
			b.WriteString("\n")
		}
		if node.Ending {
			b.WriteString(endingStyle.Render("🪷 The End"))
			b.WriteString("\n")
		}
	}
	return b.String()
}

// View renders the UI
func (m Model) View() string {
	if !m.ready {
		return "Opening the tale..."
	}

	var sections []string
	sections = append(sections, titleStyle.Render("🐼 "+m.session.Tale().Title)+"  "+m.renderStars())
	sections = append(sections, panelStyle.Render(m.viewport.View()))

	switch {
	case m.showHelp:
		sections = append(sections, m.renderHelp())
	case m.showShare:
		sections = append(sections, shareStyle.Width(max(20, m.width-4)).Render(m.session.ShareMessage()))
	default:
		sections = append(sections, m.renderChoices())
	}

	if m.errMsg != "" {
		sections = append(sections, errorStyle.Render("❌ "+m.errMsg))
	}
	sections = append(sections, m.renderStatusBar())

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

func (m Model) renderStars() string {
	var b strings.Builder
	for i := 1; i <= progress.MaxStars; i++ {
		if i <= m.stars {
			b.WriteString(starOnStyle.Render("★"))
		} else {
			b.WriteString(starOffStyle.Render("☆"))
		}
	}
	return b.String()
}

func (m Model) renderChoices() string {
	if m.session.Finished() {
		return choiceStyle.Render("Rate the tale with 1-3, press r to read again or q to close.")
	}
	var lines []string
	for i, c := range m.session.Current().Choices {
		if i == m.selected {
			lines = append(lines, selectedChoiceStyle.Render("▸ "+c.Label))
		} else {
			lines = append(lines, choiceStyle.Render("  "+c.Label))
		}
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderStatusBar() string {
	status := "streak …"
	if m.snapshot != nil {
		st := m.snapshot.Stats
		status = fmt.Sprintf("🔥 streak %d  📖 %d read  🏆 %d/%d",
			st.StreakDays, st.ReadStories, progress.CountEarned(st), len(m.snapshot.Achievements))
	}
	help := keyStyle.Render("?") + keyDescStyle.Render(" help  ") +
		keyStyle.Render("q") + keyDescStyle.Render(" quit")
	return statusBarStyle.Render(status + "   " + help)
}

func (m Model) renderHelp() string {
	bindings := [][2]string{
		{"↑/↓", "select a choice"},
		{"enter", "follow the choice"},
		{"1-3", "rate the tale"},
		{"r", "read again from the start"},
		{"s", "show the share text"},
		{"pgup/pgdn", "scroll the story"},
		{"esc", "close panels"},
		{"q", "quit"},
	}
	var lines []string
	for _, kb := range bindings {
		lines = append(lines, keyStyle.Width(10).Render(kb[0])+keyDescStyle.Render(kb[1]))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}
