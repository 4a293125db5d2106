package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/snakeql/internal/storage"
)

// Board layout constants
const (
	minWidthForSidebar = 90  // Minimum width to show the filter sidebar
	sidebarWidth       = 20  // Width of filter sidebar
	maxEpisodes        = 100 // Max episodes to load
)

// boardFilter selects which episodes the board lists.
type boardFilter struct {
	title string
	mode  string // Empty lists every mode
}

var boardFilters = []boardFilter{
	{title: "All episodes", mode: ""},
	{title: "Training", mode: "training"},
	{title: "Testing", mode: "testing"},
}

// EpisodeSource is the part of the run history the board reads.
type EpisodeSource interface {
	TopEpisodes(mode string, limit int) ([]storage.Episode, error)
	HighScore(mode string) (int, error)
}

// BoardModel is the Bubble Tea model for the best-episodes board.
type BoardModel struct {
	source      EpisodeSource
	cursor      int // Selected filter
	episodes    []storage.Episode
	high        int
	loadErr     error
	table       table.Model
	help        help.Model
	keys        BoardKeyMap
	width       int
	height      int
	quitting    bool
	showSidebar bool
}

// NewBoardModel creates a board over source sized for a width×height
// terminal.
func NewBoardModel(source EpisodeSource, width, height int) BoardModel {
	h := help.New()
	h.ShowAll = false

	m := BoardModel{
		source:      source,
		keys:        DefaultBoardKeyMap(),
		help:        h,
		width:       width,
		height:      height,
		showSidebar: width >= minWidthForSidebar,
	}
	m.table = m.createTable()
	m.load()
	return m
}

// createTable creates a new table with columns sized to the terminal.
func (m *BoardModel) createTable() table.Model {
	columns := []table.Column{
		{Title: "Rank", Width: 5},
		{Title: "Score", Width: 6},
		{Title: "Mode", Width: 9},
		{Title: "Run", Width: 5},
		{Title: "Game", Width: 5},
		{Title: "Steps", Width: 7},
		{Title: "Date", Width: 12},
	}

	tableWidth := m.width - 4
	if m.showSidebar {
		tableWidth -= sidebarWidth + 3
	}
	fixed := 0
	for _, c := range columns[:len(columns)-1] {
		fixed += c.Width + 2
	}
	if rest := tableWidth - fixed; rest > columns[len(columns)-1].Width {
		columns[len(columns)-1].Width = min(rest, 20)
	}

	t := table.New(
		table.WithColumns(columns),
		table.WithFocused(true),
		table.WithHeight(max(m.height-8, 3)),
	)

	s := table.DefaultStyles()
	s.Header = s.Header.
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("240")).
		BorderBottom(true).
		Bold(true)
	s.Selected = s.Selected.
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Bold(false)
	t.SetStyles(s)

	return t
}

// load fetches the episodes of the selected filter.
func (m *BoardModel) load() {
	m.episodes = nil
	m.high = 0
	m.loadErr = nil
	if m.source != nil {
		mode := boardFilters[m.cursor].mode
		m.episodes, m.loadErr = m.source.TopEpisodes(mode, maxEpisodes)
		if m.loadErr == nil {
			m.high, m.loadErr = m.source.HighScore(mode)
		}
	}
	m.updateTableRows()
}

// updateTableRows updates the table with the loaded episodes.
func (m *BoardModel) updateTableRows() {
	rows := make([]table.Row, len(m.episodes))
	for i, e := range m.episodes {
		score := fmt.Sprintf("%d", e.Score)
		if e.Stalled {
			score += "*"
		}
		rows[i] = table.Row{
			fmt.Sprintf("#%d", i+1),
			score,
			e.Mode,
			fmt.Sprintf("%d", e.RunID),
			fmt.Sprintf("%d", e.Index),
			fmt.Sprintf("%d", e.Steps),
			e.CreatedAt.Format("Jan 02 15:04"),
		}
	}
	m.table.SetRows(rows)
	m.table.GotoTop()
}

// Init initializes the board model.
func (m BoardModel) Init() tea.Cmd {
	return nil
}

// Update handles messages for the board.
func (m BoardModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.quitting = true
			return m, tea.Quit

		case key.Matches(msg, m.keys.NextMode):
			m.cursor = (m.cursor + 1) % len(boardFilters)
			m.load()
			return m, nil

		case key.Matches(msg, m.keys.PrevMode):
			m.cursor = (m.cursor + len(boardFilters) - 1) % len(boardFilters)
			m.load()
			return m, nil

		case key.Matches(msg, m.keys.Refresh):
			m.load()
			return m, nil

		case key.Matches(msg, m.keys.Up), key.Matches(msg, m.keys.Down):
			m.table, cmd = m.table.Update(msg)
			return m, cmd
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.showSidebar = m.width >= minWidthForSidebar
		m.table = m.createTable()
		m.updateTableRows()
		m.help.Width = msg.Width
		return m, nil
	}

	m.table, cmd = m.table.Update(msg)
	return m, cmd
}

// View renders the board.
func (m BoardModel) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder

	title := fmt.Sprintf("BEST EPISODES - %s - HIGH SCORE %d", boardFilters[m.cursor].title, m.high)
	b.WriteString(titleStyle.MarginBottom(1).Render(centerText(title, m.width)))
	b.WriteString("\n\n")

	if m.showSidebar {
		b.WriteString(m.renderWideLayout())
	} else {
		b.WriteString(m.renderNarrowLayout())
	}

	b.WriteString("\n")
	b.WriteString(helpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

// renderWideLayout renders the board with a sidebar listing the filters.
func (m BoardModel) renderWideLayout() string {
	sidebarStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Width(sidebarWidth).
		Padding(0, 1)

	var sidebar strings.Builder
	sidebar.WriteString("Show\n")
	sidebar.WriteString(strings.Repeat("-", sidebarWidth-4))
	sidebar.WriteString("\n")

	for i, f := range boardFilters {
		cursor := "  "
		style := lipgloss.NewStyle()
		if i == m.cursor {
			cursor = "> "
			style = style.Bold(true).Foreground(lipgloss.Color("229"))
		}
		sidebar.WriteString(style.Render(cursor + f.title))
		sidebar.WriteString("\n")
	}

	tableStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)

	return lipgloss.JoinHorizontal(lipgloss.Top,
		sidebarStyle.Render(sidebar.String()), "  ", tableStyle.Render(m.renderTableContent()))
}

// renderNarrowLayout renders the board with filter tabs above the table.
func (m BoardModel) renderNarrowLayout() string {
	var b strings.Builder

	tabStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241"))
	activeTabStyle := lipgloss.NewStyle().
		Bold(true).
		Foreground(lipgloss.Color("229")).
		Background(lipgloss.Color("57")).
		Padding(0, 1)

	tabs := make([]string, len(boardFilters))
	for i, f := range boardFilters {
		if i == m.cursor {
			tabs[i] = activeTabStyle.Render(f.title)
		} else {
			tabs[i] = tabStyle.Render(" " + f.title + " ")
		}
	}
	b.WriteString(centerText(strings.Join(tabs, " "), m.width))
	b.WriteString("\n\n")

	tableStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color("240")).
		Padding(0, 1)
	b.WriteString(tableStyle.Render(m.renderTableContent()))

	return b.String()
}

// renderTableContent renders the table, an error or an empty message.
func (m BoardModel) renderTableContent() string {
	emptyStyle := lipgloss.NewStyle().
		Foreground(lipgloss.Color("241")).
		Italic(true).
		Padding(2, 4)

	if m.loadErr != nil {
		return errStyle.Padding(2, 4).Render("Cannot load episodes:\n" + m.loadErr.Error())
	}
	if len(m.episodes) == 0 {
		return emptyStyle.Render("No episodes recorded yet.\nRun 'snakeql train' to record some!")
	}
	return m.table.View()
}

// HighScore returns the high score of the selected filter.
func (m BoardModel) HighScore() int {
	return m.high
}

// Episodes returns the episodes currently listed.
func (m BoardModel) Episodes() []storage.Episode {
	return m.episodes
}

// RunBoard runs the board screen.
func RunBoard(source EpisodeSource, width, height int) error {
	p := tea.NewProgram(
		NewBoardModel(source, width, height),
		tea.WithAltScreen(),
	)
	_, err := p.Run()
	return err
}
