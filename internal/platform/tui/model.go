package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/vovakirdan/snakeql/internal/agent"
	"github.com/vovakirdan/snakeql/internal/config"
	"github.com/vovakirdan/snakeql/internal/core"
	"github.com/vovakirdan/snakeql/internal/session"
)

// maxSpeed caps how many ticks are played per frame.
const maxSpeed = 64

// WatchConfig sets how many games the watch screen plays and how fast.
type WatchConfig struct {
	TrainingGames int
	TestGames     int
	TrainingDelay time.Duration
	TestingDelay  time.Duration
}

// WatchConfigFrom takes game counts and delays from cfg.
func WatchConfigFrom(cfg config.Config) WatchConfig {
	return WatchConfig{
		TrainingGames: cfg.Training.Games,
		TestGames:     cfg.Training.TestGames,
		TrainingDelay: cfg.Delay(true),
		TestingDelay:  cfg.Delay(false),
	}
}

func (c WatchConfig) delay(training bool) time.Duration {
	if training {
		return c.TrainingDelay
	}
	return c.TestingDelay
}

// EpisodeFunc receives every finished episode.
type EpisodeFunc func(session.EpisodeResult) error

// WatchModel is the Bubble Tea model that shows an agent playing: a block
// of training games followed by testing games.
type WatchModel struct {
	sess      *session.Session
	cfg       WatchConfig
	onEpisode EpisodeFunc
	screen    *core.Screen
	keys      WatchKeyMap
	help      help.Model
	title     string

	training bool
	played   int  // Episodes finished in the current phase
	over     bool // Current game ended and is shown once before the next starts
	paused   bool
	speed    int // Ticks per frame

	trainSum session.Summary
	testSum  session.Summary
	last     session.EpisodeResult
	hasLast  bool

	done     bool
	quitting bool
	err      error
}

// NewWatchModel creates a watch screen over sess. onEpisode may be nil.
func NewWatchModel(sess *session.Session, cfg WatchConfig, onEpisode EpisodeFunc) WatchModel {
	g := sess.Game()
	h := help.New()
	h.ShowAll = false

	m := WatchModel{
		sess:      sess,
		cfg:       cfg,
		onEpisode: onEpisode,
		screen:    core.NewScreen(g.Cols()+2, g.Rows()+2),
		keys:      DefaultWatchKeyMap(),
		help:      h,
		title:     "SNAKEQL",
		training:  true,
		speed:     1,
	}
	m.checkPhase()
	return m
}

// WithTitle sets the heading shown above the board.
func (m WatchModel) WithTitle(title string) WatchModel {
	m.title = title
	return m
}

// Init starts the tick loop.
func (m WatchModel) Init() tea.Cmd {
	if m.done {
		return nil
	}
	return tickCmd(m.cfg.delay(m.training))
}

// Update handles messages and updates the model state.
func (m WatchModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.help.Width = msg.Width
		return m, nil

	case TickMsg:
		return m.handleTick()
	}

	return m, nil
}

// handleKey processes keyboard input.
func (m WatchModel) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll

	case key.Matches(msg, m.keys.Pause):
		m.paused = !m.paused

	case key.Matches(msg, m.keys.Faster):
		m.speed = min(m.speed*2, maxSpeed)

	case key.Matches(msg, m.keys.Slower):
		m.speed = max(m.speed/2, 1)

	case key.Matches(msg, m.keys.Skip):
		if m.training && !m.done {
			m.training = false
			m.played = 0
			m.over = false
			m.checkPhase()
			if !m.done {
				if err := m.sess.Reset(); err != nil {
					m.fail(err)
				}
			}
		}
	}

	return m, nil
}

// handleTick plays up to speed ticks. An episode that ends stops the
// batch so its final board is drawn.
func (m WatchModel) handleTick() (tea.Model, tea.Cmd) {
	if m.done || m.quitting {
		return m, nil
	}
	if !m.paused {
		for range m.speed {
			ended, err := m.advance()
			if err != nil {
				m.fail(err)
				return m, nil
			}
			if ended || m.done {
				break
			}
		}
	}
	if m.done {
		return m, nil
	}
	return m, tickCmd(m.cfg.delay(m.training))
}

// advance plays one tick and reports whether an episode just ended.
func (m *WatchModel) advance() (bool, error) {
	if m.over {
		m.over = false
		return false, m.sess.Reset()
	}

	if _, err := m.sess.Tick(m.training); err != nil {
		return false, err
	}
	if !m.sess.Done() {
		return false, nil
	}

	res := m.sess.Finish(m.training)
	if m.onEpisode != nil {
		if err := m.onEpisode(res); err != nil {
			return true, err
		}
	}
	if m.training {
		m.trainSum.Add(res)
	} else {
		m.testSum.Add(res)
	}
	m.last = res
	m.hasLast = true
	m.played++
	m.over = true
	m.checkPhase()
	return true, nil
}

// checkPhase moves from training to testing, and from testing to done,
// once the current phase has played its games.
func (m *WatchModel) checkPhase() {
	if m.training && m.played >= m.cfg.TrainingGames {
		m.training = false
		m.played = 0
	}
	if !m.training && m.played >= m.cfg.TestGames {
		m.done = true
	}
}

func (m *WatchModel) fail(err error) {
	m.err = err
	m.done = true
}

// View renders the current state to a string for display.
func (m WatchModel) View() string {
	if m.quitting {
		return ""
	}

	g := m.sess.Game()
	m.screen.Clear()
	g.Render(m.screen, 0, 0)
	if m.paused {
		m.screen.DrawTextCentered(m.screen.Height()/2, " PAUSED ")
	}

	var b strings.Builder
	b.WriteString(titleStyle.Render(m.title))
	b.WriteString("  ")
	b.WriteString(m.phaseLabel())
	b.WriteString("\n\n")

	board := RenderScreen(m.screen)
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, board, "   ", m.sidebar()))
	b.WriteString("\n\n")

	if m.err != nil {
		b.WriteString(errStyle.Render("error: " + m.err.Error()))
		b.WriteString("\n")
	}

	b.WriteString(helpStyle.Render(m.help.View(m.keys)))
	return b.String()
}

func (m WatchModel) phaseLabel() string {
	switch {
	case m.done:
		return valueStyle.Render("FINISHED") + labelStyle.Render("  press q to quit")
	case m.training:
		return valueStyle.Render(fmt.Sprintf("TRAINING %d/%d", m.played+1, m.cfg.TrainingGames))
	default:
		return valueStyle.Render(fmt.Sprintf("TESTING %d/%d", m.played+1, m.cfg.TestGames))
	}
}

func (m WatchModel) sidebar() string {
	g := m.sess.Game()
	stats := m.sess.Agent().Stats()

	lines := []string{
		field("score", fmt.Sprintf("%d", g.Score())),
		field("length", fmt.Sprintf("%d", g.Len())),
		field("steps", fmt.Sprintf("%d", m.sess.Steps())),
		field("state", agent.Encode(g).Key()),
		"",
		field("train best", fmt.Sprintf("%d  mean %.2f", m.trainSum.Best, m.trainSum.Mean())),
		field("test best", fmt.Sprintf("%d  mean %.2f", m.testSum.Best, m.testSum.Mean())),
		field("visited", fmt.Sprintf("%d/%d states", m.sess.Agent().Table().Visited(), agent.NumStates)),
		field("explored", fmt.Sprintf("%d/%d moves", stats.Explorations, stats.Decisions)),
		"",
	}

	if m.hasLast {
		last := fmt.Sprintf("%s #%d score %d", m.last.Mode, m.last.Episode, m.last.Score)
		if m.last.Stalled {
			last += " (stalled)"
		}
		lines = append(lines, field("last", last))
	}

	status := fmt.Sprintf("x%d", m.speed)
	if m.paused {
		status += "  PAUSED"
	}
	lines = append(lines, field("speed", status))

	return strings.Join(lines, "\n")
}

func field(label, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-11s", label)) + valueStyle.Render(value)
}

// Err returns the error that stopped the model, if any.
func (m WatchModel) Err() error {
	return m.err
}

// Done reports whether every game has been played.
func (m WatchModel) Done() bool {
	return m.done
}

// Summary returns the aggregates of the finished episodes of mode.
func (m WatchModel) Summary(mode session.Mode) session.Summary {
	if mode == session.ModeTesting {
		return m.testSum
	}
	return m.trainSum
}

// RunWatch starts the Bubble Tea program for model on the local terminal
// and returns the final model.
func RunWatch(model WatchModel) (WatchModel, error) {
	p := tea.NewProgram(model, tea.WithAltScreen())

	final, err := p.Run()
	if err != nil {
		return model, err
	}
	m, ok := final.(WatchModel)
	if !ok {
		return model, nil
	}
	return m, m.Err()
}
