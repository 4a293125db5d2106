// Package tui provides the Bubble Tea front ends for snakeql: the watch
// screen that shows an agent learning live, the episode board and the
// SSH server that hosts the watch screen for remote users.
package tui

import (
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// minTick keeps very small display delays from flooding the event loop.
const minTick = time.Millisecond

// TickMsg is sent to advance the watched game.
type TickMsg time.Time

// tickCmd returns a Bubble Tea command that sends a tick after delay.
func tickCmd(delay time.Duration) tea.Cmd {
	if delay < minTick {
		delay = minTick
	}
	return tea.Tick(delay, func(t time.Time) tea.Msg {
		return TickMsg(t)
	})
}
