package tui

import "github.com/charmbracelet/bubbles/key"

// WatchKeyMap defines the key bindings of the watch screen.
type WatchKeyMap struct {
	Pause  key.Binding
	Faster key.Binding
	Slower key.Binding
	Skip   key.Binding
	Help   key.Binding
	Quit   key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k WatchKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Pause, k.Faster, k.Slower, k.Skip, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k WatchKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Pause, k.Faster, k.Slower},
		{k.Skip, k.Help, k.Quit},
	}
}

// DefaultWatchKeyMap returns default key bindings.
func DefaultWatchKeyMap() WatchKeyMap {
	return WatchKeyMap{
		Pause: key.NewBinding(
			key.WithKeys("p", " "),
			key.WithHelp("p/space", "pause"),
		),
		Faster: key.NewBinding(
			key.WithKeys("+", "=", "right", "l"),
			key.WithHelp("+", "faster"),
		),
		Slower: key.NewBinding(
			key.WithKeys("-", "_", "left", "h"),
			key.WithHelp("-", "slower"),
		),
		Skip: key.NewBinding(
			key.WithKeys("t", "tab"),
			key.WithHelp("t", "skip to testing"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "more keys"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}

// BoardKeyMap defines the key bindings for the episode board.
type BoardKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	NextMode key.Binding
	PrevMode key.Binding
	Refresh  key.Binding
	Quit     key.Binding
}

// ShortHelp returns key bindings for the short help view.
func (k BoardKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{k.Up, k.Down, k.NextMode, k.PrevMode, k.Refresh, k.Quit}
}

// FullHelp returns key bindings for the full help view.
func (k BoardKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{k.Up, k.Down, k.NextMode, k.PrevMode},
		{k.Refresh, k.Quit},
	}
}

// DefaultBoardKeyMap returns default key bindings.
func DefaultBoardKeyMap() BoardKeyMap {
	return BoardKeyMap{
		Up: key.NewBinding(
			key.WithKeys("up", "k"),
			key.WithHelp("up/k", "scroll up"),
		),
		Down: key.NewBinding(
			key.WithKeys("down", "j"),
			key.WithHelp("down/j", "scroll down"),
		),
		NextMode: key.NewBinding(
			key.WithKeys("tab", "right", "l"),
			key.WithHelp("tab", "next filter"),
		),
		PrevMode: key.NewBinding(
			key.WithKeys("shift+tab", "left", "h"),
			key.WithHelp("S-tab", "prev filter"),
		),
		Refresh: key.NewBinding(
			key.WithKeys("r"),
			key.WithHelp("r", "refresh"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c", "esc"),
			key.WithHelp("q", "quit"),
		),
	}
}
