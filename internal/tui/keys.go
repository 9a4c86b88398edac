package tui

import "github.com/charmbracelet/bubbles/key"

// KeyMap defines all dashboard key bindings with built-in help text.
type KeyMap struct {
	// Global
	Quit      key.Binding
	ForceQuit key.Binding
	Help      key.Binding
	Escape    key.Binding

	// Navigation
	NextNode key.Binding
	PrevNode key.Binding
	Summary  key.Binding
	NodeView key.Binding
	Digits   key.Binding

	// Display
	ToggleLogfile key.Binding
	ZoomIn        key.Binding
	ZoomOut       key.Binding
	StatsMode     key.Binding
	NextTimeline  key.Binding
	PrevTimeline  key.Binding
	Sort          key.Binding
}

// DefaultKeyMap returns the default key bindings.
func DefaultKeyMap() KeyMap {
	return KeyMap{
		Quit: key.NewBinding(
			key.WithKeys("q"),
			key.WithHelp("q", "quit"),
		),
		ForceQuit: key.NewBinding(
			key.WithKeys("ctrl+c"),
			key.WithHelp("ctrl+c", "force quit"),
		),
		Help: key.NewBinding(
			key.WithKeys("?", "h"),
			key.WithHelp("?/h", "help"),
		),
		Escape: key.NewBinding(
			key.WithKeys("escape", "esc"),
			key.WithHelp("esc", "back"),
		),

		NextNode: key.NewBinding(
			key.WithKeys("tab", "right", "n"),
			key.WithHelp("tab/→/n", "next node"),
		),
		PrevNode: key.NewBinding(
			key.WithKeys("shift+tab", "left", "N"),
			key.WithHelp("shift+tab/←", "prev node"),
		),
		Summary: key.NewBinding(
			key.WithKeys("s"),
			key.WithHelp("s", "summary"),
		),
		NodeView: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "node detail"),
		),
		Digits: key.NewBinding(
			key.WithKeys("1", "2", "3", "4", "5", "6", "7", "8", "9"),
			key.WithHelp("1-9", "jump to node"),
		),

		ToggleLogfile: key.NewBinding(
			key.WithKeys("l"),
			key.WithHelp("l", "toggle logfile pane"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("+", "="),
			key.WithHelp("+", "zoom in timescale"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("-"),
			key.WithHelp("-", "zoom out timescale"),
		),
		StatsMode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "min/mean/max"),
		),
		NextTimeline: key.NewBinding(
			key.WithKeys("t"),
			key.WithHelp("t", "next top timeline"),
		),
		PrevTimeline: key.NewBinding(
			key.WithKeys("T"),
			key.WithHelp("T", "prev top timeline"),
		),
		Sort: key.NewBinding(
			key.WithKeys("o"),
			key.WithHelp("o", "cycle summary sort"),
		),
	}
}
