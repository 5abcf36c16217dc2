package ui

import "github.com/charmbracelet/bubbles/key"

type keyMap struct {
	Up       key.Binding
	Down     key.Binding
	Left     key.Binding
	Right    key.Binding
	PageUp   key.Binding
	PageDown key.Binding
	Toggle   key.Binding
	Focus    key.Binding
	Mode     key.Binding
	Overlay  key.Binding
	FreeAxis key.Binding
	Active   key.Binding
	NextSeg  key.Binding
	PrevSeg  key.Binding
	Command  key.Binding
	Repeat   key.Binding
	Help     key.Binding
	Quit     key.Binding
	Submit   key.Binding
	Cancel   key.Binding
}

func (km keyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.Toggle, km.Focus, km.Mode, km.Command, km.Help, km.Quit}
}

func (km keyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.Left, km.Right, km.PageUp, km.PageDown},
		{km.Toggle, km.Focus, km.Mode, km.Overlay, km.FreeAxis, km.Active},
		{km.NextSeg, km.PrevSeg, km.Command, km.Repeat, km.Help, km.Quit},
	}
}

func newKeyMap() keyMap {
	return keyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "up"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "down"),
		),
		Left: key.NewBinding(
			key.WithKeys("h", "left"),
			key.WithHelp("h/←", "collapse / scroll left"),
		),
		Right: key.NewBinding(
			key.WithKeys("l", "right"),
			key.WithHelp("l/→", "expand / scroll right"),
		),
		PageUp: key.NewBinding(
			key.WithKeys("pgup"),
			key.WithHelp("pgup", "up 20"),
		),
		PageDown: key.NewBinding(
			key.WithKeys("pgdown"),
			key.WithHelp("pgdn", "down 20"),
		),
		Toggle: key.NewBinding(
			key.WithKeys("enter", " "),
			key.WithHelp("enter", "toggle"),
		),
		Focus: key.NewBinding(
			key.WithKeys("tab"),
			key.WithHelp("tab", "switch pane"),
		),
		Mode: key.NewBinding(
			key.WithKeys("m"),
			key.WithHelp("m", "preview / matrix"),
		),
		Overlay: key.NewBinding(
			key.WithKeys("M"),
			key.WithHelp("M", "add to multi-chart"),
		),
		FreeAxis: key.NewBinding(
			key.WithKeys("x"),
			key.WithHelp("x", "next free axis"),
		),
		Active: key.NewBinding(
			key.WithKeys("a"),
			key.WithHelp("a", "next pinned axis"),
		),
		NextSeg: key.NewBinding(
			key.WithKeys("]"),
			key.WithHelp("]", "next segment"),
		),
		PrevSeg: key.NewBinding(
			key.WithKeys("["),
			key.WithHelp("[", "previous segment"),
		),
		Command: key.NewBinding(
			key.WithKeys(":"),
			key.WithHelp(":", "command"),
		),
		Repeat: key.NewBinding(
			key.WithKeys("."),
			key.WithHelp(".", "repeat command"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
		Submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "run"),
		),
		Cancel: key.NewBinding(
			key.WithKeys("esc"),
			key.WithHelp("esc", "cancel"),
		),
	}
}

// chartKeyMap is active while the multi-chart is shown.
type chartKeyMap struct {
	Up       key.Binding
	Down     key.Binding
	ZoomIn   key.Binding
	ZoomOut  key.Binding
	PanLeft  key.Binding
	PanRight key.Binding
	Reset    key.Binding
	Remove   key.Binding
	Clear    key.Binding
	Back     key.Binding
	Help     key.Binding
	Quit     key.Binding
}

func (km chartKeyMap) ShortHelp() []key.Binding {
	return []key.Binding{km.ZoomIn, km.PanLeft, km.Remove, km.Clear, km.Back, km.Quit}
}

func (km chartKeyMap) FullHelp() [][]key.Binding {
	return [][]key.Binding{
		{km.Up, km.Down, km.ZoomIn, km.ZoomOut, km.PanLeft, km.PanRight},
		{km.Reset, km.Remove, km.Clear, km.Back, km.Help, km.Quit},
	}
}

func newChartKeyMap() chartKeyMap {
	return chartKeyMap{
		Up: key.NewBinding(
			key.WithKeys("k", "up"),
			key.WithHelp("k/↑", "previous series"),
		),
		Down: key.NewBinding(
			key.WithKeys("j", "down"),
			key.WithHelp("j/↓", "next series"),
		),
		ZoomIn: key.NewBinding(
			key.WithKeys("shift+up", "+", "="),
			key.WithHelp("shift+↑/+", "zoom in"),
		),
		ZoomOut: key.NewBinding(
			key.WithKeys("shift+down", "-"),
			key.WithHelp("shift+↓/-", "zoom out"),
		),
		PanLeft: key.NewBinding(
			key.WithKeys("shift+left", "h", "left"),
			key.WithHelp("h/←", "pan left"),
		),
		PanRight: key.NewBinding(
			key.WithKeys("shift+right", "l", "right"),
			key.WithHelp("l/→", "pan right"),
		),
		Reset: key.NewBinding(
			key.WithKeys("c"),
			key.WithHelp("c", "reset zoom"),
		),
		Remove: key.NewBinding(
			key.WithKeys("d", "delete", "backspace"),
			key.WithHelp("d", "remove series"),
		),
		Clear: key.NewBinding(
			key.WithKeys("D"),
			key.WithHelp("D", "remove all"),
		),
		Back: key.NewBinding(
			key.WithKeys("esc", "M"),
			key.WithHelp("esc", "back to tree"),
		),
		Help: key.NewBinding(
			key.WithKeys("?"),
			key.WithHelp("?", "help"),
		),
		Quit: key.NewBinding(
			key.WithKeys("q", "ctrl+c"),
			key.WithHelp("q", "quit"),
		),
	}
}
