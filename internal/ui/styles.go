package ui

import "github.com/charmbracelet/lipgloss"

const (
	colorBorder = "#30363d"
	colorAccent = "#58a6ff"
	colorGreen  = "#3fb950"
	colorRed    = "#f85149"
	colorYellow = "#d29922"
	colorGray   = "#8b949e"
	colorText   = "#c9d1d9"
	colorPurple = "#bc8cff"
	colorCyan   = "#39c5cf"
)

// seriesColors cycle across multi-chart overlays.
var seriesColors = []string{colorGreen, colorAccent, colorYellow, colorPurple, colorCyan, colorRed}

// Styles holds every lipgloss style the explorer draws with. It is built
// once per model.
type Styles struct {
	Title lipgloss.Style
	Label lipgloss.Style
	Value lipgloss.Style
	Muted lipgloss.Style
	Error lipgloss.Style

	Panel       lipgloss.Style
	ActivePanel lipgloss.Style

	Cursor    lipgloss.Style
	Container lipgloss.Style
	Leaf      lipgloss.Style
	Link      lipgloss.Style
	More      lipgloss.Style

	Chart  lipgloss.Style
	Axis   lipgloss.Style
	Series []lipgloss.Style

	MatrixHeader lipgloss.Style
	Segment      lipgloss.Style
	Command      lipgloss.Style
}

// DefaultStyles creates the default style set.
func DefaultStyles() *Styles {
	panel := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(colorBorder)).
		Padding(0, 1)

	series := make([]lipgloss.Style, len(seriesColors))
	for i, c := range seriesColors {
		series[i] = lipgloss.NewStyle().Foreground(lipgloss.Color(c))
	}

	return &Styles{
		Title: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color(colorAccent)),
		Label: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray)),
		Value: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)),
		Muted: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray)).
			Italic(true),
		Error: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorRed)).
			Bold(true),

		Panel:       panel,
		ActivePanel: panel.BorderForeground(lipgloss.Color(colorAccent)),

		Cursor: lipgloss.NewStyle().
			Reverse(true),
		Container: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorAccent)).
			Bold(true),
		Leaf: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)),
		Link: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorYellow)),
		More: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray)).
			Italic(true),

		Chart: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGreen)),
		Axis: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorGray)),
		Series: series,

		MatrixHeader: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorAccent)).
			Bold(true),
		Segment: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorYellow)),
		Command: lipgloss.NewStyle().
			Foreground(lipgloss.Color(colorText)).
			Background(lipgloss.Color(colorBorder)),
	}
}

// SeriesStyle is the colour of the i-th overlay.
func (s *Styles) SeriesStyle(i int) lipgloss.Style {
	return s.Series[i%len(s.Series)]
}
