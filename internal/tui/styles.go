package tui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/manash/imgrate/pkg/models"
)

// Rating scale colours, from worst to best.
var (
	ColorR1 = lipgloss.Color("#e53935") // red
	ColorR2 = lipgloss.Color("#fb8c00") // orange
	ColorR3 = lipgloss.Color("#ffc107") // yellow
	ColorR4 = lipgloss.Color("#9e9d24") // olive
	ColorR5 = lipgloss.Color("#8bc34a") // green

	ColorMuted  = lipgloss.Color("#6b7280")
	ColorBorder = lipgloss.Color("#2a3850")
	ColorAccent = lipgloss.Color("#2196f3")
)

var ratingColors = map[models.Rating]lipgloss.Color{
	models.R1: ColorR1,
	models.R2: ColorR2,
	models.R3: ColorR3,
	models.R4: ColorR4,
	models.R5: ColorR5,
}

type Styles struct {
	Title    lipgloss.Style
	Path     lipgloss.Style
	Label    lipgloss.Style
	Focused  lipgloss.Style
	Button   lipgloss.Style
	Enabled  lipgloss.Style
	Disabled lipgloss.Style
	Hint     lipgloss.Style
	Error    lipgloss.Style
	Done     lipgloss.Style
	Box      lipgloss.Style
}

func DefaultStyles() Styles {
	return Styles{
		Title:    lipgloss.NewStyle().Bold(true),
		Path:     lipgloss.NewStyle().Foreground(ColorMuted),
		Label:    lipgloss.NewStyle().Width(26),
		Focused:  lipgloss.NewStyle().Width(26).Bold(true).Foreground(ColorAccent),
		Button:   lipgloss.NewStyle().Padding(0, 1).Foreground(ColorMuted),
		Enabled:  lipgloss.NewStyle().Padding(0, 1).Bold(true).Foreground(ColorAccent),
		Disabled: lipgloss.NewStyle().Padding(0, 1).Faint(true).Foreground(ColorMuted),
		Hint:     lipgloss.NewStyle().Foreground(ColorR3),
		Error:    lipgloss.NewStyle().Bold(true).Foreground(ColorR1),
		Done:     lipgloss.NewStyle().Bold(true).Foreground(ColorR5),
		Box:      lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).BorderForeground(ColorBorder).Padding(0, 1),
	}
}

// RatingButton renders one scale button, filled with its colour when chosen.
func (s Styles) RatingButton(r, chosen models.Rating) string {
	label := string(rune('0' + r.Value()))
	if r == chosen {
		return s.Button.
			Foreground(lipgloss.Color("#000000")).
			Background(ratingColors[r]).
			Bold(true).
			Render(label)
	}
	return s.Button.Render(label)
}
