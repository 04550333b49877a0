package styles

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/vidpipe/internal/domain/entity"
)

// AccentBadge renders a badge with accent color.
func (t *Theme) AccentBadge(text string) string {
	return t.Badge.Render(text)
}

// MutedBadge renders a badge with muted colors.
func (t *Theme) MutedBadge(text string) string {
	return t.BadgeMuted.Render(text)
}

// CountBadge renders "n label", pluralized.
func (t *Theme) CountBadge(n int, label string) string {
	text := fmt.Sprintf("%d %ss", n, label)
	if n == 1 {
		text = "1 " + label
	}
	return t.BadgeMuted.Render(text)
}

// HealthBadge renders the pipeline health with its status color.
func (t *Theme) HealthBadge(h entity.Health) string {
	var bg lipgloss.Color
	switch h {
	case entity.HealthOK:
		bg = t.Success
	case entity.HealthRecovering:
		bg = t.Warning
	default:
		bg = t.Error
	}
	return t.StatusBadge(h.String(), t.Background, bg)
}

// StatusBadge renders a status badge with custom colors.
func (t *Theme) StatusBadge(text string, fg, bg lipgloss.Color) string {
	style := lipgloss.NewStyle().
		Foreground(fg).
		Background(bg).
		Padding(0, 1)
	return style.Render(text)
}
