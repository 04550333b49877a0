package styles

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/vidpipe/internal/application/usecase"
	"github.com/bnema/vidpipe/internal/domain/entity"
)

// PlaybackRenderer renders the summary of a playback run.
type PlaybackRenderer struct {
	theme *Theme
}

// NewPlaybackRenderer creates a new PlaybackRenderer.
func NewPlaybackRenderer(theme *Theme) *PlaybackRenderer {
	return &PlaybackRenderer{theme: theme}
}

// Render renders a run summary. err is the run error, if any.
func (r *PlaybackRenderer) Render(out *usecase.RunPlaybackOutput, err error) string {
	t := r.theme
	if out == nil {
		return t.Box.Render(r.renderError(err))
	}

	iconStyle := lipgloss.NewStyle().Foreground(t.Accent)
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		iconStyle.Render(IconFilm), " ",
		t.Title.Render("Playback"), " ",
		t.HealthBadge(out.Health), " ",
		t.MutedBadge(methodLabel(out.Method)),
	)

	rows := [][2]string{
		{"Run", out.RunID},
		{"Decoded", fmt.Sprintf("%d", out.Decoded)},
		{"Skipped", fmt.Sprintf("%d", out.Skipped)},
		{"Presented", fmt.Sprintf("%d", out.Presented)},
		{"Reloads", fmt.Sprintf("%d", out.Reloads)},
		{"Elapsed", out.Elapsed.Round(time.Millisecond).String()},
	}
	if out.Features != nil {
		rows = append(rows, [2]string{"Features", FeatureSummary(out.Features)})
	}
	body := r.renderRows(rows)

	var order string
	if out.OutOfOrder == 0 {
		order = t.SuccessStyle.Render(IconCheck + " presentation order preserved")
	} else {
		order = t.ErrorStyle.Render(fmt.Sprintf("%s %d pictures out of order", IconX, out.OutOfOrder))
	}

	parts := []string{header, "", body, "", order}
	if err != nil {
		parts = append(parts, r.renderError(err))
	}
	return t.Box.Render(strings.Join(parts, "\n"))
}

func (r *PlaybackRenderer) renderRows(rows [][2]string) string {
	keyStyle := r.theme.Subtle.Width(11)
	lines := make([]string, 0, len(rows))
	for _, row := range rows {
		lines = append(lines, keyStyle.Render(row[0])+r.theme.Normal.Render(row[1]))
	}
	return strings.Join(lines, "\n")
}

func (r *PlaybackRenderer) renderError(err error) string {
	if err == nil {
		return ""
	}
	return r.theme.ErrorStyle.Render(IconWarning + " " + err.Error())
}

// FeatureSummary lists the active parts of a feature set on one line.
func FeatureSummary(fs *entity.FeatureSet) string {
	if fs == nil {
		return "none"
	}
	if !fs.PostProcessing {
		return "post-processing off"
	}
	parts := []string{"deinterlace " + string(fs.Interlace)}
	if fs.NoiseReduction > 0 {
		parts = append(parts, fmt.Sprintf("denoise %.2f", fs.NoiseReduction))
	}
	if fs.Sharpness != 0 {
		parts = append(parts, fmt.Sprintf("sharpness %.2f", fs.Sharpness))
	}
	if fs.ScalingLevel > 0 {
		parts = append(parts, fmt.Sprintf("hq scaling L%d", fs.ScalingLevel))
	}
	if fs.SkipChroma {
		parts = append(parts, "skip chroma")
	}
	if fs.Studio {
		parts = append(parts, "studio levels")
	}
	return strings.Join(parts, ", ")
}

func methodLabel(m entity.OutputMethod) string {
	if m == "" || m == entity.OutputNone {
		return "unbound"
	}
	return string(m)
}
