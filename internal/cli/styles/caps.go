package styles

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/vidpipe/internal/application/usecase"
	"github.com/bnema/vidpipe/internal/domain/entity"
)

// CapsRenderer renders a capability probe.
type CapsRenderer struct {
	theme *Theme
}

// NewCapsRenderer creates a new CapsRenderer.
func NewCapsRenderer(theme *Theme) *CapsRenderer {
	return &CapsRenderer{theme: theme}
}

func (r *CapsRenderer) Render(out *usecase.ProbeCapabilitiesOutput) string {
	t := r.theme
	iconStyle := lipgloss.NewStyle().Foreground(t.Accent)
	header := lipgloss.JoinHorizontal(lipgloss.Top,
		iconStyle.Render(IconChip), " ",
		t.Title.Render("Hardware capabilities"), " ",
		t.HealthBadge(out.Health),
	)

	sections := []string{
		header,
		r.renderFeatures(out),
		r.renderList("Decoder profiles", profileNames(out.Profiles)),
		r.renderList("Output methods", methodNames(out.Methods)),
	}
	if out.Capabilities != nil {
		sections = append(sections, iconStyle.Render(IconInfo)+" "+t.Subtle.Render(fmt.Sprintf("Max HQ scaling level: %d", out.Capabilities.MaxScalingLevel)))
	}
	if out.Features != nil {
		sections = append(sections, t.Subtitle.Render("Negotiated")+"\n  "+t.Normal.Render(FeatureSummary(out.Features))+
			"\n  "+t.Subtle.Render("method "+methodLabel(out.Method)))
	}
	return t.Box.Render(strings.Join(sections, "\n\n"))
}

func (r *CapsRenderer) renderFeatures(out *usecase.ProbeCapabilitiesOutput) string {
	t := r.theme
	lines := []string{t.Subtitle.Render("Mixer features")}
	for _, f := range out.Supported {
		if isScaling(f) {
			continue
		}
		lines = append(lines, "  "+t.SuccessStyle.Render(IconCheck)+" "+t.Normal.Render(string(f)))
	}
	for _, f := range out.Missing {
		if isScaling(f) {
			continue
		}
		lines = append(lines, "  "+t.ErrorStyle.Render(IconX)+" "+t.Subtle.Render(string(f)))
	}
	return strings.Join(lines, "\n")
}

func (r *CapsRenderer) renderList(title string, items []string) string {
	t := r.theme
	if len(items) == 0 {
		return t.Subtitle.Render(title) + "\n  " + t.WarningStyle.Render("none")
	}
	return t.Subtitle.Render(title) + "\n  " + t.Normal.Render(strings.Join(items, ", "))
}

func isScaling(f entity.MixerFeature) bool {
	return strings.HasPrefix(string(f), "hq_scaling")
}

func profileNames(ps []entity.DecoderProfile) []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = string(p)
	}
	return out
}

func methodNames(ms []entity.OutputMethod) []string {
	out := make([]string, len(ms))
	for i, m := range ms {
		out[i] = string(m)
	}
	return out
}
