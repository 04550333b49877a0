// Package model holds the bubbletea models behind interactive commands.
package model

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/table"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/bnema/vidpipe/internal/application/usecase"
	"github.com/bnema/vidpipe/internal/cli/styles"
	"github.com/bnema/vidpipe/internal/domain/entity"
	"github.com/bnema/vidpipe/internal/video"
)

const defaultRefresh = 100 * time.Millisecond

// StatsSource is polled for pipeline snapshots.
type StatsSource interface {
	Stats() video.Stats
}

// RunFunc runs playback until ctx ends or the stream is done.
type RunFunc func(ctx context.Context) (*usecase.RunPlaybackOutput, error)

// MonitorConfig configures a MonitorModel.
type MonitorConfig struct {
	Frames  int
	Refresh time.Duration
}

// MonitorModel shows live pipeline stats while a playback run is going.
type MonitorModel struct {
	ctx    context.Context
	cancel context.CancelFunc
	theme  *styles.Theme
	source StatsSource
	run    RunFunc
	cfg    MonitorConfig

	stats    video.Stats
	table    table.Model
	progress progress.Model
	loading  styles.LoadingModel

	done     bool
	quitting bool
	result   *usecase.RunPlaybackOutput
	err      error
	width    int
}

// NewMonitorModel creates a monitor. The run starts with Init.
func NewMonitorModel(ctx context.Context, theme *styles.Theme, source StatsSource, run RunFunc, cfg MonitorConfig) MonitorModel {
	if cfg.Refresh <= 0 {
		cfg.Refresh = defaultRefresh
	}
	ctx, cancel := context.WithCancel(ctx)
	m := MonitorModel{
		ctx:      ctx,
		cancel:   cancel,
		theme:    theme,
		source:   source,
		run:      run,
		cfg:      cfg,
		progress: progress.New(progress.WithSolidFill(string(theme.Accent)), progress.WithoutPercentage()),
		loading:  styles.NewLoading(theme, "playing"),
		width:    80,
	}
	m.refresh()
	return m
}

type statsTickMsg time.Time

type runDoneMsg struct {
	out *usecase.RunPlaybackOutput
	err error
}

// Init implements tea.Model.
func (m MonitorModel) Init() tea.Cmd {
	return tea.Batch(m.start, m.tick(), m.loading.Spinner.Tick)
}

func (m MonitorModel) start() tea.Msg {
	out, err := m.run(m.ctx)
	return runDoneMsg{out: out, err: err}
}

func (m MonitorModel) tick() tea.Cmd {
	return tea.Tick(m.cfg.Refresh, func(t time.Time) tea.Msg { return statsTickMsg(t) })
}

// Update implements tea.Model.
func (m MonitorModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.progress.Width = max(msg.Width-12, 10)
		m.refresh()

	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			m.cancel()
			if m.done {
				return m, tea.Quit
			}
			m.quitting = true
		}

	case statsTickMsg:
		m.refresh()
		if !m.done {
			return m, m.tick()
		}

	case runDoneMsg:
		m.done = true
		m.result = msg.out
		m.err = msg.err
		m.refresh()
		if m.quitting {
			return m, tea.Quit
		}

	case spinner.TickMsg:
		if m.done {
			return m, nil
		}
		var cmd tea.Cmd
		m.loading.Spinner, cmd = m.loading.Spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m *MonitorModel) refresh() {
	m.stats = m.source.Stats()
	s := m.stats
	rows := []table.Row{
		{"surfaces", strconv.Itoa(s.Pool.Free), strconv.Itoa(s.Pool.Allocated - s.Pool.Free), strconv.Itoa(s.Pool.Queued), strconv.Itoa(s.Pool.Render), "-"},
		{"mixer", "-", strconv.Itoa(s.Worker.Pending), strconv.Itoa(s.Worker.Queued), styles.FormatCount(s.Worker.Rendered), styles.FormatCount(s.Worker.Dropped + s.Worker.Discarded)},
		{"pictures", strconv.Itoa(s.Pictures.Free), strconv.Itoa(s.Pictures.Used + s.Pictures.InFlip + s.Pictures.Retired), strconv.Itoa(s.Pictures.Held), styles.FormatCount(s.Pictures.Presented), styles.FormatCount(s.Pictures.Dropped + s.Pictures.Discarded)},
		{"recovery", "-", styles.FormatCount(s.Recovery.Attempts), "-", styles.FormatCount(s.Recovery.Recoveries), "-"},
	}
	m.table = styles.NewStyledTable(m.theme, styles.StageTableColumns(), rows, max(m.width-4, 40), len(rows)+1)
}

func (m MonitorModel) percent() float64 {
	if m.cfg.Frames <= 0 {
		return 0
	}
	p := float64(m.stats.Pictures.Presented) / float64(m.cfg.Frames)
	if m.stats.Features.FieldRate() {
		p /= 2
	}
	return min(p, 1)
}

// View implements tea.Model.
func (m MonitorModel) View() string {
	t := m.theme
	s := m.stats

	status := m.loading.View()
	switch {
	case m.done && m.err != nil:
		status = t.ErrorStyle.Render(styles.IconX + " " + m.err.Error())
	case m.done:
		status = t.HealthStyle(s.Health).Render(styles.IconCheck + " done")
	case m.quitting:
		status = t.WarningStyle.Render("stopping...")
	case s.Health == entity.HealthRecovering:
		status = t.WarningStyle.Render(styles.IconRefresh + " recovering device")
	}

	header := lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Foreground(t.Accent).Render(styles.IconVideo), " ",
		t.Title.Render("vidpipe monitor"), " ",
		t.HealthBadge(s.Health), " ",
		t.AccentBadge(string(s.Method)), " ",
		t.MutedBadge(fmt.Sprintf("gen %d", s.Generation)), " ",
		t.CountBadge(s.Pool.Capacity, "surface"),
	)

	parts := []string{
		header,
		"",
		t.Subtle.Render(styles.FeatureSummary(s.Features)),
		"",
		m.table.View(),
		"",
		m.progress.ViewAs(m.percent()),
		status,
	}
	if m.done && m.result != nil {
		parts = append(parts, "", styles.NewPlaybackRenderer(t).Render(m.result, nil))
	}
	parts = append(parts, t.HelpKey.Render("q")+" "+t.HelpDesc.Render("quit"))
	return t.Box.Render(strings.Join(parts, "\n"))
}

// Result returns the run summary once the run ended.
func (m MonitorModel) Result() (*usecase.RunPlaybackOutput, error) {
	return m.result, m.err
}
