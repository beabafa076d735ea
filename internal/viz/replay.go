package viz

import (
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/san-kum/odestep/internal/dynamo"
)

type TickMsg time.Time

// ReplayModel steps through a finished trace one sample at a time.
type ReplayModel struct {
	tr       *dynamo.Trace
	exact    dynamo.Exact
	title    string
	idx      int
	playing  bool
	interval time.Duration
	width    int
}

func NewReplay(tr *dynamo.Trace, exact dynamo.Exact, title string) ReplayModel {
	return ReplayModel{
		tr:       tr,
		exact:    exact,
		title:    title,
		interval: time.Second / 10,
		width:    60,
	}
}

func (m ReplayModel) Init() tea.Cmd { return nil }

func (m ReplayModel) tick() tea.Cmd {
	return tea.Tick(m.interval, func(t time.Time) tea.Msg { return TickMsg(t) })
}

func (m ReplayModel) last() int { return max(len(m.tr.Samples)-1, 0) }

func (m ReplayModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		case " ":
			m.playing = !m.playing
			if m.playing {
				if m.idx == m.last() {
					m.idx = 0
				}
				return m, m.tick()
			}
		case "left", "h":
			m.idx = max(m.idx-1, 0)
		case "right", "l":
			m.idx = min(m.idx+1, m.last())
		case "home", "g":
			m.idx = 0
		case "end", "G":
			m.idx = m.last()
		}
	case TickMsg:
		if !m.playing {
			return m, nil
		}
		m.idx = min(m.idx+1, m.last())
		if m.idx == m.last() {
			m.playing = false
			return m, nil
		}
		return m, m.tick()
	case tea.WindowSizeMsg:
		m.width = max(msg.Width-20, 10)
	}
	return m, nil
}

func (m ReplayModel) Index() int    { return m.idx }
func (m ReplayModel) Playing() bool { return m.playing }

func (m ReplayModel) View() string {
	if len(m.tr.Samples) == 0 {
		return "empty trace\n"
	}
	smp := m.tr.Samples[m.idx]

	var b strings.Builder
	status := StatusPaused.Render("PAUSED")
	if m.playing {
		status = StatusRunning.Render("PLAYING")
	}
	fmt.Fprintf(&b, "\n  %s  %s\n\n", HeaderStyle.Render(m.title), status)

	row := func(name, val string) {
		fmt.Fprintf(&b, "  %s %s\n", MetricLabel.Render(fmt.Sprintf("%-8s", name)), MetricValue.Render(val))
	}
	row("sample", fmt.Sprintf("%d/%d", m.idx, m.last()))
	row("x", fmt.Sprintf("%.6g", smp.X))
	row("h", fmt.Sprintf("%.6g", smp.H))
	for i, v := range smp.State {
		row(fmt.Sprintf("u%d", i), fmt.Sprintf("%.10g", v))
	}
	if ref, ok := m.exact.Eval(smp.X); ok {
		errAbs, _ := m.exact.AbsError(smp.X, smp.State)
		row("exact", fmt.Sprintf("%.10g", ref))
		row("error", fmt.Sprintf("%.3e", errAbs))
	}
	if smp.ErrEstimate > 0 {
		row("estimate", fmt.Sprintf("%.3e", smp.ErrEstimate))
	}
	if smp.FloorHit {
		fmt.Fprintf(&b, "  %s\n", FloorStyle.Render("accepted at minimum step"))
	}

	first, final := m.tr.Samples[0].X, m.tr.Samples[m.last()].X
	frac := 1.0
	if final > first {
		frac = (smp.X - first) / (final - first)
	}
	fmt.Fprintf(&b, "\n  %s\n", ProgressBar(frac, m.width))
	if m.idx > 0 {
		fmt.Fprintf(&b, "  %s\n", Subtle.Render(Sparkline(m.tr.Steps()[:m.idx], m.width)))
	}

	fmt.Fprintf(&b, "\n  %s\n", KeyHint.Render("space play/pause  ←/→ step  g/G first/last  q quit"))
	return b.String()
}

// Replay runs the viewer until the user quits.
func Replay(tr *dynamo.Trace, exact dynamo.Exact, title string) error {
	_, err := tea.NewProgram(NewReplay(tr, exact, title), tea.WithAltScreen()).Run()
	return err
}
