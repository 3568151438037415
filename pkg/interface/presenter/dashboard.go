package presenter

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/aincatoni/pcfactory-monitor/pkg/probe"
)

const recentResultsShown = 10

// Dashboard is a TUI view of a run in progress. It implements both
// tea.Model and engine.Observer; observer callbacks arrive on worker
// goroutines, so all shared state sits behind the mutex.
type Dashboard struct {
	mu sync.RWMutex

	name      string
	done      int
	total     int
	ok        int
	errors    int
	available int
	recent    []probe.Result

	bar       progress.Model
	width     int
	height    int
	startTime time.Time
}

type tickMsg time.Time

// NewDashboard creates a dashboard for a run of total targets.
func NewDashboard(name string, total int) *Dashboard {
	return &Dashboard{
		name:      name,
		total:     total,
		bar:       progress.New(progress.WithDefaultGradient()),
		startTime: time.Now(),
	}
}

// OnProbeDone implements engine.Observer.
func (d *Dashboard) OnProbeDone(done, total int, res probe.Result) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.done = done
	d.total = total
	if res.Succeeded {
		d.ok++
	} else {
		d.errors++
	}
	if res.Availability == probe.Available {
		d.available++
	}
	d.recent = append(d.recent, res)
	if len(d.recent) > recentResultsShown {
		d.recent = d.recent[len(d.recent)-recentResultsShown:]
	}
}

// Init implements tea.Model.
func (d *Dashboard) Init() tea.Cmd {
	return tea.Batch(tickCmd(), tea.EnterAltScreen)
}

// Update implements tea.Model.
func (d *Dashboard) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "Q", "ctrl+c":
			return d, tea.Quit
		}

	case tea.WindowSizeMsg:
		d.width = msg.Width
		d.height = msg.Height
		d.bar.Width = msg.Width - 8
		return d, nil

	case tickMsg:
		return d, tickCmd()
	}

	return d, nil
}

// View implements tea.Model.
func (d *Dashboard) View() string {
	if d.width == 0 {
		return "Initializing..."
	}

	d.mu.RLock()
	defer d.mu.RUnlock()

	var sections []string
	sections = append(sections, d.renderHeader())

	ratio := 0.0
	if d.total > 0 {
		ratio = float64(d.done) / float64(d.total)
	}
	sections = append(sections, d.bar.ViewAs(ratio))

	sections = append(sections, d.renderCounters())
	sections = append(sections, d.renderRecent())
	sections = append(sections, footerStyle.Render("press q to abort the run"))

	return lipgloss.JoinVertical(lipgloss.Left, sections...)
}

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#10B981")).
			Padding(0, 1)

	counterStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			Padding(0, 1)

	errStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#EF4444"))

	okStyle = lipgloss.NewStyle().
		Foreground(lipgloss.Color("#10B981"))

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#999999"))
)

func (d *Dashboard) renderHeader() string {
	elapsed := time.Since(d.startTime).Round(time.Second)
	return titleStyle.Render(fmt.Sprintf("%s | %d/%d targets | %s", d.name, d.done, d.total, elapsed))
}

func (d *Dashboard) renderCounters() string {
	cells := []string{
		counterStyle.Render(fmt.Sprintf("ok %d", d.ok)),
		counterStyle.Render(fmt.Sprintf("errors %d", d.errors)),
		counterStyle.Render(fmt.Sprintf("available %d", d.available)),
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, cells...)
}

func (d *Dashboard) renderRecent() string {
	lines := make([]string, 0, len(d.recent))
	for _, res := range d.recent {
		if res.Succeeded {
			lines = append(lines, okStyle.Render(fmt.Sprintf("  ✓ %s (%dms)", res.TargetName, res.LatencyMs)))
		} else {
			lines = append(lines, errStyle.Render(fmt.Sprintf("  ✗ %s: %s", res.TargetName, res.Error)))
		}
	}
	if len(lines) == 0 {
		return footerStyle.Render("  waiting for first results...")
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func tickCmd() tea.Cmd {
	return tea.Tick(500*time.Millisecond, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}
