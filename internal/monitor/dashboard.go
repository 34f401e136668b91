// Package monitor implements a terminal dashboard over a running medtriage
// server's corpus statistics.
package monitor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/NimbleMarkets/ntcharts/sparkline"
	"github.com/charmbracelet/bubbles/progress"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/medtriage/internal/risk"
	"github.com/fyrsmithlabs/medtriage/internal/stats"
	"github.com/fyrsmithlabs/medtriage/internal/vocabulary"
)

const (
	sparklineWidth  = 30
	sparklineHeight = 3
	historySize     = 30
	topTerms        = 5
)

// Model represents the BubbleTea dashboard model
type Model struct {
	serverURL  string
	interval   time.Duration
	started    time.Time
	lastUpdate time.Time
	snapshot   Snapshot
	err        error
	quitting   bool

	tierProgress progress.Model
}

// Snapshot is one poll of the server plus the rolling history.
type Snapshot struct {
	Status  string
	Summary stats.Summary

	TotalHistory     []float64
	HighShareHistory []float64
}

// HighShare returns the fraction of conversations classified High.
func (s Snapshot) HighShare() float64 {
	return Share(s.Summary.Risk[risk.TierHigh], s.Summary.Total)
}

var (
	headerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("0")).
			Background(lipgloss.Color("51")).
			Bold(true).
			Padding(0, 1)

	sectionStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true).
			MarginTop(1)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45"))

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	healthyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("46")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("226")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("196")).
			Bold(true)

	containerStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("238")).
			Padding(1, 2)

	footerStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245")).
			MarginTop(1)

	footerKeyStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	sparklineStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))
)

// NewModel creates a new dashboard model
func NewModel(serverURL string, interval time.Duration) Model {
	return Model{
		serverURL: serverURL,
		interval:  interval,
		started:   time.Now(),
		tierProgress: progress.New(
			progress.WithGradient("#00ff00", "#ff0000"),
			progress.WithWidth(40),
		),
		snapshot: Snapshot{
			TotalHistory:     make([]float64, 0, historySize),
			HighShareHistory: make([]float64, 0, historySize),
		},
	}
}

// getStatusBadge maps the server status to a badge.
func getStatusBadge(status string) string {
	switch status {
	case "ok":
		return healthyStyle.Render("✓ HEALTHY")
	case "degraded":
		return warningStyle.Render("⚠ DEGRADED")
	}
	return errorStyle.Render("✗ " + strings.ToUpper(status))
}

// getRiskBadge flags a corpus whose High share is unusually large.
func getRiskBadge(highShare float64) string {
	if highShare < 0.10 {
		return healthyStyle.Render("[✓]")
	} else if highShare < 0.25 {
		return warningStyle.Render("[⚠]")
	}
	return errorStyle.Render("[✗]")
}

// appendToHistory appends a value to history, maintaining max size
func appendToHistory(history []float64, value float64) []float64 {
	history = append(history, value)
	if len(history) > historySize {
		history = history[1:]
	}
	return history
}

// createSparkline creates a sparkline chart from historical data
func createSparkline(data []float64) string {
	if len(data) == 0 {
		return dimStyle.Render(fmt.Sprintf("%*s", sparklineWidth, "no data"))
	}

	spark := sparkline.New(sparklineWidth, sparklineHeight)
	for _, v := range data {
		spark.Push(v)
	}
	return sparklineStyle.Render(spark.View())
}

// Message types
type tickMsg time.Time
type snapshotMsg Snapshot
type errMsg error

// Init initializes the model
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		tick(m.interval),
		fetchSnapshot(m.serverURL),
	)
}

// tick creates a tick command for auto-refresh
func tick(interval time.Duration) tea.Cmd {
	return tea.Tick(interval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// fetchSnapshot polls health and the corpus summary.
func fetchSnapshot(serverURL string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		client := NewStatsClient(serverURL)

		health, err := client.Health(ctx)
		if err != nil {
			return errMsg(err)
		}
		summary, err := client.Summary(ctx)
		if err != nil {
			return errMsg(err)
		}
		return snapshotMsg{Status: health.Status, Summary: summary}
	}
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "r":
			return m, fetchSnapshot(m.serverURL)
		}

	case tickMsg:
		return m, tea.Batch(
			tick(m.interval),
			fetchSnapshot(m.serverURL),
		)

	case snapshotMsg:
		next := Snapshot(msg)
		next.TotalHistory = appendToHistory(m.snapshot.TotalHistory, float64(next.Summary.Total))
		next.HighShareHistory = appendToHistory(m.snapshot.HighShareHistory, next.HighShare()*100)

		m.snapshot = next
		m.lastUpdate = time.Now()
		m.err = nil
		return m, nil

	case errMsg:
		m.err = error(msg)
		return m, nil
	}

	return m, nil
}

// View renders the dashboard
func (m Model) View() string {
	if m.quitting {
		return ""
	}
	if m.err != nil {
		return m.renderError()
	}
	return m.renderDashboard()
}

func (m Model) renderError() string {
	header := headerStyle.Render("medtriage Monitor")

	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(errorStyle.Render("⚠ Cannot reach medtriage server") + "\n\n")
	b.WriteString(dimStyle.Render("URL: ") + valueStyle.Render(m.serverURL) + "\n")
	b.WriteString(dimStyle.Render("Error: ") + errorStyle.Render(m.err.Error()) + "\n\n")
	b.WriteString(dimStyle.Render("Start it with: medtriage serve --corpus convdata.csv") + "\n\n")
	b.WriteString(footerStyle.Render("[q] quit  [r] retry") + "\n")

	return containerStyle.Render(header + "\n" + b.String())
}

func (m Model) renderDashboard() string {
	var b strings.Builder
	sum := m.snapshot.Summary

	lastUpdateStr := "Never"
	if !m.lastUpdate.IsZero() {
		lastUpdateStr = m.lastUpdate.Format("3:04:05 PM")
	}
	uptime := FormatDuration(int64(time.Since(m.started).Seconds()))

	b.WriteString(headerStyle.Render(" medtriage Monitor ") + "\n")
	fmt.Fprintf(&b, "%s   %s   %s   %s\n",
		getStatusBadge(m.snapshot.Status),
		dimStyle.Render("Watching:"),
		valueStyle.Render(uptime),
		dimStyle.Render(lastUpdateStr))

	b.WriteString("\n" + sectionStyle.Render("┃ Corpus") + "\n")
	b.WriteString(labelStyle.Render("  Conversations: ") +
		valueStyle.Render(FormatCount(sum.Total)) +
		"   " + createSparkline(m.snapshot.TotalHistory) + "\n")
	b.WriteString(labelStyle.Render("  Vocabulary seen: ") +
		valueStyle.Render(fmt.Sprintf("%d symptoms, %d diseases", sum.UniqueSymptoms, sum.UniqueDiseases)) + "\n")

	highShare := m.snapshot.HighShare()
	b.WriteString("\n" + sectionStyle.Render("┃ Risk Tiers") + " " + getRiskBadge(highShare) + "\n")
	for i := len(risk.Tiers) - 1; i >= 0; i-- {
		tier := risk.Tiers[i]
		share := Share(sum.Risk[tier], sum.Total)
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-9s", tier.String())) +
			m.tierProgress.ViewAs(share) +
			" " + dimStyle.Render(fmt.Sprintf("%s (%d)", FormatPercentage(share), sum.Risk[tier])) + "\n")
	}
	b.WriteString(labelStyle.Render("  High share: ") + createSparkline(m.snapshot.HighShareHistory) + "\n")

	b.WriteString("\n" + sectionStyle.Render("┃ Top Symptoms") + "\n")
	b.WriteString(renderTerms(sum.Symptoms, sum.Total))
	b.WriteString("\n" + sectionStyle.Render("┃ Top Diseases") + "\n")
	b.WriteString(renderTerms(sum.Diseases, sum.Total))

	b.WriteString("\n" + sectionStyle.Render("┃ Gender") + "\n")
	b.WriteString("  ")
	for _, g := range []vocabulary.Gender{vocabulary.GenderMale, vocabulary.GenderFemale, vocabulary.GenderUnknown} {
		b.WriteString(labelStyle.Render(string(g)+": ") + valueStyle.Render(FormatCount(sum.Genders[g])) + "  ")
	}
	b.WriteString("\n")

	footer := footerKeyStyle.Render("[q]") + footerStyle.Render(" quit  ") +
		footerKeyStyle.Render("[r]") + footerStyle.Render(" refresh  ") +
		footerStyle.Render(fmt.Sprintf("Auto: %v", m.interval))
	b.WriteString("\n" + footer)

	return containerStyle.Render(b.String())
}

func renderTerms(terms []stats.TermCount, total int) string {
	if len(terms) == 0 {
		return dimStyle.Render("  none") + "\n"
	}
	var b strings.Builder
	for i, tc := range terms {
		if i == topTerms {
			break
		}
		b.WriteString(labelStyle.Render(fmt.Sprintf("  %-24s", tc.Term)) +
			valueStyle.Render(fmt.Sprintf("%5d", tc.Count)) +
			" " + dimStyle.Render(FormatPercentage(Share(tc.Count, total))) + "\n")
	}
	return b.String()
}
