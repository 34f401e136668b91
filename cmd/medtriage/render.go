package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/fyrsmithlabs/medtriage/internal/pipeline"
	"github.com/fyrsmithlabs/medtriage/internal/risk"
	"github.com/fyrsmithlabs/medtriage/internal/scheduling"
	"github.com/fyrsmithlabs/medtriage/internal/stats"
	"github.com/fyrsmithlabs/medtriage/internal/vocabulary"
)

const barWidth = 30

var (
	titleStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51")).
			Bold(true)

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("45")).
			Width(14)

	valueStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("231")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("245"))

	barStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("51"))

	tierStyles = map[risk.Tier]lipgloss.Style{
		risk.TierHigh:     lipgloss.NewStyle().Foreground(lipgloss.Color("196")).Bold(true),
		risk.TierModerate: lipgloss.NewStyle().Foreground(lipgloss.Color("226")).Bold(true),
		risk.TierLow:      lipgloss.NewStyle().Foreground(lipgloss.Color("46")).Bold(true),
	}
)

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func row(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(label) + value + "\n")
}

func renderTier(t risk.Tier) string {
	if s, ok := tierStyles[t]; ok {
		return s.Render(t.String())
	}
	return dimStyle.Render(t.String())
}

func joinOrNone(terms []string) string {
	if len(terms) == 0 {
		return dimStyle.Render("none")
	}
	return valueStyle.Render(strings.Join(terms, ", "))
}

// renderAnalysis formats one conversation's analysis.
func renderAnalysis(a pipeline.Analysis) string {
	var b strings.Builder
	if a.ConversationID != "" {
		row(&b, "Conversation", valueStyle.Render(a.ConversationID))
	}

	tier := renderTier(a.Tier) + " " + dimStyle.Render("("+string(a.Strategy)+")")
	if a.FellBack {
		tier += " " + dimStyle.Render("sentiment unavailable, lexical fallback")
	}
	row(&b, "Risk", tier)
	row(&b, "Gender", valueStyle.Render(string(a.Extraction.Gender)))
	row(&b, "Symptoms", joinOrNone(a.Extraction.Symptoms))
	row(&b, "Diseases", joinOrNone(a.Extraction.Diseases))
	row(&b, "Length", valueStyle.Render(fmt.Sprintf("%d", a.Length))+dimStyle.Render(" characters"))
	return b.String()
}

// renderEvent formats a booked follow-up.
func renderEvent(ev *scheduling.Event) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("Follow-up scheduled") + "\n")
	row(&b, "Summary", valueStyle.Render(ev.Summary))
	row(&b, "Start", valueStyle.Render(ev.Start.Format("Mon Jan 2 2006 15:04 MST")))
	row(&b, "End", valueStyle.Render(ev.End.Format("15:04 MST")))
	row(&b, "Calendar ID", dimStyle.Render(ev.CalendarEventID))
	if ev.HTMLLink != "" {
		row(&b, "Link", ev.HTMLLink)
	}
	if ev.Attempts > 1 {
		row(&b, "Attempts", valueStyle.Render(fmt.Sprintf("%d", ev.Attempts)))
	}
	return b.String()
}

func bar(count, peak int) string {
	if peak <= 0 {
		return ""
	}
	n := count * barWidth / peak
	if n == 0 && count > 0 {
		n = 1
	}
	return barStyle.Render(strings.Repeat("█", n)) + strings.Repeat(" ", barWidth-n)
}

func percent(part, total int) string {
	if total == 0 {
		return "0.0%"
	}
	return fmt.Sprintf("%.1f%%", float64(part)*100/float64(total))
}

func renderCounts(b *strings.Builder, counts []stats.TermCount, total int) {
	if len(counts) == 0 {
		b.WriteString(dimStyle.Render("  none") + "\n")
		return
	}
	peak := counts[0].Count
	for _, tc := range counts {
		fmt.Fprintf(b, "  %-24s %s %5d %s\n", tc.Term, bar(tc.Count, peak), tc.Count, dimStyle.Render(percent(tc.Count, total)))
	}
}

// renderSummary formats corpus statistics: the highlight numbers, the top
// terms, the tier and gender distributions and the length histogram.
func renderSummary(st *stats.Stats, top, buckets int) string {
	var b strings.Builder
	total := st.Total()

	b.WriteString(titleStyle.Render("Corpus") + "\n")
	row(&b, "Conversations", valueStyle.Render(fmt.Sprintf("%d", total)))
	row(&b, "Symptoms", valueStyle.Render(fmt.Sprintf("%d distinct", st.UniqueSymptoms())))
	row(&b, "Diseases", valueStyle.Render(fmt.Sprintf("%d distinct", st.UniqueDiseases())))

	b.WriteString("\n" + titleStyle.Render("Risk tiers") + "\n")
	tiers := st.RiskCounts()
	for i := len(risk.Tiers) - 1; i >= 0; i-- {
		t := risk.Tiers[i]
		fmt.Fprintf(&b, "  %-24s %s %5d %s\n", renderTier(t), bar(tiers[t], total), tiers[t], dimStyle.Render(percent(tiers[t], total)))
	}

	b.WriteString("\n" + titleStyle.Render("Gender") + "\n")
	genders := st.GenderCounts()
	for _, g := range []vocabulary.Gender{vocabulary.GenderMale, vocabulary.GenderFemale, vocabulary.GenderUnknown} {
		fmt.Fprintf(&b, "  %-24s %s %5d %s\n", string(g), bar(genders[g], total), genders[g], dimStyle.Render(percent(genders[g], total)))
	}

	b.WriteString("\n" + titleStyle.Render(fmt.Sprintf("Top symptoms (%d)", top)) + "\n")
	renderCounts(&b, st.TopSymptoms(top), total)
	b.WriteString("\n" + titleStyle.Render(fmt.Sprintf("Top diseases (%d)", top)) + "\n")
	renderCounts(&b, st.TopDiseases(top), total)

	if hist := st.LengthBuckets(buckets); len(hist) > 0 {
		b.WriteString("\n" + titleStyle.Render("Conversation length") + "\n")
		peak := 0
		for _, h := range hist {
			if h.Count > peak {
				peak = h.Count
			}
		}
		for _, h := range hist {
			label := fmt.Sprintf("%.0f-%.0f", h.Lower, h.Upper)
			fmt.Fprintf(&b, "  %-24s %s %5d\n", label, bar(h.Count, peak), h.Count)
		}
	}
	return b.String()
}
