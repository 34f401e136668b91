package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/medtriage/internal/corpus"
	"github.com/fyrsmithlabs/medtriage/internal/pipeline"
	"github.com/fyrsmithlabs/medtriage/internal/risk"
	"github.com/fyrsmithlabs/medtriage/internal/scheduling"
	"github.com/fyrsmithlabs/medtriage/internal/stats"
	"github.com/fyrsmithlabs/medtriage/internal/vocabulary"
)

const testCSV = `id,conversation
p1,"Male patient, fever and cough. Suspected flu."
p2,"Female patient reports dyspnea and fatigue, history of asthma."
p3,"Routine follow-up, no complaints."
`

// isolate points the default config location at an empty temp home.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	configPath, logLevel, jsonOutput = "", "error", false
}

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&bytes.Buffer{})
	rootCmd.SetIn(strings.NewReader(stdin))
	rootCmd.SetArgs(args)
	t.Cleanup(func() { rootCmd.SetArgs(nil) })
	err := rootCmd.Execute()
	return out.String(), err
}

func TestReadInput(t *testing.T) {
	cmd := &cobra.Command{}
	cmd.SetIn(strings.NewReader("fever from stdin"))

	text, err := readInput(cmd, []string{"-"})
	require.NoError(t, err)
	assert.Equal(t, "fever from stdin", text)

	path := filepath.Join(t.TempDir(), "visit.txt")
	require.NoError(t, os.WriteFile(path, []byte("cough from file"), 0600))
	text, err = readInput(cmd, []string{path})
	require.NoError(t, err)
	assert.Equal(t, "cough from file", text)

	cmd.SetIn(strings.NewReader("  \n"))
	_, err = readInput(cmd, nil)
	assert.ErrorContains(t, err, "no conversation text")

	_, err = readInput(cmd, []string{filepath.Join(t.TempDir(), "missing.txt")})
	assert.Error(t, err)
}

func TestRenderAnalysis(t *testing.T) {
	out := renderAnalysis(pipeline.Analysis{
		ConversationID: "p2",
		Extraction: vocabulary.Result{
			Symptoms: []string{"dyspnea", "fatigue"},
			Diseases: []string{},
			Gender:   vocabulary.GenderFemale,
		},
		Tier:     risk.TierHigh,
		Strategy: risk.StrategyLexical,
		FellBack: true,
		Length:   61,
	})

	assert.Contains(t, out, "p2")
	assert.Contains(t, out, "High")
	assert.Contains(t, out, "lexical fallback")
	assert.Contains(t, out, "dyspnea, fatigue")
	assert.Contains(t, out, "none")
	assert.Contains(t, out, "Female")
	assert.Contains(t, out, "61")
}

func TestRenderEvent(t *testing.T) {
	start := time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)
	out := renderEvent(&scheduling.Event{
		Summary:         "Follow-up Meeting for High-Risk Patient",
		Start:           start,
		End:             start.Add(30 * time.Minute),
		CalendarEventID: "abc123",
		Attempts:        2,
	})
	assert.Contains(t, out, "Follow-up Meeting for High-Risk Patient")
	assert.Contains(t, out, "Wed Mar 4 2026 09:00 UTC")
	assert.Contains(t, out, "abc123")
	assert.Contains(t, out, "Attempts")
}

func TestRenderSummary(t *testing.T) {
	m := vocabulary.NewDefaultMatcher()
	lex := risk.NewDefaultLexical()
	var recs []stats.Record
	for _, text := range []string{"fever and cough", "fever, dyspnea", "no complaints"} {
		recs = append(recs, stats.NewRecord(text, m.Extract(text), lex.Tier(text)))
	}
	st := stats.Aggregate(recs)

	out := renderSummary(st, 1, 2)
	assert.Contains(t, out, "Conversations")
	assert.Contains(t, out, "Top symptoms (1)")
	assert.Contains(t, out, "fever")
	assert.NotContains(t, out, "cough", "only the top symptom is listed")
	assert.Contains(t, out, "Conversation length")
	assert.Contains(t, out, "33.3%")
}

func TestBar(t *testing.T) {
	assert.Empty(t, bar(3, 0))
	assert.Equal(t, barWidth, strings.Count(bar(10, 10), "█"))
	assert.Contains(t, bar(1, 1000), "█", "non-zero counts are always visible")
}

func TestStatsCommand_JSON(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "convdata.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0600))

	out, err := execute(t, "", "stats", "--json", path)
	require.NoError(t, err)

	var summary stats.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &summary), out)
	assert.Equal(t, 3, summary.Total)
	assert.Equal(t, 1, summary.Risk[risk.TierHigh])
	assert.Equal(t, 1, summary.Risk[risk.TierModerate])
	assert.Equal(t, 1, summary.Risk[risk.TierLow])
	assert.Equal(t, 1, summary.Genders[vocabulary.GenderMale])
}

func TestStatsCommand_MissingFile(t *testing.T) {
	isolate(t)
	_, err := execute(t, "", "stats", filepath.Join(t.TempDir(), "nope.csv"))
	assert.Error(t, err)
}

func TestAnalyzeCommand(t *testing.T) {
	isolate(t)

	out, err := execute(t, "Patient has difficulty breathing and pneumonia", "analyze", "--json", "--id", "n7", "-")
	require.NoError(t, err)

	var a pipeline.Analysis
	require.NoError(t, json.Unmarshal([]byte(out), &a), out)
	assert.Equal(t, "n7", a.ConversationID)
	assert.Equal(t, risk.TierHigh, a.Tier)
	assert.Equal(t, []string{"pneumonia"}, a.Extraction.Diseases)
}

func TestLoadCorpus(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "convdata.csv")
	require.NoError(t, os.WriteFile(path, []byte(testCSV), 0600))

	a, err := newApp(t.Context(), appOptions{})
	require.NoError(t, err)
	defer a.Close()

	assert.Nil(t, a.scheduler, "scheduling is off by default")
	require.NoError(t, loadCorpus(t.Context(), a.engine, path, corpus.ReadOptions{MaxRows: 2}, a.logger))
	assert.Equal(t, 2, a.engine.Stats().Total())
}
