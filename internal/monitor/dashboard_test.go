package monitor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/medtriage/internal/risk"
	"github.com/fyrsmithlabs/medtriage/internal/stats"
	"github.com/fyrsmithlabs/medtriage/internal/vocabulary"
)

const testURL = "http://localhost:9090"

func sampleSummary() stats.Summary {
	return stats.Summary{
		Total:          20,
		UniqueSymptoms: 2,
		UniqueDiseases: 1,
		Symptoms:       []stats.TermCount{{Term: "fever", Count: 12}, {Term: "difficulty breathing", Count: 3}},
		Diseases:       []stats.TermCount{{Term: "pneumonia", Count: 4}},
		Genders: map[vocabulary.Gender]int{
			vocabulary.GenderMale:    8,
			vocabulary.GenderFemale:  9,
			vocabulary.GenderUnknown: 3,
		},
		Risk: map[risk.Tier]int{risk.TierHigh: 5, risk.TierModerate: 10, risk.TierLow: 5},
	}
}

func TestNewModel(t *testing.T) {
	model := NewModel(testURL, 5*time.Second)
	assert.Equal(t, testURL, model.serverURL)
	assert.Equal(t, 5*time.Second, model.interval)
	assert.False(t, model.quitting)
	assert.NotNil(t, model.Init())
}

func TestModel_Update_Keys(t *testing.T) {
	model := NewModel(testURL, 5*time.Second)

	updated, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'r'}})
	assert.False(t, updated.(Model).quitting)
	assert.NotNil(t, cmd)

	updated, cmd = model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{'q'}})
	assert.True(t, updated.(Model).quitting)
	assert.NotNil(t, cmd)
	assert.Empty(t, updated.View())
}

func TestModel_Update_TickMsg(t *testing.T) {
	model := NewModel(testURL, 5*time.Second)
	updated, cmd := model.Update(tickMsg(time.Now()))
	assert.False(t, updated.(Model).quitting)
	assert.NotNil(t, cmd)
}

func TestModel_Update_SnapshotMsg(t *testing.T) {
	model := NewModel(testURL, 5*time.Second)
	model.err = fmt.Errorf("stale")

	updated, cmd := model.Update(snapshotMsg{Status: "ok", Summary: sampleSummary()})
	m := updated.(Model)
	assert.Nil(t, cmd)
	assert.Nil(t, m.err)
	assert.False(t, m.lastUpdate.IsZero())
	assert.Equal(t, []float64{20}, m.snapshot.TotalHistory)
	assert.Equal(t, []float64{25}, m.snapshot.HighShareHistory)

	updated, _ = m.Update(snapshotMsg{Status: "ok", Summary: stats.Summary{Total: 0}})
	m = updated.(Model)
	assert.Equal(t, []float64{20, 0}, m.snapshot.TotalHistory)
	assert.Equal(t, []float64{25, 0}, m.snapshot.HighShareHistory)
}

func TestAppendToHistory_Bounded(t *testing.T) {
	var h []float64
	for i := 0; i < historySize+5; i++ {
		h = appendToHistory(h, float64(i))
	}
	assert.Len(t, h, historySize)
	assert.Equal(t, 5.0, h[0])
}

func TestModel_Update_ErrMsg(t *testing.T) {
	model := NewModel(testURL, 5*time.Second)
	updated, cmd := model.Update(errMsg(fmt.Errorf("connection refused")))
	m := updated.(Model)
	require.Error(t, m.err)
	assert.Contains(t, m.err.Error(), "connection refused")
	assert.Nil(t, cmd)
}

func TestModel_View_WithSnapshot(t *testing.T) {
	model := NewModel(testURL, 5*time.Second)
	model.snapshot.Status = "ok"
	model.snapshot.Summary = sampleSummary()
	model.lastUpdate = time.Date(2024, 1, 1, 12, 34, 56, 0, time.UTC)

	view := model.View()
	assert.Contains(t, view, "medtriage Monitor")
	assert.Contains(t, view, "HEALTHY")
	assert.Contains(t, view, "12:34:56")
	assert.Contains(t, view, "Risk Tiers")
	assert.Contains(t, view, "25.0% (5)")
	assert.Contains(t, view, "50.0% (10)")
	assert.Contains(t, view, "fever")
	assert.Contains(t, view, "pneumonia")
	assert.Contains(t, view, "Female: ")
	assert.Contains(t, view, "[q]")
	assert.Contains(t, view, "[r]")
}

func TestModel_View_WithError(t *testing.T) {
	model := NewModel(testURL, 5*time.Second)
	model.err = fmt.Errorf("connection refused")

	view := model.View()
	assert.Contains(t, view, "Cannot reach medtriage server")
	assert.Contains(t, view, "connection refused")
	assert.Contains(t, view, testURL)
}

func TestModel_View_NoData(t *testing.T) {
	view := NewModel(testURL, 5*time.Second).View()
	assert.Contains(t, view, "medtriage Monitor")
	assert.Contains(t, view, "no data")
	assert.Contains(t, view, "none")
}

func TestFetchSnapshot(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_, _ = w.Write([]byte(`{"status":"degraded","conversations":1}`))
		case "/api/v1/stats":
			_, _ = w.Write([]byte(`{"total_conversations":1,"risk":{"High":1}}`))
		default:
			http.NotFound(w, r)
		}
	}))
	defer server.Close()

	msg := fetchSnapshot(server.URL)()
	snap, ok := msg.(snapshotMsg)
	require.True(t, ok, "got %T", msg)
	assert.Equal(t, "degraded", snap.Status)
	assert.Equal(t, 1.0, Snapshot(snap).HighShare())

	_, err := NewStatsClient(server.URL).Summary(context.Background())
	require.NoError(t, err)
}

func TestGetRiskBadge(t *testing.T) {
	assert.Contains(t, getRiskBadge(0.05), "✓")
	assert.Contains(t, getRiskBadge(0.2), "⚠")
	assert.Contains(t, getRiskBadge(0.5), "✗")
}
