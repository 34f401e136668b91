package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTermPattern(t *testing.T) {
	tests := []struct {
		term string
		want string
	}{
		{"fever", `(?i)\bfever\b`},
		{"COVID-19", `(?i)\bCOVID-19\b`},
		{"difficulty breathing", `(?i)\bdifficulty\s+breathing\b`},
		{"c++", `(?i)\bc\+\+`},
		{".net", `(?i)\.net\b`},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, termPattern(tt.term), tt.term)
	}
}

func TestTermSet(t *testing.T) {
	ts, err := NewTermSet([]string{"fever", "Fever", "loss of taste or smell", "flu"})
	require.NoError(t, err)

	assert.Equal(t, 3, ts.Len(), "case-insensitive duplicate dropped")
	assert.Equal(t, []string{"fever", "loss of taste or smell", "flu"}, ts.Terms())

	text := "Loss of taste or smell and a FEVER. No influenza."
	assert.Equal(t, []string{"fever", "loss of taste or smell"}, ts.Find(text))
	assert.True(t, ts.Any(text))
	assert.False(t, ts.Any("influenza only"))

	first, ok := ts.First("flu then fever")
	require.True(t, ok)
	assert.Equal(t, "fever", first, "declaration order, not text order")

	assert.Equal(t, map[string]int{"fever": 2}, ts.Count("fever fever feverish"))
}

func TestTermSet_Empty(t *testing.T) {
	ts, err := NewTermSet(nil)
	require.NoError(t, err)

	assert.Empty(t, ts.Find("anything"))
	_, ok := ts.First("anything")
	assert.False(t, ok)
}

func TestMustTermSet_Panics(t *testing.T) {
	assert.Panics(t, func() { MustTermSet([]string{""}) })
}
