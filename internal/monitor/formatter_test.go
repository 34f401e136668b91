package monitor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFormatCount(t *testing.T) {
	tests := []struct {
		n        int
		expected string
	}{
		{0, "0"},
		{999, "999"},
		{1000, "1,000"},
		{12345, "12,345"},
		{1234567, "1,234,567"},
		{-4200, "-4,200"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatCount(tt.n))
	}
}

func TestShare(t *testing.T) {
	assert.Equal(t, 0.0, Share(3, 0))
	assert.Equal(t, 0.25, Share(1, 4))
	assert.Equal(t, 1.0, Share(5, 4))
}

func TestFormatPercentage(t *testing.T) {
	tests := []struct {
		name     string
		ratio    float64
		expected string
	}{
		{"zero", 0, "0.0%"},
		{"quarter", 0.25, "25.0%"},
		{"full", 1, "100.0%"},
		{"small", 0.0012, "0.1%"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatPercentage(tt.ratio))
		})
	}
}

func TestFormatDuration(t *testing.T) {
	assert.Equal(t, "0m", FormatDuration(0))
	assert.Equal(t, "59m", FormatDuration(59*60))
	assert.Equal(t, "2h 5m", FormatDuration(2*3600+5*60))
}
