package vocabulary

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fyrsmithlabs/medtriage/internal/config"
)

func TestFromConfig_EmptyKeepsDefaults(t *testing.T) {
	v, err := FromConfig(config.VocabularyConfig{})
	require.NoError(t, err)
	assert.Equal(t, DefaultVocabulary(), v)
}

func TestFromConfig_Overrides(t *testing.T) {
	m, err := NewMatcherFromConfig(config.VocabularyConfig{
		Symptoms: []string{"chills"},
		Genders: []config.GenderMarkerConfig{
			{Term: "woman", Gender: "female"},
			{Term: "man", Gender: "MALE"},
		},
	})
	require.NoError(t, err)

	got := m.Extract("A man and a woman, both with chills and flu.")
	assert.Equal(t, []string{"chills"}, got.Symptoms)
	assert.Equal(t, []string{"flu"}, got.Diseases, "diseases keep the defaults")
	assert.Equal(t, GenderFemale, got.Gender, "first declared marker wins")
}

func TestFromConfig_InvalidGender(t *testing.T) {
	_, err := FromConfig(config.VocabularyConfig{
		Genders: []config.GenderMarkerConfig{{Term: "patient", Gender: "other"}},
	})
	assert.ErrorContains(t, err, "genders[0]")
}
