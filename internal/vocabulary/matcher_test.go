package vocabulary

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatcher_Extract_Deterministic(t *testing.T) {
	m := NewDefaultMatcher()
	text := "The patient has a COUGH and signs of Covid-19."

	first := m.Extract(text)
	for i := 0; i < 10; i++ {
		assert.Equal(t, first, m.Extract(text))
	}

	assert.Contains(t, first.Symptoms, "cough")
	assert.Contains(t, first.Diseases, "COVID-19")
	assert.True(t, first.HasSymptom("cough"))
	assert.True(t, first.HasDisease("COVID-19"))
}

func TestMatcher_Extract(t *testing.T) {
	m := NewDefaultMatcher()

	tests := []struct {
		name         string
		text         string
		wantSymptoms []string
		wantDiseases []string
		wantGender   Gender
	}{
		{
			name:         "empty text",
			text:         "",
			wantSymptoms: []string{},
			wantDiseases: []string{},
			wantGender:   GenderUnknown,
		},
		{
			name:         "no gender mentioned",
			text:         "no gender mentioned",
			wantSymptoms: []string{},
			wantDiseases: []string{},
			wantGender:   GenderUnknown,
		},
		{
			name:         "repeated mentions count once",
			text:         "Fever since Monday. The fever got worse, fever again today.",
			wantSymptoms: []string{"fever"},
			wantDiseases: []string{},
			wantGender:   GenderUnknown,
		},
		{
			name:         "multi-word term across line break",
			text:         "She reports difficulty\n  breathing at night and chest pain.",
			wantSymptoms: []string{"difficulty breathing", "chest pain"},
			wantDiseases: []string{},
			wantGender:   GenderUnknown,
		},
		{
			name:         "declaration order is kept",
			text:         "joint pain, then a rash, then fever",
			wantSymptoms: []string{"fever", "rash", "joint pain"},
			wantDiseases: []string{},
			wantGender:   GenderUnknown,
		},
		{
			name:         "flu does not match influenza",
			text:         "history of influenza vaccination",
			wantSymptoms: []string{},
			wantDiseases: []string{},
			wantGender:   GenderUnknown,
		},
		{
			name:         "flu as its own word",
			text:         "He had the flu last week; fever persists.",
			wantSymptoms: []string{"fever"},
			wantDiseases: []string{"flu"},
			wantGender:   GenderUnknown,
		},
		{
			name:         "term shared by both lists",
			text:         "persistent diarrhea",
			wantSymptoms: []string{"diarrhea"},
			wantDiseases: []string{"diarrhea"},
			wantGender:   GenderUnknown,
		},
		{
			name:         "punctuation around terms",
			text:         "(COVID-19), ARDS. IBS!",
			wantSymptoms: []string{},
			wantDiseases: []string{"COVID-19", "ARDS", "IBS"},
			wantGender:   GenderUnknown,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.Extract(tt.text)
			assert.Equal(t, tt.wantSymptoms, got.Symptoms)
			assert.Equal(t, tt.wantDiseases, got.Diseases)
			assert.Equal(t, tt.wantGender, got.Gender)
		})
	}
}

func TestMatcher_Gender(t *testing.T) {
	m := NewDefaultMatcher()

	tests := []struct {
		text string
		want Gender
	}{
		{"The patient is a 45 year old male.", GenderMale},
		{"The patient is a 45 year old female.", GenderFemale},
		{"FEMALE patient with cough", GenderFemale},
		{"no gender mentioned", GenderUnknown},
		{"males and females", GenderUnknown},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, m.Gender(tt.text), tt.text)
	}
}

// Both markers present: the first marker in vocabulary order wins,
// regardless of where each appears in the text.
func TestMatcher_Gender_TieBreakByDeclarationOrder(t *testing.T) {
	def := NewDefaultMatcher()
	assert.Equal(t, GenderMale, def.Gender("patient is male and also female"))
	assert.Equal(t, GenderMale, def.Gender("patient is female and also male"))

	v := DefaultVocabulary()
	v.Genders = []GenderMarker{
		{Term: "female", Gender: GenderFemale},
		{Term: "male", Gender: GenderMale},
	}
	reversed, err := NewMatcher(v)
	require.NoError(t, err)
	assert.Equal(t, GenderFemale, reversed.Gender("patient is male and also female"))
}

func TestMatcher_Mentions(t *testing.T) {
	m := NewDefaultMatcher()

	got := m.Mentions("Fever, FEVER and fever. Also cough. Diarrhea for two days.")

	assert.Equal(t, map[string]int{"fever": 3, "cough": 1, "diarrhea": 1}, got)
}

func TestNewMatcher_Errors(t *testing.T) {
	_, err := NewMatcher(Vocabulary{})
	assert.ErrorIs(t, err, ErrEmptyVocabulary)

	_, err = NewMatcher(Vocabulary{Symptoms: []string{"fever", "  "}})
	assert.True(t, errors.Is(err, ErrEmptyTerm))

	_, err = NewMatcher(Vocabulary{
		Symptoms: []string{"fever"},
		Genders:  []GenderMarker{{Term: "male"}},
	})
	assert.Error(t, err)
}

func TestMatcher_VocabularyIsCopied(t *testing.T) {
	v := DefaultVocabulary()
	m, err := NewMatcher(v)
	require.NoError(t, err)

	v.Symptoms[0] = "mutated"
	got := m.Vocabulary()
	assert.Equal(t, "fever", got.Symptoms[0])

	got.Symptoms[0] = "mutated again"
	assert.Equal(t, "fever", m.Vocabulary().Symptoms[0])
	assert.True(t, m.Extract("fever").HasSymptom("fever"))
}

func TestDefaultVocabulary_Sizes(t *testing.T) {
	v := DefaultVocabulary()
	assert.Len(t, v.Symptoms, 18)
	assert.Len(t, v.Diseases, 20)
	require.Len(t, v.Genders, 2)
	assert.Equal(t, GenderMale, v.Genders[0].Gender)
}

func TestMatcher_ConcurrentUse(t *testing.T) {
	m := NewDefaultMatcher()
	want := m.Extract("female patient with fever and asthma")

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				assert.Equal(t, want, m.Extract("female patient with fever and asthma"))
			}
		}()
	}
	wg.Wait()
}

func TestParseGender(t *testing.T) {
	g, err := ParseGender(" female ")
	require.NoError(t, err)
	assert.Equal(t, GenderFemale, g)

	_, err = ParseGender("other")
	assert.Error(t, err)
}
