// Package vocabulary extracts symptoms, diseases and a gender marker from
// conversation text using fixed, ordered term lists.
//
// Every term is matched case-insensitively on word boundaries, so "male" does
// not match inside "female" and "flu" does not match inside "influenza".
// Membership has set semantics: a term found anywhere counts once.
//
// Gender resolution scans the markers in declaration order and the first
// marker present wins. With the default order (male, female) a conversation
// mentioning both resolves to Male.
package vocabulary

import (
	"fmt"
	"strings"
)

// Gender is the resolved demographic marker of a conversation.
type Gender string

const (
	GenderMale    Gender = "Male"
	GenderFemale  Gender = "Female"
	GenderUnknown Gender = "Unknown"
)

// ParseGender accepts a gender tag case-insensitively.
func ParseGender(s string) (Gender, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return GenderMale, nil
	case "female":
		return GenderFemale, nil
	case "unknown":
		return GenderUnknown, nil
	}
	return "", fmt.Errorf("unknown gender %q", s)
}

// GenderMarker maps a term found in text to a gender tag.
type GenderMarker struct {
	Term   string `json:"term"`
	Gender Gender `json:"gender"`
}

// Vocabulary is the ordered set of terms used for matching.
type Vocabulary struct {
	Symptoms []string       `json:"symptoms"`
	Diseases []string       `json:"diseases"`
	Genders  []GenderMarker `json:"genders"`
}

// DefaultSymptoms are the symptom terms of the conversation dataset.
var DefaultSymptoms = []string{
	"fever", "cough", "dyspnea", "difficulty breathing", "fatigue", "headache",
	"nausea", "vomiting", "diarrhea", "abdominal pain", "chest pain",
	"shortness of breath", "sore throat", "muscle aches", "loss of taste or smell",
	"rash", "swelling", "joint pain",
}

// DefaultDiseases are the disease terms of the conversation dataset.
var DefaultDiseases = []string{
	"COVID-19", "ARDS", "heart disease", "diabetes", "hypertension", "asthma",
	"malaria", "tuberculosis", "pneumonia", "flu", "kidney disease",
	"liver disease", "stroke", "depression", "anxiety", "cancer", "arthritis",
	"diarrhea", "gastritis", "IBS",
}

// DefaultGenderMarkers lists male before female; see the package doc.
var DefaultGenderMarkers = []GenderMarker{
	{Term: "male", Gender: GenderMale},
	{Term: "female", Gender: GenderFemale},
}

// DefaultVocabulary returns a copy of the built-in vocabulary.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Symptoms: append([]string(nil), DefaultSymptoms...),
		Diseases: append([]string(nil), DefaultDiseases...),
		Genders:  append([]GenderMarker(nil), DefaultGenderMarkers...),
	}
}

// Result is the extraction for a single conversation. Terms keep their
// vocabulary spelling and declaration order.
type Result struct {
	Symptoms []string `json:"symptoms"`
	Diseases []string `json:"diseases"`
	Gender   Gender   `json:"gender"`
}

// HasSymptom reports whether term was extracted as a symptom.
func (r Result) HasSymptom(term string) bool {
	return contains(r.Symptoms, term)
}

// HasDisease reports whether term was extracted as a disease.
func (r Result) HasDisease(term string) bool {
	return contains(r.Diseases, term)
}

func contains(terms []string, term string) bool {
	for _, t := range terms {
		if t == term {
			return true
		}
	}
	return false
}
