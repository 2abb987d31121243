package match

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLevenshtein(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"", "", 0},
		{"abc", "", 3},
		{"", "abc", 3},
		{"kitten", "sitting", 3},
		{"PatientID", "PatientID", 0},
		{"PatientID", "PatientIDs", 1},
		{"flaw", "lawn", 2},
	}

	for _, tt := range tests {
		t.Run(tt.a+"_"+tt.b, func(t *testing.T) {
			assert.Equal(t, tt.want, Levenshtein(tt.a, tt.b))
			assert.Equal(t, tt.want, Levenshtein(tt.b, tt.a))
		})
	}
}

func TestSimilarity(t *testing.T) {
	assert.InDelta(t, 1.0, Similarity("", ""), 1e-9)
	assert.InDelta(t, 0.0, Similarity("abc", "xyz"), 1e-9)
	assert.InDelta(t, 1.0, NameSimilarity("Patient_Id", "PatientID"), 1e-9)
}

func TestTokenizeIdent(t *testing.T) {
	tests := []struct {
		in   string
		want []string
	}{
		{"PatientID", []string{"patient", "id"}},
		{"series_description", []string{"series", "description"}},
		{"SOPInstanceUID", []string{"sop", "instance", "uid"}},
		{"subject.label", []string{"subject", "label"}},
		{"", nil},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, TokenizeIdent(tt.in))
		})
	}
}

func TestSuggest(t *testing.T) {
	known := []string{"PatientID", "PatientName", "PatientSex", "StudyID", "SeriesDescription"}

	assert.Equal(t, []string{"PatientID"}, Suggest("PatientId", known, 1))
	assert.Equal(t, []string{"SeriesDescription"}, Suggest("SeriesDescriptoin", known, 3))
	assert.Empty(t, Suggest("Manufacturer", known, 3))
}
