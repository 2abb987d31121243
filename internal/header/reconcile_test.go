package header

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func original() *Header {
	return New(
		Entry{Keyword: "PatientName", Value: Value{"DOE^JANE"}},
		Entry{Keyword: "PatientID", Value: Value{"OLD01"}},
		Entry{Keyword: "PatientWeight", Value: Value{"70"}},
		Entry{Keyword: "ImageType", Value: Value{"ORIGINAL", "PRIMARY"}},
	)
}

func TestReconcile_StructuredEditWinsOverMapping(t *testing.T) {
	res := Reconcile(original(),
		map[string]any{"PatientID": "NEW01"},
		map[string]Value{"PatientID": {"SUBJ01"}},
		Options{})

	v, ok := res.Final.Get("PatientID")
	require.True(t, ok)
	assert.Equal(t, Value{"NEW01"}, v)

	require.Len(t, res.Changes, 1)
	assert.Equal(t, Change{
		Tag:      "PatientID",
		Original: Value{"OLD01"},
		New:      Value{"NEW01"},
		Source:   SourceStructuredEdit,
	}, res.Changes[0])
	assert.Equal(t, "structured-edit", res.Changes[0].Source.String())
}

func TestReconcile_MappingDisabledLeavesOriginal(t *testing.T) {
	res := Reconcile(original(), nil, nil, Options{})

	v, _ := res.Final.Get("PatientID")
	assert.Equal(t, Value{"OLD01"}, v)
	assert.Empty(t, res.Changes)
	assert.False(t, res.Changed())
	assert.Equal(t, original().Entries(), res.Final.Entries())
}

func TestReconcile_MappedValueApplied(t *testing.T) {
	res := Reconcile(original(), nil, map[string]Value{"PatientID": {"SUBJ01"}}, Options{})

	require.Len(t, res.Changes, 1)
	assert.Equal(t, SourceHierarchyMapping, res.Changes[0].Source)
	assert.Equal(t, "hierarchy-mapping", res.Changes[0].Source.String())
	assert.Equal(t, Value{"SUBJ01"}, res.Changes[0].New)
}

func TestReconcile_IdenticalOverrideIsNoop(t *testing.T) {
	res := Reconcile(original(),
		map[string]any{"PatientID": "OLD01", "PatientWeight": 70.0, "ImageType": []any{"ORIGINAL", "PRIMARY"}},
		map[string]Value{"PatientName": {"DOE^JANE "}},
		Options{})

	assert.Empty(t, res.Changes)
	assert.False(t, res.Changed())
}

func TestReconcile_NumericTagsCompareAsNumbers(t *testing.T) {
	numeric := func(k string) bool { return k == "PatientWeight" }

	res := Reconcile(original(),
		map[string]any{"PatientWeight": "70.0"},
		nil,
		Options{IsNumeric: numeric})

	assert.Empty(t, res.Changes)

	res = Reconcile(original(), map[string]any{"PatientWeight": "70.0"}, nil, Options{})
	require.Len(t, res.Changes, 1)
	assert.Equal(t, Value{"70.0"}, res.Changes[0].New)
}

func TestReconcile_TextTagsCompareExactly(t *testing.T) {
	orig := New(
		Entry{Keyword: "PatientID", Value: Value{"007"}},
		Entry{Keyword: "AccessionNumber", Value: Value{"1e3"}},
		Entry{Keyword: "PatientName", Value: Value{"José"}},
	)
	numeric := func(k string) bool { return k == "PatientWeight" }

	res := Reconcile(orig,
		map[string]any{"PatientID": "7", "AccessionNumber": "1000", "PatientName": "Josè"},
		nil,
		Options{IsNumeric: numeric})

	require.Len(t, res.Changes, 3)
	assert.Equal(t, Change{Tag: "AccessionNumber", Original: Value{"1e3"}, New: Value{"1000"}, Source: SourceStructuredEdit}, res.Changes[0])
	assert.Equal(t, Change{Tag: "PatientID", Original: Value{"007"}, New: Value{"7"}, Source: SourceStructuredEdit}, res.Changes[1])
	assert.Equal(t, Change{Tag: "PatientName", Original: Value{"José"}, New: Value{"Josè"}, Source: SourceStructuredEdit}, res.Changes[2])
	assert.True(t, res.Changed())
}

func TestReconcile_IdeographicValueInserted(t *testing.T) {
	res := Reconcile(original(), map[string]any{"PatientBirthName": "山田太郎"}, nil, Options{})

	assert.Empty(t, res.Skipped)
	require.Len(t, res.Changes, 1)
	assert.True(t, res.Changes[0].Inserted)

	v, ok := res.Final.Get("PatientBirthName")
	require.True(t, ok)
	assert.Equal(t, Value{"山田太郎"}, v)
}

func TestReconcile_IdenticalEditStillBeatsMapping(t *testing.T) {
	res := Reconcile(original(),
		map[string]any{"PatientID": "OLD01"},
		map[string]Value{"PatientID": {"SUBJ01"}},
		Options{})

	v, _ := res.Final.Get("PatientID")
	assert.Equal(t, Value{"OLD01"}, v)
	assert.Empty(t, res.Changes)
}

func TestReconcile_InsertsMissingTag(t *testing.T) {
	res := Reconcile(original(),
		map[string]any{"StudyID": "S-7"},
		map[string]Value{"SeriesDescription": {"T1w"}},
		Options{})

	require.Len(t, res.Changes, 2)
	assert.Equal(t, "SeriesDescription", res.Changes[0].Tag)
	assert.True(t, res.Changes[0].Inserted)
	assert.Equal(t, "StudyID", res.Changes[1].Tag)
	assert.Equal(t,
		[]string{"PatientName", "PatientID", "PatientWeight", "ImageType", "SeriesDescription", "StudyID"},
		res.Final.Keywords())
}

func TestReconcile_SkipsUnusableOverrides(t *testing.T) {
	known := func(k string) bool { return k != "NotAKeyword" }

	res := Reconcile(original(),
		map[string]any{
			"PatientName":            "",
			"NotAKeyword":            "x",
			"ReferencedImageSequence": []any{map[string]any{"ReferencedSOPInstanceUID": "1.2"}},
		},
		map[string]Value{"PatientWeight": nil},
		Options{KnownTag: known})

	assert.Empty(t, res.Changes)
	require.Len(t, res.Skipped, 4)
	assert.Equal(t, SkippedEdit{Tag: "NotAKeyword", Source: SourceStructuredEdit, Reason: "unknown DICOM keyword"}, res.Skipped[0])
	assert.Equal(t, SkippedEdit{Tag: "PatientName", Source: SourceStructuredEdit, Reason: "empty value"}, res.Skipped[1])
	assert.Equal(t, SkippedEdit{Tag: "PatientWeight", Source: SourceHierarchyMapping, Reason: "empty value"}, res.Skipped[2])
	assert.Equal(t, "nested values are not supported", res.Skipped[3].Reason)
}

func TestReconcile_DoesNotMutateInputs(t *testing.T) {
	orig := original()
	edits := map[string]any{"PatientID": "NEW01"}

	_ = Reconcile(orig, edits, nil, Options{})

	v, _ := orig.Get("PatientID")
	assert.Equal(t, Value{"OLD01"}, v)
	assert.Equal(t, map[string]any{"PatientID": "NEW01"}, edits)
}

func TestReconcile_Properties(t *testing.T) {
	edits := map[string]any{"PatientID": "NEW01", "StudyID": "S1"}
	mapped := map[string]Value{"PatientID": {"SUBJ01"}, "PatientWeight": {"81"}, "SeriesDescription": {"T1"}}

	res := Reconcile(original(), edits, mapped, Options{})

	// Untouched tags keep their original value.
	for _, e := range original().Entries() {
		if _, ok := edits[e.Keyword]; ok {
			continue
		}

		if _, ok := mapped[e.Keyword]; ok {
			continue
		}

		got, _ := res.Final.Get(e.Keyword)
		assert.Equal(t, e.Value, got, e.Keyword)
	}

	// Structured edits always win.
	for k, raw := range edits {
		want, err := ValueOf(raw)
		require.NoError(t, err)

		got, _ := res.Final.Get(k)
		assert.True(t, want.Equal(got), k)
	}

	// Mapped values land where no edit exists.
	got, _ := res.Final.Get("PatientWeight")
	assert.Equal(t, Value{"81"}, got)
}
