package mapping

// Table is the correspondence table: hierarchy field paths to DICOM
// keywords.
type Table struct {
	// Version of the table schema.
	Version string `yaml:"version,omitempty"`

	// Entries are evaluated independently; each writes one keyword.
	Entries []Entry `yaml:"entries"`
}

// Entry maps hierarchy fields onto one DICOM keyword.
type Entry struct {
	// Tag is the DICOM keyword written (e.g. "PatientID").
	Tag string `yaml:"tag"`

	// Source lists field paths in priority order; the first one with a
	// value is used. Accepts a single string or a list.
	Source StringOrArray `yaml:"source"`

	// Transform names a registered transform applied to the raw value.
	// Empty means the value is converted as-is.
	Transform string `yaml:"transform,omitempty"`
}

// Tags returns the keywords written by the table in entry order.
func (t *Table) Tags() []string {
	out := make([]string, 0, len(t.Entries))
	for _, e := range t.Entries {
		out = append(out, e.Tag)
	}

	return out
}

// DefaultTable returns the built-in correspondence table.
func DefaultTable() *Table {
	return &Table{
		Version: "1",
		Entries: []Entry{
			{Tag: "PatientID", Source: StringOrArray{"subject.label", "subject.code"}},
			{Tag: "PatientSex", Source: StringOrArray{"subject.sex"}, Transform: TransformPatientSex},
			{Tag: "StudyID", Source: StringOrArray{"session.label"}},
			{Tag: "PatientAge", Source: StringOrArray{"session.age"}, Transform: TransformDICOMAge},
			{Tag: "PatientWeight", Source: StringOrArray{"session.weight"}},
			{Tag: "SeriesDescription", Source: StringOrArray{"acquisition.label"}},
		},
	}
}
