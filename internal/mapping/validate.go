package mapping

import (
	"fmt"

	"session-export/internal/diagnostic"
	"session-export/internal/match"
)

const scopeTable = "correspondence_table"

// suggestionKeywords are the keywords offered when a table names an
// unknown one.
var suggestionKeywords = []string{
	"AccessionNumber", "BodyPartExamined", "InstitutionName", "OperatorsName",
	"PatientAge", "PatientBirthDate", "PatientComments", "PatientID",
	"PatientName", "PatientSex", "PatientSize", "PatientWeight",
	"ProtocolName", "ReferringPhysicianName", "SeriesDescription",
	"SeriesNumber", "StudyDescription", "StudyID",
}

// Validate checks a table: every entry names a known keyword once, has at
// least one parseable source and, if set, a registered transform.
// knownTag reports dictionary keywords; nil skips that check.
func Validate(t *Table, registry *TransformRegistry, knownTag func(string) bool) *diagnostic.Diagnostics {
	res := &diagnostic.Diagnostics{}
	if t == nil {
		res.AddError("table_is_nil", "correspondence table is nil", scopeTable, "")
		return res
	}

	if t.Version != "1" {
		res.AddError("unsupported_version", fmt.Sprintf("unsupported version %q", t.Version), scopeTable, "version")
	}

	if len(t.Entries) == 0 {
		res.AddWarning("empty_table", "table has no entries; nothing will be mapped", scopeTable, "entries")
	}

	seen := map[string]int{}

	for i, e := range t.Entries {
		field := fmt.Sprintf("entries[%d]", i)

		switch {
		case e.Tag == "":
			res.AddError("missing_tag", "entry has no tag", scopeTable, field)
		case knownTag != nil && !knownTag(e.Tag):
			res.AddErrorWithSuggestions("unknown_tag", fmt.Sprintf("unknown DICOM keyword %q", e.Tag),
				scopeTable, field+".tag", match.Suggest(e.Tag, suggestionKeywords, 3))
		}

		if prev, dup := seen[e.Tag]; dup && e.Tag != "" {
			res.AddError("duplicate_tag",
				fmt.Sprintf("tag %q is already mapped by entries[%d]", e.Tag, prev), scopeTable, field)
		} else {
			seen[e.Tag] = i
		}

		if e.Source.IsEmpty() {
			res.AddError("missing_source", "entry has no source path", scopeTable, field)
		}

		for j, p := range e.Source {
			if _, err := ParsePath(p); err != nil {
				res.AddError("invalid_source_path", err.Error(), scopeTable, fmt.Sprintf("%s.source[%d]", field, j))
			}
		}

		if e.Transform != "" && !registry.Has(e.Transform) {
			res.AddErrorWithSuggestions("unknown_transform", fmt.Sprintf("unknown transform %q", e.Transform),
				scopeTable, field+".transform", match.Suggest(e.Transform, registry.Names(), 2))
		}
	}

	return res
}
