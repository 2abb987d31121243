package header

import (
	"errors"
	"maps"
	"slices"
)

// Change records one keyword whose final value differs from the file.
type Change struct {
	Tag      string
	Original Value
	New      Value
	Source   Source
	// Inserted is set when the tag was absent from the original header.
	Inserted bool
}

// SkippedEdit is an override that could not be applied.
type SkippedEdit struct {
	Tag    string
	Source Source
	Reason string
}

// Options tunes Reconcile.
type Options struct {
	// KnownTag rejects keywords the codec cannot write. Nil accepts all.
	KnownTag func(keyword string) bool
	// IsNumeric marks keywords whose values compare as numbers, so that
	// "70.0" over "70" is not a change. Nil compares every tag as text.
	IsNumeric func(keyword string) bool
}

// Result is the outcome of reconciling one header.
type Result struct {
	Final   *Header
	Changes []Change
	Skipped []SkippedEdit
}

// Changed reports whether the final header differs from the original.
func (r *Result) Changed() bool {
	return len(r.Changes) > 0
}

// override is the winning value for one keyword.
type override struct {
	value  Value
	source Source
}

// Reconcile merges structured edits and mapped values onto original.
// edits holds the decoded info.header.dicom mapping; mapped is the
// hierarchy mapping output. Neither input is modified.
func Reconcile(original *Header, edits map[string]any, mapped map[string]Value, opts Options) *Result {
	res := &Result{Final: original.Clone()}
	winners := make(map[string]override, len(edits)+len(mapped))

	for tag, v := range mapped {
		if reason := reject(tag, v, opts); reason != "" {
			res.skip(tag, SourceHierarchyMapping, reason)
			continue
		}

		winners[tag] = override{value: v, source: SourceHierarchyMapping}
	}

	for tag, raw := range edits {
		v, err := ValueOf(raw)
		if err != nil {
			reason := "value cannot be converted"
			if errors.Is(err, ErrUnsupportedValue) {
				reason = "nested values are not supported"
			}

			res.skip(tag, SourceStructuredEdit, reason)

			continue
		}

		if reason := reject(tag, v, opts); reason != "" {
			res.skip(tag, SourceStructuredEdit, reason)
			continue
		}

		winners[tag] = override{value: v, source: SourceStructuredEdit}
	}

	for _, tag := range slices.Sorted(maps.Keys(winners)) {
		w := winners[tag]

		orig, present := original.Get(tag)
		if present && opts.same(tag, orig, w.value) {
			continue
		}

		res.Final.Set(tag, slices.Clone(w.value))

		res.Changes = append(res.Changes, Change{
			Tag:      tag,
			Original: orig,
			New:      w.value,
			Source:   w.source,
			Inserted: !present,
		})
	}

	slices.SortFunc(res.Skipped, func(a, b SkippedEdit) int {
		if a.Tag < b.Tag {
			return -1
		}

		if a.Tag > b.Tag {
			return 1
		}

		return int(a.Source) - int(b.Source)
	})

	return res
}

func reject(tag string, v Value, opts Options) string {
	if v.IsEmpty() {
		return "empty value"
	}

	if opts.KnownTag != nil && !opts.KnownTag(tag) {
		return "unknown DICOM keyword"
	}

	return ""
}

func (o Options) same(tag string, a, b Value) bool {
	if o.IsNumeric != nil && o.IsNumeric(tag) {
		return a.NumericEqual(b)
	}

	return a.Equal(b)
}

func (r *Result) skip(tag string, src Source, reason string) {
	r.Skipped = append(r.Skipped, SkippedEdit{Tag: tag, Source: src, Reason: reason})
}
