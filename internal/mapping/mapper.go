package mapping

import (
	"fmt"
	"strings"

	"session-export/internal/header"
	"session-export/internal/platform"
)

// Hierarchy is the container context of one file. Acquisition is nil for
// session attachments.
type Hierarchy struct {
	Subject     *platform.Container
	Session     *platform.Container
	Acquisition *platform.Container
}

func (h Hierarchy) container(l Level) *platform.Container {
	switch l {
	case LevelSubject:
		return h.Subject
	case LevelSession:
		return h.Session
	case LevelAcquisition:
		return h.Acquisition
	default:
		return nil
	}
}

// Resolve reads the raw value at p. ok is false when the container or the
// value is missing.
func (h Hierarchy) Resolve(p FieldPath) (any, bool) {
	c := h.container(p.Level)
	if c == nil {
		return nil, false
	}

	if p.Field == "info" {
		return platform.Lookup(c, "info."+strings.Join(p.Info, "."))
	}

	var v any

	switch p.Field {
	case "label":
		v = c.Label
	case "code":
		v = c.Code
	case "sex":
		v = c.Sex
	case "cohort":
		v = c.Cohort
	case "ethnicity":
		v = c.Ethnicity
	case "race":
		v = c.Race
	case "species":
		v = c.Species
	case "strain":
		v = c.Strain
	case "firstname":
		v = c.Firstname
	case "lastname":
		v = c.Lastname
	case "operator":
		v = c.Operator
	case "timezone":
		v = c.Timezone
	case "uid":
		v = c.UID
	case "age":
		if c.Age == nil {
			return nil, false
		}

		v = *c.Age
	case "weight":
		if c.Weight == nil {
			return nil, false
		}

		v = *c.Weight
	default:
		return nil, false
	}

	if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
		return nil, false
	}

	return v, true
}

// compiledEntry is an Entry with parsed paths and its transform.
type compiledEntry struct {
	tag       string
	sources   []FieldPath
	transform TransformFunc
}

// Mapper evaluates a correspondence table against a Hierarchy.
type Mapper struct {
	enabled bool
	entries []compiledEntry
}

// NewMapper compiles table. A disabled mapper always returns an empty
// mapping. Tables should be checked with Validate first; NewMapper only
// reports the first problem.
func NewMapper(enabled bool, table *Table, registry *TransformRegistry) (*Mapper, error) {
	m := &Mapper{enabled: enabled}

	for i, e := range table.Entries {
		paths, err := ParsePaths(e.Source)
		if err != nil {
			return nil, fmt.Errorf("entry %d (%s): %w", i, e.Tag, err)
		}

		ce := compiledEntry{tag: e.Tag, sources: paths}

		if e.Transform != "" {
			ce.transform = registry.Get(e.Transform)
			if ce.transform == nil {
				return nil, fmt.Errorf("entry %d (%s): unknown transform %q", i, e.Tag, e.Transform)
			}
		}

		m.entries = append(m.entries, ce)
	}

	return m, nil
}

// Enabled reports whether the mapper emits values.
func (m *Mapper) Enabled() bool {
	return m.enabled
}

// Map returns keyword → value for every entry with a usable source.
func (m *Mapper) Map(h Hierarchy) map[string]header.Value {
	out := map[string]header.Value{}
	if !m.enabled {
		return out
	}

	for _, e := range m.entries {
		if v, ok := e.evaluate(h); ok {
			out[e.tag] = v
		}
	}

	return out
}

func (e compiledEntry) evaluate(h Hierarchy) (header.Value, bool) {
	for _, p := range e.sources {
		raw, ok := h.Resolve(p)
		if !ok {
			continue
		}

		var (
			v      header.Value
			usable bool
		)

		if e.transform != nil {
			v, usable = e.transform(raw)
		} else {
			converted, err := header.ValueOf(raw)
			v, usable = converted, err == nil
		}

		if usable && !v.IsEmpty() {
			return v, true
		}
	}

	return nil, false
}
