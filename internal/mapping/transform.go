package mapping

import (
	"encoding/json"
	"fmt"
	"slices"
	"strings"

	"session-export/internal/header"
)

// Names of the built-in transforms.
const (
	TransformPatientSex = "patient_sex"
	TransformDICOMAge   = "dicom_age"
)

// TransformFunc converts a raw hierarchy value; ok is false when the value
// cannot be represented and the entry should be skipped.
type TransformFunc func(raw any) (v header.Value, ok bool)

// TransformRegistry holds named transforms.
type TransformRegistry struct {
	transforms map[string]TransformFunc
}

// NewTransformRegistry creates a new empty transform registry.
func NewTransformRegistry() *TransformRegistry {
	return &TransformRegistry{
		transforms: make(map[string]TransformFunc),
	}
}

// DefaultRegistry returns a registry with the built-in transforms.
func DefaultRegistry() *TransformRegistry {
	r := NewTransformRegistry()
	r.Add(TransformPatientSex, PatientSex)
	r.Add(TransformDICOMAge, DICOMAge)

	return r
}

// Add registers fn under name, replacing any previous one.
func (r *TransformRegistry) Add(name string, fn TransformFunc) {
	r.transforms[name] = fn
}

// Get returns the transform called name, or nil.
func (r *TransformRegistry) Get(name string) TransformFunc {
	return r.transforms[name]
}

// Has returns true if a transform with the given name exists.
func (r *TransformRegistry) Has(name string) bool {
	_, exists := r.transforms[name]
	return exists
}

// Names returns all transform names, sorted.
func (r *TransformRegistry) Names() []string {
	names := make([]string, 0, len(r.transforms))
	for name := range r.transforms {
		names = append(names, name)
	}

	slices.Sort(names)

	return names
}

// PatientSex maps the subject sex onto the DICOM code string M, F or O.
// Other values (including "unknown") are skipped.
func PatientSex(raw any) (header.Value, bool) {
	s, ok := raw.(string)
	if !ok {
		return nil, false
	}

	switch strings.ToLower(strings.TrimSpace(s)) {
	case "male":
		return header.Value{"M"}, true
	case "female":
		return header.Value{"F"}, true
	case "other":
		return header.Value{"O"}, true
	default:
		return nil, false
	}
}

const (
	secondsPerDay   = 86400.0
	secondsPerWeek  = 7 * secondsPerDay
	secondsPerYear  = 365.25 * secondsPerDay
	secondsPerMonth = secondsPerYear / 12
)

// DICOMAge renders an age in seconds as a DICOM age string (nnnY, nnnM,
// nnnW or nnnD) using the largest unit that counts at least one.
func DICOMAge(raw any) (header.Value, bool) {
	seconds, ok := toFloat(raw)
	if !ok || seconds < 0 {
		return nil, false
	}

	units := []struct {
		size   float64
		suffix string
	}{
		{secondsPerYear, "Y"},
		{secondsPerMonth, "M"},
		{secondsPerWeek, "W"},
		{secondsPerDay, "D"},
	}

	for _, u := range units {
		if n := int(seconds / u.size); n >= 1 {
			return header.Value{fmt.Sprintf("%03d%s", min(n, 999), u.suffix)}, true
		}
	}

	return header.Value{"000D"}, true
}

func toFloat(raw any) (float64, bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case *float64:
		if v == nil {
			return 0, false
		}

		return *v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	case json.Number:
		f, err := v.Float64()
		return f, err == nil
	default:
		return 0, false
	}
}
