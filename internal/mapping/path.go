package mapping

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Level is the hierarchy level a path reads from.
type Level string

const (
	LevelSubject     Level = "subject"
	LevelSession     Level = "session"
	LevelAcquisition Level = "acquisition"
)

// levelFields lists the plain fields readable at each level.
var levelFields = map[Level][]string{
	LevelSubject: {
		"label", "code", "sex", "cohort", "ethnicity", "race",
		"species", "strain", "firstname", "lastname",
	},
	LevelSession: {
		"label", "age", "weight", "operator", "timezone", "uid",
	},
	LevelAcquisition: {
		"label", "timezone", "uid",
	},
}

// FieldPath is a parsed hierarchy path.
type FieldPath struct {
	Level Level
	// Field is a plain field name, or "info" when Info is set.
	Field string
	// Info holds the keys below info for custom fields.
	Info []string
}

// String returns the dotted form.
func (p FieldPath) String() string {
	parts := []string{string(p.Level), p.Field}
	parts = append(parts, p.Info...)

	return strings.Join(parts, ".")
}

// ParsePath parses "subject.label", "session.age" or
// "session.info.site.name".
func ParsePath(path string) (FieldPath, error) {
	if path == "" {
		return FieldPath{}, errors.New("empty path")
	}

	parts := strings.Split(path, ".")
	if slices.Contains(parts, "") {
		return FieldPath{}, fmt.Errorf("invalid path %q: empty segment", path)
	}

	if len(parts) < 2 {
		return FieldPath{}, fmt.Errorf("invalid path %q: expected <level>.<field>", path)
	}

	level := Level(parts[0])

	fields, ok := levelFields[level]
	if !ok {
		return FieldPath{}, fmt.Errorf("invalid path %q: unknown level %q (expected subject, session or acquisition)",
			path, parts[0])
	}

	fp := FieldPath{Level: level, Field: parts[1]}

	if fp.Field == "info" {
		if len(parts) == 2 {
			return FieldPath{}, fmt.Errorf("invalid path %q: info needs a key", path)
		}

		fp.Info = parts[2:]

		return fp, nil
	}

	if len(parts) > 2 {
		return FieldPath{}, fmt.Errorf("invalid path %q: only info fields can be nested", path)
	}

	if !slices.Contains(fields, fp.Field) {
		return FieldPath{}, fmt.Errorf("invalid path %q: %s has no field %q", path, level, fp.Field)
	}

	return fp, nil
}

// ParsePaths parses multiple field paths from a StringOrArray.
func ParsePaths(paths StringOrArray) ([]FieldPath, error) {
	result := make([]FieldPath, 0, len(paths))

	for _, p := range paths {
		fp, err := ParsePath(p)
		if err != nil {
			return nil, err
		}

		result = append(result, fp)
	}

	return result, nil
}
