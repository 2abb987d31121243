package platform

import (
	"regexp"
	"strconv"
	"strings"
)

// Filter narrows a children listing to containers whose field equals
// Value. Field is a dotted path such as "label" or "info.export.origin_id".
type Filter struct {
	Field string
	Value string
}

// Eq is shorthand for Filter{Field: field, Value: value}.
func Eq(field, value string) Filter {
	return Filter{Field: field, Value: value}
}

var numericString = regexp.MustCompile(`^\d+\.?\d*$`)

// String renders the filter in the platform query syntax. Values that
// look numeric are quoted so the server compares them as strings.
func (f Filter) String() string {
	return f.Field + "=" + QuoteNumeric(f.Value)
}

// QuoteNumeric wraps numeric-looking strings in double quotes.
func QuoteNumeric(s string) string {
	if numericString.MatchString(s) {
		return strconv.Quote(s)
	}

	return s
}

// FilterString joins filters with commas.
func FilterString(filters []Filter) string {
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, f.String())
	}

	return strings.Join(parts, ",")
}

// Lookup walks a dotted path through a container's JSON-shaped fields.
func Lookup(c *Container, path string) (any, bool) {
	head, rest, nested := strings.Cut(path, ".")

	if head == "info" && nested {
		return lookupMap(c.Info, rest)
	}

	if nested {
		return nil, false
	}

	switch head {
	case "_id", "id":
		return c.ID, c.ID != ""
	case "label":
		return c.Label, c.Label != ""
	case "code":
		return c.Code, c.Code != ""
	case "uid":
		return c.UID, c.UID != ""
	default:
		return nil, false
	}
}

func lookupMap(m map[string]any, path string) (any, bool) {
	cur := any(m)

	for _, key := range strings.Split(path, ".") {
		obj, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}

		cur, ok = obj[key]
		if !ok {
			return nil, false
		}
	}

	return cur, cur != nil
}

// Matches reports whether c satisfies every filter.
func Matches(c *Container, filters ...Filter) bool {
	for _, f := range filters {
		v, ok := Lookup(c, f.Field)
		if !ok {
			return false
		}

		s, isString := v.(string)
		if !isString || s != f.Value {
			return false
		}
	}

	return true
}
