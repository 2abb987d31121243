package header

import (
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"session-export/internal/common"
)

// ErrUnsupportedValue is returned by ValueOf for values that cannot be
// expressed as a flat element (nested objects, lists of lists).
var ErrUnsupportedValue = errors.New("unsupported header value")

// Value is the list of text components of one element. Multi-valued
// elements have more than one component (DICOM separates them with `\`).
type Value []string

// ValueOf converts a decoded metadata value (JSON/YAML scalars and lists)
// into a Value. A nil input yields a nil Value.
func ValueOf(x any) (Value, error) {
	switch v := x.(type) {
	case nil:
		return nil, nil
	case Value:
		return slices.Clone(v), nil
	case []string:
		return Value(slices.Clone(v)), nil
	case []any:
		out := make(Value, 0, len(v))

		for _, item := range v {
			s, err := scalarString(item)
			if err != nil {
				return nil, err
			}

			out = append(out, s)
		}

		return out, nil
	default:
		s, err := scalarString(v)
		if err != nil {
			return nil, err
		}

		return Value{s}, nil
	}
}

func scalarString(x any) (string, error) {
	switch v := x.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case int:
		return strconv.Itoa(v), nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case uint16:
		return strconv.FormatUint(uint64(v), 10), nil
	case uint32:
		return strconv.FormatUint(uint64(v), 10), nil
	case float32:
		return FormatNumber(float64(v)), nil
	case float64:
		return FormatNumber(v), nil
	case fmt.Stringer:
		return v.String(), nil
	default:
		return "", fmt.Errorf("%w: %T", ErrUnsupportedValue, x)
	}
}

// FormatNumber renders f with the fewest digits that round-trip
// (70 → "70", 70.5 → "70.5").
func FormatNumber(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// String joins the components with the DICOM value separator.
func (v Value) String() string {
	return strings.Join(v, `\`)
}

// IsEmpty reports whether the value has no component left once padding
// is removed.
func (v Value) IsEmpty() bool {
	for _, c := range v {
		if unpad(c) != "" {
			return false
		}
	}

	return true
}

// Equal compares component-wise after removing DICOM padding. Text is
// compared exactly, up to Unicode canonical equivalence.
func (v Value) Equal(other Value) bool {
	return v.equal(other, func(a, b string) bool { return a == b })
}

// NumericEqual is Equal that also accepts components parsing to the same
// number ("070" and "70"). It is only meaningful for numeric VRs.
func (v Value) NumericEqual(other Value) bool {
	return v.equal(other, numberEqual)
}

func (v Value) equal(other Value, same func(a, b string) bool) bool {
	a, b := v.trimmed(), other.trimmed()
	if len(a) != len(b) {
		return false
	}

	for i := range a {
		if !same(a[i], b[i]) {
			return false
		}
	}

	return true
}

// Scalar returns the single component for single-valued elements and a
// string list otherwise, the shape stored in info.header.dicom.
func (v Value) Scalar() any {
	if common.IsSingle(v) {
		return v[0]
	}

	return []string(slices.Clone(v))
}

// trimmed unpads components and drops trailing empties, which is how
// padding shows up on multi-valued elements.
func (v Value) trimmed() []string {
	out := make([]string, 0, len(v))
	for _, c := range v {
		out = append(out, norm.NFC.String(unpad(c)))
	}

	for len(out) > 0 && out[len(out)-1] == "" {
		out = out[:len(out)-1]
	}

	return out
}

func numberEqual(a, b string) bool {
	if a == b {
		return true
	}

	fa, errA := strconv.ParseFloat(a, 64)
	fb, errB := strconv.ParseFloat(b, 64)

	return errA == nil && errB == nil && fa == fb
}

// unpad strips the space padding of text values and the trailing NUL of
// odd-length UIDs. Every other rune is significant.
func unpad(s string) string {
	return strings.TrimLeft(strings.TrimRight(s, " \x00"), " ")
}
