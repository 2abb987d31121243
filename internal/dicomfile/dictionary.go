package dicomfile

import (
	"fmt"
	"strings"

	"github.com/suyashkumar/dicom/pkg/tag"
)

// KnownKeyword reports whether name is a keyword of the standard data
// dictionary.
func KnownKeyword(name string) bool {
	_, err := tag.FindByName(name)
	return err == nil
}

// NumericKeyword reports whether name is a standard keyword whose VR
// holds numbers, either as text (DS, IS) or binary.
func NumericKeyword(name string) bool {
	info, err := lookup(name)
	if err != nil {
		return false
	}

	switch info.VR {
	case "DS", "IS", "US", "SS", "UL", "SL", "FL", "FD", "UV", "SV":
		return true
	default:
		return false
	}
}

// lookup resolves a keyword to its tag and first listed VR.
func lookup(keyword string) (tag.Info, error) {
	info, err := tag.FindByName(keyword)
	if err != nil {
		return tag.Info{}, fmt.Errorf("unknown DICOM keyword %q: %w", keyword, err)
	}

	// Multi-VR entries are listed as "US or SS".
	if vr, _, found := strings.Cut(info.VR, " "); found {
		info.VR = vr
	}

	return info, nil
}

// keyword returns the dictionary keyword for t, or "" for private and
// unknown tags.
func keyword(t tag.Tag) string {
	if t.Group%2 == 1 {
		return ""
	}

	info, err := tag.Find(t)
	if err != nil {
		return ""
	}

	return info.Name
}
