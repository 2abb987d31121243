package common

import (
	"regexp"
	"strings"
)

// UnknownStr is returned by String methods for out-of-range enum values.
const UnknownStr = "unknown"

// FirstNonEmpty returns the first value that is not blank after trimming.
func FirstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}

	return ""
}

var (
	t2Star          = regexp.MustCompile(`(?i)(t2 ?_?)\*`)
	invalidFilename = regexp.MustCompile(`[/\\:*?"<>|\x00-\x1f]`)
)

// SanitizeFilename makes name safe as a single path element. "T2*" keeps
// its meaning as "T2star"; other reserved characters are dropped.
func SanitizeFilename(name string) string {
	name = t2Star.ReplaceAllString(name, "${1}star")
	name = invalidFilename.ReplaceAllString(name, "")
	name = strings.Trim(name, " .")

	if name == "" {
		return "_"
	}

	return name
}
