package export

import "fmt"

//go:generate go tool stringer -type=ArchivePolicy -linecomment -output=archivepolicy_string.go

// ArchivePolicy decides what happens to the originals after an export.
type ArchivePolicy int

const (
	ArchiveUnset ArchivePolicy = iota // unset
	ArchiveCopy                       // copy-to-archive
	ArchiveLeave                      // leave-in-place
)

// ParseArchivePolicy accepts the String form of a policy. The empty string
// is ArchiveUnset.
func ParseArchivePolicy(s string) (ArchivePolicy, error) {
	for _, p := range []ArchivePolicy{ArchiveUnset, ArchiveCopy, ArchiveLeave} {
		if s == p.String() || (s == "" && p == ArchiveUnset) {
			return p, nil
		}
	}

	return ArchiveUnset, fmt.Errorf("unknown archive policy %q (want %s or %s)", s, ArchiveCopy, ArchiveLeave)
}
