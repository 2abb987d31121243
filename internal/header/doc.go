// Package header models a flat DICOM header (keyword → value) and merges
// the three sources that decide a file's exported header.
//
// # Precedence
//
// For every keyword the final value is taken from, in order:
//  1. structured edits stored on the file (info.header.dicom)
//  2. values mapped from the subject/session/acquisition hierarchy
//  3. the value already present in the DICOM file
//
// Keywords touched by neither override pass through unchanged. An override
// equal to the original value is a no-op and is not reported as a change.
// An override for a keyword missing from the file inserts it.
//
// # Values
//
// A Value is the list of text components of a (possibly multi-valued)
// element. Comparison ignores DICOM padding and non-printable runes, and
// compares numeric components numerically so "070" equals 70.
package header
