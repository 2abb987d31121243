package audit

//go:generate go tool stringer -type=Status -linecomment -output=status_string.go

// Status is the terminal state of a file (or of the whole session when
// the run was skipped).
type Status int

const (
	StatusSuccess Status = iota + 1 // success
	StatusSkipped                   // skipped
	StatusFailed                    // failed
)
