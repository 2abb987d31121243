package header

//go:generate go tool stringer -type=Source -linecomment -output=source_string.go

// Source identifies which override produced a change.
type Source int

const (
	SourceStructuredEdit   Source = iota + 1 // structured-edit
	SourceHierarchyMapping                   // hierarchy-mapping
)
