package header

import "slices"

// Entry is one keyword/value pair of a Header.
type Entry struct {
	Keyword string
	Value   Value
}

// Header is an ordered keyword → value mapping.
type Header struct {
	entries []Entry
	index   map[string]int
}

// New builds a Header from entries; later duplicates overwrite earlier ones
// in place.
func New(entries ...Entry) *Header {
	h := &Header{index: make(map[string]int, len(entries))}
	for _, e := range entries {
		h.Set(e.Keyword, e.Value)
	}

	return h
}

// Get returns the value stored for keyword.
func (h *Header) Get(keyword string) (Value, bool) {
	i, ok := h.index[keyword]
	if !ok {
		return nil, false
	}

	return h.entries[i].Value, true
}

// Set replaces the value for keyword, appending it if absent.
func (h *Header) Set(keyword string, v Value) {
	if h.index == nil {
		h.index = map[string]int{}
	}

	if i, ok := h.index[keyword]; ok {
		h.entries[i].Value = v
		return
	}

	h.index[keyword] = len(h.entries)
	h.entries = append(h.entries, Entry{Keyword: keyword, Value: v})
}

// Len returns the number of keywords.
func (h *Header) Len() int {
	return len(h.entries)
}

// Entries returns a copy of the entries in header order.
func (h *Header) Entries() []Entry {
	return slices.Clone(h.entries)
}

// Keywords returns the keywords in header order.
func (h *Header) Keywords() []string {
	out := make([]string, 0, len(h.entries))
	for _, e := range h.entries {
		out = append(out, e.Keyword)
	}

	return out
}

// Clone returns a deep copy.
func (h *Header) Clone() *Header {
	c := &Header{
		entries: make([]Entry, 0, len(h.entries)),
		index:   make(map[string]int, len(h.entries)),
	}

	for _, e := range h.entries {
		c.Set(e.Keyword, slices.Clone(e.Value))
	}

	return c
}

// Map renders the header the way it is stored in file metadata.
func (h *Header) Map() map[string]any {
	out := make(map[string]any, len(h.entries))
	for _, e := range h.entries {
		out[e.Keyword] = e.Value.Scalar()
	}

	return out
}
