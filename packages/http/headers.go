package http

import "strings"

// HeaderField is a single header as it goes on the wire.
type HeaderField struct {
	Name  string
	Value string
}

// Headers is an ordered header collection. Lookups are case-insensitive,
// names keep the casing they were set with, and distinct keys stay in
// insertion order. The zero value is ready to use.
type Headers struct {
	fields []HeaderField
	index  map[string]int
}

// NewHeaders returns a Headers populated from a map. Map iteration order is
// random, so callers that care about order should use Set instead.
func NewHeaders(m map[string]string) *Headers {
	h := &Headers{}
	for k, v := range m {
		h.Set(k, v)
	}
	return h
}

// Set adds a header or replaces the value of an existing one in place.
func (h *Headers) Set(name, value string) *Headers {
	key := strings.ToLower(name)
	if h.index == nil {
		h.index = make(map[string]int)
	}
	if i, ok := h.index[key]; ok {
		h.fields[i] = HeaderField{Name: name, Value: value}
		return h
	}
	h.index[key] = len(h.fields)
	h.fields = append(h.fields, HeaderField{Name: name, Value: value})
	return h
}

// Get returns the value for name, or "" when absent.
func (h *Headers) Get(name string) string {
	if h == nil {
		return ""
	}
	if i, ok := h.index[strings.ToLower(name)]; ok {
		return h.fields[i].Value
	}
	return ""
}

// Has reports whether name is set.
func (h *Headers) Has(name string) bool {
	if h == nil {
		return false
	}
	_, ok := h.index[strings.ToLower(name)]
	return ok
}

// Del removes name if present.
func (h *Headers) Del(name string) {
	if h == nil {
		return
	}
	key := strings.ToLower(name)
	i, ok := h.index[key]
	if !ok {
		return
	}
	h.fields = append(h.fields[:i], h.fields[i+1:]...)
	delete(h.index, key)
	for k, j := range h.index {
		if j > i {
			h.index[k] = j - 1
		}
	}
}

// Len returns the number of distinct headers.
func (h *Headers) Len() int {
	if h == nil {
		return 0
	}
	return len(h.fields)
}

// Fields returns a copy of the headers in insertion order.
func (h *Headers) Fields() []HeaderField {
	if h == nil {
		return nil
	}
	out := make([]HeaderField, len(h.fields))
	copy(out, h.fields)
	return out
}

// Lines renders the headers as "Name: value" lines, the wire list handed to
// the transport.
func (h *Headers) Lines() []string {
	if h == nil {
		return nil
	}
	lines := make([]string, 0, len(h.fields))
	for _, f := range h.fields {
		lines = append(lines, f.Name+": "+f.Value)
	}
	return lines
}

// Clone returns a deep copy. Cloning nil yields an empty collection.
func (h *Headers) Clone() *Headers {
	out := &Headers{}
	if h == nil {
		return out
	}
	for _, f := range h.fields {
		out.Set(f.Name, f.Value)
	}
	return out
}

// Merge sets every header of other on h, other taking precedence.
func (h *Headers) Merge(other *Headers) *Headers {
	if other == nil {
		return h
	}
	for _, f := range other.fields {
		h.Set(f.Name, f.Value)
	}
	return h
}
