package converter

import "strings"

// Well-known section names.
const (
	SectionInterface = "Interface"
	SectionPeer      = "Peer"
)

// Section is one named group of key/value lines.
// Keys keep the order of their first appearance; a repeated key
// overwrites the earlier value.
type Section struct {
	Name   string
	keys   []string
	values map[string]string
}

func newSection(name string) *Section {
	return &Section{
		Name:   name,
		values: make(map[string]string),
	}
}

func (s *Section) set(key, value string) {
	if _, exists := s.values[key]; !exists {
		s.keys = append(s.keys, key)
	}
	s.values[key] = value
}

// Get returns the value stored for key and whether it was present.
func (s *Section) Get(key string) (string, bool) {
	if s == nil {
		return "", false
	}
	value, ok := s.values[key]
	return value, ok
}

// Value returns the value stored for key, or "" when absent.
func (s *Section) Value(key string) string {
	value, _ := s.Get(key)
	return value
}

// Keys returns the section keys in order of first appearance.
func (s *Section) Keys() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.keys...)
}

// Len returns the number of distinct keys in the section.
func (s *Section) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Sections is the ordered result of Parse.
type Sections struct {
	order  []string
	byName map[string]*Section
}

func newSections() *Sections {
	return &Sections{byName: make(map[string]*Section)}
}

// selectSection returns the named section, creating it on first use.
func (s *Sections) selectSection(name string) *Section {
	if section, ok := s.byName[name]; ok {
		return section
	}
	section := newSection(name)
	s.byName[name] = section
	s.order = append(s.order, name)
	return section
}

// Section returns the named section and whether it was seen.
func (s *Sections) Section(name string) (*Section, bool) {
	if s == nil {
		return nil, false
	}
	section, ok := s.byName[name]
	return section, ok
}

// Get looks up key inside the named section.
func (s *Sections) Get(section, key string) (string, bool) {
	sec, ok := s.Section(section)
	if !ok {
		return "", false
	}
	return sec.Get(key)
}

// Names returns section names in order of first appearance.
func (s *Sections) Names() []string {
	if s == nil {
		return nil
	}
	return append([]string(nil), s.order...)
}

// Parse tokenizes WireGuard-style configuration text.
//
// Blank lines and lines starting with '#' are skipped. A line starting
// with '[' opens the section named by everything between the first and
// the last character, without checking for a closing bracket. Other lines
// are split on their first '=' and stored in the current section; lines
// seen before any header, or without '=', are dropped. Parse never fails.
func Parse(text string) *Sections {
	sections := newSections()
	var current *Section

	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}

		if strings.HasPrefix(trimmed, "[") {
			current = sections.selectSection(headerName(trimmed))
			continue
		}

		if current == nil {
			continue
		}

		key, value, found := strings.Cut(trimmed, "=")
		if !found {
			continue
		}
		current.set(strings.TrimSpace(key), strings.TrimSpace(value))
	}

	return sections
}

// headerName slices off the first and last character of a header line.
// A lone "[" yields the empty name.
func headerName(header string) string {
	if len(header) < 2 {
		return ""
	}
	return header[1 : len(header)-1]
}
