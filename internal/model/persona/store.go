package persona

import "strings"

// Store exposes interviewer lookup for handlers.
type Store interface {
	List() []Persona
	FindByID(id string) (Persona, bool)
}

// MemoryStore keeps the interviewers in seed order with an ID index.
// IDs are matched case-insensitively.
type MemoryStore struct {
	items []Persona
	byID  map[string]int
}

// NewMemoryStore indexes items; a later duplicate ID replaces the earlier entry.
func NewMemoryStore(items []Persona) *MemoryStore {
	s := &MemoryStore{byID: make(map[string]int, len(items))}
	for _, item := range items {
		key := normalizeID(item.ID)
		if idx, ok := s.byID[key]; ok {
			s.items[idx] = item
			continue
		}
		s.byID[key] = len(s.items)
		s.items = append(s.items, item)
	}
	return s
}

// List returns a copy of the interviewers in seed order.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByID looks up an interviewer by identifier.
func (s *MemoryStore) FindByID(id string) (Persona, bool) {
	idx, ok := s.byID[normalizeID(id)]
	if !ok {
		return Persona{}, false
	}
	return s.items[idx], true
}

// WithVariant lists the interviewers that run the given script variant.
func (s *MemoryStore) WithVariant(variant string) []Persona {
	var out []Persona
	for _, item := range s.items {
		if strings.EqualFold(item.ScriptVariant, variant) {
			out = append(out, item)
		}
	}
	return out
}

func normalizeID(id string) string {
	return strings.ToLower(strings.TrimSpace(id))
}
