package profile

import "strings"

// Store exposes role profile lookup.
type Store interface {
	List() []Profile
	FindByID(id string) (Profile, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Profile
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied profiles.
func NewMemoryStore(items []Profile) *MemoryStore {
	return &MemoryStore{items: append([]Profile(nil), items...)}
}

// List returns the supported profiles.
func (s *MemoryStore) List() []Profile {
	return append([]Profile(nil), s.items...)
}

// FindByID looks up a profile by identifier or display name, ignoring case
// and surrounding whitespace.
func (s *MemoryStore) FindByID(id string) (Profile, bool) {
	key := normalize(id)
	if key == "" {
		return Profile{}, false
	}
	for _, item := range s.items {
		if normalize(item.ID) == key || normalize(item.Name) == key {
			return item, true
		}
	}
	return Profile{}, false
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
