// Package registry is an in-memory entity registry. It tracks which entities
// exist per service entry and domain; entity state itself is read live from
// the owning coordinator at render time, never stored here.
package registry

import (
	"fmt"
	"sort"
	"sync"
)

// Entity is one registered entity. UniqueID is the namespaced natural key
// ({entryID}_tm_{situationID} or {entryID}_wc_{presetID}); EntityID is the
// human-facing slug.
type Entity struct {
	UniqueID string `json:"unique_id"`
	EntityID string `json:"entity_id"`
	Domain   string `json:"domain"`
	EntryID  string `json:"entry_id"`
	Name     string `json:"name"`
}

// Registry stores entities keyed by unique ID. Safe for concurrent use.
type Registry struct {
	mu       sync.RWMutex
	entities map[string]Entity
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{entities: make(map[string]Entity)}
}

// Add registers an entity, replacing any previous entity with the same
// unique ID.
func (r *Registry) Add(e Entity) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entities[e.UniqueID] = e
}

// Remove deletes an entity by unique ID. Returns an error when no such
// entity exists.
func (r *Registry) Remove(uniqueID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.entities[uniqueID]; !ok {
		return fmt.Errorf("entity %s not registered", uniqueID)
	}
	delete(r.entities, uniqueID)
	return nil
}

// Get looks up an entity by unique ID.
func (r *Registry) Get(uniqueID string) (Entity, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.entities[uniqueID]
	return e, ok
}

// EntriesFor lists entities belonging to a config entry and domain, ordered
// by unique ID for stable output.
func (r *Registry) EntriesFor(entryID, domain string) []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Entity
	for _, e := range r.entities {
		if e.EntryID == entryID && e.Domain == domain {
			out = append(out, e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UniqueID < out[j].UniqueID })
	return out
}

// All lists every registered entity ordered by unique ID.
func (r *Registry) All() []Entity {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entity, 0, len(r.entities))
	for _, e := range r.entities {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UniqueID < out[j].UniqueID })
	return out
}
