package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// UnknownKey is the key of the fallback entry returned when detection
// finds no match.
const UnknownKey = "unknown"

// Registry is an explicit, injectable catalog of system mappings.
// Construct one with New (empty, for tests) or Builtin (seeded with
// every known source product).
type Registry struct {
	mu      sync.RWMutex
	systems map[string]*SystemMapping
}

// New creates an empty registry.
func New() *Registry {
	return &Registry{systems: make(map[string]*SystemMapping)}
}

// Builtin returns a registry seeded with all known source systems.
func Builtin() *Registry {
	r := New()
	r.Register(Projuris())
	r.Register(LegalOne())
	r.Register(Astrea())
	r.Register(SajAdv())
	return r
}

// Register adds a system mapping. Panics if the key is already taken;
// registrations happen at startup and a duplicate is a programming
// error.
func (r *Registry) Register(m *SystemMapping) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if m.Key == "" {
		panic("registry: system mapping with empty key")
	}
	if _, exists := r.systems[m.Key]; exists {
		panic(fmt.Sprintf("registry: system already registered: %s", m.Key))
	}
	r.systems[m.Key] = m
}

// Get returns a system mapping by key.
func (r *Registry) Get(key string) (*SystemMapping, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.systems[key]
	return m, ok
}

// All returns every registered mapping sorted by key.
func (r *Registry) All() []*SystemMapping {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*SystemMapping, 0, len(r.systems))
	for _, m := range r.systems {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// Count returns the number of registered systems.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.systems)
}

// Unknown returns the fallback mapping used when no system is
// detected: no column rules of its own, generic import order.
func Unknown() *SystemMapping {
	return &SystemMapping{
		Key:  UnknownKey,
		Name: "Unknown",
		Strategy: ImportStrategy{
			Order: []Category{CategoryClient, CategoryCase, CategoryEvent, CategoryDocument},
			Dependencies: map[Category][]Category{
				CategoryCase:     {CategoryClient},
				CategoryEvent:    {CategoryCase},
				CategoryDocument: {CategoryCase},
			},
			Conflicts: ConflictSkip,
		},
	}
}

var foldTransformer = transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)

// Normalize lowercases a header or token and strips diacritics, so
// "Número do Processo" and "numero do processo" compare equal.
func Normalize(s string) string {
	folded, _, err := transform.String(foldTransformer, s)
	if err != nil {
		folded = s
	}
	return strings.ToLower(strings.TrimSpace(folded))
}
