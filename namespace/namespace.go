// namespace.go: mutable name -> value environments
//
// OVERVIEW
// --------
// A Namespace is the accumulated top-level bindings of an interactive
// session: whatever the user defined in earlier cells or REPL lines. The
// bridge never owns a Namespace; it only reads test bindings from it and
// overlays a few well-known keys (see overlay.go) for the duration of a run.
//
// Two properties matter to callers and are part of the contract:
//
//   - Absence is not the same as a nil value. Lookup reports presence
//     separately, and Delete removes the key entirely.
//   - Keys returns names in a stable order. For Map this is insertion order,
//     which is also the order tests are collected in.
//
// PUBLIC API
// ----------
//   - Namespace             the interface every session runtime implements
//   - Map / NewMap / FromMap an ordered, concurrency-safe implementation
//   - SourcePathKey, NameKey well-known keys
package namespace

import (
	"sort"
	"sync"
)

// Well-known keys.
const (
	// SourcePathKey holds the path of the file a namespace was loaded from.
	// Sessions overlay it with their placeholder path while active.
	SourcePathKey = "__file__"

	// NameKey holds the module name a namespace is known under.
	NameKey = "__name__"
)

// Namespace is a mutable mapping from symbol name to arbitrary value.
type Namespace interface {
	// Lookup returns the value bound to key and whether the key is present.
	Lookup(key string) (any, bool)
	// Store binds key to v, creating the key if needed.
	Store(key string, v any)
	// Delete removes key and reports whether it was present.
	Delete(key string) bool
	// Keys returns the bound names in a stable order.
	Keys() []string
}

// Map is an ordered Namespace safe for concurrent use.
type Map struct {
	mu    sync.RWMutex
	table map[string]any
	order []string
}

var _ Namespace = (*Map)(nil)

// NewMap returns an empty Map.
func NewMap() *Map {
	return &Map{table: make(map[string]any)}
}

// FromMap returns a Map holding the entries of m. Since Go maps are
// unordered, keys are inserted in lexicographic order.
func FromMap(m map[string]any) *Map {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	ns := NewMap()
	for _, k := range keys {
		ns.Store(k, m[k])
	}
	return ns
}

func (m *Map) Lookup(key string) (any, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	v, ok := m.table[key]
	return v, ok
}

func (m *Map) Store(key string, v any) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.table[key]; !ok {
		m.order = append(m.order, key)
	}
	m.table[key] = v
}

func (m *Map) Delete(key string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.table[key]; !ok {
		return false
	}
	delete(m.table, key)
	for i, k := range m.order {
		if k == key {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
	return true
}

func (m *Map) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

// Len returns the number of bound names.
func (m *Map) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.table)
}
