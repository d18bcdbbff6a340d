package namespace

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Sentinel errors returned by registry operations.
var (
	// ErrModuleExists is returned when inserting a name that is already taken.
	ErrModuleExists = errors.New("module already registered")

	// ErrModuleNotFound is returned when removing a name that is not registered.
	ErrModuleNotFound = errors.New("module not registered")
)

// Registry maps module names to namespaces. Test engines consult it when
// they import a module by name.
type Registry interface {
	Lookup(name string) (Namespace, bool)
	// Insert never overwrites: an existing name yields ErrModuleExists.
	Insert(name string, ns Namespace) error
	// Remove fails with ErrModuleNotFound for unknown names.
	Remove(name string) error
	// Names returns the registered names in lexicographic order.
	Names() []string
}

// Modules is the process-wide module registry.
var Modules = NewTable()

// Table is an in-memory Registry safe for concurrent use.
type Table struct {
	mu   sync.RWMutex
	mods map[string]Namespace
}

var _ Registry = (*Table)(nil)

// NewTable returns an empty Table.
func NewTable() *Table {
	return &Table{mods: make(map[string]Namespace)}
}

func (t *Table) Lookup(name string) (Namespace, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ns, ok := t.mods[name]
	return ns, ok
}

func (t *Table) Insert(name string, ns Namespace) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.mods[name]; ok {
		return fmt.Errorf("%w: %s", ErrModuleExists, name)
	}
	t.mods[name] = ns
	return nil
}

func (t *Table) Remove(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.mods[name]; !ok {
		return fmt.Errorf("%w: %s", ErrModuleNotFound, name)
	}
	delete(t.mods, name)
	return nil
}

func (t *Table) Names() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	names := make([]string, 0, len(t.mods))
	for n := range t.mods {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
