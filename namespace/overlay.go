package namespace

import (
	"errors"
	"fmt"
	"sync"
)

// ErrRestored is returned when an Overlay is restored a second time.
var ErrRestored = errors.New("overlay already restored")

// Overlay is a scoped override of a single key. It remembers whether the key
// was present before and, if so, its value, so Restore can put the namespace
// back exactly: a key that was absent is deleted again, not set to nil.
type Overlay struct {
	mu       sync.Mutex
	ns       Namespace
	key      string
	had      bool
	prev     any
	restored bool
}

// Override binds key to v in ns and returns the Overlay that undoes it.
func Override(ns Namespace, key string, v any) *Overlay {
	prev, had := ns.Lookup(key)
	ns.Store(key, v)
	return &Overlay{ns: ns, key: key, had: had, prev: prev}
}

// Key returns the overridden key.
func (o *Overlay) Key() string { return o.key }

// Previous returns the value the key held before the override and whether
// it was present at all.
func (o *Overlay) Previous() (any, bool) { return o.prev, o.had }

// Restore reverts the override. It fails with ErrRestored when called twice.
func (o *Overlay) Restore() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.restored {
		return fmt.Errorf("%w: %s", ErrRestored, o.key)
	}
	o.restored = true
	if o.had {
		o.ns.Store(o.key, o.prev)
	} else {
		o.ns.Delete(o.key)
	}
	return nil
}

// With runs fn with key overridden to v and restores the key afterwards,
// also when fn panics.
func With(ns Namespace, key string, v any, fn func() error) (err error) {
	o := Override(ns, key, v)
	defer func() {
		if rerr := o.Restore(); rerr != nil {
			err = errors.Join(err, rerr)
		}
	}()
	return fn()
}
