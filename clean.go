package nbtest

import (
	"fmt"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/daios-ai/nbtest/namespace"
)

// CleanTests deletes the bindings of ns whose names match the glob pattern
// (DefaultCleanPattern when empty) and returns the deleted names in
// namespace order. Renamed tests would otherwise keep running under their
// old names.
func CleanTests(ns namespace.Namespace, pattern string) ([]string, error) {
	if pattern == "" {
		pattern = DefaultCleanPattern
	}
	if !doublestar.ValidatePattern(pattern) {
		return nil, fmt.Errorf("invalid clean pattern %q: %w", pattern, doublestar.ErrBadPattern)
	}
	var removed []string
	for _, key := range ns.Keys() {
		ok, err := doublestar.Match(pattern, key)
		if err != nil {
			return removed, fmt.Errorf("invalid clean pattern %q: %w", pattern, err)
		}
		if ok && ns.Delete(key) {
			removed = append(removed, key)
		}
	}
	return removed, nil
}

// ForceReload drops every registry entry named exactly like one of names or
// nested below it ("pkg" also drops "pkg.sub"), so the next import loads it
// afresh. It returns the dropped names in lexicographic order.
func ForceReload(reg namespace.Registry, names ...string) []string {
	var dropped []string
	for _, mod := range reg.Names() {
		for _, name := range names {
			if mod == name || strings.HasPrefix(mod, name+".") {
				if reg.Remove(mod) == nil {
					dropped = append(dropped, mod)
				}
				break
			}
		}
	}
	return dropped
}
