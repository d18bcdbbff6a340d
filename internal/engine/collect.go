package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/daios-ai/nbtest/namespace"
)

// TestPrefix marks namespace keys that are collected as tests.
const TestPrefix = "test"

// usageError marks collection failures that are the caller's fault (a
// missing file or an unknown test name) rather than a broken module.
type usageError struct{ msg string }

func (e *usageError) Error() string { return e.msg }

func usageErrorf(format string, args ...any) error {
	return &usageError{msg: fmt.Sprintf(format, args...)}
}

func isUsageError(err error) bool {
	var ue *usageError
	return errors.As(err, &ue)
}

// Item is one collected test.
type Item struct {
	NodeID string // "<module>::<name>"
	Module string // file path relative to the root dir, without extension
	Name   string
	Path   string // absolute path of the collected file

	fn TestFunc
}

// collectError is a file that could not be imported.
type collectError struct {
	Path string
	Err  error
}

func (e collectError) Error() string { return fmt.Sprintf("%s: %v", e.Path, e.Err) }

type selector struct {
	raw  string
	path string
	name string
}

func parseSelector(raw string) selector {
	p, name, _ := strings.Cut(raw, "::")
	return selector{raw: raw, path: p, name: name}
}

// resolve maps a selector path to an existing file. A path without an
// extension tries each configured suffix, then the bare path.
func (e *engine) resolve(rootDir, spec string) (string, error) {
	p := spec
	if !filepath.IsAbs(p) {
		p = filepath.Join(rootDir, p)
	}
	var cands []string
	if filepath.Ext(p) != "" {
		cands = append(cands, p)
	} else {
		for _, suf := range e.settings.suffixes {
			cands = append(cands, p+suf)
		}
		cands = append(cands, p)
	}
	for _, c := range cands {
		fi, err := e.settings.fs.Stat(c)
		if err != nil {
			continue
		}
		if fi.IsDir() {
			return "", usageErrorf("%s is a directory", spec)
		}
		if abs, err := filepath.Abs(c); err == nil {
			c = abs
		}
		return filepath.Clean(c), nil
	}
	return "", usageErrorf("file or directory not found: %s", spec)
}

// moduleFor returns the namespace backing path: plugins first, then the
// registry keyed by the file stem.
func (e *engine) moduleFor(path string) (namespace.Namespace, error) {
	for _, p := range e.plugins {
		if fc, ok := p.(FileCollector); ok {
			if ns, ok := fc.CollectFile(path); ok {
				return ns, nil
			}
		}
	}
	stem := stemOf(path)
	if ns, ok := e.settings.registry.Lookup(stem); ok {
		return ns, nil
	}
	return nil, fmt.Errorf("cannot import module %q: not registered", stem)
}

// collect turns selectors into items. Import failures are returned as
// collection errors; a usage error aborts collection.
func (e *engine) collect(rootDir string, sels []string) ([]Item, []collectError, error) {
	var items []Item
	var errs []collectError
	seen := map[string]bool{}
	imported := map[string]namespace.Namespace{}

	for _, raw := range sels {
		sel := parseSelector(raw)
		path, err := e.resolve(rootDir, sel.path)
		if err != nil {
			return nil, nil, err
		}

		ns, ok := imported[path]
		if !ok {
			ns, err = e.moduleFor(path)
			if err != nil {
				errs = append(errs, collectError{Path: relModule(rootDir, path), Err: err})
				imported[path] = nil
				continue
			}
			imported[path] = ns
		}
		if ns == nil {
			continue // already reported
		}

		module := relModule(rootDir, path)
		found := false
		for _, key := range ns.Keys() {
			if sel.name != "" && key != sel.name {
				continue
			}
			if !strings.HasPrefix(key, TestPrefix) {
				continue
			}
			v, ok := ns.Lookup(key)
			if !ok {
				continue
			}
			fn, ok := Adapt(v)
			if !ok {
				continue
			}
			found = true
			id := module + "::" + key
			if seen[id] {
				continue
			}
			seen[id] = true
			items = append(items, Item{NodeID: id, Module: module, Name: key, Path: path, fn: fn})
		}
		if sel.name != "" && !found {
			return nil, nil, usageErrorf("not found: %s", raw)
		}
		e.settings.logger.Debug("collected module", "module", module, "items", len(items))
	}
	return items, errs, nil
}

// filter applies the keyword expression and the deselect list.
func filter(items []Item, kw *Keyword, deselect []string) (selected []Item, deselected int) {
	norm := make([]string, 0, len(deselect))
	for _, d := range deselect {
		norm = append(norm, normalizeNodeID(d))
	}
	for _, it := range items {
		if !kw.Match(it.Name, it.Module) {
			deselected++
			continue
		}
		if matchesAny(it.NodeID, norm) {
			deselected++
			continue
		}
		selected = append(selected, it)
	}
	return selected, deselected
}

func matchesAny(nodeID string, prefixes []string) bool {
	for _, p := range prefixes {
		if p == "" {
			continue
		}
		// a bare module path deselects the whole module
		if nodeID == p || strings.HasPrefix(nodeID, p+"::") {
			return true
		}
	}
	return false
}

// normalizeNodeID strips a file extension from the path part, so
// "t_1.nbt::test_a" and "t_1::test_a" name the same item.
func normalizeNodeID(id string) string {
	p, name, hasName := strings.Cut(id, "::")
	p = strings.TrimSuffix(p, filepath.Ext(p))
	p = filepath.ToSlash(p)
	if hasName {
		return p + "::" + name
	}
	return p
}

func stemOf(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// relModule renders path relative to rootDir without extension, using
// forward slashes.
func relModule(rootDir, path string) string {
	rel := path
	if r, err := filepath.Rel(rootDir, path); err == nil && !strings.HasPrefix(r, "..") {
		rel = r
	}
	rel = strings.TrimSuffix(rel, filepath.Ext(rel))
	return filepath.ToSlash(rel)
}
