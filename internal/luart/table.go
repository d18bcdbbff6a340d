package luart

import (
	"fmt"
	"sort"

	lua "github.com/yuin/gopher-lua"

	"github.com/daios-ai/nbtest/namespace"
)

// Table is a Lua table seen as a namespace. Only string keys are visible.
// Storing nil deletes the key, so a nil binding and an absent one cannot be
// told apart.
type Table struct {
	rt *Runtime
	t  *lua.LTable
}

var _ namespace.Namespace = (*Table)(nil)

// LTable returns the underlying Lua table.
func (t *Table) LTable() *lua.LTable { return t.t }

func (t *Table) Lookup(key string) (any, bool) {
	v := t.t.RawGetString(key)
	if v == lua.LNil {
		return nil, false
	}
	return t.rt.toGo(v), true
}

func (t *Table) Store(key string, v any) {
	t.t.RawSetString(key, t.rt.toLua(v))
}

func (t *Table) Delete(key string) bool {
	if t.t.RawGetString(key) == lua.LNil {
		return false
	}
	t.t.RawSetString(key, lua.LNil)
	return true
}

// Keys returns the string keys in lexicographic order. Lua does not keep
// insertion order.
func (t *Table) Keys() []string {
	var keys []string
	t.t.ForEach(func(k, _ lua.LValue) {
		if s, ok := k.(lua.LString); ok {
			keys = append(keys, string(s))
		}
	})
	sort.Strings(keys)
	return keys
}

// Registry is package.loaded seen as a module registry. Entries that are
// not tables (a module that returned true) show up as empty namespaces.
type Registry struct {
	rt *Runtime
}

var _ namespace.Registry = (*Registry)(nil)

func (r *Registry) loaded() *lua.LTable {
	L := r.rt.L
	pkg, ok := L.GetGlobal("package").(*lua.LTable)
	if !ok {
		pkg = L.NewTable()
		L.SetGlobal("package", pkg)
	}
	loaded, ok := pkg.RawGetString("loaded").(*lua.LTable)
	if !ok {
		loaded = L.NewTable()
		pkg.RawSetString("loaded", loaded)
	}
	return loaded
}

func (r *Registry) Lookup(name string) (namespace.Namespace, bool) {
	switch v := r.loaded().RawGetString(name).(type) {
	case *lua.LTable:
		return &Table{rt: r.rt, t: v}, true
	case *lua.LNilType:
		return nil, false
	default:
		return namespace.NewMap(), true
	}
}

// Insert accepts only tables of the same runtime.
func (r *Registry) Insert(name string, ns namespace.Namespace) error {
	loaded := r.loaded()
	if loaded.RawGetString(name) != lua.LNil {
		return fmt.Errorf("%w: %s", namespace.ErrModuleExists, name)
	}
	t, ok := ns.(*Table)
	if !ok || t.rt != r.rt {
		return fmt.Errorf("luart: cannot register %T as a Lua module", ns)
	}
	loaded.RawSetString(name, t.t)
	return nil
}

func (r *Registry) Remove(name string) error {
	loaded := r.loaded()
	if loaded.RawGetString(name) == lua.LNil {
		return fmt.Errorf("%w: %s", namespace.ErrModuleNotFound, name)
	}
	loaded.RawSetString(name, lua.LNil)
	return nil
}

func (r *Registry) Names() []string {
	return (&Table{rt: r.rt, t: r.loaded()}).Keys()
}

// ---- conversions ----

func (r *Runtime) toGo(v lua.LValue) any {
	switch x := v.(type) {
	case lua.LString:
		return string(x)
	case lua.LNumber:
		return float64(x)
	case lua.LBool:
		return bool(x)
	case *lua.LTable:
		return &Table{rt: r, t: x}
	case *lua.LFunction:
		return Function{rt: r, fn: x}
	case *lua.LUserData:
		return x.Value
	case *lua.LNilType:
		return nil
	}
	return v
}

func (r *Runtime) toLua(v any) lua.LValue {
	switch x := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return x
	case string:
		return lua.LString(x)
	case bool:
		return lua.LBool(x)
	case int:
		return lua.LNumber(x)
	case int64:
		return lua.LNumber(x)
	case float64:
		return lua.LNumber(x)
	case *Table:
		return x.t
	case Function:
		return x.fn
	}
	ud := r.L.NewUserData()
	ud.Value = v
	return ud
}
