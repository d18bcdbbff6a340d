package luart

import (
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/daios-ai/nbtest/internal/engine"
)

// Function is a Lua function run as a test. It is called with one argument,
// a table offering:
//
//	t:name()           the test name
//	t:log(...)         record output shown on failure
//	t:error(...)       mark the test failed and continue
//	t:fail(...)        mark the test failed and stop
//	t:skip(reason)     skip the test
//
// A Lua error raised by the function fails the test with its message. Both
// the colon and the dot call forms work.
type Function struct {
	rt *Runtime
	fn *lua.LFunction
}

var _ engine.Runnable = Function{}

// testState records how the Lua side asked to stop.
type testState struct {
	stopped bool
	skipped bool
	reason  string
}

func (f Function) RunTest(t *engine.T) {
	var st testState
	err := f.rt.L.CallByParam(lua.P{Fn: f.fn, NRet: 0, Protect: true}, f.rt.handle(t, &st))
	switch {
	case st.skipped:
		t.Skip(st.reason)
	case st.stopped:
		t.FailNow()
	case err != nil:
		t.Fatal(errorMessage(err))
	}
}

func (r *Runtime) handle(t *engine.T, st *testState) *lua.LTable {
	L := r.L
	h := L.NewTable()
	L.SetField(h, "name", L.NewFunction(func(L *lua.LState) int {
		L.Push(lua.LString(t.Name()))
		return 1
	}))
	L.SetField(h, "log", L.NewFunction(func(L *lua.LState) int {
		t.Log(joinArgs(L, h))
		return 0
	}))
	L.SetField(h, "error", L.NewFunction(func(L *lua.LState) int {
		t.Error(joinArgs(L, h))
		return 0
	}))
	L.SetField(h, "fail", L.NewFunction(func(L *lua.LState) int {
		if msg := joinArgs(L, h); msg != "" {
			t.Log(msg)
		}
		t.Fail()
		st.stopped = true
		L.RaiseError("test failed")
		return 0
	}))
	L.SetField(h, "skip", L.NewFunction(func(L *lua.LState) int {
		st.skipped = true
		st.reason = joinArgs(L, h)
		L.RaiseError("test skipped")
		return 0
	}))
	return h
}

// joinArgs renders the call arguments like print does, dropping the handle
// itself when called with a colon.
func joinArgs(L *lua.LState, self *lua.LTable) string {
	first := 1
	if L.GetTop() >= 1 && L.Get(1) == self {
		first = 2
	}
	var parts []string
	for i := first; i <= L.GetTop(); i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	return strings.Join(parts, " ")
}
