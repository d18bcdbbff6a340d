package luart

import (
	"bytes"
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daios-ai/nbtest"
	"github.com/daios-ai/nbtest/namespace"
)

// ---- helpers ----------------------------------------------------------------

func newRuntime(t *testing.T) (*Runtime, *bytes.Buffer) {
	t.Helper()
	var out bytes.Buffer
	rt := New(WithOutput(&out))
	t.Cleanup(rt.Close)
	return rt, &out
}

func mustExec(t *testing.T, rt *Runtime, src string) {
	t.Helper()
	require.NoError(t, rt.Exec("=cell", src))
}

// session binds a session to the runtime's globals and package.loaded.
func session(t *testing.T, rt *Runtime, out *bytes.Buffer) *nbtest.Session {
	t.Helper()
	t.Setenv("COLUMNS", "60")
	t.Cleanup(nbtest.ResetConfig)
	return nbtest.New(rt.Globals(),
		nbtest.WithRegistry(rt.Loaded()),
		nbtest.WithFs(afero.NewMemMapFs()),
		nbtest.WithOutput(out),
		nbtest.WithSettings(nbtest.Dir("/nb")),
	)
}

// ---- runtime ----------------------------------------------------------------

func Test_Runtime_ExecAndPrint(t *testing.T) {
	rt, out := newRuntime(t)
	mustExec(t, rt, `x = 1 + 2; print("x", x)`)
	assert.Equal(t, "x\t3\n", out.String())

	v, ok := rt.Globals().Lookup("x")
	require.True(t, ok)
	assert.Equal(t, 3.0, v)
}

func Test_Runtime_Eval(t *testing.T) {
	rt, _ := newRuntime(t)
	got, err := rt.Eval("=repl", "1 + 1, 'a'")
	require.NoError(t, err)
	assert.Equal(t, []string{"2", "a"}, got)

	got, err = rt.Eval("=repl", "y = 5")
	require.NoError(t, err)
	assert.Empty(t, got)
	assert.Equal(t, 0, rt.L.GetTop(), "stack is balanced")
}

func Test_Runtime_Errors(t *testing.T) {
	rt, _ := newRuntime(t)

	err := rt.Exec("cell", "x = = 1")
	var serr *SyntaxError
	require.True(t, errors.As(err, &serr))
	assert.Equal(t, 1, serr.Line)
	assert.Contains(t, err.Error(), "SYNTAX ERROR in cell at 1:")
	assert.Contains(t, err.Error(), "   1 | x = = 1")
	assert.False(t, serr.Incomplete)

	err = rt.Exec("cell", `error("nope")`)
	var rerr *RuntimeError
	require.True(t, errors.As(err, &rerr))
	assert.Contains(t, rerr.Msg, "nope")
	assert.Contains(t, err.Error(), "runtime error in cell")
}

func Test_Runtime_Complete(t *testing.T) {
	rt, _ := newRuntime(t)
	tests := []struct {
		src  string
		want bool
	}{
		{"x = 1", true},
		{"1 + 1", true},
		{"function f()", false},
		{"if x then\n  y = 1", false},
		{"s = 'open", false},
		{"x = = 1", true},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, rt.Complete(tt.src), tt.src)
	}
}

func Test_Runtime_ExecFile(t *testing.T) {
	rt, _ := newRuntime(t)
	fs := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(fs, "/s/a.lua", []byte("a = 'file'"), 0o644))

	require.NoError(t, rt.ExecFile(fs, "/s/a.lua"))
	v, _ := rt.Globals().Lookup("a")
	assert.Equal(t, "file", v)
	assert.Error(t, rt.ExecFile(fs, "/s/missing.lua"))
}

func Test_Snippet_ClampsCoordinates(t *testing.T) {
	s := snippet("a\nb\nc", "SYNTAX ERROR", "x", 9, 0, "bad")
	assert.Contains(t, s, "SYNTAX ERROR in x at 3:1: bad")
	assert.Contains(t, s, "   2 | b\n   3 | c\n     | ^\n")
}

// ---- namespaces -------------------------------------------------------------

func Test_Table_Namespace(t *testing.T) {
	rt, _ := newRuntime(t)
	g := rt.Globals()

	g.Store("s", "v")
	g.Store("n", 2)
	g.Store("b", true)
	g.Store("u", []int{1})
	for key, want := range map[string]any{"s": "v", "n": 2.0, "b": true, "u": []int{1}} {
		v, ok := g.Lookup(key)
		require.True(t, ok, key)
		assert.Equal(t, want, v, key)
	}

	assert.True(t, g.Delete("s"))
	assert.False(t, g.Delete("s"))
	_, ok := g.Lookup("s")
	assert.False(t, ok)

	g.Store("n", nil)
	_, ok = g.Lookup("n")
	assert.False(t, ok, "nil cannot be stored in a Lua table")

	mustExec(t, rt, "zz = 1; aa = 2")
	keys := g.Keys()
	assert.Contains(t, keys, "zz")
	assert.Contains(t, keys, "string")
	assert.IsIncreasing(t, keys)
}

func Test_Registry_PackageLoaded(t *testing.T) {
	rt, _ := newRuntime(t)
	reg := rt.Loaded()
	mod := &Table{rt: rt, t: rt.L.NewTable()}
	mod.Store("answer", 42)

	require.NoError(t, reg.Insert("mymod", mod))
	assert.ErrorIs(t, reg.Insert("mymod", mod), namespace.ErrModuleExists)
	assert.Contains(t, reg.Names(), "mymod")

	mustExec(t, rt, `got = require("mymod").answer`)
	v, _ := rt.Globals().Lookup("got")
	assert.Equal(t, 42.0, v)

	ns, ok := reg.Lookup("string")
	require.True(t, ok)
	_, ok = ns.Lookup("format")
	assert.True(t, ok)

	require.NoError(t, reg.Remove("mymod"))
	assert.ErrorIs(t, reg.Remove("mymod"), namespace.ErrModuleNotFound)
	_, ok = reg.Lookup("mymod")
	assert.False(t, ok)

	assert.Error(t, reg.Insert("foreign", namespace.NewMap()))
}

// ---- tests written in Lua ---------------------------------------------------

func Test_Session_RunsLuaTests(t *testing.T) {
	rt, out := newRuntime(t)
	mustExec(t, rt, `
function helper() return 1 end
function test_pass(t) t:log("fine") end
function test_fail(t) t:fail("expected", 1, "got", 2) end
function test_error(t) t.error("soft"); t:log("still running") end
function test_raise() error("kaboom") end
function test_skip(t) t:skip("not today") end
function test_name(t) if t:name() ~= "test_name" then t:fail("bad name") end end
`)
	var results []nbtest.Result
	s := session(t, rt, out)
	code, err := s.Main([]string{"-v"}, nbtest.ObserverFunc(func(r nbtest.Result) {
		results = append(results, r)
	}))
	require.NoError(t, err)
	assert.Equal(t, nbtest.ExitTestsFailed, code)

	byName := map[string]nbtest.Result{}
	for _, r := range results {
		byName[r.Name] = r
	}
	require.Len(t, byName, 6)
	assert.Equal(t, nbtest.OutcomePassed, byName["test_pass"].Outcome)
	assert.Equal(t, nbtest.OutcomePassed, byName["test_name"].Outcome)
	assert.Equal(t, nbtest.OutcomeSkipped, byName["test_skip"].Outcome)
	assert.Equal(t, "not today", byName["test_skip"].SkipReason)

	assert.Equal(t, nbtest.OutcomeFailed, byName["test_fail"].Outcome)
	assert.Contains(t, byName["test_fail"].Output, "expected 1 got 2")
	assert.Equal(t, nbtest.OutcomeFailed, byName["test_error"].Outcome)
	assert.Equal(t, []string{"soft", "still running"}, byName["test_error"].Output)
	assert.Equal(t, nbtest.OutcomeFailed, byName["test_raise"].Outcome)
	assert.Contains(t, byName["test_raise"].Output[0], "kaboom")

	_, ok := rt.Globals().Lookup(namespace.SourcePathKey)
	assert.False(t, ok, "__file__ is restored")
	for _, name := range rt.Loaded().Names() {
		assert.NotRegexp(t, `^t_[0-9a-f]{32}$`, name)
	}
}

func Test_Session_ModuleVisibleToLua(t *testing.T) {
	rt, out := newRuntime(t)
	mustExec(t, rt, `
function test_require(t)
  local self = require(__file__:match("([^/]+)%.nbt$"))
  if self ~= _G then t:fail("module is not the global table") end
end
`)
	code, err := session(t, rt, out).Main([]string{"{MODULE}::test_require"})
	require.NoError(t, err)
	assert.Equal(t, nbtest.ExitOK, code, out.String())
}

func Test_RunCell_LuaCell(t *testing.T) {
	rt, out := newRuntime(t)
	t.Setenv("COLUMNS", "60")
	t.Cleanup(nbtest.ResetConfig)
	mustExec(t, rt, `function test_old(t) t:fail("stale") end`)

	exec := func(src string) error { return rt.Exec("=cell", src) }
	code, err := nbtest.RunCell(rt.Globals(), "-q", "-- nbtest: display_columns=40\nfunction test_new(t) end", exec,
		nbtest.WithRegistry(rt.Loaded()),
		nbtest.WithFs(afero.NewMemMapFs()),
		nbtest.WithOutput(out),
		nbtest.WithSettings(nbtest.Dir("/nb")),
	)
	require.NoError(t, err)
	assert.Equal(t, nbtest.ExitOK, code, out.String())
	_, ok := rt.Globals().Lookup("test_old")
	assert.False(t, ok)
}
