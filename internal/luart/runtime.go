// runtime.go: a Lua state whose globals can be tested in place
//
// OVERVIEW
// --------
// Runtime wraps a gopher-lua state for the REPL and the run command. It
// exposes the two views a test session needs:
//
//   - Globals(): the global table as a namespace.Namespace. Test functions
//     defined at top level ("function test_x(t) ... end") are collected from
//     here.
//   - Loaded(): package.loaded as a namespace.Registry, so a session module
//     registered by name is also what require(name) returns.
//
// Values cross the boundary like this:
//
//	Lua string/number/boolean  <->  Go string/float64/bool
//	Lua table                   ->  *Table (a Namespace)
//	Lua function                ->  Function (an engine.Runnable)
//	Go nil                      ->  deletes the key (Lua tables cannot hold nil)
//	any other Go value          ->  userdata carrying the value
//
// A Runtime is not safe for concurrent use. Running a session on a worker
// goroutine is fine as long as the caller waits for it, which the session
// dispatcher does.
package luart

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/afero"
	lua "github.com/yuin/gopher-lua"
	"github.com/yuin/gopher-lua/parse"
)

// Runtime is one Lua state.
type Runtime struct {
	L   *lua.LState
	out io.Writer
}

// Option configures a Runtime.
type Option func(*Runtime)

// WithOutput redirects Lua's print (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(r *Runtime) { r.out = w }
}

// New opens a Lua state with the standard libraries loaded.
func New(opts ...Option) *Runtime {
	r := &Runtime{L: lua.NewState(), out: os.Stdout}
	for _, opt := range opts {
		opt(r)
	}
	r.L.SetGlobal("print", r.L.NewFunction(r.print))
	return r
}

// Close releases the Lua state.
func (r *Runtime) Close() { r.L.Close() }

// Globals returns the global table.
func (r *Runtime) Globals() *Table {
	return &Table{rt: r, t: r.L.G.Global}
}

// Loaded returns package.loaded as a module registry.
func (r *Runtime) Loaded() *Registry {
	return &Registry{rt: r}
}

// Exec runs src as a chunk named name.
func (r *Runtime) Exec(name, src string) error {
	_, err := r.run(name, src, 0)
	return err
}

// ExecFile runs the file at path.
func (r *Runtime) ExecFile(fs afero.Fs, path string) error {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return err
	}
	return r.Exec(path, string(data))
}

// Eval runs src and returns its results rendered with tostring. Like the
// stand-alone Lua interpreter, input that parses as an expression is
// evaluated as one ("1+1" yields "2").
func (r *Runtime) Eval(name, src string) ([]string, error) {
	if _, err := parse.Parse(strings.NewReader("return "+src), name); err == nil {
		return r.run(name, "return "+src, lua.MultRet)
	}
	return r.run(name, src, 0)
}

// Complete reports whether src is a complete chunk. Syntax errors other than
// premature end of input count as complete so the caller can report them.
func (r *Runtime) Complete(src string) bool {
	if _, err := parse.Parse(strings.NewReader("return "+src), "=input"); err == nil {
		return true
	}
	_, err := parse.Parse(strings.NewReader(src), "=input")
	if err == nil {
		return true
	}
	serr := newSyntaxError(err, "=input", src)
	return !serr.Incomplete
}

func (r *Runtime) compile(name, src string) (*lua.LFunction, error) {
	chunk, err := parse.Parse(strings.NewReader(src), name)
	if err != nil {
		return nil, newSyntaxError(err, name, src)
	}
	proto, err := lua.Compile(chunk, name)
	if err != nil {
		return nil, &SyntaxError{Chunk: name, Msg: err.Error(), Src: src}
	}
	return r.L.NewFunctionFromProto(proto), nil
}

func (r *Runtime) run(name, src string, nret int) ([]string, error) {
	fn, err := r.compile(name, src)
	if err != nil {
		return nil, err
	}
	base := r.L.GetTop()
	r.L.Push(fn)
	if err := r.L.PCall(0, nret, nil); err != nil {
		r.L.SetTop(base)
		return nil, &RuntimeError{Chunk: name, Msg: errorMessage(err)}
	}
	top := r.L.GetTop()
	var out []string
	for i := base + 1; i <= top; i++ {
		out = append(out, r.L.ToStringMeta(r.L.Get(i)).String())
	}
	r.L.SetTop(base)
	return out, nil
}

func (r *Runtime) print(L *lua.LState) int {
	n := L.GetTop()
	parts := make([]string, 0, n)
	for i := 1; i <= n; i++ {
		parts = append(parts, L.ToStringMeta(L.Get(i)).String())
	}
	fmt.Fprintln(r.out, strings.Join(parts, "\t"))
	return 0
}

// errorMessage strips the traceback gopher-lua appends to API errors.
func errorMessage(err error) string {
	if apiErr, ok := err.(*lua.ApiError); ok && apiErr.Object != nil {
		return apiErr.Object.String()
	}
	return err.Error()
}
