package nbtest

import (
	"errors"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daios-ai/nbtest/namespace"
)

// ---- lifecycle --------------------------------------------------------------

func Test_Session_EnterExitRoundTrip(t *testing.T) {
	for _, prev := range []any{nil, "notebook.ipynb"} {
		h := newHarness(t)
		ns := passFail()
		if prev != nil {
			ns.Store(namespace.SourcePathKey, prev)
		}
		s := h.session(ns)

		require.NoError(t, s.Enter())
		assert.True(t, s.Active())
		path, err := s.ModulePath()
		require.NoError(t, err)
		name, err := s.ModuleName()
		require.NoError(t, err)

		assert.Equal(t, "/nb/"+name+".nbt", path)
		exists, _ := afero.Exists(h.fs, path)
		assert.True(t, exists)
		assert.Equal(t, []string{name}, h.reg.Names())
		v, _ := ns.Lookup(namespace.SourcePathKey)
		assert.Equal(t, path, v)

		require.NoError(t, s.Exit())
		assert.False(t, s.Active())
		assert.Empty(t, h.reg.Names())
		assert.Empty(t, h.placeholders(t))
		v, had := ns.Lookup(namespace.SourcePathKey)
		assert.Equal(t, prev != nil, had)
		assert.Equal(t, prev, v)
	}
}

func Test_Session_LifecycleErrors(t *testing.T) {
	h := newHarness(t)
	s := h.session(passFail())

	assert.ErrorIs(t, s.Exit(), ErrSessionInactive)
	_, err := s.ModulePath()
	assert.ErrorIs(t, err, ErrSessionInactive)
	_, err = s.ModuleName()
	assert.ErrorIs(t, err, ErrSessionInactive)

	require.NoError(t, s.Enter())
	assert.ErrorIs(t, s.Enter(), ErrSessionActive)
	require.NoError(t, s.Exit())
	assert.ErrorIs(t, s.Exit(), ErrSessionInactive)
}

func Test_Session_SequentialCyclesUseFreshIdentities(t *testing.T) {
	h := newHarness(t)
	s := h.session(passFail())

	var paths []string
	for i := 0; i < 2; i++ {
		require.NoError(t, s.Enter())
		p, err := s.ModulePath()
		require.NoError(t, err)
		paths = append(paths, p)
		require.NoError(t, s.Exit())
	}
	assert.NotEqual(t, paths[0], paths[1])
	assert.Empty(t, h.placeholders(t))
	assert.Empty(t, h.reg.Names())
}

func Test_Session_FailedEnterLeavesNothingBehind(t *testing.T) {
	h := newHarness(t)
	names, _ := sequence("t_bad.name")
	ns := passFail()
	s := h.session(ns, WithNameSource(names))

	err := s.Enter()
	var ierr *InternalError
	require.True(t, errors.As(err, &ierr))
	assert.Equal(t, "registration guard", ierr.Component)
	assert.False(t, s.Active())
	assert.Empty(t, h.placeholders(t))
	assert.Empty(t, h.reg.Names())
	_, had := ns.Lookup(namespace.SourcePathKey)
	assert.False(t, had)
}

// ---- running ----------------------------------------------------------------

func Test_Session_Main_SelectsByTemplate(t *testing.T) {
	h := newHarness(t)
	s := h.session(passFail())

	code, err := s.Main([]string{"{test_ok}"})
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)

	code, err = s.Main(nil)
	require.NoError(t, err)
	assert.NotEqual(t, ExitOK, code)
	assert.Equal(t, ExitTestsFailed, code)

	assert.False(t, s.Active(), "implicit sessions are torn down")
	assert.Empty(t, h.placeholders(t))
	assert.Empty(t, h.reg.Names())
}

func Test_Session_Main_DefOptsAuto(t *testing.T) {
	tests := []struct {
		name string
		args []string
	}{
		{"explicit node id", []string{"{MODULE}::test_ok"}},
		{"keyword filter", []string{"-k", "ok"}},
		{"deselect", []string{"--deselect", "{test_fail}"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t)
			code, err := h.session(passFail()).Main(tt.args)
			require.NoError(t, err)
			assert.Equal(t, ExitOK, code, h.out.String())
		})
	}
}

func Test_Session_Main_DefOptsNever(t *testing.T) {
	h := newHarness(t)
	s := h.session(passFail(), WithSettings(DefOptsMode(DefOptsNever)))

	code, err := s.Main([]string{"{MODULE}::test_ok"})
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)

	code, err = s.Main(nil)
	require.NoError(t, err)
	assert.Equal(t, ExitNoTestsCollected, code)
}

func Test_Session_Main_ReusesActiveIdentity(t *testing.T) {
	h := newHarness(t)
	var seen []string
	ns := namespace.NewMap()
	ns.Store("test_where", func(t *T) {})
	s := h.session(ns)

	require.NoError(t, s.Enter())
	name, _ := s.ModuleName()
	observer := ObserverFunc(func(r Result) { seen = append(seen, r.Module) })

	for i := 0; i < 2; i++ {
		code, err := s.Main(nil, observer)
		require.NoError(t, err)
		assert.Equal(t, ExitOK, code)
		assert.True(t, s.Active())
	}
	assert.Equal(t, []string{name, name}, seen)
	require.NoError(t, s.Exit())
}

func Test_Session_Main_RaiseOnError(t *testing.T) {
	h := newHarness(t)
	ns := namespace.NewMap()
	ns.Store("test_example", func(t *T) { t.Error("nope") })

	code, err := h.session(ns).Main(nil)
	require.NoError(t, err, "the default does not raise")
	assert.Equal(t, ExitTestsFailed, code)

	code, err = h.session(ns, WithSettings(RaiseOnError(true))).Main(nil)
	var rerr *Error
	require.True(t, errors.As(err, &rerr))
	assert.Equal(t, ExitTestsFailed, rerr.ExitCode)
	assert.Equal(t, code, rerr.ExitCode)
	assert.Equal(t, "nbtest failed with exit code 1", err.Error())
}

func Test_Session_Main_RecordsExitCode(t *testing.T) {
	h := newHarness(t)
	s := h.session(passFail())

	_, _ = s.Main([]string{"{test_fail}"})
	code, ok := ExitCode()
	require.True(t, ok)
	assert.Equal(t, ExitTestsFailed, code)

	_, _ = s.Main([]string{"{test_ok}"})
	code, _ = ExitCode()
	assert.Equal(t, ExitOK, code)
}

func Test_Session_Main_TemplateErrorStillTearsDown(t *testing.T) {
	h := newHarness(t)
	s := h.session(passFail())

	_, err := s.Main([]string{"{DUMMY}"})
	var kerr *TemplateKeyError
	require.True(t, errors.As(err, &kerr))
	assert.False(t, s.Active())
	assert.Empty(t, h.reg.Names())
	assert.Empty(t, h.placeholders(t))
}

func Test_Session_Main_InThread(t *testing.T) {
	h := newHarness(t)
	s := h.session(passFail(), WithSettings(InThread(true)))

	code, err := s.Main([]string{"{test_ok}"})
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
}

func Test_Session_Main_DisplayColumns(t *testing.T) {
	h := newHarness(t)
	var during any
	ns := namespace.NewMap()
	ns.Store("test_columns", func() { during, _ = h.environ.Lookup("COLUMNS") })

	code, err := h.session(ns, WithSettings(DisplayColumns(123))).Main(nil)
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
	assert.Equal(t, "123", during)
	_, had := h.environ.Lookup("COLUMNS")
	assert.False(t, had)
}

func Test_Session_Main_ProgramNameInUsageErrors(t *testing.T) {
	h := newHarness(t)
	code, err := h.session(passFail()).Main([]string{"--bogus"})
	require.NoError(t, err)
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, h.out.String(), "nbtest: error:")

	code, _ = h.session(passFail(), WithProgramName("%%test")).Main([]string{"--bogus"})
	assert.Equal(t, ExitUsageError, code)
	assert.Contains(t, h.out.String(), "%%test: error:")
}

func Test_Session_NilNamespaceUsesGlobals(t *testing.T) {
	h := newHarness(t)
	Globals.Store("test_global", func() {})
	t.Cleanup(func() { Globals.Delete("test_global") })

	code, err := h.session(nil).Main(nil)
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
}

func Test_Session_RegistryImport(t *testing.T) {
	h := newHarness(t)
	ns := passFail()
	s := h.session(ns)
	require.NoError(t, s.Enter())
	defer func() { require.NoError(t, s.Exit()) }()

	name, _ := s.ModuleName()
	got, ok := h.reg.Lookup(name)
	require.True(t, ok)
	assert.Same(t, ns, got)
}

// explodingEnviron panics on every write.
type explodingEnviron struct{ *namespace.Map }

func (explodingEnviron) Store(string, any) { panic("environment is read-only") }

func Test_Session_Main_PanicStillTearsDown(t *testing.T) {
	h := newHarness(t)
	s := h.session(passFail(),
		WithEnviron(explodingEnviron{namespace.NewMap()}),
		WithSettings(DisplayColumns(99)),
	)

	assert.PanicsWithValue(t, "environment is read-only", func() { _, _ = s.Main(nil) })
	assert.False(t, s.Active())
	assert.Empty(t, h.reg.Names())
	assert.Empty(t, h.placeholders(t))
}

func Test_Session_Main_RelativeSelectorsResolveInDir(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, afero.WriteFile(h.fs, "/nb/other.nbt", nil, 0o644))
	other := namespace.NewMap()
	other.Store("test_other", func() {})
	require.NoError(t, h.reg.Insert("other", other))

	code, err := h.session(passFail(), WithSettings(DefOptsMode(DefOptsNever))).Main([]string{"-v", "other"})
	require.NoError(t, err)
	assert.Equal(t, ExitOK, code)
	assert.Contains(t, h.out.String(), "other::test_other PASSED")
}
