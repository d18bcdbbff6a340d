package nbtest

import (
	"bytes"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"

	"github.com/daios-ai/nbtest/namespace"
)

// harness isolates a session from the OS: memory filesystem, private
// registry, fake environment.
type harness struct {
	fs      afero.Fs
	reg     *namespace.Table
	environ *namespace.Map
	out     *bytes.Buffer
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	t.Cleanup(ResetConfig)
	return &harness{
		fs:      afero.NewMemMapFs(),
		reg:     namespace.NewTable(),
		environ: namespace.NewMap(),
		out:     &bytes.Buffer{},
	}
}

func (h *harness) options(extra ...Option) []Option {
	base := []Option{
		WithFs(h.fs),
		WithRegistry(h.reg),
		WithEnviron(h.environ),
		WithOutput(h.out),
		WithSettings(Dir("/nb")),
	}
	return append(base, extra...)
}

func (h *harness) session(ns namespace.Namespace, extra ...Option) *Session {
	return New(ns, h.options(extra...)...)
}

// placeholders lists the files left in the placeholder directory.
func (h *harness) placeholders(t *testing.T) []string {
	t.Helper()
	ok, err := afero.DirExists(h.fs, "/nb")
	require.NoError(t, err)
	if !ok {
		return nil
	}
	infos, err := afero.ReadDir(h.fs, "/nb")
	require.NoError(t, err)
	var names []string
	for _, fi := range infos {
		names = append(names, fi.Name())
	}
	return names
}

// sequence yields names in order and repeats the last one forever.
func sequence(names ...string) (NameSource, *int) {
	calls := 0
	return func() string {
		n := names[min(calls, len(names)-1)]
		calls++
		return n
	}, &calls
}

// passFail is a namespace with one passing and one failing test.
func passFail() *namespace.Map {
	ns := namespace.NewMap()
	ns.Store("test_ok", func(t *T) {})
	ns.Store("test_fail", func(t *T) { t.Fatal("expected failure") })
	return ns
}
