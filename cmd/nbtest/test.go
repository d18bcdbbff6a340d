package main

import (
	"github.com/spf13/afero"

	"github.com/daios-ai/nbtest"
	"github.com/daios-ai/nbtest/internal/luart"
)

// sessionOptions binds sessions to the Lua state: its globals are the
// namespace under test and package.loaded is the module registry.
func (a *app) sessionOptions(rt *luart.Runtime) []nbtest.Option {
	return []nbtest.Option{
		nbtest.WithRegistry(rt.Loaded()),
		nbtest.WithOutput(a.stdout),
		nbtest.WithLogger(a.logger),
		nbtest.WithFs(a.fs()),
	}
}

func (a *app) fs() afero.Fs {
	if a.filesystem == nil {
		a.filesystem = afero.NewOsFs()
	}
	return a.filesystem
}

// test loads file into a fresh Lua state and runs the tests it defined.
func (a *app) test(file string, args []string) (int, error) {
	rt := luart.New(luart.WithOutput(a.stdout))
	defer rt.Close()

	if err := rt.ExecFile(a.fs(), file); err != nil {
		return nbtest.ExitInterrupted, err
	}
	a.logger.Debug("script loaded", "file", file)
	return nbtest.New(rt.Globals(), a.sessionOptions(rt)...).Main(args)
}
