package engine

import (
	"io"
	"os"

	"github.com/spf13/afero"

	"github.com/daios-ai/nbtest/internal/logging"
	"github.com/daios-ai/nbtest/namespace"
)

// DefaultSuffixes are tried, in order, for selectors without an extension.
var DefaultSuffixes = []string{".nbt", ".lua"}

// Option configures one Main invocation.
type Option func(*settings)

type settings struct {
	fs       afero.Fs
	registry namespace.Registry
	out      io.Writer
	rootDir  string
	suffixes []string
	logger   *logging.Logger
}

// WithFs sets the filesystem selectors are resolved against.
func WithFs(fs afero.Fs) Option {
	return func(s *settings) { s.fs = fs }
}

// WithRegistry sets the registry modules are imported from.
func WithRegistry(r namespace.Registry) Option {
	return func(s *settings) { s.registry = r }
}

// WithOutput sets where the report is written.
func WithOutput(w io.Writer) Option {
	return func(s *settings) { s.out = w }
}

// WithRootDir sets the directory relative selectors are resolved in.
func WithRootDir(dir string) Option {
	return func(s *settings) { s.rootDir = dir }
}

// WithSuffixes replaces DefaultSuffixes.
func WithSuffixes(suffixes ...string) Option {
	return func(s *settings) { s.suffixes = suffixes }
}

// WithLogger sets the logger for engine diagnostics.
func WithLogger(l *logging.Logger) Option {
	return func(s *settings) { s.logger = l }
}

func newSettings(opts []Option) *settings {
	s := &settings{
		fs:       afero.NewOsFs(),
		registry: namespace.Modules,
		out:      os.Stdout,
		suffixes: DefaultSuffixes,
		logger:   logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.rootDir == "" {
		if wd, err := os.Getwd(); err == nil {
			s.rootDir = wd
		} else {
			s.rootDir = "."
		}
	}
	return s
}
