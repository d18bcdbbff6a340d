// session.go: the runtime bridge between a live namespace and the engine
//
// OVERVIEW
// --------
// The engine discovers tests from files. A notebook or REPL keeps its code in
// a namespace that has no file. A Session closes that gap for one run:
//
//	Enter  identity  pick an unused name t_<hex>, create <dir>/t_<hex>.nbt
//	       guard     __file__ = that path, registry[t_<hex>] = namespace
//	Main   resolve   addopts + args, "{test_x}" -> "t_<hex>::test_x",
//	                 maybe append "t_<hex>" (see DefOpts)
//	       dispatch  engine.Main directly or on a worker goroutine, with a
//	                 collector plugin that maps the placeholder to the
//	                 namespace
//	Exit   guard     drop the registry entry, restore __file__
//	       identity  delete the placeholder
//
// Main on an inert session enters and exits around the call. Main on an
// active session reuses the identity, so {MODULE} stays stable across calls
// inside one Enter/Exit scope.
//
// State machine: Inert -> Enter -> Active -> Exit -> Inert. Entering an
// active session fails with ErrSessionActive; exiting or asking an inert
// session for its module path fails with ErrSessionInactive.
//
// Teardown always runs. Its errors are joined with the run error, never
// substituted for it.
package nbtest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"sync"

	"github.com/spf13/afero"

	"github.com/daios-ai/nbtest/internal/engine"
	"github.com/daios-ai/nbtest/internal/logging"
	"github.com/daios-ai/nbtest/namespace"
)

// Plugin is handed through to the engine. See engine.FileCollector,
// engine.ProgramNamer and engine.ResultObserver for the hooks it may
// implement.
type Plugin = engine.Plugin

// DefaultProgramName is shown in engine usage errors.
const DefaultProgramName = "nbtest"

// Globals is the process-wide top-level namespace. Sessions created with a
// nil namespace run the tests bound here.
var Globals namespace.Namespace = namespace.NewMap()

// Session runs the tests of one namespace. The zero value is not usable;
// create sessions with New.
type Session struct {
	ns       namespace.Namespace
	settings []Setting
	registry namespace.Registry
	fs       afero.Fs
	environ  namespace.Namespace
	out      io.Writer
	logger   *logging.Logger
	names    NameSource
	prog     string

	mu    sync.Mutex
	id    *Identity
	guard *Guard
}

// Option configures a Session.
type Option func(*Session)

// WithSettings overrides the process-wide configuration for this session.
// The overrides are applied on top of CurrentConfig at every call.
func WithSettings(settings ...Setting) Option {
	return func(s *Session) { s.settings = append(s.settings, settings...) }
}

// WithRegistry sets the registry the namespace is installed in
// (default namespace.Modules).
func WithRegistry(r namespace.Registry) Option {
	return func(s *Session) { s.registry = r }
}

// WithFs sets the filesystem placeholder files live on (default: the OS).
func WithFs(fs afero.Fs) Option {
	return func(s *Session) { s.fs = fs }
}

// WithEnviron sets the namespace COLUMNS is overlaid in
// (default: the process environment).
func WithEnviron(env namespace.Namespace) Option {
	return func(s *Session) { s.environ = env }
}

// WithOutput sets where the engine writes its report (default os.Stdout).
func WithOutput(w io.Writer) Option {
	return func(s *Session) { s.out = w }
}

// WithLogger sets the diagnostics logger.
func WithLogger(l *logging.Logger) Option {
	return func(s *Session) { s.logger = l }
}

// WithNameSource replaces RandomName as the source of module names.
func WithNameSource(src NameSource) Option {
	return func(s *Session) { s.names = src }
}

// WithProgramName sets the program name the engine prints in usage errors.
func WithProgramName(name string) Option {
	return func(s *Session) { s.prog = name }
}

// New returns an inert session over ns, or over Globals when ns is nil.
func New(ns namespace.Namespace, opts ...Option) *Session {
	if ns == nil {
		ns = Globals
	}
	s := &Session{
		ns:       ns,
		registry: namespace.Modules,
		fs:       afero.NewOsFs(),
		environ:  namespace.Environ{},
		out:      os.Stdout,
		logger:   logging.NopLogger(),
		names:    RandomName,
		prog:     DefaultProgramName,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run runs the tests bound in Globals with a one-shot session.
func Run(args ...string) (int, error) {
	return New(nil).Main(args)
}

// Config returns the configuration this session would run with now.
func (s *Session) Config() Config {
	c := CurrentConfig()
	for _, set := range s.settings {
		set(&c)
	}
	return c
}

// Enter allocates the identity and installs the namespace.
func (s *Session) Enter() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guard != nil {
		return fmt.Errorf("enter: %w", ErrSessionActive)
	}

	cfg := s.Config()
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("enter: %w", err)
	}
	gen := &identityGenerator{
		fs:       s.fs,
		dir:      cfg.Dir,
		suffix:   cfg.Suffix,
		registry: s.registry,
		names:    s.names,
	}
	id, err := gen.generate()
	if err != nil {
		return err
	}

	g := NewGuard(s.ns, s.registry, id)
	if err := g.Enter(); err != nil {
		return errors.Join(err, s.removePlaceholder(id.Path))
	}
	s.id, s.guard = &id, g
	s.logger.WithModule(id.Name).Debug("session entered", "path", id.Path)
	return nil
}

// Exit uninstalls the namespace and deletes the placeholder. Every step runs
// even when an earlier one fails.
func (s *Session) Exit() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.guard == nil {
		return fmt.Errorf("exit: %w", ErrSessionInactive)
	}
	id, g := s.id, s.guard
	s.id, s.guard = nil, nil

	err := errors.Join(g.Exit(), s.removePlaceholder(id.Path))
	log := s.logger.WithModule(id.Name)
	if err != nil {
		log.Warn("session teardown failed", "error", err)
	} else {
		log.Debug("session exited")
	}
	return err
}

// Active reports whether the session is between Enter and Exit.
func (s *Session) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.guard != nil
}

// ModulePath returns the placeholder path of the active session.
func (s *Session) ModulePath() (string, error) {
	id, err := s.identity()
	return id.Path, err
}

// ModuleName returns the generated module name of the active session.
func (s *Session) ModuleName() (string, error) {
	id, err := s.identity()
	return id.Name, err
}

func (s *Session) identity() (Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.id == nil {
		return Identity{}, fmt.Errorf("module path: %w", ErrSessionInactive)
	}
	return *s.id, nil
}

// Main runs the engine over the namespace and returns its exit code. An
// inert session is entered for the duration of the call and exited again
// even when the run panics. With raise-on-error configured, a non-zero code
// is returned together with an *Error.
func (s *Session) Main(args []string, plugins ...Plugin) (code int, err error) {
	cfg := s.Config()

	if !s.Active() {
		if err := s.Enter(); err != nil {
			return int(engine.ExitInternalError), err
		}
		defer func() { err = errors.Join(err, s.Exit()) }()
	}

	code, err = s.run(cfg, args, plugins)
	if err != nil {
		return code, err
	}
	recordExitCode(code)
	if cfg.RaiseOnError && code != int(engine.ExitOK) {
		return code, &Error{ExitCode: code}
	}
	return code, nil
}

func (s *Session) run(cfg Config, args []string, plugins []Plugin) (int, error) {
	id, err := s.identity()
	if err != nil {
		return int(engine.ExitInternalError), err
	}
	full, err := ResolveArgs(id.Name, cfg.AddOpts, args, cfg.DefOpts, DefaultSelectionRules)
	if err != nil {
		return int(engine.ExitUsageError), err
	}

	all := make([]Plugin, 0, len(plugins)+2)
	all = append(all, engine.ProgramName(s.prog), collector{path: id.Path, ns: s.ns})
	all = append(all, plugins...)

	log := s.logger.WithModule(id.Name)
	log.Debug("running engine", "args", full, "in_thread", cfg.RunInThread)

	code := engine.ExitInternalError
	err = s.withColumns(cfg.DisplayColumns, func() error {
		return dispatcherFor(cfg.RunInThread)(func() error {
			code = engine.Main(full, all,
				engine.WithFs(s.fs),
				engine.WithRegistry(s.registry),
				engine.WithOutput(s.out),
				engine.WithRootDir(filepath.Dir(id.Path)),
				engine.WithSuffixes(cfg.Suffix),
				engine.WithLogger(log),
			)
			return nil
		})
	})
	log.Debug("engine finished", "exitcode", int(code))
	return int(code), err
}

// withColumns overlays COLUMNS for the duration of fn when columns > 0.
func (s *Session) withColumns(columns int, fn func() error) error {
	if columns <= 0 {
		return fn()
	}
	return namespace.With(s.environ, "COLUMNS", strconv.Itoa(columns), fn)
}

func (s *Session) removePlaceholder(path string) error {
	if err := s.fs.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("removing placeholder: %w", err)
	}
	return nil
}

// collector makes the engine collect from the namespace when it reaches the
// placeholder file.
type collector struct {
	path string
	ns   namespace.Namespace
}

func (c collector) CollectFile(path string) (namespace.Namespace, bool) {
	if path != c.path {
		return nil, false
	}
	return c.ns, true
}
