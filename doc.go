// Package nbtest runs tests defined in a live namespace (a REPL's globals, a
// notebook kernel's top-level bindings) with a file-oriented test engine.
//
// A Session gives the namespace a temporary module identity backed by an
// empty placeholder file, installs it in the module registry, runs the
// engine with selectors that point at it and removes every trace again:
//
//	ns := namespace.NewMap()
//	ns.Store("test_ok", func(t *nbtest.T) {})
//	code, err := nbtest.New(ns).Main([]string{"{test_ok}"})
//
// Templates in arguments are expanded against the generated module name:
// "{MODULE}" is the name itself, "{test_x}" the selector "<name>::test_x".
package nbtest

import "github.com/daios-ai/nbtest/internal/engine"

// Engine types exposed to callers.
type (
	// T is passed to tests taking func(*T). It implements testify's
	// require.TestingT.
	T = engine.T
	// Result describes one executed test.
	Result = engine.Result
	// Outcome is passed, failed or skipped.
	Outcome = engine.Outcome
	// Runnable lets foreign values run themselves as tests.
	Runnable = engine.Runnable
	// ResultObserver plugins are notified after every test.
	ResultObserver = engine.ResultObserver
	// ObserverFunc adapts a function to ResultObserver.
	ObserverFunc = engine.ObserverFunc
)

// Outcomes.
const (
	OutcomePassed  = engine.OutcomePassed
	OutcomeFailed  = engine.OutcomeFailed
	OutcomeSkipped = engine.OutcomeSkipped
)

// Engine exit codes.
const (
	ExitOK               = int(engine.ExitOK)
	ExitTestsFailed      = int(engine.ExitTestsFailed)
	ExitInterrupted      = int(engine.ExitInterrupted)
	ExitInternalError    = int(engine.ExitInternalError)
	ExitUsageError       = int(engine.ExitUsageError)
	ExitNoTestsCollected = int(engine.ExitNoTestsCollected)
)

// Version is the release of this module.
const Version = "0.3.0"
