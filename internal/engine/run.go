package engine

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/pflag"
)

type engine struct {
	settings *settings
	plugins  []Plugin
}

// Main runs one test session over args and returns its exit code. It never
// panics: anything escaping the session is reported as ExitInternalError.
func Main(args []string, plugins []Plugin, opts ...Option) (code ExitCode) {
	e := &engine{settings: newSettings(opts), plugins: plugins}
	defer func() {
		if r := recover(); r != nil {
			e.settings.logger.Error("engine panicked", "panic", fmt.Sprint(r))
			fmt.Fprintf(e.settings.out, "INTERNALERROR> %v\n", r)
			code = ExitInternalError
		}
	}()
	return e.main(args)
}

func (e *engine) main(args []string) ExitCode {
	prog := programName(e.plugins)
	out := e.settings.out
	log := e.settings.logger

	inv, err := parseArgs(prog, args)
	if errors.Is(err, pflag.ErrHelp) {
		fmt.Fprint(out, usage(prog))
		return ExitOK
	}
	if err != nil {
		fmt.Fprintf(out, "usage: %s [options] [selector ...]\n%s: error: %v\n", prog, prog, err)
		return ExitUsageError
	}

	rootDir := e.settings.rootDir
	if inv.rootDir != "" {
		if filepath.IsAbs(inv.rootDir) {
			rootDir = inv.rootDir
		} else {
			rootDir = filepath.Join(rootDir, inv.rootDir)
		}
	}
	if abs, err := filepath.Abs(rootDir); err == nil {
		rootDir = abs
	}

	kw, err := CompileKeyword(inv.keyword)
	if err != nil {
		fmt.Fprintf(out, "ERROR: %v\n", err)
		return ExitUsageError
	}

	log.Debug("session starting", "args", args, "rootdir", rootDir)
	start := time.Now()
	rep := newReporter(out, inv.verbosity())
	rep.header(rootDir)

	items, cerrs, err := e.collect(rootDir, inv.selectors)
	if err != nil {
		if isUsageError(err) {
			fmt.Fprintf(out, "ERROR: %v\n", err)
			return ExitUsageError
		}
		panic(err)
	}
	if len(cerrs) > 0 {
		rep.collected(len(items), 0)
		rep.collectionErrors(cerrs, time.Since(start))
		log.Warn("collection failed", "errors", len(cerrs))
		return ExitInterrupted
	}

	selected, deselected := filter(items, kw, inv.deselect)
	rep.collected(len(items), deselected)

	if inv.collectOnly {
		rep.listCollected(selected, time.Since(start))
		if len(selected) == 0 {
			return ExitNoTestsCollected
		}
		return ExitOK
	}

	var results []Result
	failures := 0
	for _, it := range selected {
		res := e.runItem(it)
		results = append(results, res)
		rep.progress(res)
		e.observe(res)
		if res.Outcome != OutcomeFailed {
			continue
		}
		failures++
		if inv.maxFail > 0 && failures >= inv.maxFail {
			rep.endProgress()
			rep.printf("!!! stopping after %d %s !!!\n", failures, plural(failures, "failure", "failures"))
			break
		}
	}
	elapsed := time.Since(start)
	rep.summary(results, deselected, elapsed)

	code := ExitOK
	switch {
	case failures > 0:
		code = ExitTestsFailed
	case len(selected) == 0:
		code = ExitNoTestsCollected
	}

	if inv.reportPath != "" {
		path := inv.reportPath
		if !filepath.IsAbs(path) {
			path = filepath.Join(rootDir, path)
		}
		if err := writeReport(e.settings.fs, path, newYAMLReport(rootDir, code, start, elapsed, results, deselected)); err != nil {
			log.Error("writing report", "path", path, "error", err)
			fmt.Fprintf(out, "WARNING: could not write report %s: %v\n", path, err)
		}
	}
	log.Debug("session finished", "exitcode", int(code), "tests", len(results))
	return code
}

// runItem executes one test, recovering the FailNow/SkipNow signals and
// turning any other panic into a failure.
func (e *engine) runItem(it Item) Result {
	t := newT(it.Name)
	start := time.Now()
	func() {
		defer func() {
			r := recover()
			switch r.(type) {
			case nil, failNowSignal, skipNowSignal:
			default:
				t.log(fmt.Sprintf("panic: %v", r))
				t.Fail()
			}
		}()
		defer t.runCleanups()
		it.fn(t)
	}()

	res := Result{
		NodeID:   it.NodeID,
		Module:   it.Module,
		Name:     it.Name,
		Outcome:  OutcomePassed,
		Duration: time.Since(start),
		Output:   t.messages(),
	}
	switch {
	case t.Failed():
		res.Outcome = OutcomeFailed
	case t.Skipped():
		res.Outcome = OutcomeSkipped
		res.SkipReason = t.skipReason
	}
	e.settings.logger.Debug("test finished", "nodeid", it.NodeID, "outcome", string(res.Outcome))
	return res
}

func (e *engine) observe(res Result) {
	for _, p := range e.plugins {
		if o, ok := p.(ResultObserver); ok {
			o.ObserveResult(res)
		}
	}
}
