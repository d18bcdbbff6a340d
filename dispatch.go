package nbtest

import (
	"github.com/sourcegraph/conc"
	"github.com/sourcegraph/conc/panics"
)

// Dispatcher runs a prepared invocation and returns its error.
type Dispatcher func(fn func() error) error

// RunDirect calls fn on the current goroutine.
func RunDirect(fn func() error) error { return fn() }

// RunInThread runs fn on a fresh goroutine and blocks until it returns.
// A panic in fn is re-raised on the caller's goroutine with its original
// value.
func RunInThread(fn func() error) error {
	var (
		err error
		pc  panics.Catcher
		wg  conc.WaitGroup
	)
	wg.Go(func() { pc.Try(func() { err = fn() }) })
	wg.Wait()
	if r := pc.Recovered(); r != nil {
		panic(r.Value)
	}
	return err
}

func dispatcherFor(inThread bool) Dispatcher {
	if inThread {
		return RunInThread
	}
	return RunDirect
}
