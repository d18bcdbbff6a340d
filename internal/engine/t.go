package engine

import (
	"fmt"
	"strings"
	"sync"

	"github.com/stretchr/testify/require"
)

// T is handed to every test. It satisfies testify's TestingT interfaces, so
// notebook tests can use assert and require directly.
//
// FailNow and SkipNow unwind the test by panicking with a private signal the
// engine recovers. Like testing.T, they must be called from the goroutine
// running the test.
type T struct {
	name string

	mu         sync.Mutex
	failed     bool
	skipped    bool
	skipReason string
	output     []string
	cleanups   []func()
}

var _ require.TestingT = (*T)(nil)

type failNowSignal struct{}

type skipNowSignal struct{}

func newT(name string) *T { return &T{name: name} }

func (t *T) Name() string { return t.name }

func (t *T) Log(args ...any) { t.log(fmt.Sprintln(args...)) }

func (t *T) Logf(format string, args ...any) { t.log(fmt.Sprintf(format, args...)) }

func (t *T) Error(args ...any) {
	t.log(fmt.Sprintln(args...))
	t.Fail()
}

func (t *T) Errorf(format string, args ...any) {
	t.log(fmt.Sprintf(format, args...))
	t.Fail()
}

func (t *T) Fatal(args ...any) {
	t.log(fmt.Sprintln(args...))
	t.FailNow()
}

func (t *T) Fatalf(format string, args ...any) {
	t.log(fmt.Sprintf(format, args...))
	t.FailNow()
}

func (t *T) Fail() {
	t.mu.Lock()
	t.failed = true
	t.mu.Unlock()
}

func (t *T) FailNow() {
	t.Fail()
	panic(failNowSignal{})
}

func (t *T) Failed() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.failed
}

func (t *T) Skip(args ...any) {
	t.skip(strings.TrimSpace(fmt.Sprintln(args...)))
}

func (t *T) Skipf(format string, args ...any) {
	t.skip(fmt.Sprintf(format, args...))
}

func (t *T) SkipNow() { t.skip("") }

func (t *T) Skipped() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.skipped
}

// Helper is a no-op; it exists for source compatibility with testing.TB.
func (t *T) Helper() {}

// Cleanup registers f to run after the test, last registered first.
func (t *T) Cleanup(f func()) {
	t.mu.Lock()
	t.cleanups = append(t.cleanups, f)
	t.mu.Unlock()
}

func (t *T) skip(reason string) {
	t.mu.Lock()
	t.skipped = true
	t.skipReason = reason
	t.mu.Unlock()
	panic(skipNowSignal{})
}

func (t *T) log(s string) {
	t.mu.Lock()
	t.output = append(t.output, strings.TrimRight(s, "\n"))
	t.mu.Unlock()
}

func (t *T) runCleanups() {
	for {
		t.mu.Lock()
		n := len(t.cleanups)
		if n == 0 {
			t.mu.Unlock()
			return
		}
		f := t.cleanups[n-1]
		t.cleanups = t.cleanups[:n-1]
		t.mu.Unlock()
		f()
	}
}

func (t *T) messages() []string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]string(nil), t.output...)
}
