package engine

import "github.com/stretchr/testify/require"

// TestFunc is the canonical shape of a test.
type TestFunc func(t *T)

// Runnable is implemented by values from foreign runtimes (for example a
// scripted function) that know how to run themselves as a test.
type Runnable interface {
	RunTest(t *T)
}

// Adapt converts a namespace value into a TestFunc. Accepted shapes:
//
//	func(*T)
//	func(require.TestingT)
//	func()            // a panic fails the test
//	func() error      // a non-nil error fails the test
//	Runnable
//
// Nil functions and any other value are rejected.
func Adapt(v any) (TestFunc, bool) {
	switch f := v.(type) {
	case TestFunc:
		return f, f != nil
	case func(*T):
		return f, f != nil
	case func(require.TestingT):
		if f == nil {
			return nil, false
		}
		return func(t *T) { f(t) }, true
	case func():
		if f == nil {
			return nil, false
		}
		return func(*T) { f() }, true
	case func() error:
		if f == nil {
			return nil, false
		}
		return func(t *T) {
			if err := f(); err != nil {
				t.Fatal(err)
			}
		}, true
	case Runnable:
		if f == nil {
			return nil, false
		}
		return f.RunTest, true
	}
	return nil, false
}
