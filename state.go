package nbtest

import "sync/atomic"

var (
	lastExitCode atomic.Int64
	haveExitCode atomic.Bool
)

// ExitCode returns the exit code of the last completed Main call in this
// process, and false when no run has completed yet. Concurrent sessions
// overwrite each other's value.
func ExitCode() (int, bool) {
	if !haveExitCode.Load() {
		return 0, false
	}
	return int(lastExitCode.Load()), true
}

func recordExitCode(code int) {
	lastExitCode.Store(int64(code))
	haveExitCode.Store(true)
}
