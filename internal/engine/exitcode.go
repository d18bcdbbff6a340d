package engine

import "fmt"

// ExitCode is the result of one engine invocation.
type ExitCode int

const (
	ExitOK               ExitCode = 0
	ExitTestsFailed      ExitCode = 1
	ExitInterrupted      ExitCode = 2
	ExitInternalError    ExitCode = 3
	ExitUsageError       ExitCode = 4
	ExitNoTestsCollected ExitCode = 5
)

func (c ExitCode) String() string {
	switch c {
	case ExitOK:
		return "ok"
	case ExitTestsFailed:
		return "tests failed"
	case ExitInterrupted:
		return "interrupted"
	case ExitInternalError:
		return "internal error"
	case ExitUsageError:
		return "usage error"
	case ExitNoTestsCollected:
		return "no tests collected"
	default:
		return fmt.Sprintf("exit code %d", int(c))
	}
}
