// errors.go: error values returned by sessions
//
// Taxonomy
// --------
//   - *InternalError: an invariant of the bridge was violated (no unused
//     module name, an invalid generated name, a registry slot already taken).
//     These are never retried; the message asks the user to report a bug.
//   - ErrSessionActive / ErrSessionInactive / ErrGuardReleased: lifecycle
//     misuse. Always wrapped with %w, so test with errors.Is.
//   - *TemplateKeyError / *TemplateError: a malformed "{key}" argument.
//   - *Error: a non-zero engine exit code, returned only when raise-on-error
//     is configured.
package nbtest

import (
	"errors"
	"fmt"
)

// Lifecycle errors.
var (
	ErrSessionActive   = errors.New("session already active")
	ErrSessionInactive = errors.New("session not active")
	ErrGuardEntered    = errors.New("registration guard already entered")
	ErrGuardReleased   = errors.New("registration guard already released")
)

const bugHint = "This should not happen, please report a bug at https://github.com/daios-ai/nbtest/issues"

// InternalError reports a violated invariant inside one component.
type InternalError struct {
	Component string
	Msg       string
}

func (e *InternalError) Error() string {
	return fmt.Sprintf("nbtest: internal error in %s: %s. %s", e.Component, e.Msg, bugHint)
}

// TemplateKeyError is returned for an unknown all-uppercase template key.
// Uppercase keys are reserved; an unknown one is most likely a typo of MODULE.
type TemplateKeyError struct {
	Key string
	Arg string
}

func (e *TemplateKeyError) Error() string {
	return fmt.Sprintf("unknown template key {%s} in argument %q", e.Key, e.Arg)
}

// TemplateError is returned for an argument that is not a valid template.
type TemplateError struct {
	Arg string
	Msg string
}

func (e *TemplateError) Error() string {
	return fmt.Sprintf("invalid template %q: %s", e.Arg, e.Msg)
}

// Error carries the non-zero exit code of a failed run.
type Error struct {
	ExitCode int
}

func (e *Error) Error() string {
	return fmt.Sprintf("nbtest failed with exit code %d", e.ExitCode)
}
