package engine

import "github.com/daios-ai/nbtest/namespace"

// Plugin is any value passed to Main. The engine checks each plugin for the
// hook interfaces below and ignores the ones it does not implement.
type Plugin any

// FileCollector lets a plugin supply the namespace for a selected file
// instead of the module registry. path is absolute and cleaned.
type FileCollector interface {
	CollectFile(path string) (namespace.Namespace, bool)
}

// ProgramNamer overrides the program name used in usage messages.
type ProgramNamer interface {
	ProgramName() string
}

// ResultObserver is notified after every executed test.
type ResultObserver interface {
	ObserveResult(r Result)
}

// ProgramName is a Plugin that sets the program name.
type ProgramName string

func (p ProgramName) ProgramName() string { return string(p) }

// ObserverFunc adapts a function to ResultObserver.
type ObserverFunc func(r Result)

func (f ObserverFunc) ObserveResult(r Result) { f(r) }

func programName(plugins []Plugin) string {
	name := "nbtest"
	for _, p := range plugins {
		if pn, ok := p.(ProgramNamer); ok && pn.ProgramName() != "" {
			name = pn.ProgramName()
		}
	}
	return name
}
