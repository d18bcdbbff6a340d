// magic.go: the "%%test" cell flow
//
// A cell is run in three steps: delete the previously defined tests
// (Config.Clean), evaluate the cell source, then run a session whose
// arguments are the shell-split magic line.
//
// The first line of a cell may carry per-cell settings in a comment:
//
//	-- nbtest: raise_on_error=true, addopts=-q -x, defopts=never
//
// "--", "#" and "//" are accepted as comment markers. Values are not quoted;
// addopts is shell-split.
package nbtest

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/google/shlex"

	"github.com/daios-ai/nbtest/internal/engine"
	"github.com/daios-ai/nbtest/namespace"
)

// CellProgramName is the program name used for engine usage errors raised
// from a cell.
const CellProgramName = "%%test"

const headerTag = "nbtest:"

// CellExecutor evaluates the source of a cell in the namespace under test.
type CellExecutor func(src string) error

// RunCell cleans ns, evaluates cell with exec and runs the tests of ns with
// the arguments on the magic line.
func RunCell(ns namespace.Namespace, line, cell string, exec CellExecutor, opts ...Option) (int, error) {
	if ns == nil {
		ns = Globals
	}
	args, err := shlex.Split(line)
	if err != nil {
		return int(engine.ExitUsageError), fmt.Errorf("parsing magic line %q: %w", line, err)
	}
	settings, err := ParseCellHeader(cell)
	if err != nil {
		return int(engine.ExitUsageError), err
	}

	opts = append([]Option{WithProgramName(CellProgramName)}, opts...)
	opts = append(opts, WithSettings(settings...))
	s := New(ns, opts...)

	if pattern := s.Config().Clean; pattern != "" {
		if _, err := CleanTests(ns, pattern); err != nil {
			return int(engine.ExitUsageError), err
		}
	}
	if err := exec(cell); err != nil {
		return int(engine.ExitInternalError), fmt.Errorf("evaluating cell: %w", err)
	}
	return s.Main(args)
}

// ParseCellHeader returns the settings declared on the first line of cell,
// or none when that line is not an nbtest header.
func ParseCellHeader(cell string) ([]Setting, error) {
	first, _, _ := strings.Cut(strings.TrimLeft(cell, "\r\n"), "\n")
	first = strings.TrimSpace(first)
	for _, marker := range []string{"--", "#", "//"} {
		if strings.HasPrefix(first, marker) {
			first = strings.TrimSpace(strings.TrimPrefix(first, marker))
			break
		}
	}
	body, ok := strings.CutPrefix(first, headerTag)
	if !ok {
		return nil, nil
	}

	var settings []Setting
	for _, field := range strings.Split(body, ",") {
		field = strings.TrimSpace(field)
		if field == "" {
			continue
		}
		key, value, ok := strings.Cut(field, "=")
		if !ok {
			return nil, fmt.Errorf("cell header: %q is not key=value", field)
		}
		set, err := ParseSetting(strings.TrimSpace(key), strings.TrimSpace(value))
		if err != nil {
			return nil, fmt.Errorf("cell header: %w", err)
		}
		settings = append(settings, set)
	}
	return settings, nil
}

// ParseSetting maps one configuration key and its textual value to a
// Setting.
func ParseSetting(key, value string) (Setting, error) {
	switch key {
	case "addopts":
		opts, err := shlex.Split(value)
		if err != nil {
			return nil, fmt.Errorf("addopts: %w", err)
		}
		return AddOpts(opts...), nil
	case "defopts":
		m, err := ParseDefOpts(value)
		if err != nil {
			return nil, err
		}
		return DefOptsMode(m), nil
	case "run_in_thread", "raise_on_error":
		on, err := strconv.ParseBool(value)
		if err != nil {
			return nil, fmt.Errorf("%s: %q is not a boolean", key, value)
		}
		if key == "run_in_thread" {
			return InThread(on), nil
		}
		return RaiseOnError(on), nil
	case "display_columns":
		n, err := strconv.Atoi(value)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("display_columns: %q is not a column count", value)
		}
		return DisplayColumns(n), nil
	case "clean":
		return CleanPattern(value), nil
	}
	return nil, fmt.Errorf("unknown setting %q", key)
}
