package engine

import (
	"io"

	"github.com/spf13/pflag"
)

// invocation is the parsed argument list of one Main call.
type invocation struct {
	selectors   []string
	keyword     string
	deselect    []string
	quiet       int
	verbose     int
	exitFirst   bool
	maxFail     int
	collectOnly bool
	reportPath  string
	rootDir     string
}

// verbosity folds -v and -q into one level: 0 is the default, negative is
// quieter, positive is more verbose.
func (inv *invocation) verbosity() int { return inv.verbose - inv.quiet }

func newFlagSet(prog string, inv *invocation) *pflag.FlagSet {
	fs := pflag.NewFlagSet(prog, pflag.ContinueOnError)
	fs.SetOutput(io.Discard)
	fs.SortFlags = false

	fs.StringVarP(&inv.keyword, "keyword", "k", "", "only run tests matching the keyword expression")
	fs.StringArrayVar(&inv.deselect, "deselect", nil, "deselect a test by node id prefix (repeatable)")
	fs.CountVarP(&inv.quiet, "quiet", "q", "decrease verbosity")
	fs.CountVarP(&inv.verbose, "verbose", "v", "increase verbosity")
	fs.BoolVarP(&inv.exitFirst, "exitfirst", "x", false, "stop after the first failure")
	fs.IntVar(&inv.maxFail, "maxfail", 0, "stop after N failures (0 = never)")
	fs.BoolVar(&inv.collectOnly, "collect-only", false, "only collect tests, do not run them")
	fs.StringVar(&inv.reportPath, "report", "", "write a YAML report to `FILE`")
	fs.StringVar(&inv.rootDir, "rootdir", "", "resolve relative selectors in `DIR`")
	return fs
}

// parseArgs parses args the way a command line would. A -h/--help request
// is reported as pflag.ErrHelp.
func parseArgs(prog string, args []string) (*invocation, error) {
	inv := &invocation{}
	fs := newFlagSet(prog, inv)
	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	inv.selectors = fs.Args()
	if inv.exitFirst {
		inv.maxFail = 1
	}
	return inv, nil
}

func usage(prog string) string {
	fs := newFlagSet(prog, &invocation{})
	return "usage: " + prog + " [options] [selector ...]\n\n" + fs.FlagUsages()
}
