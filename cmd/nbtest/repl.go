package main

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/charmbracelet/lipgloss"
	"github.com/google/shlex"
	"github.com/mattn/go-isatty"
	"github.com/peterh/liner"
	"gopkg.in/yaml.v3"

	"github.com/daios-ai/nbtest"
	"github.com/daios-ai/nbtest/internal/luart"
)

const (
	historyFile = ".nbtest_history"
	promptMain  = "> "
	promptCont  = ">> "
	cellMagic   = "%%test"
	chunkName   = "=stdin"
)

var (
	banner   = fmt.Sprintf("nbtest %s (Lua 5.1)\nCtrl+C cancels input, Ctrl+D exits. Type :help for commands.", nbtest.Version)
	helpText = `REPL commands:
  :test [ARGS]        run the tests defined so far ({test_x} selects one)
  %%test [ARGS]       read a cell up to a blank line, clean old tests, run it, test it
  :clean [PATTERN]    delete test bindings (default pattern from config)
  :set KEY=VALUE,...  change the configuration (addopts, defopts, clean, ...)
  :autoconfig         apply the recommended configuration
  :config             show the configuration
  :exitcode           show the exit code of the last run
  :quit               exit
`
)

// lineEditor is the part of liner.State the loop needs.
type lineEditor interface {
	Prompt(prompt string) (string, error)
	AppendHistory(item string)
}

// scanEditor reads piped input without prompts or history.
type scanEditor struct{ sc *bufio.Scanner }

func (s scanEditor) Prompt(string) (string, error) {
	if s.sc.Scan() {
		return s.sc.Text(), nil
	}
	if err := s.sc.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

func (scanEditor) AppendHistory(string) {}

type repl struct {
	app     *app
	rt      *luart.Runtime
	in      lineEditor
	session *nbtest.Session
	// last is the exit code of the most recent test run.
	last int

	value lipgloss.Style
	fault lipgloss.Style
}

func isTerminal(r io.Reader) bool {
	f, ok := r.(*os.File)
	return ok && (isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd()))
}

func (a *app) repl() int {
	var in lineEditor
	if isTerminal(a.stdin) {
		fmt.Fprintln(a.stdout, banner)
		ln := liner.NewLiner()
		defer ln.Close()
		ln.SetCtrlCAborts(true)

		home, _ := os.UserHomeDir()
		histPath := filepath.Join(home, historyFile)
		if f, err := os.Open(histPath); err == nil {
			_, _ = ln.ReadHistory(f)
			_ = f.Close()
		}
		defer func() {
			if f, err := os.Create(histPath); err == nil {
				_, _ = ln.WriteHistory(f)
				_ = f.Close()
			}
		}()

		sigc := make(chan os.Signal, 1)
		signal.Notify(sigc, syscall.SIGTERM, syscall.SIGHUP)
		defer signal.Stop(sigc)
		go func() {
			if _, ok := <-sigc; ok {
				ln.Close()
				os.Exit(130)
			}
		}()
		in = ln
	} else {
		in = scanEditor{sc: bufio.NewScanner(a.stdin)}
	}

	rt := luart.New(luart.WithOutput(a.stdout))
	defer rt.Close()
	return newREPL(a, rt, in).loop()
}

func newREPL(a *app, rt *luart.Runtime, in lineEditor) *repl {
	out := lipgloss.NewRenderer(a.stdout)
	errs := lipgloss.NewRenderer(a.stderr)
	return &repl{
		app:     a,
		rt:      rt,
		in:      in,
		session: nbtest.New(rt.Globals(), a.sessionOptions(rt)...),
		value:   out.NewStyle().Foreground(lipgloss.Color("12")),
		fault:   errs.NewStyle().Foreground(lipgloss.Color("9")),
	}
}

func (r *repl) loop() int {
	for {
		src, ok := r.read()
		if !ok {
			return r.exitCode()
		}
		line := strings.TrimSpace(src)
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, cellMagic):
			r.cell(strings.TrimSpace(strings.TrimPrefix(line, cellMagic)))
		case strings.HasPrefix(line, ":"):
			if r.command(line) {
				return r.exitCode()
			}
		default:
			r.eval(src)
		}
		r.in.AppendHistory(strings.ReplaceAll(src, "\n", " "))
	}
}

// exitCode is 0 for interactive use. Piped sessions exit with the code of
// the last test run so scripts can check it.
func (r *repl) exitCode() int {
	if _, ok := r.in.(scanEditor); !ok {
		return 0
	}
	return r.last
}

// read returns the next complete chunk. Commands and magic lines are
// complete by themselves; Lua input continues until it parses.
func (r *repl) read() (string, bool) {
	var b strings.Builder
	for {
		prompt := promptMain
		if b.Len() > 0 {
			prompt = promptCont
		}
		line, err := r.in.Prompt(prompt)
		if errors.Is(err, io.EOF) {
			if b.Len() > 0 {
				return b.String(), true
			}
			return "", false
		}
		if err != nil {
			// Ctrl+C drops the pending input.
			return "", true
		}
		if b.Len() == 0 {
			trimmed := strings.TrimSpace(line)
			if strings.HasPrefix(trimmed, ":") || strings.HasPrefix(trimmed, cellMagic) {
				return line, true
			}
		} else {
			b.WriteByte('\n')
		}
		b.WriteString(line)
		if r.rt.Complete(b.String()) {
			return b.String(), true
		}
	}
}

// readCell collects lines up to the first blank one.
func (r *repl) readCell() (string, bool) {
	var lines []string
	for {
		line, err := r.in.Prompt(promptCont)
		if err != nil && !errors.Is(err, io.EOF) {
			return "", false
		}
		if errors.Is(err, io.EOF) || strings.TrimSpace(line) == "" {
			return strings.Join(lines, "\n"), len(lines) > 0
		}
		lines = append(lines, line)
	}
}

func (r *repl) eval(src string) {
	results, err := r.rt.Eval(chunkName, src)
	if err != nil {
		r.fail(err)
		return
	}
	if len(results) > 0 {
		fmt.Fprintln(r.app.stdout, r.value.Render(strings.Join(results, "\t")))
	}
}

func (r *repl) cell(line string) {
	body, ok := r.readCell()
	if !ok {
		return
	}
	exec := func(src string) error { return r.rt.Exec("=cell", src) }
	code, err := nbtest.RunCell(r.rt.Globals(), line, body, exec, r.app.sessionOptions(r.rt)...)
	r.last = code
	if err != nil {
		r.fail(err)
	}
}

// command runs a ":" command and reports whether the REPL should exit.
func (r *repl) command(line string) bool {
	name, rest, _ := strings.Cut(line, " ")
	rest = strings.TrimSpace(rest)
	out := r.app.stdout

	switch strings.ToLower(name) {
	case ":quit", ":q":
		return true
	case ":help":
		fmt.Fprint(out, helpText)
	case ":test":
		args, err := shlex.Split(rest)
		if err != nil {
			r.fail(err)
			return false
		}
		code, err := r.session.Main(args)
		r.last = code
		if err != nil {
			r.fail(err)
		}
	case ":clean":
		removed, err := nbtest.CleanTests(r.rt.Globals(), rest)
		if err != nil {
			r.fail(err)
			return false
		}
		fmt.Fprintf(out, "removed %d binding(s)", len(removed))
		if len(removed) > 0 {
			fmt.Fprintf(out, ": %s", strings.Join(removed, ", "))
		}
		fmt.Fprintln(out)
	case ":set":
		settings, err := nbtest.ParseCellHeader("nbtest: " + rest)
		if err == nil {
			_, err = nbtest.Configure(settings...)
		}
		if err != nil {
			r.fail(err)
		}
	case ":autoconfig":
		if _, err := nbtest.AutoConfig(); err != nil {
			r.fail(err)
		}
	case ":config":
		data, err := yaml.Marshal(nbtest.CurrentConfig())
		if err != nil {
			r.fail(err)
			return false
		}
		fmt.Fprint(out, string(data))
	case ":exitcode":
		if code, ok := nbtest.ExitCode(); ok {
			fmt.Fprintln(out, code)
		} else {
			fmt.Fprintln(out, "no tests have run yet")
		}
	default:
		fmt.Fprintf(out, "unknown command %s. Type :help for commands.\n", name)
	}
	return false
}

func (r *repl) fail(err error) {
	fmt.Fprintln(r.app.stderr, r.fault.Render(strings.TrimRight(err.Error(), "\n")))
}
