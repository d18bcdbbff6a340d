package engine

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"golang.org/x/term"
)

// Outcome of one executed test.
type Outcome string

const (
	OutcomePassed  Outcome = "passed"
	OutcomeFailed  Outcome = "failed"
	OutcomeSkipped Outcome = "skipped"
)

// Result describes one executed test.
type Result struct {
	NodeID     string
	Module     string
	Name       string
	Outcome    Outcome
	Duration   time.Duration
	Output     []string
	SkipReason string
}

// terminalWidth prefers $COLUMNS, then the size of stdout, then 80.
func terminalWidth() int {
	if s := os.Getenv("COLUMNS"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 {
			return n
		}
	}
	if w, _, err := term.GetSize(int(os.Stdout.Fd())); err == nil && w > 0 {
		return w
	}
	return 80
}

type reporter struct {
	out       io.Writer
	width     int
	verbosity int

	red, green, yellow lipgloss.Style

	progressModule string
	progressOpen   bool
}

func newReporter(out io.Writer, verbosity int) *reporter {
	r := lipgloss.NewRenderer(out)
	return &reporter{
		out:       out,
		width:     terminalWidth(),
		verbosity: verbosity,
		red:       r.NewStyle().Foreground(lipgloss.Color("1")),
		green:     r.NewStyle().Foreground(lipgloss.Color("2")),
		yellow:    r.NewStyle().Foreground(lipgloss.Color("3")),
	}
}

func (r *reporter) printf(format string, args ...any) {
	fmt.Fprintf(r.out, format, args...)
}

// rule centers title in a line of fill characters as wide as the terminal.
func (r *reporter) rule(title, fill string) string {
	if title == "" {
		return strings.Repeat(fill, r.width)
	}
	text := " " + title + " "
	n := r.width - len(text)
	if n < 2 {
		n = 2
	}
	left := n / 2
	return strings.Repeat(fill, left) + text + strings.Repeat(fill, n-left)
}

func (r *reporter) header(rootDir string) {
	if r.verbosity < 0 {
		return
	}
	r.printf("%s\n", r.rule("test session starts", "="))
	r.printf("rootdir: %s\n", rootDir)
}

func (r *reporter) collected(total, deselected int) {
	if r.verbosity < 0 {
		return
	}
	msg := fmt.Sprintf("collected %d %s", total, plural(total, "item", "items"))
	if deselected > 0 {
		msg += fmt.Sprintf(" / %d deselected / %d selected", deselected, total-deselected)
	}
	r.printf("%s\n\n", msg)
}

func (r *reporter) collectionErrors(errs []collectError, elapsed time.Duration) {
	r.printf("%s\n", r.rule("ERRORS", "="))
	for _, e := range errs {
		r.printf("%s\n", r.rule("ERROR collecting "+e.Path, "_"))
		r.printf("%v\n", e.Err)
	}
	r.printf("%s\n", r.rule("short test summary info", "="))
	for _, e := range errs {
		r.printf("ERROR %s - %v\n", e.Path, e.Err)
	}
	r.printf("%s\n", r.red.Render(fmt.Sprintf("!!! Interrupted: %d %s during collection !!!",
		len(errs), plural(len(errs), "error", "errors"))))
	r.final(r.red, fmt.Sprintf("%d %s in %s", len(errs), plural(len(errs), "error", "errors"), seconds(elapsed)))
}

func (r *reporter) listCollected(items []Item, elapsed time.Duration) {
	for _, it := range items {
		r.printf("%s\n", it.NodeID)
	}
	if r.verbosity >= 0 {
		r.printf("\n")
	}
	style := r.green
	if len(items) == 0 {
		style = r.yellow
	}
	r.final(style, fmt.Sprintf("%d %s collected in %s", len(items), plural(len(items), "test", "tests"), seconds(elapsed)))
}

// progress reports one finished test.
func (r *reporter) progress(res Result) {
	if r.verbosity > 0 {
		word := strings.ToUpper(string(res.Outcome))
		r.printf("%s %s\n", res.NodeID, r.styleFor(res.Outcome).Render(word))
		return
	}
	if r.verbosity == 0 && res.Module != r.progressModule {
		if r.progressOpen {
			r.printf("\n")
		}
		r.printf("%s ", res.Module)
		r.progressModule = res.Module
	}
	r.progressOpen = true
	r.printf("%s", r.styleFor(res.Outcome).Render(progressChar(res.Outcome)))
}

func (r *reporter) endProgress() {
	if r.progressOpen {
		r.printf("\n")
		r.progressOpen = false
	}
}

func (r *reporter) summary(results []Result, deselected int, elapsed time.Duration) {
	r.endProgress()

	var passed, failed, skipped int
	var failures []Result
	for _, res := range results {
		switch res.Outcome {
		case OutcomePassed:
			passed++
		case OutcomeFailed:
			failed++
			failures = append(failures, res)
		case OutcomeSkipped:
			skipped++
		}
	}

	if len(failures) > 0 {
		r.printf("%s\n", r.rule("FAILURES", "="))
		for _, res := range failures {
			r.printf("%s\n", r.red.Render(r.rule(res.Name, "_")))
			for _, line := range res.Output {
				r.printf("%s\n", line)
			}
		}
		r.printf("%s\n", r.rule("short test summary info", "="))
		for _, res := range failures {
			line := "FAILED " + res.NodeID
			if len(res.Output) > 0 {
				line += " - " + firstLine(res.Output)
			}
			r.printf("%s\n", line)
		}
	}

	var parts []string
	if failed > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", failed))
	}
	if passed > 0 {
		parts = append(parts, fmt.Sprintf("%d passed", passed))
	}
	if skipped > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", skipped))
	}
	if deselected > 0 {
		parts = append(parts, fmt.Sprintf("%d deselected", deselected))
	}
	text := strings.Join(parts, ", ")
	if len(results) == 0 {
		text = strings.TrimPrefix(strings.Join(append([]string{"no tests ran"}, parts...), ", "), ", ")
	}
	text += " in " + seconds(elapsed)

	style := r.green
	switch {
	case failed > 0:
		style = r.red
	case passed == 0:
		style = r.yellow
	}
	r.final(style, text)
}

// final prints the closing line, framed unless running quietly.
func (r *reporter) final(style lipgloss.Style, text string) {
	if r.verbosity < 0 {
		r.printf("%s\n", style.Render(text))
		return
	}
	r.printf("%s\n", style.Render(r.rule(text, "=")))
}

func (r *reporter) styleFor(o Outcome) lipgloss.Style {
	switch o {
	case OutcomeFailed:
		return r.red
	case OutcomeSkipped:
		return r.yellow
	default:
		return r.green
	}
}

func progressChar(o Outcome) string {
	switch o {
	case OutcomeFailed:
		return "F"
	case OutcomeSkipped:
		return "s"
	default:
		return "."
	}
}

func firstLine(lines []string) string {
	for _, l := range lines {
		if l = strings.TrimSpace(l); l != "" {
			if i := strings.IndexByte(l, '\n'); i >= 0 {
				l = l[:i]
			}
			return l
		}
	}
	return ""
}

func plural(n int, one, many string) string {
	if n == 1 {
		return one
	}
	return many
}

func seconds(d time.Duration) string {
	return fmt.Sprintf("%.2fs", d.Seconds())
}
