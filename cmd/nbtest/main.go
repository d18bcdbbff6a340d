// Command nbtest is a Lua REPL whose top-level functions can be tested in
// place, plus a batch mode that loads a script and runs its tests.
//
//	nbtest                      start the REPL
//	nbtest repl                 same
//	nbtest test FILE [ARGS...]  load FILE, run its tests, exit with the engine code
//	nbtest version
//
// Configuration comes from .nbtest.yaml (or --config), NBTEST_* environment
// variables and a .env file in the working directory.
package main

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/daios-ai/nbtest"
	"github.com/daios-ai/nbtest/internal/logging"
)

const appName = "nbtest"

// flag names
const (
	flagConfig   = "config"
	flagLogLevel = "log-level"
)

// app carries what every subcommand needs once configuration is loaded.
type app struct {
	stdin  io.Reader
	stdout io.Writer
	stderr io.Writer

	// filesystem defaults to the OS; tests swap in a memory fs.
	filesystem afero.Fs

	configFile string
	logLevel   string

	logger *logging.Logger
	code   int
}

func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           appName,
		Short:         "Run tests defined in a live Lua session",
		Version:       nbtest.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.configure(cmd)
		},
		RunE: func(cmd *cobra.Command, _ []string) error {
			a.code = a.repl()
			return nil
		},
	}
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)
	root.PersistentFlags().StringVar(&a.configFile, flagConfig, "", "config file (default .nbtest.yaml)")
	root.PersistentFlags().StringVar(&a.logLevel, flagLogLevel, "", "log level: DEBUG, INFO, WARN or ERROR (env: NBTEST_LOG_LEVEL)")

	root.AddCommand(newReplCmd(a), newTestCmd(a), newVersionCmd(a))
	return root
}

func newReplCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "repl",
		Short: "Start the REPL",
		Args:  cobra.NoArgs,
		RunE: func(*cobra.Command, []string) error {
			a.code = a.repl()
			return nil
		},
	}
}

func newTestCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "test FILE [ARGS...]",
		Short: "Load a Lua file and run the tests it defines",
		Long: `Load FILE into a fresh Lua state and run every global function whose
name starts with "test". ARGS are passed to the test engine after template
expansion, so "{test_x}" selects a single test and "-k expr" filters by name.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(_ *cobra.Command, args []string) error {
			code, err := a.test(args[0], args[1:])
			a.code = code
			return err
		},
	}
	// Everything after FILE belongs to the engine.
	cmd.Flags().SetInterspersed(false)
	return cmd
}

func newVersionCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(*cobra.Command, []string) {
			fmt.Fprintln(a.stdout, nbtest.Version)
		},
	}
}

// configure loads .env, the config file and the environment into the
// process-wide nbtest configuration and sets up logging.
func (a *app) configure(cmd *cobra.Command) error {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("loading .env: %w", err)
	}

	v := nbtest.NewViper()
	if a.configFile != "" {
		v.SetConfigFile(a.configFile)
	}
	if cmd.Flags().Changed(flagLogLevel) {
		v.Set("log_level", a.logLevel)
	}
	cfg, err := nbtest.LoadConfig(v)
	if err != nil {
		return err
	}
	a.logger = logging.NewLogger(a.stderr, cfg.LogLevel)
	a.logger.Debug("configuration loaded", "file", v.ConfigFileUsed(), "addopts", cfg.AddOpts, "defopts", cfg.DefOpts)
	return nil
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	a := &app{stdin: stdin, stdout: stdout, stderr: stderr, logger: logging.NopLogger()}
	return a.execute(args)
}

// execute runs one command line and returns the process exit code.
func (a *app) execute(args []string) int {
	root := newRootCmd(a)
	root.SetArgs(args)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(a.stderr, "%s: %v\n", appName, err)
		if a.code == 0 {
			return 1
		}
	}
	return a.code
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}
