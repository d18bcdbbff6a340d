package nbtest

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/google/shlex"
	"github.com/spf13/viper"

	"github.com/daios-ai/nbtest/internal/logging"
)

// Config is the process-wide default for every session setting.
type Config struct {
	// AddOpts are prepended to every engine invocation.
	AddOpts []string `mapstructure:"addopts" yaml:"addopts"`
	// DefOpts decides whether the module selector is appended.
	DefOpts DefOpts `mapstructure:"defopts" yaml:"defopts"`
	// RunInThread runs the engine on a dedicated goroutine.
	RunInThread bool `mapstructure:"run_in_thread" yaml:"run_in_thread"`
	// RaiseOnError turns a non-zero exit code into an *Error.
	RaiseOnError bool `mapstructure:"raise_on_error" yaml:"raise_on_error"`
	// DisplayColumns overrides $COLUMNS during a run (0 = leave alone).
	DisplayColumns int `mapstructure:"display_columns" yaml:"display_columns"`
	// Clean is the pattern of bindings RunCell deletes before a cell runs
	// ("" disables cleaning).
	Clean string `mapstructure:"clean" yaml:"clean"`
	// Suffix is the extension of placeholder files.
	Suffix string `mapstructure:"suffix" yaml:"suffix"`
	// Dir holds the placeholder files. It is also the engine's root
	// directory, so relative selectors naming real files resolve against
	// Dir, not the working directory.
	Dir string `mapstructure:"dir" yaml:"dir"`
	// LogLevel is used by the CLI for its diagnostics logger.
	LogLevel string `mapstructure:"log_level" yaml:"log_level"`
}

// DefaultCleanPattern matches test bindings.
const DefaultCleanPattern = "[Tt]est*"

// DefaultConfig returns the built-in configuration.
func DefaultConfig() Config {
	return Config{
		AddOpts: []string{},
		DefOpts: DefOptsAuto,
		Clean:   DefaultCleanPattern,
		Suffix:  ".nbt",
		Dir:     ".",
		// keep the CLI quiet unless asked
		LogLevel: logging.LevelWarn,
	}
}

// RecommendedConfig is what AutoConfig applies.
func RecommendedConfig() Config {
	c := DefaultConfig()
	c.AddOpts = []string{"-q"}
	return c
}

// Validate checks every field and returns all problems at once.
func (c Config) Validate() error {
	var errs []error
	if _, err := ParseDefOpts(string(c.DefOpts)); err != nil {
		errs = append(errs, err)
	}
	if c.DisplayColumns < 0 {
		errs = append(errs, fmt.Errorf("display_columns must not be negative, got %d", c.DisplayColumns))
	}
	if c.Clean != "" && !doublestar.ValidatePattern(c.Clean) {
		errs = append(errs, fmt.Errorf("invalid clean pattern %q", c.Clean))
	}
	if !strings.HasPrefix(c.Suffix, ".") || strings.ContainsAny(c.Suffix[min(1, len(c.Suffix)):], "./\\ ") {
		errs = append(errs, fmt.Errorf("invalid suffix %q (want an extension such as .nbt)", c.Suffix))
	}
	if c.Dir == "" {
		errs = append(errs, errors.New("dir must not be empty"))
	}
	if c.LogLevel != "" && !slices.Contains(logging.ValidLevels(), strings.ToUpper(c.LogLevel)) {
		errs = append(errs, fmt.Errorf("invalid log_level %q (want one of %s)", c.LogLevel, strings.Join(logging.ValidLevels(), ", ")))
	}
	return errors.Join(errs...)
}

func (c Config) clone() Config {
	c.AddOpts = slices.Clone(c.AddOpts)
	return c
}

// ---- settings ---------------------------------------------------------------

// Setting changes one Config field. Settings are used by Configure and, per
// session, by WithSettings.
type Setting func(*Config)

func AddOpts(opts ...string) Setting {
	return func(c *Config) { c.AddOpts = slices.Clone(opts) }
}

func DefOptsMode(m DefOpts) Setting {
	return func(c *Config) { c.DefOpts = m }
}

func InThread(on bool) Setting {
	return func(c *Config) { c.RunInThread = on }
}

func RaiseOnError(on bool) Setting {
	return func(c *Config) { c.RaiseOnError = on }
}

func DisplayColumns(n int) Setting {
	return func(c *Config) { c.DisplayColumns = n }
}

func CleanPattern(p string) Setting {
	return func(c *Config) { c.Clean = p }
}

func Suffix(s string) Setting {
	return func(c *Config) { c.Suffix = s }
}

// Dir sets the placeholder directory, which is also where relative
// selectors are resolved.
func Dir(d string) Setting {
	return func(c *Config) { c.Dir = d }
}

func LogLevel(l string) Setting {
	return func(c *Config) { c.LogLevel = l }
}

// ---- process-wide configuration ---------------------------------------------

var (
	configMu sync.RWMutex
	current  = DefaultConfig()
)

// CurrentConfig returns a copy of the process-wide configuration.
func CurrentConfig() Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return current.clone()
}

// Configure applies settings to the process-wide configuration. Invalid
// results are rejected and leave the configuration unchanged.
func Configure(settings ...Setting) (Config, error) {
	configMu.Lock()
	defer configMu.Unlock()
	return apply(current.clone(), settings)
}

// AutoConfig replaces the process-wide configuration with RecommendedConfig
// plus settings.
func AutoConfig(settings ...Setting) (Config, error) {
	configMu.Lock()
	defer configMu.Unlock()
	return apply(RecommendedConfig(), settings)
}

// ResetConfig restores DefaultConfig.
func ResetConfig() {
	configMu.Lock()
	current = DefaultConfig()
	configMu.Unlock()
}

// apply must be called with configMu held.
func apply(c Config, settings []Setting) (Config, error) {
	for _, s := range settings {
		s(&c)
	}
	if err := c.Validate(); err != nil {
		return current.clone(), err
	}
	current = c
	return c.clone(), nil
}

// ---- viper ------------------------------------------------------------------

// SetViperDefaults registers DefaultConfig in v.
func SetViperDefaults(v *viper.Viper) {
	d := DefaultConfig()
	v.SetDefault("addopts", d.AddOpts)
	v.SetDefault("defopts", string(d.DefOpts))
	v.SetDefault("run_in_thread", d.RunInThread)
	v.SetDefault("raise_on_error", d.RaiseOnError)
	v.SetDefault("display_columns", d.DisplayColumns)
	v.SetDefault("clean", d.Clean)
	v.SetDefault("suffix", d.Suffix)
	v.SetDefault("dir", d.Dir)
	v.SetDefault("log_level", d.LogLevel)
}

// NewViper returns a viper instance reading NBTEST_* variables and, when
// present, .nbtest.yaml from the working directory.
func NewViper() *viper.Viper {
	v := viper.New()
	SetViperDefaults(v)
	v.SetConfigName(".nbtest")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.SetEnvPrefix("NBTEST")
	v.AutomaticEnv()
	return v
}

// LoadConfig reads v into a Config, installs it as the process-wide
// configuration and returns it. A missing config file is not an error.
func LoadConfig(v *viper.Viper) (Config, error) {
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("reading config: %w", err)
		}
	}

	var c Config
	if err := v.Unmarshal(&c); err != nil {
		return Config{}, fmt.Errorf("decoding config: %w", err)
	}
	// NBTEST_ADDOPTS arrives as one shell-quoted string
	if raw := v.GetString("addopts"); len(c.AddOpts) == 1 && raw == c.AddOpts[0] {
		split, err := shlex.Split(raw)
		if err != nil {
			return Config{}, fmt.Errorf("decoding addopts: %w", err)
		}
		c.AddOpts = split
	}
	if m, err := ParseDefOpts(string(c.DefOpts)); err == nil {
		c.DefOpts = m
	}

	configMu.Lock()
	defer configMu.Unlock()
	return apply(c, nil)
}
