package nbtest

import (
	"fmt"
	"slices"
	"strings"
	"unicode"
)

// ModuleKey is the reserved template key that expands to the module name.
const ModuleKey = "MODULE"

// DefOpts controls whether the module selector is appended to the
// argument list.
type DefOpts string

const (
	DefOptsAlways DefOpts = "always"
	DefOptsNever  DefOpts = "never"
	// DefOptsAuto appends unless an argument already selects inside the module.
	DefOptsAuto DefOpts = "auto"
)

// ParseDefOpts accepts the mode names plus true/false (and 1/0, as weakly
// typed config decoding produces) as aliases of always/never.
func ParseDefOpts(s string) (DefOpts, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "always", "true", "1":
		return DefOptsAlways, nil
	case "never", "false", "0":
		return DefOptsNever, nil
	case "auto", "":
		return DefOptsAuto, nil
	}
	return "", fmt.Errorf("invalid defopts %q (want always, never or auto)", s)
}

// SelectionRules drive the auto heuristic.
type SelectionRules struct {
	// OptionPrefix marks an argument as a flag rather than a selector.
	OptionPrefix string
	// ValueFlags take a following value that is never a selector.
	ValueFlags []string
}

// DefaultSelectionRules match the engine's command line.
var DefaultSelectionRules = SelectionRules{
	OptionPrefix: "-",
	ValueFlags:   []string{"-k", "--deselect"},
}

// ResolveArgs builds the engine argument list for the module named module:
// addopts, then args, each expanded with FormatArg, then the bare module
// name when mode asks for it.
func ResolveArgs(module string, addopts, args []string, mode DefOpts, rules SelectionRules) ([]string, error) {
	out := make([]string, 0, len(addopts)+len(args)+1)
	for _, list := range [][]string{addopts, args} {
		for _, a := range list {
			s, err := FormatArg(a, module)
			if err != nil {
				return nil, err
			}
			out = append(out, s)
		}
	}

	switch mode {
	case DefOptsAlways:
		out = append(out, module)
	case DefOptsNever:
	case DefOptsAuto, "":
		if !rules.SelectsModule(out, module) {
			out = append(out, module)
		}
	default:
		return nil, fmt.Errorf("invalid defopts %q", mode)
	}
	return out, nil
}

// SelectsModule reports whether any argument already selects inside module:
// it is not a flag, does not follow a value flag, and starts with module.
func (r SelectionRules) SelectsModule(args []string, module string) bool {
	for i, a := range args {
		if r.OptionPrefix != "" && strings.HasPrefix(a, r.OptionPrefix) {
			continue
		}
		if i > 0 && slices.Contains(r.ValueFlags, args[i-1]) {
			continue
		}
		if strings.HasPrefix(a, module) {
			return true
		}
	}
	return false
}

// FormatArg expands "{key}" fields in arg. {MODULE} becomes module, other
// all-uppercase keys are errors and any remaining key becomes
// "<module>::<key>". "{{" and "}}" are literal braces.
func FormatArg(arg, module string) (string, error) {
	if !strings.ContainsAny(arg, "{}") {
		return arg, nil
	}
	var b strings.Builder
	for i := 0; i < len(arg); i++ {
		c := arg[i]
		switch c {
		case '}':
			if i+1 < len(arg) && arg[i+1] == '}' {
				b.WriteByte('}')
				i++
				continue
			}
			return "", &TemplateError{Arg: arg, Msg: "single '}' encountered"}
		case '{':
			if i+1 < len(arg) && arg[i+1] == '{' {
				b.WriteByte('{')
				i++
				continue
			}
			end := strings.IndexAny(arg[i+1:], "{}")
			if end < 0 || arg[i+1+end] != '}' {
				return "", &TemplateError{Arg: arg, Msg: "unterminated '{'"}
			}
			key := arg[i+1 : i+1+end]
			v, err := expandKey(key, arg, module)
			if err != nil {
				return "", err
			}
			b.WriteString(v)
			i += end + 1
		default:
			b.WriteByte(c)
		}
	}
	return b.String(), nil
}

func expandKey(key, arg, module string) (string, error) {
	switch {
	case key == "":
		return "", &TemplateError{Arg: arg, Msg: "empty field"}
	case key == ModuleKey:
		return module, nil
	case reserved(key):
		return "", &TemplateKeyError{Key: key, Arg: arg}
	default:
		return module + "::" + key, nil
	}
}

// reserved reports whether key is all-uppercase: it has an uppercase letter
// and no lowercase one. Such keys name settings, not tests.
func reserved(key string) bool {
	upper := false
	for _, r := range key {
		switch {
		case unicode.IsLower(r):
			return false
		case unicode.IsUpper(r):
			upper = true
		}
	}
	return upper
}
