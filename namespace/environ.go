package namespace

import (
	"fmt"
	"os"
	"sort"
	"strings"
)

// Environ exposes the process environment as a Namespace, so environment
// variables can be overridden for a scope with Override or With. Stored
// values are formatted with fmt.Sprint. Namespace writes cannot return
// errors, so a rejected variable (an empty name or one containing "=")
// panics with the error from os.Setenv or os.Unsetenv.
type Environ struct{}

var _ Namespace = Environ{}

func (Environ) Lookup(key string) (any, bool) {
	return os.LookupEnv(key)
}

func (Environ) Store(key string, v any) {
	if err := os.Setenv(key, fmt.Sprint(v)); err != nil {
		panic(fmt.Errorf("namespace: setting $%s: %w", key, err))
	}
}

func (Environ) Delete(key string) bool {
	_, ok := os.LookupEnv(key)
	if err := os.Unsetenv(key); err != nil {
		panic(fmt.Errorf("namespace: unsetting $%s: %w", key, err))
	}
	return ok
}

func (Environ) Keys() []string {
	env := os.Environ()
	keys := make([]string, 0, len(env))
	for _, kv := range env {
		if k, _, ok := strings.Cut(kv, "="); ok && k != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}
