package nbtest

import (
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/afero"

	"github.com/daios-ai/nbtest/namespace"
)

const (
	identityPrefix   = "t_"
	identityAttempts = 10
)

// Identity is the module name and placeholder file a session runs under.
type Identity struct {
	Name string
	Path string // absolute; an empty file that exists while the session is active
}

// NameSource produces candidate module names.
type NameSource func() string

// RandomName returns "t_" followed by the 32 hex digits of a random UUID.
func RandomName() string {
	id := uuid.New()
	return identityPrefix + hex.EncodeToString(id[:])
}

// ValidModuleName reports whether name can be used as a bare module
// reference: non-empty, without dots, dashes, spaces or path separators.
func ValidModuleName(name string) bool {
	return name != "" && !strings.ContainsAny(name, ".- /\\")
}

type identityGenerator struct {
	fs       afero.Fs
	dir      string
	suffix   string
	registry namespace.Registry
	names    NameSource
}

// generate picks an unused name and creates its placeholder file. A name is
// rejected when it is registered or its file already exists; exclusive
// creation makes a racing creator count as a collision too.
func (g *identityGenerator) generate() (Identity, error) {
	dir, err := filepath.Abs(g.dir)
	if err != nil {
		return Identity{}, fmt.Errorf("resolving placeholder dir %q: %w", g.dir, err)
	}
	if err := g.fs.MkdirAll(dir, 0o755); err != nil {
		return Identity{}, fmt.Errorf("creating placeholder dir: %w", err)
	}

	for attempt := 0; attempt < identityAttempts; attempt++ {
		name := g.names()
		if _, taken := g.registry.Lookup(name); taken {
			continue
		}
		path := filepath.Join(dir, name+g.suffix)
		f, err := g.fs.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_EXCL, 0o644)
		if err != nil {
			if errors.Is(err, os.ErrExist) {
				continue
			}
			return Identity{}, fmt.Errorf("creating placeholder %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			_ = g.fs.Remove(path)
			return Identity{}, fmt.Errorf("creating placeholder %s: %w", path, err)
		}
		return Identity{Name: name, Path: path}, nil
	}
	return Identity{}, &InternalError{
		Component: "identity generator",
		Msg:       fmt.Sprintf("no unused module name found after %d attempts", identityAttempts),
	}
}
