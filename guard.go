package nbtest

import (
	"errors"
	"fmt"

	"github.com/daios-ai/nbtest/namespace"
)

// Guard installs a namespace in a module registry under a session identity
// and overlays its source path key, then undoes both.
//
// Enter and Exit are strictly paired: Exit on a guard that was never entered
// is a no-op, a second Exit fails with ErrGuardReleased.
type Guard struct {
	ns       namespace.Namespace
	registry namespace.Registry
	id       Identity

	overlay  *namespace.Overlay
	entered  bool
	released bool
}

// NewGuard returns an inert guard.
func NewGuard(ns namespace.Namespace, registry namespace.Registry, id Identity) *Guard {
	return &Guard{ns: ns, registry: registry, id: id}
}

// Enter validates the identity, overlays the source path and registers the
// namespace. A failure leaves the namespace and the registry untouched.
func (g *Guard) Enter() error {
	if g.entered {
		return fmt.Errorf("%s: %w", g.id.Name, ErrGuardEntered)
	}
	if !ValidModuleName(g.id.Name) {
		return &InternalError{
			Component: "registration guard",
			Msg:       fmt.Sprintf("invalid module name %q generated", g.id.Name),
		}
	}
	if _, taken := g.registry.Lookup(g.id.Name); taken {
		return &InternalError{
			Component: "registration guard",
			Msg:       fmt.Sprintf("cannot register module %q: it would override an existing module", g.id.Name),
		}
	}

	ov := namespace.Override(g.ns, namespace.SourcePathKey, g.id.Path)
	if err := g.registry.Insert(g.id.Name, g.ns); err != nil {
		ierr := &InternalError{Component: "registration guard", Msg: err.Error()}
		return errors.Join(ierr, ov.Restore())
	}
	g.overlay = ov
	g.entered = true
	return nil
}

// Exit removes the registry entry, then restores the source path key.
// Both steps run even when the first fails.
func (g *Guard) Exit() error {
	if !g.entered {
		return nil
	}
	if g.released {
		return fmt.Errorf("%s: %w", g.id.Name, ErrGuardReleased)
	}
	g.released = true
	return errors.Join(g.registry.Remove(g.id.Name), g.overlay.Restore())
}
