package main

import (
	"os"

	"github.com/google/uuid"

	"github.com/axesdev/axes/internal/context"
	"github.com/axesdev/axes/internal/identity"
	"github.com/axesdev/axes/internal/layer"
)

// openStore opens the identity store at its well-known location,
// creating it (in memory, persisted on first mutation) if absent.
func openStore() (*identity.Store, error) {
	path, err := identity.DefaultStorePath()
	if err != nil {
		return nil, err
	}
	return identity.Open(path)
}

// newLoader builds a config loader backed by the default compiled-layer
// cache directory.
func newLoader(store *identity.Store) (*layer.Loader, error) {
	cacheDir, err := layer.DefaultCacheDir()
	if err != nil {
		return nil, err
	}
	return layer.New(store, cacheDir), nil
}

// resolve resolves a context token against store, honoring the active
// session (AXES_SESSION) the way every subcommand below does.
func resolve(store *identity.Store, text string) (context.Result, error) {
	in := context.Input{Text: text, Store: store}
	if v := os.Getenv(context.SessionEnvVar); v != "" {
		if id, err := uuid.Parse(v); err == nil {
			in.Session = id
			in.HasSession = true
		}
	}
	return context.Resolve(in)
}
