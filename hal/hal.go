// Copyright 2026 The Andastra Authors. All rights reserved.

// Package hal defines an API-agnostic model of GPU resources and
// command recording.
// It is implemented independently by explicit native backends
// (Direct3D 12 and Vulkan), which register themselves here and are
// selected by name. Renderer code talks to the Device interface
// only; no native type leaks through the contract.
package hal

import (
	"log/slog"
	"sort"
	"sync"
)

// Backend is the interface that provides access to one native
// implementation of the Device contract.
type Backend interface {
	// Name returns the backend identifier (e.g. "d3d12", "vulkan").
	// It must not cause the backend to be opened.
	Name() string

	// Open creates a Device.
	// opts may be nil, in which case defaults apply.
	// Callers should assume that Open is not safe for parallel
	// execution.
	Open(opts *DeviceOptions) (Device, error)
}

// Variables used for backend registration.
var (
	regMu    sync.Mutex
	backends = make(map[string]Backend)
)

// Register registers a Backend.
// Backend implementations are expected to call Register exactly
// once, from an init function. A backend registered under a name
// already in use replaces the previous one.
func Register(b Backend) {
	regMu.Lock()
	defer regMu.Unlock()
	if _, ok := backends[b.Name()]; ok {
		slog.Warn("hal: backend replaced", "name", b.Name())
	}
	backends[b.Name()] = b
}

// Lookup returns the registered Backend with the given name,
// or nil if there is none.
func Lookup(name string) Backend {
	regMu.Lock()
	defer regMu.Unlock()
	return backends[name]
}

// Backends returns the names of all registered backends,
// sorted for determinism.
// Client code imports specific backend packages; backends that do
// not register themselves on init are not considered.
func Backends() []string {
	regMu.Lock()
	defer regMu.Unlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Destroyer is the interface that wraps the Destroy method.
// Types that implement this interface own native objects that are
// not managed by GC, so Destroy must be called explicitly.
// Destroying an object twice, or using it after Destroy, is a
// defined failure (ErrDisposed), not a silent no-op.
type Destroyer interface {
	Destroy() error
}
