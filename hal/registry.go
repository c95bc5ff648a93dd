// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

import (
	"fmt"

	"github.com/andastra/graphics/internal/bitvec"
)

// Registry is the device-owned arena mapping handles to resource
// wrappers. Each device owns exactly one; there is no ambient
// state. Handles increase monotonically and are never reused, so
// a destroyed handle can be told apart from one that never
// existed.
//
// The registry is not internally synchronized; the contract
// assumes a single driving thread per device.
type Registry struct {
	next Handle
	res  map[Handle]any
	live bitvec.V
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{res: make(map[Handle]any)}
}

// Add registers a wrapper and issues its handle.
// Callers must validate the descriptor first: the handle counter
// only advances for resources that actually register.
func (r *Registry) Add(wrapper any) Handle {
	r.next++
	h := r.next
	r.res[h] = wrapper
	r.live.Set(int(h))
	return h
}

// Lookup returns the wrapper registered under h, or nil.
func (r *Registry) Lookup(h Handle) any {
	return r.res[h]
}

// Remove unregisters h.
// Removing a handle twice fails with ErrDisposed; removing a
// handle that was never issued fails with ErrInvalidArgument.
func (r *Registry) Remove(h Handle) error {
	if h == 0 || h > r.next {
		return fmt.Errorf("registry: %w: handle %d never issued", ErrInvalidArgument, h)
	}
	if !r.live.IsSet(int(h)) {
		return fmt.Errorf("registry: %w: handle %d", ErrDisposed, h)
	}
	r.live.Unset(int(h))
	delete(r.res, h)
	return nil
}

// Live returns the number of registered wrappers.
func (r *Registry) Live() int { return r.live.Len() }

// NextIssued returns the value the next issued handle will have.
// Tests use it to verify that failed creation calls do not
// advance the counter.
func (r *Registry) NextIssued() Handle { return r.next + 1 }

// Leaked returns the handles still registered, in issue order.
// Devices report these when destroyed with live resources.
func (r *Registry) Leaked() []Handle {
	var hs []Handle
	for i := r.live.NextSet(0); i >= 0; i = r.live.NextSet(i + 1) {
		hs = append(hs, Handle(i))
	}
	return hs
}
