// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

import (
	"errors"
	"fmt"
)

// ErrInvalidArgument means that a descriptor or call argument is
// malformed (zero size, missing required field). No partial
// resource is left registered when a call fails with it.
var ErrInvalidArgument = errors.New("hal: invalid argument")

// ErrUnsupported means that the device lacks a capability required
// by the call (e.g. raytracing, or a backend whose native API is
// unavailable on this platform). It is distinct from
// ErrInvalidArgument so callers can branch on "unsupported"
// versus "bad arguments".
var ErrUnsupported = errors.New("hal: not supported")

// ErrDisposed means that a call was made on a destroyed device or
// resource, or that an object was destroyed twice.
var ErrDisposed = errors.New("hal: object destroyed")

// ErrHeapFull means that a descriptor heap ran out of slots.
// Descriptor memory is fixed at device creation time; exhausting
// it is a fatal configuration error, not a transient condition.
var ErrHeapFull = errors.New("hal: descriptor heap exhausted")

// ErrRecording means that a command list method was called in the
// wrong state (e.g. recording into a list that is not open).
var ErrRecording = errors.New("hal: invalid command list state")

// ErrNotBuilt means that an acceleration structure was referenced
// by an operation that requires it to have been built and
// submitted already.
var ErrNotBuilt = errors.New("hal: acceleration structure not built")

// NativeError wraps a failure status returned by a native API
// call. Any native sub-objects already created for the failing
// operation are released before a NativeError propagates.
type NativeError struct {
	// Op is the operation that failed, e.g. "vkCreateBuffer" or
	// "ID3D12Device::CreateCommittedResource".
	Op string
	// Status is the native status code (VkResult or HRESULT).
	Status int64
}

func (e *NativeError) Error() string {
	return fmt.Sprintf("hal: %s failed with native status %#x", e.Op, uint64(e.Status))
}

// argErr wraps ErrInvalidArgument with call context.
func argErr(op, detail string) error {
	return fmt.Errorf("%s: %w: %s", op, ErrInvalidArgument, detail)
}

// unsupportedErr wraps ErrUnsupported with call context.
func unsupportedErr(op, detail string) error {
	return fmt.Errorf("%s: %w: %s", op, ErrUnsupported, detail)
}
