// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

import (
	"fmt"

	"github.com/andastra/graphics/internal/bitvec"
)

// DescriptorHeapKind is the category of descriptor a heap holds.
type DescriptorHeapKind int

// Descriptor heap kinds.
const (
	HeapSampler DescriptorHeapKind = iota
	HeapDepthStencil
	HeapUnorderedAccess
)

// String returns the kind name.
func (k DescriptorHeapKind) String() string {
	switch k {
	case HeapSampler:
		return "Sampler"
	case HeapDepthStencil:
		return "DepthStencil"
	case HeapUnorderedAccess:
		return "UnorderedAccess"
	}
	return "DescriptorHeapKind(invalid)"
}

// DescriptorSlot is one allocated slot of a descriptor heap.
type DescriptorSlot struct {
	// Index is the slot index within the heap. Indices issued
	// by a heap are unique and strictly increasing.
	Index uint32
	// Addr is the CPU-visible descriptor address, computed as
	// heap start + index * increment.
	Addr uintptr
}

// viewKey identifies a cached texture view.
type viewKey struct {
	tex   Handle
	usage TextureUsage
}

// DescriptorHeap is a fixed-capacity bump allocator of
// GPU-visible descriptor slots of one kind. Capacity is fixed at
// device creation; allocation past it fails with ErrHeapFull.
//
// There is no reclamation: slot indices are permanently consumed
// for the heap's lifetime. Release only updates occupancy
// accounting, which keeps the allocator trivial; a free list per
// heap is the designated extension point if reclamation is ever
// needed.
type DescriptorHeap struct {
	kind      DescriptorHeapKind
	capacity  uint32
	increment uint32
	start     uintptr
	next      uint32
	used      bitvec.V
	views     map[viewKey]DescriptorSlot
}

// NewDescriptorHeap creates a heap of the given fixed capacity.
// start and increment are backend-reported: the native heap base
// address and the per-kind descriptor increment size.
func NewDescriptorHeap(kind DescriptorHeapKind, capacity int, start uintptr, increment uint32) (*DescriptorHeap, error) {
	if capacity <= 0 {
		return nil, argErr("NewDescriptorHeap", fmt.Sprintf("non-positive capacity %d", capacity))
	}
	return &DescriptorHeap{
		kind:      kind,
		capacity:  uint32(capacity),
		increment: increment,
		start:     start,
		views:     make(map[viewKey]DescriptorSlot),
	}, nil
}

// Kind returns the descriptor kind the heap holds.
func (h *DescriptorHeap) Kind() DescriptorHeapKind { return h.kind }

// Cap returns the fixed capacity.
func (h *DescriptorHeap) Cap() int { return int(h.capacity) }

// Allocated returns the number of slots consumed so far.
func (h *DescriptorHeap) Allocated() int { return int(h.next) }

// InUse returns the number of allocated slots not yet released.
func (h *DescriptorHeap) InUse() int { return h.used.Len() }

// Alloc returns the next free slot.
// Exhausting the heap is a fatal configuration error surfaced as
// ErrHeapFull.
func (h *DescriptorHeap) Alloc() (DescriptorSlot, error) {
	if h.next == h.capacity {
		return DescriptorSlot{}, fmt.Errorf("%s heap: %w (capacity %d)", h.kind, ErrHeapFull, h.capacity)
	}
	i := h.next
	h.next++
	h.used.Set(int(i))
	return DescriptorSlot{
		Index: i,
		Addr:  h.start + uintptr(i)*uintptr(h.increment),
	}, nil
}

// View returns the cached slot for the (texture, usage) pair,
// allocating one on first request. Repeated view requests for
// the same pair reuse the existing slot instead of consuming a
// new one.
func (h *DescriptorHeap) View(tex Handle, usage TextureUsage) (slot DescriptorSlot, created bool, err error) {
	k := viewKey{tex, usage}
	if s, ok := h.views[k]; ok {
		return s, false, nil
	}
	s, err := h.Alloc()
	if err != nil {
		return DescriptorSlot{}, false, err
	}
	h.views[k] = s
	return s, true, nil
}

// Release returns a slot to the heap. Under the bump-allocator
// policy the index is not reusable; only occupancy accounting
// changes. Cached views keep their slots until the heap itself
// is dropped.
func (h *DescriptorHeap) Release(s DescriptorSlot) {
	h.used.Unset(int(s.Index))
}

// DropViews removes cached view entries for a destroyed texture.
// The underlying slots stay consumed.
func (h *DescriptorHeap) DropViews(tex Handle) {
	for k, s := range h.views {
		if k.tex == tex {
			h.used.Unset(int(s.Index))
			delete(h.views, k)
		}
	}
}
