// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHeapAllocStrictlyIncreasing(t *testing.T) {
	const capacity = 16
	h, err := NewDescriptorHeap(HeapSampler, capacity, 0x4000, 32)
	require.NoError(t, err)

	prev := -1
	for i := 0; i < capacity; i++ {
		s, err := h.Alloc()
		require.NoError(t, err)
		require.Greater(t, int(s.Index), prev, "slot indices must be unique and strictly increasing")
		prev = int(s.Index)
		assert.Equal(t, uintptr(0x4000)+uintptr(s.Index)*32, s.Addr)
	}
	_, err = h.Alloc()
	assert.ErrorIs(t, err, ErrHeapFull, "allocation past fixed capacity must fail")
}

func TestHeapReleaseDoesNotReclaim(t *testing.T) {
	h, err := NewDescriptorHeap(HeapDepthStencil, 4, 0, 64)
	require.NoError(t, err)
	s0, err := h.Alloc()
	require.NoError(t, err)
	h.Release(s0)
	s1, err := h.Alloc()
	require.NoError(t, err)
	assert.Greater(t, s1.Index, s0.Index, "released indices are permanently consumed")
	assert.Equal(t, 2, h.Allocated())
	assert.Equal(t, 1, h.InUse())
}

func TestHeapViewCache(t *testing.T) {
	h, err := NewDescriptorHeap(HeapUnorderedAccess, 8, 0, 128)
	require.NoError(t, err)

	const tex = Handle(7)
	s0, created, err := h.View(tex, TextureUnorderedAccess)
	require.NoError(t, err)
	assert.True(t, created)

	s1, created, err := h.View(tex, TextureUnorderedAccess)
	require.NoError(t, err)
	assert.False(t, created, "repeated view request must reuse the slot")
	assert.Equal(t, s0, s1)
	assert.Equal(t, 1, h.Allocated())

	// A different usage of the same texture is a different view.
	s2, created, err := h.View(tex, TextureShaderResource)
	require.NoError(t, err)
	assert.True(t, created)
	assert.NotEqual(t, s0.Index, s2.Index)

	h.DropViews(tex)
	assert.Equal(t, 0, h.InUse())
	s3, created, err := h.View(tex, TextureUnorderedAccess)
	require.NoError(t, err)
	assert.True(t, created, "dropped views must not be served from the cache")
	assert.NotEqual(t, s0.Index, s3.Index)
}

func TestHeapRejectsBadCapacity(t *testing.T) {
	_, err := NewDescriptorHeap(HeapSampler, 0, 0, 32)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}
