// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistryHandlesMonotonic(t *testing.T) {
	r := NewRegistry()
	h1 := r.Add("a")
	h2 := r.Add("b")
	require.True(t, h1.IsValid())
	assert.Equal(t, h1+1, h2)
	assert.Equal(t, "a", r.Lookup(h1))
	assert.Equal(t, "b", r.Lookup(h2))
	assert.Equal(t, 2, r.Live())
}

func TestRegistryNoReuseAfterRemove(t *testing.T) {
	r := NewRegistry()
	h1 := r.Add("a")
	require.NoError(t, r.Remove(h1))
	h2 := r.Add("b")
	assert.NotEqual(t, h1, h2, "handles are never reused")
	assert.Nil(t, r.Lookup(h1))
}

func TestRegistryRemoveErrors(t *testing.T) {
	r := NewRegistry()
	h := r.Add("a")
	require.NoError(t, r.Remove(h))

	err := r.Remove(h)
	assert.ErrorIs(t, err, ErrDisposed, "double removal is a distinct failure")

	err = r.Remove(Handle(999))
	assert.ErrorIs(t, err, ErrInvalidArgument, "never-issued handles fail validation")

	err = r.Remove(Handle(0))
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestRegistryLeaked(t *testing.T) {
	r := NewRegistry()
	h1 := r.Add("a")
	h2 := r.Add("b")
	h3 := r.Add("c")
	require.NoError(t, r.Remove(h2))
	assert.Equal(t, []Handle{h1, h3}, r.Leaked())
}
