// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackGroupsByVisibilityAndClass(t *testing.T) {
	desc := BindingLayoutDesc{Items: []BindingLayoutItem{
		{Type: BindingConstantBuffer, Slot: 0, Visibility: VisibleVertex},
		{Type: BindingTexture, Slot: 1, Visibility: VisiblePixel},
		{Type: BindingTexture, Slot: 2, Visibility: VisiblePixel},
	}}
	tables, err := PackBindingTables(&desc)
	require.NoError(t, err)
	require.Len(t, tables, 2, "textures must share one table, constant buffer gets its own")

	cb := tables[0]
	assert.Equal(t, VisibleVertex, cb.Visibility)
	require.Len(t, cb.Ranges, 1)
	assert.Equal(t, BindingConstantBuffer, cb.Ranges[0].Type)
	assert.Equal(t, 1, cb.Descriptors)

	tex := tables[1]
	assert.Equal(t, VisiblePixel, tex.Visibility)
	require.Len(t, tex.Ranges, 2)
	assert.Equal(t, 1, tex.Ranges[0].BaseSlot)
	assert.Equal(t, 0, tex.Ranges[0].Offset)
	assert.Equal(t, 2, tex.Ranges[1].BaseSlot)
	assert.Equal(t, 1, tex.Ranges[1].Offset)
	assert.Equal(t, 2, tex.Descriptors)
}

func TestPackSamplersSeparate(t *testing.T) {
	desc := BindingLayoutDesc{Items: []BindingLayoutItem{
		{Type: BindingTexture, Slot: 0, Visibility: VisiblePixel},
		{Type: BindingSampler, Slot: 0, Visibility: VisiblePixel},
	}}
	tables, err := PackBindingTables(&desc)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, ClassResource, tables[0].Class)
	assert.Equal(t, ClassSampler, tables[1].Class)
}

func TestPackSortsBySlot(t *testing.T) {
	desc := BindingLayoutDesc{Items: []BindingLayoutItem{
		{Type: BindingTexture, Slot: 5, Visibility: VisiblePixel},
		{Type: BindingTexture, Slot: 1, Count: 3, Visibility: VisiblePixel},
		{Type: BindingStructuredBuffer, Slot: 0, Visibility: VisiblePixel},
	}}
	tables, err := PackBindingTables(&desc)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	tab := tables[0]
	require.Len(t, tab.Ranges, 3)
	assert.Equal(t, []int{0, 1, 5}, []int{
		tab.Ranges[0].BaseSlot, tab.Ranges[1].BaseSlot, tab.Ranges[2].BaseSlot,
	})
	// Offsets are sequential across the packed table.
	assert.Equal(t, 0, tab.Ranges[0].Offset)
	assert.Equal(t, 1, tab.Ranges[1].Offset)
	assert.Equal(t, 4, tab.Ranges[2].Offset)
	assert.Equal(t, 5, tab.Descriptors)
}

func TestPackDefaultsVisibilityToAll(t *testing.T) {
	desc := BindingLayoutDesc{Items: []BindingLayoutItem{
		{Type: BindingConstantBuffer, Slot: 0},
		{Type: BindingTexture, Slot: 1, Visibility: VisibleAll},
	}}
	tables, err := PackBindingTables(&desc)
	require.NoError(t, err)
	require.Len(t, tables, 1)
	assert.Equal(t, VisibleAll, tables[0].Visibility)
}

func TestPackValidation(t *testing.T) {
	_, err := PackBindingTables(&BindingLayoutDesc{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	dup := BindingLayoutDesc{Items: []BindingLayoutItem{
		{Type: BindingTexture, Slot: 3, Visibility: VisiblePixel},
		{Type: BindingTexture, Slot: 2, Count: 2, Visibility: VisiblePixel},
	}}
	_, err = PackBindingTables(&dup)
	assert.ErrorIs(t, err, ErrInvalidArgument, "overlapping slots in one register space must be rejected")

	ok := BindingLayoutDesc{Items: []BindingLayoutItem{
		{Type: BindingTexture, Slot: 3, Visibility: VisiblePixel},
		{Type: BindingRWTexture, Slot: 3, Visibility: VisiblePixel},
	}}
	_, err = PackBindingTables(&ok)
	assert.NoError(t, err, "same slot in different register spaces is legal")

	neg := BindingLayoutDesc{Items: []BindingLayoutItem{
		{Type: BindingTexture, Slot: -1},
	}}
	_, err = PackBindingTables(&neg)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestBindingSetDescValidate(t *testing.T) {
	err := (&BindingSetDesc{}).Validate()
	assert.ErrorIs(t, err, ErrInvalidArgument)

	err = (&BindingSetDesc{Items: []BindingSetItem{{Type: BindingTexture}}}).Validate()
	assert.ErrorIs(t, err, ErrInvalidArgument, "item with no resource must be rejected")
}
