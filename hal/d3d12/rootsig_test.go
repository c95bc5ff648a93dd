// Copyright 2026 The Andastra Authors. All rights reserved.

package d3d12

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andastra/graphics/hal"
)

func TestRangeType(t *testing.T) {
	assert.Equal(t, uint32(DESCRIPTOR_RANGE_TYPE_CBV), rangeType(hal.BindingConstantBuffer))
	assert.Equal(t, uint32(DESCRIPTOR_RANGE_TYPE_UAV), rangeType(hal.BindingRWTexture))
	assert.Equal(t, uint32(DESCRIPTOR_RANGE_TYPE_UAV), rangeType(hal.BindingRWBuffer))
	assert.Equal(t, uint32(DESCRIPTOR_RANGE_TYPE_SAMPLER), rangeType(hal.BindingSampler))
	assert.Equal(t, uint32(DESCRIPTOR_RANGE_TYPE_SRV), rangeType(hal.BindingTexture))
	assert.Equal(t, uint32(DESCRIPTOR_RANGE_TYPE_SRV), rangeType(hal.BindingStructuredBuffer))
	assert.Equal(t, uint32(DESCRIPTOR_RANGE_TYPE_SRV), rangeType(hal.BindingAccelStruct))
}

func TestShaderVisibility(t *testing.T) {
	assert.Equal(t, uint32(SHADER_VISIBILITY_VERTEX), shaderVisibility(hal.VisibleVertex))
	assert.Equal(t, uint32(SHADER_VISIBILITY_PIXEL), shaderVisibility(hal.VisiblePixel))
	// Multi-stage masks have no single-stage native value.
	assert.Equal(t, uint32(SHADER_VISIBILITY_ALL), shaderVisibility(hal.VisibleVertex|hal.VisiblePixel))
	assert.Equal(t, uint32(SHADER_VISIBILITY_ALL), shaderVisibility(hal.VisibleAll))
	assert.Equal(t, uint32(SHADER_VISIBILITY_ALL), shaderVisibility(hal.VisibleCompute))
}

func TestRootParameters(t *testing.T) {
	tables, err := hal.PackBindingTables(&hal.BindingLayoutDesc{
		Items: []hal.BindingLayoutItem{
			{Type: hal.BindingConstantBuffer, Slot: 0, Visibility: hal.VisibleVertex},
			{Type: hal.BindingTexture, Slot: 3, Count: 2, Visibility: hal.VisiblePixel},
			{Type: hal.BindingConstantBuffer, Slot: 1, Visibility: hal.VisiblePixel},
			{Type: hal.BindingSampler, Slot: 0, Visibility: hal.VisiblePixel},
		},
	})
	require.NoError(t, err)
	require.Len(t, tables, 3)

	params, ranges := rootParameters(tables)
	require.Len(t, params, 3)
	require.Len(t, ranges, 3)

	for i, p := range params {
		assert.Equal(t, uint32(ROOT_PARAMETER_TYPE_DESCRIPTOR_TABLE), p.ParameterType)
		assert.Equal(t, uint32(len(ranges[i])), p.DescriptorTable.NumDescriptorRanges)
		require.NotNil(t, p.DescriptorTable.PDescriptorRanges)
		assert.Equal(t, &ranges[i][0], p.DescriptorTable.PDescriptorRanges)
	}

	// Vertex-visible resources.
	assert.Equal(t, uint32(SHADER_VISIBILITY_VERTEX), params[0].ShaderVisibility)
	require.Len(t, ranges[0], 1)
	assert.Equal(t, DESCRIPTOR_RANGE{
		RangeType:      DESCRIPTOR_RANGE_TYPE_CBV,
		NumDescriptors: 1,
	}, ranges[0][0])

	// Pixel-visible resources, slot-sorted with sequential
	// offsets.
	assert.Equal(t, uint32(SHADER_VISIBILITY_PIXEL), params[1].ShaderVisibility)
	require.Len(t, ranges[1], 2)
	assert.Equal(t, DESCRIPTOR_RANGE{
		RangeType:          DESCRIPTOR_RANGE_TYPE_CBV,
		NumDescriptors:     1,
		BaseShaderRegister: 1,
	}, ranges[1][0])
	assert.Equal(t, DESCRIPTOR_RANGE{
		RangeType:                         DESCRIPTOR_RANGE_TYPE_SRV,
		NumDescriptors:                    2,
		BaseShaderRegister:                3,
		OffsetInDescriptorsFromTableStart: 1,
	}, ranges[1][1])

	// Pixel-visible samplers pack separately.
	assert.Equal(t, uint32(SHADER_VISIBILITY_PIXEL), params[2].ShaderVisibility)
	require.Len(t, ranges[2], 1)
	assert.Equal(t, uint32(DESCRIPTOR_RANGE_TYPE_SAMPLER), ranges[2][0].RangeType)
}

func TestRootSignatureDesc(t *testing.T) {
	d := rootSignatureDesc(nil)
	assert.Zero(t, d.NumParameters)
	assert.Nil(t, d.PParameters)
	assert.Equal(t, uint32(ROOT_SIGNATURE_FLAG_ALLOW_INPUT_ASSEMBLER_INPUT_LAYOUT), d.Flags)

	params := []ROOT_PARAMETER{{}, {}}
	d = rootSignatureDesc(params)
	assert.Equal(t, uint32(2), d.NumParameters)
	assert.Equal(t, &params[0], d.PParameters)
}
