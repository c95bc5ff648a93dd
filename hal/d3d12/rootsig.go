// Copyright 2026 The Andastra Authors. All rights reserved.

package d3d12

import (
	"github.com/andastra/graphics/hal"
)

// Root signature records. Field layout matches the native
// D3D12_ROOT_* structures so the slices can be serialized
// directly; translation from packed binding tables is portable
// and tested off-Windows.

const (
	DESCRIPTOR_RANGE_TYPE_SRV     = 0
	DESCRIPTOR_RANGE_TYPE_UAV     = 1
	DESCRIPTOR_RANGE_TYPE_CBV     = 2
	DESCRIPTOR_RANGE_TYPE_SAMPLER = 3

	ROOT_PARAMETER_TYPE_DESCRIPTOR_TABLE = 0

	SHADER_VISIBILITY_ALL    = 0
	SHADER_VISIBILITY_VERTEX = 1
	SHADER_VISIBILITY_PIXEL  = 5

	ROOT_SIGNATURE_FLAG_ALLOW_INPUT_ASSEMBLER_INPUT_LAYOUT = 0x1

	ROOT_SIGNATURE_VERSION_1 = 1
)

type DESCRIPTOR_RANGE struct {
	RangeType                         uint32
	NumDescriptors                    uint32
	BaseShaderRegister                uint32
	RegisterSpace                     uint32
	OffsetInDescriptorsFromTableStart uint32
}

type ROOT_DESCRIPTOR_TABLE struct {
	NumDescriptorRanges uint32
	PDescriptorRanges   *DESCRIPTOR_RANGE
}

type ROOT_PARAMETER struct {
	ParameterType    uint32
	DescriptorTable  ROOT_DESCRIPTOR_TABLE
	ShaderVisibility uint32
}

type ROOT_SIGNATURE_DESC struct {
	NumParameters     uint32
	PParameters       *ROOT_PARAMETER
	NumStaticSamplers uint32
	PStaticSamplers   uintptr
	Flags             uint32
}

// rangeType maps a binding type to its descriptor range type.
func rangeType(t hal.BindingType) uint32 {
	switch t {
	case hal.BindingConstantBuffer:
		return DESCRIPTOR_RANGE_TYPE_CBV
	case hal.BindingRWTexture, hal.BindingRWBuffer:
		return DESCRIPTOR_RANGE_TYPE_UAV
	case hal.BindingSampler:
		return DESCRIPTOR_RANGE_TYPE_SAMPLER
	default:
		return DESCRIPTOR_RANGE_TYPE_SRV
	}
}

// shaderVisibility maps a visibility mask to the native enum. The
// native enum names single stages only; any mask spanning stages
// collapses to ALL.
func shaderVisibility(v hal.ShaderVisibility) uint32 {
	switch v {
	case hal.VisibleVertex:
		return SHADER_VISIBILITY_VERTEX
	case hal.VisiblePixel:
		return SHADER_VISIBILITY_PIXEL
	default:
		return SHADER_VISIBILITY_ALL
	}
}

// rootParameters translates packed binding tables into root
// parameter records, one descriptor table per packed table. The
// returned ranges backing slice keeps the per-parameter range
// pointers alive for the duration of serialization.
func rootParameters(tables []hal.BindingTable) ([]ROOT_PARAMETER, [][]DESCRIPTOR_RANGE) {
	params := make([]ROOT_PARAMETER, len(tables))
	ranges := make([][]DESCRIPTOR_RANGE, len(tables))
	for i, tab := range tables {
		rs := make([]DESCRIPTOR_RANGE, len(tab.Ranges))
		for j, r := range tab.Ranges {
			rs[j] = DESCRIPTOR_RANGE{
				RangeType:                         rangeType(r.Type),
				NumDescriptors:                    uint32(r.Count),
				BaseShaderRegister:                uint32(r.BaseSlot),
				OffsetInDescriptorsFromTableStart: uint32(r.Offset),
			}
		}
		ranges[i] = rs
		params[i] = ROOT_PARAMETER{
			ParameterType: ROOT_PARAMETER_TYPE_DESCRIPTOR_TABLE,
			DescriptorTable: ROOT_DESCRIPTOR_TABLE{
				NumDescriptorRanges: uint32(len(rs)),
				PDescriptorRanges:   &rs[0],
			},
			ShaderVisibility: shaderVisibility(tab.Visibility),
		}
	}
	return params, ranges
}

// rootSignatureDesc assembles the serializable descriptor for a
// parameter list.
func rootSignatureDesc(params []ROOT_PARAMETER) ROOT_SIGNATURE_DESC {
	d := ROOT_SIGNATURE_DESC{
		NumParameters: uint32(len(params)),
		Flags:         ROOT_SIGNATURE_FLAG_ALLOW_INPUT_ASSEMBLER_INPUT_LAYOUT,
	}
	if len(params) > 0 {
		d.PParameters = &params[0]
	}
	return d
}
