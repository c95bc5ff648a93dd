// Copyright 2026 The Andastra Authors. All rights reserved.

package vk

import (
	vk "github.com/goki/vulkan"

	"github.com/andastra/graphics/hal"
)

var vkFormats = map[hal.Format]vk.Format{
	hal.FormatR8Unorm:        vk.FormatR8Unorm,
	hal.FormatRG8Unorm:       vk.FormatR8g8Unorm,
	hal.FormatRGBA8Unorm:     vk.FormatR8g8b8a8Unorm,
	hal.FormatRGBA8UnormSRGB: vk.FormatR8g8b8a8Srgb,
	hal.FormatBGRA8Unorm:     vk.FormatB8g8r8a8Unorm,
	hal.FormatBGRA8UnormSRGB: vk.FormatB8g8r8a8Srgb,
	hal.FormatR16Float:       vk.FormatR16Sfloat,
	hal.FormatRG16Float:      vk.FormatR16g16Sfloat,
	hal.FormatRGBA16Float:    vk.FormatR16g16b16a16Sfloat,
	hal.FormatR32Float:       vk.FormatR32Sfloat,
	hal.FormatRG32Float:      vk.FormatR32g32Sfloat,
	hal.FormatRGB32Float:     vk.FormatR32g32b32Sfloat,
	hal.FormatRGBA32Float:    vk.FormatR32g32b32a32Sfloat,
	hal.FormatR32Uint:        vk.FormatR32Uint,
	hal.FormatD16Unorm:       vk.FormatD16Unorm,
	hal.FormatD24UnormS8Uint: vk.FormatD24UnormS8Uint,
	hal.FormatD32Float:       vk.FormatD32Sfloat,
	hal.FormatD32FloatS8Uint: vk.FormatD32SfloatS8Uint,
}

// vkFormat translates a format, FormatUndefined for formats with
// no native equivalent.
func vkFormat(f hal.Format) vk.Format {
	return vkFormats[f]
}

// aspectMask returns the image aspect implied by the format.
func aspectMask(f hal.Format) vk.ImageAspectFlags {
	if !f.IsDepthStencil() {
		return vk.ImageAspectFlags(vk.ImageAspectColorBit)
	}
	m := vk.ImageAspectFlags(vk.ImageAspectDepthBit)
	if f.HasStencil() {
		m |= vk.ImageAspectFlags(vk.ImageAspectStencilBit)
	}
	return m
}

func sampleCount(n int) vk.SampleCountFlagBits {
	switch n {
	case 2:
		return vk.SampleCount2Bit
	case 4:
		return vk.SampleCount4Bit
	case 8:
		return vk.SampleCount8Bit
	default:
		return vk.SampleCount1Bit
	}
}

// imageLayout maps a tracked resource state to the layout images
// in that state are kept in.
func imageLayout(s hal.ResourceState) vk.ImageLayout {
	switch {
	case s == hal.StateUndefined:
		return vk.ImageLayoutUndefined
	case s&hal.StateRenderTarget != 0:
		return vk.ImageLayoutColorAttachmentOptimal
	case s&hal.StateDepthWrite != 0:
		return vk.ImageLayoutDepthStencilAttachmentOptimal
	case s&hal.StateDepthRead != 0:
		return vk.ImageLayoutDepthStencilReadOnlyOptimal
	case s&hal.StateShaderResource != 0:
		return vk.ImageLayoutShaderReadOnlyOptimal
	case s&hal.StateUnorderedAccess != 0:
		return vk.ImageLayoutGeneral
	case s&hal.StateCopyDest != 0:
		return vk.ImageLayoutTransferDstOptimal
	case s&hal.StateCopySource != 0:
		return vk.ImageLayoutTransferSrcOptimal
	case s&hal.StatePresent != 0:
		return vk.ImageLayoutPresentSrc
	default:
		return vk.ImageLayoutGeneral
	}
}

// accessFlags maps a resource state mask to the access mask used
// in memory barriers.
func accessFlags(s hal.ResourceState) vk.AccessFlags {
	var a vk.AccessFlags
	if s&hal.StateConstantBuffer != 0 {
		a |= vk.AccessFlags(vk.AccessUniformReadBit)
	}
	if s&hal.StateVertexBuffer != 0 {
		a |= vk.AccessFlags(vk.AccessVertexAttributeReadBit)
	}
	if s&hal.StateIndexBuffer != 0 {
		a |= vk.AccessFlags(vk.AccessIndexReadBit)
	}
	if s&hal.StateShaderResource != 0 {
		a |= vk.AccessFlags(vk.AccessShaderReadBit)
	}
	if s&hal.StateUnorderedAccess != 0 {
		a |= vk.AccessFlags(vk.AccessShaderReadBit | vk.AccessShaderWriteBit)
	}
	if s&hal.StateRenderTarget != 0 {
		a |= vk.AccessFlags(vk.AccessColorAttachmentReadBit | vk.AccessColorAttachmentWriteBit)
	}
	if s&hal.StateDepthWrite != 0 {
		a |= vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit | vk.AccessDepthStencilAttachmentWriteBit)
	}
	if s&hal.StateDepthRead != 0 {
		a |= vk.AccessFlags(vk.AccessDepthStencilAttachmentReadBit)
	}
	if s&hal.StateCopyDest != 0 {
		a |= vk.AccessFlags(vk.AccessTransferWriteBit)
	}
	if s&hal.StateCopySource != 0 {
		a |= vk.AccessFlags(vk.AccessTransferReadBit)
	}
	if s&hal.StateIndirectArgument != 0 {
		a |= vk.AccessFlags(vk.AccessIndirectCommandReadBit)
	}
	return a
}

func blendFactor(f hal.BlendFactor) vk.BlendFactor {
	switch f {
	case hal.BlendOne:
		return vk.BlendFactorOne
	case hal.BlendSrcAlpha:
		return vk.BlendFactorSrcAlpha
	case hal.BlendInvSrcAlpha:
		return vk.BlendFactorOneMinusSrcAlpha
	case hal.BlendSrcColor:
		return vk.BlendFactorSrcColor
	case hal.BlendInvSrcColor:
		return vk.BlendFactorOneMinusSrcColor
	case hal.BlendDstAlpha:
		return vk.BlendFactorDstAlpha
	case hal.BlendInvDstAlpha:
		return vk.BlendFactorOneMinusDstAlpha
	default:
		return vk.BlendFactorZero
	}
}

func compareOp(f hal.CompareFunc) vk.CompareOp {
	switch f {
	case hal.CompareLess:
		return vk.CompareOpLess
	case hal.CompareEqual:
		return vk.CompareOpEqual
	case hal.CompareLessEqual:
		return vk.CompareOpLessOrEqual
	case hal.CompareGreater:
		return vk.CompareOpGreater
	case hal.CompareNotEqual:
		return vk.CompareOpNotEqual
	case hal.CompareGreaterEqual:
		return vk.CompareOpGreaterOrEqual
	case hal.CompareAlways:
		return vk.CompareOpAlways
	default:
		return vk.CompareOpNever
	}
}

func primitiveTopology(t hal.PrimitiveTopology) vk.PrimitiveTopology {
	switch t {
	case hal.TopologyTriangleStrip:
		return vk.PrimitiveTopologyTriangleStrip
	case hal.TopologyLineList:
		return vk.PrimitiveTopologyLineList
	case hal.TopologyPointList:
		return vk.PrimitiveTopologyPointList
	default:
		return vk.PrimitiveTopologyTriangleList
	}
}

func cullMode(m hal.CullMode) vk.CullModeFlags {
	switch m {
	case hal.CullFront:
		return vk.CullModeFlags(vk.CullModeFrontBit)
	case hal.CullBack:
		return vk.CullModeFlags(vk.CullModeBackBit)
	default:
		return vk.CullModeFlags(vk.CullModeNone)
	}
}

func indexType(f hal.Format) vk.IndexType {
	if f == hal.FormatR32Uint {
		return vk.IndexTypeUint32
	}
	return vk.IndexTypeUint16
}

func samplerFilter(f hal.Filter) vk.Filter {
	if f == hal.FilterLinear {
		return vk.FilterLinear
	}
	return vk.FilterNearest
}

func samplerMipmapMode(f hal.Filter) vk.SamplerMipmapMode {
	if f == hal.FilterLinear {
		return vk.SamplerMipmapModeLinear
	}
	return vk.SamplerMipmapModeNearest
}

func samplerAddressMode(m hal.AddressMode) vk.SamplerAddressMode {
	switch m {
	case hal.AddressMirror:
		return vk.SamplerAddressModeMirroredRepeat
	case hal.AddressClamp:
		return vk.SamplerAddressModeClampToEdge
	case hal.AddressBorder:
		return vk.SamplerAddressModeClampToBorder
	default:
		return vk.SamplerAddressModeRepeat
	}
}
