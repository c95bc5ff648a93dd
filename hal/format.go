// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

// Format describes the layout of texel or vertex data.
type Format int

// Formats.
const (
	FormatUnknown Format = iota
	// Color, 8-bit channels.
	FormatR8Unorm
	FormatRG8Unorm
	FormatRGBA8Unorm
	FormatRGBA8UnormSRGB
	FormatBGRA8Unorm
	FormatBGRA8UnormSRGB
	// Color, 16-bit channels.
	FormatR16Float
	FormatRG16Float
	FormatRGBA16Float
	// Color, 32-bit channels.
	FormatR32Float
	FormatRG32Float
	FormatRGB32Float
	FormatRGBA32Float
	FormatR32Uint
	// Depth/stencil.
	FormatD16Unorm
	FormatD24UnormS8Uint
	FormatD32Float
	FormatD32FloatS8Uint

	formatN
)

// formatInfo describes fixed per-format properties.
type formatInfo struct {
	name    string
	size    int // bytes per texel
	depth   bool
	stencil bool
}

var formatInfos = [formatN]formatInfo{
	FormatUnknown:        {"Unknown", 0, false, false},
	FormatR8Unorm:        {"R8Unorm", 1, false, false},
	FormatRG8Unorm:       {"RG8Unorm", 2, false, false},
	FormatRGBA8Unorm:     {"RGBA8Unorm", 4, false, false},
	FormatRGBA8UnormSRGB: {"RGBA8UnormSRGB", 4, false, false},
	FormatBGRA8Unorm:     {"BGRA8Unorm", 4, false, false},
	FormatBGRA8UnormSRGB: {"BGRA8UnormSRGB", 4, false, false},
	FormatR16Float:       {"R16Float", 2, false, false},
	FormatRG16Float:      {"RG16Float", 4, false, false},
	FormatRGBA16Float:    {"RGBA16Float", 8, false, false},
	FormatR32Float:       {"R32Float", 4, false, false},
	FormatRG32Float:      {"RG32Float", 8, false, false},
	FormatRGB32Float:     {"RGB32Float", 12, false, false},
	FormatRGBA32Float:    {"RGBA32Float", 16, false, false},
	FormatR32Uint:        {"R32Uint", 4, false, false},
	FormatD16Unorm:       {"D16Unorm", 2, true, false},
	FormatD24UnormS8Uint: {"D24UnormS8Uint", 4, true, true},
	FormatD32Float:       {"D32Float", 4, true, false},
	FormatD32FloatS8Uint: {"D32FloatS8Uint", 8, true, true},
}

// String returns the format name.
func (f Format) String() string {
	if f < 0 || f >= formatN {
		return "Format(invalid)"
	}
	return formatInfos[f].name
}

// Size returns the number of bytes per texel, or per element for
// vertex formats.
func (f Format) Size() int {
	if f < 0 || f >= formatN {
		return 0
	}
	return formatInfos[f].size
}

// HasDepth returns whether f has a depth aspect.
func (f Format) HasDepth() bool {
	return f >= 0 && f < formatN && formatInfos[f].depth
}

// HasStencil returns whether f has a stencil aspect.
func (f Format) HasStencil() bool {
	return f >= 0 && f < formatN && formatInfos[f].stencil
}

// IsDepthStencil returns whether f has a depth or stencil aspect.
func (f Format) IsDepthStencil() bool { return f.HasDepth() || f.HasStencil() }

// ResourceState is a mask of GPU-visible usages a resource is
// currently in. Resources must be transitioned explicitly before
// being used in a state-incompatible way.
type ResourceState int

// Resource states.
const (
	StateCommon ResourceState = 1 << iota
	StateConstantBuffer
	StateVertexBuffer
	StateIndexBuffer
	StateShaderResource
	StateUnorderedAccess
	StateRenderTarget
	StateDepthWrite
	StateDepthRead
	StateCopyDest
	StateCopySource
	StateIndirectArgument
	StateAccelStructRead
	StateAccelStructWrite
	StateAccelStructBuildInput
	StatePresent

	StateUndefined ResourceState = 0
)
