// Copyright 2026 The Andastra Authors. All rights reserved.

package d3d12

import "github.com/andastra/graphics/hal"

// DXGI format values, from dxgiformat.h.
const (
	DXGI_FORMAT_UNKNOWN             = 0
	DXGI_FORMAT_R32G32B32A32_FLOAT  = 2
	DXGI_FORMAT_R32G32B32_FLOAT     = 6
	DXGI_FORMAT_R16G16B16A16_FLOAT  = 10
	DXGI_FORMAT_R32G32_FLOAT        = 16
	DXGI_FORMAT_R8G8B8A8_UNORM      = 28
	DXGI_FORMAT_R8G8B8A8_UNORM_SRGB = 29
	DXGI_FORMAT_R16G16_FLOAT        = 34
	DXGI_FORMAT_D32_FLOAT           = 40
	DXGI_FORMAT_R32_FLOAT           = 41
	DXGI_FORMAT_R32_UINT            = 42
	DXGI_FORMAT_D24_UNORM_S8_UINT   = 45
	DXGI_FORMAT_R8G8_UNORM          = 49
	DXGI_FORMAT_R16_FLOAT           = 54
	DXGI_FORMAT_D16_UNORM           = 55
	DXGI_FORMAT_R8_UNORM            = 61
	DXGI_FORMAT_B8G8R8A8_UNORM      = 87
	DXGI_FORMAT_B8G8R8A8_UNORM_SRGB = 91
	DXGI_FORMAT_D32_FLOAT_S8X24     = 20
)

var dxgiFormats = map[hal.Format]uint32{
	hal.FormatR8Unorm:        DXGI_FORMAT_R8_UNORM,
	hal.FormatRG8Unorm:       DXGI_FORMAT_R8G8_UNORM,
	hal.FormatRGBA8Unorm:     DXGI_FORMAT_R8G8B8A8_UNORM,
	hal.FormatRGBA8UnormSRGB: DXGI_FORMAT_R8G8B8A8_UNORM_SRGB,
	hal.FormatBGRA8Unorm:     DXGI_FORMAT_B8G8R8A8_UNORM,
	hal.FormatBGRA8UnormSRGB: DXGI_FORMAT_B8G8R8A8_UNORM_SRGB,
	hal.FormatR16Float:       DXGI_FORMAT_R16_FLOAT,
	hal.FormatRG16Float:      DXGI_FORMAT_R16G16_FLOAT,
	hal.FormatRGBA16Float:    DXGI_FORMAT_R16G16B16A16_FLOAT,
	hal.FormatR32Float:       DXGI_FORMAT_R32_FLOAT,
	hal.FormatRG32Float:      DXGI_FORMAT_R32G32_FLOAT,
	hal.FormatRGB32Float:     DXGI_FORMAT_R32G32B32_FLOAT,
	hal.FormatRGBA32Float:    DXGI_FORMAT_R32G32B32A32_FLOAT,
	hal.FormatR32Uint:        DXGI_FORMAT_R32_UINT,
	hal.FormatD16Unorm:       DXGI_FORMAT_D16_UNORM,
	hal.FormatD24UnormS8Uint: DXGI_FORMAT_D24_UNORM_S8_UINT,
	hal.FormatD32Float:       DXGI_FORMAT_D32_FLOAT,
	hal.FormatD32FloatS8Uint: DXGI_FORMAT_D32_FLOAT_S8X24,
}

// dxgiFormat maps a hal format to its DXGI value,
// DXGI_FORMAT_UNKNOWN when there is no mapping.
func dxgiFormat(f hal.Format) uint32 {
	return dxgiFormats[f]
}
