// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

import "fmt"

// PrimitiveTopology determines how vertex data is assembled.
type PrimitiveTopology int

// Primitive topologies.
const (
	TopologyTriangleList PrimitiveTopology = iota
	TopologyTriangleStrip
	TopologyLineList
	TopologyPointList
)

// CullMode determines primitive culling based on facing.
type CullMode int

// Cull modes.
const (
	CullNone CullMode = iota
	CullFront
	CullBack
)

// CompareFunc is the type of comparison functions.
type CompareFunc int

// Comparison functions.
const (
	CompareNever CompareFunc = iota
	CompareLess
	CompareEqual
	CompareLessEqual
	CompareGreater
	CompareNotEqual
	CompareGreaterEqual
	CompareAlways
)

// RasterState defines the rasterization state of a graphics
// pipeline.
type RasterState struct {
	Cull             CullMode
	FrontClockwise   bool
	Wireframe        bool
	DepthBias        int
	SlopeScaledBias  float32
	DepthClampEnable bool
}

// DepthStencilState defines the depth/stencil state of a
// graphics pipeline.
type DepthStencilState struct {
	DepthTest    bool
	DepthWrite   bool
	DepthFunc    CompareFunc
	StencilTest  bool
	StencilRead  uint8
	StencilWrite uint8
}

// BlendFactor is the type of blend factors.
type BlendFactor int

// Blend factors.
const (
	BlendZero BlendFactor = iota
	BlendOne
	BlendSrcAlpha
	BlendInvSrcAlpha
	BlendSrcColor
	BlendInvSrcColor
	BlendDstAlpha
	BlendInvDstAlpha
)

// BlendState defines per-target color blending.
type BlendState struct {
	Enable    bool
	SrcFactor BlendFactor
	DstFactor BlendFactor
	// AlphaToCoverage enables multisample alpha-to-coverage.
	AlphaToCoverage bool
}

// VertexAttribute describes one vertex input.
// Each attribute fetches from the buffer bound at BufferIndex,
// Stride bytes apart.
type VertexAttribute struct {
	Name        string
	Format      Format
	BufferIndex int
	Offset      int
	Stride      int
}

// GraphicsPipelineDesc fully specifies a graphics pipeline.
type GraphicsPipelineDesc struct {
	VertexShader Shader
	PixelShader  Shader
	Layout       BindingLayout
	Input        []VertexAttribute
	Topology     PrimitiveTopology
	Raster       RasterState
	DepthStencil DepthStencilState
	Blend        BlendState
	// ColorFormats and DepthFormat must match the framebuffer
	// the pipeline is used with.
	ColorFormats []Format
	DepthFormat  Format
	Samples      int
	DebugName    string
}

// Validate reports whether the descriptor specifies a creatable
// graphics pipeline.
func (d *GraphicsPipelineDesc) Validate() error {
	const op = "CreateGraphicsPipeline"
	if d.VertexShader == nil {
		return argErr(op, "vertex shader not set")
	}
	if d.VertexShader.Desc().Stage != StageVertex {
		return argErr(op, "vertex shader has wrong stage")
	}
	if d.PixelShader != nil && d.PixelShader.Desc().Stage != StagePixel {
		return argErr(op, "pixel shader has wrong stage")
	}
	if len(d.ColorFormats) == 0 && d.DepthFormat == FormatUnknown {
		return argErr(op, "no render target formats")
	}
	for i, f := range d.ColorFormats {
		if f == FormatUnknown || f.IsDepthStencil() {
			return argErr(op, fmt.Sprintf("color format %d is not a color format", i))
		}
	}
	if d.DepthFormat != FormatUnknown && !d.DepthFormat.IsDepthStencil() {
		return argErr(op, "depth format is not a depth-stencil format")
	}
	return nil
}

// ComputePipelineDesc fully specifies a compute pipeline.
type ComputePipelineDesc struct {
	Shader    Shader
	Layout    BindingLayout
	DebugName string
}

// Validate reports whether the descriptor specifies a creatable
// compute pipeline.
func (d *ComputePipelineDesc) Validate() error {
	const op = "CreateComputePipeline"
	if d.Shader == nil {
		return argErr(op, "shader not set")
	}
	if d.Shader.Desc().Stage != StageCompute {
		return argErr(op, "shader has wrong stage")
	}
	return nil
}

// Pipeline is a compiled GPU pipeline (graphics, compute or
// raytracing).
type Pipeline interface {
	Resource

	// Layout returns the binding layout the pipeline was
	// created against, which may be nil.
	Layout() BindingLayout
}
