// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

import "fmt"

// Handle is an opaque, device-scoped resource identifier.
// Handles increase monotonically and are never reused while the
// device is alive, which keeps leak detection and aliasing
// diagnosis trivial. The zero Handle is never issued.
type Handle uint64

// IsValid returns whether h was issued by a device.
func (h Handle) IsValid() bool { return h != 0 }

// Resource is the interface common to every device-created
// object that participates in command recording.
type Resource interface {
	Destroyer

	// Handle returns the device-scoped identifier.
	Handle() Handle
}

// TextureDimension selects the dimensionality of a texture.
type TextureDimension int

// Texture dimensions.
const (
	Texture2D TextureDimension = iota
	Texture2DArray
	TextureCube
	Texture3D
)

// TextureUsage is a mask of valid uses for a texture.
type TextureUsage int

// Texture usage flags.
const (
	TextureShaderResource TextureUsage = 1 << iota
	TextureRenderTarget
	TextureDepthStencil
	TextureUnorderedAccess
	TextureCopySource
	TextureCopyDest
)

// TextureDesc fully specifies a texture.
// Descriptors are immutable value objects and never carry
// native handles.
type TextureDesc struct {
	Width     int
	Height    int
	Depth     int // 1 unless Dimension is Texture3D
	ArraySize int // 1 unless array or cube
	MipLevels int
	Samples   int
	Dimension TextureDimension
	Format    Format
	Usage     TextureUsage
	// InitialState is the resource state the texture is created
	// in; transitions away from it must be recorded explicitly.
	InitialState ResourceState
	// ClearValue is the optimized clear value for render target
	// and depth-stencil textures.
	ClearValue ClearValue
	DebugName  string
}

// Validate reports whether the descriptor fully specifies a
// creatable texture.
func (d *TextureDesc) Validate() error {
	const op = "CreateTexture"
	if d.Width <= 0 || d.Height <= 0 {
		return argErr(op, fmt.Sprintf("non-positive size %dx%d", d.Width, d.Height))
	}
	if d.Dimension == Texture3D && d.Depth <= 0 {
		return argErr(op, "3D texture with non-positive depth")
	}
	if d.Format == FormatUnknown {
		return argErr(op, "format not set")
	}
	if d.Usage == 0 {
		return argErr(op, "usage not set")
	}
	if d.Usage&TextureDepthStencil != 0 && !d.Format.IsDepthStencil() {
		return argErr(op, "depth-stencil usage with color format "+d.Format.String())
	}
	return nil
}

// Texture is a GPU texture resource.
type Texture interface {
	Resource

	// Desc returns the descriptor the texture was created from.
	Desc() TextureDesc
}

// BufferUsage is a mask of valid uses for a buffer.
type BufferUsage int

// Buffer usage flags.
const (
	BufferVertex BufferUsage = 1 << iota
	BufferIndex
	BufferConstant
	BufferStructured
	BufferUnorderedAccess
	BufferCopySource
	BufferCopyDest
	// BufferAccelStructStorage marks the buffer as backing
	// storage for an acceleration structure.
	BufferAccelStructStorage
	// BufferAccelStructInput marks the buffer as build input
	// (vertex, index or instance data) for an acceleration
	// structure build.
	BufferAccelStructInput
)

// CPUAccess selects host visibility of buffer memory.
type CPUAccess int

// CPU access modes.
const (
	CPUNone CPUAccess = iota
	CPUWrite
	CPURead
)

// BufferDesc fully specifies a buffer.
type BufferDesc struct {
	Size int64
	// Stride is the element stride for structured buffers,
	// zero otherwise.
	Stride       int64
	Usage        BufferUsage
	CPUAccess    CPUAccess
	InitialState ResourceState
	DebugName    string
}

// Validate reports whether the descriptor fully specifies a
// creatable buffer.
func (d *BufferDesc) Validate() error {
	const op = "CreateBuffer"
	if d.Size <= 0 {
		return argErr(op, fmt.Sprintf("non-positive size %d", d.Size))
	}
	if d.Usage == 0 {
		return argErr(op, "usage not set")
	}
	if d.Usage&BufferStructured != 0 && d.Stride <= 0 {
		return argErr(op, "structured buffer with non-positive stride")
	}
	return nil
}

// Buffer is a GPU buffer resource.
type Buffer interface {
	Resource

	// Desc returns the descriptor the buffer was created from.
	Desc() BufferDesc
}

// Filter is the type of sampler filters.
type Filter int

// Filters.
const (
	FilterNearest Filter = iota
	FilterLinear
)

// AddressMode is the type of sampler address modes.
type AddressMode int

// Address modes.
const (
	AddressWrap AddressMode = iota
	AddressMirror
	AddressClamp
	AddressBorder
)

// SamplerDesc fully specifies a sampler.
type SamplerDesc struct {
	MinFilter Filter
	MagFilter Filter
	MipFilter Filter
	AddressU  AddressMode
	AddressV  AddressMode
	AddressW  AddressMode
	MaxAniso  int
	MinLOD    float32
	MaxLOD    float32
	DebugName string
}

// Validate reports whether the descriptor specifies a creatable
// sampler.
func (d *SamplerDesc) Validate() error {
	const op = "CreateSampler"
	if d.MaxAniso < 0 {
		return argErr(op, "negative anisotropy")
	}
	if d.MaxLOD < d.MinLOD {
		return argErr(op, "MaxLOD below MinLOD")
	}
	return nil
}

// Sampler is a texture sampler resource.
type Sampler interface {
	Resource

	// Desc returns the descriptor the sampler was created from.
	Desc() SamplerDesc
}

// ShaderStage selects the pipeline stage a shader executes in.
type ShaderStage int

// Shader stages.
const (
	StageVertex ShaderStage = iota
	StagePixel
	StageCompute
	StageRayGeneration
	StageMiss
	StageClosestHit
	StageAnyHit
)

// ShaderDesc specifies a shader from precompiled bytecode.
// Shader source compilation is out of scope; bytecode comes from
// an external toolchain.
type ShaderDesc struct {
	Stage      ShaderStage
	Bytecode   []byte
	EntryPoint string
	DebugName  string
}

// Validate reports whether the descriptor specifies a creatable
// shader.
func (d *ShaderDesc) Validate() error {
	const op = "CreateShader"
	if len(d.Bytecode) == 0 {
		return argErr(op, "empty bytecode")
	}
	if d.EntryPoint == "" {
		return argErr(op, "entry point not set")
	}
	return nil
}

// Shader is a shader bytecode resource.
type Shader interface {
	Resource

	// Desc returns the descriptor the shader was created from.
	Desc() ShaderDesc
}

// ClearValue defines clear values for color or depth/stencil
// aspects of a render target.
type ClearValue struct {
	Color   [4]float32
	Depth   float32
	Stencil uint32
}

// Viewport defines the bounds of a viewport.
type Viewport struct {
	X, Y, Width, Height, MinDepth, MaxDepth float32
}

// FramebufferDesc specifies the render targets of a framebuffer.
type FramebufferDesc struct {
	ColorTargets []Texture
	DepthTarget  Texture
	DebugName    string
}

// Validate reports whether the descriptor specifies a creatable
// framebuffer.
func (d *FramebufferDesc) Validate() error {
	const op = "CreateFramebuffer"
	if len(d.ColorTargets) == 0 && d.DepthTarget == nil {
		return argErr(op, "no render targets")
	}
	for i, t := range d.ColorTargets {
		if t == nil {
			return argErr(op, fmt.Sprintf("color target %d is nil", i))
		}
		if t.Desc().Usage&TextureRenderTarget == 0 {
			return argErr(op, fmt.Sprintf("color target %d lacks RenderTarget usage", i))
		}
	}
	if d.DepthTarget != nil && d.DepthTarget.Desc().Usage&TextureDepthStencil == 0 {
		return argErr(op, "depth target lacks DepthStencil usage")
	}
	return nil
}

// Framebuffer groups the render targets draws operate on.
type Framebuffer interface {
	Resource

	// Desc returns the descriptor the framebuffer was created
	// from.
	Desc() FramebufferDesc
}
