// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

// Alignment rules common to both native APIs. These are fixed,
// backend-documented constants, not negotiated at runtime.
const (
	// ConstantBufferAlignment is the required alignment of
	// constant buffer ranges, in bytes.
	ConstantBufferAlignment = 256
	// TextureRowAlignment is the required alignment of texture
	// row pitches for buffer/texture copies, in bytes.
	TextureRowAlignment = 4
)

// Default descriptor heap capacities. Descriptor memory is fixed
// at device creation time and is not elastic.
const (
	DefaultSamplerHeapSize         = 2048
	DefaultDepthStencilHeapSize    = 1024
	DefaultUnorderedAccessHeapSize = 1024
)

// DeviceOptions configures device creation.
// The zero value selects defaults.
type DeviceOptions struct {
	// SamplerHeapSize, DepthStencilHeapSize and
	// UnorderedAccessHeapSize set the fixed capacity of each
	// descriptor heap. Zero selects the default.
	SamplerHeapSize         int
	DepthStencilHeapSize    int
	UnorderedAccessHeapSize int
	// Debug enables native validation layers where available.
	Debug bool
}

// HeapSizes resolves the configured descriptor heap capacities,
// substituting defaults for unset values. Backends call this at
// device creation. o may be nil.
func (o *DeviceOptions) HeapSizes() (sampler, depthStencil, ua int) {
	sampler = DefaultSamplerHeapSize
	depthStencil = DefaultDepthStencilHeapSize
	ua = DefaultUnorderedAccessHeapSize
	if o == nil {
		return
	}
	if o.SamplerHeapSize > 0 {
		sampler = o.SamplerHeapSize
	}
	if o.DepthStencilHeapSize > 0 {
		depthStencil = o.DepthStencilHeapSize
	}
	if o.UnorderedAccessHeapSize > 0 {
		ua = o.UnorderedAccessHeapSize
	}
	return
}

// Capabilities reports device-level features.
// They are immutable for the lifetime of the device.
type Capabilities struct {
	// AdapterName is the native adapter description.
	AdapterName string
	// HasRayTracing reports whether acceleration structures
	// and raytracing pipelines can be created. Raytracing
	// calls on a device without it fail with ErrUnsupported,
	// distinctly from argument validation failures.
	HasRayTracing bool
	// HasPlaceholderResources reports that the native API is
	// unavailable on this platform and resource creation
	// degrades to zero-handle placeholders.
	HasPlaceholderResources bool
}

// Device is the single contract renderer code consumes. Two
// divergent native implementations exist behind it; each owns
// its native handle translation independently.
//
// Every creation call validates its descriptor and fails with a
// descriptive error rather than producing a half-constructed
// resource; on a mid-creation native failure, sub-objects
// already created are released before the error propagates.
// A destroyed device fails every subsequent call with
// ErrDisposed.
//
// GPU work is asynchronous: ExecuteCommandLists enqueues and
// returns. WaitIdle is the blocking synchronization point;
// fences give finer-grained control. There is no cancellation of
// in-flight GPU work, and disposing a resource still referenced
// by unfinished GPU work is a caller-side hazard.
type Device interface {
	Destroyer

	// Backend returns the name of the backend that created the
	// device.
	Backend() string

	// Capabilities returns the immutable device capabilities.
	Capabilities() Capabilities

	CreateTexture(desc TextureDesc) (Texture, error)
	CreateBuffer(desc BufferDesc) (Buffer, error)
	CreateSampler(desc SamplerDesc) (Sampler, error)
	CreateShader(desc ShaderDesc) (Shader, error)
	CreateGraphicsPipeline(desc GraphicsPipelineDesc) (Pipeline, error)
	CreateComputePipeline(desc ComputePipelineDesc) (Pipeline, error)
	CreateFramebuffer(desc FramebufferDesc) (Framebuffer, error)
	CreateBindingLayout(desc BindingLayoutDesc) (BindingLayout, error)
	CreateBindingSet(desc BindingSetDesc, layout BindingLayout) (BindingSet, error)
	CreateCommandList(typ CommandListType) (CommandList, error)

	// CreateAccelStruct queries the backend for prebuild sizes,
	// allocates backing storage through the ordinary buffer
	// path and returns the structure in the Allocated state.
	// The build itself is a command-list operation.
	CreateAccelStruct(desc AccelStructDesc) (AccelStruct, error)
	CreateRayTracingPipeline(desc RayTracingPipelineDesc) (Pipeline, error)

	// ExecuteCommandLists submits closed lists for execution
	// and returns without waiting for GPU completion.
	ExecuteCommandLists(lists ...CommandList) error

	// NewFence creates a fence in the unsignaled state.
	NewFence() (Fence, error)

	// SignalFence enqueues a GPU-timeline signal of f after
	// all previously submitted work.
	SignalFence(f Fence) error

	// WaitFence blocks the CPU until f is signaled.
	WaitFence(f Fence) error

	// WaitIdle blocks until all submitted GPU work completes.
	WaitIdle() error

	// ConstantBufferAlignment returns
	// ConstantBufferAlignment (256).
	ConstantBufferAlignment() int

	// TextureAlignment returns TextureRowAlignment (4).
	TextureAlignment() int

	// IsFormatSupported reports whether textures of format f
	// can be created.
	IsFormatSupported(f Format) bool

	// FrameIndex returns the index of the frame currently
	// being recorded, as advanced by the frame session.
	FrameIndex() int

	// AdvanceFrame increments the frame index. The frame
	// session calls this from BeginFrame.
	AdvanceFrame()

	// VideoMemoryUsage returns the device's current estimate
	// of allocated video memory, in bytes.
	VideoMemoryUsage() int64

	// LiveResources returns the number of undestroyed
	// resources, for leak diagnosis.
	LiveResources() int
}
