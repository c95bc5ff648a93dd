// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

// CommandListType selects the queue a command list is submitted
// to.
type CommandListType int

// Command list types.
const (
	ListGraphics CommandListType = iota
	ListCompute
	ListCopy
)

// String returns the list type name.
func (t CommandListType) String() string {
	switch t {
	case ListGraphics:
		return "Graphics"
	case ListCompute:
		return "Compute"
	case ListCopy:
		return "Copy"
	}
	return "CommandListType(invalid)"
}

// CommandListState tracks the recording lifecycle.
type CommandListState int

// Command list states.
const (
	// ListInitial means no recording has begun, or the list
	// was reset after execution.
	ListInitial CommandListState = iota
	// ListOpen means recording is in progress.
	ListOpen
	// ListClosed means recording ended and the list is ready
	// for submission.
	ListClosed
)

// String returns the state name.
func (s CommandListState) String() string {
	switch s {
	case ListInitial:
		return "Initial"
	case ListOpen:
		return "Open"
	case ListClosed:
		return "Closed"
	}
	return "CommandListState(invalid)"
}

// GraphicsState is the pipeline-plus-bindings state a draw call
// executes under.
type GraphicsState struct {
	Pipeline      Pipeline
	Framebuffer   Framebuffer
	BindingSets   []BindingSet
	VertexBuffers []Buffer
	VertexOffsets []int64
	IndexBuffer   Buffer
	IndexOffset   int64
	IndexFormat   Format
	Viewport      Viewport
}

// ComputeState is the pipeline-plus-bindings state a dispatch
// executes under.
type ComputeState struct {
	Pipeline    Pipeline
	BindingSets []BindingSet
}

// RayTracingState is the pipeline-plus-bindings state a ray
// dispatch executes under.
type RayTracingState struct {
	Pipeline    Pipeline
	BindingSets []BindingSet
}

// DrawArgs parameterizes a draw call.
type DrawArgs struct {
	VertexCount   int
	InstanceCount int
	FirstVertex   int
	FirstIndex    int
	FirstInstance int
}

// ListStats are per-list recording counters, consumed by the
// frame session when the list is submitted.
type ListStats struct {
	DrawCalls     int
	Triangles     int
	Dispatches    int
	RayDispatches int
	// TexturesUsed holds the handle of every texture referenced
	// while recording, without duplicates.
	TexturesUsed []Handle
}

// CommandList records a linear sequence of GPU operations.
// The lifecycle is Initial -> Open (recording) -> Closed (ready
// for submission), and back to Initial through Reset once the
// list has executed. Record methods are only valid while Open
// and fail with ErrRecording otherwise.
//
// State-transition calls are buffered; CommitBarriers flushes
// them as one native barrier submission. Behavior is identical
// whether barriers are committed one at a time or batched, only
// the cost differs. Pending barriers are committed implicitly by
// Close and by any draw, dispatch or build.
//
// A single CPU thread records into any one command list; the
// contract specifies no internal locking.
type CommandList interface {
	Destroyer

	// Type returns the queue type selected at creation.
	Type() CommandListType

	// State returns the current lifecycle state.
	State() CommandListState

	// Open begins recording.
	Open() error

	// Close ends recording and readies the list for
	// submission.
	Close() error

	// Reset discards recorded commands and returns the list to
	// the Initial state. It must not be called while the
	// list's last submission is still executing.
	Reset() error

	// WriteBuffer uploads data into buf at off.
	WriteBuffer(buf Buffer, data []byte, off int64) error

	// WriteTexture uploads one full mip level of texel data.
	WriteTexture(tex Texture, data []byte, mipLevel, arraySlice int) error

	// CopyBuffer copies size bytes between buffers.
	CopyBuffer(dst Buffer, dstOff int64, src Buffer, srcOff int64, size int64) error

	// CopyTexture copies an entire subresource.
	CopyTexture(dst Texture, dstSlice int, src Texture, srcSlice int) error

	// ClearTexture clears a texture to the given value.
	ClearTexture(tex Texture, value ClearValue) error

	// Transition enqueues a resource-state transition.
	// Transitions are buffered until CommitBarriers.
	Transition(res Resource, after ResourceState) error

	// CommitBarriers flushes all buffered transitions as one
	// native barrier submission.
	CommitBarriers() error

	// SetGraphicsState binds the full graphics state.
	SetGraphicsState(state GraphicsState) error

	// Draw draws non-indexed primitives.
	Draw(args DrawArgs) error

	// DrawIndexed draws indexed primitives.
	DrawIndexed(args DrawArgs) error

	// SetComputeState binds the full compute state.
	SetComputeState(state ComputeState) error

	// Dispatch dispatches compute thread groups.
	Dispatch(x, y, z int) error

	// SetRayTracingState binds the full raytracing state.
	SetRayTracingState(state RayTracingState) error

	// DispatchRays dispatches rays through the bound
	// raytracing pipeline.
	DispatchRays(args DispatchRaysArgs) error

	// BuildBottomLevel records a bottom-level acceleration
	// structure build. The geometries must match the ones the
	// structure was sized from. The structure reaches the
	// Built state when the list is submitted.
	BuildBottomLevel(as AccelStruct, geoms []GeometryDesc) error

	// BuildTopLevel records a top-level acceleration structure
	// build from per-instance records. Every referenced
	// bottom-level structure must already be built; otherwise
	// the call fails with ErrNotBuilt.
	BuildTopLevel(as AccelStruct, instances []InstanceDesc) error

	// CompactAccelStruct records a compacting copy from src
	// into dst. src must have been built with
	// BuildAllowCompaction.
	CompactAccelStruct(dst, src AccelStruct) error

	// BeginMarker opens a named debug region.
	BeginMarker(name string)

	// EndMarker closes the innermost debug region.
	EndMarker()

	// Stats returns the recording counters accumulated since
	// the last Reset.
	Stats() ListStats
}

// Fence is a CPU/GPU synchronization primitive. A fence is
// signaled on the GPU timeline by Device.SignalFence and waited
// on from the CPU by Device.WaitFence.
type Fence interface {
	Destroyer

	// Signaled reports without blocking whether the fence has
	// been reached on the GPU timeline.
	Signaled() bool
}
