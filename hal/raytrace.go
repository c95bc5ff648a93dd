// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

import "fmt"

// AccelStructAlignment is the backend-mandated alignment of
// acceleration structure storage, in bytes. Both native APIs
// require 256.
const AccelStructAlignment = 256

// AlignAccelStructSize rounds size up to AccelStructAlignment.
func AlignAccelStructSize(size int64) int64 {
	return (size + AccelStructAlignment - 1) &^ (AccelStructAlignment - 1)
}

// AccelStructKind selects between the two acceleration structure
// levels.
type AccelStructKind int

// Acceleration structure kinds.
const (
	// BottomLevel holds geometry.
	BottomLevel AccelStructKind = iota
	// TopLevel holds instanced references to bottom-level
	// structures.
	TopLevel
)

// GeometryFlags is a mask of per-geometry build hints.
type GeometryFlags int

// Geometry flags.
const (
	// GeometryOpaque disables any-hit shader invocation for
	// the geometry.
	GeometryOpaque GeometryFlags = 1 << iota
	GeometryNoDuplicateAnyHit
)

// GeometryDesc references the triangle data of one bottom-level
// geometry. Buffers must carry BufferAccelStructInput usage and
// be in StateAccelStructBuildInput when the build executes.
type GeometryDesc struct {
	VertexBuffer Buffer
	VertexOffset int64
	VertexCount  int
	VertexStride int64
	VertexFormat Format
	// IndexBuffer is optional; nil means non-indexed geometry.
	IndexBuffer Buffer
	IndexOffset int64
	IndexCount  int
	// Transform is an optional buffer holding a 3x4 row-major
	// transform applied to the geometry at build time.
	Transform       Buffer
	TransformOffset int64
	Flags           GeometryFlags
}

// InstanceFlags is a mask of per-instance build hints.
type InstanceFlags int

// Instance flags.
const (
	InstanceTriangleCullDisable InstanceFlags = 1 << iota
	InstanceTriangleFrontCCW
	InstanceForceOpaque
)

// InstanceDesc places one bottom-level structure in a top-level
// structure. Instances are supplied at build time through the
// command list, not at creation time.
type InstanceDesc struct {
	BLAS       AccelStruct
	Transform  [12]float32 // 3x4 row-major
	InstanceID uint32
	Mask       uint8
	Flags      InstanceFlags
}

// AccelStructBuildFlags is a mask of whole-structure build hints.
type AccelStructBuildFlags int

// Build flags.
const (
	BuildAllowUpdate AccelStructBuildFlags = 1 << iota
	BuildAllowCompaction
	BuildPreferFastTrace
	BuildPreferFastBuild
)

// AccelStructDesc fully specifies an acceleration structure.
// BottomLevel descriptors carry geometries; TopLevel descriptors
// carry a maximum instance count only.
type AccelStructDesc struct {
	Kind         AccelStructKind
	Geometries   []GeometryDesc
	MaxInstances int
	BuildFlags   AccelStructBuildFlags
	DebugName    string
}

// Validate reports whether the descriptor specifies a creatable
// acceleration structure.
func (d *AccelStructDesc) Validate() error {
	const op = "CreateAccelStruct"
	switch d.Kind {
	case BottomLevel:
		if len(d.Geometries) == 0 {
			return argErr(op, "bottom-level structure with zero geometries")
		}
		for i, g := range d.Geometries {
			if g.VertexBuffer == nil {
				return argErr(op, fmt.Sprintf("geometry %d: vertex buffer not set", i))
			}
			if g.VertexCount <= 0 {
				return argErr(op, fmt.Sprintf("geometry %d: non-positive vertex count", i))
			}
			if g.VertexStride <= 0 {
				return argErr(op, fmt.Sprintf("geometry %d: non-positive vertex stride", i))
			}
			if g.IndexBuffer != nil && g.IndexCount <= 0 {
				return argErr(op, fmt.Sprintf("geometry %d: indexed with non-positive index count", i))
			}
		}
		if d.MaxInstances != 0 {
			return argErr(op, "bottom-level structure with instance count")
		}
	case TopLevel:
		if d.MaxInstances <= 0 {
			return argErr(op, "top-level structure with non-positive max instances")
		}
		if len(d.Geometries) != 0 {
			return argErr(op, "top-level structure with geometries")
		}
	default:
		return argErr(op, "unknown kind")
	}
	return nil
}

// PrebuildInfo is the backend-reported worst-case sizing for an
// acceleration structure build.
type PrebuildInfo struct {
	// ResultSize is the required size of the backing storage
	// buffer, before alignment rounding.
	ResultSize int64
	// ScratchSize is the required size of the scratch buffer
	// used during the build.
	ScratchSize int64
}

// AccelStructState tracks the two-phase build protocol.
// Creation establishes storage; a command-list build records the
// GPU work; submission makes the structure usable.
type AccelStructState int

// Acceleration structure states.
const (
	// AccelStructSized means the prebuild query ran but no
	// storage is bound yet.
	AccelStructSized AccelStructState = iota
	// AccelStructAllocated means backing storage exists but no
	// build has executed. The structure must not be consumed
	// by shading or ray-query operations.
	AccelStructAllocated
	// AccelStructBuilt means a build command referencing the
	// structure was recorded and its command list submitted.
	AccelStructBuilt
)

// String returns the state name.
func (s AccelStructState) String() string {
	switch s {
	case AccelStructSized:
		return "Sized"
	case AccelStructAllocated:
		return "Allocated"
	case AccelStructBuilt:
		return "Built"
	}
	return "AccelStructState(invalid)"
}

// AccelStruct is a hardware raytracing acceleration structure.
type AccelStruct interface {
	Resource

	// Desc returns the descriptor the structure was created
	// from.
	Desc() AccelStructDesc

	// State returns the current build state.
	State() AccelStructState

	// Buffer returns the backing storage buffer. Its size is
	// the prebuild result size rounded up to
	// AccelStructAlignment.
	Buffer() Buffer
}

// ShaderTableDesc names the raygen, miss and hit shaders of a
// raytracing pipeline by their export names.
type ShaderTableDesc struct {
	RayGeneration string
	Miss          []string
	ClosestHit    []string
	AnyHit        []string
}

// RayTracingPipelineDesc fully specifies a raytracing pipeline.
type RayTracingPipelineDesc struct {
	Shaders          []Shader
	Layout           BindingLayout
	ShaderTable      ShaderTableDesc
	MaxRecursion     int
	MaxPayloadSize   int
	MaxAttributeSize int
	DebugName        string
}

// Validate reports whether the descriptor specifies a creatable
// raytracing pipeline.
func (d *RayTracingPipelineDesc) Validate() error {
	const op = "CreateRayTracingPipeline"
	if len(d.Shaders) == 0 {
		return argErr(op, "no shaders")
	}
	if d.ShaderTable.RayGeneration == "" {
		return argErr(op, "ray generation shader not named")
	}
	if d.MaxRecursion <= 0 {
		return argErr(op, "non-positive recursion depth")
	}
	if d.MaxPayloadSize <= 0 {
		return argErr(op, "non-positive payload size")
	}
	return nil
}

// DispatchRaysArgs sizes a raytracing dispatch.
type DispatchRaysArgs struct {
	Width  int
	Height int
	Depth  int
}
