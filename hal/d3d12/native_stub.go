// Copyright 2026 The Andastra Authors. All rights reserved.

//go:build !windows

package d3d12

import (
	"fmt"
	"runtime"

	"github.com/andastra/graphics/hal"
)

// Off Windows the native API cannot be loaded. The device still
// opens so portable engine code paths stay exercisable: resource
// creation yields zero-handle placeholders, while operations with
// no meaningful degraded form (recording, root-signature
// serialization, raytracing) fail with a platform error.

// Typical hardware descriptor increments, used so heap address
// math stays observable on the placeholder path.
const (
	placeholderSamplerIncrement = 32
	placeholderDSIncrement      = 64
	placeholderUAIncrement      = 32
)

func platformErr(op string) error {
	return fmt.Errorf("%s: %w: d3d12 unavailable on %s", op, hal.ErrUnsupported, runtime.GOOS)
}

type native struct{}

func newNative(opts *hal.DeviceOptions) (*native, error) {
	return &native{}, nil
}

func (n *native) placeholder() bool { return true }

func (n *native) adapterName() string { return "D3D12 Placeholder Adapter" }

func (n *native) raytracing() bool { return false }

func (n *native) heapStart(k hal.DescriptorHeapKind) uintptr { return 0 }

func (n *native) heapIncrement(k hal.DescriptorHeapKind) uint32 {
	switch k {
	case hal.HeapSampler:
		return placeholderSamplerIncrement
	case hal.HeapDepthStencil:
		return placeholderDSIncrement
	default:
		return placeholderUAIncrement
	}
}

func (n *native) createTexture(desc *hal.TextureDesc) (uintptr, error) {
	return 0, nil
}

func (n *native) createTextureView(res uintptr, desc *hal.TextureDesc, usage hal.TextureUsage, addr uintptr) error {
	return nil
}

func (n *native) createBuffer(desc *hal.BufferDesc) (uintptr, error) {
	return 0, nil
}

func (n *native) writeBuffer(res uintptr, data []byte, off int64) error {
	return platformErr("WriteBuffer")
}

func (n *native) bufferAddress(res uintptr) uint64 { return 0 }

func (n *native) createSampler(desc *hal.SamplerDesc, addr uintptr) error {
	return nil
}

func (n *native) createRootSignature(tables []hal.BindingTable) (uintptr, error) {
	return 0, platformErr("CreateBindingLayout")
}

func (n *native) createGraphicsPipeline(desc *hal.GraphicsPipelineDesc, rootSig uintptr) (uintptr, error) {
	return 0, nil
}

func (n *native) createComputePipeline(desc *hal.ComputePipelineDesc, rootSig uintptr) (uintptr, error) {
	return 0, nil
}

func (n *native) createRayTracingPipeline(desc *hal.RayTracingPipelineDesc, rootSig uintptr) (uintptr, error) {
	return 0, platformErr("CreateRayTracingPipeline")
}

func (n *native) newList(typ hal.CommandListType) (*nativeList, error) {
	return nil, platformErr("CreateCommandList")
}

func (n *native) releaseList(l *nativeList) {}

func (n *native) newFence() (*nativeFence, error) {
	return &nativeFence{}, nil
}

func (n *native) releaseFence(f *nativeFence) {}

func (n *native) signalFence(f *nativeFence) error {
	// No GPU timeline exists; the signal lands immediately.
	f.signaled = true
	return nil
}

func (n *native) waitFence(f *nativeFence) error {
	if !f.signaled {
		return fmt.Errorf("WaitFence: fence never signaled on placeholder timeline")
	}
	return nil
}

func (n *native) fenceSignaled(f *nativeFence) bool { return f.signaled }

func (n *native) waitIdle() error { return nil }

func (n *native) execute(lists []*nativeList) error { return nil }

func (n *native) prebuild(desc *hal.AccelStructDesc) (hal.PrebuildInfo, error) {
	return hal.PrebuildInfo{}, platformErr("CreateAccelStruct")
}

func (n *native) release(h uintptr) {}

func (n *native) destroy() {}

type nativeFence struct {
	signaled bool
}

// nativeList is never created on this platform; the methods exist
// for compilation parity with the Windows file.
type nativeList struct{}

func (l *nativeList) close() error { return platformErr("Close") }

func (l *nativeList) reset() error { return platformErr("Reset") }

func (l *nativeList) writeTexture(res uintptr, desc *hal.TextureDesc, data []byte, mip, slice int) error {
	return platformErr("WriteTexture")
}

func (l *nativeList) copyBuffer(dst uintptr, dstOff int64, src uintptr, srcOff, size int64) error {
	return platformErr("CopyBuffer")
}

func (l *nativeList) copyTexture(dst uintptr, dstSlice int, src uintptr, srcSlice int) error {
	return platformErr("CopyTexture")
}

func (l *nativeList) clearTexture(res uintptr, desc *hal.TextureDesc, value hal.ClearValue) error {
	return platformErr("ClearTexture")
}

func (l *nativeList) transitionBarriers(ts []nativeTransition) error {
	return platformErr("CommitBarriers")
}

func (l *nativeList) setGraphicsState(pso, rootSig uintptr, state *hal.GraphicsState) error {
	return platformErr("SetGraphicsState")
}

func (l *nativeList) draw(args hal.DrawArgs, indexed bool) error {
	return platformErr("Draw")
}

func (l *nativeList) setComputeState(pso, rootSig uintptr) error {
	return platformErr("SetComputeState")
}

func (l *nativeList) dispatch(x, y, z int) error { return platformErr("Dispatch") }

func (l *nativeList) setRayTracingState(pso, rootSig uintptr) error {
	return platformErr("SetRayTracingState")
}

func (l *nativeList) dispatchRays(args hal.DispatchRaysArgs) error {
	return platformErr("DispatchRays")
}

func (l *nativeList) beginMarker(name string) {}

func (l *nativeList) endMarker() {}

func (l *nativeList) buildBottomLevel(dstVA uint64, geoms []geometryInput, scratchSize int64, flags hal.AccelStructBuildFlags) error {
	return platformErr("BuildBottomLevel")
}

func (l *nativeList) buildTopLevel(dstVA uint64, instances []instanceInput, scratchSize int64, flags hal.AccelStructBuildFlags) error {
	return platformErr("BuildTopLevel")
}

func (l *nativeList) copyAccelStruct(dstVA, srcVA uint64) error {
	return platformErr("CompactAccelStruct")
}
