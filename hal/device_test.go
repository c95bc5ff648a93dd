// Copyright 2026 The Andastra Authors. All rights reserved.

// Contract tests, run against the null backend so they hold on
// any platform. Native backends are exercised by their own
// package tests, which skip when the native API is unavailable.
package hal_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andastra/graphics/hal"
	"github.com/andastra/graphics/hal/null"
)

// open creates a fresh null device.
func open(t *testing.T, opts *hal.DeviceOptions) hal.Device {
	t.Helper()
	b := hal.Lookup(null.BackendName)
	require.NotNil(t, b, "null backend must register on import")
	dev, err := b.Open(opts)
	require.NoError(t, err)
	return dev
}

func TestCreateTextureRoundTrip(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	desc := hal.TextureDesc{
		Width:      256,
		Height:     256,
		MipLevels:  1,
		Format:     hal.FormatRGBA8Unorm,
		Usage:      hal.TextureRenderTarget | hal.TextureShaderResource,
		ClearValue: hal.ClearValue{Color: [4]float32{0, 0, 0, 1}},
		DebugName:  "scene color",
	}
	tex, err := dev.CreateTexture(desc)
	require.NoError(t, err)
	require.True(t, tex.Handle().IsValid())
	got := tex.Desc()
	assert.Equal(t, desc.Width, got.Width)
	assert.Equal(t, desc.Height, got.Height)
	assert.Equal(t, desc.Format, got.Format)
	assert.Equal(t, desc.ClearValue, got.ClearValue)

	// The texture is usable as a barrier-transition target.
	cl, err := dev.CreateCommandList(hal.ListGraphics)
	require.NoError(t, err)
	require.NoError(t, cl.Open())
	require.NoError(t, cl.Transition(tex, hal.StateRenderTarget))
	require.NoError(t, cl.CommitBarriers())
	require.NoError(t, cl.Close())
	require.NoError(t, dev.ExecuteCommandLists(cl))
}

func TestCreateTextureValidation(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	before := dev.LiveResources()
	ok, err := dev.CreateTexture(hal.TextureDesc{
		Width: 4, Height: 4, Format: hal.FormatRGBA8Unorm, Usage: hal.TextureShaderResource,
	})
	require.NoError(t, err)

	_, err = dev.CreateTexture(hal.TextureDesc{
		Width: 0, Height: 4, Format: hal.FormatRGBA8Unorm, Usage: hal.TextureShaderResource,
	})
	require.ErrorIs(t, err, hal.ErrInvalidArgument)
	assert.Equal(t, before+1, dev.LiveResources(), "failed creation must leave the registry unchanged")

	// The handle counter does not advance on validation failure.
	ok2, err := dev.CreateTexture(hal.TextureDesc{
		Width: 4, Height: 4, Format: hal.FormatRGBA8Unorm, Usage: hal.TextureShaderResource,
	})
	require.NoError(t, err)
	assert.Equal(t, ok.Handle()+1, ok2.Handle())
}

func TestCreateBufferRoundTrip(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	desc := hal.BufferDesc{Size: 4096, Usage: hal.BufferConstant, CPUAccess: hal.CPUWrite}
	buf, err := dev.CreateBuffer(desc)
	require.NoError(t, err)
	assert.Equal(t, desc.Size, buf.Desc().Size)
	assert.Equal(t, desc.Usage, buf.Desc().Usage)

	_, err = dev.CreateBuffer(hal.BufferDesc{Size: 0, Usage: hal.BufferConstant})
	assert.ErrorIs(t, err, hal.ErrInvalidArgument)
}

func TestDisposedDeviceFailsDistinctly(t *testing.T) {
	dev := open(t, nil)
	tex, err := dev.CreateTexture(hal.TextureDesc{
		Width: 4, Height: 4, Format: hal.FormatRGBA8Unorm, Usage: hal.TextureShaderResource,
	})
	require.NoError(t, err)

	require.NoError(t, dev.Destroy())

	_, err = dev.CreateBuffer(hal.BufferDesc{Size: 16, Usage: hal.BufferVertex})
	require.ErrorIs(t, err, hal.ErrDisposed)
	assert.NotErrorIs(t, err, hal.ErrInvalidArgument, "disposed-device failure must be distinct from validation")

	err = tex.Destroy()
	assert.ErrorIs(t, err, hal.ErrDisposed, "resources of a disposed device fail too")

	err = dev.Destroy()
	assert.ErrorIs(t, err, hal.ErrDisposed, "double device disposal is a defined failure")
}

func TestResourceDoubleDestroy(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	buf, err := dev.CreateBuffer(hal.BufferDesc{Size: 64, Usage: hal.BufferVertex})
	require.NoError(t, err)
	require.NoError(t, buf.Destroy())
	err = buf.Destroy()
	assert.ErrorIs(t, err, hal.ErrDisposed)
	assert.Equal(t, 0, dev.LiveResources())
}

func TestSamplerHeapExhaustion(t *testing.T) {
	dev := open(t, &hal.DeviceOptions{SamplerHeapSize: 2})
	defer dev.Destroy()

	for i := 0; i < 2; i++ {
		_, err := dev.CreateSampler(hal.SamplerDesc{})
		require.NoError(t, err)
	}
	_, err := dev.CreateSampler(hal.SamplerDesc{})
	assert.ErrorIs(t, err, hal.ErrHeapFull)
}

func TestCommandListLifecycle(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	cl, err := dev.CreateCommandList(hal.ListGraphics)
	require.NoError(t, err)
	assert.Equal(t, hal.ListInitial, cl.State())

	// Recording outside Open is a usage error.
	err = cl.Draw(hal.DrawArgs{VertexCount: 3})
	require.ErrorIs(t, err, hal.ErrRecording)

	require.NoError(t, cl.Open())
	assert.Equal(t, hal.ListOpen, cl.State())
	err = cl.Open()
	assert.ErrorIs(t, err, hal.ErrRecording, "reopening an open list")

	require.NoError(t, cl.Draw(hal.DrawArgs{VertexCount: 3}))
	require.NoError(t, cl.Close())
	assert.Equal(t, hal.ListClosed, cl.State())

	err = cl.Draw(hal.DrawArgs{VertexCount: 3})
	assert.ErrorIs(t, err, hal.ErrRecording, "recording into a closed list")

	require.NoError(t, dev.ExecuteCommandLists(cl))
	require.NoError(t, cl.Reset())
	assert.Equal(t, hal.ListInitial, cl.State())
}

func TestCommandListResetWhileOpen(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	cl, err := dev.CreateCommandList(hal.ListGraphics)
	require.NoError(t, err)

	// Resetting an untouched list is a no-op.
	require.NoError(t, cl.Reset())

	require.NoError(t, cl.Open())
	err = cl.Reset()
	assert.ErrorIs(t, err, hal.ErrRecording, "resetting a recording list")
	assert.Equal(t, hal.ListOpen, cl.State())

	require.NoError(t, cl.Close())
	require.NoError(t, cl.Reset())
	assert.Equal(t, hal.ListInitial, cl.State())
}

func TestWriteBufferRequiresCPUWrite(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	gpuOnly, err := dev.CreateBuffer(hal.BufferDesc{Size: 64, Usage: hal.BufferVertex})
	require.NoError(t, err)
	writable, err := dev.CreateBuffer(hal.BufferDesc{
		Size: 64, Usage: hal.BufferConstant, CPUAccess: hal.CPUWrite,
	})
	require.NoError(t, err)

	cl, err := dev.CreateCommandList(hal.ListCopy)
	require.NoError(t, err)
	require.NoError(t, cl.Open())
	err = cl.WriteBuffer(gpuOnly, make([]byte, 16), 0)
	assert.ErrorIs(t, err, hal.ErrInvalidArgument, "device-local buffers take staged copies, not direct writes")
	require.NoError(t, cl.WriteBuffer(writable, make([]byte, 16), 0))
}

func TestExecuteRejectsUnclosedList(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	cl, err := dev.CreateCommandList(hal.ListCompute)
	require.NoError(t, err)
	require.NoError(t, cl.Open())
	err = dev.ExecuteCommandLists(cl)
	assert.ErrorIs(t, err, hal.ErrRecording)
}

func TestFences(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	f, err := dev.NewFence()
	require.NoError(t, err)
	assert.False(t, f.Signaled())
	require.NoError(t, dev.SignalFence(f))
	assert.True(t, f.Signaled())
	require.NoError(t, dev.WaitFence(f))
	require.NoError(t, dev.WaitIdle())
}

func TestCapabilityQueries(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	assert.Equal(t, 256, dev.ConstantBufferAlignment())
	assert.Equal(t, 4, dev.TextureAlignment())
	assert.True(t, dev.IsFormatSupported(hal.FormatRGBA8Unorm))
	assert.False(t, dev.IsFormatSupported(hal.FormatUnknown))
}

func TestBindingLayoutThroughDevice(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	layout, err := dev.CreateBindingLayout(hal.BindingLayoutDesc{Items: []hal.BindingLayoutItem{
		{Type: hal.BindingConstantBuffer, Slot: 0, Visibility: hal.VisibleVertex},
		{Type: hal.BindingTexture, Slot: 1, Visibility: hal.VisiblePixel},
		{Type: hal.BindingTexture, Slot: 2, Visibility: hal.VisiblePixel},
	}})
	require.NoError(t, err)
	assert.Len(t, layout.Tables(), 2)

	_, err = dev.CreateBindingLayout(hal.BindingLayoutDesc{})
	assert.ErrorIs(t, err, hal.ErrInvalidArgument)
}

func TestAccelStructProtocol(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	vb, err := dev.CreateBuffer(hal.BufferDesc{
		Size:  36 * 12,
		Usage: hal.BufferVertex | hal.BufferAccelStructInput,
	})
	require.NoError(t, err)

	geom := hal.GeometryDesc{
		VertexBuffer: vb,
		VertexCount:  36,
		VertexStride: 12,
		VertexFormat: hal.FormatRGB32Float,
		Flags:        hal.GeometryOpaque,
	}
	blas, err := dev.CreateAccelStruct(hal.AccelStructDesc{
		Kind:       hal.BottomLevel,
		Geometries: []hal.GeometryDesc{geom},
	})
	require.NoError(t, err)
	assert.Equal(t, hal.AccelStructAllocated, blas.State(), "creation allocates but does not build")
	require.NotNil(t, blas.Buffer())
	assert.Zero(t, blas.Buffer().Desc().Size%hal.AccelStructAlignment,
		"backing buffer must be aligned to %d", hal.AccelStructAlignment)
	assert.NotZero(t, blas.Buffer().Desc().Usage&hal.BufferAccelStructStorage)

	tlas, err := dev.CreateAccelStruct(hal.AccelStructDesc{
		Kind:         hal.TopLevel,
		MaxInstances: 4,
	})
	require.NoError(t, err)

	inst := hal.InstanceDesc{
		BLAS:      blas,
		Transform: [12]float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0},
		Mask:      0xff,
	}

	// A top-level build referencing an unbuilt bottom-level
	// structure fails at record time.
	cl, err := dev.CreateCommandList(hal.ListGraphics)
	require.NoError(t, err)
	require.NoError(t, cl.Open())
	err = cl.BuildTopLevel(tlas, []hal.InstanceDesc{inst})
	require.ErrorIs(t, err, hal.ErrNotBuilt)

	// Building the bottom level first makes it legal, even in
	// the same list.
	require.NoError(t, cl.BuildBottomLevel(blas, []hal.GeometryDesc{geom}))
	require.NoError(t, cl.BuildTopLevel(tlas, []hal.InstanceDesc{inst}))
	require.NoError(t, cl.Close())
	assert.Equal(t, hal.AccelStructAllocated, blas.State(), "recording alone does not build")

	require.NoError(t, dev.ExecuteCommandLists(cl))
	assert.Equal(t, hal.AccelStructBuilt, blas.State())
	assert.Equal(t, hal.AccelStructBuilt, tlas.State())
}

func TestAccelStructValidation(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	before := dev.LiveResources()
	_, err := dev.CreateAccelStruct(hal.AccelStructDesc{Kind: hal.BottomLevel})
	require.ErrorIs(t, err, hal.ErrInvalidArgument)
	assert.Equal(t, before, dev.LiveResources(), "no backing buffer may leak from a failed creation")
}

func TestAccelStructInstanceCountLimit(t *testing.T) {
	dev := open(t, nil)
	defer dev.Destroy()

	tlas, err := dev.CreateAccelStruct(hal.AccelStructDesc{Kind: hal.TopLevel, MaxInstances: 1})
	require.NoError(t, err)

	vb, err := dev.CreateBuffer(hal.BufferDesc{Size: 64, Usage: hal.BufferAccelStructInput})
	require.NoError(t, err)
	blas, err := dev.CreateAccelStruct(hal.AccelStructDesc{
		Kind: hal.BottomLevel,
		Geometries: []hal.GeometryDesc{{
			VertexBuffer: vb, VertexCount: 3, VertexStride: 12, VertexFormat: hal.FormatRGB32Float,
		}},
	})
	require.NoError(t, err)

	cl, err := dev.CreateCommandList(hal.ListGraphics)
	require.NoError(t, err)
	require.NoError(t, cl.Open())
	require.NoError(t, cl.BuildBottomLevel(blas, blas.Desc().Geometries))
	inst := hal.InstanceDesc{BLAS: blas, Mask: 0xff}
	err = cl.BuildTopLevel(tlas, []hal.InstanceDesc{inst, inst})
	assert.ErrorIs(t, err, hal.ErrInvalidArgument, "instance count above sizing must be rejected")
}
