// Copyright 2026 The Andastra Authors. All rights reserved.

package d3d12

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/andastra/graphics/hal"
)

func openDevice(t *testing.T) hal.Device {
	t.Helper()
	b := hal.Lookup(BackendName)
	require.NotNil(t, b, "backend not registered")
	dev, err := b.Open(nil)
	if err != nil {
		t.Skipf("cannot open d3d12 device: %v", err)
	}
	return dev
}

func TestBackendRegistered(t *testing.T) {
	b := hal.Lookup(BackendName)
	require.NotNil(t, b)
	assert.Equal(t, BackendName, b.Name())
}

func TestOpenAndCapabilities(t *testing.T) {
	dev := openDevice(t)
	defer dev.Destroy()

	assert.Equal(t, BackendName, dev.Backend())
	caps := dev.Capabilities()
	assert.NotEmpty(t, caps.AdapterName)
	if caps.HasPlaceholderResources {
		// Raytracing is never reported without a native device.
		assert.False(t, caps.HasRayTracing)
	}
	assert.Equal(t, hal.ConstantBufferAlignment, dev.ConstantBufferAlignment())
	assert.Equal(t, hal.TextureRowAlignment, dev.TextureAlignment())
}

func TestFormatSupport(t *testing.T) {
	dev := openDevice(t)
	defer dev.Destroy()

	assert.True(t, dev.IsFormatSupported(hal.FormatRGBA8Unorm))
	assert.True(t, dev.IsFormatSupported(hal.FormatD24UnormS8Uint))
	assert.False(t, dev.IsFormatSupported(hal.FormatUnknown))
}

func TestResourceCreation(t *testing.T) {
	dev := openDevice(t)
	defer dev.Destroy()

	tex, err := dev.CreateTexture(hal.TextureDesc{
		Width:        64,
		Height:       64,
		Format:       hal.FormatRGBA8Unorm,
		Usage:        hal.TextureShaderResource,
		InitialState: hal.StateShaderResource,
	})
	require.NoError(t, err)
	assert.True(t, tex.Handle().IsValid())

	buf, err := dev.CreateBuffer(hal.BufferDesc{
		Size:      1024,
		Usage:     hal.BufferConstant,
		CPUAccess: hal.CPUWrite,
	})
	require.NoError(t, err)
	assert.True(t, buf.Handle().IsValid())
	assert.NotEqual(t, tex.Handle(), buf.Handle())

	assert.Equal(t, 2, dev.LiveResources())
	require.NoError(t, buf.Destroy())
	require.NoError(t, tex.Destroy())
	assert.Zero(t, dev.LiveResources())
}

func TestSamplerHeapAddresses(t *testing.T) {
	b := hal.Lookup(BackendName)
	require.NotNil(t, b)
	dev, err := b.Open(&hal.DeviceOptions{SamplerHeapSize: 4})
	if err != nil {
		t.Skipf("cannot open d3d12 device: %v", err)
	}
	defer dev.Destroy()

	// Sampler descriptors come from a bump allocator over the
	// native heap; consecutive creations must land on distinct
	// slots until capacity is hit.
	for i := 0; i < 4; i++ {
		_, err := dev.CreateSampler(hal.SamplerDesc{})
		require.NoError(t, err)
	}
	_, err = dev.CreateSampler(hal.SamplerDesc{})
	require.ErrorIs(t, err, hal.ErrHeapFull)
}

func TestPlaceholderDegradation(t *testing.T) {
	dev := openDevice(t)
	defer dev.Destroy()

	if !dev.Capabilities().HasPlaceholderResources {
		t.Skip("native device available")
	}

	// Recording and root-signature serialization have no degraded
	// form.
	_, err := dev.CreateCommandList(hal.ListGraphics)
	assert.ErrorIs(t, err, hal.ErrUnsupported)

	_, err = dev.CreateBindingLayout(hal.BindingLayoutDesc{
		Items: []hal.BindingLayoutItem{
			{Type: hal.BindingConstantBuffer, Slot: 0},
		},
	})
	assert.ErrorIs(t, err, hal.ErrUnsupported)

	_, err = dev.CreateAccelStruct(hal.AccelStructDesc{
		Kind:         hal.TopLevel,
		MaxInstances: 4,
	})
	assert.ErrorIs(t, err, hal.ErrUnsupported)
}

func TestFenceLifecycle(t *testing.T) {
	dev := openDevice(t)
	defer dev.Destroy()

	f, err := dev.NewFence()
	require.NoError(t, err)
	assert.False(t, f.Signaled())

	require.NoError(t, dev.SignalFence(f))
	require.NoError(t, dev.WaitFence(f))
	assert.True(t, f.Signaled())

	require.NoError(t, f.Destroy())
	assert.ErrorIs(t, dev.SignalFence(f), hal.ErrDisposed)
}

func TestWaitIdle(t *testing.T) {
	dev := openDevice(t)
	defer dev.Destroy()

	require.NoError(t, dev.WaitIdle())
	require.NoError(t, dev.Destroy())
	assert.ErrorIs(t, dev.WaitIdle(), hal.ErrDisposed)
}
