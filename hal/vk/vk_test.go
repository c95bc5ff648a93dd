// Copyright 2026 The Andastra Authors. All rights reserved.

package vk

import (
	"testing"

	vk "github.com/goki/vulkan"
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
		t.Skipf("cannot open vulkan device: %v", err)
	}
	return dev
}

func TestBackendRegistered(t *testing.T) {
	b := hal.Lookup(BackendName)
	require.NotNil(t, b)
	assert.Equal(t, BackendName, b.Name())
}

func TestFormatTranslation(t *testing.T) {
	assert.Equal(t, vk.FormatR8g8b8a8Unorm, vkFormat(hal.FormatRGBA8Unorm))
	assert.Equal(t, vk.FormatB8g8r8a8Srgb, vkFormat(hal.FormatBGRA8UnormSRGB))
	assert.Equal(t, vk.FormatD24UnormS8Uint, vkFormat(hal.FormatD24UnormS8Uint))
	assert.Equal(t, vk.FormatR32g32b32Sfloat, vkFormat(hal.FormatRGB32Float))
	assert.Equal(t, vk.FormatUndefined, vkFormat(hal.FormatUnknown))
}

func TestAspectMask(t *testing.T) {
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectColorBit), aspectMask(hal.FormatRGBA8Unorm))
	assert.Equal(t, vk.ImageAspectFlags(vk.ImageAspectDepthBit), aspectMask(hal.FormatD32Float))
	assert.Equal(t,
		vk.ImageAspectFlags(vk.ImageAspectDepthBit|vk.ImageAspectStencilBit),
		aspectMask(hal.FormatD24UnormS8Uint))
}

func TestImageLayouts(t *testing.T) {
	assert.Equal(t, vk.ImageLayoutUndefined, imageLayout(hal.StateUndefined))
	assert.Equal(t, vk.ImageLayoutColorAttachmentOptimal, imageLayout(hal.StateRenderTarget))
	assert.Equal(t, vk.ImageLayoutDepthStencilAttachmentOptimal, imageLayout(hal.StateDepthWrite))
	assert.Equal(t, vk.ImageLayoutShaderReadOnlyOptimal, imageLayout(hal.StateShaderResource))
	assert.Equal(t, vk.ImageLayoutTransferDstOptimal, imageLayout(hal.StateCopyDest))
	assert.Equal(t, vk.ImageLayoutGeneral, imageLayout(hal.StateUnorderedAccess))
}

func TestDescriptorTypes(t *testing.T) {
	dt, err := descriptorType(hal.BindingConstantBuffer)
	require.NoError(t, err)
	assert.Equal(t, vk.DescriptorTypeUniformBuffer, dt)

	dt, err = descriptorType(hal.BindingTexture)
	require.NoError(t, err)
	assert.Equal(t, vk.DescriptorTypeSampledImage, dt)

	dt, err = descriptorType(hal.BindingSampler)
	require.NoError(t, err)
	assert.Equal(t, vk.DescriptorTypeSampler, dt)

	dt, err = descriptorType(hal.BindingRWBuffer)
	require.NoError(t, err)
	assert.Equal(t, vk.DescriptorTypeStorageBuffer, dt)

	// The binding has no acceleration-structure descriptor.
	_, err = descriptorType(hal.BindingAccelStruct)
	assert.ErrorIs(t, err, hal.ErrUnsupported)
}

func TestStageFlags(t *testing.T) {
	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageVertexBit), stageFlags(hal.VisibleVertex))
	assert.Equal(t,
		vk.ShaderStageFlags(vk.ShaderStageVertexBit|vk.ShaderStageFragmentBit),
		stageFlags(hal.VisibleVertex|hal.VisiblePixel))
	assert.Equal(t, vk.ShaderStageFlags(vk.ShaderStageAll), stageFlags(hal.VisibleAll))
}

func TestLocate(t *testing.T) {
	tables, err := hal.PackBindingTables(&hal.BindingLayoutDesc{
		Items: []hal.BindingLayoutItem{
			{Type: hal.BindingConstantBuffer, Slot: 0, Visibility: hal.VisiblePixel},
			{Type: hal.BindingTexture, Slot: 2, Count: 3, Visibility: hal.VisiblePixel},
			{Type: hal.BindingSampler, Slot: 0, Visibility: hal.VisiblePixel},
		},
	})
	require.NoError(t, err)
	require.Len(t, tables, 2)

	locs := locate(tables, hal.BindingSetItem{Type: hal.BindingTexture, Slot: 3})
	require.Len(t, locs, 1)
	// Table 0, binding 1 (after the constant buffer), array
	// element 1 within the range based at slot 2.
	assert.Equal(t, [3]uint32{0, 1, 1}, locs[0])

	locs = locate(tables, hal.BindingSetItem{Type: hal.BindingSampler, Slot: 0})
	require.Len(t, locs, 1)
	assert.Equal(t, [3]uint32{1, 0, 0}, locs[0])

	locs = locate(tables, hal.BindingSetItem{Type: hal.BindingTexture, Slot: 9})
	assert.Empty(t, locs)
}

func TestRepackUint32(t *testing.T) {
	words := repackUint32([]byte{0x03, 0x02, 0x23, 0x07, 0x00, 0x00, 0x01, 0x00})
	require.Len(t, words, 2)
	assert.Equal(t, uint32(0x07230203), words[0])
	assert.Equal(t, uint32(0x00010000), words[1])
}

func TestOpenAndCapabilities(t *testing.T) {
	dev := openDevice(t)
	defer dev.Destroy()

	assert.Equal(t, BackendName, dev.Backend())
	caps := dev.Capabilities()
	assert.NotEmpty(t, caps.AdapterName)
	assert.False(t, caps.HasRayTracing)
	assert.False(t, caps.HasPlaceholderResources)
	assert.Equal(t, hal.ConstantBufferAlignment, dev.ConstantBufferAlignment())
	assert.Equal(t, hal.TextureRowAlignment, dev.TextureAlignment())
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

func TestRaytracingUnsupported(t *testing.T) {
	dev := openDevice(t)
	defer dev.Destroy()

	_, err := dev.CreateAccelStruct(hal.AccelStructDesc{
		Kind:         hal.TopLevel,
		MaxInstances: 4,
	})
	assert.ErrorIs(t, err, hal.ErrUnsupported)

	_, err = dev.CreateRayTracingPipeline(hal.RayTracingPipelineDesc{})
	assert.ErrorIs(t, err, hal.ErrUnsupported)
}

func TestCommandListLifecycle(t *testing.T) {
	dev := openDevice(t)
	defer dev.Destroy()

	l, err := dev.CreateCommandList(hal.ListGraphics)
	require.NoError(t, err)
	assert.Equal(t, hal.ListInitial, l.State())

	// Recording before Open is rejected.
	assert.ErrorIs(t, l.Dispatch(1, 1, 1), hal.ErrRecording)

	require.NoError(t, l.Open())
	assert.Equal(t, hal.ListOpen, l.State())
	assert.ErrorIs(t, l.Open(), hal.ErrRecording)

	require.NoError(t, l.Close())
	assert.Equal(t, hal.ListClosed, l.State())

	require.NoError(t, dev.ExecuteCommandLists(l))
	require.NoError(t, dev.WaitIdle())
	require.NoError(t, l.Reset())
	assert.Equal(t, hal.ListInitial, l.State())
	require.NoError(t, l.Destroy())
}

func TestBufferUpload(t *testing.T) {
	dev := openDevice(t)
	defer dev.Destroy()

	buf, err := dev.CreateBuffer(hal.BufferDesc{
		Size:      256,
		Usage:     hal.BufferConstant,
		CPUAccess: hal.CPUWrite,
	})
	require.NoError(t, err)
	defer buf.Destroy()

	l, err := dev.CreateCommandList(hal.ListCopy)
	require.NoError(t, err)
	defer l.Destroy()

	require.NoError(t, l.Open())
	require.NoError(t, l.WriteBuffer(buf, make([]byte, 128), 64))
	assert.ErrorIs(t, l.WriteBuffer(buf, make([]byte, 512), 0), hal.ErrInvalidArgument)
	require.NoError(t, l.Close())
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

func TestSamplerHeapExhaustion(t *testing.T) {
	b := hal.Lookup(BackendName)
	require.NotNil(t, b)
	dev, err := b.Open(&hal.DeviceOptions{SamplerHeapSize: 2})
	if err != nil {
		t.Skipf("cannot open vulkan device: %v", err)
	}
	defer dev.Destroy()

	for i := 0; i < 2; i++ {
		_, err := dev.CreateSampler(hal.SamplerDesc{})
		require.NoError(t, err)
	}
	_, err = dev.CreateSampler(hal.SamplerDesc{})
	require.ErrorIs(t, err, hal.ErrHeapFull)
}
