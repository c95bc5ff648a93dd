// Copyright 2026 The Andastra Authors. All rights reserved.

// Package vk implements the hal contract over Vulkan, through the
// goki/vulkan binding. The device opens on the first physical
// device with a graphics queue; when no loader or device is
// present Open fails and callers fall back to another backend.
//
// The binding exposes no acceleration-structure extension, so the
// device reports raytracing unavailable and every raytracing call
// fails with the capability error.
package vk

import (
	"fmt"
	"sync"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/andastra/graphics/hal"
)

// BackendName is the name the backend registers under.
const BackendName = "vulkan"

type backend struct{}

func init() {
	hal.Register(backend{})
}

// Name returns the backend identifier.
func (backend) Name() string { return BackendName }

// Open creates a device on the first graphics-capable physical
// device.
func (backend) Open(opts *hal.DeviceOptions) (hal.Device, error) {
	return newDevice(opts)
}

// Synthetic descriptor increments. Vulkan descriptors have no
// CPU-visible addresses; the heaps only account occupancy, with
// distinct increments so address math mistakes surface in tests.
const (
	samplerIncrement = 32
	dsIncrement      = 64
	uaIncrement      = 128
)

// vkErr converts a non-success result into a native error.
func vkErr(op string, ret vk.Result) error {
	if ret == vk.Success {
		return nil
	}
	return &hal.NativeError{Op: op, Status: int64(ret)}
}

// loader initialization is process-wide and must happen once.
var (
	initOnce sync.Once
	initErr  error
)

func loadVulkan() error {
	initOnce.Do(func() {
		if err := vk.SetDefaultGetInstanceProcAddr(); err != nil {
			initErr = fmt.Errorf("vulkan loader: %w", err)
			return
		}
		initErr = vk.Init()
	})
	return initErr
}

// device implements hal.Device.
type device struct {
	instance    vk.Instance
	gpu         vk.PhysicalDevice
	dev         vk.Device
	queue       vk.Queue
	queueIndex  uint32
	memProps    vk.PhysicalDeviceMemoryProperties
	cache       vk.PipelineCache
	emptyLayout vk.PipelineLayout
	adapter     string

	reg      *hal.Registry
	samplers *hal.DescriptorHeap
	dsViews  *hal.DescriptorHeap
	uaViews  *hal.DescriptorHeap
	frame    int
	mem      int64
	disposed bool
}

func newDevice(opts *hal.DeviceOptions) (*device, error) {
	const op = "Open"
	if err := loadVulkan(); err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	d := &device{reg: hal.NewRegistry()}

	var instance vk.Instance
	ret := vk.CreateInstance(&vk.InstanceCreateInfo{
		SType: vk.StructureTypeInstanceCreateInfo,
		PApplicationInfo: &vk.ApplicationInfo{
			SType:            vk.StructureTypeApplicationInfo,
			PApplicationName: "andastra\x00",
			PEngineName:      "andastra\x00",
			ApiVersion:       vk.MakeVersion(1, 1, 0),
		},
	}, nil, &instance)
	if err := vkErr(op, ret); err != nil {
		return nil, err
	}
	d.instance = instance
	if err := vk.InitInstance(instance); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := d.pickPhysicalDevice(); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}
	if err := d.makeDevice(); err != nil {
		vk.DestroyInstance(instance, nil)
		return nil, err
	}

	var cache vk.PipelineCache
	ret = vk.CreatePipelineCache(d.dev, &vk.PipelineCacheCreateInfo{
		SType: vk.StructureTypePipelineCacheCreateInfo,
	}, nil, &cache)
	if err := vkErr(op, ret); err != nil {
		d.teardown()
		return nil, err
	}
	d.cache = cache

	// Pipelines created without a binding layout still need a
	// pipeline layout object.
	var empty vk.PipelineLayout
	ret = vk.CreatePipelineLayout(d.dev, &vk.PipelineLayoutCreateInfo{
		SType: vk.StructureTypePipelineLayoutCreateInfo,
	}, nil, &empty)
	if err := vkErr(op, ret); err != nil {
		d.teardown()
		return nil, err
	}
	d.emptyLayout = empty

	ns, nds, nua := opts.HeapSizes()
	var err error
	if d.samplers, err = hal.NewDescriptorHeap(hal.HeapSampler, ns, 0x1000, samplerIncrement); err != nil {
		d.teardown()
		return nil, err
	}
	if d.dsViews, err = hal.NewDescriptorHeap(hal.HeapDepthStencil, nds, 0x2000, dsIncrement); err != nil {
		d.teardown()
		return nil, err
	}
	if d.uaViews, err = hal.NewDescriptorHeap(hal.HeapUnorderedAccess, nua, 0x3000, uaIncrement); err != nil {
		d.teardown()
		return nil, err
	}
	return d, nil
}

func (d *device) pickPhysicalDevice() error {
	const op = "Open"
	var count uint32
	ret := vk.EnumeratePhysicalDevices(d.instance, &count, nil)
	if err := vkErr(op, ret); err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("%s: %w: no physical devices", op, hal.ErrUnsupported)
	}
	gpus := make([]vk.PhysicalDevice, count)
	ret = vk.EnumeratePhysicalDevices(d.instance, &count, gpus)
	if err := vkErr(op, ret); err != nil {
		return err
	}
	d.gpu = gpus[0]

	var props vk.PhysicalDeviceProperties
	vk.GetPhysicalDeviceProperties(d.gpu, &props)
	props.Deref()
	d.adapter = vk.ToString(props.DeviceName[:])

	vk.GetPhysicalDeviceMemoryProperties(d.gpu, &d.memProps)
	d.memProps.Deref()
	return nil
}

func (d *device) makeDevice() error {
	const op = "Open"
	var count uint32
	vk.GetPhysicalDeviceQueueFamilyProperties(d.gpu, &count, nil)
	if count == 0 {
		return fmt.Errorf("%s: %w: no queue families", op, hal.ErrUnsupported)
	}
	families := make([]vk.QueueFamilyProperties, count)
	vk.GetPhysicalDeviceQueueFamilyProperties(d.gpu, &count, families)
	found := false
	for i := uint32(0); i < count; i++ {
		families[i].Deref()
		if families[i].QueueFlags&vk.QueueFlags(vk.QueueGraphicsBit) != 0 {
			d.queueIndex = i
			found = true
			break
		}
	}
	if !found {
		return fmt.Errorf("%s: %w: no graphics queue", op, hal.ErrUnsupported)
	}

	var dev vk.Device
	ret := vk.CreateDevice(d.gpu, &vk.DeviceCreateInfo{
		SType:                vk.StructureTypeDeviceCreateInfo,
		QueueCreateInfoCount: 1,
		PQueueCreateInfos: []vk.DeviceQueueCreateInfo{{
			SType:            vk.StructureTypeDeviceQueueCreateInfo,
			QueueFamilyIndex: d.queueIndex,
			QueueCount:       1,
			PQueuePriorities: []float32{1.0},
		}},
	}, nil, &dev)
	if err := vkErr(op, ret); err != nil {
		return err
	}
	d.dev = dev

	var queue vk.Queue
	vk.GetDeviceQueue(dev, d.queueIndex, 0, &queue)
	d.queue = queue
	return nil
}

// teardown releases native device objects in reverse creation
// order.
func (d *device) teardown() {
	if d.dev != nil {
		vk.DeviceWaitIdle(d.dev)
		if d.emptyLayout != vk.NullPipelineLayout {
			vk.DestroyPipelineLayout(d.dev, d.emptyLayout, nil)
			d.emptyLayout = vk.NullPipelineLayout
		}
		if d.cache != vk.NullPipelineCache {
			vk.DestroyPipelineCache(d.dev, d.cache, nil)
			d.cache = vk.NullPipelineCache
		}
		vk.DestroyDevice(d.dev, nil)
		d.dev = nil
	}
	if d.instance != nil {
		vk.DestroyInstance(d.instance, nil)
		d.instance = nil
	}
}

// check rejects calls on a destroyed device.
func (d *device) check(op string) error {
	if d.disposed {
		return fmt.Errorf("%s: %w: device", op, hal.ErrDisposed)
	}
	return nil
}

func (d *device) Backend() string { return BackendName }

func (d *device) Capabilities() hal.Capabilities {
	return hal.Capabilities{
		AdapterName:   d.adapter,
		HasRayTracing: false,
	}
}

func (d *device) Destroy() error {
	if d.disposed {
		return fmt.Errorf("Destroy: %w: device", hal.ErrDisposed)
	}
	d.disposed = true
	d.teardown()
	return nil
}

func (d *device) ConstantBufferAlignment() int { return hal.ConstantBufferAlignment }

func (d *device) TextureAlignment() int { return hal.TextureRowAlignment }

func (d *device) IsFormatSupported(f hal.Format) bool {
	return vkFormat(f) != vk.FormatUndefined
}

func (d *device) FrameIndex() int { return d.frame }

func (d *device) AdvanceFrame() { d.frame++ }

func (d *device) VideoMemoryUsage() int64 { return d.mem }

func (d *device) LiveResources() int { return d.reg.Live() }

// findMemoryType selects a memory type index satisfying the
// requirement filter and property flags.
func (d *device) findMemoryType(filter uint32, props vk.MemoryPropertyFlags) (uint32, error) {
	for i := uint32(0); i < d.memProps.MemoryTypeCount; i++ {
		if filter&(1<<i) == 0 {
			continue
		}
		mt := d.memProps.MemoryTypes[i]
		mt.Deref()
		if mt.PropertyFlags&props == props {
			return i, nil
		}
	}
	return 0, fmt.Errorf("findMemoryType: %w: no memory type matches %#x", hal.ErrUnsupported, props)
}

// allocBuffer creates a buffer with bound memory.
func (d *device) allocBuffer(op string, size int64, usage vk.BufferUsageFlags, props vk.MemoryPropertyFlags) (vk.Buffer, vk.DeviceMemory, error) {
	var buf vk.Buffer
	ret := vk.CreateBuffer(d.dev, &vk.BufferCreateInfo{
		SType:       vk.StructureTypeBufferCreateInfo,
		Size:        vk.DeviceSize(size),
		Usage:       usage,
		SharingMode: vk.SharingModeExclusive,
	}, nil, &buf)
	if err := vkErr(op, ret); err != nil {
		return nil, nil, err
	}
	var req vk.MemoryRequirements
	vk.GetBufferMemoryRequirements(d.dev, buf, &req)
	req.Deref()
	idx, err := d.findMemoryType(req.MemoryTypeBits, props)
	if err != nil {
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, nil, err
	}
	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(d.dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: idx,
	}, nil, &mem)
	if err := vkErr(op, ret); err != nil {
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, nil, err
	}
	ret = vk.BindBufferMemory(d.dev, buf, mem, 0)
	if err := vkErr(op, ret); err != nil {
		vk.FreeMemory(d.dev, mem, nil)
		vk.DestroyBuffer(d.dev, buf, nil)
		return nil, nil, err
	}
	return buf, mem, nil
}

// res is the wrapper state common to every resource of this
// backend.
type res struct {
	dev      *device
	handle   hal.Handle
	disposed bool
}

func (r *res) Handle() hal.Handle { return r.handle }

// destroy releases the registry entry; native objects are released
// by the concrete resource.
func (r *res) destroy(op string) error {
	if r.disposed {
		return fmt.Errorf("%s: %w", op, hal.ErrDisposed)
	}
	if err := r.dev.check(op); err != nil {
		return err
	}
	if err := r.dev.reg.Remove(r.handle); err != nil {
		return err
	}
	r.disposed = true
	return nil
}

type texture struct {
	res
	desc   hal.TextureDesc
	img    vk.Image
	memory vk.DeviceMemory
	view   vk.ImageView
	state  hal.ResourceState
	// layoutKnown is false until the first recorded transition;
	// the first barrier uses an undefined old layout, since the
	// image is created without its contents initialized.
	layoutKnown bool
	size        int64
}

func (t *texture) Desc() hal.TextureDesc { return t.desc }

func (t *texture) Destroy() error {
	if err := t.destroy("Texture.Destroy"); err != nil {
		return err
	}
	vk.DestroyImageView(t.dev.dev, t.view, nil)
	vk.DestroyImage(t.dev.dev, t.img, nil)
	vk.FreeMemory(t.dev.dev, t.memory, nil)
	t.dev.mem -= t.size
	t.dev.dsViews.DropViews(t.handle)
	t.dev.uaViews.DropViews(t.handle)
	return nil
}

// textureSize estimates the allocation for memory accounting.
func textureSize(d *hal.TextureDesc) int64 {
	depth := d.Depth
	if depth <= 0 {
		depth = 1
	}
	layers := d.ArraySize
	if layers <= 0 {
		layers = 1
	}
	return int64(d.Width) * int64(d.Height) * int64(depth) * int64(layers) * int64(d.Format.Size())
}

func imageUsage(u hal.TextureUsage) vk.ImageUsageFlags {
	// Transfer both ways is unconditional; copy and upload
	// operations do not require declared usage.
	f := vk.ImageUsageFlags(vk.ImageUsageTransferSrcBit | vk.ImageUsageTransferDstBit)
	if u&hal.TextureShaderResource != 0 {
		f |= vk.ImageUsageFlags(vk.ImageUsageSampledBit)
	}
	if u&hal.TextureRenderTarget != 0 {
		f |= vk.ImageUsageFlags(vk.ImageUsageColorAttachmentBit)
	}
	if u&hal.TextureDepthStencil != 0 {
		f |= vk.ImageUsageFlags(vk.ImageUsageDepthStencilAttachmentBit)
	}
	if u&hal.TextureUnorderedAccess != 0 {
		f |= vk.ImageUsageFlags(vk.ImageUsageStorageBit)
	}
	return f
}

func (d *device) CreateTexture(desc hal.TextureDesc) (hal.Texture, error) {
	const op = "CreateTexture"
	if err := d.check(op); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	f := vkFormat(desc.Format)
	if f == vk.FormatUndefined {
		return nil, fmt.Errorf("%s: %w: format %s", op, hal.ErrUnsupported, desc.Format)
	}
	depth := desc.Depth
	if depth <= 0 {
		depth = 1
	}
	layers := desc.ArraySize
	if layers <= 0 {
		layers = 1
	}
	mips := desc.MipLevels
	if mips <= 0 {
		mips = 1
	}
	imgType := vk.ImageType2d
	viewType := vk.ImageViewType2d
	switch desc.Dimension {
	case hal.Texture3D:
		imgType = vk.ImageType3d
		viewType = vk.ImageViewType3d
	case hal.Texture2DArray:
		viewType = vk.ImageViewType2dArray
	case hal.TextureCube:
		viewType = vk.ImageViewTypeCube
	}

	var img vk.Image
	ret := vk.CreateImage(d.dev, &vk.ImageCreateInfo{
		SType:     vk.StructureTypeImageCreateInfo,
		ImageType: imgType,
		Format:    f,
		Extent: vk.Extent3D{
			Width:  uint32(desc.Width),
			Height: uint32(desc.Height),
			Depth:  uint32(depth),
		},
		MipLevels:     uint32(mips),
		ArrayLayers:   uint32(layers),
		Samples:       sampleCount(desc.Samples),
		Tiling:        vk.ImageTilingOptimal,
		Usage:         imageUsage(desc.Usage),
		SharingMode:   vk.SharingModeExclusive,
		InitialLayout: vk.ImageLayoutUndefined,
	}, nil, &img)
	if err := vkErr(op, ret); err != nil {
		return nil, err
	}

	var req vk.MemoryRequirements
	vk.GetImageMemoryRequirements(d.dev, img, &req)
	req.Deref()
	idx, err := d.findMemoryType(req.MemoryTypeBits, vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit))
	if err != nil {
		vk.DestroyImage(d.dev, img, nil)
		return nil, err
	}
	var mem vk.DeviceMemory
	ret = vk.AllocateMemory(d.dev, &vk.MemoryAllocateInfo{
		SType:           vk.StructureTypeMemoryAllocateInfo,
		AllocationSize:  req.Size,
		MemoryTypeIndex: idx,
	}, nil, &mem)
	if err := vkErr(op, ret); err != nil {
		vk.DestroyImage(d.dev, img, nil)
		return nil, err
	}
	ret = vk.BindImageMemory(d.dev, img, mem, 0)
	if err := vkErr(op, ret); err != nil {
		vk.FreeMemory(d.dev, mem, nil)
		vk.DestroyImage(d.dev, img, nil)
		return nil, err
	}

	var view vk.ImageView
	ret = vk.CreateImageView(d.dev, &vk.ImageViewCreateInfo{
		SType:    vk.StructureTypeImageViewCreateInfo,
		Image:    img,
		ViewType: viewType,
		Format:   f,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspectMask(desc.Format),
			LevelCount: uint32(mips),
			LayerCount: uint32(layers),
		},
	}, nil, &view)
	if err := vkErr(op, ret); err != nil {
		vk.FreeMemory(d.dev, mem, nil)
		vk.DestroyImage(d.dev, img, nil)
		return nil, err
	}

	// View-kind heaps account the same fixed descriptor budget as
	// the other backend, so exhaustion behaves identically.
	h := d.reg.NextIssued()
	if desc.Usage&hal.TextureDepthStencil != 0 {
		if _, _, err := d.dsViews.View(h, hal.TextureDepthStencil); err != nil {
			vk.DestroyImageView(d.dev, view, nil)
			vk.FreeMemory(d.dev, mem, nil)
			vk.DestroyImage(d.dev, img, nil)
			return nil, err
		}
	}
	if desc.Usage&hal.TextureUnorderedAccess != 0 {
		if _, _, err := d.uaViews.View(h, hal.TextureUnorderedAccess); err != nil {
			vk.DestroyImageView(d.dev, view, nil)
			vk.FreeMemory(d.dev, mem, nil)
			vk.DestroyImage(d.dev, img, nil)
			return nil, err
		}
	}

	t := &texture{
		res:    res{dev: d},
		desc:   desc,
		img:    img,
		memory: mem,
		view:   view,
		state:  desc.InitialState,
		size:   textureSize(&desc),
	}
	t.handle = d.reg.Add(t)
	d.mem += t.size
	return t, nil
}

type buffer struct {
	res
	desc   hal.BufferDesc
	buf    vk.Buffer
	memory vk.DeviceMemory
	state  hal.ResourceState
}

func (b *buffer) Desc() hal.BufferDesc { return b.desc }

func (b *buffer) Destroy() error {
	if err := b.destroy("Buffer.Destroy"); err != nil {
		return err
	}
	vk.DestroyBuffer(b.dev.dev, b.buf, nil)
	vk.FreeMemory(b.dev.dev, b.memory, nil)
	b.dev.mem -= b.desc.Size
	return nil
}

func bufferUsage(u hal.BufferUsage) vk.BufferUsageFlags {
	f := vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit | vk.BufferUsageTransferDstBit)
	if u&hal.BufferVertex != 0 {
		f |= vk.BufferUsageFlags(vk.BufferUsageVertexBufferBit)
	}
	if u&hal.BufferIndex != 0 {
		f |= vk.BufferUsageFlags(vk.BufferUsageIndexBufferBit)
	}
	if u&hal.BufferConstant != 0 {
		f |= vk.BufferUsageFlags(vk.BufferUsageUniformBufferBit)
	}
	if u&(hal.BufferStructured|hal.BufferUnorderedAccess|hal.BufferAccelStructStorage|hal.BufferAccelStructInput) != 0 {
		f |= vk.BufferUsageFlags(vk.BufferUsageStorageBufferBit)
	}
	return f
}

func (d *device) CreateBuffer(desc hal.BufferDesc) (hal.Buffer, error) {
	const op = "CreateBuffer"
	if err := d.check(op); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	props := vk.MemoryPropertyFlags(vk.MemoryPropertyDeviceLocalBit)
	if desc.CPUAccess != hal.CPUNone {
		props = vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit | vk.MemoryPropertyHostCoherentBit)
	}
	buf, mem, err := d.allocBuffer(op, desc.Size, bufferUsage(desc.Usage), props)
	if err != nil {
		return nil, err
	}
	b := &buffer{
		res:    res{dev: d},
		desc:   desc,
		buf:    buf,
		memory: mem,
		state:  desc.InitialState,
	}
	b.handle = d.reg.Add(b)
	d.mem += desc.Size
	return b, nil
}

type sampler struct {
	res
	desc hal.SamplerDesc
	s    vk.Sampler
	slot hal.DescriptorSlot
}

func (s *sampler) Desc() hal.SamplerDesc { return s.desc }

func (s *sampler) Destroy() error {
	if err := s.destroy("Sampler.Destroy"); err != nil {
		return err
	}
	vk.DestroySampler(s.dev.dev, s.s, nil)
	s.dev.samplers.Release(s.slot)
	return nil
}

func (d *device) CreateSampler(desc hal.SamplerDesc) (hal.Sampler, error) {
	const op = "CreateSampler"
	if err := d.check(op); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	slot, err := d.samplers.Alloc()
	if err != nil {
		return nil, err
	}
	aniso := vk.Bool32(vk.False)
	maxAniso := float32(1)
	if desc.MaxAniso > 1 {
		aniso = vk.Bool32(vk.True)
		maxAniso = float32(desc.MaxAniso)
	}
	var smp vk.Sampler
	ret := vk.CreateSampler(d.dev, &vk.SamplerCreateInfo{
		SType:            vk.StructureTypeSamplerCreateInfo,
		MagFilter:        samplerFilter(desc.MagFilter),
		MinFilter:        samplerFilter(desc.MinFilter),
		MipmapMode:       samplerMipmapMode(desc.MipFilter),
		AddressModeU:     samplerAddressMode(desc.AddressU),
		AddressModeV:     samplerAddressMode(desc.AddressV),
		AddressModeW:     samplerAddressMode(desc.AddressW),
		AnisotropyEnable: aniso,
		MaxAnisotropy:    maxAniso,
		CompareOp:        vk.CompareOpAlways,
		MinLod:           desc.MinLOD,
		MaxLod:           desc.MaxLOD,
		BorderColor:      vk.BorderColorIntOpaqueBlack,
	}, nil, &smp)
	if err := vkErr(op, ret); err != nil {
		d.samplers.Release(slot)
		return nil, err
	}
	s := &sampler{res: res{dev: d}, desc: desc, s: smp, slot: slot}
	s.handle = d.reg.Add(s)
	return s, nil
}

// shader owns a shader module compiled from SPIR-V bytecode.
type shader struct {
	res
	desc   hal.ShaderDesc
	module vk.ShaderModule
}

func (s *shader) Desc() hal.ShaderDesc { return s.desc }

func (s *shader) Destroy() error {
	if err := s.destroy("Shader.Destroy"); err != nil {
		return err
	}
	vk.DestroyShaderModule(s.dev.dev, s.module, nil)
	return nil
}

// repackUint32 repacks SPIR-V bytes into the word slice the module
// create info consumes.
func repackUint32(data []byte) []uint32 {
	buf := make([]uint32, len(data)/4)
	for i := range buf {
		buf[i] = uint32(data[i*4]) | uint32(data[i*4+1])<<8 |
			uint32(data[i*4+2])<<16 | uint32(data[i*4+3])<<24
	}
	return buf
}

func (d *device) CreateShader(desc hal.ShaderDesc) (hal.Shader, error) {
	const op = "CreateShader"
	if err := d.check(op); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	if len(desc.Bytecode)%4 != 0 {
		return nil, fmt.Errorf("%s: %w: bytecode length %d is not a SPIR-V word multiple",
			op, hal.ErrInvalidArgument, len(desc.Bytecode))
	}
	var module vk.ShaderModule
	ret := vk.CreateShaderModule(d.dev, &vk.ShaderModuleCreateInfo{
		SType:    vk.StructureTypeShaderModuleCreateInfo,
		CodeSize: uint64(len(desc.Bytecode)),
		PCode:    repackUint32(desc.Bytecode),
	}, nil, &module)
	if err := vkErr(op, ret); err != nil {
		return nil, err
	}
	s := &shader{res: res{dev: d}, desc: desc, module: module}
	s.handle = d.reg.Add(s)
	return s, nil
}

type pipeline struct {
	res
	p      vk.Pipeline
	pass   vk.RenderPass // graphics only
	layout hal.BindingLayout
}

func (p *pipeline) Layout() hal.BindingLayout { return p.layout }

func (p *pipeline) Destroy() error {
	if err := p.destroy("Pipeline.Destroy"); err != nil {
		return err
	}
	vk.DestroyPipeline(p.dev.dev, p.p, nil)
	if p.pass != vk.NullRenderPass {
		vk.DestroyRenderPass(p.dev.dev, p.pass, nil)
	}
	return nil
}

// pipeLayout resolves the native pipeline layout of a binding
// layout, the empty layout when none is attached.
func (d *device) pipeLayout(l hal.BindingLayout) vk.PipelineLayout {
	if bl, ok := l.(*bindingLayout); ok {
		return bl.pipeLayout
	}
	return d.emptyLayout
}

// renderPassFor builds a single-subpass render pass matching the
// pipeline's target formats. Attachments load and store; clears go
// through ClearTexture instead of load ops.
func (d *device) renderPassFor(op string, colors []hal.Format, depth hal.Format, samples int) (vk.RenderPass, error) {
	var atts []vk.AttachmentDescription
	var colorRefs []vk.AttachmentReference
	for _, f := range colors {
		colorRefs = append(colorRefs, vk.AttachmentReference{
			Attachment: uint32(len(atts)),
			Layout:     vk.ImageLayoutColorAttachmentOptimal,
		})
		atts = append(atts, vk.AttachmentDescription{
			Format:         vkFormat(f),
			Samples:        sampleCount(samples),
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpDontCare,
			StencilStoreOp: vk.AttachmentStoreOpDontCare,
			InitialLayout:  vk.ImageLayoutColorAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutColorAttachmentOptimal,
		})
	}
	sub := vk.SubpassDescription{
		PipelineBindPoint:    vk.PipelineBindPointGraphics,
		ColorAttachmentCount: uint32(len(colorRefs)),
		PColorAttachments:    colorRefs,
	}
	if depth != hal.FormatUnknown {
		sub.PDepthStencilAttachment = &vk.AttachmentReference{
			Attachment: uint32(len(atts)),
			Layout:     vk.ImageLayoutDepthStencilAttachmentOptimal,
		}
		atts = append(atts, vk.AttachmentDescription{
			Format:         vkFormat(depth),
			Samples:        sampleCount(samples),
			LoadOp:         vk.AttachmentLoadOpLoad,
			StoreOp:        vk.AttachmentStoreOpStore,
			StencilLoadOp:  vk.AttachmentLoadOpLoad,
			StencilStoreOp: vk.AttachmentStoreOpStore,
			InitialLayout:  vk.ImageLayoutDepthStencilAttachmentOptimal,
			FinalLayout:    vk.ImageLayoutDepthStencilAttachmentOptimal,
		})
	}
	var pass vk.RenderPass
	ret := vk.CreateRenderPass(d.dev, &vk.RenderPassCreateInfo{
		SType:           vk.StructureTypeRenderPassCreateInfo,
		AttachmentCount: uint32(len(atts)),
		PAttachments:    atts,
		SubpassCount:    1,
		PSubpasses:      []vk.SubpassDescription{sub},
	}, nil, &pass)
	if err := vkErr(op, ret); err != nil {
		return vk.NullRenderPass, err
	}
	return pass, nil
}

func (d *device) CreateGraphicsPipeline(desc hal.GraphicsPipelineDesc) (hal.Pipeline, error) {
	const op = "CreateGraphicsPipeline"
	if err := d.check(op); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	vs, ok := desc.VertexShader.(*shader)
	if !ok || vs.dev != d {
		return nil, fmt.Errorf("%s: %w: foreign vertex shader", op, hal.ErrInvalidArgument)
	}
	stages := []vk.PipelineShaderStageCreateInfo{{
		SType:  vk.StructureTypePipelineShaderStageCreateInfo,
		Stage:  vk.ShaderStageVertexBit,
		Module: vs.module,
		PName:  vs.desc.EntryPoint + "\x00",
	}}
	if desc.PixelShader != nil {
		ps, ok := desc.PixelShader.(*shader)
		if !ok || ps.dev != d {
			return nil, fmt.Errorf("%s: %w: foreign pixel shader", op, hal.ErrInvalidArgument)
		}
		stages = append(stages, vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageFragmentBit,
			Module: ps.module,
			PName:  ps.desc.EntryPoint + "\x00",
		})
	}

	// One vertex binding per referenced buffer index, with the
	// stride taken from the first attribute that uses it.
	var binds []vk.VertexInputBindingDescription
	var attrs []vk.VertexInputAttributeDescription
	seen := map[int]bool{}
	for i, a := range desc.Input {
		if !seen[a.BufferIndex] {
			seen[a.BufferIndex] = true
			binds = append(binds, vk.VertexInputBindingDescription{
				Binding:   uint32(a.BufferIndex),
				Stride:    uint32(a.Stride),
				InputRate: vk.VertexInputRateVertex,
			})
		}
		attrs = append(attrs, vk.VertexInputAttributeDescription{
			Location: uint32(i),
			Binding:  uint32(a.BufferIndex),
			Format:   vkFormat(a.Format),
			Offset:   uint32(a.Offset),
		})
	}

	raster := &vk.PipelineRasterizationStateCreateInfo{
		SType:            vk.StructureTypePipelineRasterizationStateCreateInfo,
		PolygonMode:      vk.PolygonModeFill,
		CullMode:         cullMode(desc.Raster.Cull),
		FrontFace:        vk.FrontFaceCounterClockwise,
		DepthClampEnable: boolToVk(desc.Raster.DepthClampEnable),
		LineWidth:        1,
	}
	if desc.Raster.Wireframe {
		raster.PolygonMode = vk.PolygonModeLine
	}
	if desc.Raster.FrontClockwise {
		raster.FrontFace = vk.FrontFaceClockwise
	}
	if desc.Raster.DepthBias != 0 || desc.Raster.SlopeScaledBias != 0 {
		raster.DepthBiasEnable = vk.Bool32(vk.True)
		raster.DepthBiasConstantFactor = float32(desc.Raster.DepthBias)
		raster.DepthBiasSlopeFactor = desc.Raster.SlopeScaledBias
	}

	ds := &vk.PipelineDepthStencilStateCreateInfo{
		SType:             vk.StructureTypePipelineDepthStencilStateCreateInfo,
		DepthTestEnable:   boolToVk(desc.DepthStencil.DepthTest),
		DepthWriteEnable:  boolToVk(desc.DepthStencil.DepthWrite),
		DepthCompareOp:    compareOp(desc.DepthStencil.DepthFunc),
		StencilTestEnable: boolToVk(desc.DepthStencil.StencilTest),
		Front: vk.StencilOpState{
			FailOp:      vk.StencilOpKeep,
			PassOp:      vk.StencilOpKeep,
			CompareOp:   vk.CompareOpAlways,
			CompareMask: uint32(desc.DepthStencil.StencilRead),
			WriteMask:   uint32(desc.DepthStencil.StencilWrite),
		},
		Back: vk.StencilOpState{
			FailOp:      vk.StencilOpKeep,
			PassOp:      vk.StencilOpKeep,
			CompareOp:   vk.CompareOpAlways,
			CompareMask: uint32(desc.DepthStencil.StencilRead),
			WriteMask:   uint32(desc.DepthStencil.StencilWrite),
		},
	}

	blend := vk.PipelineColorBlendAttachmentState{
		ColorWriteMask: 0xF,
		BlendEnable:    boolToVk(desc.Blend.Enable),
	}
	if desc.Blend.Enable {
		blend.SrcColorBlendFactor = blendFactor(desc.Blend.SrcFactor)
		blend.DstColorBlendFactor = blendFactor(desc.Blend.DstFactor)
		blend.ColorBlendOp = vk.BlendOpAdd
		blend.SrcAlphaBlendFactor = blendFactor(desc.Blend.SrcFactor)
		blend.DstAlphaBlendFactor = blendFactor(desc.Blend.DstFactor)
		blend.AlphaBlendOp = vk.BlendOpAdd
	}
	blends := make([]vk.PipelineColorBlendAttachmentState, len(desc.ColorFormats))
	for i := range blends {
		blends[i] = blend
	}

	pass, err := d.renderPassFor(op, desc.ColorFormats, desc.DepthFormat, desc.Samples)
	if err != nil {
		return nil, err
	}

	cfg := vk.GraphicsPipelineCreateInfo{
		SType:      vk.StructureTypeGraphicsPipelineCreateInfo,
		StageCount: uint32(len(stages)),
		PStages:    stages,
		PVertexInputState: &vk.PipelineVertexInputStateCreateInfo{
			SType:                           vk.StructureTypePipelineVertexInputStateCreateInfo,
			VertexBindingDescriptionCount:   uint32(len(binds)),
			PVertexBindingDescriptions:      binds,
			VertexAttributeDescriptionCount: uint32(len(attrs)),
			PVertexAttributeDescriptions:    attrs,
		},
		PInputAssemblyState: &vk.PipelineInputAssemblyStateCreateInfo{
			SType:    vk.StructureTypePipelineInputAssemblyStateCreateInfo,
			Topology: primitiveTopology(desc.Topology),
		},
		PViewportState: &vk.PipelineViewportStateCreateInfo{
			SType:         vk.StructureTypePipelineViewportStateCreateInfo,
			ViewportCount: 1,
			ScissorCount:  1,
		},
		PRasterizationState: raster,
		PMultisampleState: &vk.PipelineMultisampleStateCreateInfo{
			SType:                 vk.StructureTypePipelineMultisampleStateCreateInfo,
			RasterizationSamples:  sampleCount(desc.Samples),
			AlphaToCoverageEnable: boolToVk(desc.Blend.AlphaToCoverage),
		},
		PDepthStencilState: ds,
		PColorBlendState: &vk.PipelineColorBlendStateCreateInfo{
			SType:           vk.StructureTypePipelineColorBlendStateCreateInfo,
			AttachmentCount: uint32(len(blends)),
			PAttachments:    blends,
		},
		PDynamicState: &vk.PipelineDynamicStateCreateInfo{
			SType:             vk.StructureTypePipelineDynamicStateCreateInfo,
			DynamicStateCount: 2,
			PDynamicStates: []vk.DynamicState{
				vk.DynamicStateViewport,
				vk.DynamicStateScissor,
			},
		},
		Layout:     d.pipeLayout(desc.Layout),
		RenderPass: pass,
	}

	out := make([]vk.Pipeline, 1)
	ret := vk.CreateGraphicsPipelines(d.dev, d.cache, 1, []vk.GraphicsPipelineCreateInfo{cfg}, nil, out)
	if err := vkErr(op, ret); err != nil {
		vk.DestroyRenderPass(d.dev, pass, nil)
		return nil, err
	}
	p := &pipeline{res: res{dev: d}, p: out[0], pass: pass, layout: desc.Layout}
	p.handle = d.reg.Add(p)
	return p, nil
}

func (d *device) CreateComputePipeline(desc hal.ComputePipelineDesc) (hal.Pipeline, error) {
	const op = "CreateComputePipeline"
	if err := d.check(op); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	cs, ok := desc.Shader.(*shader)
	if !ok || cs.dev != d {
		return nil, fmt.Errorf("%s: %w: foreign shader", op, hal.ErrInvalidArgument)
	}
	cfg := vk.ComputePipelineCreateInfo{
		SType: vk.StructureTypeComputePipelineCreateInfo,
		Stage: vk.PipelineShaderStageCreateInfo{
			SType:  vk.StructureTypePipelineShaderStageCreateInfo,
			Stage:  vk.ShaderStageComputeBit,
			Module: cs.module,
			PName:  cs.desc.EntryPoint + "\x00",
		},
		Layout: d.pipeLayout(desc.Layout),
	}
	out := make([]vk.Pipeline, 1)
	ret := vk.CreateComputePipelines(d.dev, d.cache, 1, []vk.ComputePipelineCreateInfo{cfg}, nil, out)
	if err := vkErr(op, ret); err != nil {
		return nil, err
	}
	p := &pipeline{res: res{dev: d}, p: out[0], layout: desc.Layout}
	p.handle = d.reg.Add(p)
	return p, nil
}

func boolToVk(b bool) vk.Bool32 {
	if b {
		return vk.Bool32(vk.True)
	}
	return vk.Bool32(vk.False)
}

// framebuffer caches one native framebuffer per render pass it is
// drawn with.
type framebuffer struct {
	res
	desc hal.FramebufferDesc
	fbs  map[vk.RenderPass]vk.Framebuffer
}

func (f *framebuffer) Desc() hal.FramebufferDesc { return f.desc }

func (f *framebuffer) Destroy() error {
	if err := f.destroy("Framebuffer.Destroy"); err != nil {
		return err
	}
	for _, fb := range f.fbs {
		vk.DestroyFramebuffer(f.dev.dev, fb, nil)
	}
	f.fbs = nil
	return nil
}

// extent returns the render area, taken from the first attachment.
func (f *framebuffer) extent() (uint32, uint32) {
	var t hal.Texture
	if len(f.desc.ColorTargets) > 0 {
		t = f.desc.ColorTargets[0]
	} else {
		t = f.desc.DepthTarget
	}
	d := t.Desc()
	return uint32(d.Width), uint32(d.Height)
}

// vkFramebuffer returns the cached native framebuffer for the
// render pass, building it from the attachment views on first use.
func (f *framebuffer) vkFramebuffer(op string, pass vk.RenderPass) (vk.Framebuffer, error) {
	if fb, ok := f.fbs[pass]; ok {
		return fb, nil
	}
	var views []vk.ImageView
	for i, ct := range f.desc.ColorTargets {
		t, ok := ct.(*texture)
		if !ok || t.dev != f.dev {
			return vk.NullFramebuffer, fmt.Errorf("%s: %w: color target %d is foreign", op, hal.ErrInvalidArgument, i)
		}
		views = append(views, t.view)
	}
	if f.desc.DepthTarget != nil {
		t, ok := f.desc.DepthTarget.(*texture)
		if !ok || t.dev != f.dev {
			return vk.NullFramebuffer, fmt.Errorf("%s: %w: foreign depth target", op, hal.ErrInvalidArgument)
		}
		views = append(views, t.view)
	}
	w, h := f.extent()
	var fb vk.Framebuffer
	ret := vk.CreateFramebuffer(f.dev.dev, &vk.FramebufferCreateInfo{
		SType:           vk.StructureTypeFramebufferCreateInfo,
		RenderPass:      pass,
		AttachmentCount: uint32(len(views)),
		PAttachments:    views,
		Width:           w,
		Height:          h,
		Layers:          1,
	}, nil, &fb)
	if err := vkErr(op, ret); err != nil {
		return vk.NullFramebuffer, err
	}
	f.fbs[pass] = fb
	return fb, nil
}

func (d *device) CreateFramebuffer(desc hal.FramebufferDesc) (hal.Framebuffer, error) {
	if err := d.check("CreateFramebuffer"); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	f := &framebuffer{
		res:  res{dev: d},
		desc: desc,
		fbs:  make(map[vk.RenderPass]vk.Framebuffer),
	}
	f.handle = d.reg.Add(f)
	return f, nil
}

type fence struct {
	res
	f vk.Fence
}

func (f *fence) Signaled() bool {
	if f.disposed || f.dev.disposed {
		return false
	}
	return vk.GetFenceStatus(f.dev.dev, f.f) == vk.Success
}

func (f *fence) Destroy() error {
	if err := f.destroy("Fence.Destroy"); err != nil {
		return err
	}
	vk.DestroyFence(f.dev.dev, f.f, nil)
	return nil
}

func (d *device) NewFence() (hal.Fence, error) {
	const op = "NewFence"
	if err := d.check(op); err != nil {
		return nil, err
	}
	var nf vk.Fence
	ret := vk.CreateFence(d.dev, &vk.FenceCreateInfo{
		SType: vk.StructureTypeFenceCreateInfo,
	}, nil, &nf)
	if err := vkErr(op, ret); err != nil {
		return nil, err
	}
	f := &fence{res: res{dev: d}, f: nf}
	f.handle = d.reg.Add(f)
	return f, nil
}

func (d *device) SignalFence(f hal.Fence) error {
	const op = "SignalFence"
	if err := d.check(op); err != nil {
		return err
	}
	vf, ok := f.(*fence)
	if !ok || vf.dev != d {
		return fmt.Errorf("%s: %w: foreign fence", op, hal.ErrInvalidArgument)
	}
	if vf.disposed {
		return fmt.Errorf("%s: %w", op, hal.ErrDisposed)
	}
	// An empty submission signals the fence after all previously
	// submitted work.
	return vkErr(op, vk.QueueSubmit(d.queue, 0, nil, vf.f))
}

func (d *device) WaitFence(f hal.Fence) error {
	const op = "WaitFence"
	if err := d.check(op); err != nil {
		return err
	}
	vf, ok := f.(*fence)
	if !ok || vf.dev != d {
		return fmt.Errorf("%s: %w: foreign fence", op, hal.ErrInvalidArgument)
	}
	if vf.disposed {
		return fmt.Errorf("%s: %w", op, hal.ErrDisposed)
	}
	return vkErr(op, vk.WaitForFences(d.dev, 1, []vk.Fence{vf.f}, vk.True, vk.MaxUint64))
}

func (d *device) WaitIdle() error {
	const op = "WaitIdle"
	if err := d.check(op); err != nil {
		return err
	}
	return vkErr(op, vk.DeviceWaitIdle(d.dev))
}

// mapWrite copies data into mapped host-visible memory at off.
func (d *device) mapWrite(op string, mem vk.DeviceMemory, data []byte, off int64) error {
	var p unsafe.Pointer
	ret := vk.MapMemory(d.dev, mem, vk.DeviceSize(off), vk.DeviceSize(len(data)), 0, &p)
	if err := vkErr(op, ret); err != nil {
		return err
	}
	vk.Memcopy(p, data)
	vk.UnmapMemory(d.dev, mem)
	return nil
}
