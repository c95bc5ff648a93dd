// Copyright 2026 The Andastra Authors. All rights reserved.

// Package d3d12 implements the hal contract over Direct3D 12.
//
// The native layer loads d3d12.dll lazily and calls through COM
// vtables; no cgo. Off Windows the backend still registers and
// opens: resource creation degrades to zero-handle placeholders,
// while command-list and binding-layout creation fail outright,
// since recording and root-signature serialization have no
// meaningful degraded form.
package d3d12

import (
	"fmt"

	"github.com/andastra/graphics/hal"
)

// BackendName is the name the backend registers under.
const BackendName = "d3d12"

type backend struct{}

func init() {
	hal.Register(backend{})
}

// Name returns the backend identifier.
func (backend) Name() string { return BackendName }

// Open creates a device on the default adapter.
func (backend) Open(opts *hal.DeviceOptions) (hal.Device, error) {
	return newDevice(opts)
}

// device implements hal.Device.
type device struct {
	nat      *native
	reg      *hal.Registry
	samplers *hal.DescriptorHeap
	dsViews  *hal.DescriptorHeap
	uaViews  *hal.DescriptorHeap
	frame    int
	mem      int64
	disposed bool
}

func newDevice(opts *hal.DeviceOptions) (*device, error) {
	nat, err := newNative(opts)
	if err != nil {
		return nil, err
	}
	ns, nds, nua := opts.HeapSizes()
	d := &device{nat: nat, reg: hal.NewRegistry()}
	if d.samplers, err = hal.NewDescriptorHeap(hal.HeapSampler, ns,
		nat.heapStart(hal.HeapSampler), nat.heapIncrement(hal.HeapSampler)); err != nil {
		nat.destroy()
		return nil, err
	}
	if d.dsViews, err = hal.NewDescriptorHeap(hal.HeapDepthStencil, nds,
		nat.heapStart(hal.HeapDepthStencil), nat.heapIncrement(hal.HeapDepthStencil)); err != nil {
		nat.destroy()
		return nil, err
	}
	if d.uaViews, err = hal.NewDescriptorHeap(hal.HeapUnorderedAccess, nua,
		nat.heapStart(hal.HeapUnorderedAccess), nat.heapIncrement(hal.HeapUnorderedAccess)); err != nil {
		nat.destroy()
		return nil, err
	}
	return d, nil
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
		AdapterName:             d.nat.adapterName(),
		HasRayTracing:           d.nat.raytracing(),
		HasPlaceholderResources: d.nat.placeholder(),
	}
}

func (d *device) Destroy() error {
	if d.disposed {
		return fmt.Errorf("Destroy: %w: device", hal.ErrDisposed)
	}
	d.disposed = true
	d.nat.destroy()
	return nil
}

func (d *device) ConstantBufferAlignment() int { return hal.ConstantBufferAlignment }

func (d *device) TextureAlignment() int { return hal.TextureRowAlignment }

func (d *device) IsFormatSupported(f hal.Format) bool {
	return dxgiFormat(f) != DXGI_FORMAT_UNKNOWN
}

func (d *device) FrameIndex() int { return d.frame }

func (d *device) AdvanceFrame() { d.frame++ }

func (d *device) VideoMemoryUsage() int64 { return d.mem }

func (d *device) LiveResources() int { return d.reg.Live() }

// res is the wrapper state common to every resource of this
// backend. nat is the native COM object, zero on the placeholder
// path.
type res struct {
	dev      *device
	handle   hal.Handle
	nat      uintptr
	disposed bool
}

func (r *res) Handle() hal.Handle { return r.handle }

// destroy releases the registry entry and the native object.
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
	if r.nat != 0 {
		r.dev.nat.release(r.nat)
		r.nat = 0
	}
	return nil
}

type texture struct {
	res
	desc  hal.TextureDesc
	state hal.ResourceState
	size  int64
}

func (t *texture) Desc() hal.TextureDesc { return t.desc }

func (t *texture) Destroy() error {
	if err := t.destroy("Texture.Destroy"); err != nil {
		return err
	}
	t.dev.mem -= t.size
	t.dev.dsViews.DropViews(t.handle)
	t.dev.uaViews.DropViews(t.handle)
	return nil
}

// textureSize estimates the allocation for memory accounting.
// The native API does not expose the placed size of committed
// resources, so both paths use the tight texel estimate.
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

func (d *device) CreateTexture(desc hal.TextureDesc) (hal.Texture, error) {
	const op = "CreateTexture"
	if err := d.check(op); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	nat, err := d.nat.createTexture(&desc)
	if err != nil {
		return nil, err
	}
	// Depth-stencil and read-write views consume fixed-capacity
	// heap slots at creation time. A heap failure here must not
	// leak the committed resource.
	h := d.reg.NextIssued()
	if desc.Usage&hal.TextureDepthStencil != 0 {
		slot, created, err := d.dsViews.View(h, hal.TextureDepthStencil)
		if err != nil {
			d.nat.release(nat)
			return nil, err
		}
		if created && nat != 0 {
			if err := d.nat.createTextureView(nat, &desc, hal.TextureDepthStencil, slot.Addr); err != nil {
				d.nat.release(nat)
				return nil, err
			}
		}
	}
	if desc.Usage&hal.TextureUnorderedAccess != 0 {
		slot, created, err := d.uaViews.View(h, hal.TextureUnorderedAccess)
		if err != nil {
			d.nat.release(nat)
			return nil, err
		}
		if created && nat != 0 {
			if err := d.nat.createTextureView(nat, &desc, hal.TextureUnorderedAccess, slot.Addr); err != nil {
				d.nat.release(nat)
				return nil, err
			}
		}
	}
	t := &texture{
		res:   res{dev: d, nat: nat},
		desc:  desc,
		state: desc.InitialState,
		size:  textureSize(&desc),
	}
	t.handle = d.reg.Add(t)
	d.mem += t.size
	return t, nil
}

type buffer struct {
	res
	desc  hal.BufferDesc
	state hal.ResourceState
}

func (b *buffer) Desc() hal.BufferDesc { return b.desc }

func (b *buffer) Destroy() error {
	if err := b.destroy("Buffer.Destroy"); err != nil {
		return err
	}
	b.dev.mem -= b.desc.Size
	return nil
}

func (d *device) CreateBuffer(desc hal.BufferDesc) (hal.Buffer, error) {
	if err := d.check("CreateBuffer"); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	nat, err := d.nat.createBuffer(&desc)
	if err != nil {
		return nil, err
	}
	b := &buffer{
		res:   res{dev: d, nat: nat},
		desc:  desc,
		state: desc.InitialState,
	}
	b.handle = d.reg.Add(b)
	d.mem += desc.Size
	return b, nil
}

type sampler struct {
	res
	desc hal.SamplerDesc
	slot hal.DescriptorSlot
}

func (s *sampler) Desc() hal.SamplerDesc { return s.desc }

func (s *sampler) Destroy() error {
	if err := s.destroy("Sampler.Destroy"); err != nil {
		return err
	}
	s.dev.samplers.Release(s.slot)
	return nil
}

func (d *device) CreateSampler(desc hal.SamplerDesc) (hal.Sampler, error) {
	if err := d.check("CreateSampler"); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	slot, err := d.samplers.Alloc()
	if err != nil {
		return nil, err
	}
	if err := d.nat.createSampler(&desc, slot.Addr); err != nil {
		d.samplers.Release(slot)
		return nil, err
	}
	s := &sampler{res: res{dev: d}, desc: desc, slot: slot}
	s.handle = d.reg.Add(s)
	return s, nil
}

// shader holds bytecode only; the native API consumes it at
// pipeline creation, there is no standalone shader object.
type shader struct {
	res
	desc hal.ShaderDesc
}

func (s *shader) Desc() hal.ShaderDesc { return s.desc }

func (s *shader) Destroy() error { return s.destroy("Shader.Destroy") }

func (d *device) CreateShader(desc hal.ShaderDesc) (hal.Shader, error) {
	if err := d.check("CreateShader"); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	s := &shader{res: res{dev: d}, desc: desc}
	s.handle = d.reg.Add(s)
	return s, nil
}

type pipeline struct {
	res
	layout hal.BindingLayout
}

func (p *pipeline) Layout() hal.BindingLayout { return p.layout }

func (p *pipeline) Destroy() error { return p.destroy("Pipeline.Destroy") }

// layoutRootSig extracts the native root signature of a layout,
// zero when no layout is attached.
func layoutRootSig(l hal.BindingLayout) uintptr {
	if bl, ok := l.(*bindingLayout); ok {
		return bl.nat
	}
	return 0
}

func (d *device) CreateGraphicsPipeline(desc hal.GraphicsPipelineDesc) (hal.Pipeline, error) {
	if err := d.check("CreateGraphicsPipeline"); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	nat, err := d.nat.createGraphicsPipeline(&desc, layoutRootSig(desc.Layout))
	if err != nil {
		return nil, err
	}
	p := &pipeline{res: res{dev: d, nat: nat}, layout: desc.Layout}
	p.handle = d.reg.Add(p)
	return p, nil
}

func (d *device) CreateComputePipeline(desc hal.ComputePipelineDesc) (hal.Pipeline, error) {
	if err := d.check("CreateComputePipeline"); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	nat, err := d.nat.createComputePipeline(&desc, layoutRootSig(desc.Layout))
	if err != nil {
		return nil, err
	}
	p := &pipeline{res: res{dev: d, nat: nat}, layout: desc.Layout}
	p.handle = d.reg.Add(p)
	return p, nil
}

type framebuffer struct {
	res
	desc hal.FramebufferDesc
}

func (f *framebuffer) Desc() hal.FramebufferDesc { return f.desc }

func (f *framebuffer) Destroy() error { return f.destroy("Framebuffer.Destroy") }

func (d *device) CreateFramebuffer(desc hal.FramebufferDesc) (hal.Framebuffer, error) {
	if err := d.check("CreateFramebuffer"); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	f := &framebuffer{res: res{dev: d}, desc: desc}
	f.handle = d.reg.Add(f)
	return f, nil
}

// bindingLayout owns a serialized root signature.
type bindingLayout struct {
	res
	desc   hal.BindingLayoutDesc
	tables []hal.BindingTable
}

func (l *bindingLayout) Desc() hal.BindingLayoutDesc { return l.desc }

func (l *bindingLayout) Tables() []hal.BindingTable { return l.tables }

func (l *bindingLayout) Destroy() error { return l.destroy("BindingLayout.Destroy") }

func (d *device) CreateBindingLayout(desc hal.BindingLayoutDesc) (hal.BindingLayout, error) {
	if err := d.check("CreateBindingLayout"); err != nil {
		return nil, err
	}
	tables, err := hal.PackBindingTables(&desc)
	if err != nil {
		return nil, err
	}
	// Serialization failure surfaces as one translation error;
	// no partial layout is retained.
	nat, err := d.nat.createRootSignature(tables)
	if err != nil {
		return nil, err
	}
	l := &bindingLayout{res: res{dev: d, nat: nat}, desc: desc, tables: tables}
	l.handle = d.reg.Add(l)
	return l, nil
}

type bindingSet struct {
	res
	desc   hal.BindingSetDesc
	layout hal.BindingLayout
}

func (s *bindingSet) Desc() hal.BindingSetDesc { return s.desc }

func (s *bindingSet) Layout() hal.BindingLayout { return s.layout }

func (s *bindingSet) Destroy() error { return s.destroy("BindingSet.Destroy") }

func (d *device) CreateBindingSet(desc hal.BindingSetDesc, layout hal.BindingLayout) (hal.BindingSet, error) {
	const op = "CreateBindingSet"
	if err := d.check(op); err != nil {
		return nil, err
	}
	if layout == nil {
		return nil, fmt.Errorf("%s: %w: nil layout", op, hal.ErrInvalidArgument)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	s := &bindingSet{res: res{dev: d}, desc: desc, layout: layout}
	s.handle = d.reg.Add(s)
	return s, nil
}

type fence struct {
	res
	nf *nativeFence
}

func (f *fence) Signaled() bool {
	if f.disposed || f.dev.disposed {
		return false
	}
	return f.dev.nat.fenceSignaled(f.nf)
}

func (f *fence) Destroy() error {
	if err := f.destroy("Fence.Destroy"); err != nil {
		return err
	}
	f.dev.nat.releaseFence(f.nf)
	return nil
}

func (d *device) NewFence() (hal.Fence, error) {
	if err := d.check("NewFence"); err != nil {
		return nil, err
	}
	nf, err := d.nat.newFence()
	if err != nil {
		return nil, err
	}
	f := &fence{res: res{dev: d}, nf: nf}
	f.handle = d.reg.Add(f)
	return f, nil
}

func (d *device) SignalFence(f hal.Fence) error {
	const op = "SignalFence"
	if err := d.check(op); err != nil {
		return err
	}
	df, ok := f.(*fence)
	if !ok || df.dev != d {
		return fmt.Errorf("%s: %w: foreign fence", op, hal.ErrInvalidArgument)
	}
	if df.disposed {
		return fmt.Errorf("%s: %w", op, hal.ErrDisposed)
	}
	return d.nat.signalFence(df.nf)
}

func (d *device) WaitFence(f hal.Fence) error {
	const op = "WaitFence"
	if err := d.check(op); err != nil {
		return err
	}
	df, ok := f.(*fence)
	if !ok || df.dev != d {
		return fmt.Errorf("%s: %w: foreign fence", op, hal.ErrInvalidArgument)
	}
	if df.disposed {
		return fmt.Errorf("%s: %w", op, hal.ErrDisposed)
	}
	return d.nat.waitFence(df.nf)
}

func (d *device) WaitIdle() error {
	if err := d.check("WaitIdle"); err != nil {
		return err
	}
	return d.nat.waitIdle()
}
