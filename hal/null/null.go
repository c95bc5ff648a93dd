// Copyright 2026 The Andastra Authors. All rights reserved.

// Package null implements the hal contract without touching any
// native graphics API. Native handles are synthetic and GPU work
// completes at submission time.
//
// The backend exists for renderer tests and headless tooling: it
// exercises the full contract — command-list lifecycle, barrier
// batching, descriptor heaps and the two-phase acceleration
// structure protocol — deterministically on any platform.
package null

import (
	"fmt"

	"github.com/andastra/graphics/hal"
)

// BackendName is the name the backend registers under.
const BackendName = "null"

type backend struct{}

func init() {
	hal.Register(backend{})
}

// Name returns the backend identifier.
func (backend) Name() string { return BackendName }

// Open creates a null device.
func (backend) Open(opts *hal.DeviceOptions) (hal.Device, error) {
	return newDevice(opts)
}

// Synthetic descriptor increments, one per heap kind. Values are
// arbitrary but distinct so address math mistakes surface in
// tests.
const (
	samplerIncrement = 32
	dsIncrement      = 64
	uaIncrement      = 128
)

// device implements hal.Device.
type device struct {
	reg       *hal.Registry
	samplers  *hal.DescriptorHeap
	dsViews   *hal.DescriptorHeap
	uaViews   *hal.DescriptorHeap
	frame     int
	mem       int64
	disposed  bool
	nextNat   uint64
	submitted uint64
}

func newDevice(opts *hal.DeviceOptions) (*device, error) {
	ns, nds, nua := opts.HeapSizes()
	d := &device{reg: hal.NewRegistry()}
	var err error
	if d.samplers, err = hal.NewDescriptorHeap(hal.HeapSampler, ns, 0x1000, samplerIncrement); err != nil {
		return nil, err
	}
	if d.dsViews, err = hal.NewDescriptorHeap(hal.HeapDepthStencil, nds, 0x2000, dsIncrement); err != nil {
		return nil, err
	}
	if d.uaViews, err = hal.NewDescriptorHeap(hal.HeapUnorderedAccess, nua, 0x3000, uaIncrement); err != nil {
		return nil, err
	}
	return d, nil
}

// native issues the next synthetic native handle.
func (d *device) native() uint64 {
	d.nextNat++
	return d.nextNat
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
		AdapterName:   "Null Adapter",
		HasRayTracing: true,
	}
}

func (d *device) Destroy() error {
	if d.disposed {
		return fmt.Errorf("Destroy: %w: device", hal.ErrDisposed)
	}
	d.disposed = true
	return nil
}

func (d *device) ConstantBufferAlignment() int { return hal.ConstantBufferAlignment }

func (d *device) TextureAlignment() int { return hal.TextureRowAlignment }

func (d *device) IsFormatSupported(f hal.Format) bool {
	return f != hal.FormatUnknown && f.Size() > 0
}

func (d *device) FrameIndex() int { return d.frame }

func (d *device) AdvanceFrame() { d.frame++ }

func (d *device) VideoMemoryUsage() int64 { return d.mem }

func (d *device) LiveResources() int { return d.reg.Live() }

// res is the wrapper state common to every null resource.
type res struct {
	dev      *device
	handle   hal.Handle
	nat      uint64
	disposed bool
}

func (r *res) Handle() hal.Handle { return r.handle }

// destroy releases the wrapper's registry entry.
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
	if err := d.check("CreateTexture"); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	t := &texture{
		res:   res{dev: d, nat: d.native()},
		desc:  desc,
		state: desc.InitialState,
		size:  textureSize(&desc),
	}
	// Views for depth-stencil and read-write usage consume
	// fixed-capacity heap slots at creation time, like the
	// native backends.
	if desc.Usage&hal.TextureDepthStencil != 0 {
		if _, _, err := d.dsViews.View(d.reg.NextIssued(), hal.TextureDepthStencil); err != nil {
			return nil, err
		}
	}
	if desc.Usage&hal.TextureUnorderedAccess != 0 {
		if _, _, err := d.uaViews.View(d.reg.NextIssued(), hal.TextureUnorderedAccess); err != nil {
			return nil, err
		}
	}
	t.handle = d.reg.Add(t)
	d.mem += t.size
	return t, nil
}

type buffer struct {
	res
	desc  hal.BufferDesc
	state hal.ResourceState
	data  []byte
}

func (b *buffer) Desc() hal.BufferDesc { return b.desc }

func (b *buffer) Destroy() error {
	if err := b.destroy("Buffer.Destroy"); err != nil {
		return err
	}
	b.dev.mem -= b.desc.Size
	b.data = nil
	return nil
}

func (d *device) CreateBuffer(desc hal.BufferDesc) (hal.Buffer, error) {
	if err := d.check("CreateBuffer"); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	b := &buffer{
		res:   res{dev: d, nat: d.native()},
		desc:  desc,
		state: desc.InitialState,
		data:  make([]byte, desc.Size),
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
	s := &sampler{res: res{dev: d, nat: d.native()}, desc: desc, slot: slot}
	s.handle = d.reg.Add(s)
	return s, nil
}

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
	s := &shader{res: res{dev: d, nat: d.native()}, desc: desc}
	s.handle = d.reg.Add(s)
	return s, nil
}

type pipeline struct {
	res
	layout hal.BindingLayout
	kind   hal.CommandListType
}

func (p *pipeline) Layout() hal.BindingLayout { return p.layout }

func (p *pipeline) Destroy() error { return p.destroy("Pipeline.Destroy") }

func (d *device) CreateGraphicsPipeline(desc hal.GraphicsPipelineDesc) (hal.Pipeline, error) {
	if err := d.check("CreateGraphicsPipeline"); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	p := &pipeline{res: res{dev: d, nat: d.native()}, layout: desc.Layout, kind: hal.ListGraphics}
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
	p := &pipeline{res: res{dev: d, nat: d.native()}, layout: desc.Layout, kind: hal.ListCompute}
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
	f := &framebuffer{res: res{dev: d, nat: d.native()}, desc: desc}
	f.handle = d.reg.Add(f)
	return f, nil
}

type bindingLayout struct {
	res
	desc   hal.BindingLayoutDesc
	tables []hal.BindingTable
}

func (l *bindingLayout) Desc() hal.BindingLayoutDesc { return l.desc }
func (l *bindingLayout) Tables() []hal.BindingTable  { return l.tables }

func (l *bindingLayout) Destroy() error { return l.destroy("BindingLayout.Destroy") }

func (d *device) CreateBindingLayout(desc hal.BindingLayoutDesc) (hal.BindingLayout, error) {
	if err := d.check("CreateBindingLayout"); err != nil {
		return nil, err
	}
	tables, err := hal.PackBindingTables(&desc)
	if err != nil {
		return nil, err
	}
	l := &bindingLayout{res: res{dev: d, nat: d.native()}, desc: desc, tables: tables}
	l.handle = d.reg.Add(l)
	return l, nil
}

type bindingSet struct {
	res
	desc   hal.BindingSetDesc
	layout hal.BindingLayout
}

func (s *bindingSet) Desc() hal.BindingSetDesc  { return s.desc }
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
	s := &bindingSet{res: res{dev: d, nat: d.native()}, desc: desc, layout: layout}
	s.handle = d.reg.Add(s)
	return s, nil
}

func (d *device) CreateRayTracingPipeline(desc hal.RayTracingPipelineDesc) (hal.Pipeline, error) {
	if err := d.check("CreateRayTracingPipeline"); err != nil {
		return nil, err
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	p := &pipeline{res: res{dev: d, nat: d.native()}, layout: desc.Layout, kind: hal.ListCompute}
	p.handle = d.reg.Add(p)
	return p, nil
}

type fence struct {
	res
	signaled bool
}

func (f *fence) Signaled() bool { return f.signaled }

func (f *fence) Destroy() error { return f.destroy("Fence.Destroy") }

func (d *device) NewFence() (hal.Fence, error) {
	if err := d.check("NewFence"); err != nil {
		return nil, err
	}
	f := &fence{res: res{dev: d, nat: d.native()}}
	f.handle = d.reg.Add(f)
	return f, nil
}

func (d *device) SignalFence(f hal.Fence) error {
	if err := d.check("SignalFence"); err != nil {
		return err
	}
	nf, ok := f.(*fence)
	if !ok || nf.dev != d {
		return fmt.Errorf("SignalFence: %w: foreign fence", hal.ErrInvalidArgument)
	}
	if nf.disposed {
		return fmt.Errorf("SignalFence: %w", hal.ErrDisposed)
	}
	// The null GPU timeline completes work at submission, so
	// the signal lands immediately.
	nf.signaled = true
	return nil
}

func (d *device) WaitFence(f hal.Fence) error {
	if err := d.check("WaitFence"); err != nil {
		return err
	}
	nf, ok := f.(*fence)
	if !ok || nf.dev != d {
		return fmt.Errorf("WaitFence: %w: foreign fence", hal.ErrInvalidArgument)
	}
	if nf.disposed {
		return fmt.Errorf("WaitFence: %w", hal.ErrDisposed)
	}
	if !nf.signaled {
		return fmt.Errorf("WaitFence: fence never signaled on null timeline")
	}
	return nil
}

func (d *device) WaitIdle() error {
	return d.check("WaitIdle")
}
