// Copyright 2026 The Andastra Authors. All rights reserved.

package d3d12

import (
	"fmt"

	"github.com/andastra/graphics/hal"
)

// accelStruct implements hal.AccelStruct. Storage lives in an
// ordinary buffer resource; the two-phase protocol (size, then
// build through a command list) is tracked on the wrapper.
type accelStruct struct {
	res
	desc    hal.AccelStructDesc
	info    hal.PrebuildInfo
	backing *buffer
	state   hal.ResourceState
	build   hal.AccelStructState
}

func (a *accelStruct) Desc() hal.AccelStructDesc { return a.desc }

func (a *accelStruct) State() hal.AccelStructState { return a.build }

func (a *accelStruct) Buffer() hal.Buffer { return a.backing }

func (a *accelStruct) Destroy() error {
	if err := a.destroy("AccelStruct.Destroy"); err != nil {
		return err
	}
	return a.backing.Destroy()
}

func (d *device) CreateAccelStruct(desc hal.AccelStructDesc) (hal.AccelStruct, error) {
	const op = "CreateAccelStruct"
	if err := d.check(op); err != nil {
		return nil, err
	}
	if !d.nat.raytracing() {
		return nil, fmt.Errorf("%s: %w: no raytracing device", op, hal.ErrUnsupported)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	info, err := d.nat.prebuild(&desc)
	if err != nil {
		return nil, err
	}
	backing, err := d.CreateBuffer(hal.BufferDesc{
		Size:         hal.AlignAccelStructSize(info.ResultSize),
		Usage:        hal.BufferAccelStructStorage | hal.BufferUnorderedAccess,
		InitialState: hal.StateAccelStructRead,
		DebugName:    desc.DebugName + " storage",
	})
	if err != nil {
		return nil, err
	}
	a := &accelStruct{
		res:     res{dev: d},
		desc:    desc,
		info:    info,
		backing: backing.(*buffer),
		state:   hal.StateAccelStructRead,
		build:   hal.AccelStructAllocated,
	}
	a.handle = d.reg.Add(a)
	return a, nil
}

func (d *device) CreateRayTracingPipeline(desc hal.RayTracingPipelineDesc) (hal.Pipeline, error) {
	const op = "CreateRayTracingPipeline"
	if err := d.check(op); err != nil {
		return nil, err
	}
	if !d.nat.raytracing() {
		return nil, fmt.Errorf("%s: %w: no raytracing device", op, hal.ErrUnsupported)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	nat, err := d.nat.createRayTracingPipeline(&desc, layoutRootSig(desc.Layout))
	if err != nil {
		return nil, err
	}
	p := &pipeline{res: res{dev: d, nat: nat}, layout: desc.Layout}
	p.handle = d.reg.Add(p)
	return p, nil
}

// geometryInput resolves the device addresses of one geometry for
// the native build call.
type geometryInput struct {
	vertexVA     uint64
	vertexCount  int
	vertexStride int64
	vertexFormat uint32
	indexVA      uint64
	indexCount   int
	transformVA  uint64
	opaque       bool
}

// instanceInput is one resolved top-level instance record.
type instanceInput struct {
	blasVA    uint64
	transform [12]float32
	id        uint32
	mask      uint8
	flags     hal.InstanceFlags
}

// resolveGeometry checks geometry buffers and resolves their GPU
// virtual addresses.
func (l *commandList) resolveGeometry(op string, geoms []hal.GeometryDesc) ([]geometryInput, error) {
	in := make([]geometryInput, len(geoms))
	for i, g := range geoms {
		vb, ok := g.VertexBuffer.(*buffer)
		if !ok || vb.dev != l.dev {
			return nil, fmt.Errorf("%s: %w: geometry %d: foreign vertex buffer", op, hal.ErrInvalidArgument, i)
		}
		if vb.desc.Usage&hal.BufferAccelStructInput == 0 {
			return nil, fmt.Errorf("%s: %w: geometry %d: vertex buffer lacks AccelStructInput usage",
				op, hal.ErrInvalidArgument, i)
		}
		in[i] = geometryInput{
			vertexVA:     l.dev.nat.bufferAddress(vb.nat) + uint64(g.VertexOffset),
			vertexCount:  g.VertexCount,
			vertexStride: g.VertexStride,
			vertexFormat: dxgiFormat(g.VertexFormat),
			opaque:       g.Flags&hal.GeometryOpaque != 0,
		}
		if g.IndexBuffer != nil {
			ib, ok := g.IndexBuffer.(*buffer)
			if !ok || ib.dev != l.dev {
				return nil, fmt.Errorf("%s: %w: geometry %d: foreign index buffer", op, hal.ErrInvalidArgument, i)
			}
			in[i].indexVA = l.dev.nat.bufferAddress(ib.nat) + uint64(g.IndexOffset)
			in[i].indexCount = g.IndexCount
		}
		if g.Transform != nil {
			tb, ok := g.Transform.(*buffer)
			if !ok || tb.dev != l.dev {
				return nil, fmt.Errorf("%s: %w: geometry %d: foreign transform buffer", op, hal.ErrInvalidArgument, i)
			}
			in[i].transformVA = l.dev.nat.bufferAddress(tb.nat) + uint64(g.TransformOffset)
		}
	}
	return in, nil
}

func (l *commandList) BuildBottomLevel(as hal.AccelStruct, geoms []hal.GeometryDesc) error {
	const op = "BuildBottomLevel"
	if err := l.record(op); err != nil {
		return err
	}
	a, ok := as.(*accelStruct)
	if !ok || a.dev != l.dev {
		return fmt.Errorf("%s: %w: foreign structure", op, hal.ErrInvalidArgument)
	}
	if a.desc.Kind != hal.BottomLevel {
		return fmt.Errorf("%s: %w: structure is not bottom-level", op, hal.ErrInvalidArgument)
	}
	if len(geoms) == 0 {
		return fmt.Errorf("%s: %w: zero geometries", op, hal.ErrInvalidArgument)
	}
	if len(geoms) != len(a.desc.Geometries) {
		return fmt.Errorf("%s: %w: %d geometries, structure sized for %d",
			op, hal.ErrInvalidArgument, len(geoms), len(a.desc.Geometries))
	}
	in, err := l.resolveGeometry(op, geoms)
	if err != nil {
		return err
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	dstVA := l.dev.nat.bufferAddress(a.backing.nat)
	if err := l.nl.buildBottomLevel(dstVA, in, a.info.ScratchSize, a.desc.BuildFlags); err != nil {
		return err
	}
	l.built = append(l.built, a)
	return nil
}

func (l *commandList) BuildTopLevel(as hal.AccelStruct, instances []hal.InstanceDesc) error {
	const op = "BuildTopLevel"
	if err := l.record(op); err != nil {
		return err
	}
	a, ok := as.(*accelStruct)
	if !ok || a.dev != l.dev {
		return fmt.Errorf("%s: %w: foreign structure", op, hal.ErrInvalidArgument)
	}
	if a.desc.Kind != hal.TopLevel {
		return fmt.Errorf("%s: %w: structure is not top-level", op, hal.ErrInvalidArgument)
	}
	if len(instances) > a.desc.MaxInstances {
		return fmt.Errorf("%s: %w: %d instances, structure sized for %d",
			op, hal.ErrInvalidArgument, len(instances), a.desc.MaxInstances)
	}
	in := make([]instanceInput, len(instances))
	for i, inst := range instances {
		blas, ok := inst.BLAS.(*accelStruct)
		if !ok || blas.dev != l.dev {
			return fmt.Errorf("%s: %w: instance %d references foreign structure",
				op, hal.ErrInvalidArgument, i)
		}
		// An instance may reference a structure whose build was
		// recorded earlier into this same list; builds execute
		// in record order.
		if blas.build != hal.AccelStructBuilt && !l.buildsInList(blas) {
			return fmt.Errorf("%s: instance %d: %w", op, i, hal.ErrNotBuilt)
		}
		in[i] = instanceInput{
			blasVA:    l.dev.nat.bufferAddress(blas.backing.nat),
			transform: inst.Transform,
			id:        inst.InstanceID,
			mask:      inst.Mask,
			flags:     inst.Flags,
		}
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	dstVA := l.dev.nat.bufferAddress(a.backing.nat)
	if err := l.nl.buildTopLevel(dstVA, in, a.info.ScratchSize, a.desc.BuildFlags); err != nil {
		return err
	}
	l.built = append(l.built, a)
	return nil
}

// buildsInList reports whether a build for the structure was
// already recorded into this list.
func (l *commandList) buildsInList(a *accelStruct) bool {
	for _, b := range l.built {
		if b == a {
			return true
		}
	}
	return false
}

func (l *commandList) CompactAccelStruct(dst, src hal.AccelStruct) error {
	const op = "CompactAccelStruct"
	if err := l.record(op); err != nil {
		return err
	}
	da, dok := dst.(*accelStruct)
	sa, sok := src.(*accelStruct)
	if !dok || !sok || da.dev != l.dev || sa.dev != l.dev {
		return fmt.Errorf("%s: %w: foreign structure", op, hal.ErrInvalidArgument)
	}
	if sa.desc.BuildFlags&hal.BuildAllowCompaction == 0 {
		return fmt.Errorf("%s: %w: source not built with BuildAllowCompaction",
			op, hal.ErrInvalidArgument)
	}
	if sa.build != hal.AccelStructBuilt && !l.buildsInList(sa) {
		return fmt.Errorf("%s: source: %w", op, hal.ErrNotBuilt)
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	if err := l.nl.copyAccelStruct(
		l.dev.nat.bufferAddress(da.backing.nat),
		l.dev.nat.bufferAddress(sa.backing.nat),
	); err != nil {
		return err
	}
	l.built = append(l.built, da)
	return nil
}
