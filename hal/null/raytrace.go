// Copyright 2026 The Andastra Authors. All rights reserved.

package null

import (
	"fmt"

	"github.com/andastra/graphics/hal"
)

// Synthetic prebuild sizing. Sizes are proportional to the input
// so tests can observe that sizing reflects the description, and
// deterministic so backing-buffer sizes are reproducible.
const (
	blasBytesPerVertex = 32
	blasBytesPerIndex  = 4
	tlasBytesPerInst   = 64
)

// prebuild reports worst-case sizes for a structure build.
func prebuild(desc *hal.AccelStructDesc) hal.PrebuildInfo {
	var result int64
	switch desc.Kind {
	case hal.BottomLevel:
		for _, g := range desc.Geometries {
			result += int64(g.VertexCount) * blasBytesPerVertex
			result += int64(g.IndexCount) * blasBytesPerIndex
		}
	case hal.TopLevel:
		result = int64(desc.MaxInstances) * tlasBytesPerInst
	}
	if result < hal.AccelStructAlignment {
		result = hal.AccelStructAlignment
	}
	return hal.PrebuildInfo{ResultSize: result, ScratchSize: result / 2}
}

// accelStruct implements hal.AccelStruct.
type accelStruct struct {
	res
	desc    hal.AccelStructDesc
	info    hal.PrebuildInfo
	backing *buffer
	state   hal.ResourceState
	build   hal.AccelStructState
	// compacted marks structures produced by a compacting copy.
	compacted bool
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
	if !d.Capabilities().HasRayTracing {
		return nil, fmt.Errorf("%s: %w: no raytracing device", op, hal.ErrUnsupported)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}
	info := prebuild(&desc)
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
		res:     res{dev: d, nat: d.native()},
		desc:    desc,
		info:    info,
		backing: backing.(*buffer),
		state:   hal.StateAccelStructRead,
		build:   hal.AccelStructAllocated,
	}
	a.handle = d.reg.Add(a)
	return a, nil
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
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	l.built = append(l.built, a)
	l.ops++
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
	// A top-level build referencing a bottom-level structure
	// whose build has not executed yet fails at record time.
	for i, inst := range instances {
		blas, ok := inst.BLAS.(*accelStruct)
		if !ok || blas.dev != l.dev {
			return fmt.Errorf("%s: %w: instance %d references foreign structure",
				op, hal.ErrInvalidArgument, i)
		}
		if blas.build != hal.AccelStructBuilt && !l.buildsInList(blas) {
			return fmt.Errorf("%s: instance %d: %w", op, i, hal.ErrNotBuilt)
		}
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	l.built = append(l.built, a)
	l.ops++
	return nil
}

// buildsInList reports whether a build for the structure was
// already recorded into this list. Builds within one list
// execute in record order, so a later top-level build may
// reference it.
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
	d, dok := dst.(*accelStruct)
	s, sok := src.(*accelStruct)
	if !dok || !sok || d.dev != l.dev || s.dev != l.dev {
		return fmt.Errorf("%s: %w: foreign structure", op, hal.ErrInvalidArgument)
	}
	if s.desc.BuildFlags&hal.BuildAllowCompaction == 0 {
		return fmt.Errorf("%s: %w: source not built with BuildAllowCompaction",
			op, hal.ErrInvalidArgument)
	}
	if s.build != hal.AccelStructBuilt && !l.buildsInList(s) {
		return fmt.Errorf("%s: source: %w", op, hal.ErrNotBuilt)
	}
	d.compacted = true
	l.built = append(l.built, d)
	l.compacts = append(l.compacts, d)
	l.ops++
	return nil
}

// ExecuteCommandLists submits closed lists. On the null timeline
// execution completes immediately: recorded builds take effect
// and subsequent fence signals observe completion.
func (d *device) ExecuteCommandLists(lists ...hal.CommandList) error {
	const op = "ExecuteCommandLists"
	if err := d.check(op); err != nil {
		return err
	}
	ls := make([]*commandList, len(lists))
	for i, cl := range lists {
		l, ok := cl.(*commandList)
		if !ok || l.dev != d {
			return fmt.Errorf("%s: %w: foreign list", op, hal.ErrInvalidArgument)
		}
		if l.disposed {
			return fmt.Errorf("%s: %w: list %d", op, hal.ErrDisposed, i)
		}
		if l.state != hal.ListClosed {
			return fmt.Errorf("%s: %w: list %d is %s", op, hal.ErrRecording, i, l.state)
		}
		ls[i] = l
	}
	for _, l := range ls {
		for _, a := range l.built {
			a.build = hal.AccelStructBuilt
		}
		l.built = l.built[:0]
		l.compacts = l.compacts[:0]
		d.submitted++
	}
	return nil
}
