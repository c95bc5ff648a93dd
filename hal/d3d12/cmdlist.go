// Copyright 2026 The Andastra Authors. All rights reserved.

package d3d12

import (
	"fmt"

	"github.com/andastra/graphics/hal"
)

// pendingBarrier is one buffered state transition.
type pendingBarrier struct {
	res   hal.Resource
	after hal.ResourceState
}

// nativeTransition is a barrier record resolved against tracked
// wrapper state, ready for native translation.
type nativeTransition struct {
	res    uintptr
	before hal.ResourceState
	after  hal.ResourceState
}

// commandList implements hal.CommandList over one native command
// list with an exclusively owned allocator.
type commandList struct {
	res
	typ   hal.CommandListType
	state hal.CommandListState
	nl    *nativeList

	pending []pendingBarrier
	stats   hal.ListStats
	texSeen map[hal.Handle]bool
	markers int
	built   []*accelStruct
}

func (d *device) CreateCommandList(typ hal.CommandListType) (hal.CommandList, error) {
	const op = "CreateCommandList"
	if err := d.check(op); err != nil {
		return nil, err
	}
	switch typ {
	case hal.ListGraphics, hal.ListCompute, hal.ListCopy:
	default:
		return nil, fmt.Errorf("%s: %w: unknown list type", op, hal.ErrInvalidArgument)
	}
	nl, err := d.nat.newList(typ)
	if err != nil {
		return nil, err
	}
	l := &commandList{
		res:     res{dev: d},
		typ:     typ,
		nl:      nl,
		texSeen: make(map[hal.Handle]bool),
	}
	l.handle = d.reg.Add(l)
	return l, nil
}

func (l *commandList) Type() hal.CommandListType { return l.typ }

func (l *commandList) State() hal.CommandListState { return l.state }

func (l *commandList) Destroy() error {
	if err := l.destroy("CommandList.Destroy"); err != nil {
		return err
	}
	l.dev.nat.releaseList(l.nl)
	return nil
}

func (l *commandList) Open() error {
	if l.disposed {
		return fmt.Errorf("Open: %w", hal.ErrDisposed)
	}
	if l.state != hal.ListInitial {
		return fmt.Errorf("Open: %w: list is %s", hal.ErrRecording, l.state)
	}
	l.state = hal.ListOpen
	return nil
}

func (l *commandList) Close() error {
	if l.disposed {
		return fmt.Errorf("Close: %w", hal.ErrDisposed)
	}
	if l.state != hal.ListOpen {
		return fmt.Errorf("Close: %w: list is %s", hal.ErrRecording, l.state)
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	if err := l.nl.close(); err != nil {
		return err
	}
	l.state = hal.ListClosed
	return nil
}

func (l *commandList) Reset() error {
	if l.disposed {
		return fmt.Errorf("Reset: %w", hal.ErrDisposed)
	}
	if l.state == hal.ListOpen {
		return fmt.Errorf("Reset: %w: list is %s", hal.ErrRecording, l.state)
	}
	if err := l.nl.reset(); err != nil {
		return err
	}
	l.state = hal.ListInitial
	l.pending = l.pending[:0]
	l.stats = hal.ListStats{}
	clear(l.texSeen)
	l.markers = 0
	l.built = l.built[:0]
	return nil
}

// record gates every record method on the Open state.
func (l *commandList) record(op string) error {
	if l.disposed {
		return fmt.Errorf("%s: %w", op, hal.ErrDisposed)
	}
	if l.state != hal.ListOpen {
		return fmt.Errorf("%s: %w: list is %s", op, hal.ErrRecording, l.state)
	}
	return nil
}

// noteTexture records a texture reference for frame statistics.
func (l *commandList) noteTexture(t hal.Texture) {
	if t == nil {
		return
	}
	h := t.Handle()
	if !l.texSeen[h] {
		l.texSeen[h] = true
		l.stats.TexturesUsed = append(l.stats.TexturesUsed, h)
	}
}

func (l *commandList) WriteBuffer(buf hal.Buffer, data []byte, off int64) error {
	const op = "WriteBuffer"
	if err := l.record(op); err != nil {
		return err
	}
	b, ok := buf.(*buffer)
	if !ok || b.dev != l.dev {
		return fmt.Errorf("%s: %w: foreign buffer", op, hal.ErrInvalidArgument)
	}
	if off < 0 || off+int64(len(data)) > b.desc.Size {
		return fmt.Errorf("%s: %w: write of %d bytes at %d exceeds size %d",
			op, hal.ErrInvalidArgument, len(data), off, b.desc.Size)
	}
	if b.desc.CPUAccess != hal.CPUWrite {
		return fmt.Errorf("%s: %w: buffer is not CPU writable", op, hal.ErrInvalidArgument)
	}
	return l.dev.nat.writeBuffer(b.nat, data, off)
}

func (l *commandList) WriteTexture(tex hal.Texture, data []byte, mipLevel, arraySlice int) error {
	const op = "WriteTexture"
	if err := l.record(op); err != nil {
		return err
	}
	t, ok := tex.(*texture)
	if !ok || t.dev != l.dev {
		return fmt.Errorf("%s: %w: foreign texture", op, hal.ErrInvalidArgument)
	}
	if mipLevel < 0 || arraySlice < 0 {
		return fmt.Errorf("%s: %w: negative subresource", op, hal.ErrInvalidArgument)
	}
	l.noteTexture(t)
	return l.nl.writeTexture(t.nat, &t.desc, data, mipLevel, arraySlice)
}

func (l *commandList) CopyBuffer(dst hal.Buffer, dstOff int64, src hal.Buffer, srcOff, size int64) error {
	const op = "CopyBuffer"
	if err := l.record(op); err != nil {
		return err
	}
	db, dok := dst.(*buffer)
	sb, sok := src.(*buffer)
	if !dok || !sok || db.dev != l.dev || sb.dev != l.dev {
		return fmt.Errorf("%s: %w: foreign buffer", op, hal.ErrInvalidArgument)
	}
	if size <= 0 || dstOff < 0 || srcOff < 0 ||
		dstOff+size > db.desc.Size || srcOff+size > sb.desc.Size {
		return fmt.Errorf("%s: %w: range out of bounds", op, hal.ErrInvalidArgument)
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	return l.nl.copyBuffer(db.nat, dstOff, sb.nat, srcOff, size)
}

func (l *commandList) CopyTexture(dst hal.Texture, dstSlice int, src hal.Texture, srcSlice int) error {
	const op = "CopyTexture"
	if err := l.record(op); err != nil {
		return err
	}
	dt, dok := dst.(*texture)
	st, sok := src.(*texture)
	if !dok || !sok || dt.dev != l.dev || st.dev != l.dev {
		return fmt.Errorf("%s: %w: foreign texture", op, hal.ErrInvalidArgument)
	}
	l.noteTexture(dt)
	l.noteTexture(st)
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	return l.nl.copyTexture(dt.nat, dstSlice, st.nat, srcSlice)
}

func (l *commandList) ClearTexture(tex hal.Texture, value hal.ClearValue) error {
	const op = "ClearTexture"
	if err := l.record(op); err != nil {
		return err
	}
	t, ok := tex.(*texture)
	if !ok || t.dev != l.dev {
		return fmt.Errorf("%s: %w: foreign texture", op, hal.ErrInvalidArgument)
	}
	l.noteTexture(t)
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	return l.nl.clearTexture(t.nat, &t.desc, value)
}

func (l *commandList) Transition(r hal.Resource, after hal.ResourceState) error {
	const op = "Transition"
	if err := l.record(op); err != nil {
		return err
	}
	if r == nil {
		return fmt.Errorf("%s: %w: nil resource", op, hal.ErrInvalidArgument)
	}
	if t, ok := r.(*texture); ok {
		l.noteTexture(t)
	}
	l.pending = append(l.pending, pendingBarrier{r, after})
	return nil
}

func (l *commandList) CommitBarriers() error {
	const op = "CommitBarriers"
	if l.disposed {
		return fmt.Errorf("%s: %w", op, hal.ErrDisposed)
	}
	if l.state != hal.ListOpen {
		if len(l.pending) == 0 {
			return nil
		}
		return fmt.Errorf("%s: %w: list is %s", op, hal.ErrRecording, l.state)
	}
	if len(l.pending) == 0 {
		return nil
	}
	// Resolve before-states from tracked wrapper state and flush
	// as one native barrier group.
	ts := make([]nativeTransition, 0, len(l.pending))
	for _, pb := range l.pending {
		switch r := pb.res.(type) {
		case *texture:
			ts = append(ts, nativeTransition{r.nat, r.state, pb.after})
			r.state = pb.after
		case *buffer:
			ts = append(ts, nativeTransition{r.nat, r.state, pb.after})
			r.state = pb.after
		case *accelStruct:
			ts = append(ts, nativeTransition{r.backing.nat, r.state, pb.after})
			r.state = pb.after
		default:
			return fmt.Errorf("%s: %w: untransitionable resource", op, hal.ErrInvalidArgument)
		}
	}
	l.pending = l.pending[:0]
	return l.nl.transitionBarriers(ts)
}

func (l *commandList) SetGraphicsState(state hal.GraphicsState) error {
	const op = "SetGraphicsState"
	if err := l.record(op); err != nil {
		return err
	}
	if l.typ != hal.ListGraphics {
		return fmt.Errorf("%s: %w: %s list", op, hal.ErrInvalidArgument, l.typ)
	}
	p, ok := state.Pipeline.(*pipeline)
	if !ok || p.dev != l.dev {
		return fmt.Errorf("%s: %w: pipeline not set", op, hal.ErrInvalidArgument)
	}
	if state.Framebuffer != nil {
		fb := state.Framebuffer.Desc()
		for _, t := range fb.ColorTargets {
			l.noteTexture(t)
		}
		l.noteTexture(fb.DepthTarget)
	}
	return l.nl.setGraphicsState(p.nat, layoutRootSig(p.layout), &state)
}

// triangles estimates the triangle count of a draw.
func triangles(args hal.DrawArgs) int {
	inst := args.InstanceCount
	if inst <= 0 {
		inst = 1
	}
	return args.VertexCount / 3 * inst
}

func (l *commandList) Draw(args hal.DrawArgs) error {
	if err := l.record("Draw"); err != nil {
		return err
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	if err := l.nl.draw(args, false); err != nil {
		return err
	}
	l.stats.DrawCalls++
	l.stats.Triangles += triangles(args)
	return nil
}

func (l *commandList) DrawIndexed(args hal.DrawArgs) error {
	if err := l.record("DrawIndexed"); err != nil {
		return err
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	if err := l.nl.draw(args, true); err != nil {
		return err
	}
	l.stats.DrawCalls++
	l.stats.Triangles += triangles(args)
	return nil
}

func (l *commandList) SetComputeState(state hal.ComputeState) error {
	const op = "SetComputeState"
	if err := l.record(op); err != nil {
		return err
	}
	p, ok := state.Pipeline.(*pipeline)
	if !ok || p.dev != l.dev {
		return fmt.Errorf("%s: %w: pipeline not set", op, hal.ErrInvalidArgument)
	}
	return l.nl.setComputeState(p.nat, layoutRootSig(p.layout))
}

func (l *commandList) Dispatch(x, y, z int) error {
	const op = "Dispatch"
	if err := l.record(op); err != nil {
		return err
	}
	if x <= 0 || y <= 0 || z <= 0 {
		return fmt.Errorf("%s: %w: non-positive group count", op, hal.ErrInvalidArgument)
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	if err := l.nl.dispatch(x, y, z); err != nil {
		return err
	}
	l.stats.Dispatches++
	return nil
}

func (l *commandList) SetRayTracingState(state hal.RayTracingState) error {
	const op = "SetRayTracingState"
	if err := l.record(op); err != nil {
		return err
	}
	if !l.dev.nat.raytracing() {
		return fmt.Errorf("%s: %w: no raytracing device", op, hal.ErrUnsupported)
	}
	p, ok := state.Pipeline.(*pipeline)
	if !ok || p.dev != l.dev {
		return fmt.Errorf("%s: %w: pipeline not set", op, hal.ErrInvalidArgument)
	}
	return l.nl.setRayTracingState(p.nat, layoutRootSig(p.layout))
}

func (l *commandList) DispatchRays(args hal.DispatchRaysArgs) error {
	const op = "DispatchRays"
	if err := l.record(op); err != nil {
		return err
	}
	if !l.dev.nat.raytracing() {
		return fmt.Errorf("%s: %w: no raytracing device", op, hal.ErrUnsupported)
	}
	if args.Width <= 0 || args.Height <= 0 {
		return fmt.Errorf("%s: %w: non-positive dispatch size", op, hal.ErrInvalidArgument)
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	if err := l.nl.dispatchRays(args); err != nil {
		return err
	}
	l.stats.RayDispatches++
	return nil
}

func (l *commandList) BeginMarker(name string) {
	if l.state == hal.ListOpen {
		l.markers++
		l.nl.beginMarker(name)
	}
}

func (l *commandList) EndMarker() {
	if l.state == hal.ListOpen && l.markers > 0 {
		l.markers--
		l.nl.endMarker()
	}
}

func (l *commandList) Stats() hal.ListStats { return l.stats }

// ExecuteCommandLists submits closed lists to the direct queue.
// Builds recorded into the lists take effect on the structure
// wrappers once the submission is enqueued.
func (d *device) ExecuteCommandLists(lists ...hal.CommandList) error {
	const op = "ExecuteCommandLists"
	if err := d.check(op); err != nil {
		return err
	}
	ls := make([]*commandList, len(lists))
	nls := make([]*nativeList, len(lists))
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
		nls[i] = l.nl
	}
	if err := d.nat.execute(nls); err != nil {
		return err
	}
	for _, l := range ls {
		for _, a := range l.built {
			a.build = hal.AccelStructBuilt
		}
		l.built = l.built[:0]
	}
	return nil
}
