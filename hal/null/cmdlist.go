// Copyright 2026 The Andastra Authors. All rights reserved.

package null

import (
	"fmt"

	"github.com/andastra/graphics/hal"
)

// pendingBarrier is one buffered state transition.
type pendingBarrier struct {
	res   hal.Resource
	after hal.ResourceState
}

// commandList implements hal.CommandList. The null allocator is
// a plain op count; recording tracks exactly the bookkeeping the
// contract promises (state machine, barrier buffering, stats,
// acceleration structure protocol).
type commandList struct {
	res
	typ   hal.CommandListType
	state hal.CommandListState

	ops      int
	pending  []pendingBarrier
	stats    hal.ListStats
	texSeen  map[hal.Handle]bool
	markers  int
	built    []*accelStruct
	compacts []*accelStruct
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
	l := &commandList{
		res:     res{dev: d, nat: d.native()},
		typ:     typ,
		texSeen: make(map[hal.Handle]bool),
	}
	l.handle = d.reg.Add(l)
	return l, nil
}

func (l *commandList) Type() hal.CommandListType { return l.typ }

func (l *commandList) State() hal.CommandListState { return l.state }

func (l *commandList) Destroy() error { return l.destroy("CommandList.Destroy") }

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
	l.state = hal.ListInitial
	l.ops = 0
	l.pending = l.pending[:0]
	l.stats = hal.ListStats{}
	clear(l.texSeen)
	l.markers = 0
	l.built = l.built[:0]
	l.compacts = l.compacts[:0]
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
	copy(b.data[off:], data)
	l.ops++
	return nil
}

func (l *commandList) WriteTexture(tex hal.Texture, data []byte, mipLevel, arraySlice int) error {
	const op = "WriteTexture"
	if err := l.record(op); err != nil {
		return err
	}
	if tex == nil {
		return fmt.Errorf("%s: %w: nil texture", op, hal.ErrInvalidArgument)
	}
	l.noteTexture(tex)
	l.ops++
	return nil
}

func (l *commandList) CopyBuffer(dst hal.Buffer, dstOff int64, src hal.Buffer, srcOff, size int64) error {
	const op = "CopyBuffer"
	if err := l.record(op); err != nil {
		return err
	}
	db, dok := dst.(*buffer)
	sb, sok := src.(*buffer)
	if !dok || !sok {
		return fmt.Errorf("%s: %w: foreign buffer", op, hal.ErrInvalidArgument)
	}
	if size <= 0 || dstOff < 0 || srcOff < 0 ||
		dstOff+size > db.desc.Size || srcOff+size > sb.desc.Size {
		return fmt.Errorf("%s: %w: range out of bounds", op, hal.ErrInvalidArgument)
	}
	copy(db.data[dstOff:dstOff+size], sb.data[srcOff:srcOff+size])
	l.ops++
	return nil
}

func (l *commandList) CopyTexture(dst hal.Texture, dstSlice int, src hal.Texture, srcSlice int) error {
	const op = "CopyTexture"
	if err := l.record(op); err != nil {
		return err
	}
	if dst == nil || src == nil {
		return fmt.Errorf("%s: %w: nil texture", op, hal.ErrInvalidArgument)
	}
	l.noteTexture(dst)
	l.noteTexture(src)
	l.ops++
	return nil
}

func (l *commandList) ClearTexture(tex hal.Texture, value hal.ClearValue) error {
	const op = "ClearTexture"
	if err := l.record(op); err != nil {
		return err
	}
	if tex == nil {
		return fmt.Errorf("%s: %w: nil texture", op, hal.ErrInvalidArgument)
	}
	l.noteTexture(tex)
	l.ops++
	return nil
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
	// One batched native submission; individual commits behave
	// identically, only the cost differs.
	for _, pb := range l.pending {
		switch r := pb.res.(type) {
		case *texture:
			r.state = pb.after
		case *buffer:
			r.state = pb.after
		case *accelStruct:
			r.state = pb.after
		}
		l.ops++
	}
	l.pending = l.pending[:0]
	return nil
}

func (l *commandList) SetGraphicsState(state hal.GraphicsState) error {
	const op = "SetGraphicsState"
	if err := l.record(op); err != nil {
		return err
	}
	if l.typ != hal.ListGraphics {
		return fmt.Errorf("%s: %w: %s list", op, hal.ErrInvalidArgument, l.typ)
	}
	if state.Pipeline == nil {
		return fmt.Errorf("%s: %w: nil pipeline", op, hal.ErrInvalidArgument)
	}
	if state.Framebuffer != nil {
		fb := state.Framebuffer.Desc()
		for _, t := range fb.ColorTargets {
			l.noteTexture(t)
		}
		l.noteTexture(fb.DepthTarget)
	}
	l.ops++
	return nil
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
	l.stats.DrawCalls++
	l.stats.Triangles += triangles(args)
	l.ops++
	return nil
}

func (l *commandList) DrawIndexed(args hal.DrawArgs) error {
	if err := l.record("DrawIndexed"); err != nil {
		return err
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	l.stats.DrawCalls++
	l.stats.Triangles += triangles(args)
	l.ops++
	return nil
}

func (l *commandList) SetComputeState(state hal.ComputeState) error {
	const op = "SetComputeState"
	if err := l.record(op); err != nil {
		return err
	}
	if state.Pipeline == nil {
		return fmt.Errorf("%s: %w: nil pipeline", op, hal.ErrInvalidArgument)
	}
	l.ops++
	return nil
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
	l.stats.Dispatches++
	l.ops++
	return nil
}

func (l *commandList) SetRayTracingState(state hal.RayTracingState) error {
	const op = "SetRayTracingState"
	if err := l.record(op); err != nil {
		return err
	}
	if state.Pipeline == nil {
		return fmt.Errorf("%s: %w: nil pipeline", op, hal.ErrInvalidArgument)
	}
	l.ops++
	return nil
}

func (l *commandList) DispatchRays(args hal.DispatchRaysArgs) error {
	const op = "DispatchRays"
	if err := l.record(op); err != nil {
		return err
	}
	if args.Width <= 0 || args.Height <= 0 {
		return fmt.Errorf("%s: %w: non-positive dispatch size", op, hal.ErrInvalidArgument)
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	l.stats.RayDispatches++
	l.ops++
	return nil
}

func (l *commandList) BeginMarker(name string) {
	if l.state == hal.ListOpen {
		l.markers++
	}
}

func (l *commandList) EndMarker() {
	if l.state == hal.ListOpen && l.markers > 0 {
		l.markers--
	}
}

func (l *commandList) Stats() hal.ListStats { return l.stats }
