// Copyright 2026 The Andastra Authors. All rights reserved.

package vk

import (
	"fmt"
	"unsafe"

	vk "github.com/goki/vulkan"

	"github.com/andastra/graphics/hal"
)

// pendingBarrier is one buffered state transition.
type pendingBarrier struct {
	res   hal.Resource
	after hal.ResourceState
}

// staging is a transient upload buffer owned by the list until the
// next Reset.
type staging struct {
	buf vk.Buffer
	mem vk.DeviceMemory
}

// gfxBind is the graphics state captured by SetGraphicsState; the
// render pass itself begins lazily at the first draw so barriers
// recorded in between stay legal.
type gfxBind struct {
	p  *pipeline
	fb *framebuffer
}

// commandList implements hal.CommandList over one primary command
// buffer with an exclusively owned pool.
type commandList struct {
	res
	typ   hal.CommandListType
	state hal.CommandListState
	pool  vk.CommandPool
	buf   vk.CommandBuffer

	pending    []pendingBarrier
	stats      hal.ListStats
	texSeen    map[hal.Handle]bool
	markers    int
	transients []staging
	gfx        *gfxBind
	passOpen   bool
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
	var pool vk.CommandPool
	ret := vk.CreateCommandPool(d.dev, &vk.CommandPoolCreateInfo{
		SType:            vk.StructureTypeCommandPoolCreateInfo,
		QueueFamilyIndex: d.queueIndex,
		Flags:            vk.CommandPoolCreateFlags(vk.CommandPoolCreateResetCommandBufferBit),
	}, nil, &pool)
	if err := vkErr(op, ret); err != nil {
		return nil, err
	}
	bufs := make([]vk.CommandBuffer, 1)
	ret = vk.AllocateCommandBuffers(d.dev, &vk.CommandBufferAllocateInfo{
		SType:              vk.StructureTypeCommandBufferAllocateInfo,
		CommandPool:        pool,
		Level:              vk.CommandBufferLevelPrimary,
		CommandBufferCount: 1,
	}, bufs)
	if err := vkErr(op, ret); err != nil {
		vk.DestroyCommandPool(d.dev, pool, nil)
		return nil, err
	}
	l := &commandList{
		res:     res{dev: d},
		typ:     typ,
		pool:    pool,
		buf:     bufs[0],
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
	l.dropTransients()
	vk.DestroyCommandPool(l.dev.dev, l.pool, nil)
	return nil
}

// dropTransients frees upload buffers from the last recording.
// Safe once the list's last submission has completed, which is the
// same precondition Reset carries.
func (l *commandList) dropTransients() {
	for _, s := range l.transients {
		vk.DestroyBuffer(l.dev.dev, s.buf, nil)
		vk.FreeMemory(l.dev.dev, s.mem, nil)
	}
	l.transients = nil
}

func (l *commandList) Open() error {
	if l.disposed {
		return fmt.Errorf("Open: %w", hal.ErrDisposed)
	}
	if l.state != hal.ListInitial {
		return fmt.Errorf("Open: %w: list is %s", hal.ErrRecording, l.state)
	}
	ret := vk.BeginCommandBuffer(l.buf, &vk.CommandBufferBeginInfo{
		SType: vk.StructureTypeCommandBufferBeginInfo,
	})
	if err := vkErr("Open", ret); err != nil {
		return err
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
	l.endPass()
	if err := vkErr("Close", vk.EndCommandBuffer(l.buf)); err != nil {
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
	if err := vkErr("Reset", vk.ResetCommandBuffer(l.buf, 0)); err != nil {
		return err
	}
	l.dropTransients()
	l.state = hal.ListInitial
	l.pending = l.pending[:0]
	l.stats = hal.ListStats{}
	clear(l.texSeen)
	l.markers = 0
	l.gfx = nil
	l.passOpen = false
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

// endPass closes the render pass opened by the last draw, if any.
func (l *commandList) endPass() {
	if l.passOpen {
		vk.CmdEndRenderPass(l.buf)
		l.passOpen = false
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
	return l.dev.mapWrite(op, b.memory, data, off)
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
	l.endPass()

	// Upload goes through a transient staging buffer; the image is
	// moved to the transfer layout in place and its tracked state
	// follows.
	sbuf, smem, err := l.dev.allocBuffer(op, int64(len(data)),
		vk.BufferUsageFlags(vk.BufferUsageTransferSrcBit),
		vk.MemoryPropertyFlags(vk.MemoryPropertyHostVisibleBit|vk.MemoryPropertyHostCoherentBit))
	if err != nil {
		return err
	}
	if err := l.dev.mapWrite(op, smem, data, 0); err != nil {
		vk.DestroyBuffer(l.dev.dev, sbuf, nil)
		vk.FreeMemory(l.dev.dev, smem, nil)
		return err
	}
	l.transients = append(l.transients, staging{sbuf, smem})

	old := vk.ImageLayoutUndefined
	if t.layoutKnown {
		old = imageLayout(t.state)
	}
	aspect := aspectMask(t.desc.Format)
	barrier := vk.ImageMemoryBarrier{
		SType:               vk.StructureTypeImageMemoryBarrier,
		SrcAccessMask:       accessFlags(t.state),
		DstAccessMask:       vk.AccessFlags(vk.AccessTransferWriteBit),
		OldLayout:           old,
		NewLayout:           vk.ImageLayoutTransferDstOptimal,
		SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
		DstQueueFamilyIndex: vk.QueueFamilyIgnored,
		Image:               t.img,
		SubresourceRange: vk.ImageSubresourceRange{
			AspectMask: aspect,
			LevelCount: vk.RemainingMipLevels,
			LayerCount: vk.RemainingArrayLayers,
		},
	}
	vk.CmdPipelineBarrier(l.buf,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageTransferBit),
		0, 0, nil, 0, nil, 1, []vk.ImageMemoryBarrier{barrier})
	t.state = hal.StateCopyDest
	t.layoutKnown = true

	w := t.desc.Width >> mipLevel
	h := t.desc.Height >> mipLevel
	if w < 1 {
		w = 1
	}
	if h < 1 {
		h = 1
	}
	depth := t.desc.Depth
	if depth <= 0 {
		depth = 1
	}
	vk.CmdCopyBufferToImage(l.buf, sbuf, t.img, vk.ImageLayoutTransferDstOptimal, 1,
		[]vk.BufferImageCopy{{
			ImageSubresource: vk.ImageSubresourceLayers{
				AspectMask:     aspect,
				MipLevel:       uint32(mipLevel),
				BaseArrayLayer: uint32(arraySlice),
				LayerCount:     1,
			},
			ImageExtent: vk.Extent3D{
				Width:  uint32(w),
				Height: uint32(h),
				Depth:  uint32(depth),
			},
		}})
	return nil
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
	l.endPass()
	vk.CmdCopyBuffer(l.buf, sb.buf, db.buf, 1, []vk.BufferCopy{{
		SrcOffset: vk.DeviceSize(srcOff),
		DstOffset: vk.DeviceSize(dstOff),
		Size:      vk.DeviceSize(size),
	}})
	return nil
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
	l.endPass()
	depth := st.desc.Depth
	if depth <= 0 {
		depth = 1
	}
	vk.CmdCopyImage(l.buf,
		st.img, imageLayout(st.state),
		dt.img, imageLayout(dt.state),
		1, []vk.ImageCopy{{
			SrcSubresource: vk.ImageSubresourceLayers{
				AspectMask:     aspectMask(st.desc.Format),
				BaseArrayLayer: uint32(srcSlice),
				LayerCount:     1,
			},
			DstSubresource: vk.ImageSubresourceLayers{
				AspectMask:     aspectMask(dt.desc.Format),
				BaseArrayLayer: uint32(dstSlice),
				LayerCount:     1,
			},
			Extent: vk.Extent3D{
				Width:  uint32(st.desc.Width),
				Height: uint32(st.desc.Height),
				Depth:  uint32(depth),
			},
		}})
	return nil
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
	l.endPass()
	ranges := []vk.ImageSubresourceRange{{
		AspectMask: aspectMask(t.desc.Format),
		LevelCount: vk.RemainingMipLevels,
		LayerCount: vk.RemainingArrayLayers,
	}}
	if t.desc.Format.IsDepthStencil() {
		ds := vk.ClearDepthStencilValue{Depth: value.Depth, Stencil: value.Stencil}
		vk.CmdClearDepthStencilImage(l.buf, t.img, imageLayout(t.state), &ds, 1, ranges)
		return nil
	}
	var cv vk.ClearValue
	cv.SetColor(value.Color[:])
	vk.CmdClearColorImage(l.buf, t.img, imageLayout(t.state),
		(*vk.ClearColorValue)(unsafe.Pointer(&cv)), 1, ranges)
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
	if len(l.pending) == 0 {
		return nil
	}
	var imgs []vk.ImageMemoryBarrier
	var bufs []vk.BufferMemoryBarrier
	for _, pb := range l.pending {
		switch r := pb.res.(type) {
		case *texture:
			old := vk.ImageLayoutUndefined
			if r.layoutKnown {
				old = imageLayout(r.state)
			}
			imgs = append(imgs, vk.ImageMemoryBarrier{
				SType:               vk.StructureTypeImageMemoryBarrier,
				SrcAccessMask:       accessFlags(r.state),
				DstAccessMask:       accessFlags(pb.after),
				OldLayout:           old,
				NewLayout:           imageLayout(pb.after),
				SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
				DstQueueFamilyIndex: vk.QueueFamilyIgnored,
				Image:               r.img,
				SubresourceRange: vk.ImageSubresourceRange{
					AspectMask: aspectMask(r.desc.Format),
					LevelCount: vk.RemainingMipLevels,
					LayerCount: vk.RemainingArrayLayers,
				},
			})
			r.state = pb.after
			r.layoutKnown = true
		case *buffer:
			bufs = append(bufs, vk.BufferMemoryBarrier{
				SType:               vk.StructureTypeBufferMemoryBarrier,
				SrcAccessMask:       accessFlags(r.state),
				DstAccessMask:       accessFlags(pb.after),
				SrcQueueFamilyIndex: vk.QueueFamilyIgnored,
				DstQueueFamilyIndex: vk.QueueFamilyIgnored,
				Buffer:              r.buf,
				Size:                vk.DeviceSize(vk.WholeSize),
			})
			r.state = pb.after
		default:
			return fmt.Errorf("%s: %w: untransitionable resource", op, hal.ErrInvalidArgument)
		}
	}
	l.pending = l.pending[:0]
	l.endPass()
	vk.CmdPipelineBarrier(l.buf,
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		vk.PipelineStageFlags(vk.PipelineStageAllCommandsBit),
		0, 0, nil,
		uint32(len(bufs)), bufs,
		uint32(len(imgs)), imgs)
	return nil
}

// bindSets binds the descriptor sets of any binding set created
// against the pipeline's layout.
func (l *commandList) bindSets(point vk.PipelineBindPoint, p *pipeline, sets []hal.BindingSet) {
	bl, ok := p.layout.(*bindingLayout)
	if !ok {
		return
	}
	for _, s := range sets {
		bs, ok := s.(*bindingSet)
		if !ok || bs.dev != l.dev || bs.layout != p.layout {
			continue
		}
		vk.CmdBindDescriptorSets(l.buf, point, bl.pipeLayout,
			0, uint32(len(bs.sets)), bs.sets, 0, nil)
	}
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
	var fb *framebuffer
	if state.Framebuffer != nil {
		fb, ok = state.Framebuffer.(*framebuffer)
		if !ok || fb.dev != l.dev {
			return fmt.Errorf("%s: %w: foreign framebuffer", op, hal.ErrInvalidArgument)
		}
		d := fb.desc
		for _, t := range d.ColorTargets {
			l.noteTexture(t)
		}
		l.noteTexture(d.DepthTarget)
	}
	l.endPass()

	vk.CmdBindPipeline(l.buf, vk.PipelineBindPointGraphics, p.p)
	vp := state.Viewport
	vk.CmdSetViewport(l.buf, 0, 1, []vk.Viewport{{
		X: vp.X, Y: vp.Y,
		Width: vp.Width, Height: vp.Height,
		MinDepth: vp.MinDepth, MaxDepth: vp.MaxDepth,
	}})
	vk.CmdSetScissor(l.buf, 0, 1, []vk.Rect2D{{
		Offset: vk.Offset2D{X: int32(vp.X), Y: int32(vp.Y)},
		Extent: vk.Extent2D{Width: uint32(vp.Width), Height: uint32(vp.Height)},
	}})

	if len(state.VertexBuffers) > 0 {
		vbs := make([]vk.Buffer, len(state.VertexBuffers))
		offs := make([]vk.DeviceSize, len(state.VertexBuffers))
		for i, vb := range state.VertexBuffers {
			b, ok := vb.(*buffer)
			if !ok || b.dev != l.dev {
				return fmt.Errorf("%s: %w: vertex buffer %d is foreign", op, hal.ErrInvalidArgument, i)
			}
			vbs[i] = b.buf
			if i < len(state.VertexOffsets) {
				offs[i] = vk.DeviceSize(state.VertexOffsets[i])
			}
		}
		vk.CmdBindVertexBuffers(l.buf, 0, uint32(len(vbs)), vbs, offs)
	}
	if state.IndexBuffer != nil {
		b, ok := state.IndexBuffer.(*buffer)
		if !ok || b.dev != l.dev {
			return fmt.Errorf("%s: %w: foreign index buffer", op, hal.ErrInvalidArgument)
		}
		vk.CmdBindIndexBuffer(l.buf, b.buf, vk.DeviceSize(state.IndexOffset), indexType(state.IndexFormat))
	}
	l.bindSets(vk.PipelineBindPointGraphics, p, state.BindingSets)

	l.gfx = &gfxBind{p: p, fb: fb}
	return nil
}

// ensurePass begins the bound pipeline's render pass before a
// draw. Draws without a framebuffer fail, since the render pass
// needs attachments.
func (l *commandList) ensurePass(op string) error {
	if l.passOpen {
		return nil
	}
	if l.gfx == nil {
		return fmt.Errorf("%s: %w: graphics state not set", op, hal.ErrInvalidArgument)
	}
	if l.gfx.fb == nil {
		return fmt.Errorf("%s: %w: no framebuffer bound", op, hal.ErrInvalidArgument)
	}
	fb, err := l.gfx.fb.vkFramebuffer(op, l.gfx.p.pass)
	if err != nil {
		return err
	}
	w, h := l.gfx.fb.extent()
	vk.CmdBeginRenderPass(l.buf, &vk.RenderPassBeginInfo{
		SType:       vk.StructureTypeRenderPassBeginInfo,
		RenderPass:  l.gfx.p.pass,
		Framebuffer: fb,
		RenderArea: vk.Rect2D{
			Extent: vk.Extent2D{Width: w, Height: h},
		},
	}, vk.SubpassContentsInline)
	l.passOpen = true
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
	const op = "Draw"
	if err := l.record(op); err != nil {
		return err
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	if err := l.ensurePass(op); err != nil {
		return err
	}
	inst := args.InstanceCount
	if inst <= 0 {
		inst = 1
	}
	vk.CmdDraw(l.buf, uint32(args.VertexCount), uint32(inst),
		uint32(args.FirstVertex), uint32(args.FirstInstance))
	l.stats.DrawCalls++
	l.stats.Triangles += triangles(args)
	return nil
}

func (l *commandList) DrawIndexed(args hal.DrawArgs) error {
	const op = "DrawIndexed"
	if err := l.record(op); err != nil {
		return err
	}
	if err := l.CommitBarriers(); err != nil {
		return err
	}
	if err := l.ensurePass(op); err != nil {
		return err
	}
	inst := args.InstanceCount
	if inst <= 0 {
		inst = 1
	}
	vk.CmdDrawIndexed(l.buf, uint32(args.VertexCount), uint32(inst),
		uint32(args.FirstIndex), int32(args.FirstVertex), uint32(args.FirstInstance))
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
	l.endPass()
	vk.CmdBindPipeline(l.buf, vk.PipelineBindPointCompute, p.p)
	l.bindSets(vk.PipelineBindPointCompute, p, state.BindingSets)
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
	l.endPass()
	vk.CmdDispatch(l.buf, uint32(x), uint32(y), uint32(z))
	l.stats.Dispatches++
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

// ExecuteCommandLists submits closed lists to the graphics queue
// and returns without waiting.
func (d *device) ExecuteCommandLists(lists ...hal.CommandList) error {
	const op = "ExecuteCommandLists"
	if err := d.check(op); err != nil {
		return err
	}
	bufs := make([]vk.CommandBuffer, len(lists))
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
		bufs[i] = l.buf
	}
	if len(bufs) == 0 {
		return nil
	}
	return vkErr(op, vk.QueueSubmit(d.queue, 1, []vk.SubmitInfo{{
		SType:              vk.StructureTypeSubmitInfo,
		CommandBufferCount: uint32(len(bufs)),
		PCommandBuffers:    bufs,
	}}, vk.NullFence))
}
