// Copyright 2026 The Andastra Authors. All rights reserved.

package vk

import (
	"fmt"

	vk "github.com/goki/vulkan"

	"github.com/andastra/graphics/hal"
)

// descriptorType translates a binding type. The binding surface
// has no acceleration-structure descriptor, so layouts declaring
// one are rejected.
func descriptorType(t hal.BindingType) (vk.DescriptorType, error) {
	switch t {
	case hal.BindingConstantBuffer:
		return vk.DescriptorTypeUniformBuffer, nil
	case hal.BindingTexture:
		return vk.DescriptorTypeSampledImage, nil
	case hal.BindingSampler:
		return vk.DescriptorTypeSampler, nil
	case hal.BindingRWTexture:
		return vk.DescriptorTypeStorageImage, nil
	case hal.BindingRWBuffer, hal.BindingStructuredBuffer:
		return vk.DescriptorTypeStorageBuffer, nil
	default:
		return 0, fmt.Errorf("CreateBindingLayout: %w: binding type %s", hal.ErrUnsupported, t)
	}
}

// stageFlags maps a visibility mask to native stage flags.
func stageFlags(v hal.ShaderVisibility) vk.ShaderStageFlags {
	if v == hal.VisibleAll {
		return vk.ShaderStageFlags(vk.ShaderStageAll)
	}
	var f vk.ShaderStageFlags
	if v&hal.VisibleVertex != 0 {
		f |= vk.ShaderStageFlags(vk.ShaderStageVertexBit)
	}
	if v&hal.VisiblePixel != 0 {
		f |= vk.ShaderStageFlags(vk.ShaderStageFragmentBit)
	}
	if v&hal.VisibleCompute != 0 {
		f |= vk.ShaderStageFlags(vk.ShaderStageComputeBit)
	}
	if f == 0 {
		f = vk.ShaderStageFlags(vk.ShaderStageAll)
	}
	return f
}

// bindingLayout owns one descriptor set layout per packed table
// and the pipeline layout over them. Binding numbers within a set
// are the table-relative descriptor offsets, so slots from
// different register spaces never collide.
type bindingLayout struct {
	res
	desc       hal.BindingLayoutDesc
	tables     []hal.BindingTable
	setLayouts []vk.DescriptorSetLayout
	pipeLayout vk.PipelineLayout
}

func (l *bindingLayout) Desc() hal.BindingLayoutDesc { return l.desc }

func (l *bindingLayout) Tables() []hal.BindingTable { return l.tables }

func (l *bindingLayout) Destroy() error {
	if err := l.destroy("BindingLayout.Destroy"); err != nil {
		return err
	}
	vk.DestroyPipelineLayout(l.dev.dev, l.pipeLayout, nil)
	for _, sl := range l.setLayouts {
		vk.DestroyDescriptorSetLayout(l.dev.dev, sl, nil)
	}
	l.setLayouts = nil
	return nil
}

func (d *device) CreateBindingLayout(desc hal.BindingLayoutDesc) (hal.BindingLayout, error) {
	const op = "CreateBindingLayout"
	if err := d.check(op); err != nil {
		return nil, err
	}
	tables, err := hal.PackBindingTables(&desc)
	if err != nil {
		return nil, err
	}
	setLayouts := make([]vk.DescriptorSetLayout, 0, len(tables))
	fail := func(err error) (hal.BindingLayout, error) {
		for _, sl := range setLayouts {
			vk.DestroyDescriptorSetLayout(d.dev, sl, nil)
		}
		return nil, err
	}
	for _, t := range tables {
		bindings := make([]vk.DescriptorSetLayoutBinding, 0, len(t.Ranges))
		for _, r := range t.Ranges {
			dt, err := descriptorType(r.Type)
			if err != nil {
				return fail(err)
			}
			bindings = append(bindings, vk.DescriptorSetLayoutBinding{
				Binding:         uint32(r.Offset),
				DescriptorType:  dt,
				DescriptorCount: uint32(r.Count),
				StageFlags:      stageFlags(t.Visibility),
			})
		}
		var sl vk.DescriptorSetLayout
		ret := vk.CreateDescriptorSetLayout(d.dev, &vk.DescriptorSetLayoutCreateInfo{
			SType:        vk.StructureTypeDescriptorSetLayoutCreateInfo,
			BindingCount: uint32(len(bindings)),
			PBindings:    bindings,
		}, nil, &sl)
		if err := vkErr(op, ret); err != nil {
			return fail(err)
		}
		setLayouts = append(setLayouts, sl)
	}
	var pl vk.PipelineLayout
	ret := vk.CreatePipelineLayout(d.dev, &vk.PipelineLayoutCreateInfo{
		SType:          vk.StructureTypePipelineLayoutCreateInfo,
		SetLayoutCount: uint32(len(setLayouts)),
		PSetLayouts:    setLayouts,
	}, nil, &pl)
	if err := vkErr(op, ret); err != nil {
		return fail(err)
	}
	l := &bindingLayout{
		res:        res{dev: d},
		desc:       desc,
		tables:     tables,
		setLayouts: setLayouts,
		pipeLayout: pl,
	}
	l.handle = d.reg.Add(l)
	return l, nil
}

// bindingSet owns a descriptor pool with one set per layout table,
// fully written at creation.
type bindingSet struct {
	res
	desc   hal.BindingSetDesc
	layout hal.BindingLayout
	pool   vk.DescriptorPool
	sets   []vk.DescriptorSet
}

func (s *bindingSet) Desc() hal.BindingSetDesc { return s.desc }

func (s *bindingSet) Layout() hal.BindingLayout { return s.layout }

func (s *bindingSet) Destroy() error {
	if err := s.destroy("BindingSet.Destroy"); err != nil {
		return err
	}
	vk.DestroyDescriptorPool(s.dev.dev, s.pool, nil)
	s.sets = nil
	return nil
}

// locate finds the (set, binding, array element) triples a set
// item writes to. An item may appear in several tables when the
// same slot is declared for multiple visibilities.
func locate(tables []hal.BindingTable, it hal.BindingSetItem) [][3]uint32 {
	var out [][3]uint32
	for ti, t := range tables {
		if t.Class != it.Type.Class() {
			continue
		}
		for _, r := range t.Ranges {
			if r.Type == it.Type && it.Slot >= r.BaseSlot && it.Slot < r.BaseSlot+r.Count {
				out = append(out, [3]uint32{
					uint32(ti),
					uint32(r.Offset),
					uint32(it.Slot - r.BaseSlot),
				})
			}
		}
	}
	return out
}

func (d *device) CreateBindingSet(desc hal.BindingSetDesc, layout hal.BindingLayout) (hal.BindingSet, error) {
	const op = "CreateBindingSet"
	if err := d.check(op); err != nil {
		return nil, err
	}
	if layout == nil {
		return nil, fmt.Errorf("%s: %w: nil layout", op, hal.ErrInvalidArgument)
	}
	bl, ok := layout.(*bindingLayout)
	if !ok || bl.dev != d {
		return nil, fmt.Errorf("%s: %w: foreign layout", op, hal.ErrInvalidArgument)
	}
	if err := desc.Validate(); err != nil {
		return nil, err
	}

	// Pool sizes aggregate the layout's descriptor counts per
	// type.
	counts := make(map[vk.DescriptorType]uint32)
	for _, t := range bl.tables {
		for _, r := range t.Ranges {
			dt, err := descriptorType(r.Type)
			if err != nil {
				return nil, err
			}
			counts[dt] += uint32(r.Count)
		}
	}
	var sizes []vk.DescriptorPoolSize
	for dt, n := range counts {
		sizes = append(sizes, vk.DescriptorPoolSize{Type: dt, DescriptorCount: n})
	}
	var pool vk.DescriptorPool
	ret := vk.CreateDescriptorPool(d.dev, &vk.DescriptorPoolCreateInfo{
		SType:         vk.StructureTypeDescriptorPoolCreateInfo,
		MaxSets:       uint32(len(bl.setLayouts)),
		PoolSizeCount: uint32(len(sizes)),
		PPoolSizes:    sizes,
	}, nil, &pool)
	if err := vkErr(op, ret); err != nil {
		return nil, err
	}

	sets := make([]vk.DescriptorSet, len(bl.setLayouts))
	ret = vk.AllocateDescriptorSets(d.dev, &vk.DescriptorSetAllocateInfo{
		SType:              vk.StructureTypeDescriptorSetAllocateInfo,
		DescriptorPool:     pool,
		DescriptorSetCount: uint32(len(bl.setLayouts)),
		PSetLayouts:        bl.setLayouts,
	}, &sets[0])
	if err := vkErr(op, ret); err != nil {
		vk.DestroyDescriptorPool(d.dev, pool, nil)
		return nil, err
	}

	var writes []vk.WriteDescriptorSet
	for i, it := range desc.Items {
		locs := locate(bl.tables, it)
		if len(locs) == 0 {
			vk.DestroyDescriptorPool(d.dev, pool, nil)
			return nil, fmt.Errorf("%s: %w: item %d: slot %d not declared in layout",
				op, hal.ErrInvalidArgument, i, it.Slot)
		}
		dt, err := descriptorType(it.Type)
		if err != nil {
			vk.DestroyDescriptorPool(d.dev, pool, nil)
			return nil, err
		}
		w := vk.WriteDescriptorSet{
			SType:           vk.StructureTypeWriteDescriptorSet,
			DescriptorCount: 1,
			DescriptorType:  dt,
		}
		switch {
		case it.Buffer != nil:
			b, ok := it.Buffer.(*buffer)
			if !ok || b.dev != d {
				vk.DestroyDescriptorPool(d.dev, pool, nil)
				return nil, fmt.Errorf("%s: %w: item %d: foreign buffer", op, hal.ErrInvalidArgument, i)
			}
			size := vk.DeviceSize(vk.WholeSize)
			if it.Size > 0 {
				size = vk.DeviceSize(it.Size)
			}
			w.PBufferInfo = []vk.DescriptorBufferInfo{{
				Buffer: b.buf,
				Offset: vk.DeviceSize(it.Offset),
				Range:  size,
			}}
		case it.Texture != nil:
			t, ok := it.Texture.(*texture)
			if !ok || t.dev != d {
				vk.DestroyDescriptorPool(d.dev, pool, nil)
				return nil, fmt.Errorf("%s: %w: item %d: foreign texture", op, hal.ErrInvalidArgument, i)
			}
			layout := vk.ImageLayoutShaderReadOnlyOptimal
			if it.Type == hal.BindingRWTexture {
				layout = vk.ImageLayoutGeneral
			}
			w.PImageInfo = []vk.DescriptorImageInfo{{
				ImageView:   t.view,
				ImageLayout: layout,
			}}
		case it.Sampler != nil:
			s, ok := it.Sampler.(*sampler)
			if !ok || s.dev != d {
				vk.DestroyDescriptorPool(d.dev, pool, nil)
				return nil, fmt.Errorf("%s: %w: item %d: foreign sampler", op, hal.ErrInvalidArgument, i)
			}
			w.PImageInfo = []vk.DescriptorImageInfo{{Sampler: s.s}}
		default:
			vk.DestroyDescriptorPool(d.dev, pool, nil)
			return nil, fmt.Errorf("%s: %w: item %d: resource type not bindable",
				op, hal.ErrInvalidArgument, i)
		}
		for _, loc := range locs {
			w.DstSet = sets[loc[0]]
			w.DstBinding = loc[1]
			w.DstArrayElement = loc[2]
			writes = append(writes, w)
		}
	}
	if len(writes) > 0 {
		vk.UpdateDescriptorSets(d.dev, uint32(len(writes)), writes, 0, nil)
	}

	s := &bindingSet{res: res{dev: d}, desc: desc, layout: layout, pool: pool, sets: sets}
	s.handle = d.reg.Add(s)
	return s, nil
}
