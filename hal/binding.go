// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

import (
	"fmt"
	"sort"
)

// BindingType is the resource category of a binding layout item.
type BindingType int

// Binding types.
const (
	BindingConstantBuffer BindingType = iota
	BindingTexture
	BindingSampler
	BindingRWTexture
	BindingRWBuffer
	BindingStructuredBuffer
	BindingAccelStruct

	bindingTypeN
)

var bindingTypeNames = [bindingTypeN]string{
	"ConstantBuffer", "Texture", "Sampler", "RWTexture",
	"RWBuffer", "StructuredBuffer", "AccelStruct",
}

// String returns the binding type name.
func (t BindingType) String() string {
	if t < 0 || t >= bindingTypeN {
		return "BindingType(invalid)"
	}
	return bindingTypeNames[t]
}

// ShaderVisibility is a mask of shader stages that can see a
// binding.
type ShaderVisibility int

// Shader visibility masks.
const (
	VisibleVertex ShaderVisibility = 1 << iota
	VisiblePixel
	VisibleCompute
	VisibleRayTracing

	VisibleAll ShaderVisibility = 1<<iota - 1
)

// BindingLayoutItem declares one shader-visible binding.
type BindingLayoutItem struct {
	Type       BindingType
	Slot       int
	Count      int // number of consecutive slots; 0 means 1
	Visibility ShaderVisibility
}

// count returns the effective descriptor count.
func (it BindingLayoutItem) count() int {
	if it.Count <= 0 {
		return 1
	}
	return it.Count
}

// BindingLayoutDesc declares the full binding interface of a
// pipeline as an ordered item list.
type BindingLayoutDesc struct {
	Items     []BindingLayoutItem
	DebugName string
}

// Validate reports whether the declared items form a packable
// layout.
func (d *BindingLayoutDesc) Validate() error {
	const op = "CreateBindingLayout"
	if len(d.Items) == 0 {
		return argErr(op, "no binding items")
	}
	type slotKey struct {
		space regSpace
		vis   ShaderVisibility
		slot  int
	}
	seen := make(map[slotKey]bool)
	for i, it := range d.Items {
		if it.Type < 0 || it.Type >= bindingTypeN {
			return argErr(op, fmt.Sprintf("item %d: unknown binding type", i))
		}
		if it.Slot < 0 {
			return argErr(op, fmt.Sprintf("item %d: negative slot", i))
		}
		if it.Count < 0 {
			return argErr(op, fmt.Sprintf("item %d: negative count", i))
		}
		vis := it.Visibility
		if vis == 0 {
			vis = VisibleAll
		}
		for s := it.Slot; s < it.Slot+it.count(); s++ {
			k := slotKey{it.Type.space(), vis, s}
			if seen[k] {
				return argErr(op, fmt.Sprintf("item %d: slot %d declared twice", i, s))
			}
			seen[k] = true
		}
	}
	return nil
}

// BindingClass is the native descriptor heap class a binding type
// lives in. Samplers occupy a separate native heap on every
// backend, so they always pack into separate tables.
type BindingClass int

// Binding classes.
const (
	// ClassResource covers constant buffers, textures and
	// read-write resources.
	ClassResource BindingClass = iota
	// ClassSampler covers samplers.
	ClassSampler
)

// Class returns the heap class of t.
func (t BindingType) Class() BindingClass {
	if t == BindingSampler {
		return ClassSampler
	}
	return ClassResource
}

// regSpace is the shader register space of a binding type.
// Slots only collide within one space: a texture at slot 3 and a
// read-write texture at slot 3 are distinct registers on both
// native APIs.
type regSpace int

const (
	spaceConstant regSpace = iota
	spaceShaderResource
	spaceUnorderedAccess
	spaceSampler
)

// space returns the register space of t.
func (t BindingType) space() regSpace {
	switch t {
	case BindingConstantBuffer:
		return spaceConstant
	case BindingTexture, BindingStructuredBuffer, BindingAccelStruct:
		return spaceShaderResource
	case BindingRWTexture, BindingRWBuffer:
		return spaceUnorderedAccess
	default:
		return spaceSampler
	}
}

// BindingRange is one contiguous run of descriptors inside a
// packed binding table.
type BindingRange struct {
	Type BindingType
	// BaseSlot is the first shader slot covered by the range.
	BaseSlot int
	// Count is the number of consecutive descriptors.
	Count int
	// Offset is the descriptor offset of the range from the
	// start of its table.
	Offset int
}

// BindingTable is one native binding-table/root-parameter entry:
// all items of one heap class visible to one stage set, packed
// with sequential offsets.
type BindingTable struct {
	Visibility ShaderVisibility
	Class      BindingClass
	Ranges     []BindingRange
	// Descriptors is the total descriptor count of the table.
	Descriptors int
}

// PackBindingTables groups the declared items by the pair
// (visibility, class), sorts each group by slot and packs it into
// one table with sequential range offsets. One table per group
// minimizes the number of native binding-table entries, which
// bounds shader-side indirection cost.
// Items with zero visibility default to VisibleAll. Table order
// follows first appearance in d.Items, so packing is
// deterministic.
func PackBindingTables(d *BindingLayoutDesc) ([]BindingTable, error) {
	if err := d.Validate(); err != nil {
		return nil, err
	}
	type groupKey struct {
		vis   ShaderVisibility
		class BindingClass
	}
	var order []groupKey
	groups := make(map[groupKey][]BindingLayoutItem)
	for _, it := range d.Items {
		if it.Visibility == 0 {
			it.Visibility = VisibleAll
		}
		k := groupKey{it.Visibility, it.Type.Class()}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], it)
	}
	tables := make([]BindingTable, 0, len(order))
	for _, k := range order {
		items := groups[k]
		sort.SliceStable(items, func(i, j int) bool {
			return items[i].Slot < items[j].Slot
		})
		t := BindingTable{Visibility: k.vis, Class: k.class}
		for _, it := range items {
			t.Ranges = append(t.Ranges, BindingRange{
				Type:     it.Type,
				BaseSlot: it.Slot,
				Count:    it.count(),
				Offset:   t.Descriptors,
			})
			t.Descriptors += it.count()
		}
		tables = append(tables, t)
	}
	return tables, nil
}

// BindingLayout is the native binding object serialized from a
// packed table list (a root signature or descriptor-set layout).
type BindingLayout interface {
	Resource

	// Desc returns the descriptor the layout was created from.
	Desc() BindingLayoutDesc

	// Tables returns the packed tables the layout was
	// serialized from.
	Tables() []BindingTable
}

// BindingSetItem binds one concrete resource to a declared slot.
// Exactly one of the resource fields is set, matching the
// declared item type.
type BindingSetItem struct {
	Type        BindingType
	Slot        int
	Buffer      Buffer
	Texture     Texture
	Sampler     Sampler
	AccelStruct AccelStruct
	// Offset and Size select a buffer range; zero Size means
	// the whole buffer.
	Offset int64
	Size   int64
}

// BindingSetDesc specifies the concrete resources for every item
// of a binding layout.
type BindingSetDesc struct {
	Items     []BindingSetItem
	DebugName string
}

// Validate reports whether the set items are self-consistent.
// Checking them against a layout is backend work, since the
// layout owns the packed tables.
func (d *BindingSetDesc) Validate() error {
	const op = "CreateBindingSet"
	if len(d.Items) == 0 {
		return argErr(op, "no binding items")
	}
	for i, it := range d.Items {
		var n int
		if it.Buffer != nil {
			n++
		}
		if it.Texture != nil {
			n++
		}
		if it.Sampler != nil {
			n++
		}
		if it.AccelStruct != nil {
			n++
		}
		if n != 1 {
			return argErr(op, fmt.Sprintf("item %d: exactly one resource must be set, have %d", i, n))
		}
	}
	return nil
}

// BindingSet is a fully resolved set of resource bindings for one
// binding layout.
type BindingSet interface {
	Resource

	// Desc returns the descriptor the set was created from.
	Desc() BindingSetDesc

	// Layout returns the layout the set was created against.
	Layout() BindingLayout
}
