// Copyright 2026 The Andastra Authors. All rights reserved.

// Package bitvec defines a growable bit set used for resource
// occupancy tracking (descriptor heap slots, live resource handles).
package bitvec

import "math/bits"

const wordBits = 64

// V is a growable bit set.
// The zero value is an empty set ready for use.
type V struct {
	s []uint64
	n int
}

// Len returns the number of bits set.
func (v *V) Len() int { return v.n }

// Cap returns the number of bits the set can hold
// before growing.
func (v *V) Cap() int { return len(v.s) * wordBits }

// Set sets the bit at index, growing the set as needed.
// Setting a bit that is already set has no effect.
func (v *V) Set(index int) {
	if index < 0 {
		panic("bitvec: negative index")
	}
	i := index / wordBits
	for i >= len(v.s) {
		v.s = append(v.s, 0)
	}
	b := uint64(1) << (index % wordBits)
	if v.s[i]&b == 0 {
		v.s[i] |= b
		v.n++
	}
}

// Unset clears the bit at index.
// Clearing a bit that is not set has no effect.
func (v *V) Unset(index int) {
	if index < 0 {
		panic("bitvec: negative index")
	}
	i := index / wordBits
	if i >= len(v.s) {
		return
	}
	b := uint64(1) << (index % wordBits)
	if v.s[i]&b != 0 {
		v.s[i] &^= b
		v.n--
	}
}

// IsSet returns whether the bit at index is set.
func (v *V) IsSet(index int) bool {
	if index < 0 {
		panic("bitvec: negative index")
	}
	i := index / wordBits
	return i < len(v.s) && v.s[i]&(1<<(index%wordBits)) != 0
}

// NextSet returns the index of the first set bit at or after
// start, or -1 if there is none.
func (v *V) NextSet(start int) int {
	if start < 0 {
		start = 0
	}
	i := start / wordBits
	if i >= len(v.s) {
		return -1
	}
	w := v.s[i] >> (start % wordBits) << (start % wordBits)
	for {
		if w != 0 {
			return i*wordBits + bits.TrailingZeros64(w)
		}
		i++
		if i >= len(v.s) {
			return -1
		}
		w = v.s[i]
	}
}

// Clear removes all bits from the set, keeping the
// underlying storage.
func (v *V) Clear() {
	for i := range v.s {
		v.s[i] = 0
	}
	v.n = 0
}
