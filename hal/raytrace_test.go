// Copyright 2026 The Andastra Authors. All rights reserved.

package hal

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestAlignAccelStructSize(t *testing.T) {
	cases := [][2]int64{
		{0, 0},
		{1, 256},
		{255, 256},
		{256, 256},
		{257, 512},
		{1000, 1024},
	}
	for _, c := range cases {
		assert.Equal(t, c[1], AlignAccelStructSize(c[0]), "size %d", c[0])
	}
}

func TestAccelStructDescValidate(t *testing.T) {
	blas := AccelStructDesc{Kind: BottomLevel}
	assert.ErrorIs(t, blas.Validate(), ErrInvalidArgument, "zero geometries")

	tlas := AccelStructDesc{Kind: TopLevel}
	assert.ErrorIs(t, tlas.Validate(), ErrInvalidArgument, "zero max instances")

	mixed := AccelStructDesc{Kind: TopLevel, MaxInstances: 4, Geometries: []GeometryDesc{{}}}
	assert.ErrorIs(t, mixed.Validate(), ErrInvalidArgument, "top-level with geometries")

	bad := AccelStructDesc{Kind: BottomLevel, Geometries: []GeometryDesc{{VertexCount: 3}}}
	assert.ErrorIs(t, bad.Validate(), ErrInvalidArgument, "geometry without vertex buffer")
}
