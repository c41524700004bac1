package cluster

import (
	"math"
	"testing"

	"github.com/paulmach/orb"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCellCorner(t *testing.T) {
	testCases := []struct {
		name      string
		x, y      float64
		sideWidth float64
		origin    orb.Point
		want      orb.Point
	}{
		{"cell centre", 5, 5, 10, orb.Point{0, 0}, orb.Point{0, 0}},
		{"just below boundary", 9.999, 19.999, 10, orb.Point{0, 0}, orb.Point{0, 10}},
		{"on boundary", 10, 20, 10, orb.Point{0, 0}, orb.Point{10, 20}},
		{"negative just below zero", -0.001, -0.001, 10, orb.Point{0, 0}, orb.Point{-10, -10}},
		{"negative on boundary", -10, -20, 10, orb.Point{0, 0}, orb.Point{-10, -20}},
		{"negative just below boundary", -10.001, -20.001, 10, orb.Point{0, 0}, orb.Point{-20, -30}},
		{"shifted origin centre", 8, 13, 10, orb.Point{3, 3}, orb.Point{3, 13}},
		{"shifted origin below", 2.5, 2.5, 10, orb.Point{3, 3}, orb.Point{-7, -7}},
		{"scenario far cell", 95, 5, 40, orb.Point{0, 0}, orb.Point{80, 0}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := CellCorner(tc.x, tc.y, tc.sideWidth, tc.origin)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestCellCornerCentreOfOriginCell(t *testing.T) {
	origin := orb.Point{-1234.5, 678.25}
	for _, side := range []float64{1, 10, 40, 1280} {
		got := CellCorner(origin[0]+0.5*side, origin[1]+0.5*side, side, origin)
		assert.Equal(t, origin, got, "side %v", side)
	}
}

func TestSideWidthForResolution(t *testing.T) {
	testCases := []struct {
		resolution float64
		want       float64
	}{
		{0.001, 10},
		{0.1, 10},
		{0.5, 20},
		{1, 40},
		{2, 80},
		{2.7, 160},
		{100, 5120},
	}

	for _, tc := range testCases {
		got, err := SideWidthForResolution(tc.resolution, 10, 30)
		require.NoError(t, err)
		assert.Equal(t, tc.want, got, "resolution %v", tc.resolution)
	}
}

func TestSideWidthForResolutionMonotone(t *testing.T) {
	prev := 0.0
	for r := 0.01; r < 500; r *= 1.37 {
		got, err := SideWidthForResolution(r, 10, 30)
		require.NoError(t, err)

		assert.GreaterOrEqual(t, got, prev)
		k := math.Log2(got / 10)
		assert.Equal(t, math.Trunc(k), k, "side %v is not a power of two multiple", got)
		assert.GreaterOrEqual(t, got, r*30)
		prev = got
	}
}

func TestSideWidthForResolutionInvalid(t *testing.T) {
	for _, r := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		_, err := SideWidthForResolution(r, 10, 30)
		assert.ErrorIs(t, err, ErrInvalidResolution, "resolution %v", r)
	}

	for _, base := range []float64{0, -10, math.NaN()} {
		_, err := SideWidthForResolution(1, base, 30)
		assert.ErrorIs(t, err, ErrInvalidSideWidth, "base %v", base)
	}
}

func TestExtent(t *testing.T) {
	e := Extent{MinX: 0, MinY: 0, MaxX: 100, MaxY: 50}

	assert.Equal(t, Extent{MinX: -50, MinY: -50, MaxX: 150, MaxY: 100}, e.BufferFactor(0.5))
	assert.True(t, e.ContainsXY(100, 50))
	assert.False(t, e.ContainsXY(100.1, 0))
	assert.True(t, e.ContainsExtent(Extent{MinX: 10, MinY: 10, MaxX: 20, MaxY: 20}))
	assert.False(t, e.ContainsExtent(Extent{MinX: -1, MinY: 10, MaxX: 20, MaxY: 20}))

	empty := EmptyExtent()
	assert.True(t, empty.IsEmpty())
	assert.False(t, empty.ContainsExtent(e))
	assert.False(t, e.ContainsExtent(empty))

	empty.Extend(3, 4)
	empty.Extend(-1, 7)
	assert.Equal(t, Extent{MinX: -1, MinY: 4, MaxX: 3, MaxY: 7}, empty)

	assert.True(t, InfiniteExtent().ContainsXY(-1e300, 1e300))
}
