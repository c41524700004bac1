package cluster

import (
	"math"

	"github.com/paulmach/orb"
)

// Extent is an axis-aligned bounding box in projection units.
type Extent struct {
	MinX, MinY, MaxX, MaxY float64
}

// EmptyExtent returns an extent that contains nothing and grows with Extend.
func EmptyExtent() Extent {
	return Extent{
		MinX: math.Inf(1),
		MinY: math.Inf(1),
		MaxX: math.Inf(-1),
		MaxY: math.Inf(-1),
	}
}

// InfiniteExtent returns an extent containing every finite coordinate.
func InfiniteExtent() Extent {
	return Extent{
		MinX: math.Inf(-1),
		MinY: math.Inf(-1),
		MaxX: math.Inf(1),
		MaxY: math.Inf(1),
	}
}

func (e Extent) IsEmpty() bool {
	return e.MaxX < e.MinX || e.MaxY < e.MinY
}

func (e Extent) Width() float64 {
	return e.MaxX - e.MinX
}

func (e Extent) Height() float64 {
	return e.MaxY - e.MinY
}

// ContainsXY reports whether (x, y) lies inside the extent, boundary included.
func (e Extent) ContainsXY(x, y float64) bool {
	return x >= e.MinX && x <= e.MaxX && y >= e.MinY && y <= e.MaxY
}

// ContainsExtent reports whether o lies entirely inside e. Empty extents
// neither contain nor are contained.
func (e Extent) ContainsExtent(o Extent) bool {
	if e.IsEmpty() || o.IsEmpty() {
		return false
	}
	return e.MinX <= o.MinX && o.MaxX <= e.MaxX &&
		e.MinY <= o.MinY && o.MaxY <= e.MaxY
}

// Buffer grows the extent by d on every side.
func (e Extent) Buffer(d float64) Extent {
	return Extent{
		MinX: e.MinX - d,
		MinY: e.MinY - d,
		MaxX: e.MaxX + d,
		MaxY: e.MaxY + d,
	}
}

// BufferFactor grows the extent by factor times its larger dimension.
func (e Extent) BufferFactor(factor float64) Extent {
	return e.Buffer(math.Max(e.Width(), e.Height()) * factor)
}

// Extend expands the extent to include a point.
func (e *Extent) Extend(x, y float64) {
	e.MinX = math.Min(e.MinX, x)
	e.MinY = math.Min(e.MinY, y)
	e.MaxX = math.Max(e.MaxX, x)
	e.MaxY = math.Max(e.MaxY, y)
}

func (e Extent) Bound() orb.Bound {
	return orb.Bound{
		Min: orb.Point{e.MinX, e.MinY},
		Max: orb.Point{e.MaxX, e.MaxY},
	}
}
