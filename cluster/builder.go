package cluster

import (
	"strconv"

	"github.com/paulmach/orb"
)

// Point is a sample to be clustered. ID must be unique and stable across
// reclustering for the single feature cache to be correct.
type Point struct {
	ID   uint32
	X, Y float64
}

// Record is one cluster cell. Leaf records are shared with the single feature
// cache and must be treated as read-only.
type Record struct {
	ID        string
	Corner    orb.Point
	SideWidth float64
	Footprint orb.Polygon
	Members   []Point
	Fill      float64
	Leaf      bool
}

// Selectable reports whether the record stands for a single base cell.
func (r *Record) Selectable() bool {
	return r.Leaf
}

// Count is the number of member points.
func (r *Record) Count() int {
	return len(r.Members)
}

// Center is the middle of the record's cell.
func (r *Record) Center() orb.Point {
	half := r.SideWidth / 2
	return orb.Point{r.Corner[0] + half, r.Corner[1] + half}
}

// recordID returns the leaf point id, or "<scale>_<first point id>" for
// larger cells. The composite form depends on bucket order and is only
// unique within one pass.
func recordID(scaleFactor float64, leaf bool, first Point) string {
	id := strconv.FormatUint(uint64(first.ID), 10)
	if leaf {
		return id
	}
	return strconv.FormatFloat(scaleFactor, 'f', -1, 64) + "_" + id
}

// Footprint is the closed square ring of a cell with the given lower-left
// corner.
func Footprint(corner orb.Point, sideWidth float64) orb.Polygon {
	x, y := corner[0], corner[1]
	return orb.Polygon{orb.Ring{
		{x, y},
		{x, y + sideWidth},
		{x + sideWidth, y + sideWidth},
		{x + sideWidth, y},
		{x, y},
	}}
}

// builder turns occupied cells into records, consulting the cache for leaves.
type builder struct {
	baseSideWidth float64
	cache         *SingleFeatureCache
}

// build assumes points is non-empty.
func (b *builder) build(corner orb.Point, sideWidth float64, points []Point) *Record {
	scaleFactor := sideWidth / b.baseSideWidth
	capacity := scaleFactor * scaleFactor
	leaf := scaleFactor == 1
	id := recordID(scaleFactor, leaf, points[0])

	if leaf {
		if cached, ok := b.cache.Get(points[0].ID); ok {
			return cached
		}
	}

	r := &Record{
		ID:        id,
		Corner:    corner,
		SideWidth: sideWidth,
		Footprint: Footprint(corner, sideWidth),
		Members:   points,
		Fill:      float64(len(points)) / capacity,
		Leaf:      leaf,
	}

	if leaf {
		b.cache.Put(points[0].ID, r)
	}
	return r
}
