package cluster

import (
	"math"

	"github.com/paulmach/orb"
)

// cellKey identifies a grid cell by its column and row relative to the grid
// origin. Indices stay float64 floored quotients so cells far outside the
// int64 range remain distinct.
type cellKey struct {
	col, row float64
}

func cellIndex(v, origin, sideWidth float64) float64 {
	return math.Floor((v - origin) / sideWidth)
}

func keyFor(x, y float64, sideWidth float64, origin orb.Point) cellKey {
	return cellKey{
		col: cellIndex(x, origin[0], sideWidth),
		row: cellIndex(y, origin[1], sideWidth),
	}
}

func (k cellKey) corner(sideWidth float64, origin orb.Point) orb.Point {
	return orb.Point{
		k.col*sideWidth + origin[0],
		k.row*sideWidth + origin[1],
	}
}

// CellCorner returns the lower-left corner of the grid cell of the given side
// width that contains (x, y). Division is floored so negative coordinates fall
// into the cell below them.
func CellCorner(x, y, sideWidth float64, origin orb.Point) orb.Point {
	return keyFor(x, y, sideWidth, origin).corner(sideWidth, origin)
}

// SideWidthForResolution returns the smallest baseSideWidth*2^k that is at
// least resolution*minSidePixels on screen.
func SideWidthForResolution(resolution, baseSideWidth, minSidePixels float64) (float64, error) {
	if !(baseSideWidth > 0) || math.IsInf(baseSideWidth, 0) {
		return 0, ErrInvalidSideWidth
	}
	if !(resolution > 0) || math.IsInf(resolution, 0) {
		return 0, ErrInvalidResolution
	}
	sideMinWidth := resolution * minSidePixels
	sideWidth := baseSideWidth
	for sideWidth < sideMinWidth {
		sideWidth *= 2
	}
	return sideWidth, nil
}
