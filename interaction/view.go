package interaction

import (
	"math"
	"time"

	"github.com/paulmach/orb"

	"web/gridcluster/cluster"
)

// MapView is a plain View for callers without a rendering layer, such as an
// HTTP handler replaying a client's viewport. Resolution halves per zoom level.
type MapView struct {
	Center        orb.Point
	ZoomLevel     float64
	MaxResolution float64
	// Size is the viewport in pixels.
	Size [2]float64
}

func (v *MapView) Zoom() float64 { return v.ZoomLevel }

func (v *MapView) ResolutionForZoom(zoom float64) float64 {
	return v.MaxResolution / math.Pow(2, zoom)
}

func (v *MapView) Resolution() float64 {
	return v.ResolutionForZoom(v.ZoomLevel)
}

func (v *MapView) Extent() cluster.Extent {
	res := v.Resolution()
	halfW, halfH := v.Size[0]*res/2, v.Size[1]*res/2
	return cluster.Extent{
		MinX: v.Center[0] - halfW,
		MinY: v.Center[1] - halfH,
		MaxX: v.Center[0] + halfW,
		MaxY: v.Center[1] + halfH,
	}
}

func (v *MapView) SetCenter(center orb.Point) { v.Center = center }

func (v *MapView) SetZoom(zoom float64) { v.ZoomLevel = zoom }

// Animate has nothing to draw and jumps to the end state.
func (v *MapView) Animate(center orb.Point, zoom float64, _ time.Duration) {
	v.Center = center
	v.ZoomLevel = zoom
}
