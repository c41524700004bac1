// Package interaction implements the click policy for grid clusters: clicking
// a cluster zooms one level in on it, clicking a single feature toggles its
// selection.
package interaction

import (
	"time"

	"github.com/paulmach/orb"

	"web/gridcluster/cluster"
)

// DefaultAnimationDuration is used when Options.AnimationDuration is zero.
const DefaultAnimationDuration = 200 * time.Millisecond

// View is the map view the policy drives.
type View interface {
	Zoom() float64
	Extent() cluster.Extent
	// ResolutionForZoom returns the map units per pixel at zoom.
	ResolutionForZoom(zoom float64) float64
	SetCenter(center orb.Point)
	SetZoom(zoom float64)
	Animate(center orb.Point, zoom float64, duration time.Duration)
}

// Preloader is satisfied by *cluster.Source.
type Preloader interface {
	RequestView(extent cluster.Extent, resolution float64) cluster.ViewStatus
}

type Options struct {
	// DisableAnimation jumps straight to the target view.
	DisableAnimation  bool
	AnimationDuration time.Duration
	// Filter decides whether a selectable record may be selected. Nil allows all.
	Filter func(r *cluster.Record) bool
}

// Outcome reports what a click did.
type Outcome int

const (
	Ignored Outcome = iota
	Zoomed
	Selected
	Deselected
)

func (o Outcome) String() string {
	switch o {
	case Zoomed:
		return "zoomed"
	case Selected:
		return "selected"
	case Deselected:
		return "deselected"
	}
	return "ignored"
}

// Select keeps the set of selected single features across zoom levels.
type Select struct {
	view     View
	source   Preloader
	animate  bool
	duration time.Duration
	filter   func(r *cluster.Record) bool
	selected map[string]*cluster.Record
}

func NewSelect(view View, source Preloader, opts Options) *Select {
	if opts.AnimationDuration <= 0 {
		opts.AnimationDuration = DefaultAnimationDuration
	}
	return &Select{
		view:     view,
		source:   source,
		animate:  !opts.DisableAnimation,
		duration: opts.AnimationDuration,
		filter:   opts.Filter,
		selected: make(map[string]*cluster.Record),
	}
}

// Click applies the policy to the clicked record.
func (s *Select) Click(r *cluster.Record) Outcome {
	if r == nil {
		return Ignored
	}
	if !r.Selectable() {
		s.ZoomToCluster(r)
		return Zoomed
	}
	if s.filter != nil && !s.filter(r) {
		return Ignored
	}
	if _, ok := s.selected[r.ID]; ok {
		delete(s.selected, r.ID)
		return Deselected
	}
	s.selected[r.ID] = r
	return Selected
}

// ZoomToCluster centres the view on r one zoom level deeper. When animating,
// the source is clustered for the target resolution before the animation
// starts so the records are ready when it ends.
func (s *Select) ZoomToCluster(r *cluster.Record) {
	targetZoom := s.view.Zoom() + 1
	target := r.Center()

	if !s.animate {
		s.view.SetCenter(target)
		s.view.SetZoom(targetZoom)
		return
	}
	s.source.RequestView(s.view.Extent(), s.view.ResolutionForZoom(targetZoom))
	s.view.Animate(target, targetZoom, s.duration)
}

// Selected returns the selected records.
func (s *Select) Selected() []*cluster.Record {
	out := make([]*cluster.Record, 0, len(s.selected))
	for _, r := range s.selected {
		out = append(out, r)
	}
	return out
}

func (s *Select) IsSelected(id string) bool {
	_, ok := s.selected[id]
	return ok
}

func (s *Select) ClearSelection() {
	clear(s.selected)
}
