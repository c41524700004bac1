package cluster

import (
	"fmt"
	"math"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
)

// DefaultMinSidePixels is the smallest on-screen cell size used when
// Options.MinSidePixels is left at zero.
const DefaultMinSidePixels = 30

type Options struct {
	// SideWidth is the finest cell side length in projection units. Required.
	SideWidth float64
	// MinSidePixels is the minimum on-screen cell size. Zero means 30.
	MinSidePixels float64
	// Origin aligns the global grid.
	Origin orb.Point
	// Loader fetches points for an extent. Nil means points are supplied
	// up front with SetPoints.
	Loader Loader
	// IgnoreFeatureChanges skips per-record change events when records are
	// published.
	IgnoreFeatureChanges bool
	// Logger receives pass diagnostics at debug level. Nil discards them.
	Logger *logrus.Entry
}

func (o Options) withDefaults() (Options, error) {
	if !(o.SideWidth > 0) || math.IsInf(o.SideWidth, 0) {
		return o, fmt.Errorf("invalid side width %v: %w", o.SideWidth, ErrInvalidSideWidth)
	}
	if o.MinSidePixels < 0 || math.IsNaN(o.MinSidePixels) || math.IsInf(o.MinSidePixels, 0) {
		return o, fmt.Errorf("invalid min side pixels %v: %w", o.MinSidePixels, ErrInvalidMinSidePixels)
	}
	if o.MinSidePixels == 0 {
		o.MinSidePixels = DefaultMinSidePixels
	}
	if o.Logger == nil {
		l := logrus.New()
		l.SetLevel(logrus.PanicLevel)
		o.Logger = logrus.NewEntry(l)
	}
	return o, nil
}

// Engine runs single clustering passes over a point set. It owns the single
// feature cache shared by every pass.
type Engine struct {
	baseSideWidth float64
	minSidePixels float64
	origin        orb.Point
	cache         *SingleFeatureCache
	builder       builder
}

// NewEngine validates the grid configuration and returns an engine with an
// empty cache.
func NewEngine(opts Options) (*Engine, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return newEngine(opts), nil
}

func newEngine(opts Options) *Engine {
	cache := NewSingleFeatureCache()
	return &Engine{
		baseSideWidth: opts.SideWidth,
		minSidePixels: opts.MinSidePixels,
		origin:        opts.Origin,
		cache:         cache,
		builder: builder{
			baseSideWidth: opts.SideWidth,
			cache:         cache,
		},
	}
}

func (e *Engine) BaseSideWidth() float64 { return e.baseSideWidth }

func (e *Engine) Cache() *SingleFeatureCache { return e.cache }

// SideWidth returns the cell side width to use at resolution.
func (e *Engine) SideWidth(resolution float64) (float64, error) {
	return SideWidthForResolution(resolution, e.baseSideWidth, e.minSidePixels)
}

type bucket struct {
	key    cellKey
	points []Point
}

// Cluster groups the points inside extent into cells of sideWidth and builds
// one record per occupied cell. Records come back in the order their cells
// were first encountered. Points with a non-finite coordinate have no cell
// and are skipped.
func (e *Engine) Cluster(points []Point, extent Extent, sideWidth float64) []*Record {
	index := make(map[cellKey]int)
	var buckets []bucket

	for _, p := range points {
		if !extent.ContainsXY(p.X, p.Y) || !finite(p.X, p.Y) {
			continue
		}

		key := keyFor(p.X, p.Y, sideWidth, e.origin)
		i, ok := index[key]
		if !ok {
			i = len(buckets)
			index[key] = i
			buckets = append(buckets, bucket{key: key})
		}
		buckets[i].points = append(buckets[i].points, p)
	}

	records := make([]*Record, 0, len(buckets))
	for _, b := range buckets {
		records = append(records, e.builder.build(b.key.corner(sideWidth, e.origin), sideWidth, b.points))
	}
	return records
}

func finite(x, y float64) bool {
	return !math.IsInf(x, 0) && !math.IsInf(y, 0) && !math.IsNaN(x) && !math.IsNaN(y)
}

// SingleFeature resolves the leaf record for one point without a full pass,
// populating the cache on a miss.
func (e *Engine) SingleFeature(p Point) *Record {
	if r, ok := e.cache.Get(p.ID); ok {
		return r
	}
	corner := CellCorner(p.X, p.Y, e.baseSideWidth, e.origin)
	return e.builder.build(corner, e.baseSideWidth, []Point{p})
}
