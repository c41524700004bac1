package cluster

import (
	"github.com/sirupsen/logrus"
)

// Loader fetches points for an extent. Load reports whether the request was
// accepted; the points arrive later through Source.SetPoints.
type Loader interface {
	Load(extent Extent, resolution float64) bool
}

// LoaderFunc adapts a function to Loader.
type LoaderFunc func(extent Extent, resolution float64) bool

func (f LoaderFunc) Load(extent Extent, resolution float64) bool {
	return f(extent, resolution)
}

// ViewStatus describes what RequestView did.
type ViewStatus int

const (
	// ViewIgnored means the extent was empty or the resolution invalid.
	ViewIgnored ViewStatus = iota
	// ViewLoading means points were requested from the loader.
	ViewLoading
	// ViewReclustered means a clustering pass ran and new records were published.
	ViewReclustered
	// ViewUnchanged means the published records already cover the request.
	ViewUnchanged
)

func (s ViewStatus) String() string {
	switch s {
	case ViewIgnored:
		return "ignored"
	case ViewLoading:
		return "loading"
	case ViewReclustered:
		return "reclustered"
	case ViewUnchanged:
		return "unchanged"
	}
	return "unknown"
}

type ChangeType int

const (
	ChangeCleared ChangeType = iota
	ChangeRecordAdded
	ChangePublished
)

// Change is delivered to subscribers whenever the published records change.
type Change struct {
	Type    ChangeType
	Records []*Record
}

// Source decides when the engine reruns for a viewport and holds the
// published records. It is meant for a single caller; guard it externally
// when shared.
type Source struct {
	engine        *Engine
	loader        Loader
	ignoreChanges bool
	log           *logrus.Entry

	points           []Point
	records          []*Record
	loadedExtent     Extent
	workingExtent    Extent
	currentSideWidth float64
	passes           int

	listeners map[int]func(Change)
	nextID    int
}

// NewSource validates opts and returns a source with no points.
func NewSource(opts Options) (*Source, error) {
	opts, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Source{
		engine:        newEngine(opts),
		loader:        opts.Loader,
		ignoreChanges: opts.IgnoreFeatureChanges,
		log:           opts.Logger,
		loadedExtent:  EmptyExtent(),
		workingExtent: EmptyExtent(),
		listeners:     make(map[int]func(Change)),
	}, nil
}

func (s *Source) Engine() *Engine { return s.engine }

// Records returns the published records.
func (s *Source) Records() []*Record { return s.records }

// Points returns the retained point set.
func (s *Source) Points() []Point { return s.points }

// Passes counts clustering passes run so far.
func (s *Source) Passes() int { return s.passes }

func (s *Source) CurrentSideWidth() float64 { return s.currentSideWidth }

func (s *Source) WorkingExtent() Extent { return s.workingExtent }

func (s *Source) LoadedExtent() Extent { return s.loadedExtent }

// Subscribe registers fn for change events and returns a function removing it.
func (s *Source) Subscribe(fn func(Change)) func() {
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() { delete(s.listeners, id) }
}

func (s *Source) emit(c Change) {
	for _, fn := range s.listeners {
		fn(c)
	}
}

// SetPoints replaces the point set, clears the single feature cache and
// clusters every point at the current side width. Before the first view
// request the base side width is used.
func (s *Source) SetPoints(points []Point) {
	s.points = points
	s.engine.cache.Clear()
	s.clearRecords()

	sideWidth := s.currentSideWidth
	if sideWidth == 0 {
		sideWidth = s.engine.baseSideWidth
	}
	s.publish(s.cluster(InfiniteExtent(), sideWidth))
}

// RequestView brings the published records up to date for the viewport.
func (s *Source) RequestView(extent Extent, resolution float64) ViewStatus {
	if extent.IsEmpty() {
		return ViewIgnored
	}
	sideWidth, err := s.engine.SideWidth(resolution)
	if err != nil {
		return ViewIgnored
	}

	if s.loader != nil && !s.loadedExtent.ContainsExtent(extent) {
		s.clearRecords()
		s.points = nil
		buffered := extent.BufferFactor(0.5)
		if s.loader.Load(buffered, resolution) {
			s.loadedExtent = buffered
		} else {
			s.log.WithField("extent", buffered).Warn("point loader rejected request")
		}
		return ViewLoading
	}

	if sideWidth == s.currentSideWidth && s.workingExtent.ContainsExtent(extent) {
		return ViewUnchanged
	}

	s.clearRecords()
	s.currentSideWidth = sideWidth
	s.workingExtent = extent.BufferFactor(0.5)
	s.publish(s.cluster(s.workingExtent, sideWidth))
	return ViewReclustered
}

// ClearCache drops every cached leaf record.
func (s *Source) ClearCache() {
	s.engine.cache.Clear()
}

// SingleFeature returns the leaf record for p, building and caching it when
// needed.
func (s *Source) SingleFeature(p Point) *Record {
	return s.engine.SingleFeature(p)
}

func (s *Source) cluster(extent Extent, sideWidth float64) []*Record {
	s.passes++
	records := s.engine.Cluster(s.points, extent, sideWidth)
	s.log.WithFields(logrus.Fields{
		"side_width": sideWidth,
		"points":     len(s.points),
		"records":    len(records),
		"pass":       s.passes,
	}).Debug("clustered points")
	return records
}

func (s *Source) clearRecords() {
	s.records = nil
	s.emit(Change{Type: ChangeCleared})
}

func (s *Source) publish(records []*Record) {
	s.records = records
	if !s.ignoreChanges {
		for _, r := range records {
			s.emit(Change{Type: ChangeRecordAdded, Records: []*Record{r}})
		}
	}
	s.emit(Change{Type: ChangePublished, Records: records})
}
