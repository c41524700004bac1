package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"sync/atomic"
	"time"

	"github.com/paulmach/orb"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"web/gridcluster/cluster"
	pb "web/gridcluster/proto"
	"web/gridcluster/store"
)

const (
	DefaultMaxDatasets     = 10
	DefaultIdleTimeout     = 30 * time.Minute
	DefaultCleanupInterval = 5 * time.Minute
	DefaultSideWidth       = 0.001
)

// DefaultBounds is used by CreateDataset when the request carries none.
var DefaultBounds = cluster.Extent{MinX: -180, MinY: -90, MaxX: 180, MaxY: 90}

type Config struct {
	// DataDir holds the compressed point files.
	DataDir string
	// MaxDatasets caps the number of datasets kept in memory.
	MaxDatasets int
	// IdleTimeout evicts datasets not accessed for this long.
	IdleTimeout     time.Duration
	CleanupInterval time.Duration
	// SideWidth and MinSidePixels configure every dataset's grid.
	SideWidth     float64
	MinSidePixels float64
	Origin        orb.Point
	// Store, when set, receives every created dataset and backs the
	// Sources of datasets it holds with an extent-driven loader.
	Store  *store.Store
	Logger *logrus.Entry
}

func (c *Config) setDefaults() {
	if c.DataDir == "" {
		c.DataDir = "data/datasets"
	}
	if c.MaxDatasets <= 0 {
		c.MaxDatasets = DefaultMaxDatasets
	}
	if c.IdleTimeout <= 0 {
		c.IdleTimeout = DefaultIdleTimeout
	}
	if c.CleanupInterval <= 0 {
		c.CleanupInterval = DefaultCleanupInterval
	}
	if c.SideWidth == 0 {
		c.SideWidth = DefaultSideWidth
	}
	if c.Logger == nil {
		c.Logger = logrus.NewEntry(logrus.StandardLogger())
	}
}

// dataset is one loaded Source. mu serializes every use of source.
type dataset struct {
	info   cluster.DatasetInfo
	mu     sync.Mutex
	source *cluster.Source
	loader *store.Loader

	lastAccessed atomic.Int64
}

func (d *dataset) touch() {
	d.lastAccessed.Store(time.Now().UnixNano())
}

func (d *dataset) idleSince() time.Time {
	return time.Unix(0, d.lastAccessed.Load())
}

// close stops the store loader. It must not be called with d.mu held since
// pending deliveries take it.
func (d *dataset) close() {
	if d.loader != nil {
		d.loader.Close()
	}
}

type ClusterRunner struct {
	pb.UnimplementedClusterServiceServer

	cfg         Config
	log         *logrus.Entry
	datasets    map[string]*dataset
	datasetLock sync.RWMutex
	loads       singleflight.Group

	stop     chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewClusterRunner(cfg Config) (*ClusterRunner, error) {
	cfg.setDefaults()
	if _, err := cluster.NewEngine(cluster.Options{SideWidth: cfg.SideWidth, MinSidePixels: cfg.MinSidePixels}); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(cfg.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	runner := &ClusterRunner{
		cfg:      cfg,
		log:      cfg.Logger,
		datasets: make(map[string]*dataset),
		stop:     make(chan struct{}),
	}

	runner.wg.Add(1)
	go runner.cleanupInactiveDatasets()

	return runner, nil
}

// Close stops the cleanup goroutine and releases every loaded dataset.
func (r *ClusterRunner) Close() {
	r.stopOnce.Do(func() { close(r.stop) })
	r.wg.Wait()

	r.datasetLock.Lock()
	loaded := r.datasets
	r.datasets = make(map[string]*dataset)
	r.datasetLock.Unlock()

	for _, d := range loaded {
		d.close()
	}
}

func (r *ClusterRunner) cleanupInactiveDatasets() {
	defer r.wg.Done()
	ticker := time.NewTicker(r.cfg.CleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case <-r.stop:
			return
		case now := <-ticker.C:
			r.evictIdle(now)
		}
	}
}

func (r *ClusterRunner) evictIdle(now time.Time) int {
	r.datasetLock.Lock()
	var removed []*dataset
	for id, d := range r.datasets {
		if now.Sub(d.idleSince()) > r.cfg.IdleTimeout {
			removed = append(removed, d)
			delete(r.datasets, id)
		}
	}
	r.datasetLock.Unlock()

	for _, d := range removed {
		r.log.WithField("dataset", d.info.ID).Info("evicting idle dataset")
		d.close()
	}
	return len(removed)
}

func (r *ClusterRunner) newSource(d *dataset, withLoader bool) (*cluster.Source, error) {
	log := r.log.WithField("dataset", d.info.ID)
	opts := cluster.Options{
		SideWidth:            r.cfg.SideWidth,
		MinSidePixels:        r.cfg.MinSidePixels,
		Origin:               r.cfg.Origin,
		IgnoreFeatureChanges: true,
		Logger:               log,
	}
	if withLoader {
		d.loader = store.NewLoader(r.cfg.Store, d.info.ID, func(points []cluster.Point) {
			d.source.SetPoints(points)
		}, store.WithDeliverLock(&d.mu), store.WithLogger(log))
		opts.Loader = d.loader
	}
	return cluster.NewSource(opts)
}

// register adds d, evicting the least recently used dataset when full.
func (r *ClusterRunner) register(d *dataset) {
	d.touch()

	r.datasetLock.Lock()
	var evicted *dataset
	if _, exists := r.datasets[d.info.ID]; !exists && len(r.datasets) >= r.cfg.MaxDatasets {
		var oldestID string
		var oldest time.Time
		for id, other := range r.datasets {
			if oldestID == "" || other.idleSince().Before(oldest) {
				oldestID = id
				oldest = other.idleSince()
			}
		}
		evicted = r.datasets[oldestID]
		delete(r.datasets, oldestID)
	}
	r.datasets[d.info.ID] = d
	r.datasetLock.Unlock()

	if evicted != nil {
		r.log.WithField("dataset", evicted.info.ID).Info("evicting least recently used dataset")
		evicted.close()
	}
}

func (r *ClusterRunner) lookup(id string) (*dataset, bool) {
	r.datasetLock.RLock()
	d, ok := r.datasets[id]
	r.datasetLock.RUnlock()
	if ok {
		d.touch()
	}
	return d, ok
}

// loadDatasetIfNeeded returns the loaded dataset for id, reading it from disk
// or attaching it to the point store on first use. Concurrent loads of the
// same id share one read.
func (r *ClusterRunner) loadDatasetIfNeeded(ctx context.Context, id string) (*dataset, error) {
	if d, ok := r.lookup(id); ok {
		return d, nil
	}

	v, err, _ := r.loads.Do(id, func() (interface{}, error) {
		if d, ok := r.lookup(id); ok {
			return d, nil
		}

		info, err := cluster.GetDatasetInfo(r.cfg.DataDir, id)
		if err != nil {
			return nil, err
		}
		d := &dataset{info: info}

		streamed := false
		if r.cfg.Store != nil {
			n, err := r.cfg.Store.Count(ctx, id)
			if err != nil {
				r.log.WithError(err).WithField("dataset", id).Warn("point store unavailable, reading file")
			}
			streamed = n > 0
		}

		d.source, err = r.newSource(d, streamed)
		if err != nil {
			return nil, err
		}

		if !streamed {
			start := time.Now()
			points, err := cluster.LoadPoints(info.Path)
			if err != nil {
				return nil, fmt.Errorf("failed to load dataset %s: %w", id, err)
			}
			d.source.SetPoints(points)
			r.log.WithFields(logrus.Fields{
				"dataset":  id,
				"points":   len(points),
				"duration": time.Since(start),
			}).Info("loaded dataset")
		}

		r.register(d)
		return d, nil
	})
	if err != nil {
		return nil, toStatus(err)
	}
	return v.(*dataset), nil
}

func toStatus(err error) error {
	if _, ok := status.FromError(err); ok {
		return err
	}
	switch {
	case errors.Is(err, cluster.ErrDatasetNotFound):
		return status.Error(codes.NotFound, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return status.FromContextError(err).Err()
	}
	return status.Error(codes.Internal, err.Error())
}

func (r *ClusterRunner) CreateDataset(ctx context.Context, req *pb.CreateDatasetRequest) (*pb.CreateDatasetResponse, error) {
	if req.NumPoints <= 0 {
		return nil, status.Errorf(codes.InvalidArgument, "numPoints must be positive, got %d", req.NumPoints)
	}
	bounds := DefaultBounds
	if req.Bounds != nil {
		bounds = extentFromBounds(req.Bounds)
		if bounds.IsEmpty() {
			return nil, status.Error(codes.InvalidArgument, "bounds are empty")
		}
	}
	seed := req.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	log := r.log.WithField("num_points", req.NumPoints)
	log.Info("creating dataset")

	points := cluster.GenerateTestPoints(int(req.NumPoints), bounds, seed)

	path, id := cluster.DatasetFilename(r.cfg.DataDir, len(points))
	if err := cluster.SavePoints(path, points); err != nil {
		return nil, status.Errorf(codes.Internal, "failed to save dataset: %v", err)
	}
	if r.cfg.Store != nil {
		if err := r.cfg.Store.Insert(ctx, id, points); err != nil {
			return nil, toStatus(err)
		}
	}

	info, err := cluster.GetDatasetInfo(r.cfg.DataDir, id)
	if err != nil {
		return nil, toStatus(err)
	}
	log.WithFields(logrus.Fields{"dataset": id, "path": path}).Info("saved dataset")

	d := &dataset{info: info}
	d.source, err = r.newSource(d, r.cfg.Store != nil)
	if err != nil {
		return nil, toStatus(err)
	}
	if d.loader == nil {
		d.source.SetPoints(points)
	}
	r.register(d)

	return &pb.CreateDatasetResponse{Dataset: datasetInfoToProto(info, true)}, nil
}

func (r *ClusterRunner) ListDatasets(ctx context.Context, req *pb.ListDatasetsRequest) (*pb.ListDatasetsResponse, error) {
	datasets, err := cluster.ListSavedDatasets(r.cfg.DataDir)
	if err != nil {
		return nil, toStatus(err)
	}

	r.datasetLock.RLock()
	infos := make([]*pb.DatasetInfo, len(datasets))
	for i, info := range datasets {
		_, loaded := r.datasets[info.ID]
		infos[i] = datasetInfoToProto(info, loaded)
	}
	r.datasetLock.RUnlock()

	return &pb.ListDatasetsResponse{Datasets: infos}, nil
}

func (r *ClusterRunner) LoadDataset(ctx context.Context, req *pb.LoadDatasetRequest) (*pb.LoadDatasetResponse, error) {
	d, err := r.loadDatasetIfNeeded(ctx, req.DatasetId)
	if err != nil {
		return nil, err
	}
	return &pb.LoadDatasetResponse{Dataset: datasetInfoToProto(d.info, true)}, nil
}

// view runs RequestView on the dataset's Source and hands the published
// records to fn while the dataset is locked.
func (r *ClusterRunner) view(ctx context.Context, req *pb.GetClustersRequest, fn func(cluster.ViewStatus, float64, []*cluster.Record)) error {
	if req.Bounds == nil {
		return status.Error(codes.InvalidArgument, "bounds are required")
	}
	d, err := r.loadDatasetIfNeeded(ctx, req.DatasetId)
	if err != nil {
		return err
	}

	d.mu.Lock()
	defer d.mu.Unlock()
	viewStatus := d.source.RequestView(extentFromBounds(req.Bounds), req.Resolution)
	fn(viewStatus, d.source.CurrentSideWidth(), d.source.Records())
	return nil
}

func (r *ClusterRunner) GetClusters(ctx context.Context, req *pb.GetClustersRequest) (*pb.GetClustersResponse, error) {
	resp := &pb.GetClustersResponse{}
	err := r.view(ctx, req, func(viewStatus cluster.ViewStatus, sideWidth float64, records []*cluster.Record) {
		resp.Status = viewStatus.String()
		resp.SideWidth = sideWidth
		resp.Features = recordsToProto(records)
	})
	if err != nil {
		return nil, err
	}
	return resp, nil
}

func (r *ClusterRunner) GetSummary(ctx context.Context, req *pb.GetClustersRequest) (*pb.GetSummaryResponse, error) {
	var summary cluster.Summary
	err := r.view(ctx, req, func(_ cluster.ViewStatus, _ float64, records []*cluster.Record) {
		summary = cluster.CalculateSummary(records)
	})
	if err != nil {
		return nil, err
	}
	return summaryToProto(summary), nil
}

func (r *ClusterRunner) GetSingleFeature(ctx context.Context, req *pb.GetSingleFeatureRequest) (*pb.GetSingleFeatureResponse, error) {
	d, err := r.loadDatasetIfNeeded(ctx, req.DatasetId)
	if err != nil {
		return nil, err
	}

	d.mu.Lock()
	p, found := findPoint(d.source.Points(), req.PointId)
	d.mu.Unlock()

	if !found && d.loader != nil {
		p, err = r.cfg.Store.Point(ctx, req.DatasetId, req.PointId)
		found = err == nil
	}
	if !found {
		return nil, status.Errorf(codes.NotFound, "point %d not found in dataset %s", req.PointId, req.DatasetId)
	}

	d.mu.Lock()
	record := d.source.SingleFeature(p)
	d.mu.Unlock()

	return &pb.GetSingleFeatureResponse{Feature: recordToProto(record)}, nil
}

func (r *ClusterRunner) ClearCache(ctx context.Context, req *pb.ClearCacheRequest) (*pb.ClearCacheResponse, error) {
	d, ok := r.lookup(req.DatasetId)
	if !ok {
		return nil, status.Errorf(codes.NotFound, "dataset %s is not loaded", req.DatasetId)
	}

	d.mu.Lock()
	evicted := d.source.Engine().Cache().Len()
	d.source.ClearCache()
	d.mu.Unlock()

	r.log.WithFields(logrus.Fields{"dataset": req.DatasetId, "evicted": evicted}).Info("cleared single feature cache")
	return &pb.ClearCacheResponse{Evicted: int32(evicted)}, nil
}

func findPoint(points []cluster.Point, id uint32) (cluster.Point, bool) {
	for _, p := range points {
		if p.ID == id {
			return p, true
		}
	}
	return cluster.Point{}, false
}
