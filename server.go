package main

import (
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"

	"web/gridcluster/cluster"
	"web/gridcluster/interaction"
	"web/gridcluster/pointio"
)

// ServerConfig configures the standalone server.
type ServerConfig struct {
	DataDir string
	// Format is the extension new datasets are saved with.
	Format string
	// Grid options shared by every dataset.
	SideWidth     float64
	MinSidePixels float64
	// MaxResolution is the map units per pixel at zoom 0.
	MaxResolution    float64
	DisableAnimation bool
}

// ClusterServer holds one active dataset in process. mu guards the source,
// the selection and the view they drive.
type ClusterServer struct {
	cfg ServerConfig
	hub *Hub
	log *logrus.Entry

	mu          sync.Mutex
	info        *cluster.DatasetInfo
	source      *cluster.Source
	unsubscribe func()
	view        *interaction.MapView
	sel         *interaction.Select
}

func NewClusterServer(cfg ServerConfig, hub *Hub, log *logrus.Entry) (*ClusterServer, error) {
	if cfg.Format == "" {
		cfg.Format = cluster.ExtZstd
	}
	if cfg.MaxResolution <= 0 {
		cfg.MaxResolution = 360.0 / 256
	}
	if _, err := cluster.NewEngine(cluster.Options{SideWidth: cfg.SideWidth, MinSidePixels: cfg.MinSidePixels}); err != nil {
		return nil, err
	}
	for _, dir := range []string{cfg.DataDir, filepath.Join(cfg.DataDir, importDir), filepath.Join(cfg.DataDir, exportDir)} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}
	return &ClusterServer{cfg: cfg, hub: hub, log: log}, nil
}

// activate replaces the active dataset. A fresh Source is built so the single
// feature cache never outlives its dataset.
func (s *ClusterServer) activate(info cluster.DatasetInfo, points []cluster.Point) error {
	source, err := cluster.NewSource(cluster.Options{
		SideWidth:            s.cfg.SideWidth,
		MinSidePixels:        s.cfg.MinSidePixels,
		IgnoreFeatureChanges: true,
		Logger:               s.log.WithField("dataset", info.ID),
	})
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
	s.info = &info
	s.source = source
	s.unsubscribe = source.Subscribe(s.hub.Listener(source))
	s.view = &interaction.MapView{MaxResolution: s.cfg.MaxResolution}
	s.sel = interaction.NewSelect(s.view, source, interaction.Options{DisableAnimation: s.cfg.DisableAnimation})

	start := time.Now()
	source.SetPoints(points)
	s.log.WithFields(logrus.Fields{
		"dataset":  info.ID,
		"points":   len(points),
		"records":  len(source.Records()),
		"duration": time.Since(start),
	}).Info("activated dataset")
	return nil
}

// save writes points as a new dataset and makes it active.
func (s *ClusterServer) save(points []cluster.Point) (cluster.DatasetInfo, error) {
	path, id := cluster.DatasetFilenameExt(s.cfg.DataDir, len(points), s.cfg.Format)
	start := time.Now()
	if err := cluster.SavePoints(path, points); err != nil {
		return cluster.DatasetInfo{}, err
	}
	info, err := cluster.GetDatasetInfo(s.cfg.DataDir, id)
	if err != nil {
		return cluster.DatasetInfo{}, err
	}
	s.log.WithFields(logrus.Fields{
		"dataset":  id,
		"path":     path,
		"size":     formatFileSize(info.FileSize),
		"duration": time.Since(start),
	}).Info("saved dataset")
	return info, s.activate(info, points)
}

// Load reads a saved dataset and makes it active.
func (s *ClusterServer) Load(id string) (cluster.DatasetInfo, error) {
	info, err := cluster.GetDatasetInfo(s.cfg.DataDir, id)
	if err != nil {
		return cluster.DatasetInfo{}, err
	}
	points, err := cluster.LoadPoints(info.Path)
	if err != nil {
		return cluster.DatasetInfo{}, fmt.Errorf("failed to load dataset %s: %w", id, err)
	}
	return info, s.activate(info, points)
}

// ImportShapefile saves the points of a shapefile as a new active dataset.
func (s *ClusterServer) ImportShapefile(path, idField string) (cluster.DatasetInfo, error) {
	points, err := pointio.ReadShapefile(path, idField)
	if err != nil {
		return cluster.DatasetInfo{}, err
	}
	return s.save(points)
}

// ExportShapefile writes the active dataset's points to a point shapefile.
func (s *ClusterServer) ExportShapefile(path string) (int, error) {
	s.mu.Lock()
	if s.source == nil {
		s.mu.Unlock()
		return 0, fmt.Errorf("no dataset loaded")
	}
	points := s.source.Points()
	s.mu.Unlock()

	if err := pointio.WriteShapefile(path, points); err != nil {
		return 0, err
	}
	return len(points), nil
}

// Shapefiles named over HTTP live in these subdirectories of the data
// directory.
const (
	importDir = "imports"
	exportDir = "exports"
)

// resolvePath maps a client supplied relative name into sub of the data
// directory. Absolute names and names escaping sub are rejected.
func (s *ClusterServer) resolvePath(sub, name string) (string, error) {
	if !filepath.IsLocal(name) {
		return "", fmt.Errorf("path %q must be relative to %s", name, sub)
	}
	return filepath.Join(s.cfg.DataDir, sub, name), nil
}

func formatFileSize(size int64) string {
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func (s *ClusterServer) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), cors)

	r.GET("/api/datasets", s.listDatasets)
	r.POST("/api/datasets", s.createDataset)
	r.POST("/api/datasets/import", s.importDataset)
	r.POST("/api/datasets/:id/load", s.loadDataset)

	active := r.Group("/api", s.requireDataset)
	active.GET("/dataset", s.activeDataset)
	active.GET("/clusters", s.getClusters)
	active.GET("/summary", s.getSummary)
	active.GET("/points/:pointID", s.getPoint)
	active.DELETE("/cache", s.clearCache)
	active.POST("/select", s.selectFeature)
	active.POST("/export", s.exportDataset)

	r.GET("/ws", gin.WrapH(s.hub))
	return r
}

func cors(c *gin.Context) {
	c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
	c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type")

	if c.Request.Method == http.MethodOptions {
		c.AbortWithStatus(http.StatusNoContent)
		return
	}
	c.Next()
}

func (s *ClusterServer) requireDataset(c *gin.Context) {
	s.mu.Lock()
	loaded := s.source != nil
	s.mu.Unlock()
	if !loaded {
		c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": "no dataset loaded"})
		return
	}
	c.Next()
}

func queryView(c *gin.Context) (cluster.Extent, float64, error) {
	var vals [4]float64
	for i, name := range []string{"west", "south", "east", "north"} {
		v, err := strconv.ParseFloat(c.Query(name), 64)
		if err != nil {
			return cluster.Extent{}, 0, fmt.Errorf("invalid %s parameter", name)
		}
		vals[i] = v
	}
	resolution, err := strconv.ParseFloat(c.Query("resolution"), 64)
	if err != nil {
		return cluster.Extent{}, 0, fmt.Errorf("invalid resolution parameter")
	}
	return cluster.Extent{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}, resolution, nil
}

func (s *ClusterServer) listDatasets(c *gin.Context) {
	datasets, err := cluster.ListSavedDatasets(s.cfg.DataDir)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, datasets)
}

type createRequest struct {
	NumPoints int             `json:"numPoints"`
	Seed      int64           `json:"seed"`
	Bounds    *cluster.Extent `json:"bounds"`
}

func (s *ClusterServer) createDataset(c *gin.Context) {
	var req createRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.NumPoints <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	bounds := cluster.Extent{MinX: -125, MinY: 25, MaxX: -67, MaxY: 49}
	if req.Bounds != nil {
		bounds = *req.Bounds
	}
	if bounds.IsEmpty() {
		c.JSON(http.StatusBadRequest, gin.H{"error": "bounds are empty"})
		return
	}
	if req.Seed == 0 {
		req.Seed = time.Now().UnixNano()
	}

	info, err := s.save(cluster.GenerateTestPoints(req.NumPoints, bounds, req.Seed))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

type importRequest struct {
	Path    string `json:"path" binding:"required"`
	IDField string `json:"idField"`
}

func (s *ClusterServer) importDataset(c *gin.Context) {
	var req importRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	path, err := s.resolvePath(importDir, req.Path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	info, err := s.ImportShapefile(path, req.IDField)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, info)
}

func (s *ClusterServer) exportDataset(c *gin.Context) {
	var req struct {
		Path string `json:"path" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}
	path, err := s.resolvePath(exportDir, req.Path)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	n, err := s.ExportShapefile(path)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"path": req.Path, "points": n})
}

func (s *ClusterServer) loadDataset(c *gin.Context) {
	info, err := s.Load(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "dataset loaded", "dataset": info})
}

func (s *ClusterServer) activeDataset(c *gin.Context) {
	s.mu.Lock()
	info := *s.info
	points := len(s.source.Points())
	s.mu.Unlock()
	c.JSON(http.StatusOK, gin.H{"dataset": info, "points": points})
}

func (s *ClusterServer) getClusters(c *gin.Context) {
	extent, resolution, err := queryView(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	status := s.source.RequestView(extent, resolution)
	fc := cluster.ToGeoJSON(s.source.Records())
	for _, f := range fc.Features {
		f.Properties["selected"] = s.sel.IsSelected(f.ID.(string))
	}
	fc.ExtraMembers = geojson.Properties{
		"status":    status.String(),
		"sideWidth": s.source.CurrentSideWidth(),
	}
	s.mu.Unlock()

	c.JSON(http.StatusOK, fc)
}

func (s *ClusterServer) getSummary(c *gin.Context) {
	extent, resolution, err := queryView(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	s.mu.Lock()
	s.source.RequestView(extent, resolution)
	summary := cluster.CalculateSummary(s.source.Records())
	s.mu.Unlock()

	c.JSON(http.StatusOK, summary)
}

func (s *ClusterServer) getPoint(c *gin.Context) {
	pointID, err := strconv.ParseUint(c.Param("pointID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid point id"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	for _, p := range s.source.Points() {
		if p.ID == uint32(pointID) {
			fc := cluster.ToGeoJSON([]*cluster.Record{s.source.SingleFeature(p)})
			c.JSON(http.StatusOK, fc.Features[0])
			return
		}
	}
	c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("point %d not found", pointID)})
}

func (s *ClusterServer) clearCache(c *gin.Context) {
	s.mu.Lock()
	evicted := s.source.Engine().Cache().Len()
	s.source.ClearCache()
	s.mu.Unlock()

	c.JSON(http.StatusOK, gin.H{"evicted": evicted})
}

type selectRequest struct {
	FeatureID string     `json:"featureId" binding:"required"`
	Center    [2]float64 `json:"center"`
	Zoom      float64    `json:"zoom"`
	Size      [2]float64 `json:"size"`
}

type selectResponse struct {
	Outcome  string     `json:"outcome"`
	Center   [2]float64 `json:"center"`
	Zoom     float64    `json:"zoom"`
	Selected []string   `json:"selected"`
}

// selectFeature replays a click on a published record against the client's
// view and returns the resulting view and selection.
func (s *ClusterServer) selectFeature(c *gin.Context) {
	var req selectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	var target *cluster.Record
	for _, r := range s.source.Records() {
		if r.ID == req.FeatureID {
			target = r
			break
		}
	}
	if target == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": fmt.Sprintf("feature %s is not published", req.FeatureID)})
		return
	}

	s.view.Center = orb.Point(req.Center)
	s.view.ZoomLevel = req.Zoom
	s.view.Size = req.Size

	outcome := s.sel.Click(target)

	selected := make([]string, 0)
	for _, r := range s.sel.Selected() {
		selected = append(selected, r.ID)
	}
	sort.Strings(selected)

	c.JSON(http.StatusOK, selectResponse{
		Outcome:  outcome.String(),
		Center:   [2]float64(s.view.Center),
		Zoom:     s.view.ZoomLevel,
		Selected: selected,
	})
}
