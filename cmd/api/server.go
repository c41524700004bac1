package main

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"web/gridcluster/cluster"
	"web/gridcluster/proto"
)

const requestTimeout = 30 * time.Second

type Server struct {
	client  proto.ClusterServiceClient
	limiter *rate.Limiter
	log     *logrus.Entry

	mu               sync.RWMutex
	defaultDatasetID string // most recently created or loaded dataset
}

func NewServer(client proto.ClusterServiceClient, limiter *rate.Limiter, log *logrus.Entry) *Server {
	return &Server{client: client, limiter: limiter, log: log}
}

func (s *Server) setDefault(id string) {
	s.mu.Lock()
	s.defaultDatasetID = id
	s.mu.Unlock()
}

func (s *Server) datasetID(c *gin.Context) string {
	if id := c.Param("id"); id != "" && id != "default" {
		return id
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.defaultDatasetID
}

func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), s.logRequests, cors, s.rateLimit)

	api := r.Group("/api/datasets")
	api.GET("", s.listDatasets)
	api.POST("", s.createDataset)
	api.POST("/:id/load", s.loadDataset)
	api.GET("/:id/clusters", s.getClusters)
	api.GET("/:id/summary", s.getSummary)
	api.GET("/:id/points/:pointID", s.getPoint)
	api.DELETE("/:id/cache", s.clearCache)
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

func (s *Server) rateLimit(c *gin.Context) {
	if s.limiter != nil && !s.limiter.Allow() {
		c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
		return
	}
	c.Next()
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()
	c.Next()
	s.log.WithFields(logrus.Fields{
		"method":   c.Request.Method,
		"path":     c.FullPath(),
		"status":   c.Writer.Status(),
		"duration": time.Since(start),
	}).Debug("handled request")
}

// abort writes err as JSON using the HTTP status matching its gRPC code.
func abort(c *gin.Context, err error) {
	code := http.StatusInternalServerError
	switch status.Code(err) {
	case codes.NotFound:
		code = http.StatusNotFound
	case codes.InvalidArgument:
		code = http.StatusBadRequest
	case codes.DeadlineExceeded:
		code = http.StatusGatewayTimeout
	case codes.Unavailable:
		code = http.StatusServiceUnavailable
	}
	msg := err.Error()
	if st, ok := status.FromError(err); ok {
		msg = st.Message()
	}
	c.AbortWithStatusJSON(code, gin.H{"error": msg})
}

func rpcContext(c *gin.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request.Context(), requestTimeout)
}

func boundsFromQuery(c *gin.Context) (*proto.Bounds, error) {
	var vals [4]float64
	for i, name := range []string{"west", "south", "east", "north"} {
		v, err := strconv.ParseFloat(c.Query(name), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid %s parameter", name)
		}
		vals[i] = v
	}
	return &proto.Bounds{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}, nil
}

func viewRequest(c *gin.Context, id string) (*proto.GetClustersRequest, error) {
	bounds, err := boundsFromQuery(c)
	if err != nil {
		return nil, err
	}
	resolution, err := strconv.ParseFloat(c.Query("resolution"), 64)
	if err != nil {
		return nil, fmt.Errorf("invalid resolution parameter")
	}
	return &proto.GetClustersRequest{DatasetId: id, Bounds: bounds, Resolution: resolution}, nil
}

func (s *Server) listDatasets(c *gin.Context) {
	ctx, cancel := rpcContext(c)
	defer cancel()

	resp, err := s.client.ListDatasets(ctx, &proto.ListDatasetsRequest{})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resp.Datasets)
}

func (s *Server) createDataset(c *gin.Context) {
	var req proto.CreateDatasetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request"})
		return
	}

	ctx, cancel := rpcContext(c)
	defer cancel()

	resp, err := s.client.CreateDataset(ctx, &req)
	if err != nil {
		abort(c, err)
		return
	}
	s.setDefault(resp.Dataset.Id)
	c.JSON(http.StatusOK, resp.Dataset)
}

func (s *Server) loadDataset(c *gin.Context) {
	id := s.datasetID(c)
	ctx, cancel := rpcContext(c)
	defer cancel()

	resp, err := s.client.LoadDataset(ctx, &proto.LoadDatasetRequest{DatasetId: id})
	if err != nil {
		abort(c, err)
		return
	}
	s.setDefault(id)
	c.JSON(http.StatusOK, gin.H{
		"message": "dataset loaded",
		"dataset": resp.Dataset,
	})
}

func (s *Server) getClusters(c *gin.Context) {
	req, err := viewRequest(c, s.datasetID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := rpcContext(c)
	defer cancel()

	resp, err := s.client.GetClusters(ctx, req)
	if err != nil {
		abort(c, err)
		return
	}

	fc := geojson.NewFeatureCollection()
	for _, f := range resp.Features {
		fc.Append(featureToGeoJSON(f))
	}
	fc.ExtraMembers = geojson.Properties{
		"status":    resp.Status,
		"sideWidth": resp.SideWidth,
	}
	c.JSON(http.StatusOK, fc)
}

func (s *Server) getSummary(c *gin.Context) {
	req, err := viewRequest(c, s.datasetID(c))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	ctx, cancel := rpcContext(c)
	defer cancel()

	resp, err := s.client.GetSummary(ctx, req)
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) getPoint(c *gin.Context) {
	pointID, err := strconv.ParseUint(c.Param("pointID"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid point id"})
		return
	}

	ctx, cancel := rpcContext(c)
	defer cancel()

	resp, err := s.client.GetSingleFeature(ctx, &proto.GetSingleFeatureRequest{
		DatasetId: s.datasetID(c),
		PointId:   uint32(pointID),
	})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, featureToGeoJSON(resp.Feature))
}

func (s *Server) clearCache(c *gin.Context) {
	ctx, cancel := rpcContext(c)
	defer cancel()

	resp, err := s.client.ClearCache(ctx, &proto.ClearCacheRequest{DatasetId: s.datasetID(c)})
	if err != nil {
		abort(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func featureToGeoJSON(f *proto.ClusterFeature) *geojson.Feature {
	feature := geojson.NewFeature(cluster.Footprint(orb.Point{f.X, f.Y}, f.SideWidth))
	feature.ID = f.Id
	feature.Properties["fill"] = f.Fill
	feature.Properties["selectable"] = f.Selectable
	feature.Properties["point_count"] = f.Count
	feature.Properties["side_width"] = f.SideWidth
	if f.PointIds != nil {
		feature.Properties["features"] = f.PointIds
	}
	return feature
}
