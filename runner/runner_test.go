package runner

import (
	"context"
	"io"
	"net"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/status"
	"google.golang.org/grpc/test/bufconn"

	pb "web/gridcluster/proto"
	"web/gridcluster/store"
)

var testBounds = &pb.Bounds{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}

func quietLogger() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func newTestRunner(t *testing.T, cfg Config) *ClusterRunner {
	t.Helper()
	if cfg.DataDir == "" {
		cfg.DataDir = t.TempDir()
	}
	if cfg.SideWidth == 0 {
		cfg.SideWidth = 1
	}
	cfg.Logger = quietLogger()
	r, err := NewClusterRunner(cfg)
	require.NoError(t, err)
	t.Cleanup(r.Close)
	return r
}

func createDataset(t *testing.T, r *ClusterRunner, n int32) string {
	t.Helper()
	resp, err := r.CreateDataset(context.Background(), &pb.CreateDatasetRequest{NumPoints: n, Seed: 7, Bounds: testBounds})
	require.NoError(t, err)
	require.NotNil(t, resp.Dataset)
	assert.Equal(t, n, resp.Dataset.NumPoints)
	assert.True(t, resp.Dataset.Loaded)
	return resp.Dataset.Id
}

func featureTotal(features []*pb.ClusterFeature) int {
	total := 0
	for _, f := range features {
		total += int(f.Count)
	}
	return total
}

func assertCode(t *testing.T, err error, code codes.Code) {
	t.Helper()
	require.Error(t, err)
	st, ok := status.FromError(err)
	require.True(t, ok, "not a status error: %v", err)
	assert.Equal(t, code, st.Code())
}

func TestNewClusterRunnerRejectsBadSideWidth(t *testing.T) {
	_, err := NewClusterRunner(Config{DataDir: t.TempDir(), SideWidth: -1, Logger: quietLogger()})
	assert.Error(t, err)
}

func TestGetClusters(t *testing.T) {
	r := newTestRunner(t, Config{})
	id := createDataset(t, r, 500)
	ctx := context.Background()

	req := &pb.GetClustersRequest{DatasetId: id, Bounds: testBounds, Resolution: 0.01}
	resp, err := r.GetClusters(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "reclustered", resp.Status)
	assert.Equal(t, 1.0, resp.SideWidth)
	assert.Equal(t, 500, featureTotal(resp.Features))
	for _, f := range resp.Features {
		assert.Equal(t, 1.0, f.SideWidth)
		assert.True(t, f.Selectable)
	}

	resp, err = r.GetClusters(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "unchanged", resp.Status)
	assert.Equal(t, 500, featureTotal(resp.Features))

	// Zooming out far enough coarsens the grid.
	req.Resolution = 1
	resp, err = r.GetClusters(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "reclustered", resp.Status)
	assert.Equal(t, 32.0, resp.SideWidth)
	assert.Equal(t, 500, featureTotal(resp.Features))
	for _, f := range resp.Features {
		assert.False(t, f.Selectable)
	}
}

func TestGetClustersValidation(t *testing.T) {
	r := newTestRunner(t, Config{})
	id := createDataset(t, r, 10)
	ctx := context.Background()

	_, err := r.GetClusters(ctx, &pb.GetClustersRequest{DatasetId: id, Resolution: 1})
	assertCode(t, err, codes.InvalidArgument)

	resp, err := r.GetClusters(ctx, &pb.GetClustersRequest{DatasetId: id, Bounds: testBounds, Resolution: 0})
	require.NoError(t, err)
	assert.Equal(t, "ignored", resp.Status)

	_, err = r.GetClusters(ctx, &pb.GetClustersRequest{DatasetId: "missing", Bounds: testBounds, Resolution: 1})
	assertCode(t, err, codes.NotFound)
}

func TestCreateDatasetValidation(t *testing.T) {
	r := newTestRunner(t, Config{})
	ctx := context.Background()

	_, err := r.CreateDataset(ctx, &pb.CreateDatasetRequest{NumPoints: 0})
	assertCode(t, err, codes.InvalidArgument)

	_, err = r.CreateDataset(ctx, &pb.CreateDatasetRequest{NumPoints: 5, Bounds: &pb.Bounds{MinX: 10, MaxX: 0}})
	assertCode(t, err, codes.InvalidArgument)
}

func TestGetSummary(t *testing.T) {
	r := newTestRunner(t, Config{})
	id := createDataset(t, r, 300)

	resp, err := r.GetSummary(context.Background(), &pb.GetClustersRequest{DatasetId: id, Bounds: testBounds, Resolution: 1})
	require.NoError(t, err)
	assert.Equal(t, int32(300), resp.TotalPoints)
	assert.Equal(t, int32(0), resp.NumSingleFeatures)
	assert.Positive(t, resp.NumClusters)
	require.NotNil(t, resp.Fill)
	assert.LessOrEqual(t, resp.Fill.Min, resp.Fill.Average)
	assert.LessOrEqual(t, resp.Fill.Average, resp.Fill.Max)
}

func TestGetSingleFeatureAndClearCache(t *testing.T) {
	r := newTestRunner(t, Config{})
	id := createDataset(t, r, 50)
	ctx := context.Background()

	resp, err := r.GetSingleFeature(ctx, &pb.GetSingleFeatureRequest{DatasetId: id, PointId: 1})
	require.NoError(t, err)
	assert.Equal(t, "1", resp.Feature.Id)
	assert.Equal(t, int32(1), resp.Feature.Count)
	assert.True(t, resp.Feature.Selectable)
	assert.Equal(t, []uint32{1}, resp.Feature.PointIds)

	_, err = r.GetSingleFeature(ctx, &pb.GetSingleFeatureRequest{DatasetId: id, PointId: 9999})
	assertCode(t, err, codes.NotFound)

	cleared, err := r.ClearCache(ctx, &pb.ClearCacheRequest{DatasetId: id})
	require.NoError(t, err)
	assert.Positive(t, cleared.Evicted)

	cleared, err = r.ClearCache(ctx, &pb.ClearCacheRequest{DatasetId: id})
	require.NoError(t, err)
	assert.Zero(t, cleared.Evicted)

	_, err = r.ClearCache(ctx, &pb.ClearCacheRequest{DatasetId: "missing"})
	assertCode(t, err, codes.NotFound)
}

func TestListAndLoadDatasets(t *testing.T) {
	dir := t.TempDir()
	first := newTestRunner(t, Config{DataDir: dir})
	id := createDataset(t, first, 20)

	second := newTestRunner(t, Config{DataDir: dir})
	ctx := context.Background()

	list, err := second.ListDatasets(ctx, &pb.ListDatasetsRequest{})
	require.NoError(t, err)
	require.Len(t, list.Datasets, 1)
	assert.Equal(t, id, list.Datasets[0].Id)
	assert.False(t, list.Datasets[0].Loaded)

	loaded, err := second.LoadDataset(ctx, &pb.LoadDatasetRequest{DatasetId: id})
	require.NoError(t, err)
	assert.Equal(t, int32(20), loaded.Dataset.NumPoints)

	list, err = second.ListDatasets(ctx, &pb.ListDatasetsRequest{})
	require.NoError(t, err)
	assert.True(t, list.Datasets[0].Loaded)

	_, err = second.LoadDataset(ctx, &pb.LoadDatasetRequest{DatasetId: "nope"})
	assertCode(t, err, codes.NotFound)
}

func TestLeastRecentlyUsedEviction(t *testing.T) {
	r := newTestRunner(t, Config{MaxDatasets: 1})
	first := createDataset(t, r, 5)
	second := createDataset(t, r, 5)

	_, ok := r.lookup(first)
	assert.False(t, ok)
	_, ok = r.lookup(second)
	assert.True(t, ok)

	// The evicted dataset is reloaded from disk on demand.
	_, err := r.LoadDataset(context.Background(), &pb.LoadDatasetRequest{DatasetId: first})
	require.NoError(t, err)
	_, ok = r.lookup(second)
	assert.False(t, ok)
}

func TestEvictIdle(t *testing.T) {
	r := newTestRunner(t, Config{IdleTimeout: time.Minute})
	id := createDataset(t, r, 5)

	assert.Zero(t, r.evictIdle(time.Now()))
	assert.Equal(t, 1, r.evictIdle(time.Now().Add(2*time.Minute)))

	_, ok := r.lookup(id)
	assert.False(t, ok)
}

func TestStoreBackedDataset(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "points.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	r := newTestRunner(t, Config{Store: s})
	id := createDataset(t, r, 200)
	ctx := context.Background()

	req := &pb.GetClustersRequest{DatasetId: id, Bounds: testBounds, Resolution: 0.01}
	resp, err := r.GetClusters(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "loading", resp.Status)
	assert.Empty(t, resp.Features)

	d, ok := r.lookup(id)
	require.True(t, ok)
	require.NotNil(t, d.loader)
	d.loader.Wait()

	resp, err = r.GetClusters(ctx, req)
	require.NoError(t, err)
	assert.Equal(t, "reclustered", resp.Status)
	assert.Equal(t, 200, featureTotal(resp.Features))

	single, err := r.GetSingleFeature(ctx, &pb.GetSingleFeatureRequest{DatasetId: id, PointId: 3})
	require.NoError(t, err)
	assert.Equal(t, "3", single.Feature.Id)
}

func TestServiceOverGRPC(t *testing.T) {
	r := newTestRunner(t, Config{})

	lis := bufconn.Listen(1 << 20)
	server := grpc.NewServer()
	pb.RegisterClusterServiceServer(server, r)
	go server.Serve(lis)
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	client := pb.NewClusterServiceClient(conn)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	created, err := client.CreateDataset(ctx, &pb.CreateDatasetRequest{NumPoints: 100, Seed: 1, Bounds: testBounds})
	require.NoError(t, err)

	clusters, err := client.GetClusters(ctx, &pb.GetClustersRequest{DatasetId: created.Dataset.Id, Bounds: testBounds, Resolution: 0.5})
	require.NoError(t, err)
	assert.Equal(t, "reclustered", clusters.Status)
	assert.Equal(t, 100, featureTotal(clusters.Features))

	_, err = client.LoadDataset(ctx, &pb.LoadDatasetRequest{DatasetId: "missing"})
	assertCode(t, err, codes.NotFound)
}
