package main

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/paulmach/orb/geojson"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web/gridcluster/cluster"
	"web/gridcluster/pointio"
)

func newTestServer(t *testing.T) (*ClusterServer, http.Handler) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	l := logrus.New()
	l.SetOutput(io.Discard)
	log := logrus.NewEntry(l)

	s, err := NewClusterServer(ServerConfig{
		DataDir:       t.TempDir(),
		SideWidth:     1,
		MaxResolution: 1,
	}, NewHub(log), log)
	require.NoError(t, err)
	return s, s.Router()
}

func doJSON(t *testing.T, h http.Handler, method, target string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, target, r)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

var testExtent = cluster.Extent{MinX: 0, MinY: 0, MaxX: 100, MaxY: 100}

func createTestDataset(t *testing.T, h http.Handler, n int) cluster.DatasetInfo {
	t.Helper()
	w := doJSON(t, h, http.MethodPost, "/api/datasets", createRequest{NumPoints: n, Seed: 3, Bounds: &testExtent})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var info cluster.DatasetInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &info))
	return info
}

func getClusters(t *testing.T, h http.Handler, resolution string) *geojson.FeatureCollection {
	t.Helper()
	w := doJSON(t, h, http.MethodGet, "/api/clusters?west=0&south=0&east=100&north=100&resolution="+resolution, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	fc, err := geojson.UnmarshalFeatureCollection(w.Body.Bytes())
	require.NoError(t, err)
	return fc
}

func pointCount(fc *geojson.FeatureCollection) int {
	total := 0
	for _, f := range fc.Features {
		total += f.Properties.MustInt("point_count")
	}
	return total
}

func TestRequiresDataset(t *testing.T) {
	_, h := newTestServer(t)
	w := doJSON(t, h, http.MethodGet, "/api/clusters?west=0&south=0&east=1&north=1&resolution=1", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCreateAndQuery(t *testing.T) {
	_, h := newTestServer(t)
	info := createTestDataset(t, h, 200)
	assert.Equal(t, 200, info.NumPoints)

	fc := getClusters(t, h, "1")
	assert.Equal(t, "reclustered", fc.ExtraMembers.MustString("status"))
	assert.Equal(t, 32.0, fc.ExtraMembers.MustFloat64("sideWidth"))
	assert.Equal(t, 200, pointCount(fc))
	for _, f := range fc.Features {
		assert.False(t, f.Properties.MustBool("selectable"))
	}

	fc = getClusters(t, h, "1")
	assert.Equal(t, "unchanged", fc.ExtraMembers.MustString("status"))

	w := doJSON(t, h, http.MethodGet, "/api/summary?west=0&south=0&east=100&north=100&resolution=1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var summary cluster.Summary
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &summary))
	assert.Equal(t, 200, summary.TotalPoints)

	w = doJSON(t, h, http.MethodGet, "/api/clusters?west=0&south=0&east=100&north=100", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestListAndLoad(t *testing.T) {
	_, h := newTestServer(t)
	info := createTestDataset(t, h, 20)

	w := doJSON(t, h, http.MethodGet, "/api/datasets", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var datasets []cluster.DatasetInfo
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &datasets))
	require.Len(t, datasets, 1)
	assert.Equal(t, info.ID, datasets[0].ID)

	w = doJSON(t, h, http.MethodPost, "/api/datasets/"+info.ID+"/load", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/datasets/missing/load", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPointAndCache(t *testing.T) {
	_, h := newTestServer(t)
	createTestDataset(t, h, 50)

	w := doJSON(t, h, http.MethodGet, "/api/points/1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	f, err := geojson.UnmarshalFeature(w.Body.Bytes())
	require.NoError(t, err)
	assert.Equal(t, "1", f.ID)
	assert.True(t, f.Properties.MustBool("selectable"))

	w = doJSON(t, h, http.MethodGet, "/api/points/5000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = doJSON(t, h, http.MethodDelete, "/api/cache", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cleared struct{ Evicted int }
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &cleared))
	assert.Positive(t, cleared.Evicted)
}

func TestSelectZoomsThenToggles(t *testing.T) {
	_, h := newTestServer(t)
	createTestDataset(t, h, 200)

	fc := getClusters(t, h, "1")
	require.NotEmpty(t, fc.Features)
	clusterID := fc.Features[0].ID.(string)

	var resp selectResponse
	w := doJSON(t, h, http.MethodPost, "/api/select", selectRequest{
		FeatureID: clusterID, Center: [2]float64{50, 50}, Zoom: 3, Size: [2]float64{256, 256},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "zoomed", resp.Outcome)
	assert.Equal(t, 4.0, resp.Zoom)
	assert.Empty(t, resp.Selected)

	fc = getClusters(t, h, "0.01")
	require.NotEmpty(t, fc.Features)
	leafID := fc.Features[0].ID.(string)
	assert.False(t, strings.Contains(leafID, "_"))

	sel := selectRequest{FeatureID: leafID, Center: [2]float64{50, 50}, Zoom: 8, Size: [2]float64{256, 256}}
	w = doJSON(t, h, http.MethodPost, "/api/select", sel)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "selected", resp.Outcome)
	assert.Equal(t, []string{leafID}, resp.Selected)

	fc = getClusters(t, h, "0.01")
	for _, f := range fc.Features {
		assert.Equal(t, f.ID == leafID, f.Properties.MustBool("selected"))
	}

	w = doJSON(t, h, http.MethodPost, "/api/select", sel)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "deselected", resp.Outcome)
	assert.Empty(t, resp.Selected)

	w = doJSON(t, h, http.MethodPost, "/api/select", selectRequest{FeatureID: "nope"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestShapefileImportExport(t *testing.T) {
	s, h := newTestServer(t)
	in := filepath.Join(s.cfg.DataDir, importDir, "in.shp")
	points := []cluster.Point{{ID: 10, X: 1, Y: 2}, {ID: 11, X: 30, Y: 40}}
	require.NoError(t, pointio.WriteShapefile(in, points))

	w := doJSON(t, h, http.MethodPost, "/api/datasets/import", importRequest{Path: "in.shp", IDField: "ID"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = doJSON(t, h, http.MethodGet, "/api/points/11", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = doJSON(t, h, http.MethodPost, "/api/export", gin.H{"path": "out.shp"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	got, err := pointio.ReadShapefile(filepath.Join(s.cfg.DataDir, exportDir, "out.shp"), "ID")
	require.NoError(t, err)
	assert.Equal(t, points, got)
}

func TestShapefilePathsStayInDataDir(t *testing.T) {
	s, h := newTestServer(t)
	createTestDataset(t, h, 5)
	outside := filepath.Join(t.TempDir(), "x.shp")

	for _, path := range []string{"../x.shp", "a/../../x.shp", outside, ""} {
		w := doJSON(t, h, http.MethodPost, "/api/export", gin.H{"path": path})
		assert.Equal(t, http.StatusBadRequest, w.Code, path)

		w = doJSON(t, h, http.MethodPost, "/api/datasets/import", importRequest{Path: path})
		assert.Equal(t, http.StatusBadRequest, w.Code, path)
	}
	assert.NoFileExists(t, outside)
	assert.NoFileExists(t, filepath.Join(s.cfg.DataDir, "x.shp"))
}

func TestWebsocketReceivesChanges(t *testing.T) {
	s, h := newTestServer(t)
	srv := httptest.NewServer(h)
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http")+"/ws", nil)
	require.NoError(t, err)
	defer conn.Close()
	require.Eventually(t, func() bool { return s.hub.Len() == 1 }, time.Second, 10*time.Millisecond)

	createTestDataset(t, h, 30)

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var types []string
	for {
		var msg ChangeMessage
		require.NoError(t, conn.ReadJSON(&msg))
		types = append(types, msg.Type)
		if msg.Type == "published" {
			assert.Equal(t, 30, msg.Points)
			assert.Positive(t, msg.Records)
			break
		}
	}
	assert.Equal(t, []string{"cleared", "published"}, types)
}

func TestFormatExt(t *testing.T) {
	for in, want := range map[string]string{"zst": ".zst", "LZ4": ".lz4", ".bin": ".bin", "mmap": ".bin"} {
		got, err := formatExt(in)
		require.NoError(t, err)
		assert.Equal(t, want, got)
	}
	_, err := formatExt("gzip")
	assert.Error(t, err)
}
