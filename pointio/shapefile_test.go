package pointio

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"web/gridcluster/cluster"
)

func TestShapefileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.shp")
	points := []cluster.Point{
		{ID: 17, X: 5.5, Y: -3},
		{ID: 4, X: 95, Y: 5},
		{ID: 230, X: -120.25, Y: 44.5},
	}
	require.NoError(t, WriteShapefile(path, points))

	got, err := ReadShapefile(path, "ID")
	require.NoError(t, err)
	assert.Equal(t, points, got)

	byRecord, err := ReadShapefile(path, "")
	require.NoError(t, err)
	require.Len(t, byRecord, 3)
	assert.Equal(t, uint32(1), byRecord[0].ID)
	assert.Equal(t, uint32(3), byRecord[2].ID)
	assert.Equal(t, points[2].X, byRecord[2].X)
}

func TestReadShapefileMissingField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "points.shp")
	require.NoError(t, WriteShapefile(path, []cluster.Point{{ID: 1, X: 1, Y: 1}}))

	_, err := ReadShapefile(path, "NAME")
	assert.Error(t, err)
}
