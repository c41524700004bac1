// Package pointio imports point datasets from external file formats.
package pointio

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/jonas-p/go-shp"

	"web/gridcluster/cluster"
)

// ReadShapefile reads the point shapes of an ESRI shapefile. When idField is
// set, point ids are parsed from that attribute; otherwise the 1-based record
// number is used. Non-point shapes are skipped.
func ReadShapefile(path, idField string) ([]cluster.Point, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open shapefile: %w", err)
	}
	defer r.Close()

	idx := -1
	if idField != "" {
		for i, f := range r.Fields() {
			if strings.EqualFold(f.String(), idField) {
				idx = i
				break
			}
		}
		if idx < 0 {
			return nil, fmt.Errorf("shapefile %s has no field %q", path, idField)
		}
	}

	var points []cluster.Point
	for r.Next() {
		n, shape := r.Shape()

		var x, y float64
		switch s := shape.(type) {
		case *shp.Point:
			x, y = s.X, s.Y
		case *shp.PointZ:
			x, y = s.X, s.Y
		case *shp.PointM:
			x, y = s.X, s.Y
		default:
			continue
		}

		id := uint64(n + 1)
		if idx >= 0 {
			raw := strings.TrimSpace(r.ReadAttribute(n, idx))
			id, err = strconv.ParseUint(raw, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("record %d: invalid id %q: %w", n, raw, err)
			}
		}
		points = append(points, cluster.Point{ID: uint32(id), X: x, Y: y})
	}
	if err := r.Err(); err != nil {
		return nil, fmt.Errorf("failed to read shapefile: %w", err)
	}
	return points, nil
}

// WriteShapefile writes points as a point shapefile with an ID attribute.
func WriteShapefile(path string, points []cluster.Point) error {
	w, err := shp.Create(path, shp.POINT)
	if err != nil {
		return fmt.Errorf("failed to create shapefile: %w", err)
	}
	defer w.Close()

	if err := w.SetFields([]shp.Field{shp.NumberField("ID", 10)}); err != nil {
		return fmt.Errorf("failed to set fields: %w", err)
	}
	for _, p := range points {
		n := w.Write(&shp.Point{X: p.X, Y: p.Y})
		if err := w.WriteAttribute(int(n), 0, int(p.ID)); err != nil {
			return fmt.Errorf("failed to write id of point %d: %w", p.ID, err)
		}
	}
	return nil
}
