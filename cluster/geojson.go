package cluster

import (
	"github.com/paulmach/orb/geojson"
)

// MaxMemberIDs caps how many member ids a serialized record carries. Larger
// cells are sent with their count only.
const MaxMemberIDs = 256

// MemberIDs returns the ids of r's members, or nil when there are more than
// MaxMemberIDs of them.
func MemberIDs(r *Record) []uint32 {
	if len(r.Members) > MaxMemberIDs {
		return nil
	}
	ids := make([]uint32, len(r.Members))
	for i, m := range r.Members {
		ids[i] = m.ID
	}
	return ids
}

// ToGeoJSON converts records to polygon features. Leaf records are marked
// selectable.
func ToGeoJSON(records []*Record) *geojson.FeatureCollection {
	fc := geojson.NewFeatureCollection()
	bounds := EmptyExtent()

	for _, r := range records {
		f := geojson.NewFeature(r.Footprint)
		f.ID = r.ID

		f.Properties["fill"] = r.Fill
		f.Properties["selectable"] = r.Selectable()
		f.Properties["point_count"] = len(r.Members)
		f.Properties["side_width"] = r.SideWidth
		if ids := MemberIDs(r); ids != nil {
			f.Properties["features"] = ids
		}

		fc.Append(f)
		bounds.Extend(r.Corner[0], r.Corner[1])
		bounds.Extend(r.Corner[0]+r.SideWidth, r.Corner[1]+r.SideWidth)
	}

	if len(records) > 0 {
		fc.BBox = geojson.NewBBox(bounds.Bound())
	}
	return fc
}
