package runner

import (
	"time"

	"web/gridcluster/cluster"
	pb "web/gridcluster/proto"
)

func extentFromBounds(b *pb.Bounds) cluster.Extent {
	return cluster.Extent{MinX: b.MinX, MinY: b.MinY, MaxX: b.MaxX, MaxY: b.MaxY}
}

func datasetInfoToProto(info cluster.DatasetInfo, loaded bool) *pb.DatasetInfo {
	return &pb.DatasetInfo{
		Id:        info.ID,
		NumPoints: int32(info.NumPoints),
		Timestamp: info.Timestamp.Format(time.RFC3339),
		FileSize:  info.FileSize,
		Loaded:    loaded,
	}
}

// recordToProto converts a record; member ids are only sent for leaves and
// small cells.
func recordToProto(r *cluster.Record) *pb.ClusterFeature {
	f := &pb.ClusterFeature{
		Id:         r.ID,
		X:          r.Corner[0],
		Y:          r.Corner[1],
		SideWidth:  r.SideWidth,
		Count:      int32(r.Count()),
		Fill:       r.Fill,
		Selectable: r.Selectable(),
	}
	f.PointIds = cluster.MemberIDs(r)
	return f
}

func recordsToProto(records []*cluster.Record) []*pb.ClusterFeature {
	features := make([]*pb.ClusterFeature, len(records))
	for i, r := range records {
		features[i] = recordToProto(r)
	}
	return features
}

func summaryToProto(s cluster.Summary) *pb.GetSummaryResponse {
	return &pb.GetSummaryResponse{
		TotalPoints:       int32(s.TotalPoints),
		NumClusters:       int32(s.NumClusters),
		NumSingleFeatures: int32(s.NumSingleFeatures),
		Fill: &pb.FillStats{
			Min:     s.Fill.Min,
			Max:     s.Fill.Max,
			Average: s.Fill.Average,
		},
	}
}
