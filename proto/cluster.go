package proto

type Bounds struct {
	MinX float64 `json:"minX"`
	MinY float64 `json:"minY"`
	MaxX float64 `json:"maxX"`
	MaxY float64 `json:"maxY"`
}

type DatasetInfo struct {
	Id        string `json:"id"`
	NumPoints int32  `json:"numPoints"`
	Timestamp string `json:"timestamp"`
	FileSize  int64  `json:"fileSize"`
	Loaded    bool   `json:"loaded"`
}

type ClusterFeature struct {
	Id         string   `json:"id"`
	X          float64  `json:"x"`
	Y          float64  `json:"y"`
	SideWidth  float64  `json:"sideWidth"`
	Count      int32    `json:"count"`
	Fill       float64  `json:"fill"`
	Selectable bool     `json:"selectable"`
	PointIds   []uint32 `json:"pointIds,omitempty"`
}

type CreateDatasetRequest struct {
	NumPoints int32   `json:"numPoints"`
	Seed      int64   `json:"seed"`
	Bounds    *Bounds `json:"bounds,omitempty"`
}

type CreateDatasetResponse struct {
	Dataset *DatasetInfo `json:"dataset"`
}

type ListDatasetsRequest struct{}

type ListDatasetsResponse struct {
	Datasets []*DatasetInfo `json:"datasets"`
}

type LoadDatasetRequest struct {
	DatasetId string `json:"datasetId"`
}

type LoadDatasetResponse struct {
	Dataset *DatasetInfo `json:"dataset"`
}

type GetClustersRequest struct {
	DatasetId  string  `json:"datasetId"`
	Bounds     *Bounds `json:"bounds"`
	Resolution float64 `json:"resolution"`
}

type GetClustersResponse struct {
	Status    string            `json:"status"`
	SideWidth float64           `json:"sideWidth"`
	Features  []*ClusterFeature `json:"features"`
}

type GetSingleFeatureRequest struct {
	DatasetId string `json:"datasetId"`
	PointId   uint32 `json:"pointId"`
}

type GetSingleFeatureResponse struct {
	Feature *ClusterFeature `json:"feature"`
}

type ClearCacheRequest struct {
	DatasetId string `json:"datasetId"`
}

type ClearCacheResponse struct {
	Evicted int32 `json:"evicted"`
}

type FillStats struct {
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
	Average float64 `json:"average"`
}

type GetSummaryResponse struct {
	TotalPoints       int32      `json:"totalPoints"`
	NumClusters       int32      `json:"numClusters"`
	NumSingleFeatures int32      `json:"numSingleFeatures"`
	Fill              *FillStats `json:"fill"`
}
