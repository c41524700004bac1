package proto

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const serviceName = "gridcluster.ClusterService"

// ClusterServiceServer is implemented by the cluster runner.
type ClusterServiceServer interface {
	CreateDataset(context.Context, *CreateDatasetRequest) (*CreateDatasetResponse, error)
	ListDatasets(context.Context, *ListDatasetsRequest) (*ListDatasetsResponse, error)
	LoadDataset(context.Context, *LoadDatasetRequest) (*LoadDatasetResponse, error)
	GetClusters(context.Context, *GetClustersRequest) (*GetClustersResponse, error)
	GetSingleFeature(context.Context, *GetSingleFeatureRequest) (*GetSingleFeatureResponse, error)
	ClearCache(context.Context, *ClearCacheRequest) (*ClearCacheResponse, error)
	GetSummary(context.Context, *GetClustersRequest) (*GetSummaryResponse, error)
}

// UnimplementedClusterServiceServer can be embedded to satisfy
// ClusterServiceServer for methods not yet implemented.
type UnimplementedClusterServiceServer struct{}

func (UnimplementedClusterServiceServer) CreateDataset(context.Context, *CreateDatasetRequest) (*CreateDatasetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method CreateDataset not implemented")
}

func (UnimplementedClusterServiceServer) ListDatasets(context.Context, *ListDatasetsRequest) (*ListDatasetsResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListDatasets not implemented")
}

func (UnimplementedClusterServiceServer) LoadDataset(context.Context, *LoadDatasetRequest) (*LoadDatasetResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method LoadDataset not implemented")
}

func (UnimplementedClusterServiceServer) GetClusters(context.Context, *GetClustersRequest) (*GetClustersResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetClusters not implemented")
}

func (UnimplementedClusterServiceServer) GetSingleFeature(context.Context, *GetSingleFeatureRequest) (*GetSingleFeatureResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSingleFeature not implemented")
}

func (UnimplementedClusterServiceServer) ClearCache(context.Context, *ClearCacheRequest) (*ClearCacheResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ClearCache not implemented")
}

func (UnimplementedClusterServiceServer) GetSummary(context.Context, *GetClustersRequest) (*GetSummaryResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method GetSummary not implemented")
}

// ClusterServiceClient calls a remote ClusterServiceServer.
type ClusterServiceClient interface {
	CreateDataset(ctx context.Context, in *CreateDatasetRequest, opts ...grpc.CallOption) (*CreateDatasetResponse, error)
	ListDatasets(ctx context.Context, in *ListDatasetsRequest, opts ...grpc.CallOption) (*ListDatasetsResponse, error)
	LoadDataset(ctx context.Context, in *LoadDatasetRequest, opts ...grpc.CallOption) (*LoadDatasetResponse, error)
	GetClusters(ctx context.Context, in *GetClustersRequest, opts ...grpc.CallOption) (*GetClustersResponse, error)
	GetSingleFeature(ctx context.Context, in *GetSingleFeatureRequest, opts ...grpc.CallOption) (*GetSingleFeatureResponse, error)
	ClearCache(ctx context.Context, in *ClearCacheRequest, opts ...grpc.CallOption) (*ClearCacheResponse, error)
	GetSummary(ctx context.Context, in *GetClustersRequest, opts ...grpc.CallOption) (*GetSummaryResponse, error)
}

type clusterServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewClusterServiceClient returns a client that encodes calls with the JSON codec.
func NewClusterServiceClient(cc grpc.ClientConnInterface) ClusterServiceClient {
	return &clusterServiceClient{cc: cc}
}

func (c *clusterServiceClient) CreateDataset(ctx context.Context, in *CreateDatasetRequest, opts ...grpc.CallOption) (*CreateDatasetResponse, error) {
	out := new(CreateDatasetResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/CreateDataset", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clusterServiceClient) ListDatasets(ctx context.Context, in *ListDatasetsRequest, opts ...grpc.CallOption) (*ListDatasetsResponse, error) {
	out := new(ListDatasetsResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ListDatasets", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clusterServiceClient) LoadDataset(ctx context.Context, in *LoadDatasetRequest, opts ...grpc.CallOption) (*LoadDatasetResponse, error) {
	out := new(LoadDatasetResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/LoadDataset", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clusterServiceClient) GetClusters(ctx context.Context, in *GetClustersRequest, opts ...grpc.CallOption) (*GetClustersResponse, error) {
	out := new(GetClustersResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetClusters", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clusterServiceClient) GetSingleFeature(ctx context.Context, in *GetSingleFeatureRequest, opts ...grpc.CallOption) (*GetSingleFeatureResponse, error) {
	out := new(GetSingleFeatureResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetSingleFeature", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clusterServiceClient) ClearCache(ctx context.Context, in *ClearCacheRequest, opts ...grpc.CallOption) (*ClearCacheResponse, error) {
	out := new(ClearCacheResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ClearCache", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *clusterServiceClient) GetSummary(ctx context.Context, in *GetClustersRequest, opts ...grpc.CallOption) (*GetSummaryResponse, error) {
	out := new(GetSummaryResponse)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/GetSummary", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func RegisterClusterServiceServer(s grpc.ServiceRegistrar, srv ClusterServiceServer) {
	s.RegisterService(&ClusterService_ServiceDesc, srv)
}

func _ClusterService_CreateDataset_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(CreateDatasetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClusterServiceServer).CreateDataset(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/CreateDataset",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClusterServiceServer).CreateDataset(ctx, req.(*CreateDatasetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClusterService_ListDatasets_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ListDatasetsRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClusterServiceServer).ListDatasets(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/ListDatasets",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClusterServiceServer).ListDatasets(ctx, req.(*ListDatasetsRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClusterService_LoadDataset_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(LoadDatasetRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClusterServiceServer).LoadDataset(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/LoadDataset",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClusterServiceServer).LoadDataset(ctx, req.(*LoadDatasetRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClusterService_GetClusters_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetClustersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClusterServiceServer).GetClusters(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/GetClusters",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClusterServiceServer).GetClusters(ctx, req.(*GetClustersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClusterService_GetSingleFeature_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetSingleFeatureRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClusterServiceServer).GetSingleFeature(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/GetSingleFeature",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClusterServiceServer).GetSingleFeature(ctx, req.(*GetSingleFeatureRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClusterService_ClearCache_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(ClearCacheRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClusterServiceServer).ClearCache(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/ClearCache",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClusterServiceServer).ClearCache(ctx, req.(*ClearCacheRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _ClusterService_GetSummary_Handler(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
	in := new(GetClustersRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(ClusterServiceServer).GetSummary(ctx, in)
	}
	info := &grpc.UnaryServerInfo{
		Server:     srv,
		FullMethod: "/" + serviceName + "/GetSummary",
	}
	handler := func(ctx context.Context, req interface{}) (interface{}, error) {
		return srv.(ClusterServiceServer).GetSummary(ctx, req.(*GetClustersRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ClusterService_ServiceDesc describes ClusterService for grpc.Server.
var ClusterService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*ClusterServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "CreateDataset",
			Handler:    _ClusterService_CreateDataset_Handler,
		},
		{
			MethodName: "ListDatasets",
			Handler:    _ClusterService_ListDatasets_Handler,
		},
		{
			MethodName: "LoadDataset",
			Handler:    _ClusterService_LoadDataset_Handler,
		},
		{
			MethodName: "GetClusters",
			Handler:    _ClusterService_GetClusters_Handler,
		},
		{
			MethodName: "GetSingleFeature",
			Handler:    _ClusterService_GetSingleFeature_Handler,
		},
		{
			MethodName: "ClearCache",
			Handler:    _ClusterService_ClearCache_Handler,
		},
		{
			MethodName: "GetSummary",
			Handler:    _ClusterService_GetSummary_Handler,
		},
	},
	Streams: []grpc.StreamDesc{},
}
