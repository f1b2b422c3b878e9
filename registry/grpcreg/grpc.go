package grpcreg

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Messages are CBOR documents (registry.Marshal) carried in protobuf
// well-known wrappers, so no protoc toolchain is needed.
const serviceName = "xdao.docreg.registry.v1.Registry"

// RegistryServer is the server API for the Registry gRPC service.
type RegistryServer interface {
	FindByOriginalDigest(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	FindByIdentifier(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error)
	Submit(context.Context, *wrapperspb.BytesValue) (*wrapperspb.UInt64Value, error)
	ListByUploader(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error)
	Get(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error)
}

// UnimplementedRegistryServer can be embedded to have forward compatible implementations.
type UnimplementedRegistryServer struct{}

func (UnimplementedRegistryServer) FindByOriginalDigest(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method FindByOriginalDigest not implemented")
}
func (UnimplementedRegistryServer) FindByIdentifier(context.Context, *wrapperspb.StringValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method FindByIdentifier not implemented")
}
func (UnimplementedRegistryServer) Submit(context.Context, *wrapperspb.BytesValue) (*wrapperspb.UInt64Value, error) {
	return nil, status.Error(codes.Unimplemented, "method Submit not implemented")
}
func (UnimplementedRegistryServer) ListByUploader(context.Context, *wrapperspb.BytesValue) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ListByUploader not implemented")
}
func (UnimplementedRegistryServer) Get(context.Context, *wrapperspb.UInt64Value) (*wrapperspb.BytesValue, error) {
	return nil, status.Error(codes.Unimplemented, "method Get not implemented")
}

// RegisterRegistryServer registers the Registry service on a gRPC server.
func RegisterRegistryServer(s grpc.ServiceRegistrar, srv RegistryServer) {
	s.RegisterService(&Registry_ServiceDesc, srv)
}

// RegistryClient is the client API for the Registry gRPC service.
type RegistryClient interface {
	FindByOriginalDigest(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	FindByIdentifier(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Submit(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.UInt64Value, error)
	ListByUploader(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
	Get(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error)
}

type registryClient struct{ cc grpc.ClientConnInterface }

func NewRegistryClient(cc grpc.ClientConnInterface) RegistryClient { return &registryClient{cc: cc} }

func (c *registryClient) FindByOriginalDigest(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/FindByOriginalDigest", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) FindByIdentifier(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/FindByIdentifier", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) Submit(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.UInt64Value, error) {
	out := new(wrapperspb.UInt64Value)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Submit", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) ListByUploader(ctx context.Context, in *wrapperspb.BytesValue, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/ListByUploader", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *registryClient) Get(ctx context.Context, in *wrapperspb.UInt64Value, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+serviceName+"/Get", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// unaryHandler builds the grpc.MethodDesc handler that decodes an In and
// dispatches to call.
func unaryHandler[In any, Out any](method string, call func(RegistryServer, context.Context, *In) (*Out, error)) func(interface{}, context.Context, func(interface{}) error, grpc.UnaryServerInterceptor) (interface{}, error) {
	return func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
		in := new(In)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(RegistryServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/" + serviceName + "/" + method}
		handler := func(ctx context.Context, req interface{}) (interface{}, error) {
			return call(srv.(RegistryServer), ctx, req.(*In))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// Registry_ServiceDesc is the grpc.ServiceDesc for the Registry service.
var Registry_ServiceDesc = grpc.ServiceDesc{
	ServiceName: serviceName,
	HandlerType: (*RegistryServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "FindByOriginalDigest", Handler: unaryHandler("FindByOriginalDigest", RegistryServer.FindByOriginalDigest)},
		{MethodName: "FindByIdentifier", Handler: unaryHandler("FindByIdentifier", RegistryServer.FindByIdentifier)},
		{MethodName: "Submit", Handler: unaryHandler("Submit", RegistryServer.Submit)},
		{MethodName: "ListByUploader", Handler: unaryHandler("ListByUploader", RegistryServer.ListByUploader)},
		{MethodName: "Get", Handler: unaryHandler("Get", RegistryServer.Get)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "xdao/docreg/registry/v1/registry.proto",
}
