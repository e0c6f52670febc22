package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"sync"

	"points-catalog-service/internal/loader"
	"points-catalog-service/internal/render"
	"points-catalog-service/internal/viewer"

	"github.com/go-playground/validator/v10"
	"github.com/goccy/go-json"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/reflect/protodesc"
	"google.golang.org/protobuf/reflect/protoregistry"
	"google.golang.org/protobuf/types/descriptorpb"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// CatalogViewerServiceName is the fully-qualified gRPC service name. Messages are
// protobuf well-known types; views travel as google.protobuf.Struct with the same
// shape as the JSON API.
const CatalogViewerServiceName = "catalog.v1.CatalogViewer"

// CatalogViewerProtoFile is the path of the file descriptor registered for the
// service, so reflection clients can describe it.
const CatalogViewerProtoFile = "catalog/v1/viewer.proto"

// CatalogViewerServer is the server API for the CatalogViewer service.
type CatalogViewerServer interface {
	GetView(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ApplyFilters(context.Context, *structpb.Struct) (*structpb.Struct, error)
	Refresh(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	GetProduct(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
}

// GRPCHandler implements CatalogViewerServer on top of the viewer.
type GRPCHandler struct {
	viewer   CatalogViewer
	renderer *render.Renderer
	validate *validator.Validate
}

// NewGRPCHandler creates a new GRPCHandler.
func NewGRPCHandler(v CatalogViewer, r *render.Renderer) *GRPCHandler {
	return &GRPCHandler{
		viewer:   v,
		renderer: r,
		validate: validator.New(),
	}
}

// Register attaches the handler to s.
func (h *GRPCHandler) Register(s grpc.ServiceRegistrar) {
	if err := registerCatalogViewerDescriptor(); err != nil {
		log.Printf("WARN: %s descriptor not registered, reflection will only list the service: %v", CatalogViewerServiceName, err)
	}
	s.RegisterService(&CatalogViewerServiceDesc, h)
}

// --- Helper: Error Mapping ---
func mapViewerErrorToGrpcStatus(err error, op string) error {
	if err == nil {
		return nil
	}
	log.Printf("ERROR: gRPC %s failed: %v", op, err)

	switch {
	case errors.Is(err, viewer.ErrInvalidCommand), errors.Is(err, viewer.ErrUnknownCommand):
		return status.Errorf(codes.InvalidArgument, "%v", err)
	case errors.Is(err, viewer.ErrProductNotFound):
		return status.Errorf(codes.NotFound, "%v", err)
	case errors.Is(err, loader.ErrNoData):
		return status.Errorf(codes.Unavailable, "%v", err)
	default:
		return status.Errorf(codes.Internal, "Failed to process %s: %v", op, err)
	}
}

// toStruct converts a JSON-tagged view model into a protobuf Struct.
func toStruct(v any) (*structpb.Struct, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode view: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil, status.Errorf(codes.Internal, "decode view: %v", err)
	}
	s, err := structpb.NewStruct(m)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "build struct: %v", err)
	}
	return s, nil
}

func (h *GRPCHandler) GetView(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return toStruct(h.renderer.Catalog(h.viewer.State()))
}

// ApplyFilters takes the same partial update as PUT /api/v1/filters.
func (h *GRPCHandler) ApplyFilters(ctx context.Context, req *structpb.Struct) (*structpb.Struct, error) {
	raw, err := json.Marshal(req.AsMap())
	if err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "Invalid filters: %v", err)
	}
	var input FiltersInput
	if err := json.Unmarshal(raw, &input); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "Invalid filters: %v", err)
	}
	if err := h.validate.Struct(input); err != nil {
		return nil, status.Errorf(codes.InvalidArgument, "Validation failed: %v", err)
	}

	st, err := h.viewer.Dispatch(ctx, input.patch())
	if err != nil {
		return nil, mapViewerErrorToGrpcStatus(err, "ApplyFilters")
	}
	return toStruct(h.renderer.Catalog(st))
}

func (h *GRPCHandler) Refresh(ctx context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st, err := h.viewer.Dispatch(ctx, viewer.Refresh{})
	if err != nil {
		return nil, mapViewerErrorToGrpcStatus(err, "Refresh")
	}
	return toStruct(h.renderer.Catalog(st))
}

func (h *GRPCHandler) GetProduct(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	if req.GetValue() == "" {
		return nil, status.Error(codes.InvalidArgument, "product key is required")
	}
	p, err := h.viewer.Product(req.GetValue())
	if err != nil {
		return nil, mapViewerErrorToGrpcStatus(err, "GetProduct")
	}
	return toStruct(h.renderer.Product(h.viewer.State(), p))
}

// --- Service description ---

func unaryHandler[Req any](method string, call func(CatalogViewerServer, context.Context, *Req) (*structpb.Struct, error)) grpc.MethodDesc {
	fullMethod := fmt.Sprintf("/%s/%s", CatalogViewerServiceName, method)
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(CatalogViewerServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				return call(srv.(CatalogViewerServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// CatalogViewerServiceDesc is the grpc.ServiceDesc for the CatalogViewer service.
var CatalogViewerServiceDesc = grpc.ServiceDesc{
	ServiceName: CatalogViewerServiceName,
	HandlerType: (*CatalogViewerServer)(nil),
	Methods: []grpc.MethodDesc{
		unaryHandler("GetView", CatalogViewerServer.GetView),
		unaryHandler("ApplyFilters", CatalogViewerServer.ApplyFilters),
		unaryHandler("Refresh", CatalogViewerServer.Refresh),
		unaryHandler("GetProduct", CatalogViewerServer.GetProduct),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: CatalogViewerProtoFile,
}

// registerCatalogViewerDescriptor adds the service to the global protobuf registry.
// There is no generated code, so the descriptor is assembled from the well-known
// message types the methods use.
var registerCatalogViewerDescriptor = sync.OnceValue(func() error {
	if _, err := protoregistry.GlobalFiles.FindFileByPath(CatalogViewerProtoFile); err == nil {
		return nil
	}
	empty, str, value := &emptypb.Empty{}, &structpb.Struct{}, &wrapperspb.StringValue{}
	fdp := &descriptorpb.FileDescriptorProto{
		Name:       proto.String(CatalogViewerProtoFile),
		Package:    proto.String("catalog.v1"),
		Syntax:     proto.String("proto3"),
		Dependency: []string{protoFile(empty), protoFile(str), protoFile(value)},
		Service: []*descriptorpb.ServiceDescriptorProto{{
			Name: proto.String("CatalogViewer"),
			Method: []*descriptorpb.MethodDescriptorProto{
				methodProto("GetView", empty, str),
				methodProto("ApplyFilters", str, str),
				methodProto("Refresh", empty, str),
				methodProto("GetProduct", value, str),
			},
		}},
	}
	fd, err := protodesc.NewFile(fdp, protoregistry.GlobalFiles)
	if err != nil {
		return fmt.Errorf("build descriptor: %w", err)
	}
	return protoregistry.GlobalFiles.RegisterFile(fd)
})

func protoFile(m proto.Message) string {
	return m.ProtoReflect().Descriptor().ParentFile().Path()
}

func methodProto(name string, in, out proto.Message) *descriptorpb.MethodDescriptorProto {
	return &descriptorpb.MethodDescriptorProto{
		Name:       proto.String(name),
		InputType:  proto.String("." + string(in.ProtoReflect().Descriptor().FullName())),
		OutputType: proto.String("." + string(out.ProtoReflect().Descriptor().FullName())),
	}
}

// CatalogViewerClient calls the CatalogViewer service.
type CatalogViewerClient struct {
	cc grpc.ClientConnInterface
}

// NewCatalogViewerClient wraps an established connection.
func NewCatalogViewerClient(cc grpc.ClientConnInterface) *CatalogViewerClient {
	return &CatalogViewerClient{cc: cc}
}

func (c *CatalogViewerClient) invoke(ctx context.Context, method string, in any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+CatalogViewerServiceName+"/"+method, in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *CatalogViewerClient) GetView(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetView", &emptypb.Empty{}, opts...)
}

func (c *CatalogViewerClient) ApplyFilters(ctx context.Context, filters map[string]any, opts ...grpc.CallOption) (*structpb.Struct, error) {
	in, err := structpb.NewStruct(filters)
	if err != nil {
		return nil, err
	}
	return c.invoke(ctx, "ApplyFilters", in, opts...)
}

func (c *CatalogViewerClient) Refresh(ctx context.Context, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "Refresh", &emptypb.Empty{}, opts...)
}

func (c *CatalogViewerClient) GetProduct(ctx context.Context, key string, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return c.invoke(ctx, "GetProduct", wrapperspb.String(key), opts...)
}
