package server

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ReviewServiceName is the fully qualified gRPC service name.
const ReviewServiceName = "syllabus.v1.ReviewService"

// ReviewServiceServer is the review API over gRPC. Messages are protobuf well-known
// types: tables and rows travel as Struct with the same keys as the JSON API.
type ReviewServiceServer interface {
	ListSessions(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// GetTable takes the session id.
	GetTable(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// UpdateCell takes {session_id, row, column, value} and returns the row.
	UpdateCell(context.Context, *structpb.Struct) (*structpb.Struct, error)
	// ExportTable takes {session_id, include_warnings, include_origins}.
	ExportTable(context.Context, *structpb.Struct) (*wrapperspb.BytesValue, error)
}

// ReviewServiceDesc describes ReviewService for grpc.Server.RegisterService.
var ReviewServiceDesc = grpc.ServiceDesc{
	ServiceName: ReviewServiceName,
	HandlerType: (*ReviewServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "ListSessions",
			Handler: unary("ListSessions", func() *emptypb.Empty { return new(emptypb.Empty) },
				func(s ReviewServiceServer, ctx context.Context, in *emptypb.Empty) (proto.Message, error) {
					return s.ListSessions(ctx, in)
				}),
		},
		{
			MethodName: "GetTable",
			Handler: unary("GetTable", func() *wrapperspb.StringValue { return new(wrapperspb.StringValue) },
				func(s ReviewServiceServer, ctx context.Context, in *wrapperspb.StringValue) (proto.Message, error) {
					return s.GetTable(ctx, in)
				}),
		},
		{
			MethodName: "UpdateCell",
			Handler: unary("UpdateCell", func() *structpb.Struct { return new(structpb.Struct) },
				func(s ReviewServiceServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
					return s.UpdateCell(ctx, in)
				}),
		},
		{
			MethodName: "ExportTable",
			Handler: unary("ExportTable", func() *structpb.Struct { return new(structpb.Struct) },
				func(s ReviewServiceServer, ctx context.Context, in *structpb.Struct) (proto.Message, error) {
					return s.ExportTable(ctx, in)
				}),
		},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "syllabus/v1/review.proto",
}

// RegisterReviewServiceServer registers srv on s.
func RegisterReviewServiceServer(s grpc.ServiceRegistrar, srv ReviewServiceServer) {
	s.RegisterService(&ReviewServiceDesc, srv)
}

func unary[Req proto.Message](
	method string,
	newReq func() Req,
	call func(ReviewServiceServer, context.Context, Req) (proto.Message, error),
) grpc.MethodHandler {
	fullMethod := "/" + ReviewServiceName + "/" + method
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := newReq()
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(ReviewServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(ReviewServiceServer), ctx, req.(Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// ReviewServiceClient calls ReviewService.
type ReviewServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewReviewServiceClient(cc grpc.ClientConnInterface) *ReviewServiceClient {
	return &ReviewServiceClient{cc: cc}
}

func (c *ReviewServiceClient) ListSessions(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, "/"+ReviewServiceName+"/ListSessions", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReviewServiceClient) GetTable(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ReviewServiceName+"/GetTable", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReviewServiceClient) UpdateCell(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, "/"+ReviewServiceName+"/UpdateCell", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *ReviewServiceClient) ExportTable(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*wrapperspb.BytesValue, error) {
	out := new(wrapperspb.BytesValue)
	if err := c.cc.Invoke(ctx, "/"+ReviewServiceName+"/ExportTable", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}
