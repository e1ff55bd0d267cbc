package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// The tab control service speaks protobuf well-known types only, so its
// descriptor is declared here instead of generated from a .proto file.

const (
	TabService_GetStatus_FullMethodName       = "/tabroom.v1.TabService/GetStatus"
	TabService_ListUsers_FullMethodName       = "/tabroom.v1.TabService/ListUsers"
	TabService_SelectPeer_FullMethodName      = "/tabroom.v1.TabService/SelectPeer"
	TabService_SendMessage_FullMethodName     = "/tabroom.v1.TabService/SendMessage"
	TabService_GetConversation_FullMethodName = "/tabroom.v1.TabService/GetConversation"
	TabService_GetHistory_FullMethodName      = "/tabroom.v1.TabService/GetHistory"
	TabService_WatchEvents_FullMethodName     = "/tabroom.v1.TabService/WatchEvents"
	TabService_CloseTab_FullMethodName        = "/tabroom.v1.TabService/CloseTab"
	TabService_ClearHistory_FullMethodName    = "/tabroom.v1.TabService/ClearHistory"
)

// TabServiceClient is the client API for the tab control service.
type TabServiceClient interface {
	GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error)
	ListUsers(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
	SelectPeer(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error)
	SendMessage(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error)
	GetConversation(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
	GetHistory(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error)
	WatchEvents(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error)
	CloseTab(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
	ClearHistory(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error)
}

type tabServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewTabServiceClient(cc grpc.ClientConnInterface) TabServiceClient {
	return &tabServiceClient{cc}
}

func invoke[Res any](ctx context.Context, cc grpc.ClientConnInterface, method string, in any, opts []grpc.CallOption) (*Res, error) {
	out := new(Res)
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	if err := cc.Invoke(ctx, method, in, out, cOpts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *tabServiceClient) GetStatus(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, TabService_GetStatus_FullMethodName, in, opts)
}

func (c *tabServiceClient) ListUsers(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	return invoke[structpb.ListValue](ctx, c.cc, TabService_ListUsers_FullMethodName, in, opts)
}

func (c *tabServiceClient) SelectPeer(ctx context.Context, in *wrapperspb.StringValue, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, TabService_SelectPeer_FullMethodName, in, opts)
}

func (c *tabServiceClient) SendMessage(ctx context.Context, in *structpb.Struct, opts ...grpc.CallOption) (*structpb.Struct, error) {
	return invoke[structpb.Struct](ctx, c.cc, TabService_SendMessage_FullMethodName, in, opts)
}

func (c *tabServiceClient) GetConversation(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	return invoke[structpb.ListValue](ctx, c.cc, TabService_GetConversation_FullMethodName, in, opts)
}

func (c *tabServiceClient) GetHistory(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*structpb.ListValue, error) {
	return invoke[structpb.ListValue](ctx, c.cc, TabService_GetHistory_FullMethodName, in, opts)
}

func (c *tabServiceClient) CloseTab(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, TabService_CloseTab_FullMethodName, in, opts)
}

func (c *tabServiceClient) ClearHistory(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (*emptypb.Empty, error) {
	return invoke[emptypb.Empty](ctx, c.cc, TabService_ClearHistory_FullMethodName, in, opts)
}

func (c *tabServiceClient) WatchEvents(ctx context.Context, in *emptypb.Empty, opts ...grpc.CallOption) (grpc.ServerStreamingClient[structpb.Struct], error) {
	cOpts := append([]grpc.CallOption{grpc.StaticMethod()}, opts...)
	stream, err := c.cc.NewStream(ctx, &TabService_ServiceDesc.Streams[0], TabService_WatchEvents_FullMethodName, cOpts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[emptypb.Empty, structpb.Struct]{ClientStream: stream}
	if err := x.ClientStream.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.ClientStream.CloseSend(); err != nil {
		return nil, err
	}
	return x, nil
}

// TabServiceServer is the server API for the tab control service.
type TabServiceServer interface {
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	ListUsers(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	SelectPeer(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	SendMessage(context.Context, *structpb.Struct) (*structpb.Struct, error)
	GetConversation(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	GetHistory(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	WatchEvents(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error
	CloseTab(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
	ClearHistory(context.Context, *emptypb.Empty) (*emptypb.Empty, error)
}

// UnimplementedTabServiceServer can be embedded to have forward compatible implementations.
type UnimplementedTabServiceServer struct{}

func (UnimplementedTabServiceServer) GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method GetStatus not implemented")
}
func (UnimplementedTabServiceServer) ListUsers(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method ListUsers not implemented")
}
func (UnimplementedTabServiceServer) SelectPeer(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method SelectPeer not implemented")
}
func (UnimplementedTabServiceServer) SendMessage(context.Context, *structpb.Struct) (*structpb.Struct, error) {
	return nil, status.Error(codes.Unimplemented, "method SendMessage not implemented")
}
func (UnimplementedTabServiceServer) GetConversation(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetConversation not implemented")
}
func (UnimplementedTabServiceServer) GetHistory(context.Context, *emptypb.Empty) (*structpb.ListValue, error) {
	return nil, status.Error(codes.Unimplemented, "method GetHistory not implemented")
}
func (UnimplementedTabServiceServer) WatchEvents(*emptypb.Empty, grpc.ServerStreamingServer[structpb.Struct]) error {
	return status.Error(codes.Unimplemented, "method WatchEvents not implemented")
}
func (UnimplementedTabServiceServer) CloseTab(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method CloseTab not implemented")
}
func (UnimplementedTabServiceServer) ClearHistory(context.Context, *emptypb.Empty) (*emptypb.Empty, error) {
	return nil, status.Error(codes.Unimplemented, "method ClearHistory not implemented")
}

// RegisterTabServiceServer registers srv on s.
func RegisterTabServiceServer(s grpc.ServiceRegistrar, srv TabServiceServer) {
	s.RegisterService(&TabService_ServiceDesc, srv)
}

func unaryHandler[Req any](method string, call func(TabServiceServer, context.Context, *Req) (any, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(TabServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: method}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(TabServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

func watchEventsHandler(srv any, stream grpc.ServerStream) error {
	m := new(emptypb.Empty)
	if err := stream.RecvMsg(m); err != nil {
		return err
	}
	return srv.(TabServiceServer).WatchEvents(m, &grpc.GenericServerStream[emptypb.Empty, structpb.Struct]{ServerStream: stream})
}

// TabService_ServiceDesc is the grpc.ServiceDesc for the tab control service.
var TabService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: "tabroom.v1.TabService",
	HandlerType: (*TabServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{
			MethodName: "GetStatus",
			Handler: unaryHandler(TabService_GetStatus_FullMethodName, func(s TabServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.GetStatus(ctx, in)
			}),
		},
		{
			MethodName: "ListUsers",
			Handler: unaryHandler(TabService_ListUsers_FullMethodName, func(s TabServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.ListUsers(ctx, in)
			}),
		},
		{
			MethodName: "SelectPeer",
			Handler: unaryHandler(TabService_SelectPeer_FullMethodName, func(s TabServiceServer, ctx context.Context, in *wrapperspb.StringValue) (any, error) {
				return s.SelectPeer(ctx, in)
			}),
		},
		{
			MethodName: "SendMessage",
			Handler: unaryHandler(TabService_SendMessage_FullMethodName, func(s TabServiceServer, ctx context.Context, in *structpb.Struct) (any, error) {
				return s.SendMessage(ctx, in)
			}),
		},
		{
			MethodName: "GetConversation",
			Handler: unaryHandler(TabService_GetConversation_FullMethodName, func(s TabServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.GetConversation(ctx, in)
			}),
		},
		{
			MethodName: "GetHistory",
			Handler: unaryHandler(TabService_GetHistory_FullMethodName, func(s TabServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.GetHistory(ctx, in)
			}),
		},
		{
			MethodName: "CloseTab",
			Handler: unaryHandler(TabService_CloseTab_FullMethodName, func(s TabServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.CloseTab(ctx, in)
			}),
		},
		{
			MethodName: "ClearHistory",
			Handler: unaryHandler(TabService_ClearHistory_FullMethodName, func(s TabServiceServer, ctx context.Context, in *emptypb.Empty) (any, error) {
				return s.ClearHistory(ctx, in)
			}),
		},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "WatchEvents",
			Handler:       watchEventsHandler,
			ServerStreams: true,
		},
	},
}
