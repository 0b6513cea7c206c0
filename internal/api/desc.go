// Package api exposes a node over gRPC.
//
// The service uses protobuf well-known types as its messages: requests and
// replies that carry structured data are google.protobuf.Struct values whose
// shape is given by the Go types in this package.
package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "meshchat.v1.Mesh"

// MeshServer is the server API of the meshchat.v1.Mesh service.
type MeshServer interface {
	// GetStatus returns a StatusView.
	GetStatus(context.Context, *emptypb.Empty) (*structpb.Struct, error)
	// Send authors a message and returns it as an EntryView.
	Send(context.Context, *wrapperspb.StringValue) (*structpb.Struct, error)
	// Connect takes a ConnectParams.
	Connect(context.Context, *structpb.Struct) (*emptypb.Empty, error)
	Disconnect(context.Context, *wrapperspb.StringValue) (*emptypb.Empty, error)
	// AddMember returns the normalized member id.
	AddMember(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	SetGroup(context.Context, *wrapperspb.StringValue) (*wrapperspb.StringValue, error)
	// ListMembers returns a list of MemberView.
	ListMembers(context.Context, *emptypb.Empty) (*structpb.ListValue, error)
	// ListHistory takes a HistoryParams and returns a list of EntryView.
	ListHistory(context.Context, *structpb.Struct) (*structpb.ListValue, error)
	// Watch takes a WatchParams and streams WatchEvent values.
	Watch(*structpb.Struct, grpc.ServerStreamingServer[structpb.Struct]) error
}

// RegisterMeshServer registers srv on s.
func RegisterMeshServer(s grpc.ServiceRegistrar, srv MeshServer) {
	s.RegisterService(&MeshServiceDesc, srv)
}

func fullMethod(name string) string {
	return "/" + ServiceName + "/" + name
}

// unary builds the method descriptor of a unary call.
func unary[Req, Res any](name string, call func(MeshServer, context.Context, *Req) (*Res, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: name,
		Handler: func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
			in := new(Req)
			if err := dec(in); err != nil {
				return nil, err
			}
			if interceptor == nil {
				return call(srv.(MeshServer), ctx, in)
			}
			info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod(name)}
			handler := func(ctx context.Context, req any) (any, error) {
				return call(srv.(MeshServer), ctx, req.(*Req))
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

func watchHandler(srv any, stream grpc.ServerStream) error {
	in := new(structpb.Struct)
	if err := stream.RecvMsg(in); err != nil {
		return err
	}
	return srv.(MeshServer).Watch(in, &grpc.GenericServerStream[structpb.Struct, structpb.Struct]{ServerStream: stream})
}

// MeshServiceDesc is the grpc.ServiceDesc for the meshchat.v1.Mesh service.
var MeshServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*MeshServer)(nil),
	Methods: []grpc.MethodDesc{
		unary("GetStatus", MeshServer.GetStatus),
		unary("Send", MeshServer.Send),
		unary("Connect", MeshServer.Connect),
		unary("Disconnect", MeshServer.Disconnect),
		unary("AddMember", MeshServer.AddMember),
		unary("SetGroup", MeshServer.SetGroup),
		unary("ListMembers", MeshServer.ListMembers),
		unary("ListHistory", MeshServer.ListHistory),
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Watch",
			Handler:       watchHandler,
			ServerStreams: true,
		},
	},
	Metadata: "meshchat/v1/mesh.proto",
}
