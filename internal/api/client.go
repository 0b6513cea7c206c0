package api

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// MeshClient is the typed client API of the meshchat.v1.Mesh service.
type MeshClient struct {
	cc grpc.ClientConnInterface
}

// NewMeshClient creates a client on cc.
func NewMeshClient(cc grpc.ClientConnInterface) *MeshClient {
	return &MeshClient{cc: cc}
}

func (c *MeshClient) GetStatus(ctx context.Context, opts ...grpc.CallOption) (*StatusView, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("GetStatus"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	view := new(StatusView)
	if err := fromStruct(out, view); err != nil {
		return nil, err
	}
	return view, nil
}

func (c *MeshClient) Send(ctx context.Context, text string, opts ...grpc.CallOption) (*EntryView, error) {
	out := new(structpb.Struct)
	if err := c.cc.Invoke(ctx, fullMethod("Send"), wrapperspb.String(text), out, opts...); err != nil {
		return nil, err
	}
	view := new(EntryView)
	if err := fromStruct(out, view); err != nil {
		return nil, err
	}
	return view, nil
}

func (c *MeshClient) Connect(ctx context.Context, p ConnectParams, opts ...grpc.CallOption) error {
	in, err := toStruct(p)
	if err != nil {
		return err
	}
	return c.cc.Invoke(ctx, fullMethod("Connect"), in, new(emptypb.Empty), opts...)
}

func (c *MeshClient) Disconnect(ctx context.Context, peer string, opts ...grpc.CallOption) error {
	return c.cc.Invoke(ctx, fullMethod("Disconnect"), wrapperspb.String(peer), new(emptypb.Empty), opts...)
}

func (c *MeshClient) AddMember(ctx context.Context, id string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, fullMethod("AddMember"), wrapperspb.String(id), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *MeshClient) SetGroup(ctx context.Context, name string, opts ...grpc.CallOption) (string, error) {
	out := new(wrapperspb.StringValue)
	if err := c.cc.Invoke(ctx, fullMethod("SetGroup"), wrapperspb.String(name), out, opts...); err != nil {
		return "", err
	}
	return out.GetValue(), nil
}

func (c *MeshClient) ListMembers(ctx context.Context, opts ...grpc.CallOption) ([]MemberView, error) {
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, fullMethod("ListMembers"), &emptypb.Empty{}, out, opts...); err != nil {
		return nil, err
	}
	var members []MemberView
	if err := fromList(out, &members); err != nil {
		return nil, err
	}
	return members, nil
}

func (c *MeshClient) ListHistory(ctx context.Context, p HistoryParams, opts ...grpc.CallOption) ([]EntryView, error) {
	in, err := toStruct(p)
	if err != nil {
		return nil, err
	}
	out := new(structpb.ListValue)
	if err := c.cc.Invoke(ctx, fullMethod("ListHistory"), in, out, opts...); err != nil {
		return nil, err
	}
	var entries []EntryView
	if err := fromList(out, &entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// WatchStream yields decoded watch events.
type WatchStream struct {
	stream grpc.ServerStreamingClient[structpb.Struct]
}

// Recv blocks for the next event.
func (w *WatchStream) Recv() (*WatchEvent, error) {
	msg, err := w.stream.Recv()
	if err != nil {
		return nil, err
	}
	evt := new(WatchEvent)
	if err := fromStruct(msg, evt); err != nil {
		return nil, err
	}
	return evt, nil
}

func (c *MeshClient) Watch(ctx context.Context, p WatchParams, opts ...grpc.CallOption) (*WatchStream, error) {
	in, err := toStruct(p)
	if err != nil {
		return nil, err
	}
	stream, err := c.cc.NewStream(ctx, &MeshServiceDesc.Streams[0], fullMethod("Watch"), opts...)
	if err != nil {
		return nil, err
	}
	x := &grpc.GenericClientStream[structpb.Struct, structpb.Struct]{ClientStream: stream}
	if err := x.SendMsg(in); err != nil {
		return nil, err
	}
	if err := x.CloseSend(); err != nil {
		return nil, err
	}
	if _, err := x.Header(); err != nil {
		return nil, err
	}
	return &WatchStream{stream: x}, nil
}
