package api

import (
	"context"
	"errors"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/matheus3301/meshchat/internal/bus"
	"github.com/matheus3301/meshchat/internal/mesh"
	"github.com/matheus3301/meshchat/internal/status"
	"github.com/matheus3301/meshchat/internal/store"
	"github.com/matheus3301/meshchat/internal/wire"
	"github.com/samber/lo"
	"github.com/shirou/gopsutil/process"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Node is the part of mesh.Node the service drives.
type Node interface {
	Status() mesh.Status
	Send(ctx context.Context, text string) (wire.Message, error)
	Connect(ctx context.Context, req mesh.ConnectRequest) error
	Disconnect(ctx context.Context, peer string) error
	AddMember(ctx context.Context, id string) (string, error)
	SetGroup(ctx context.Context, name string) (string, error)
}

// DefaultWatchNamespaces are streamed when a watcher names none.
var DefaultWatchNamespaces = []string{"chat.", "peer.", "roster.", "node."}

// Service implements MeshServer on top of a node.
type Service struct {
	profile   string
	startedAt time.Time
	node      Node
	db        *store.DB
	bus       *bus.Bus
	logger    *zap.Logger
	self      *process.Process
}

var _ MeshServer = (*Service)(nil)

// NewService creates the service. db may be nil, in which case history is
// unavailable.
func NewService(profile string, node Node, db *store.DB, b *bus.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	self, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		logger.Warn("process stats unavailable", zap.Error(err))
	}
	return &Service{
		profile:   profile,
		startedAt: time.Now(),
		node:      node,
		db:        db,
		bus:       b,
		logger:    logger,
		self:      self,
	}
}

func (s *Service) GetStatus(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	st := s.node.Status()
	view := StatusView{
		Profile:  s.profile,
		PeerID:   st.Self,
		State:    string(st.State),
		Group:    st.Group.Name,
		Members:  membersToView(st.Group.Members),
		Peers:    st.Peers,
		UptimeMs: time.Since(s.startedAt).Milliseconds(),
	}
	if s.db != nil {
		if n, err := s.db.EntryCount(); err == nil {
			view.Messages = n
		}
	}
	view.RSSBytes, view.CPUPercent = s.selfStats()
	return encode(toStruct(view))
}

// selfStats reports the daemon's resident memory and CPU share. Zero values
// mean the platform gave no answer.
func (s *Service) selfStats() (uint64, float64) {
	if s.self == nil {
		return 0, 0
	}
	var rss uint64
	if mem, err := s.self.MemoryInfo(); err == nil {
		rss = mem.RSS
	}
	cpu, err := s.self.CPUPercent()
	if err != nil {
		cpu = 0
	}
	return rss, cpu
}

func (s *Service) Send(ctx context.Context, req *wrapperspb.StringValue) (*structpb.Struct, error) {
	msg, err := s.node.Send(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return encode(toStruct(EntryView{
		Origin:    string(mesh.OriginOwn),
		Sender:    msg.Sender,
		Text:      msg.Text,
		Timestamp: msg.Timestamp,
	}))
}

func (s *Service) Connect(ctx context.Context, req *structpb.Struct) (*emptypb.Empty, error) {
	var p ConnectParams
	if err := fromStruct(req, &p); err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "connect: %v", err)
	}
	if err := s.node.Connect(ctx, mesh.ConnectRequest{Target: p.Target, Verify: p.Verify}); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Service) Disconnect(ctx context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	if strings.TrimSpace(req.GetValue()) == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "peer id is required")
	}
	if err := s.node.Disconnect(ctx, req.GetValue()); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Service) AddMember(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	id, err := s.node.AddMember(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(id), nil
}

func (s *Service) SetGroup(ctx context.Context, req *wrapperspb.StringValue) (*wrapperspb.StringValue, error) {
	name, err := s.node.SetGroup(ctx, req.GetValue())
	if err != nil {
		return nil, toStatus(err)
	}
	return wrapperspb.String(name), nil
}

func (s *Service) ListMembers(_ context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return encode(toList(membersToView(s.node.Status().Group.Members)))
}

func (s *Service) ListHistory(_ context.Context, req *structpb.Struct) (*structpb.ListValue, error) {
	if s.db == nil {
		return nil, grpcstatus.Error(codes.Unavailable, "message log not available")
	}
	var p HistoryParams
	if err := fromStruct(req, &p); err != nil {
		return nil, grpcstatus.Errorf(codes.InvalidArgument, "history: %v", err)
	}
	if p.Limit < 0 {
		return nil, grpcstatus.Error(codes.InvalidArgument, "limit must not be negative")
	}

	var (
		entries []store.Entry
		err     error
	)
	if p.Query != "" {
		entries, err = s.db.SearchEntries(p.Query, p.Limit)
	} else {
		entries, err = s.db.ListEntries(p.Limit)
	}
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "list history: %v", err)
	}
	return encode(toList(lo.Map(entries, func(e store.Entry, _ int) EntryView { return entryToView(e) })))
}

func (s *Service) Watch(req *structpb.Struct, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	if s.bus == nil {
		return grpcstatus.Error(codes.Unavailable, "event bus not available")
	}
	var p WatchParams
	if err := fromStruct(req, &p); err != nil {
		return grpcstatus.Errorf(codes.InvalidArgument, "watch: %v", err)
	}
	namespaces := p.Namespaces
	if len(namespaces) == 0 {
		namespaces = DefaultWatchNamespaces
	}

	events, unsub := s.bus.SubscribeMany(namespaces, 256)
	defer unsub()
	// Headers tell the client the subscription is in place.
	if err := stream.SendHeader(metadata.MD{}); err != nil {
		return err
	}
	s.logger.Debug("watcher attached", zap.Strings("namespaces", namespaces))

	ctx := stream.Context()
	for {
		select {
		case <-ctx.Done():
			s.logger.Debug("watcher detached")
			return nil
		case evt := <-events:
			out, err := toStruct(eventToView(evt))
			if err != nil {
				s.logger.Warn("encode watch event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if err := stream.Send(out); err != nil {
				return err
			}
		}
	}
}

func encode[T any](v *T, err error) (*T, error) {
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode reply: %v", err)
	}
	return v, nil
}

// toStatus maps node errors to gRPC status codes.
func toStatus(err error) error {
	switch {
	case errors.Is(err, mesh.ErrPrecondition):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, mesh.ErrStopped):
		return grpcstatus.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.FromContextError(err).Err()
	default:
		return grpcstatus.Error(codes.Internal, err.Error())
	}
}

func membersToView(members []mesh.Member) []MemberView {
	return lo.Map(members, func(m mesh.Member, _ int) MemberView {
		return MemberView{ID: m.ID, Connected: m.Connected}
	})
}

func entryToView(e store.Entry) EntryView {
	return EntryView{
		ID:        e.ID,
		Origin:    e.Origin,
		Sender:    e.Sender,
		Text:      e.Body,
		Timestamp: e.Timestamp,
	}
}

func eventToView(evt bus.Event) WatchEvent {
	out := WatchEvent{
		ID:     uuid.NewString(),
		Kind:   evt.Kind,
		TimeMs: evt.Timestamp.UnixMilli(),
	}
	switch p := evt.Payload.(type) {
	case store.Entry:
		view := entryToView(p)
		out.Entry = &view
	case mesh.PeerChange:
		out.Peer = p.Peer
		if p.Err != nil {
			out.Error = p.Err.Error()
		}
	case status.StatusChange:
		out.State = string(p.To)
	case mesh.Group:
		out.Group = p.Name
	}
	return out
}
