package api

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/matheus3301/tabroom/internal/bus"
	"github.com/matheus3301/tabroom/internal/chat"
	"github.com/matheus3301/tabroom/internal/room"
	"github.com/matheus3301/tabroom/internal/status"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Tab is the part of a room the control plane drives.
type Tab interface {
	CurrentUser() chat.User
	ListUsers() []chat.User
	UserCount() int
	SelectedPeer() string
	Conversation() []chat.Message
	Messages() []chat.Message
	MessageCount() int
	State() status.State
	StateSince() time.Time
	SendMessage(ctx context.Context, to, text string) (*chat.Message, error)
	SetSelectedPeer(ctx context.Context, userID string) error
	ClearHistory(ctx context.Context) error
}

// Watched bus namespaces for WatchEvents.
var watchedNamespaces = []string{"room.", "tab."}

// TabService implements the TabService gRPC service for one tab.
type TabService struct {
	UnimplementedTabServiceServer

	profile   string
	session   string
	startedAt time.Time
	tab       Tab
	bus       *bus.Bus
	closeTab  func(context.Context) error
	logger    *zap.Logger

	done     chan struct{}
	doneOnce sync.Once
}

// NewTabService creates the service. closeTab ends the session when a client
// asks for it; it must not wait for the gRPC server to stop.
func NewTabService(profile, session string, tab Tab, b *bus.Bus, closeTab func(context.Context) error, logger *zap.Logger) *TabService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TabService{
		profile:   profile,
		session:   session,
		startedAt: time.Now(),
		tab:       tab,
		bus:       b,
		closeTab:  closeTab,
		logger:    logger,
		done:      make(chan struct{}),
	}
}

// Shutdown ends every open WatchEvents stream so the server can stop gracefully.
func (s *TabService) Shutdown() {
	s.doneOnce.Do(func() { close(s.done) })
}

func (s *TabService) GetStatus(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	return &structpb.Struct{Fields: map[string]*structpb.Value{
		"profile":        structpb.NewStringValue(s.profile),
		"session":        structpb.NewStringValue(s.session),
		"state":          structpb.NewStringValue(string(s.tab.State())),
		"user":           UserValue(s.tab.CurrentUser()),
		"users":          structpb.NewNumberValue(float64(s.tab.UserCount())),
		"messages":       structpb.NewNumberValue(float64(s.tab.MessageCount())),
		"selected":       structpb.NewStringValue(s.tab.SelectedPeer()),
		"uptime_ms":      structpb.NewNumberValue(float64(time.Since(s.startedAt).Milliseconds())),
		"state_since_ms": structpb.NewNumberValue(float64(s.tab.StateSince().UnixMilli())),
	}}, nil
}

func (s *TabService) ListUsers(_ context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return UsersList(s.tab.ListUsers()), nil
}

func (s *TabService) SelectPeer(ctx context.Context, in *wrapperspb.StringValue) (*emptypb.Empty, error) {
	peer := strings.TrimSpace(in.GetValue())
	if peer != "" && peer == s.tab.CurrentUser().ID {
		return nil, grpcstatus.Error(codes.InvalidArgument, "cannot select yourself")
	}
	if err := s.tab.SetSelectedPeer(ctx, peer); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *TabService) SendMessage(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	fields := in.GetFields()
	to := strings.TrimSpace(fields["to"].GetStringValue())
	text := fields["text"].GetStringValue()
	if to == "" {
		to = s.tab.SelectedPeer()
	}
	if to == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "no recipient: select a peer or pass one")
	}

	m, err := s.tab.SendMessage(ctx, to, text)
	if err != nil {
		return nil, toStatus(err)
	}
	resp := &structpb.Struct{Fields: map[string]*structpb.Value{
		"accepted": structpb.NewBoolValue(m != nil),
	}}
	if m != nil {
		resp.Fields["message"] = MessageValue(*m)
	}
	return resp, nil
}

func (s *TabService) GetConversation(_ context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return MessagesList(s.tab.Conversation()), nil
}

func (s *TabService) GetHistory(_ context.Context, _ *emptypb.Empty) (*structpb.ListValue, error) {
	return MessagesList(s.tab.Messages()), nil
}

func (s *TabService) WatchEvents(_ *emptypb.Empty, stream grpc.ServerStreamingServer[structpb.Struct]) error {
	merged := make(chan bus.Event, 256)
	var wg sync.WaitGroup
	stop := make(chan struct{})
	defer func() {
		close(stop)
		wg.Wait()
	}()

	for _, ns := range watchedNamespaces {
		ch, unsub := s.bus.Subscribe(ns, 256)
		wg.Add(1)
		go func() {
			defer wg.Done()
			defer unsub()
			for {
				select {
				case evt := <-ch:
					select {
					case merged <- evt:
					case <-stop:
						return
					}
				case <-stop:
					return
				}
			}
		}()
	}

	for {
		select {
		case evt := <-merged:
			if err := stream.Send(&structpb.Struct{Fields: map[string]*structpb.Value{
				"kind":    structpb.NewStringValue(evt.Kind),
				"ts_ms":   structpb.NewNumberValue(float64(evt.Timestamp.UnixMilli())),
				"payload": payloadValue(evt.Payload),
			}}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		case <-s.done:
			return nil
		}
	}
}

// ClearHistory empties the profile's message log.
func (s *TabService) ClearHistory(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.tab.ClearHistory(ctx); err != nil {
		return nil, toStatus(err)
	}
	s.logger.Info("message history cleared")
	return &emptypb.Empty{}, nil
}

func (s *TabService) CloseTab(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if s.closeTab == nil {
		return nil, grpcstatus.Error(codes.Unimplemented, "closing is not supported by this daemon")
	}
	s.logger.Info("tab close requested")
	if err := s.closeTab(ctx); err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "close tab: %v", err)
	}
	return &emptypb.Empty{}, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, room.ErrClosed), errors.Is(err, room.ErrNotStarted):
		return grpcstatus.Error(codes.Unavailable, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return grpcstatus.FromContextError(err).Err()
	default:
		return grpcstatus.Error(codes.Internal, err.Error())
	}
}
