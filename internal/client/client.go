package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/matheus3301/tabroom/internal/api"
	"github.com/matheus3301/tabroom/internal/chat"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client talks to one tab daemon over its Unix domain socket.
type Client struct {
	conn *grpc.ClientConn
	Tab  api.TabServiceClient
}

// Status is the decoded GetStatus response.
type Status struct {
	Profile  string        `json:"profile"`
	Session  string        `json:"session"`
	State    string        `json:"state"`
	User     chat.User     `json:"user"`
	Users    int           `json:"users"`
	Messages int           `json:"messages"`
	Selected string        `json:"selected"`
	Uptime   time.Duration `json:"uptime"`
	Since    time.Time     `json:"state_since"`
}

// Event is one entry of the WatchEvents stream.
type Event struct {
	Kind    string    `json:"kind"`
	At      time.Time `json:"at"`
	Payload any       `json:"payload"`
}

// New dials the daemon's Unix domain socket.
func New(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, fmt.Errorf("dial daemon: %w", err)
	}
	return &Client{conn: conn, Tab: api.NewTabServiceClient(conn)}, nil
}

// Close closes the gRPC connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

func (c *Client) Status(ctx context.Context) (Status, error) {
	resp, err := c.Tab.GetStatus(ctx, &emptypb.Empty{})
	if err != nil {
		return Status{}, err
	}
	f := resp.GetFields()
	return Status{
		Profile:  f["profile"].GetStringValue(),
		Session:  f["session"].GetStringValue(),
		State:    f["state"].GetStringValue(),
		User:     api.UserFromValue(f["user"]),
		Users:    int(f["users"].GetNumberValue()),
		Messages: int(f["messages"].GetNumberValue()),
		Selected: f["selected"].GetStringValue(),
		Uptime:   time.Duration(f["uptime_ms"].GetNumberValue()) * time.Millisecond,
		Since:    time.UnixMilli(int64(f["state_since_ms"].GetNumberValue())),
	}, nil
}

func (c *Client) Users(ctx context.Context) ([]chat.User, error) {
	resp, err := c.Tab.ListUsers(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	return api.UsersFromList(resp), nil
}

func (c *Client) Select(ctx context.Context, userID string) error {
	_, err := c.Tab.SelectPeer(ctx, wrapperspb.String(userID))
	return err
}

// Send sends text to `to`, or to the selected peer when `to` is empty.
// A nil message means the daemon ignored the send.
func (c *Client) Send(ctx context.Context, to, text string) (*chat.Message, error) {
	resp, err := c.Tab.SendMessage(ctx, &structpb.Struct{Fields: map[string]*structpb.Value{
		"to":   structpb.NewStringValue(to),
		"text": structpb.NewStringValue(text),
	}})
	if err != nil {
		return nil, err
	}
	f := resp.GetFields()
	if !f["accepted"].GetBoolValue() {
		return nil, nil
	}
	m := api.MessageFromValue(f["message"])
	return &m, nil
}

func (c *Client) Conversation(ctx context.Context) ([]chat.Message, error) {
	resp, err := c.Tab.GetConversation(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	return api.MessagesFromList(resp), nil
}

// History returns every message of the tab's log, in log order.
func (c *Client) History(ctx context.Context) ([]chat.Message, error) {
	resp, err := c.Tab.GetHistory(ctx, &emptypb.Empty{})
	if err != nil {
		return nil, err
	}
	return api.MessagesFromList(resp), nil
}

// Watch streams tab events to fn until ctx ends, the daemon stops, or fn
// returns an error.
func (c *Client) Watch(ctx context.Context, fn func(Event) error) error {
	stream, err := c.Tab.WatchEvents(ctx, &emptypb.Empty{})
	if err != nil {
		return err
	}
	for {
		msg, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		f := msg.GetFields()
		evt := Event{
			Kind:    f["kind"].GetStringValue(),
			At:      time.UnixMilli(int64(f["ts_ms"].GetNumberValue())),
			Payload: f["payload"].AsInterface(),
		}
		if err := fn(evt); err != nil {
			return err
		}
	}
}

// ClearHistory empties the profile's message log.
func (c *Client) ClearHistory(ctx context.Context) error {
	_, err := c.Tab.ClearHistory(ctx, &emptypb.Empty{})
	return err
}

// CloseTab ends the daemon's session.
func (c *Client) CloseTab(ctx context.Context) error {
	_, err := c.Tab.CloseTab(ctx, &emptypb.Empty{})
	return err
}
