package transport

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/matheus3301/tabroom/internal/bus"
	"go.uber.org/zap"
)

var (
	// ErrAlreadySubscribed is returned by a second Subscribe on the same endpoint.
	ErrAlreadySubscribed = errors.New("transport: already subscribed")
	// ErrClosed is returned when using an endpoint after Close.
	ErrClosed = errors.New("transport: closed")
)

// Transport is one tab's endpoint on the profile-wide broadcast channel.
//
// Publish delivers evt to every other endpoint of the room, never back to
// the publisher. Delivery is best-effort: no acknowledgement, no retry and
// no ordering across publishers. An endpoint has at most one subscriber.
type Transport interface {
	Publish(ctx context.Context, evt Event) error
	Subscribe(ctx context.Context, bufSize int) (<-chan Event, func(), error)
	Close() error
}

const (
	// KindSQLite reaches every tab of the profile through its room.db.
	KindSQLite = "sqlite"
	// KindRedis reaches every tab subscribed to the room's Redis channel.
	KindRedis = "redis"
	// KindLocal only reaches endpoints sharing one in-process bus.
	KindLocal = "local"
)

// Options selects and configures a transport.
type Options struct {
	Kind         string
	Room         string
	RedisURL     string
	DBPath       string
	PollInterval time.Duration
}

// Open creates the transport endpoint described by opts. The bus is only
// used by the local transport.
func Open(ctx context.Context, opts Options, b *bus.Bus, logger *zap.Logger) (Transport, error) {
	switch opts.Kind {
	case KindSQLite:
		if opts.DBPath == "" {
			return nil, errors.New("sqlite transport: database path is required")
		}
		tr, err := OpenSQLite(opts.DBPath, opts.PollInterval, logger)
		if err != nil {
			return nil, err
		}
		return tr, nil
	case "", KindLocal:
		if b == nil {
			b = bus.New()
		}
		return NewLocal(b, opts.Room), nil
	case KindRedis:
		tr, err := NewRedis(ctx, opts.RedisURL, opts.Room, logger)
		if err != nil {
			return nil, err
		}
		return tr, nil
	default:
		return nil, fmt.Errorf("unknown transport %q", opts.Kind)
	}
}
