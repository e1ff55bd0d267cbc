package transport

import (
	"context"
	"fmt"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Redis is a transport endpoint backed by a Redis Pub/Sub channel, for tabs
// running as separate processes. Redis is only a fan-out: nothing is stored.
type Redis struct {
	client  *redis.Client
	channel string
	id      string
	logger  *zap.Logger

	mu     sync.Mutex
	pubsub *redis.PubSub
	closed bool
	wg     sync.WaitGroup
}

// NewRedis connects to redisURL and returns an endpoint for room.
func NewRedis(ctx context.Context, redisURL, room string, logger *zap.Logger) (*Redis, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{
		client:  client,
		channel: ChannelName(room),
		id:      ulid.Make().String(),
		logger:  logger,
	}, nil
}

// ChannelName returns the Pub/Sub channel used for room.
func ChannelName(room string) string {
	return "tabroom:" + room
}

// ID returns the endpoint's origin identifier.
func (r *Redis) ID() string {
	return r.id
}

// Publish sends evt to the room channel.
func (r *Redis) Publish(ctx context.Context, evt Event) error {
	r.mu.Lock()
	closed := r.closed
	r.mu.Unlock()
	if closed {
		return ErrClosed
	}
	data, err := Encode(stamp(evt, r.id))
	if err != nil {
		return err
	}
	return r.client.Publish(ctx, r.channel, data).Err()
}

// Subscribe joins the room channel. It returns once Redis has confirmed the
// subscription, so events published afterwards are not missed.
func (r *Redis) Subscribe(ctx context.Context, bufSize int) (<-chan Event, func(), error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return nil, nil, ErrClosed
	}
	if r.pubsub != nil {
		return nil, nil, ErrAlreadySubscribed
	}

	ps := r.client.Subscribe(ctx, r.channel)
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, nil, fmt.Errorf("subscribe %s: %w", r.channel, err)
	}
	r.pubsub = ps

	out := make(chan Event, bufSize)
	src := ps.Channel()

	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		defer close(out)
		for msg := range src {
			evt, err := Decode([]byte(msg.Payload))
			if err != nil {
				r.logger.Warn("dropping malformed room event", zap.Error(err), zap.String("channel", msg.Channel))
				continue
			}
			if evt.Origin == r.id {
				continue
			}
			select {
			case out <- evt:
			default:
				r.logger.Warn("room event dropped, subscriber full", zap.String("kind", string(evt.Kind)))
			}
		}
	}()

	var once sync.Once
	unsub := func() {
		once.Do(func() { _ = ps.Close() })
	}
	return out, unsub, nil
}

// Close unsubscribes and closes the Redis connection.
func (r *Redis) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	ps := r.pubsub
	r.mu.Unlock()

	if ps != nil {
		_ = ps.Close()
	}
	r.wg.Wait()
	return r.client.Close()
}
