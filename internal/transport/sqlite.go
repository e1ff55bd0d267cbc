package transport

import (
	"context"
	"sync"
	"time"

	"github.com/matheus3301/tabroom/internal/store"
	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"
)

const (
	// DefaultPollInterval is how often a subscriber looks for new events.
	DefaultPollInterval = 100 * time.Millisecond

	// eventRetention is how long events stay in the table. A tab that has
	// not polled for this long misses them, like any best-effort listener.
	eventRetention = time.Minute
	pollBatch      = 256
)

// SQLite is a transport endpoint backed by the room_events table of the
// profile's room.db. Every tab of the profile appends its events to the
// table and tails it by sequence number, so tabs in different processes
// reach each other without a server.
type SQLite struct {
	db       *store.DB
	id       string
	interval time.Duration
	logger   *zap.Logger

	mu         sync.Mutex
	subscribed bool
	closed     bool
	stop       chan struct{}
	wg         sync.WaitGroup
}

// OpenSQLite opens (and migrates) the database at path and returns an
// endpoint that owns it.
func OpenSQLite(path string, interval time.Duration, logger *zap.Logger) (*SQLite, error) {
	db, _, err := store.OpenMigrated(path)
	if err != nil {
		return nil, err
	}
	return NewSQLite(db, interval, logger), nil
}

// NewSQLite returns an endpoint on db. The endpoint owns db and closes it.
func NewSQLite(db *store.DB, interval time.Duration, logger *zap.Logger) *SQLite {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SQLite{
		db:       db,
		id:       ulid.Make().String(),
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
	}
}

// ID returns the endpoint's origin identifier.
func (s *SQLite) ID() string {
	return s.id
}

// Publish appends evt to the event table.
func (s *SQLite) Publish(ctx context.Context, evt Event) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return ErrClosed
	}
	evt = stamp(evt, s.id)
	data, err := Encode(evt)
	if err != nil {
		return err
	}
	_, err = s.db.AppendEvent(ctx, s.id, string(evt.Kind), data)
	return err
}

// Subscribe starts tailing the table from its current end: events published
// after Subscribe returns are delivered, older ones are not.
func (s *SQLite) Subscribe(ctx context.Context, bufSize int) (<-chan Event, func(), error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, nil, ErrClosed
	}
	if s.subscribed {
		return nil, nil, ErrAlreadySubscribed
	}
	cursor, err := s.db.LastEventSeq(ctx)
	if err != nil {
		return nil, nil, err
	}
	s.subscribed = true

	out := make(chan Event, bufSize)
	done := make(chan struct{})

	s.wg.Add(1)
	go s.tail(cursor, out, done)

	var once sync.Once
	return out, func() { once.Do(func() { close(done) }) }, nil
}

func (s *SQLite) tail(cursor int64, out chan<- Event, done <-chan struct{}) {
	defer s.wg.Done()
	defer close(out)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		select {
		case <-done:
		case <-s.stop:
		}
		cancel()
	}()

	poll := time.NewTicker(s.interval)
	defer poll.Stop()
	prune := time.NewTicker(eventRetention / 2)
	defer prune.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-prune.C:
			if _, err := s.db.PruneEvents(ctx, time.Now().Add(-eventRetention)); err != nil && ctx.Err() == nil {
				s.logger.Warn("failed to prune room events", zap.Error(err))
			}
		case <-poll.C:
			var ok bool
			if cursor, ok = s.drain(ctx, cursor, out); !ok {
				return
			}
		}
	}
}

// drain delivers every event after cursor and returns the new cursor. It
// reports false once the subscription is over.
func (s *SQLite) drain(ctx context.Context, cursor int64, out chan<- Event) (int64, bool) {
	for {
		recs, err := s.db.EventsAfter(ctx, cursor, pollBatch)
		if err != nil {
			if ctx.Err() != nil {
				return cursor, false
			}
			s.logger.Warn("failed to read room events", zap.Error(err))
			return cursor, true
		}
		for _, rec := range recs {
			cursor = rec.Seq
			if rec.Origin == s.id {
				continue
			}
			evt, err := Decode(rec.Payload)
			if err != nil {
				s.logger.Warn("dropping malformed room event", zap.Error(err), zap.Int64("seq", rec.Seq))
				continue
			}
			select {
			case out <- evt:
			case <-ctx.Done():
				return cursor, false
			}
		}
		if len(recs) < pollBatch {
			return cursor, true
		}
	}
}

// Close stops delivery and closes the database.
func (s *SQLite) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	close(s.stop)
	s.mu.Unlock()
	s.wg.Wait()
	return s.db.Close()
}
