package chatlog

import (
	"context"

	"github.com/matheus3301/tabroom/internal/chat"
	"go.uber.org/zap"
)

// Storage is the durable side of the log, shared by every tab of a profile.
// AppendMessage must insert against the current durable content (never a
// cached copy) and report whether the message was new.
type Storage interface {
	LoadMessages(ctx context.Context) ([]chat.Message, error)
	AppendMessage(ctx context.Context, m chat.Message) (bool, error)
	ClearMessages(ctx context.Context) error
}

// Log is a tab's in-memory mirror of the message log, deduplicated by
// message ID and persisted after every accepted append.
//
// A Log is owned by a single room loop and is not safe for concurrent use.
type Log struct {
	storage Storage
	logger  *zap.Logger
	msgs    []chat.Message
	ids     map[string]struct{}
}

// New creates an empty log backed by storage. A nil storage keeps the log
// in memory only.
func New(storage Storage, logger *zap.Logger) *Log {
	if storage == nil {
		storage = NopStorage{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Log{
		storage: storage,
		logger:  logger,
		ids:     make(map[string]struct{}),
	}
}

// Append inserts m unless a message with the same ID is already present.
// Returns true if m was new. A persistence failure is logged; the message
// stays in memory.
func (l *Log) Append(ctx context.Context, m chat.Message) bool {
	if m.ID == "" {
		return false
	}
	if _, dup := l.ids[m.ID]; dup {
		return false
	}
	l.ids[m.ID] = struct{}{}
	l.msgs = append(l.msgs, m)

	if _, err := l.storage.AppendMessage(ctx, m); err != nil {
		l.logger.Warn("failed to persist message", zap.Error(err), zap.String("msg_id", m.ID))
	}
	return true
}

// LoadFromStorage replaces the mirror with the durable content, in durable
// order. Unreadable storage yields an empty log.
func (l *Log) LoadFromStorage(ctx context.Context) []chat.Message {
	l.msgs = nil
	l.ids = make(map[string]struct{})

	stored, err := l.storage.LoadMessages(ctx)
	if err != nil {
		l.logger.Warn("message log unreadable, starting empty", zap.Error(err))
		return nil
	}
	for _, m := range stored {
		if m.ID == "" {
			continue
		}
		if _, dup := l.ids[m.ID]; dup {
			continue
		}
		l.ids[m.ID] = struct{}{}
		l.msgs = append(l.msgs, m)
	}
	return l.Snapshot()
}

// Snapshot returns every message in append order.
func (l *Log) Snapshot() []chat.Message {
	out := make([]chat.Message, len(l.msgs))
	copy(out, l.msgs)
	return out
}

// Query returns the conversation between a and b, in append order.
// The result does not depend on argument order.
func (l *Log) Query(a, b string) []chat.Message {
	var out []chat.Message
	for _, m := range l.msgs {
		if m.Between(a, b) {
			out = append(out, m)
		}
	}
	return out
}

// Clear deletes every durable message, then empties the mirror. On a storage
// error the mirror is left untouched.
func (l *Log) Clear(ctx context.Context) error {
	if err := l.storage.ClearMessages(ctx); err != nil {
		return err
	}
	l.msgs = nil
	l.ids = make(map[string]struct{})
	return nil
}

// Len returns the number of messages.
func (l *Log) Len() int {
	return len(l.msgs)
}
