package chatlog

import (
	"context"
	"sync"

	"github.com/matheus3301/tabroom/internal/chat"
)

// NopStorage persists nothing and always loads an empty log.
type NopStorage struct{}

func (NopStorage) LoadMessages(context.Context) ([]chat.Message, error) { return nil, nil }

func (NopStorage) AppendMessage(context.Context, chat.Message) (bool, error) { return true, nil }

func (NopStorage) ClearMessages(context.Context) error { return nil }

// MemoryStorage keeps the durable log in process memory. Several logs may
// share one MemoryStorage to simulate tabs of the same profile.
type MemoryStorage struct {
	mu   sync.Mutex
	msgs []chat.Message
	ids  map[string]struct{}
}

// NewMemoryStorage creates a MemoryStorage preloaded with msgs.
func NewMemoryStorage(msgs ...chat.Message) *MemoryStorage {
	s := &MemoryStorage{ids: make(map[string]struct{})}
	for _, m := range msgs {
		_, _ = s.AppendMessage(context.Background(), m)
	}
	return s
}

func (s *MemoryStorage) LoadMessages(context.Context) ([]chat.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]chat.Message, len(s.msgs))
	copy(out, s.msgs)
	return out, nil
}

func (s *MemoryStorage) AppendMessage(_ context.Context, m chat.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.ids[m.ID]; ok {
		return false, nil
	}
	s.ids[m.ID] = struct{}{}
	s.msgs = append(s.msgs, m)
	return true, nil
}

func (s *MemoryStorage) ClearMessages(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.msgs = nil
	s.ids = make(map[string]struct{})
	return nil
}
