package identity

import (
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"

	"github.com/BurntSushi/toml"
	"github.com/matheus3301/tabroom/internal/chat"
	"github.com/matheus3301/tabroom/internal/config"
	"go.uber.org/zap"
)

const (
	idLength   = 7
	idAlphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
)

// Store hands out the session's user identity, creating and persisting it on
// first use. Identities live as long as the session directory.
type Store struct {
	path    string
	avatars []string
	logger  *zap.Logger

	mu     sync.Mutex
	cached *chat.User
}

// New returns a store backed by the TOML file at path. avatars is the
// candidate set a new identity picks its avatar from; empty means
// config.DefaultAvatars.
func New(path string, avatars []string, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	if len(avatars) == 0 {
		avatars = config.DefaultAvatars
	}
	return &Store{
		path:    path,
		avatars: avatars,
		logger:  logger,
	}
}

// GetOrCreate returns the persisted identity, or creates and persists a new
// one when none exists or the record is unreadable. It never fails: a save
// error is logged and the identity is still returned.
func (s *Store) GetOrCreate() chat.User {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.cached != nil {
		return *s.cached
	}

	u, err := s.load()
	switch {
	case err == nil:
		s.cached = &u
		return u
	case os.IsNotExist(err):
	default:
		s.logger.Warn("identity record unreadable, creating a new one", zap.Error(err), zap.String("path", s.path))
	}

	u = s.generate()
	if err := s.save(u); err != nil {
		s.logger.Warn("failed to persist identity", zap.Error(err), zap.String("path", s.path))
	}
	s.logger.Info("identity created", zap.String("user_id", u.ID), zap.String("name", u.DisplayName))
	s.cached = &u
	return u
}

// Clear removes the persisted identity. The next GetOrCreate creates a new one.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cached = nil
	if err := os.Remove(s.path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) load() (chat.User, error) {
	var u chat.User
	if _, err := toml.DecodeFile(s.path, &u); err != nil {
		return chat.User{}, err
	}
	if u.ID == "" || u.DisplayName == "" || u.AvatarRef == "" {
		return chat.User{}, fmt.Errorf("identity record incomplete")
	}
	return u, nil
}

func (s *Store) save(u chat.User) error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(s.path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(u)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

func (s *Store) generate() chat.User {
	return chat.User{
		ID:          NewID(),
		DisplayName: fmt.Sprintf("User%d", rand.IntN(1000)),
		AvatarRef:   s.avatars[rand.IntN(len(s.avatars))],
	}
}

// NewID returns a random 7 character base36 user id.
func NewID() string {
	b := make([]byte, idLength)
	for i := range b {
		b[i] = idAlphabet[rand.IntN(len(idAlphabet))]
	}
	return string(b)
}
