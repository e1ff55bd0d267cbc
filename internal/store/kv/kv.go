// Package kv stores the message log in a Pebble key-value database.
//
// Layout:
//
//	m/<16 hex digit seq> -> JSON message, seq increasing monotonically
//	i/<message id>       -> 8-byte big-endian seq
//
// Pebble holds an exclusive lock on its directory, so a kv store can only be
// shared by tabs living in the same process.
package kv

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/pebble/v2"
	"github.com/matheus3301/tabroom/internal/chat"
)

var (
	msgPrefix   = []byte("m/")
	msgUpper    = []byte("m0") // '0' is the byte after '/'
	indexPrefix = "i/"
	indexUpper  = []byte("i0")
)

// Store is a Pebble-backed message log.
type Store struct {
	db   *pebble.DB
	mu   sync.Mutex
	next uint64
}

// Open opens or creates the store in dir.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("create kv dir: %w", err)
	}
	db, err := pebble.Open(filepath.Clean(dir), &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("open pebble: %w", err)
	}
	s := &Store{db: db}

	// Discover next sequence by reading the last message key.
	it, err := db.NewIter(&pebble.IterOptions{LowerBound: msgPrefix, UpperBound: msgUpper})
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("scan pebble: %w", err)
	}
	if it.Last() {
		seq, err := parseSeq(it.Key())
		if err == nil {
			s.next = seq + 1
		}
	}
	if err := it.Close(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}

// AppendMessage stores m unless its ID is already indexed.
func (s *Store) AppendMessage(_ context.Context, m chat.Message) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	idKey := []byte(indexPrefix + m.ID)
	_, closer, err := s.db.Get(idKey)
	if err == nil {
		_ = closer.Close()
		return false, nil
	}
	if !errors.Is(err, pebble.ErrNotFound) {
		return false, fmt.Errorf("lookup message id: %w", err)
	}

	val, err := json.Marshal(m)
	if err != nil {
		return false, fmt.Errorf("encode message: %w", err)
	}
	seqVal := make([]byte, 8)
	binary.BigEndian.PutUint64(seqVal, s.next)

	b := s.db.NewBatch()
	if err := b.Set(msgKey(s.next), val, nil); err != nil {
		_ = b.Close()
		return false, err
	}
	if err := b.Set(idKey, seqVal, nil); err != nil {
		_ = b.Close()
		return false, err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		_ = b.Close()
		return false, fmt.Errorf("commit message: %w", err)
	}
	if err := b.Close(); err != nil {
		return false, err
	}
	s.next++
	return true, nil
}

// LoadMessages returns every stored message in sequence order. Entries that
// fail to decode are skipped.
func (s *Store) LoadMessages(_ context.Context) ([]chat.Message, error) {
	it, err := s.db.NewIter(&pebble.IterOptions{LowerBound: msgPrefix, UpperBound: msgUpper})
	if err != nil {
		return nil, err
	}
	defer func() { _ = it.Close() }()

	out := make([]chat.Message, 0, 64)
	for ok := it.First(); ok; ok = it.Next() {
		var m chat.Message
		if err := json.Unmarshal(it.Value(), &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// ClearMessages deletes every message and its index entry. The sequence keeps
// counting so cleared keys are never reused.
func (s *Store) ClearMessages(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	b := s.db.NewBatch()
	defer func() { _ = b.Close() }()
	if err := b.DeleteRange(msgPrefix, msgUpper, nil); err != nil {
		return err
	}
	if err := b.DeleteRange([]byte(indexPrefix), indexUpper, nil); err != nil {
		return err
	}
	if err := b.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("clear messages: %w", err)
	}
	return nil
}

func msgKey(seq uint64) []byte {
	return fmt.Appendf(nil, "m/%016x", seq)
}

func parseSeq(key []byte) (uint64, error) {
	var seq uint64
	_, err := fmt.Sscanf(string(key), "m/%016x", &seq)
	return seq, err
}
