package chatlog

import (
	"context"
	"errors"
	"testing"

	"github.com/matheus3301/tabroom/internal/chat"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type failingStorage struct {
	loadErr   error
	appendErr error
	clearErr  error
	appended  int
}

func (f *failingStorage) LoadMessages(context.Context) ([]chat.Message, error) {
	return nil, f.loadErr
}

func (f *failingStorage) AppendMessage(context.Context, chat.Message) (bool, error) {
	f.appended++
	return false, f.appendErr
}

func (f *failingStorage) ClearMessages(context.Context) error {
	return f.clearErr
}

func msg(id, from, to, text string) chat.Message {
	return chat.Message{ID: id, SenderID: from, RecipientID: to, Text: text, SentAtEpochMs: 1000}
}

func TestAppendIsIdempotent(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	l := New(storage, nil)
	m := msg("m1", "a", "b", "hi")

	assert.True(t, l.Append(ctx, m))
	once := l.Snapshot()

	assert.False(t, l.Append(ctx, m))
	assert.Equal(t, once, l.Snapshot())

	stored, err := storage.LoadMessages(ctx)
	require.NoError(t, err)
	assert.Len(t, stored, 1)
}

func TestSnapshotKeepsAppendOrder(t *testing.T) {
	ctx := context.Background()
	l := New(nil, nil)

	late := msg("m1", "a", "b", "late")
	late.SentAtEpochMs = 9000
	early := msg("m2", "b", "a", "early")
	early.SentAtEpochMs = 1

	l.Append(ctx, late)
	l.Append(ctx, early)

	snap := l.Snapshot()
	require.Len(t, snap, 2)
	assert.Equal(t, "m1", snap[0].ID, "the log never re-sorts by timestamp")
	assert.Equal(t, "m2", snap[1].ID)
}

func TestLoadFromStorageReplaysInOrder(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage(
		msg("m1", "a", "b", "one"),
		msg("m2", "b", "a", "two"),
		msg("m3", "a", "c", "three"),
	)
	l := New(storage, nil)

	loaded := l.LoadFromStorage(ctx)
	require.Len(t, loaded, 3)
	assert.Equal(t, []string{"m1", "m2", "m3"}, ids(l.Snapshot()))
	assert.False(t, l.Append(ctx, msg("m2", "b", "a", "two")), "replayed IDs dedup later deliveries")
}

func TestClearEmptiesLogAndStorage(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage(msg("m1", "a", "b", "one"))
	l := New(storage, nil)
	l.LoadFromStorage(ctx)
	l.Append(ctx, msg("m2", "b", "a", "two"))

	require.NoError(t, l.Clear(ctx))
	assert.Equal(t, 0, l.Len())
	stored, err := storage.LoadMessages(ctx)
	require.NoError(t, err)
	assert.Empty(t, stored)

	assert.True(t, l.Append(ctx, msg("m1", "a", "b", "one")), "a cleared ID can be appended again")
	assert.Equal(t, 1, l.Len())
}

func TestClearKeepsMirrorWhenStorageFails(t *testing.T) {
	ctx := context.Background()
	l := New(&failingStorage{clearErr: errors.New("read only")}, nil)
	l.Append(ctx, msg("m1", "a", "b", "one"))

	assert.Error(t, l.Clear(ctx))
	assert.Equal(t, []string{"m1"}, ids(l.Snapshot()))
}

func TestLoadFromStorageDegradesToEmpty(t *testing.T) {
	l := New(&failingStorage{loadErr: errors.New("corrupt")}, nil)
	l.Append(context.Background(), msg("stale", "a", "b", "x"))

	assert.Empty(t, l.LoadFromStorage(context.Background()))
	assert.Equal(t, 0, l.Len())
}

func TestAppendKeepsMessageWhenPersistFails(t *testing.T) {
	storage := &failingStorage{appendErr: errors.New("disk full")}
	l := New(storage, nil)

	assert.True(t, l.Append(context.Background(), msg("m1", "a", "b", "hi")))
	assert.Equal(t, 1, l.Len())
	assert.Equal(t, 1, storage.appended)
}

func TestAppendRejectsEmptyID(t *testing.T) {
	l := New(nil, nil)
	assert.False(t, l.Append(context.Background(), msg("", "a", "b", "hi")))
	assert.Equal(t, 0, l.Len())
}

func TestQueryIsSymmetric(t *testing.T) {
	ctx := context.Background()
	l := New(nil, nil)
	l.Append(ctx, msg("m1", "a", "b", "a->b"))
	l.Append(ctx, msg("m2", "b", "a", "b->a"))
	l.Append(ctx, msg("m3", "a", "c", "a->c"))
	l.Append(ctx, msg("m4", "c", "b", "c->b"))
	l.Append(ctx, msg("m5", "a", "a", "self"))

	ab := l.Query("a", "b")
	ba := l.Query("b", "a")

	assert.Equal(t, ab, ba)
	assert.Equal(t, []string{"m1", "m2"}, ids(ab))
	assert.Empty(t, l.Query("b", "d"))
}

func TestSharedStorageKeepsBothTabsWrites(t *testing.T) {
	ctx := context.Background()
	storage := NewMemoryStorage()
	tab1 := New(storage, nil)
	tab2 := New(storage, nil)
	tab1.LoadFromStorage(ctx)
	tab2.LoadFromStorage(ctx)

	tab1.Append(ctx, msg("m1", "a", "b", "from tab1"))
	tab2.Append(ctx, msg("m2", "b", "a", "from tab2"))

	fresh := New(storage, nil)
	assert.Equal(t, []string{"m1", "m2"}, ids(fresh.LoadFromStorage(ctx)))
}

func ids(msgs []chat.Message) []string {
	out := make([]string, 0, len(msgs))
	for _, m := range msgs {
		out = append(out, m.ID)
	}
	return out
}
