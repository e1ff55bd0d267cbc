package transport

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/tabroom/internal/chat"
	"github.com/matheus3301/tabroom/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPoll = 10 * time.Millisecond

// openTabs opens n endpoints on one room.db, each with its own connection,
// the way tabs in separate processes would.
func openTabs(t *testing.T, n int) (string, []*SQLite) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "room.db")
	tabs := make([]*SQLite, n)
	for i := range tabs {
		tr, err := OpenSQLite(path, testPoll, nil)
		require.NoError(t, err)
		t.Cleanup(func() { _ = tr.Close() })
		tabs[i] = tr
	}
	return path, tabs
}

func TestSQLiteFanOutSkipsPublisher(t *testing.T) {
	ctx := context.Background()
	_, tabs := openTabs(t, 3)

	var chans []<-chan Event
	for _, tr := range tabs {
		ch, unsub, err := tr.Subscribe(ctx, 16)
		require.NoError(t, err)
		t.Cleanup(unsub)
		chans = append(chans, ch)
	}

	u := chat.User{ID: "aaaaaaa", DisplayName: "User1"}
	require.NoError(t, tabs[0].Publish(ctx, Join(u)))

	for _, ch := range chans[1:] {
		evt := recv(t, ch)
		assert.Equal(t, KindJoin, evt.Kind)
		assert.Equal(t, u, *evt.User)
		assert.Equal(t, tabs[0].ID(), evt.Origin)
		assert.NotEmpty(t, evt.EventID)
	}
	expectNone(t, chans[0])
}

func TestSQLiteKeepsPublishOrder(t *testing.T) {
	ctx := context.Background()
	_, tabs := openTabs(t, 2)

	ch, unsub, err := tabs[1].Subscribe(ctx, 512)
	require.NoError(t, err)
	defer unsub()

	// More than one poll batch.
	const n = pollBatch + 10
	for i := range n {
		m := chat.Message{ID: fmt.Sprintf("m-%d", i), SenderID: "a", RecipientID: "b", Text: "x", SentAtEpochMs: int64(i)}
		require.NoError(t, tabs[0].Publish(ctx, MessageEvent(m)))
	}
	for i := range n {
		evt := recv(t, ch)
		require.Equal(t, KindMessage, evt.Kind)
		assert.Equal(t, int64(i), evt.Message.SentAtEpochMs)
	}
}

func TestSQLiteSubscribeStartsAtTableEnd(t *testing.T) {
	ctx := context.Background()
	_, tabs := openTabs(t, 2)

	require.NoError(t, tabs[0].Publish(ctx, Leave("old")))

	ch, unsub, err := tabs[1].Subscribe(ctx, 16)
	require.NoError(t, err)
	defer unsub()

	require.NoError(t, tabs[0].Publish(ctx, Leave("new")))
	evt := recv(t, ch)
	assert.Equal(t, "new", evt.UserID)
	expectNone(t, ch)
}

func TestSQLiteSkipsMalformedRows(t *testing.T) {
	ctx := context.Background()
	path, tabs := openTabs(t, 1)

	ch, unsub, err := tabs[0].Subscribe(ctx, 16)
	require.NoError(t, err)
	defer unsub()

	raw, _, err := store.OpenMigrated(path)
	require.NoError(t, err)
	defer func() { _ = raw.Close() }()
	_, err = raw.AppendEvent(ctx, "someone", "join", []byte("not json"))
	require.NoError(t, err)
	data, err := Encode(stamp(Leave("bbbbbbb"), "someone"))
	require.NoError(t, err)
	_, err = raw.AppendEvent(ctx, "someone", "leave", data)
	require.NoError(t, err)

	evt := recv(t, ch)
	assert.Equal(t, KindLeave, evt.Kind)
	assert.Equal(t, "bbbbbbb", evt.UserID)
}

func TestSQLiteSubscriptionRules(t *testing.T) {
	ctx := context.Background()
	_, tabs := openTabs(t, 1)
	tr := tabs[0]

	ch, unsub, err := tr.Subscribe(ctx, 1)
	require.NoError(t, err)
	_, _, err = tr.Subscribe(ctx, 1)
	assert.ErrorIs(t, err, ErrAlreadySubscribed)

	unsub()
	select {
	case _, ok := <-ch:
		assert.False(t, ok, "channel should close after unsubscribe")
	case <-time.After(time.Second):
		t.Fatal("channel not closed after unsubscribe")
	}

	require.NoError(t, tr.Close())
	require.NoError(t, tr.Close(), "Close is idempotent")
	assert.ErrorIs(t, tr.Publish(ctx, Leave("x")), ErrClosed)
	_, _, err = tr.Subscribe(ctx, 1)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestSQLiteRejectsInvalidEvent(t *testing.T) {
	_, tabs := openTabs(t, 1)
	assert.Error(t, tabs[0].Publish(context.Background(), Event{Kind: KindJoin}))
}

func TestOpenSQLiteFactory(t *testing.T) {
	ctx := context.Background()
	tr, err := Open(ctx, Options{Kind: KindSQLite, DBPath: filepath.Join(t.TempDir(), "room.db")}, nil, nil)
	require.NoError(t, err)
	assert.IsType(t, &SQLite{}, tr)
	require.NoError(t, tr.Close())

	_, err = Open(ctx, Options{Kind: KindSQLite}, nil, nil)
	assert.Error(t, err, "a database path is required")
}
