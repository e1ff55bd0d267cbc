package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/matheus3301/tabroom/internal/chat"
)

func testDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	db, err := Open(path)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := db.Migrate(); err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestMigrateIsIdempotent(t *testing.T) {
	db := testDB(t)

	// testDB already ran Migrate, so a second run must be a no-op.
	result, err := db.Migrate()
	if err != nil {
		t.Fatal(err)
	}
	if result.Changed {
		t.Error("second Migrate() should report Changed=false")
	}
	if result.Version != 2 {
		t.Errorf("version = %d, want 2 (init + room events)", result.Version)
	}
	if result.Dirty {
		t.Error("schema reported dirty")
	}
}

func TestOpenMigratedSharedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "room.db")

	first, res, err := OpenMigrated(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = first.Close() }()
	if !res.Changed {
		t.Error("first open should apply migrations")
	}

	second, res, err := OpenMigrated(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = second.Close() }()
	if res.Changed {
		t.Error("second open should find schema up to date")
	}
	if second.Path() != path {
		t.Errorf("Path() = %q, want %q", second.Path(), path)
	}
}

func TestAppendMessageInsertIfAbsent(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	m := chat.Message{ID: "m1", SenderID: "a", RecipientID: "b", Text: "hello", SentAtEpochMs: 1000}
	inserted, err := db.AppendMessage(ctx, m)
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Error("first append should insert")
	}

	m.Text = "changed"
	inserted, err = db.AppendMessage(ctx, m)
	if err != nil {
		t.Fatal(err)
	}
	if inserted {
		t.Error("duplicate append should not insert")
	}

	msgs, err := db.LoadMessages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Text != "hello" {
		t.Errorf("text = %q, want hello (committed messages never change)", msgs[0].Text)
	}
}

func TestLoadMessagesInsertionOrder(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, m := range []chat.Message{
		{ID: "c", SenderID: "a", RecipientID: "b", Text: "1", SentAtEpochMs: 3000},
		{ID: "a", SenderID: "b", RecipientID: "a", Text: "2", SentAtEpochMs: 1000},
		{ID: "b", SenderID: "a", RecipientID: "b", Text: "3", SentAtEpochMs: 2000},
	} {
		if _, err := db.AppendMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	msgs, err := db.LoadMessages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	var got []string
	for _, m := range msgs {
		got = append(got, m.ID)
	}
	want := []string{"c", "a", "b"}
	for i := range want {
		if i >= len(got) || got[i] != want[i] {
			t.Fatalf("order = %v, want %v", got, want)
		}
	}
}

func TestLinkPreviewRoundTrip(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	preview := &chat.LinkPreview{Title: "Go", Description: "The Go language", ImageRef: "https://go.dev/logo.png", Domain: "go.dev"}
	if _, err := db.AppendMessage(ctx, chat.Message{ID: "p1", SenderID: "a", RecipientID: "b", Text: "see https://go.dev", LinkPreview: preview}); err != nil {
		t.Fatal(err)
	}
	if _, err := db.AppendMessage(ctx, chat.Message{ID: "p2", SenderID: "a", RecipientID: "b", Text: "no link"}); err != nil {
		t.Fatal(err)
	}

	msgs, err := db.LoadMessages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Fatalf("got %d messages, want 2", len(msgs))
	}
	if msgs[0].LinkPreview == nil || *msgs[0].LinkPreview != *preview {
		t.Errorf("preview = %+v, want %+v", msgs[0].LinkPreview, preview)
	}
	if msgs[1].LinkPreview != nil {
		t.Errorf("message without preview loaded with %+v", msgs[1].LinkPreview)
	}
}

func TestTwoConnectionsBothPersist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "room.db")
	ctx := context.Background()

	tab1, _, err := OpenMigrated(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = tab1.Close() }()
	tab2, _, err := OpenMigrated(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = tab2.Close() }()

	if _, err := tab1.AppendMessage(ctx, chat.Message{ID: "t1", SenderID: "a", RecipientID: "b", Text: "from 1"}); err != nil {
		t.Fatal(err)
	}
	if _, err := tab2.AppendMessage(ctx, chat.Message{ID: "t2", SenderID: "b", RecipientID: "a", Text: "from 2"}); err != nil {
		t.Fatal(err)
	}

	msgs, err := tab1.LoadMessages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 2 {
		t.Errorf("got %d messages, want 2", len(msgs))
	}
}

func TestClearMessages(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	for _, m := range []chat.Message{
		{ID: "1", SenderID: "a", RecipientID: "b", Text: "ab"},
		{ID: "2", SenderID: "b", RecipientID: "a", Text: "ba"},
	} {
		if _, err := db.AppendMessage(ctx, m); err != nil {
			t.Fatal(err)
		}
	}

	if err := db.ClearMessages(ctx); err != nil {
		t.Fatal(err)
	}
	msgs, err := db.LoadMessages(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(msgs) != 0 {
		t.Errorf("got %d messages after clear, want 0", len(msgs))
	}

	// A cleared id may be sent again.
	inserted, err := db.AppendMessage(ctx, chat.Message{ID: "1", SenderID: "a", RecipientID: "b", Text: "again"})
	if err != nil {
		t.Fatal(err)
	}
	if !inserted {
		t.Error("append after clear should insert")
	}
}

func TestEventsTailBySeq(t *testing.T) {
	path := filepath.Join(t.TempDir(), "room.db")
	ctx := context.Background()

	writer, _, err := OpenMigrated(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = writer.Close() }()
	reader, _, err := OpenMigrated(path)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = reader.Close() }()

	cursor, err := reader.LastEventSeq(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if cursor != 0 {
		t.Errorf("LastEventSeq() on empty table = %d, want 0", cursor)
	}

	for _, kind := range []string{"join", "message", "leave"} {
		if _, err := writer.AppendEvent(ctx, "tab-1", kind, []byte(`{"type":"`+kind+`"}`)); err != nil {
			t.Fatal(err)
		}
	}

	first, err := reader.EventsAfter(ctx, cursor, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(first) != 2 || first[0].Kind != "join" || first[1].Kind != "message" {
		t.Fatalf("first batch = %+v, want join, message", first)
	}
	rest, err := reader.EventsAfter(ctx, first[1].Seq, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(rest) != 1 || rest[0].Kind != "leave" || rest[0].Origin != "tab-1" {
		t.Fatalf("second batch = %+v, want leave from tab-1", rest)
	}
	if string(rest[0].Payload) != `{"type":"leave"}` {
		t.Errorf("payload = %s", rest[0].Payload)
	}

	last, err := reader.LastEventSeq(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if last != rest[0].Seq {
		t.Errorf("LastEventSeq() = %d, want %d", last, rest[0].Seq)
	}
}

func TestPruneEvents(t *testing.T) {
	db := testDB(t)
	ctx := context.Background()

	if _, err := db.AppendEvent(ctx, "tab-1", "join", []byte("{}")); err != nil {
		t.Fatal(err)
	}
	n, err := db.PruneEvents(ctx, time.Now().Add(-time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("pruned %d fresh events, want 0", n)
	}

	n, err = db.PruneEvents(ctx, time.Now().Add(time.Minute))
	if err != nil {
		t.Fatal(err)
	}
	if n != 1 {
		t.Errorf("pruned %d events, want 1", n)
	}

	// Sequence numbers keep growing after a prune.
	seq, err := db.AppendEvent(ctx, "tab-1", "join", []byte("{}"))
	if err != nil {
		t.Fatal(err)
	}
	if seq != 2 {
		t.Errorf("seq after prune = %d, want 2", seq)
	}
}
