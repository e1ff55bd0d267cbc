package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/matheus3301/tabroom/internal/chat"
)

const messageColumns = `id, sender_id, recipient_id, text, sent_at,
	has_preview, preview_title, preview_description, preview_image, preview_domain`

// AppendMessage inserts m unless a row with the same id exists. The insert
// runs against the current file content, so two tabs appending different
// messages at the same instant both end up stored.
func (db *DB) AppendMessage(ctx context.Context, m chat.Message) (bool, error) {
	var p chat.LinkPreview
	hasPreview := m.LinkPreview != nil
	if hasPreview {
		p = *m.LinkPreview
	}
	res, err := db.ExecContext(ctx, `
		INSERT INTO messages (`+messageColumns+`, stored_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING`,
		m.ID, m.SenderID, m.RecipientID, m.Text, m.SentAtEpochMs,
		hasPreview, p.Title, p.Description, p.ImageRef, p.Domain,
		time.Now().UnixMilli())
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// LoadMessages returns the whole log in insertion order.
func (db *DB) LoadMessages(ctx context.Context) ([]chat.Message, error) {
	rows, err := db.QueryContext(ctx, `SELECT `+messageColumns+` FROM messages ORDER BY seq ASC`)
	if err != nil {
		return nil, err
	}
	return scanMessages(rows)
}

// ClearMessages deletes the durable log for every tab of the profile.
func (db *DB) ClearMessages(ctx context.Context) error {
	_, err := db.ExecContext(ctx, `DELETE FROM messages`)
	return err
}

func scanMessages(rows *sql.Rows) ([]chat.Message, error) {
	defer func() { _ = rows.Close() }()

	var msgs []chat.Message
	for rows.Next() {
		var (
			m          chat.Message
			p          chat.LinkPreview
			hasPreview bool
		)
		if err := rows.Scan(&m.ID, &m.SenderID, &m.RecipientID, &m.Text, &m.SentAtEpochMs,
			&hasPreview, &p.Title, &p.Description, &p.ImageRef, &p.Domain); err != nil {
			return nil, err
		}
		if hasPreview {
			m.LinkPreview = &p
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}
