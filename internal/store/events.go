package store

import (
	"context"
	"time"
)

// EventRecord is one broadcast stored in the room_events table.
type EventRecord struct {
	Seq     int64
	Origin  string
	Kind    string
	Payload []byte
}

// AppendEvent stores an encoded room event and returns its sequence number.
// Writers are serialized by SQLite, so sequence order is commit order.
func (db *DB) AppendEvent(ctx context.Context, origin, kind string, payload []byte) (int64, error) {
	res, err := db.ExecContext(ctx,
		`INSERT INTO room_events (origin, kind, payload, created_at) VALUES (?, ?, ?, ?)`,
		origin, kind, payload, time.Now().UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// LastEventSeq returns the newest sequence number, or 0 for an empty table.
func (db *DB) LastEventSeq(ctx context.Context) (int64, error) {
	var seq int64
	err := db.QueryRowContext(ctx, `SELECT COALESCE(MAX(seq), 0) FROM room_events`).Scan(&seq)
	return seq, err
}

// EventsAfter returns up to limit events newer than seq, oldest first.
func (db *DB) EventsAfter(ctx context.Context, seq int64, limit int) ([]EventRecord, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT seq, origin, kind, payload
		FROM room_events
		WHERE seq > ?
		ORDER BY seq ASC
		LIMIT ?`, seq, limit)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var out []EventRecord
	for rows.Next() {
		var rec EventRecord
		if err := rows.Scan(&rec.Seq, &rec.Origin, &rec.Kind, &rec.Payload); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PruneEvents deletes events stored before cutoff and returns how many went.
func (db *DB) PruneEvents(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := db.ExecContext(ctx, `DELETE FROM room_events WHERE created_at < ?`, cutoff.UnixMilli())
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
