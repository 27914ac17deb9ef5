package database

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/samjhill/dream-companion/internal/dream"
)

// InsertDream stores a dream payload for a user and returns its new id.
// created_at is lifted out of the payload when present so listings can be
// ordered. A non-nil sourceKey that was already imported for the user is
// ignored and yields an empty id.
func (db *DB) InsertDream(userID string, payload []byte, sourceKey *string) (string, error) {
	var createdAt *string
	if rec, err := dream.Decode(payload); err == nil && rec.CreatedAt != "" {
		createdAt = &rec.CreatedAt
	}

	id := uuid.NewString()
	result, err := db.conn.Exec(
		`INSERT OR IGNORE INTO dreams (id, user_id, payload, source_key, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		id, userID, string(payload), sourceKey, createdAt,
	)
	if err != nil {
		return "", fmt.Errorf("inserting dream: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return "", err
	}
	if n == 0 {
		return "", nil
	}
	return id, nil
}

// GetDreams returns a user's dreams in insertion order.
func (db *DB) GetDreams(ctx context.Context, userID string) ([]Dream, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, payload, source_key, created_at, stored_at
		FROM dreams WHERE user_id = ? ORDER BY rowid`, userID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var dreams []Dream
	for rows.Next() {
		var d Dream
		var payload string
		if err := rows.Scan(&d.ID, &d.UserID, &payload, &d.SourceKey, &d.CreatedAt, &d.StoredAt); err != nil {
			return nil, err
		}
		d.Payload = []byte(payload)
		dreams = append(dreams, d)
	}
	return dreams, rows.Err()
}

// GetDream returns a single dream, or nil if it does not exist.
func (db *DB) GetDream(id string) (*Dream, error) {
	row := db.conn.QueryRow(
		`SELECT id, user_id, payload, source_key, created_at, stored_at FROM dreams WHERE id = ?`, id,
	)
	var d Dream
	var payload string
	if err := row.Scan(&d.ID, &d.UserID, &payload, &d.SourceKey, &d.CreatedAt, &d.StoredAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, err
	}
	d.Payload = []byte(payload)
	return &d, nil
}

// DeleteDream removes a dream.
func (db *DB) DeleteDream(id string) error {
	result, err := db.conn.Exec(`DELETE FROM dreams WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// CountDreams returns how many dreams a user has stored.
func (db *DB) CountDreams(userID string) (int, error) {
	var n int
	err := db.conn.QueryRow(`SELECT COUNT(*) FROM dreams WHERE user_id = ?`, userID).Scan(&n)
	return n, err
}

// ListUsers returns every user with at least one stored dream, sorted.
func (db *DB) ListUsers(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT DISTINCT user_id FROM dreams ORDER BY user_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var users []string
	for rows.Next() {
		var u string
		if err := rows.Scan(&u); err != nil {
			return nil, err
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// RecordSource reads analysis records from the dreams table.
type RecordSource struct {
	db *DB
}

// NewRecordSource creates a RecordSource over db.
func NewRecordSource(db *DB) *RecordSource {
	return &RecordSource{db: db}
}

// Records decodes every stored dream of userID. Payloads that are not JSON
// objects are skipped and counted. A record without its own id takes the
// row id.
func (s *RecordSource) Records(ctx context.Context, userID string) ([]dream.Record, int, error) {
	dreams, err := s.db.GetDreams(ctx, userID)
	if err != nil {
		return nil, 0, fmt.Errorf("reading dreams: %w", err)
	}

	records := make([]dream.Record, 0, len(dreams))
	skipped := 0
	for _, d := range dreams {
		rec, err := dream.Decode(d.Payload)
		if err != nil {
			skipped++
			continue
		}
		if rec.ID == "" {
			rec.ID = d.ID
		}
		records = append(records, rec)
	}
	return records, skipped, nil
}
