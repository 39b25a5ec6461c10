package store

import (
	"context"
	"fmt"
	"time"
)

// Entries returns a user's measurement history, newest first.
func (s *Store) Entries(ctx context.Context, userID int64) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, sex, height, neck, waist, hip, bf, grp, created_at
		FROM entries WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list entries: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Sex, &e.Height, &e.Neck,
			&e.Waist, &e.Hip, &e.BodyFat, &e.Group, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// AddEntry inserts a measurement and returns it with id and timestamp set.
func (s *Store) AddEntry(ctx context.Context, e Entry) (*Entry, error) {
	e.CreatedAt = time.Now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO entries (user_id, sex, height, neck, waist, hip, bf, grp, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.UserID, e.Sex, e.Height, e.Neck, e.Waist, e.Hip, e.BodyFat, e.Group, e.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("add entry: %w", err)
	}
	return &e, nil
}

// DeleteEntry removes one of the user's own measurements. Deleting a row
// that doesn't exist, or belongs to someone else, reports ErrNotFound.
func (s *Store) DeleteEntry(ctx context.Context, userID, entryID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM entries WHERE id = ? AND user_id = ?`, entryID, userID)
	if err != nil {
		return fmt.Errorf("delete entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
