package store

import (
	"context"
	"fmt"
	"time"
)

// WeightLogs returns a user's weigh-in history, newest first.
func (s *Store) WeightLogs(ctx context.Context, userID int64) ([]WeightLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, weight_kg, created_at
		FROM weight_logs WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list weight logs: %w", err)
	}
	defer rows.Close()

	var logs []WeightLog
	for rows.Next() {
		var w WeightLog
		if err := rows.Scan(&w.ID, &w.UserID, &w.WeightKG, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("list weight logs: %w", err)
		}
		logs = append(logs, w)
	}
	return logs, rows.Err()
}

// AddWeightLog inserts a weigh-in and returns it with id and timestamp set.
func (s *Store) AddWeightLog(ctx context.Context, userID int64, weightKG float64) (*WeightLog, error) {
	w := WeightLog{UserID: userID, WeightKG: weightKG, CreatedAt: time.Now().UTC()}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO weight_logs (user_id, weight_kg, created_at) VALUES (?, ?, ?)`,
		w.UserID, w.WeightKG, w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add weight log: %w", err)
	}
	w.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("add weight log: %w", err)
	}
	return &w, nil
}

// DeleteWeightLog removes one of the user's own weigh-ins.
func (s *Store) DeleteWeightLog(ctx context.Context, userID, logID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM weight_logs WHERE id = ? AND user_id = ?`, logID, userID)
	if err != nil {
		return fmt.Errorf("delete weight log: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
