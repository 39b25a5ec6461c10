package store

import (
	"context"
	"fmt"
	"time"
)

// WaterLogs returns a user's water intake history, newest first.
func (s *Store) WaterLogs(ctx context.Context, userID int64) ([]WaterLog, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, amount_ml, created_at
		FROM water_logs WHERE user_id = ?
		ORDER BY created_at DESC, id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list water logs: %w", err)
	}
	defer rows.Close()

	var logs []WaterLog
	for rows.Next() {
		var w WaterLog
		if err := rows.Scan(&w.ID, &w.UserID, &w.AmountML, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("list water logs: %w", err)
		}
		logs = append(logs, w)
	}
	return logs, rows.Err()
}

// AddWaterLog inserts a drink and returns it with id and timestamp set.
func (s *Store) AddWaterLog(ctx context.Context, userID, amountML int64) (*WaterLog, error) {
	w := WaterLog{UserID: userID, AmountML: amountML, CreatedAt: time.Now().UTC()}
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO water_logs (user_id, amount_ml, created_at) VALUES (?, ?, ?)`,
		w.UserID, w.AmountML, w.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("add water log: %w", err)
	}
	w.ID, err = res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("add water log: %w", err)
	}
	return &w, nil
}

// DeleteWaterLog removes one of the user's own drinks.
func (s *Store) DeleteWaterLog(ctx context.Context, userID, logID int64) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM water_logs WHERE id = ? AND user_id = ?`, logID, userID)
	if err != nil {
		return fmt.Errorf("delete water log: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}
