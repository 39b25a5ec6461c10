package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// isUniqueViolation matches the driver's typed constraint error rather
// than its message text.
func isUniqueViolation(err error) bool {
	var se *sqlite.Error
	return errors.As(err, &se) && se.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
}

// CreateUser inserts a new account and returns it with its assigned id.
// email may be nil. Returns ErrDuplicateUsername on a username or email
// collision.
func (s *Store) CreateUser(ctx context.Context, username string, email *string, passwordHash string) (*User, error) {
	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO users (username, email, password_hash, created_at) VALUES (?, ?, ?, ?)`,
		username, email, passwordHash, now)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, ErrDuplicateUsername
		}
		return nil, fmt.Errorf("create user: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}
	return &User{ID: id, Username: username, Email: email, PasswordHash: passwordHash, CreatedAt: now}, nil
}

func (s *Store) scanUser(row *sql.Row) (*User, error) {
	var u User
	var email sql.NullString
	err := row.Scan(&u.ID, &u.Username, &email, &u.PasswordHash, &u.IsAdmin, &u.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	if email.Valid {
		u.Email = &email.String
	}
	return &u, nil
}

// UserByUsername fetches an account by login name.
func (s *Store) UserByUsername(ctx context.Context, username string) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, is_admin, created_at FROM users WHERE username = ?`,
		username))
}

// UserByID fetches an account by id.
func (s *Store) UserByID(ctx context.Context, id int64) (*User, error) {
	return s.scanUser(s.db.QueryRowContext(ctx,
		`SELECT id, username, email, password_hash, is_admin, created_at FROM users WHERE id = ?`,
		id))
}

// UpdatePassword replaces a user's password hash.
func (s *Store) UpdatePassword(ctx context.Context, userID int64, passwordHash string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET password_hash = ? WHERE id = ?`, passwordHash, userID)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetAdmin grants or revokes the administrator bit.
func (s *Store) SetAdmin(ctx context.Context, userID int64, isAdmin bool) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_admin = ? WHERE id = ?`, isAdmin, userID)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes an account; entries and logs cascade.
func (s *Store) DeleteUser(ctx context.Context, userID int64) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, userID)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// ListUsers returns every account with its entry and water-log counts,
// newest first. Backs the admin console's user table.
func (s *Store) ListUsers(ctx context.Context) ([]UserSummary, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT u.id, u.username, u.email, u.is_admin, u.created_at,
		       (SELECT COUNT(*) FROM entries e WHERE e.user_id = u.id),
		       (SELECT COUNT(*) FROM water_logs w WHERE w.user_id = u.id)
		FROM users u
		ORDER BY u.created_at DESC, u.id DESC`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []UserSummary
	for rows.Next() {
		var u UserSummary
		var email sql.NullString
		if err := rows.Scan(&u.ID, &u.Username, &email, &u.IsAdmin, &u.CreatedAt,
			&u.EntriesCount, &u.WaterLogCount); err != nil {
			return nil, fmt.Errorf("list users: %w", err)
		}
		if email.Valid {
			u.Email = &email.String
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// UserDetail returns one account with counts and last-activity times.
func (s *Store) UserDetail(ctx context.Context, userID int64) (*UserDetail, error) {
	var d UserDetail
	var email sql.NullString
	var lastEntry, lastWater sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT u.id, u.username, u.email, u.is_admin, u.created_at,
		       (SELECT COUNT(*) FROM entries e WHERE e.user_id = u.id),
		       (SELECT COUNT(*) FROM water_logs w WHERE w.user_id = u.id),
		       (SELECT MAX(created_at) FROM entries e WHERE e.user_id = u.id),
		       (SELECT MAX(created_at) FROM water_logs w WHERE w.user_id = u.id)
		FROM users u WHERE u.id = ?`, userID).
		Scan(&d.ID, &d.Username, &email, &d.IsAdmin, &d.CreatedAt,
			&d.EntriesCount, &d.WaterLogCount, &lastEntry, &lastWater)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("user detail: %w", err)
	}
	if email.Valid {
		d.Email = &email.String
	}
	if lastEntry.Valid {
		d.LastEntry = &lastEntry.Time
	}
	if lastWater.Valid {
		d.LastWaterLog = &lastWater.Time
	}
	return &d, nil
}

// Stats returns the admin dashboard aggregates with the five most recent
// signups.
func (s *Store) Stats(ctx context.Context) (*Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT (SELECT COUNT(*) FROM users),
		       (SELECT COUNT(*) FROM users WHERE is_admin = 1),
		       (SELECT COUNT(*) FROM entries),
		       (SELECT COUNT(*) FROM water_logs)`).
		Scan(&st.TotalUsers, &st.AdminCount, &st.TotalEntries, &st.TotalWaterLogs)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}

	rows, err := s.db.QueryContext(ctx,
		`SELECT username, created_at FROM users ORDER BY created_at DESC, id DESC LIMIT 5`)
	if err != nil {
		return nil, fmt.Errorf("stats: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var r RecentUser
		if err := rows.Scan(&r.Username, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("stats: %w", err)
		}
		st.RecentUsers = append(st.RecentUsers, r)
	}
	return &st, rows.Err()
}
