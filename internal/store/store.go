// Package store implements SQLite persistence for users and their
// tracking data (body-fat entries, water intake, weight).
package store

import (
	"errors"
	"time"
)

// ErrNotFound is returned when a row does not exist or is not owned by
// the requesting user.
var ErrNotFound = errors.New("store: not found")

// ErrDuplicateUsername is returned when a signup collides with an
// existing username or email.
var ErrDuplicateUsername = errors.New("store: username or email already taken")

// User is an account row. PasswordHash never leaves the server.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	Email        *string   `json:"email"`
	PasswordHash string    `json:"-"`
	IsAdmin      bool      `json:"is_admin"`
	CreatedAt    time.Time `json:"created_at"`
}

// Entry is one body-fat measurement.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	Sex       string    `json:"sex"`
	Height    float64   `json:"height"`
	Neck      float64   `json:"neck"`
	Waist     float64   `json:"waist"`
	Hip       float64   `json:"hip"`
	BodyFat   float64   `json:"bf"`
	Group     string    `json:"group"`
	CreatedAt time.Time `json:"timestamp"`
}

// WaterLog is one logged drink.
type WaterLog struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	AmountML  int64     `json:"amount"`
	CreatedAt time.Time `json:"timestamp"`
}

// WeightLog is one weigh-in.
type WeightLog struct {
	ID        int64     `json:"id"`
	UserID    int64     `json:"-"`
	WeightKG  float64   `json:"weight"`
	CreatedAt time.Time `json:"timestamp"`
}

// UserSummary is the admin console's per-user row.
type UserSummary struct {
	ID            int64     `json:"id"`
	Username      string    `json:"username"`
	Email         *string   `json:"email"`
	IsAdmin       bool      `json:"is_admin"`
	CreatedAt     time.Time `json:"created_at"`
	EntriesCount  int64     `json:"entries_count"`
	WaterLogCount int64     `json:"water_logs_count"`
}

// UserDetail extends UserSummary with last-activity timestamps.
type UserDetail struct {
	UserSummary
	LastEntry    *time.Time `json:"last_entry"`
	LastWaterLog *time.Time `json:"last_water_log"`
}

// Stats is the admin dashboard aggregate.
type Stats struct {
	TotalUsers     int64        `json:"totalUsers"`
	AdminCount     int64        `json:"adminCount"`
	TotalEntries   int64        `json:"totalEntries"`
	TotalWaterLogs int64        `json:"totalWaterLogs"`
	RecentUsers    []RecentUser `json:"recentUsers"`
}

// RecentUser is one row of the dashboard's recent signups list.
type RecentUser struct {
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}
