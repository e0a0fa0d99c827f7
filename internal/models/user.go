package models

import (
	"time"
)

// User represents a learner account. Authentication and profile editing
// live in external services; this table holds the minimum the ledger and
// leaderboard need, including the join time used for rank tie-breaks.
type User struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Username  string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	Email     string    `gorm:"size:255" json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// LeaderboardEntry is a derived, non-authoritative projection rebuilt in
// full on every refresh cycle. It is never an origin of truth.
type LeaderboardEntry struct {
	ID            uint      `gorm:"primaryKey" json:"-"`
	Rank          int       `gorm:"not null" json:"rank"`
	UserID        uint      `gorm:"uniqueIndex;not null" json:"user_id"`
	Username      string    `gorm:"size:255" json:"username"`
	TotalPoints   int       `gorm:"not null" json:"total_points"`
	Level         int       `gorm:"not null" json:"level"`
	CurrentStreak int       `gorm:"not null" json:"current_streak"`
	BadgeCount    int       `gorm:"not null" json:"badge_count"`
	ComputedAt    time.Time `gorm:"not null" json:"computed_at"`
}

// TableName specifies the table name for LeaderboardEntry model.
func (LeaderboardEntry) TableName() string {
	return "leaderboard_entries"
}
