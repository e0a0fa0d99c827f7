package models

import (
	"time"
)

// UserStreak tracks consecutive-day login activity for a user.
// CurrentStreak never exceeds LongestStreak. Dates are stored as
// UTC calendar days (midnight-truncated).
type UserStreak struct {
	UserID          uint      `gorm:"primaryKey" json:"user_id"`
	CurrentStreak   int       `gorm:"not null;default:0" json:"current_streak"`
	LongestStreak   int       `gorm:"not null;default:0" json:"longest_streak"`
	LastLoginDate   time.Time `gorm:"not null" json:"last_login_date,omitzero"`
	StreakStartDate time.Time `gorm:"not null" json:"streak_start_date,omitzero"`
	UpdatedAt       time.Time `json:"updated_at,omitzero"`
}

// TableName specifies the table name for UserStreak model.
func (UserStreak) TableName() string {
	return "user_streaks"
}
