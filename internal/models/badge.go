package models

import (
	"time"
)

// BadgeCategory is the closed set of badge groupings.
type BadgeCategory string

// Badge categories.
const (
	BadgeCategoryLearning  BadgeCategory = "learning"
	BadgeCategoryCommunity BadgeCategory = "community"
	BadgeCategoryStreak    BadgeCategory = "streak"
	BadgeCategoryPoints    BadgeCategory = "points"
	BadgeCategorySpecial   BadgeCategory = "special"
)

// Valid reports whether the category is one of the known values.
func (c BadgeCategory) Valid() bool {
	switch c {
	case BadgeCategoryLearning, BadgeCategoryCommunity, BadgeCategoryStreak,
		BadgeCategoryPoints, BadgeCategorySpecial:
		return true
	}
	return false
}

// Badge is a static catalog entry. Badges are read-only configuration,
// seeded at startup, not user data.
type Badge struct {
	ID               uint          `gorm:"primaryKey" json:"id"`
	Code             string        `gorm:"uniqueIndex;not null;size:100" json:"code"`
	Name             string        `gorm:"not null;size:100" json:"name"`
	Description      string        `gorm:"type:text" json:"description"`
	Category         BadgeCategory `gorm:"not null;size:50" json:"category"`
	Tier             int           `gorm:"not null;default:1" json:"tier"` // 1-3
	PointsReward     int           `gorm:"not null;default:0" json:"points_reward"`
	RequirementType  string        `gorm:"not null;size:50" json:"requirement_type"`
	RequirementValue int           `gorm:"not null" json:"requirement_value"`
	CreatedAt        time.Time     `json:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at"`
}

// TableName specifies the table name for Badge model.
func (Badge) TableName() string {
	return "badges"
}

// UserBadge records a badge unlocked by a user. The composite unique
// index guarantees at most one row per (user, badge) pair, so unlocking
// is idempotent and irreversible.
type UserBadge struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	UserID     uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"user_id"`
	BadgeID    uint      `gorm:"not null;uniqueIndex:idx_user_badge" json:"badge_id"`
	Badge      Badge     `gorm:"foreignKey:BadgeID" json:"badge,omitempty"`
	UnlockedAt time.Time `gorm:"not null" json:"unlocked_at"`
}

// TableName specifies the table name for UserBadge model.
func (UserBadge) TableName() string {
	return "user_badges"
}
