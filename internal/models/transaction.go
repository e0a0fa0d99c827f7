// Package models defines domain models for the gamification ledger.
package models

import (
	"time"
)

// PointTransaction is a single immutable entry in the points ledger.
// Positive points are credits, negative points are debits. Rows are
// never updated or deleted once written.
type PointTransaction struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	UserID         uint      `gorm:"not null;index:idx_tx_user_action_day,priority:1" json:"user_id"`
	Points         int       `gorm:"not null" json:"points"`
	ActionType     string    `gorm:"not null;size:50;index:idx_tx_user_action_day,priority:2" json:"action_type"`
	ReferenceID    string    `gorm:"size:255" json:"reference_id,omitempty"`
	ReferenceType  string    `gorm:"size:50" json:"reference_type,omitempty"`
	IdempotencyKey *string `gorm:"uniqueIndex;size:255" json:"-"`
	Description    string  `gorm:"type:text" json:"description,omitempty"`
	// CountsTowardLimit marks credits that consume the user's global
	// daily point limit; exempt bonuses are stored with false.
	CountsTowardLimit bool      `gorm:"not null;default:false" json:"-"`
	CreatedAt         time.Time `gorm:"index:idx_tx_user_action_day,priority:3" json:"created_at"`
}

// TableName specifies the table name for PointTransaction model.
func (PointTransaction) TableName() string {
	return "point_transactions"
}

// PointBalance is the per-user aggregate derived from the transaction log.
// Invariant: AvailablePoints = TotalPoints - SpentPoints, and each column
// equals the sum of the corresponding signed transactions for the user.
type PointBalance struct {
	UserID          uint      `gorm:"primaryKey" json:"user_id"`
	TotalPoints     int       `gorm:"not null;default:0" json:"total_points"`
	SpentPoints     int       `gorm:"not null;default:0" json:"spent_points"`
	AvailablePoints int       `gorm:"not null;default:0" json:"available_points"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TableName specifies the table name for PointBalance model.
func (PointBalance) TableName() string {
	return "point_balances"
}
