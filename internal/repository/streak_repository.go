package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/ailearnhub/gamification/internal/models"
)

// StreakRepository handles streak-related database operations.
type StreakRepository struct {
	db *DB
}

// NewStreakRepository creates a new streak repository.
func NewStreakRepository(db *DB) *StreakRepository {
	return &StreakRepository{db: db}
}

// Get retrieves a user's streak record, or nil when the user has never
// logged in.
func (r *StreakRepository) Get(ctx context.Context, userID uint) (*models.UserStreak, error) {
	var streak models.UserStreak
	err := r.db.WithContext(ctx).First(&streak, "user_id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &streak, nil
}

// Save upserts the streak record. The streak tracker is the only writer.
func (r *StreakRepository) Save(ctx context.Context, streak *models.UserStreak) error {
	return r.db.WithContext(ctx).Save(streak).Error
}
