package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/ailearnhub/gamification/internal/models"
)

// BadgeRepository handles badge-related database operations.
type BadgeRepository struct {
	db *DB
}

// NewBadgeRepository creates a new badge repository.
func NewBadgeRepository(db *DB) *BadgeRepository {
	return &BadgeRepository{db: db}
}

// SyncCatalog upserts the static badge catalog by code. Existing unlock
// rows are untouched; the catalog is configuration, not user data.
func (r *BadgeRepository) SyncCatalog(ctx context.Context, badges []models.Badge) error {
	for i := range badges {
		b := badges[i]
		var existing models.Badge
		err := r.db.WithContext(ctx).Where("code = ?", b.Code).First(&existing).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			if err := r.db.WithContext(ctx).Create(&b).Error; err != nil {
				return err
			}
		case err != nil:
			return err
		default:
			b.ID = existing.ID
			b.CreatedAt = existing.CreatedAt
			if err := r.db.WithContext(ctx).Save(&b).Error; err != nil {
				return err
			}
		}
	}
	return nil
}

// GetAll retrieves the badge catalog ordered by tier then code.
func (r *BadgeRepository) GetAll(ctx context.Context) ([]models.Badge, error) {
	var badges []models.Badge
	err := r.db.WithContext(ctx).Order("tier ASC, code ASC").Find(&badges).Error
	return badges, err
}

// GetByCode retrieves a badge by its unique code.
func (r *BadgeRepository) GetByCode(ctx context.Context, code string) (*models.Badge, error) {
	var badge models.Badge
	if err := r.db.WithContext(ctx).Where("code = ?", code).First(&badge).Error; err != nil {
		return nil, err
	}
	return &badge, nil
}

// HasUnlocked checks if a user already holds a specific badge.
func (r *BadgeRepository) HasUnlocked(ctx context.Context, userID, badgeID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserBadge{}).
		Where("user_id = ? AND badge_id = ?", userID, badgeID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// Unlock inserts the (user, badge) row. Returns false when the badge was
// already held: the unique index on (user_id, badge_id) decides, so
// concurrent evaluators cannot double-unlock.
func (r *BadgeRepository) Unlock(ctx context.Context, userID, badgeID uint) (bool, error) {
	userBadge := models.UserBadge{
		UserID:     userID,
		BadgeID:    badgeID,
		UnlockedAt: time.Now().UTC(),
	}
	err := r.db.WithContext(ctx).Create(&userBadge).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// GetUserBadges retrieves all badges unlocked by a user, newest first,
// with badge details preloaded.
func (r *BadgeRepository) GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	var userBadges []models.UserBadge
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Preload("Badge").
		Order("unlocked_at DESC").
		Find(&userBadges).Error
	return userBadges, err
}

// CountForUser returns the number of badges a user holds.
func (r *BadgeRepository) CountForUser(ctx context.Context, userID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserBadge{}).
		Where("user_id = ?", userID).
		Count(&count).Error
	return count, err
}

// CountHolders returns the number of users holding a specific badge.
func (r *BadgeRepository) CountHolders(ctx context.Context, badgeID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.UserBadge{}).
		Where("badge_id = ?", badgeID).
		Count(&count).Error
	return count, err
}
