package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/ailearnhub/gamification/internal/models"
)

// ErrInsufficientBalance is returned by Spend when the debit exceeds the
// user's available points.
var ErrInsufficientBalance = errors.New("insufficient balance")

// AwardStatus is the outcome of an Award attempt.
type AwardStatus int

// Award outcomes. Everything except AwardApplied leaves the ledger
// untouched and is a normal result, not an error.
const (
	AwardApplied AwardStatus = iota
	AwardDuplicate
	AwardDailyCapReached
	AwardDailyLimitReached
)

// AwardParams carries one prospective credit through the guarded,
// transactional award path. The caller (the ledger service) resolves the
// rule catalog; this layer owns atomicity.
type AwardParams struct {
	UserID        uint
	Points        int
	ActionType    string
	ReferenceID   string
	ReferenceType string
	// IdempotencyKey, when set, dedupes the award via the unique index on
	// point_transactions.idempotency_key.
	IdempotencyKey *string
	Description    string
	// DailyCap is the per-action occurrence cap for today, 0 = uncapped.
	DailyCap int
	// DailyPointLimit is the global positive-points cap for today,
	// 0 = unlimited. Ignored unless CountsTowardLimit is set.
	DailyPointLimit   int
	CountsTowardLimit bool
}

// SpendParams carries one debit attempt.
type SpendParams struct {
	UserID        uint
	Points        int // positive; recorded as a negative transaction
	ReferenceID   string
	ReferenceType string
	Description   string
}

// LedgerRepository owns the append-only transaction log and the derived
// per-user balance. All mutations run inside a single database
// transaction; awards lock the user's balance row first, so the guard
// counts cannot race with a concurrent award for the same user, and
// balance updates use atomic in-place increments.
type LedgerRepository struct {
	db *DB
}

// NewLedgerRepository creates a new ledger repository.
func NewLedgerRepository(db *DB) *LedgerRepository {
	return &LedgerRepository{db: db}
}

// startOfDayUTC truncates t to the UTC calendar day boundary.
func startOfDayUTC(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// ensureBalance creates the zero-valued balance row on first touch.
func ensureBalance(tx *gorm.DB, userID uint, bal *models.PointBalance) error {
	*bal = models.PointBalance{UserID: userID}
	return tx.Where(models.PointBalance{UserID: userID}).FirstOrCreate(bal).Error
}

// lockBalance re-reads the balance row FOR UPDATE, serializing
// concurrent awards for the same user before the guard counts run. On
// Postgres two sessions that both read yesterday's counts could
// otherwise both commit past a cap. sqlite has no row locks, but its
// single writer already serializes transactions.
func lockBalance(tx *gorm.DB, userID uint, bal *models.PointBalance) error {
	q := tx
	if tx.Dialector.Name() != "sqlite" {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return q.First(bal, "user_id = ?", userID).Error
}

// Award applies one guarded credit. Guard checks (duplicate, per-action
// daily cap, global daily limit) and the write commit in the same
// transaction; a rejection returns the untouched balance.
func (r *LedgerRepository) Award(ctx context.Context, p AwardParams) (AwardStatus, models.PointBalance, error) {
	var (
		status AwardStatus
		bal    models.PointBalance
	)

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureBalance(tx, p.UserID, &bal); err != nil {
			return err
		}
		if err := lockBalance(tx, p.UserID, &bal); err != nil {
			return err
		}

		dayStart := startOfDayUTC(time.Now())

		if p.IdempotencyKey != nil {
			var n int64
			if err := tx.Model(&models.PointTransaction{}).
				Where("idempotency_key = ?", *p.IdempotencyKey).
				Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				status = AwardDuplicate
				return nil
			}
		}

		if p.DailyCap > 0 {
			var n int64
			if err := tx.Model(&models.PointTransaction{}).
				Where("user_id = ? AND action_type = ? AND created_at >= ?", p.UserID, p.ActionType, dayStart).
				Count(&n).Error; err != nil {
				return err
			}
			if n >= int64(p.DailyCap) {
				status = AwardDailyCapReached
				return nil
			}
		}

		if p.CountsTowardLimit && p.DailyPointLimit > 0 {
			// Exempt credits (streak and badge bonuses, admin adjustments)
			// are stored with counts_toward_limit = false and must not
			// consume the user's regular daily headroom.
			var earned int64
			if err := tx.Model(&models.PointTransaction{}).
				Select("COALESCE(SUM(points), 0)").
				Where("user_id = ? AND points > 0 AND counts_toward_limit = ? AND created_at >= ?", p.UserID, true, dayStart).
				Scan(&earned).Error; err != nil {
				return err
			}
			if earned+int64(p.Points) > int64(p.DailyPointLimit) {
				status = AwardDailyLimitReached
				return nil
			}
		}

		txn := models.PointTransaction{
			UserID:            p.UserID,
			Points:            p.Points,
			ActionType:        p.ActionType,
			ReferenceID:       p.ReferenceID,
			ReferenceType:     p.ReferenceType,
			IdempotencyKey:    p.IdempotencyKey,
			Description:       p.Description,
			CountsTowardLimit: p.CountsTowardLimit,
		}
		if err := tx.Create(&txn).Error; err != nil {
			// A concurrent retry with the same key may commit between the
			// duplicate check and this insert; the unique index is the
			// authority.
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				status = AwardDuplicate
				return nil
			}
			return err
		}

		if err := tx.Model(&models.PointBalance{}).
			Where("user_id = ?", p.UserID).
			Updates(map[string]interface{}{
				"total_points":     gorm.Expr("total_points + ?", p.Points),
				"available_points": gorm.Expr("available_points + ?", p.Points),
			}).Error; err != nil {
			return err
		}

		status = AwardApplied
		return tx.First(&bal, "user_id = ?", p.UserID).Error
	})
	if err != nil {
		return 0, models.PointBalance{}, err
	}
	return status, bal, nil
}

// Spend applies one debit. The balance precondition and the decrement are
// a single conditional UPDATE, so a concurrent spend cannot overdraw.
func (r *LedgerRepository) Spend(ctx context.Context, p SpendParams) (models.PointBalance, error) {
	var bal models.PointBalance

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := ensureBalance(tx, p.UserID, &bal); err != nil {
			return err
		}

		res := tx.Model(&models.PointBalance{}).
			Where("user_id = ? AND available_points >= ?", p.UserID, p.Points).
			Updates(map[string]interface{}{
				"spent_points":     gorm.Expr("spent_points + ?", p.Points),
				"available_points": gorm.Expr("available_points - ?", p.Points),
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrInsufficientBalance
		}

		txn := models.PointTransaction{
			UserID:        p.UserID,
			Points:        -p.Points,
			ActionType:    "SPEND",
			ReferenceID:   p.ReferenceID,
			ReferenceType: p.ReferenceType,
			Description:   p.Description,
		}
		if err := tx.Create(&txn).Error; err != nil {
			return err
		}

		return tx.First(&bal, "user_id = ?", p.UserID).Error
	})
	if err != nil {
		return models.PointBalance{}, err
	}
	return bal, nil
}

// GetBalance returns the user's balance, creating a zero-valued row on
// first read.
func (r *LedgerRepository) GetBalance(ctx context.Context, userID uint) (models.PointBalance, error) {
	var bal models.PointBalance
	err := r.db.WithContext(ctx).
		Where(models.PointBalance{UserID: userID}).
		FirstOrCreate(&bal).Error
	return bal, err
}

// ListTransactions returns the user's transactions newest first.
func (r *LedgerRepository) ListTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.PointTransaction, error) {
	var txns []models.PointTransaction
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC, id DESC").
		Limit(limit).
		Offset(offset).
		Find(&txns).Error
	return txns, err
}

// CountByAction returns per-action counts of the user's positive
// transactions. The badge evaluator reads these as activity statistics.
func (r *LedgerRepository) CountByAction(ctx context.Context, userID uint) (map[string]int64, error) {
	type row struct {
		ActionType string
		N          int64
	}
	var rows []row
	err := r.db.WithContext(ctx).Model(&models.PointTransaction{}).
		Select("action_type, COUNT(*) as n").
		Where("user_id = ? AND points > 0", userID).
		Group("action_type").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	counts := make(map[string]int64, len(rows))
	for _, r := range rows {
		counts[r.ActionType] = r.N
	}
	return counts, nil
}
