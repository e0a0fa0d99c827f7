package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/ailearnhub/gamification/internal/models"
)

// RankingRow is the raw per-user material a leaderboard rebuild reads:
// balance, streak, badge count and join time in one pass.
type RankingRow struct {
	UserID        uint
	Username      string
	TotalPoints   int
	CurrentStreak int
	BadgeCount    int
	JoinedAt      time.Time
}

// LeaderboardRepository persists the derived ranking projection.
type LeaderboardRepository struct {
	db *DB
}

// NewLeaderboardRepository creates a new leaderboard repository.
func NewLeaderboardRepository(db *DB) *LeaderboardRepository {
	return &LeaderboardRepository{db: db}
}

// CollectRows reads the ranking material for every user. The read is not
// linearizable with the ledger; the leaderboard accepts slightly stale
// snapshots.
func (r *LeaderboardRepository) CollectRows(ctx context.Context) ([]RankingRow, error) {
	var rows []RankingRow
	err := r.db.WithContext(ctx).Raw(`
		SELECT u.id AS user_id,
		       u.username AS username,
		       u.created_at AS joined_at,
		       COALESCE(pb.total_points, 0) AS total_points,
		       COALESCE(us.current_streak, 0) AS current_streak,
		       COALESCE(ub.n, 0) AS badge_count
		FROM users u
		LEFT JOIN point_balances pb ON pb.user_id = u.id
		LEFT JOIN user_streaks us ON us.user_id = u.id
		LEFT JOIN (
			SELECT user_id, COUNT(*) AS n FROM user_badges GROUP BY user_id
		) ub ON ub.user_id = u.id
	`).Scan(&rows).Error
	return rows, err
}

// ReplaceAll swaps the full set of leaderboard entries in one
// transaction. No partial updates: the aggregator is stateless between
// runs.
func (r *LeaderboardRepository) ReplaceAll(ctx context.Context, entries []models.LeaderboardEntry) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&models.LeaderboardEntry{}).Error; err != nil {
			return err
		}
		if len(entries) == 0 {
			return nil
		}
		return tx.CreateInBatches(entries, 200).Error
	})
}

// Top returns the first n entries by rank.
func (r *LeaderboardRepository) Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error) {
	var entries []models.LeaderboardEntry
	err := r.db.WithContext(ctx).
		Order("rank ASC").
		Limit(n).
		Find(&entries).Error
	return entries, err
}
