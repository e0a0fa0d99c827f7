// Package badges provides badge evaluation and management services.
package badges

import (
	"context"
	"fmt"
	"time"

	prommetrics "github.com/ailearnhub/gamification/internal/metrics"
	"github.com/ailearnhub/gamification/internal/models"
	"github.com/ailearnhub/gamification/internal/repository"
	"github.com/ailearnhub/gamification/internal/rules"
	"github.com/ailearnhub/gamification/internal/service/ledger"
	"github.com/ailearnhub/gamification/pkg/logger"
)

// BadgeRepository interface for badge catalog and unlock operations.
type BadgeRepository interface {
	SyncCatalog(ctx context.Context, badges []models.Badge) error
	GetAll(ctx context.Context) ([]models.Badge, error)
	GetByCode(ctx context.Context, code string) (*models.Badge, error)
	HasUnlocked(ctx context.Context, userID, badgeID uint) (bool, error)
	Unlock(ctx context.Context, userID, badgeID uint) (bool, error)
	GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error)
	CountForUser(ctx context.Context, userID uint) (int64, error)
	CountHolders(ctx context.Context, badgeID uint) (int64, error)
}

// LedgerRepository interface for the activity counters badges are judged on.
type LedgerRepository interface {
	GetBalance(ctx context.Context, userID uint) (models.PointBalance, error)
	CountByAction(ctx context.Context, userID uint) (map[string]int64, error)
}

// StreakRepository interface for streak state.
type StreakRepository interface {
	Get(ctx context.Context, userID uint) (*models.UserStreak, error)
}

// UserRepository interface for user enumeration.
type UserRepository interface {
	ListIDs(ctx context.Context) ([]uint, error)
}

// PointsAwarder pays one-time badge rewards through the ledger.
type PointsAwarder interface {
	AddPoints(ctx context.Context, userID uint, action rules.ActionType, opts ledger.AwardOptions) (*ledger.AwardResult, error)
}

// Service handles badge evaluation and awarding.
type Service struct {
	badgeRepo  BadgeRepository
	ledgerRepo LedgerRepository
	streakRepo StreakRepository
	userRepo   UserRepository
	awarder    PointsAwarder
	log        *logger.Logger
}

// NewService creates a new badge service.
func NewService(
	badgeRepo *repository.BadgeRepository,
	ledgerRepo *repository.LedgerRepository,
	streakRepo *repository.StreakRepository,
	userRepo *repository.UserRepository,
	awarder PointsAwarder,
	log *logger.Logger,
) *Service {
	return &Service{
		badgeRepo:  badgeRepo,
		ledgerRepo: ledgerRepo,
		streakRepo: streakRepo,
		userRepo:   userRepo,
		awarder:    awarder,
		log:        log,
	}
}

// NewServiceWithInterfaces creates a new badge service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(
	badgeRepo BadgeRepository,
	ledgerRepo LedgerRepository,
	streakRepo StreakRepository,
	userRepo UserRepository,
	awarder PointsAwarder,
	log *logger.Logger,
) *Service {
	return &Service{
		badgeRepo:  badgeRepo,
		ledgerRepo: ledgerRepo,
		streakRepo: streakRepo,
		userRepo:   userRepo,
		awarder:    awarder,
		log:        log,
	}
}

// statActions maps requirement stat names onto the ledger actions that
// feed them. Actions missing here are covered by the dedicated stats
// (points, streaks, badge count) below.
var statActions = map[string]rules.ActionType{
	"lessons_completed":    rules.ActionLessonComplete,
	"workshop_checkins":    rules.ActionWorkshopCheckin,
	"workshop_submissions": rules.ActionWorkshopSubmission,
	"course_reviews":       rules.ActionCourseReview,
	"course_questions":     rules.ActionCourseQuestion,
	"course_answers":       rules.ActionCourseAnswer,
	"tool_ratings":         rules.ActionToolRating,
	"tool_experiences":     rules.ActionToolExperience,
	"discussion_posts":     rules.ActionDiscussionPost,
	"comments":             rules.ActionComment,
	"logins":               rules.ActionDailyLogin,
}

// userStats is a point-in-time snapshot of everything a badge
// requirement can be judged against.
type userStats struct {
	totalPoints   int
	currentStreak int
	longestStreak int
	badgeCount    int64
	actionCounts  map[string]int64
}

// stat resolves a requirement type against the snapshot. Unknown
// requirement types report ok=false and are skipped by the evaluator.
func (u *userStats) stat(requirementType string) (int64, bool) {
	switch requirementType {
	case "total_points":
		return int64(u.totalPoints), true
	case "current_streak":
		return int64(u.currentStreak), true
	case "longest_streak":
		return int64(u.longestStreak), true
	case "badge_count":
		return u.badgeCount, true
	}
	action, ok := statActions[requirementType]
	if !ok {
		return 0, false
	}
	return u.actionCounts[string(action)], true
}

// collectStats loads the user's full stats snapshot.
func (s *Service) collectStats(ctx context.Context, userID uint) (*userStats, error) {
	bal, err := s.ledgerRepo.GetBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}

	counts, err := s.ledgerRepo.CountByAction(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count actions: %w", err)
	}

	badgeCount, err := s.badgeRepo.CountForUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count badges: %w", err)
	}

	stats := &userStats{
		totalPoints:  bal.TotalPoints,
		badgeCount:   badgeCount,
		actionCounts: counts,
	}

	streak, err := s.streakRepo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get streak: %w", err)
	}
	if streak != nil {
		stats.currentStreak = streak.CurrentStreak
		stats.longestStreak = streak.LongestStreak
	}

	return stats, nil
}

// CheckAndUnlock evaluates every badge the user does not yet hold and
// unlocks the ones whose requirement is met. Returns the newly unlocked
// badges. Concurrent evaluations of the same user settle on a single
// unlock per badge.
func (s *Service) CheckAndUnlock(ctx context.Context, userID uint) ([]models.Badge, error) {
	badges, err := s.badgeRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get badges: %w", err)
	}

	stats, err := s.collectStats(ctx, userID)
	if err != nil {
		return nil, err
	}

	var unlocked []models.Badge
	for _, badge := range badges {
		held, err := s.badgeRepo.HasUnlocked(ctx, userID, badge.ID)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("badge_code", badge.Code).
				Msg("Failed to check badge ownership")
			continue
		}
		if held {
			continue
		}

		value, ok := stats.stat(badge.RequirementType)
		if !ok {
			s.log.Warn().
				Str("badge_code", badge.Code).
				Str("requirement_type", badge.RequirementType).
				Msg("Badge has unknown requirement type, skipping")
			continue
		}
		if value < int64(badge.RequirementValue) {
			continue
		}

		created, err := s.badgeRepo.Unlock(ctx, userID, badge.ID)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Str("badge_code", badge.Code).
				Msg("Failed to unlock badge")
			continue
		}
		if !created {
			// Lost the race to another evaluation of the same user.
			continue
		}

		prommetrics.RecordBadgeUnlocked(badge.Code)
		s.log.Info().
			Uint("user_id", userID).
			Str("badge_code", badge.Code).
			Int("tier", badge.Tier).
			Msg("Badge unlocked")

		s.payReward(ctx, userID, badge)
		stats.badgeCount++
		unlocked = append(unlocked, badge)
	}

	return unlocked, nil
}

// payReward credits the badge's one-time point reward. The ledger keys
// the credit on (user, badge code), so replays collapse to a no-op.
func (s *Service) payReward(ctx context.Context, userID uint, badge models.Badge) {
	if badge.PointsReward <= 0 {
		return
	}
	_, err := s.awarder.AddPoints(ctx, userID, rules.ActionBadgeReward, ledger.AwardOptions{
		ReferenceID:    badge.Code,
		ReferenceType:  "badge",
		Description:    fmt.Sprintf("Badge reward: %s", badge.Name),
		PointsOverride: badge.PointsReward,
	})
	if err != nil {
		s.log.Error().
			Err(err).
			Uint("user_id", userID).
			Str("badge_code", badge.Code).
			Msg("Failed to pay badge reward")
	}
}

// EvaluateAll runs badge evaluation for every registered user.
// This is typically run as a scheduled job.
// Returns the number of badges unlocked.
func (s *Service) EvaluateAll(ctx context.Context) (int, error) {
	s.log.Info().Msg("Starting badge evaluation for all users")
	start := time.Now()

	userIDs, err := s.userRepo.ListIDs(ctx)
	if err != nil {
		prommetrics.RecordBadgeSweepRun("error")
		return 0, fmt.Errorf("failed to list users: %w", err)
	}

	unlockedCount := 0
	for _, userID := range userIDs {
		unlocked, err := s.CheckAndUnlock(ctx, userID)
		if err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", userID).
				Msg("Badge evaluation failed for user")
			continue
		}
		unlockedCount += len(unlocked)
	}

	duration := time.Since(start)
	prommetrics.RecordBadgeSweepRun("success")
	prommetrics.ObserveBadgeSweepDuration(duration.Seconds())

	s.log.Info().
		Int("users", len(userIDs)).
		Int("badges_unlocked", unlockedCount).
		Dur("duration", duration).
		Msg("Badge evaluation completed")

	return unlockedCount, nil
}

// GetCatalog returns the full badge catalog.
func (s *Service) GetCatalog(ctx context.Context) ([]models.Badge, error) {
	return s.badgeRepo.GetAll(ctx)
}

// GetUserBadges returns the badges a user has unlocked, newest first.
func (s *Service) GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error) {
	return s.badgeRepo.GetUserBadges(ctx, userID)
}

// SeedCatalog writes the badge catalog into the database, upserting by
// code. An empty list falls back to the built-in defaults.
func (s *Service) SeedCatalog(ctx context.Context, badges []models.Badge) error {
	if len(badges) == 0 {
		badges = DefaultCatalog()
	}
	if err := s.badgeRepo.SyncCatalog(ctx, badges); err != nil {
		return fmt.Errorf("failed to seed badge catalog: %w", err)
	}
	s.log.Info().Int("count", len(badges)).Msg("Badge catalog seeded")
	return nil
}
