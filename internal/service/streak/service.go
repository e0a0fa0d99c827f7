// Package streak derives consecutive-day login activity and pays the
// daily login and streak milestone bonuses through the ledger.
package streak

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ailearnhub/gamification/internal/metrics"
	"github.com/ailearnhub/gamification/internal/models"
	"github.com/ailearnhub/gamification/internal/repository"
	"github.com/ailearnhub/gamification/internal/rules"
	"github.com/ailearnhub/gamification/internal/service/ledger"
	"github.com/ailearnhub/gamification/pkg/logger"
)

// ErrDateBeforeLastLogin indicates a replayed or clock-skewed update:
// the supplied day precedes the recorded last login. State is untouched.
var ErrDateBeforeLastLogin = errors.New("login date precedes last recorded login")

// Repository is the streak persistence surface.
type Repository interface {
	Get(ctx context.Context, userID uint) (*models.UserStreak, error)
	Save(ctx context.Context, streak *models.UserStreak) error
}

// PointsAwarder credits streak bonuses; the ledger's own guard keeps
// them exactly-once.
type PointsAwarder interface {
	AddPoints(ctx context.Context, userID uint, action rules.ActionType, opts ledger.AwardOptions) (*ledger.AwardResult, error)
}

// BadgeEvaluator surfaces badges newly unlocked by a streak update.
type BadgeEvaluator interface {
	CheckAndUnlock(ctx context.Context, userID uint) ([]models.Badge, error)
}

// milestone pairs a streak length with its bonus action.
type milestone struct {
	days   int
	action rules.ActionType
}

// Milestones pay once per streak run; the idempotency key is derived
// from the streak start date.
var milestones = []milestone{
	{days: 7, action: rules.ActionWeeklyStreak},
	{days: 30, action: rules.ActionMonthlyStreak},
}

// Result reports the post-update streak state and any bonuses paid.
type Result struct {
	CurrentStreak  int            `json:"current_streak"`
	LongestStreak  int            `json:"longest_streak"`
	PointsEarned   int            `json:"points_earned"`
	UnlockedBadges []models.Badge `json:"unlocked_badges,omitempty"`
}

// Service is the streak tracker.
type Service struct {
	repo      Repository
	awarder   PointsAwarder
	evaluator BadgeEvaluator
	log       *logger.Logger
}

// NewService creates a new streak tracker.
func NewService(repo *repository.StreakRepository, awarder PointsAwarder, log *logger.Logger) *Service {
	return &Service{repo: repo, awarder: awarder, log: log}
}

// NewServiceWithInterfaces creates a new streak tracker with interface dependencies (useful for testing).
func NewServiceWithInterfaces(repo Repository, awarder PointsAwarder, log *logger.Logger) *Service {
	return &Service{repo: repo, awarder: awarder, log: log}
}

// SetBadgeEvaluator wires the optional badge evaluator so streak badges
// can be reported in the update result.
func (s *Service) SetBadgeEvaluator(ev BadgeEvaluator) {
	s.evaluator = ev
}

// toUTCDay truncates a time to its UTC calendar day. All users share the
// UTC day boundary.
func toUTCDay(t time.Time) time.Time {
	u := t.UTC()
	return time.Date(u.Year(), u.Month(), u.Day(), 0, 0, 0, 0, time.UTC)
}

// UpdateStreak advances the streak state machine for a login on the given
// day. Calling it again the same day is an idempotent no-op.
func (s *Service) UpdateStreak(ctx context.Context, userID uint, today time.Time) (*Result, error) {
	day := toUTCDay(today)

	st, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}

	switch {
	case st == nil:
		st = &models.UserStreak{
			UserID:          userID,
			CurrentStreak:   1,
			LongestStreak:   1,
			LastLoginDate:   day,
			StreakStartDate: day,
		}
		metrics.RecordStreakUpdate("started")

	case day.Equal(st.LastLoginDate):
		// Duplicate login event today; nothing changes.
		metrics.RecordStreakUpdate("same_day")
		return &Result{
			CurrentStreak: st.CurrentStreak,
			LongestStreak: st.LongestStreak,
		}, nil

	case day.Before(st.LastLoginDate):
		metrics.RecordStreakUpdate("rejected")
		return nil, fmt.Errorf("%w: got %s, last login %s",
			ErrDateBeforeLastLogin,
			day.Format("2006-01-02"),
			st.LastLoginDate.Format("2006-01-02"))

	case day.Equal(st.LastLoginDate.AddDate(0, 0, 1)):
		st.CurrentStreak++
		st.LastLoginDate = day
		metrics.RecordStreakUpdate("extended")

	default:
		// Missed at least one full day; the run restarts.
		st.CurrentStreak = 1
		st.LastLoginDate = day
		st.StreakStartDate = day
		metrics.RecordStreakUpdate("reset")
	}

	if st.CurrentStreak > st.LongestStreak {
		st.LongestStreak = st.CurrentStreak
	}

	if err := s.repo.Save(ctx, st); err != nil {
		return nil, fmt.Errorf("failed to save streak: %w", err)
	}

	result := &Result{
		CurrentStreak: st.CurrentStreak,
		LongestStreak: st.LongestStreak,
	}

	result.PointsEarned += s.award(ctx, userID, rules.ActionDailyLogin, ledger.AwardOptions{
		Description: "Daily login",
	})

	for _, m := range milestones {
		if st.CurrentStreak != m.days {
			continue
		}
		key := fmt.Sprintf("streak:%d:%s:%s", userID, m.action, st.StreakStartDate.Format("2006-01-02"))
		earned := s.award(ctx, userID, m.action, ledger.AwardOptions{
			IdempotencyKey: key,
			Description:    fmt.Sprintf("%d-day streak bonus", m.days),
		})
		if earned > 0 {
			metrics.RecordStreakMilestone(string(m.action))
		}
		result.PointsEarned += earned
	}

	s.log.Info().
		Uint("user_id", userID).
		Int("current_streak", st.CurrentStreak).
		Int("longest_streak", st.LongestStreak).
		Int("points_earned", result.PointsEarned).
		Msg("Streak updated")

	if s.evaluator != nil {
		badges, err := s.evaluator.CheckAndUnlock(ctx, userID)
		if err != nil {
			s.log.Warn().Err(err).Uint("user_id", userID).Msg("Badge evaluation after streak update failed")
		} else {
			result.UnlockedBadges = badges
		}
	}

	return result, nil
}

// GetStreak returns the current streak state, zero-valued for users who
// never logged in.
func (s *Service) GetStreak(ctx context.Context, userID uint) (*models.UserStreak, error) {
	st, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load streak: %w", err)
	}
	if st == nil {
		return &models.UserStreak{UserID: userID}, nil
	}
	return st, nil
}

// award pushes a credit through the ledger and reports the points that
// actually landed. A guard rejection is a normal zero.
func (s *Service) award(ctx context.Context, userID uint, action rules.ActionType, opts ledger.AwardOptions) int {
	res, err := s.awarder.AddPoints(ctx, userID, action, opts)
	if err != nil {
		s.log.Error().
			Err(err).
			Uint("user_id", userID).
			Str("action", string(action)).
			Msg("Failed to award streak points")
		return 0
	}
	if !res.Awarded {
		return 0
	}
	return res.PointsAdded
}
