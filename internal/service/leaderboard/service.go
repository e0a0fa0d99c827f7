// Package leaderboard maintains the materialized ranking of all users
// and serves cached reads of it.
package leaderboard

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/ailearnhub/gamification/internal/cache"
	prommetrics "github.com/ailearnhub/gamification/internal/metrics"
	"github.com/ailearnhub/gamification/internal/models"
	"github.com/ailearnhub/gamification/internal/repository"
	"github.com/ailearnhub/gamification/internal/rules"
	"github.com/ailearnhub/gamification/pkg/logger"
)

const cacheKeyPrefix = "leaderboard:top:"

// Repository is the leaderboard persistence surface.
type Repository interface {
	CollectRows(ctx context.Context) ([]repository.RankingRow, error)
	ReplaceAll(ctx context.Context, entries []models.LeaderboardEntry) error
	Top(ctx context.Context, n int) ([]models.LeaderboardEntry, error)
}

// Service rebuilds and serves the leaderboard.
type Service struct {
	repo     Repository
	cache    cache.Cache
	cacheTTL time.Duration
	maxLimit int
	log      *logger.Logger
}

// NewService creates a new leaderboard service. cacheTTL and maxLimit
// come from gamification config; a nil cache disables caching.
func NewService(repo *repository.LeaderboardRepository, c cache.Cache, cacheTTL time.Duration, maxLimit int, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, cacheTTL: cacheTTL, maxLimit: maxLimit, log: log}
}

// NewServiceWithInterfaces creates a new leaderboard service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(repo Repository, c cache.Cache, cacheTTL time.Duration, maxLimit int, log *logger.Logger) *Service {
	return &Service{repo: repo, cache: c, cacheTTL: cacheTTL, maxLimit: maxLimit, log: log}
}

// rankRows orders ranking rows deterministically: total points
// descending, then current streak descending, then earliest join date,
// then lowest user ID. Equal inputs always produce the same order.
func rankRows(rows []repository.RankingRow) {
	sort.Slice(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.TotalPoints != b.TotalPoints {
			return a.TotalPoints > b.TotalPoints
		}
		if a.CurrentStreak != b.CurrentStreak {
			return a.CurrentStreak > b.CurrentStreak
		}
		if !a.JoinedAt.Equal(b.JoinedAt) {
			return a.JoinedAt.Before(b.JoinedAt)
		}
		return a.UserID < b.UserID
	})
}

// Refresh rebuilds the leaderboard from scratch and invalidates the
// cache. Readers keep seeing the previous ranking until the swap
// completes.
func (s *Service) Refresh(ctx context.Context) error {
	start := time.Now()

	rows, err := s.repo.CollectRows(ctx)
	if err != nil {
		prommetrics.RecordLeaderboardRefresh("error")
		return fmt.Errorf("failed to collect ranking rows: %w", err)
	}

	rankRows(rows)

	now := time.Now().UTC()
	entries := make([]models.LeaderboardEntry, len(rows))
	for i, row := range rows {
		entries[i] = models.LeaderboardEntry{
			Rank:          i + 1,
			UserID:        row.UserID,
			Username:      row.Username,
			TotalPoints:   row.TotalPoints,
			Level:         rules.LevelFor(row.TotalPoints),
			CurrentStreak: row.CurrentStreak,
			BadgeCount:    row.BadgeCount,
			ComputedAt:    now,
		}
	}

	if err := s.repo.ReplaceAll(ctx, entries); err != nil {
		prommetrics.RecordLeaderboardRefresh("error")
		return fmt.Errorf("failed to store leaderboard: %w", err)
	}

	s.invalidateCache(ctx)

	duration := time.Since(start)
	prommetrics.RecordLeaderboardRefresh("success")
	prommetrics.SetLeaderboardSize(len(entries))
	prommetrics.ObserveLeaderboardRefreshDuration(duration.Seconds())

	s.log.Info().
		Int("entries", len(entries)).
		Dur("duration", duration).
		Msg("Leaderboard refreshed")

	return nil
}

// GetTop returns the highest-ranked entries. The limit is clamped to
// the configured maximum; non-positive limits get the default page.
func (s *Service) GetTop(ctx context.Context, limit int) ([]models.LeaderboardEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	cacheKey := fmt.Sprintf("%s%d", cacheKeyPrefix, limit)
	if s.cache != nil {
		cached, err := s.cache.Get(ctx, cacheKey)
		if err != nil {
			s.log.Warn().Err(err).Msg("Leaderboard cache read failed")
		} else if cached != "" {
			var entries []models.LeaderboardEntry
			if uerr := json.Unmarshal([]byte(cached), &entries); uerr == nil {
				return entries, nil
			}
			// Corrupt cache entry; drop it and fall through to the DB.
			_ = s.cache.Del(ctx, cacheKey)
		}
	}

	entries, err := s.repo.Top(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load leaderboard: %w", err)
	}

	if s.cache != nil {
		if data, err := json.Marshal(entries); err == nil {
			if err := s.cache.Set(ctx, cacheKey, string(data), s.cacheTTL); err != nil {
				s.log.Warn().Err(err).Msg("Leaderboard cache write failed")
			}
		}
	}

	return entries, nil
}

// invalidateCache drops every cached page size up to the configured
// maximum. Cache keys are deterministic so no scan is needed.
func (s *Service) invalidateCache(ctx context.Context) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, s.maxLimit)
	for n := 1; n <= s.maxLimit; n++ {
		keys = append(keys, fmt.Sprintf("%s%d", cacheKeyPrefix, n))
	}
	if err := s.cache.Del(ctx, keys...); err != nil {
		s.log.Warn().Err(err).Msg("Leaderboard cache invalidation failed")
	}
}
