// Package scheduler runs the periodic leaderboard refresh and the daily
// all-user badge evaluation sweep.
package scheduler

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/ailearnhub/gamification/internal/config"
	"github.com/ailearnhub/gamification/internal/service/badges"
	"github.com/ailearnhub/gamification/internal/service/leaderboard"
	"github.com/ailearnhub/gamification/pkg/logger"
)

// Service schedules the recurring gamification jobs.
type Service struct {
	config             *config.Config
	badgeService       *badges.Service
	leaderboardService *leaderboard.Service
	log                *logger.Logger
	cron               *cron.Cron
}

// NewService creates a new scheduler service.
func NewService(
	cfg *config.Config,
	badgeService *badges.Service,
	leaderboardService *leaderboard.Service,
	log *logger.Logger,
) *Service {
	return &Service{
		config:             cfg,
		badgeService:       badgeService,
		leaderboardService: leaderboardService,
		log:                log,
	}
}

// Start initializes and starts the cron scheduler.
func (s *Service) Start() error {
	if !s.config.Scheduler.Enabled {
		s.log.Info().Msg("Scheduler is disabled in configuration")
		return nil
	}

	location, err := time.LoadLocation(s.config.Scheduler.Timezone)
	if err != nil {
		return fmt.Errorf("invalid timezone %q: %w", s.config.Scheduler.Timezone, err)
	}

	s.cron = cron.New(cron.WithLocation(location))

	if s.config.Scheduler.LeaderboardRefreshCron != "" {
		_, err = s.cron.AddFunc(s.config.Scheduler.LeaderboardRefreshCron, func() {
			s.runLeaderboardRefresh(context.Background())
		})
		if err != nil {
			return fmt.Errorf("failed to register leaderboard refresh job: %w", err)
		}
		s.log.Info().
			Str("schedule", s.config.Scheduler.LeaderboardRefreshCron).
			Msg("Leaderboard refresh job registered")
	}

	if s.config.Scheduler.BadgeSweepTime != "" {
		cronExpr, err := dailyCronExpression(s.config.Scheduler.BadgeSweepTime)
		if err != nil {
			return fmt.Errorf("failed to build badge sweep schedule: %w", err)
		}
		_, err = s.cron.AddFunc(cronExpr, func() {
			s.runBadgeSweep(context.Background())
		})
		if err != nil {
			return fmt.Errorf("failed to register badge sweep job: %w", err)
		}
		s.log.Info().
			Str("schedule", cronExpr).
			Msg("Badge sweep job registered")
	}

	s.cron.Start()

	entries := s.cron.Entries()
	nextRun := ""
	if len(entries) > 0 {
		nextRun = entries[0].Next.Format(time.RFC3339)
	}

	s.log.Info().
		Str("timezone", s.config.Scheduler.Timezone).
		Int("jobs", len(entries)).
		Str("next_run", nextRun).
		Msg("Scheduler started successfully")

	return nil
}

// Stop gracefully shuts down the scheduler, waiting for running jobs.
func (s *Service) Stop() {
	if s.cron != nil {
		ctx := s.cron.Stop()
		<-ctx.Done()
		s.log.Info().Msg("Scheduler stopped")
	}
}

// dailyCronExpression converts an "HH:MM" time into a daily cron
// expression.
func dailyCronExpression(at string) (string, error) {
	parts := strings.Split(at, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid time format %q, expected HH:MM", at)
	}

	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid hour %q", parts[0])
	}

	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid minute %q", parts[1])
	}

	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}

// runLeaderboardRefresh executes one leaderboard rebuild.
func (s *Service) runLeaderboardRefresh(ctx context.Context) {
	s.log.Debug().Msg("Running scheduled leaderboard refresh")
	if err := s.leaderboardService.Refresh(ctx); err != nil {
		s.log.Error().Err(err).Msg("Scheduled leaderboard refresh failed")
	}
}

// runBadgeSweep executes one all-user badge evaluation.
func (s *Service) runBadgeSweep(ctx context.Context) {
	s.log.Info().Msg("Running scheduled badge sweep")
	if _, err := s.badgeService.EvaluateAll(ctx); err != nil {
		s.log.Error().Err(err).Msg("Scheduled badge sweep failed")
	}
}
