// Command server runs the gamification HTTP API with its background
// scheduler.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/ailearnhub/gamification/internal/api/gamification"
	"github.com/ailearnhub/gamification/internal/cache"
	"github.com/ailearnhub/gamification/internal/config"
	"github.com/ailearnhub/gamification/internal/models"
	"github.com/ailearnhub/gamification/internal/repository"
	"github.com/ailearnhub/gamification/internal/rules"
	"github.com/ailearnhub/gamification/internal/service/badges"
	"github.com/ailearnhub/gamification/internal/service/ledger"
	"github.com/ailearnhub/gamification/internal/service/leaderboard"
	"github.com/ailearnhub/gamification/internal/service/scheduler"
	"github.com/ailearnhub/gamification/internal/service/streak"
	"github.com/ailearnhub/gamification/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format, "stdout")

	if err := rules.Validate(); err != nil {
		log.Fatal().Err(err).Msg("Invalid action catalog")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Server exited with error")
	}
}

func run(cfg *config.Config, log *logger.Logger) error {
	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	redisCache, err := cache.NewRedis(&cfg.Database.Redis)
	if err != nil {
		return fmt.Errorf("failed to connect to redis: %w", err)
	}

	// Repositories.
	ledgerRepo := repository.NewLedgerRepository(db)
	streakRepo := repository.NewStreakRepository(db)
	badgeRepo := repository.NewBadgeRepository(db)
	userRepo := repository.NewUserRepository(db)
	leaderboardRepo := repository.NewLeaderboardRepository(db)

	// Services.
	ledgerService := ledger.NewService(ledgerRepo, cfg.Gamification.DailyPointLimit, log)
	badgeService := badges.NewService(badgeRepo, ledgerRepo, streakRepo, userRepo, ledgerService, log)
	ledgerService.SetBadgeEvaluator(badgeService)

	streakService := streak.NewService(streakRepo, ledgerService, log)
	streakService.SetBadgeEvaluator(badgeService)

	leaderboardService := leaderboard.NewService(
		leaderboardRepo,
		redisCache,
		time.Duration(cfg.Gamification.LeaderboardCacheTTL)*time.Second,
		cfg.Gamification.LeaderboardMaxLimit,
		log,
	)

	ctx := context.Background()
	if err := badgeService.SeedCatalog(ctx, badgeCatalogFromConfig(cfg.Badges)); err != nil {
		return err
	}

	sched := scheduler.NewService(cfg, badgeService, leaderboardService, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// HTTP server.
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())

	handler := gamification.NewHandler(ledgerService, streakService, badgeService, leaderboardService, userRepo, log)
	handler.RegisterRoutes(router)

	if cfg.Metrics.Prometheus.Enabled {
		router.GET(cfg.Metrics.Prometheus.Path, gin.WrapH(promhttp.Handler()))
	}

	router.GET("/healthz", func(c *gin.Context) {
		if err := db.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	stopCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	select {
	case err := <-errCh:
		return fmt.Errorf("server error: %w", err)
	case <-stopCtx.Done():
	}

	log.Info().Msg("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server shutdown: %w", err)
	}

	return nil
}

// badgeCatalogFromConfig converts configured badge entries into catalog
// models. An empty config falls back to the built-in defaults inside
// SeedCatalog.
func badgeCatalogFromConfig(entries []config.BadgeConfig) []models.Badge {
	catalog := make([]models.Badge, 0, len(entries))
	for _, b := range entries {
		catalog = append(catalog, models.Badge{
			Code:             b.Code,
			Name:             b.Name,
			Description:      b.Description,
			Category:         models.BadgeCategory(b.Category),
			Tier:             b.Tier,
			PointsReward:     b.PointsReward,
			RequirementType:  b.RequirementType,
			RequirementValue: b.RequirementValue,
		})
	}
	return catalog
}
