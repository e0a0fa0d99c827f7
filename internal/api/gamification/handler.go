// Package gamification provides the REST API for the points ledger,
// streaks, badges, and leaderboard.
package gamification

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ailearnhub/gamification/internal/models"
	"github.com/ailearnhub/gamification/internal/rules"
	"github.com/ailearnhub/gamification/internal/service/badges"
	"github.com/ailearnhub/gamification/internal/service/ledger"
	"github.com/ailearnhub/gamification/internal/service/leaderboard"
	"github.com/ailearnhub/gamification/internal/service/streak"
	"github.com/ailearnhub/gamification/pkg/logger"
)

// LedgerService interface for points operations.
type LedgerService interface {
	AddPoints(ctx context.Context, userID uint, action rules.ActionType, opts ledger.AwardOptions) (*ledger.AwardResult, error)
	AdjustPoints(ctx context.Context, userID uint, delta int, description string) (*ledger.AwardResult, error)
	SpendPoints(ctx context.Context, userID uint, points int, opts ledger.AwardOptions) (*ledger.SpendResult, error)
	GetBalance(ctx context.Context, userID uint) (*ledger.Balance, error)
	GetTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.PointTransaction, error)
}

// StreakService interface for streak operations.
type StreakService interface {
	UpdateStreak(ctx context.Context, userID uint, today time.Time) (*streak.Result, error)
	GetStreak(ctx context.Context, userID uint) (*models.UserStreak, error)
}

// BadgeService interface for badge operations.
type BadgeService interface {
	CheckAndUnlock(ctx context.Context, userID uint) ([]models.Badge, error)
	GetCatalog(ctx context.Context) ([]models.Badge, error)
	GetUserBadges(ctx context.Context, userID uint) ([]models.UserBadge, error)
}

// LeaderboardService interface for leaderboard operations.
type LeaderboardService interface {
	GetTop(ctx context.Context, limit int) ([]models.LeaderboardEntry, error)
	Refresh(ctx context.Context) error
}

// UserRegistry interface for user registration and lookup.
type UserRegistry interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uint) (*models.User, error)
}

// Handler handles gamification API requests.
type Handler struct {
	ledgerService      LedgerService
	streakService      StreakService
	badgeService       BadgeService
	leaderboardService LeaderboardService
	users              UserRegistry
	log                *logger.Logger
}

// NewHandler creates a new gamification handler.
func NewHandler(
	ledgerService *ledger.Service,
	streakService *streak.Service,
	badgeService *badges.Service,
	leaderboardService *leaderboard.Service,
	users UserRegistry,
	log *logger.Logger,
) *Handler {
	return &Handler{
		ledgerService:      ledgerService,
		streakService:      streakService,
		badgeService:       badgeService,
		leaderboardService: leaderboardService,
		users:              users,
		log:                log,
	}
}

// NewHandlerWithInterfaces creates a new gamification handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(
	ledgerService LedgerService,
	streakService StreakService,
	badgeService BadgeService,
	leaderboardService LeaderboardService,
	users UserRegistry,
	log *logger.Logger,
) *Handler {
	return &Handler{
		ledgerService:      ledgerService,
		streakService:      streakService,
		badgeService:       badgeService,
		leaderboardService: leaderboardService,
		users:              users,
		log:                log,
	}
}

// RegisterRoutes mounts all gamification endpoints under the router.
func (h *Handler) RegisterRoutes(router gin.IRouter) {
	v1 := router.Group("/api/v1")

	v1.POST("/points", h.AddPoints)
	v1.POST("/points/adjust", h.AdjustPoints)
	v1.POST("/points/spend", h.SpendPoints)

	v1.POST("/users", h.CreateUser)
	v1.GET("/users/:id", h.GetUser)
	v1.GET("/users/:id/balance", h.GetBalance)
	v1.GET("/users/:id/transactions", h.GetTransactions)
	v1.GET("/users/:id/streak", h.GetStreak)
	v1.POST("/users/:id/streak", h.UpdateStreak)
	v1.GET("/users/:id/badges", h.GetUserBadges)
	v1.POST("/users/:id/badges/evaluate", h.EvaluateBadges)

	v1.GET("/badges", h.GetBadgeCatalog)

	v1.GET("/leaderboard", h.GetLeaderboard)
	v1.POST("/leaderboard/refresh", h.RefreshLeaderboard)
}

// addPointsRequest is the body of POST /api/v1/points.
type addPointsRequest struct {
	UserID         uint   `json:"user_id" binding:"required"`
	Action         string `json:"action" binding:"required"`
	ReferenceID    string `json:"reference_id"`
	ReferenceType  string `json:"reference_type"`
	IdempotencyKey string `json:"idempotency_key"`
	Description    string `json:"description"`
}

// AddPoints credits points for an action.
// POST /api/v1/points.
func (h *Handler) AddPoints(c *gin.Context) {
	var req addPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.ledgerService.AddPoints(c.Request.Context(), req.UserID, rules.ActionType(req.Action), ledger.AwardOptions{
		ReferenceID:    req.ReferenceID,
		ReferenceType:  req.ReferenceType,
		IdempotencyKey: req.IdempotencyKey,
		Description:    req.Description,
	})
	if err != nil {
		if errors.Is(err, rules.ErrUnknownAction) {
			h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("unknown action: %s", req.Action))
			return
		}
		h.log.Error().Err(err).Uint("user_id", req.UserID).Str("action", req.Action).Msg("Failed to add points")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to add points")
		return
	}

	// Guard rejections are a normal outcome, not an error status.
	c.JSON(http.StatusOK, gin.H{
		"awarded":      result.Awarded,
		"points_added": result.PointsAdded,
		"balance":      result.Balance,
	})
}

// adjustPointsRequest is the body of POST /api/v1/points/adjust.
type adjustPointsRequest struct {
	UserID      uint   `json:"user_id" binding:"required"`
	Delta       int    `json:"delta" binding:"required"`
	Description string `json:"description" binding:"required"`
}

// AdjustPoints applies an administrative correction.
// POST /api/v1/points/adjust.
func (h *Handler) AdjustPoints(c *gin.Context) {
	var req adjustPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.ledgerService.AdjustPoints(c.Request.Context(), req.UserID, req.Delta, req.Description)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", req.UserID).Int("delta", req.Delta).Msg("Failed to adjust points")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to adjust points")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"awarded":      result.Awarded,
		"points_added": result.PointsAdded,
		"balance":      result.Balance,
	})
}

// spendPointsRequest is the body of POST /api/v1/points/spend.
type spendPointsRequest struct {
	UserID        uint   `json:"user_id" binding:"required"`
	Points        int    `json:"points" binding:"required"`
	ReferenceID   string `json:"reference_id"`
	ReferenceType string `json:"reference_type"`
	Description   string `json:"description"`
}

// SpendPoints deducts points from the available balance.
// POST /api/v1/points/spend.
func (h *Handler) SpendPoints(c *gin.Context) {
	var req spendPointsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	if req.Points <= 0 {
		h.errorResponse(c, http.StatusBadRequest, "points must be greater than 0")
		return
	}

	result, err := h.ledgerService.SpendPoints(c.Request.Context(), req.UserID, req.Points, ledger.AwardOptions{
		ReferenceID:   req.ReferenceID,
		ReferenceType: req.ReferenceType,
		Description:   req.Description,
	})
	if err != nil {
		if errors.Is(err, ledger.ErrInsufficientBalance) {
			h.errorResponse(c, http.StatusUnprocessableEntity, "insufficient available balance")
			return
		}
		h.log.Error().Err(err).Uint("user_id", req.UserID).Int("points", req.Points).Msg("Failed to spend points")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to spend points")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"points_spent": result.PointsSpent,
		"balance":      result.Balance,
	})
}

// createUserRequest is the body of POST /api/v1/users.
type createUserRequest struct {
	Username string `json:"username" binding:"required"`
}

// CreateUser registers a user with the gamification system.
// POST /api/v1/users.
func (h *Handler) CreateUser(c *gin.Context) {
	var req createUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user := &models.User{Username: req.Username}
	if err := h.users.Create(c.Request.Context(), user); err != nil {
		h.log.Error().Err(err).Str("username", req.Username).Msg("Failed to create user")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to create user")
		return
	}

	c.JSON(http.StatusCreated, user)
}

// GetUser returns a registered user.
// GET /api/v1/users/:id.
func (h *Handler) GetUser(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.users.GetByID(c.Request.Context(), userID)
	if err != nil {
		h.errorResponse(c, http.StatusNotFound, "User not found")
		return
	}

	c.JSON(http.StatusOK, user)
}

// GetBalance returns a user's point balance and level.
// GET /api/v1/users/:id/balance.
func (h *Handler) GetBalance(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get balance")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve balance")
		return
	}

	c.JSON(http.StatusOK, balance)
}

// GetTransactions returns a user's transaction history, newest first.
// GET /api/v1/users/:id/transactions?limit=20&offset=0.
func (h *Handler) GetTransactions(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	limit, err := h.parseLimit(c, 20)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	offset := 0
	if offsetStr := c.Query("offset"); offsetStr != "" {
		offset, err = strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			h.errorResponse(c, http.StatusBadRequest, "invalid offset parameter")
			return
		}
	}

	transactions, err := h.ledgerService.GetTransactions(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get transactions")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve transactions")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"transactions": transactions,
		"limit":        limit,
		"offset":       offset,
	})
}

// updateStreakRequest is the body of POST /api/v1/users/:id/streak. Date
// defaults to the current UTC day.
type updateStreakRequest struct {
	Date string `json:"date"` // YYYY-MM-DD
}

// UpdateStreak records a login for streak purposes.
// POST /api/v1/users/:id/streak.
func (h *Handler) UpdateStreak(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	// The body is optional; an absent date means "today".
	var req updateStreakRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			h.errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
	}

	day := time.Now().UTC()
	if req.Date != "" {
		day, err = time.Parse("2006-01-02", req.Date)
		if err != nil {
			h.errorResponse(c, http.StatusBadRequest, "invalid date, expected YYYY-MM-DD")
			return
		}
	}

	result, err := h.streakService.UpdateStreak(c.Request.Context(), userID, day)
	if err != nil {
		if errors.Is(err, streak.ErrDateBeforeLastLogin) {
			h.errorResponse(c, http.StatusBadRequest, err.Error())
			return
		}
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to update streak")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to update streak")
		return
	}

	c.JSON(http.StatusOK, result)
}

// GetStreak returns a user's streak state.
// GET /api/v1/users/:id/streak.
func (h *Handler) GetStreak(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	st, err := h.streakService.GetStreak(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get streak")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve streak")
		return
	}

	c.JSON(http.StatusOK, st)
}

// GetUserBadges returns the badges a user has unlocked.
// GET /api/v1/users/:id/badges.
func (h *Handler) GetUserBadges(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	userBadges, err := h.badgeService.GetUserBadges(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user badges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user badges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id": userID,
		"badges":  userBadges,
		"count":   len(userBadges),
	})
}

// EvaluateBadges runs badge evaluation for one user on demand.
// POST /api/v1/users/:id/badges/evaluate.
func (h *Handler) EvaluateBadges(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	unlocked, err := h.badgeService.CheckAndUnlock(c.Request.Context(), userID)
	if err != nil {
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to evaluate badges")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to evaluate badges")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":  userID,
		"unlocked": unlocked,
	})
}

// GetBadgeCatalog returns the full badge catalog.
// GET /api/v1/badges.
func (h *Handler) GetBadgeCatalog(c *gin.Context) {
	catalog, err := h.badgeService.GetCatalog(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get badge catalog")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve badge catalog")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"badges": catalog,
		"count":  len(catalog),
	})
}

// GetLeaderboard returns the top-ranked users.
// GET /api/v1/leaderboard?limit=10.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	limit, err := h.parseLimit(c, 10)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	entries, err := h.leaderboardService.GetTop(c.Request.Context(), limit)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get leaderboard")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   entries,
		"total_entries": len(entries),
		"generated_at":  time.Now().UTC(),
	})
}

// RefreshLeaderboard triggers an immediate leaderboard rebuild.
// POST /api/v1/leaderboard/refresh.
func (h *Handler) RefreshLeaderboard(c *gin.Context) {
	if err := h.leaderboardService.Refresh(c.Request.Context()); err != nil {
		h.log.Error().Err(err).Msg("Failed to refresh leaderboard")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to refresh leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "refreshed"})
}

// errorResponse writes a uniform error payload.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}

// parseUserID extracts the :id path parameter.
func (h *Handler) parseUserID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID: %s", idStr)
	}
	return uint(id), nil
}

// parseLimit extracts and validates the limit query parameter.
func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}

	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}

	return limit, nil
}
