// Package ledger implements the system of record for points: the
// append-only transaction log, the derived per-user balance, and the
// idempotency and rate guard that sits in front of every mutation.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"time"

	prommetrics "github.com/ailearnhub/gamification/internal/metrics"
	"github.com/ailearnhub/gamification/internal/models"
	"github.com/ailearnhub/gamification/internal/repository"
	"github.com/ailearnhub/gamification/internal/rules"
	"github.com/ailearnhub/gamification/pkg/logger"
)

// ErrInsufficientBalance is the user-facing spend failure. Never retried
// automatically.
var ErrInsufficientBalance = repository.ErrInsufficientBalance

// Repository is the persistence surface the ledger needs.
type Repository interface {
	Award(ctx context.Context, p repository.AwardParams) (repository.AwardStatus, models.PointBalance, error)
	Spend(ctx context.Context, p repository.SpendParams) (models.PointBalance, error)
	GetBalance(ctx context.Context, userID uint) (models.PointBalance, error)
	ListTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.PointTransaction, error)
}

// BadgeEvaluator is notified after balance-changing credits. Evaluation
// is best-effort and eventual; it never blocks or rolls back an award.
type BadgeEvaluator interface {
	CheckAndUnlock(ctx context.Context, userID uint) ([]models.Badge, error)
}

// AwardOptions carries the optional fields of an AddPoints call.
type AwardOptions struct {
	ReferenceID    string
	ReferenceType  string
	IdempotencyKey string
	Description    string
	// PointsOverride supplies the value for variable-point actions
	// (badge rewards, admin adjustments). Ignored for fixed-value rules.
	PointsOverride int
}

// Balance is the caller-facing balance view.
type Balance struct {
	TotalPoints     int `json:"total_points"`
	AvailablePoints int `json:"available_points"`
	SpentPoints     int `json:"spent_points"`
	Level           int `json:"level"`
}

// AwardResult reports the outcome of an AddPoints call. A guard
// rejection is a normal result with Awarded=false, not an error.
type AwardResult struct {
	Awarded     bool    `json:"awarded"`
	PointsAdded int     `json:"points_added"`
	Balance     Balance `json:"balance"`
}

// SpendResult reports a successful debit.
type SpendResult struct {
	PointsSpent int     `json:"points_spent"`
	Balance     Balance `json:"balance"`
}

// Service is the ledger entry point used by all collaborators.
type Service struct {
	repo            Repository
	log             *logger.Logger
	dailyPointLimit int
	evaluator       BadgeEvaluator
	evalTimeout     time.Duration
}

// NewService creates a new ledger service.
func NewService(repo *repository.LedgerRepository, dailyPointLimit int, log *logger.Logger) *Service {
	return &Service{
		repo:            repo,
		log:             log,
		dailyPointLimit: dailyPointLimit,
		evalTimeout:     10 * time.Second,
	}
}

// NewServiceWithInterfaces creates a new ledger service with interface dependencies (useful for testing).
func NewServiceWithInterfaces(repo Repository, dailyPointLimit int, log *logger.Logger) *Service {
	return &Service{
		repo:            repo,
		log:             log,
		dailyPointLimit: dailyPointLimit,
		evalTimeout:     10 * time.Second,
	}
}

// SetBadgeEvaluator wires the badge evaluator. Set once at startup;
// awards committed before wiring simply skip the notification.
func (s *Service) SetBadgeEvaluator(ev BadgeEvaluator) {
	s.evaluator = ev
}

func balanceView(b models.PointBalance) Balance {
	return Balance{
		TotalPoints:     b.TotalPoints,
		AvailablePoints: b.AvailablePoints,
		SpentPoints:     b.SpentPoints,
		Level:           rules.LevelFor(b.TotalPoints),
	}
}

// deriveKey resolves the idempotency key for an award: an explicit key
// wins; reference-bound actions derive one from (user, action, reference);
// everything else is unkeyed and deduped only by the daily caps.
func deriveKey(userID uint, action rules.ActionType, rule rules.Rule, opts AwardOptions) *string {
	if opts.IdempotencyKey != "" {
		k := opts.IdempotencyKey
		return &k
	}
	if rule.ReferenceBound && opts.ReferenceID != "" {
		k := fmt.Sprintf("%d:%s:%s", userID, action, opts.ReferenceID)
		return &k
	}
	return nil
}

// AddPoints awards points for an action. Unknown actions are a
// configuration error. Guard rejections (duplicate, per-action cap,
// global daily limit) return Awarded=false with the unchanged balance.
func (s *Service) AddPoints(ctx context.Context, userID uint, action rules.ActionType, opts AwardOptions) (*AwardResult, error) {
	rule, err := rules.CreditRule(action)
	if err != nil {
		return nil, err
	}

	points := rule.Points
	if rule.VariablePoints {
		points = opts.PointsOverride
	}
	if points == 0 {
		// Nothing to credit; treat as a no-op success with the current
		// balance so zero-reward badges stay cheap.
		bal, err := s.repo.GetBalance(ctx, userID)
		if err != nil {
			return nil, err
		}
		return &AwardResult{Awarded: false, Balance: balanceView(bal)}, nil
	}

	status, bal, err := s.repo.Award(ctx, repository.AwardParams{
		UserID:            userID,
		Points:            points,
		ActionType:        string(action),
		ReferenceID:       opts.ReferenceID,
		ReferenceType:     opts.ReferenceType,
		IdempotencyKey:    deriveKey(userID, action, rule, opts),
		Description:       opts.Description,
		DailyCap:          rule.DailyCap,
		DailyPointLimit:   s.dailyPointLimit,
		CountsTowardLimit: rule.CountsTowardDailyLimit,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to award points: %w", err)
	}

	switch status {
	case repository.AwardApplied:
		prommetrics.RecordAwardApplied(string(action), points)
		s.log.Info().
			Uint("user_id", userID).
			Str("action", string(action)).
			Int("points", points).
			Int("balance", bal.AvailablePoints).
			Msg("Points awarded")
		s.notifyBadgeEvaluator(userID)
		return &AwardResult{Awarded: true, PointsAdded: points, Balance: balanceView(bal)}, nil

	case repository.AwardDuplicate:
		prommetrics.RecordAwardRejected(string(action), "duplicate")
		s.log.Debug().
			Uint("user_id", userID).
			Str("action", string(action)).
			Str("reference_id", opts.ReferenceID).
			Msg("Duplicate award suppressed")
	case repository.AwardDailyCapReached:
		prommetrics.RecordAwardRejected(string(action), "daily_cap")
		s.log.Debug().
			Uint("user_id", userID).
			Str("action", string(action)).
			Msg("Per-action daily cap reached")
	case repository.AwardDailyLimitReached:
		prommetrics.RecordAwardRejected(string(action), "daily_limit")
		s.log.Debug().
			Uint("user_id", userID).
			Str("action", string(action)).
			Msg("Global daily point limit reached")
	}

	return &AwardResult{Awarded: false, Balance: balanceView(bal)}, nil
}

// AdjustPoints applies a signed administrative correction, exempt from
// all caps. The description is mandatory so every correction carries an
// audit trail.
func (s *Service) AdjustPoints(ctx context.Context, userID uint, delta int, description string) (*AwardResult, error) {
	if description == "" {
		return nil, errors.New("adjustment requires a description")
	}
	if delta == 0 {
		return nil, errors.New("adjustment delta must not be zero")
	}

	status, bal, err := s.repo.Award(ctx, repository.AwardParams{
		UserID:      userID,
		Points:      delta,
		ActionType:  string(rules.ActionAdminAdjust),
		Description: description,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to adjust points: %w", err)
	}
	if status != repository.AwardApplied {
		return &AwardResult{Awarded: false, Balance: balanceView(bal)}, nil
	}

	s.log.Info().
		Uint("user_id", userID).
		Int("delta", delta).
		Str("reason", description).
		Msg("Administrative point adjustment")

	return &AwardResult{Awarded: true, PointsAdded: delta, Balance: balanceView(bal)}, nil
}

// SpendPoints debits points. The balance check and the debit are one
// atomic unit; an overdraw returns ErrInsufficientBalance.
func (s *Service) SpendPoints(ctx context.Context, userID uint, points int, opts AwardOptions) (*SpendResult, error) {
	if points <= 0 {
		return nil, errors.New("spend amount must be positive")
	}

	bal, err := s.repo.Spend(ctx, repository.SpendParams{
		UserID:        userID,
		Points:        points,
		ReferenceID:   opts.ReferenceID,
		ReferenceType: opts.ReferenceType,
		Description:   opts.Description,
	})
	if errors.Is(err, repository.ErrInsufficientBalance) {
		prommetrics.RecordSpend("insufficient_balance", 0)
		return nil, ErrInsufficientBalance
	}
	if err != nil {
		return nil, fmt.Errorf("failed to spend points: %w", err)
	}

	prommetrics.RecordSpend("success", points)
	s.log.Info().
		Uint("user_id", userID).
		Int("points", points).
		Int("balance", bal.AvailablePoints).
		Msg("Points spent")

	return &SpendResult{PointsSpent: points, Balance: balanceView(bal)}, nil
}

// GetBalance returns the user's balance, zero-valued on first read.
func (s *Service) GetBalance(ctx context.Context, userID uint) (*Balance, error) {
	bal, err := s.repo.GetBalance(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to get balance: %w", err)
	}
	view := balanceView(bal)
	return &view, nil
}

// GetTransactions returns the user's transaction history, newest first.
// Limit defaults to 20 and is capped at 100.
func (s *Service) GetTransactions(ctx context.Context, userID uint, limit, offset int) ([]models.PointTransaction, error) {
	if limit <= 0 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.ListTransactions(ctx, userID, limit, offset)
}

// notifyBadgeEvaluator kicks off asynchronous badge evaluation after a
// committed credit. Failures are logged and dropped.
func (s *Service) notifyBadgeEvaluator(userID uint) {
	if s.evaluator == nil {
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), s.evalTimeout)
		defer cancel()
		if _, err := s.evaluator.CheckAndUnlock(ctx, userID); err != nil {
			s.log.Warn().
				Err(err).
				Uint("user_id", userID).
				Msg("Badge evaluation after award failed")
		}
	}()
}
