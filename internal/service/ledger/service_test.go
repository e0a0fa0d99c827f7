package ledger

import (
	"context"
	"errors"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ailearnhub/gamification/internal/models"
	"github.com/ailearnhub/gamification/internal/repository"
	"github.com/ailearnhub/gamification/internal/rules"
	"github.com/ailearnhub/gamification/pkg/logger"
)

// newTestService wires the service against an in-memory SQLite database
// with the default daily limit of 300.
func newTestService(t *testing.T) *Service {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}
	if err := db.AutoMigrate(&models.PointTransaction{}, &models.PointBalance{}); err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	repo := repository.NewLedgerRepository(&repository.DB{DB: db})
	return NewService(repo, 300, logger.Nop())
}

func TestAddPointsFixedValueAction(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	result, err := svc.AddPoints(ctx, 1, rules.ActionDiscussionPost, AwardOptions{})
	if err != nil {
		t.Fatalf("AddPoints returned error: %v", err)
	}
	if !result.Awarded || result.PointsAdded != 50 {
		t.Errorf("Expected 50 points awarded, got %+v", result)
	}
	if result.Balance.TotalPoints != 50 || result.Balance.Level != 1 {
		t.Errorf("Unexpected balance: %+v", result.Balance)
	}
}

func TestAddPointsUnknownAction(t *testing.T) {
	svc := newTestService(t)

	_, err := svc.AddPoints(context.Background(), 1, rules.ActionType("TELEPORT"), AwardOptions{})
	if !errors.Is(err, rules.ErrUnknownAction) {
		t.Fatalf("Expected ErrUnknownAction, got %v", err)
	}
}

func TestAddPointsReferenceBoundDuplicate(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	opts := AwardOptions{ReferenceID: "workshop-1", ReferenceType: "workshop"}

	first, err := svc.AddPoints(ctx, 1, rules.ActionWorkshopCheckin, opts)
	if err != nil {
		t.Fatalf("First check-in returned error: %v", err)
	}
	if !first.Awarded || first.PointsAdded != 50 {
		t.Fatalf("Expected first check-in awarded, got %+v", first)
	}

	second, err := svc.AddPoints(ctx, 1, rules.ActionWorkshopCheckin, opts)
	if err != nil {
		t.Fatalf("Second check-in returned error: %v", err)
	}
	if second.Awarded {
		t.Error("Expected duplicate check-in suppressed")
	}
	if second.Balance.TotalPoints != 50 {
		t.Errorf("Duplicate must not change balance, got %d", second.Balance.TotalPoints)
	}

	// A different reference is a fresh award.
	third, err := svc.AddPoints(ctx, 1, rules.ActionWorkshopCheckin, AwardOptions{ReferenceID: "workshop-2"})
	if err != nil {
		t.Fatalf("Third check-in returned error: %v", err)
	}
	if !third.Awarded || third.Balance.TotalPoints != 100 {
		t.Errorf("Expected fresh award for new reference, got %+v", third)
	}
}

func TestAddPointsExplicitIdempotencyKeyWins(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	opts := AwardOptions{IdempotencyKey: "event-abc"}

	if _, err := svc.AddPoints(ctx, 1, rules.ActionCourseAnswer, opts); err != nil {
		t.Fatalf("AddPoints returned error: %v", err)
	}
	result, err := svc.AddPoints(ctx, 1, rules.ActionCourseAnswer, opts)
	if err != nil {
		t.Fatalf("AddPoints returned error: %v", err)
	}
	if result.Awarded {
		t.Error("Expected replay with same explicit key suppressed")
	}
}

func TestAddPointsPerActionDailyCap(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// COMMENT caps at 20 per day.
	for i := 0; i < 20; i++ {
		result, err := svc.AddPoints(ctx, 1, rules.ActionComment, AwardOptions{})
		if err != nil {
			t.Fatalf("Comment %d returned error: %v", i+1, err)
		}
		if !result.Awarded {
			t.Fatalf("Comment %d unexpectedly rejected", i+1)
		}
	}

	result, err := svc.AddPoints(ctx, 1, rules.ActionComment, AwardOptions{})
	if err != nil {
		t.Fatalf("21st comment returned error: %v", err)
	}
	if result.Awarded {
		t.Error("Expected 21st comment capped")
	}
	if result.Balance.TotalPoints != 100 {
		t.Errorf("Expected balance 100 after 20 comments, got %d", result.Balance.TotalPoints)
	}
}

func TestAddPointsGlobalDailyLimitExemptsBonuses(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// First submission lands at 200; the second would push today's
	// earnings to 400, past the 300 limit, and is rejected outright.
	first, err := svc.AddPoints(ctx, 1, rules.ActionWorkshopSubmission, AwardOptions{ReferenceID: "w1"})
	if err != nil || !first.Awarded {
		t.Fatalf("First submission: %+v, err %v", first, err)
	}

	second, err := svc.AddPoints(ctx, 1, rules.ActionWorkshopSubmission, AwardOptions{ReferenceID: "w2"})
	if err != nil {
		t.Fatalf("Second submission returned error: %v", err)
	}
	if second.Awarded {
		t.Error("Expected second submission rejected by daily limit")
	}

	// Streak bonuses ignore the limit.
	bonus, err := svc.AddPoints(ctx, 1, rules.ActionMonthlyStreak, AwardOptions{})
	if err != nil {
		t.Fatalf("Bonus returned error: %v", err)
	}
	if !bonus.Awarded || bonus.Balance.TotalPoints != 500 {
		t.Errorf("Expected exempt bonus to land, got %+v", bonus)
	}

	// The bonus leaves the countable headroom untouched: 200 of 300
	// earned today, so a 5-point comment still lands.
	comment, err := svc.AddPoints(ctx, 1, rules.ActionComment, AwardOptions{})
	if err != nil {
		t.Fatalf("Comment returned error: %v", err)
	}
	if !comment.Awarded || comment.Balance.TotalPoints != 505 {
		t.Errorf("Expected comment to land after exempt bonus, got %+v", comment)
	}
}

func TestAddPointsVariablePointsRequireOverride(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	// No override means nothing to credit.
	result, err := svc.AddPoints(ctx, 1, rules.ActionBadgeReward, AwardOptions{ReferenceID: "first_steps"})
	if err != nil {
		t.Fatalf("AddPoints returned error: %v", err)
	}
	if result.Awarded {
		t.Error("Expected zero-value reward to be a no-op")
	}

	result, err = svc.AddPoints(ctx, 1, rules.ActionBadgeReward, AwardOptions{
		ReferenceID:    "first_steps",
		PointsOverride: 25,
	})
	if err != nil {
		t.Fatalf("AddPoints returned error: %v", err)
	}
	if !result.Awarded || result.PointsAdded != 25 {
		t.Errorf("Expected 25-point reward, got %+v", result)
	}

	// Replay for the same badge code is deduped.
	replay, err := svc.AddPoints(ctx, 1, rules.ActionBadgeReward, AwardOptions{
		ReferenceID:    "first_steps",
		PointsOverride: 25,
	})
	if err != nil {
		t.Fatalf("Replay returned error: %v", err)
	}
	if replay.Awarded {
		t.Error("Expected badge reward replay suppressed")
	}
}

func TestAdjustPoints(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AdjustPoints(ctx, 1, 100, ""); err == nil {
		t.Error("Expected error for missing description")
	}
	if _, err := svc.AdjustPoints(ctx, 1, 0, "no-op"); err == nil {
		t.Error("Expected error for zero delta")
	}

	result, err := svc.AdjustPoints(ctx, 1, -30, "support ticket #1234")
	if err != nil {
		t.Fatalf("AdjustPoints returned error: %v", err)
	}
	if !result.Awarded || result.PointsAdded != -30 {
		t.Errorf("Expected -30 adjustment, got %+v", result)
	}
	if result.Balance.TotalPoints != -30 {
		t.Errorf("Expected total -30, got %d", result.Balance.TotalPoints)
	}
}

func TestSpendPoints(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	if _, err := svc.AddPoints(ctx, 1, rules.ActionWorkshopCheckin, AwardOptions{ReferenceID: "w1"}); err != nil {
		t.Fatalf("AddPoints returned error: %v", err)
	}

	result, err := svc.SpendPoints(ctx, 1, 30, AwardOptions{Description: "Sticker pack"})
	if err != nil {
		t.Fatalf("SpendPoints returned error: %v", err)
	}
	if result.PointsSpent != 30 {
		t.Errorf("Expected 30 spent, got %d", result.PointsSpent)
	}
	if result.Balance.AvailablePoints != 20 || result.Balance.TotalPoints != 50 {
		t.Errorf("Unexpected balance after spend: %+v", result.Balance)
	}

	if _, err := svc.SpendPoints(ctx, 1, 100, AwardOptions{}); !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}
	if _, err := svc.SpendPoints(ctx, 1, -5, AwardOptions{}); err == nil {
		t.Error("Expected error for non-positive spend")
	}
}

func TestGetTransactionsLimits(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if _, err := svc.AddPoints(ctx, 1, rules.ActionComment, AwardOptions{}); err != nil {
			t.Fatalf("AddPoints returned error: %v", err)
		}
	}

	txns, err := svc.GetTransactions(ctx, 1, 0, 0)
	if err != nil {
		t.Fatalf("GetTransactions returned error: %v", err)
	}
	if len(txns) != 5 {
		t.Errorf("Expected 5 transactions with default limit, got %d", len(txns))
	}

	txns, err = svc.GetTransactions(ctx, 1, 2, 0)
	if err != nil {
		t.Fatalf("GetTransactions returned error: %v", err)
	}
	if len(txns) != 2 {
		t.Errorf("Expected 2 transactions, got %d", len(txns))
	}
}
