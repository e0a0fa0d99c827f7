package repository

import (
	"context"
	"errors"
	"sync"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/ailearnhub/gamification/internal/models"
)

// setupLedgerTestDB creates an in-memory SQLite database for testing.
func setupLedgerTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{TranslateError: true})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	err = db.AutoMigrate(
		&models.PointTransaction{},
		&models.PointBalance{},
	)
	if err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	return &DB{db}
}

func strPtr(s string) *string { return &s }

func TestAwardAppliesAndUpdatesBalance(t *testing.T) {
	repo := NewLedgerRepository(setupLedgerTestDB(t))
	ctx := context.Background()

	status, bal, err := repo.Award(ctx, AwardParams{
		UserID:     1,
		Points:     50,
		ActionType: "DISCUSSION_POST",
	})
	if err != nil {
		t.Fatalf("Award returned error: %v", err)
	}
	if status != AwardApplied {
		t.Fatalf("Expected AwardApplied, got %v", status)
	}
	if bal.TotalPoints != 50 || bal.AvailablePoints != 50 || bal.SpentPoints != 0 {
		t.Errorf("Unexpected balance: %+v", bal)
	}
}

func TestAwardDuplicateIdempotencyKey(t *testing.T) {
	repo := NewLedgerRepository(setupLedgerTestDB(t))
	ctx := context.Background()

	params := AwardParams{
		UserID:         1,
		Points:         50,
		ActionType:     "WORKSHOP_CHECKIN",
		ReferenceID:    "workshop-42",
		IdempotencyKey: strPtr("1:WORKSHOP_CHECKIN:workshop-42"),
	}

	status, _, err := repo.Award(ctx, params)
	if err != nil {
		t.Fatalf("First award returned error: %v", err)
	}
	if status != AwardApplied {
		t.Fatalf("Expected first award applied, got %v", status)
	}

	status, bal, err := repo.Award(ctx, params)
	if err != nil {
		t.Fatalf("Second award returned error: %v", err)
	}
	if status != AwardDuplicate {
		t.Fatalf("Expected AwardDuplicate, got %v", status)
	}
	if bal.TotalPoints != 50 {
		t.Errorf("Duplicate must not change balance, got total %d", bal.TotalPoints)
	}

	var n int64
	repo.db.Model(&models.PointTransaction{}).Count(&n)
	if n != 1 {
		t.Errorf("Expected 1 transaction, got %d", n)
	}
}

func TestAwardDailyCap(t *testing.T) {
	repo := NewLedgerRepository(setupLedgerTestDB(t))
	ctx := context.Background()

	params := AwardParams{
		UserID:     1,
		Points:     5,
		ActionType: "DAILY_LOGIN",
		DailyCap:   1,
	}

	status, _, err := repo.Award(ctx, params)
	if err != nil || status != AwardApplied {
		t.Fatalf("First award: status %v, err %v", status, err)
	}

	status, bal, err := repo.Award(ctx, params)
	if err != nil {
		t.Fatalf("Capped award returned error: %v", err)
	}
	if status != AwardDailyCapReached {
		t.Fatalf("Expected AwardDailyCapReached, got %v", status)
	}
	if bal.TotalPoints != 5 {
		t.Errorf("Capped award must not change balance, got total %d", bal.TotalPoints)
	}
}

func TestAwardGlobalDailyLimit(t *testing.T) {
	repo := NewLedgerRepository(setupLedgerTestDB(t))
	ctx := context.Background()

	// 250 of a 300 limit consumed.
	status, _, err := repo.Award(ctx, AwardParams{
		UserID:            1,
		Points:            250,
		ActionType:        "WORKSHOP_SUBMISSION",
		DailyPointLimit:   300,
		CountsTowardLimit: true,
	})
	if err != nil || status != AwardApplied {
		t.Fatalf("Setup award: status %v, err %v", status, err)
	}

	// 100 more would exceed the limit; rejected outright.
	status, bal, err := repo.Award(ctx, AwardParams{
		UserID:            1,
		Points:            100,
		ActionType:        "COURSE_REVIEW",
		DailyPointLimit:   300,
		CountsTowardLimit: true,
	})
	if err != nil {
		t.Fatalf("Limited award returned error: %v", err)
	}
	if status != AwardDailyLimitReached {
		t.Fatalf("Expected AwardDailyLimitReached, got %v", status)
	}
	if bal.TotalPoints != 250 {
		t.Errorf("Rejected award must not change balance, got total %d", bal.TotalPoints)
	}

	// An exempt bonus still lands above the limit.
	status, bal, err = repo.Award(ctx, AwardParams{
		UserID:            1,
		Points:            70,
		ActionType:        "WEEKLY_STREAK",
		DailyPointLimit:   300,
		CountsTowardLimit: false,
	})
	if err != nil || status != AwardApplied {
		t.Fatalf("Exempt award: status %v, err %v", status, err)
	}
	if bal.TotalPoints != 320 {
		t.Errorf("Expected total 320 after exempt bonus, got %d", bal.TotalPoints)
	}
}

func TestAwardDailyCapUnderConcurrentAwards(t *testing.T) {
	repo := NewLedgerRepository(setupLedgerTestDB(t))
	ctx := context.Background()

	// A single connection so every goroutine sees the same in-memory
	// database; on Postgres the balance-row lock provides the same
	// per-user serialization for the guard counts.
	sqlDB, err := repo.db.DB.DB()
	if err != nil {
		t.Fatalf("Failed to get sql.DB: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)

	const attempts = 8
	statuses := make([]AwardStatus, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			status, _, err := repo.Award(ctx, AwardParams{
				UserID:     1,
				Points:     2,
				ActionType: "COMMENT",
				DailyCap:   3,
			})
			if err != nil {
				t.Errorf("Concurrent award %d returned error: %v", i, err)
				return
			}
			statuses[i] = status
		}(i)
	}
	wg.Wait()

	applied := 0
	for _, s := range statuses {
		if s == AwardApplied {
			applied++
		}
	}
	if applied != 3 {
		t.Errorf("Expected exactly 3 applied awards, got %d", applied)
	}

	var n int64
	repo.db.Model(&models.PointTransaction{}).
		Where("user_id = ? AND action_type = ?", 1, "COMMENT").
		Count(&n)
	if n != 3 {
		t.Errorf("Expected 3 committed transactions, got %d", n)
	}

	bal, err := repo.GetBalance(ctx, 1)
	if err != nil {
		t.Fatalf("GetBalance returned error: %v", err)
	}
	if bal.TotalPoints != 6 {
		t.Errorf("Expected total 6, got %d", bal.TotalPoints)
	}
}

func TestAwardGlobalDailyLimitExcludesExemptEarnings(t *testing.T) {
	repo := NewLedgerRepository(setupLedgerTestDB(t))
	ctx := context.Background()

	status, _, err := repo.Award(ctx, AwardParams{
		UserID:            1,
		Points:            250,
		ActionType:        "WORKSHOP_SUBMISSION",
		DailyPointLimit:   300,
		CountsTowardLimit: true,
	})
	if err != nil || status != AwardApplied {
		t.Fatalf("Setup award: status %v, err %v", status, err)
	}

	status, _, err = repo.Award(ctx, AwardParams{
		UserID:            1,
		Points:            70,
		ActionType:        "WEEKLY_STREAK",
		DailyPointLimit:   300,
		CountsTowardLimit: false,
	})
	if err != nil || status != AwardApplied {
		t.Fatalf("Exempt award: status %v, err %v", status, err)
	}

	// 255 of 300 countable after the bonus; the exempt 70 must not
	// consume the remaining headroom.
	status, bal, err := repo.Award(ctx, AwardParams{
		UserID:            1,
		Points:            5,
		ActionType:        "COMMENT",
		DailyPointLimit:   300,
		CountsTowardLimit: true,
	})
	if err != nil {
		t.Fatalf("Countable award returned error: %v", err)
	}
	if status != AwardApplied {
		t.Fatalf("Expected AwardApplied after exempt bonus, got %v", status)
	}
	if bal.TotalPoints != 325 {
		t.Errorf("Expected total 325, got %d", bal.TotalPoints)
	}
}

func TestSpendAndInsufficientBalance(t *testing.T) {
	repo := NewLedgerRepository(setupLedgerTestDB(t))
	ctx := context.Background()

	_, _, err := repo.Award(ctx, AwardParams{UserID: 1, Points: 100, ActionType: "WORKSHOP_CHECKIN"})
	if err != nil {
		t.Fatalf("Award returned error: %v", err)
	}

	bal, err := repo.Spend(ctx, SpendParams{UserID: 1, Points: 60, Description: "Sticker pack"})
	if err != nil {
		t.Fatalf("Spend returned error: %v", err)
	}
	if bal.TotalPoints != 100 || bal.SpentPoints != 60 || bal.AvailablePoints != 40 {
		t.Errorf("Unexpected balance after spend: %+v", bal)
	}

	_, err = repo.Spend(ctx, SpendParams{UserID: 1, Points: 50})
	if !errors.Is(err, ErrInsufficientBalance) {
		t.Fatalf("Expected ErrInsufficientBalance, got %v", err)
	}

	// Failed spend leaves no transaction behind.
	var txns []models.PointTransaction
	repo.db.Where("user_id = ?", 1).Find(&txns)
	if len(txns) != 2 {
		t.Errorf("Expected 2 transactions (award + spend), got %d", len(txns))
	}

	// Invariant: total = available + spent.
	bal, _ = repo.GetBalance(ctx, 1)
	if bal.TotalPoints != bal.AvailablePoints+bal.SpentPoints {
		t.Errorf("Balance invariant violated: %+v", bal)
	}
}

func TestGetBalanceCreatesZeroRow(t *testing.T) {
	repo := NewLedgerRepository(setupLedgerTestDB(t))

	bal, err := repo.GetBalance(context.Background(), 77)
	if err != nil {
		t.Fatalf("GetBalance returned error: %v", err)
	}
	if bal.TotalPoints != 0 || bal.AvailablePoints != 0 || bal.SpentPoints != 0 {
		t.Errorf("Expected zero balance, got %+v", bal)
	}
}

func TestListTransactionsNewestFirst(t *testing.T) {
	repo := NewLedgerRepository(setupLedgerTestDB(t))
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, _, err := repo.Award(ctx, AwardParams{UserID: 1, Points: 10 + i, ActionType: "LESSON_COMPLETE"})
		if err != nil {
			t.Fatalf("Award %d returned error: %v", i, err)
		}
	}

	txns, err := repo.ListTransactions(ctx, 1, 10, 0)
	if err != nil {
		t.Fatalf("ListTransactions returned error: %v", err)
	}
	if len(txns) != 3 {
		t.Fatalf("Expected 3 transactions, got %d", len(txns))
	}
	if txns[0].Points != 12 || txns[2].Points != 10 {
		t.Errorf("Expected newest first, got %d then %d", txns[0].Points, txns[2].Points)
	}
}

func TestCountByAction(t *testing.T) {
	repo := NewLedgerRepository(setupLedgerTestDB(t))
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if _, _, err := repo.Award(ctx, AwardParams{UserID: 1, Points: 10, ActionType: "LESSON_COMPLETE"}); err != nil {
			t.Fatalf("Award returned error: %v", err)
		}
	}
	if _, _, err := repo.Award(ctx, AwardParams{UserID: 1, Points: 5, ActionType: "COMMENT"}); err != nil {
		t.Fatalf("Award returned error: %v", err)
	}
	if _, err := repo.Spend(ctx, SpendParams{UserID: 1, Points: 5}); err != nil {
		t.Fatalf("Spend returned error: %v", err)
	}

	counts, err := repo.CountByAction(ctx, 1)
	if err != nil {
		t.Fatalf("CountByAction returned error: %v", err)
	}
	if counts["LESSON_COMPLETE"] != 2 {
		t.Errorf("Expected 2 LESSON_COMPLETE, got %d", counts["LESSON_COMPLETE"])
	}
	if counts["COMMENT"] != 1 {
		t.Errorf("Expected 1 COMMENT, got %d", counts["COMMENT"])
	}
	if _, ok := counts["SPEND"]; ok {
		t.Error("Negative transactions must not be counted")
	}
}
