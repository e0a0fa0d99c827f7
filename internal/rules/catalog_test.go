package rules

import (
	"testing"
)

func TestCreditRuleKnownActions(t *testing.T) {
	tests := []struct {
		action        ActionType
		wantPoints    int
		wantCap       int
		wantRefBound  bool
		wantCountsCap bool
		wantVarPoints bool
	}{
		{ActionDailyLogin, 5, 1, false, true, false},
		{ActionWorkshopCheckin, 50, 0, true, true, false},
		{ActionWorkshopSubmission, 200, 0, true, true, false},
		{ActionLessonComplete, 10, 20, true, true, false},
		{ActionCourseReview, 50, 0, true, true, false},
		{ActionCourseQuestion, 15, 10, false, true, false},
		{ActionCourseAnswer, 30, 0, false, true, false},
		{ActionToolRating, 5, 10, true, true, false},
		{ActionToolExperience, 30, 0, true, true, false},
		{ActionDiscussionPost, 50, 0, false, true, false},
		{ActionComment, 5, 20, false, true, false},
		{ActionWeeklyStreak, 70, 0, false, false, false},
		{ActionMonthlyStreak, 300, 0, false, false, false},
		{ActionBadgeReward, 0, 0, true, false, true},
		{ActionAdminAdjust, 0, 0, false, false, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.action), func(t *testing.T) {
			rule, err := CreditRule(tt.action)
			if err != nil {
				t.Fatalf("CreditRule(%s) returned error: %v", tt.action, err)
			}
			if rule.Points != tt.wantPoints {
				t.Errorf("Points = %d, want %d", rule.Points, tt.wantPoints)
			}
			if rule.DailyCap != tt.wantCap {
				t.Errorf("DailyCap = %d, want %d", rule.DailyCap, tt.wantCap)
			}
			if rule.ReferenceBound != tt.wantRefBound {
				t.Errorf("ReferenceBound = %v, want %v", rule.ReferenceBound, tt.wantRefBound)
			}
			if rule.CountsTowardDailyLimit != tt.wantCountsCap {
				t.Errorf("CountsTowardDailyLimit = %v, want %v", rule.CountsTowardDailyLimit, tt.wantCountsCap)
			}
			if rule.VariablePoints != tt.wantVarPoints {
				t.Errorf("VariablePoints = %v, want %v", rule.VariablePoints, tt.wantVarPoints)
			}
		})
	}
}

func TestCreditRuleRejectsUnknownAction(t *testing.T) {
	if _, err := CreditRule(ActionType("FLY_TO_MOON")); err == nil {
		t.Error("Expected error for unknown action, got nil")
	}
}

func TestCreditRuleRejectsSpend(t *testing.T) {
	if _, err := CreditRule(ActionSpend); err == nil {
		t.Error("Expected error for SPEND on the credit path, got nil")
	}
}

func TestKnown(t *testing.T) {
	if !Known(ActionComment) {
		t.Error("Expected COMMENT to be known")
	}
	if Known(ActionType("NOT_A_THING")) {
		t.Error("Expected NOT_A_THING to be unknown")
	}
}

func TestAllIsSortedAndComplete(t *testing.T) {
	all := All()
	if len(all) == 0 {
		t.Fatal("All() returned no actions")
	}
	for i := 1; i < len(all); i++ {
		if all[i-1] >= all[i] {
			t.Errorf("All() not sorted: %s before %s", all[i-1], all[i])
		}
	}
	for _, action := range all {
		if !Known(action) {
			t.Errorf("All() returned unknown action %s", action)
		}
	}
}

func TestValidate(t *testing.T) {
	if err := Validate(); err != nil {
		t.Errorf("Validate() returned error for built-in catalog: %v", err)
	}
}
