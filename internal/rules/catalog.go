// Package rules holds the static action catalog: the closed mapping from
// action types to point values, daily occurrence caps, and award policy
// flags. The catalog is validated at startup so an unknown action can only
// appear at the boundary where callers supply raw strings.
package rules

import (
	"errors"
	"fmt"
	"sort"
)

// ActionType identifies a point-earning or point-spending action.
type ActionType string

// The closed set of action types.
const (
	ActionDailyLogin         ActionType = "DAILY_LOGIN"
	ActionWorkshopCheckin    ActionType = "WORKSHOP_CHECKIN"
	ActionWorkshopSubmission ActionType = "WORKSHOP_SUBMISSION"
	ActionLessonComplete     ActionType = "LESSON_COMPLETE"
	ActionCourseReview       ActionType = "COURSE_REVIEW"
	ActionCourseQuestion     ActionType = "COURSE_QUESTION"
	ActionCourseAnswer       ActionType = "COURSE_ANSWER"
	ActionToolRating         ActionType = "TOOL_RATING"
	ActionToolExperience     ActionType = "TOOL_EXPERIENCE"
	ActionDiscussionPost     ActionType = "DISCUSSION_POST"
	ActionComment            ActionType = "COMMENT"
	ActionWeeklyStreak       ActionType = "WEEKLY_STREAK"
	ActionMonthlyStreak      ActionType = "MONTHLY_STREAK"
	ActionBadgeReward        ActionType = "BADGE_REWARD"
	ActionAdminAdjust        ActionType = "ADMIN_ADJUST"
	ActionSpend              ActionType = "SPEND"
)

// ErrUnknownAction indicates a caller supplied an action type that is not
// in the catalog. This is a configuration error, never retried.
var ErrUnknownAction = errors.New("unknown action type")

// Rule describes the award policy for one action type.
type Rule struct {
	// Points is the fixed credit for the action. Zero for actions whose
	// value is supplied per-call (VariablePoints).
	Points int
	// DailyCap limits committed occurrences per user per UTC day.
	// Zero means uncapped.
	DailyCap int
	// ReferenceBound actions derive an idempotency key from
	// (user, action, reference) when the caller supplies no explicit key.
	ReferenceBound bool
	// CountsTowardDailyLimit includes the award in the global per-user
	// daily point limit. Bonus actions (streak milestones, badge rewards)
	// are exempt so an earned bonus is never silently dropped.
	CountsTowardDailyLimit bool
	// VariablePoints actions carry their point value per call
	// (badge rewards, administrative corrections).
	VariablePoints bool
}

var catalog = map[ActionType]Rule{
	ActionDailyLogin:         {Points: 5, DailyCap: 1, CountsTowardDailyLimit: true},
	ActionWorkshopCheckin:    {Points: 50, ReferenceBound: true, CountsTowardDailyLimit: true},
	ActionWorkshopSubmission: {Points: 200, ReferenceBound: true, CountsTowardDailyLimit: true},
	ActionLessonComplete:     {Points: 10, DailyCap: 20, ReferenceBound: true, CountsTowardDailyLimit: true},
	ActionCourseReview:       {Points: 50, ReferenceBound: true, CountsTowardDailyLimit: true},
	ActionCourseQuestion:     {Points: 15, DailyCap: 10, CountsTowardDailyLimit: true},
	ActionCourseAnswer:       {Points: 30, CountsTowardDailyLimit: true},
	ActionToolRating:         {Points: 5, DailyCap: 10, ReferenceBound: true, CountsTowardDailyLimit: true},
	ActionToolExperience:     {Points: 30, ReferenceBound: true, CountsTowardDailyLimit: true},
	ActionDiscussionPost:     {Points: 50, CountsTowardDailyLimit: true},
	ActionComment:            {Points: 5, DailyCap: 20, CountsTowardDailyLimit: true},
	ActionWeeklyStreak:       {Points: 70},
	ActionMonthlyStreak:      {Points: 300},
	ActionBadgeReward:        {ReferenceBound: true, VariablePoints: true},
	ActionAdminAdjust:        {VariablePoints: true},
}

// CreditRule returns the rule for a point-earning action. SPEND is not a
// credit action and resolves through the spend path instead.
func CreditRule(action ActionType) (Rule, error) {
	if action == ActionSpend {
		return Rule{}, fmt.Errorf("%w: %s is not a credit action", ErrUnknownAction, action)
	}
	rule, ok := catalog[action]
	if !ok {
		return Rule{}, fmt.Errorf("%w: %s", ErrUnknownAction, action)
	}
	return rule, nil
}

// Known reports whether the action type exists in the catalog.
func Known(action ActionType) bool {
	if action == ActionSpend {
		return true
	}
	_, ok := catalog[action]
	return ok
}

// All returns the credit actions in a stable order, for validation and
// introspection.
func All() []ActionType {
	actions := make([]ActionType, 0, len(catalog))
	for a := range catalog {
		actions = append(actions, a)
	}
	sort.Slice(actions, func(i, j int) bool { return actions[i] < actions[j] })
	return actions
}

// Validate checks catalog consistency. Called once at startup.
func Validate() error {
	for action, rule := range catalog {
		if rule.VariablePoints && rule.Points != 0 {
			return fmt.Errorf("action %s: variable-points rule must not carry a fixed value", action)
		}
		if !rule.VariablePoints && rule.Points <= 0 {
			return fmt.Errorf("action %s: credit rule must carry a positive point value", action)
		}
		if rule.DailyCap < 0 {
			return fmt.Errorf("action %s: daily cap must not be negative", action)
		}
	}
	return nil
}
