package badges

import "github.com/ailearnhub/gamification/internal/models"

// DefaultCatalog is the built-in badge set, used when the configuration
// does not define one. Requirement types must resolve through
// userStats.stat.
func DefaultCatalog() []models.Badge {
	return []models.Badge{
		{
			Code:             "first_steps",
			Name:             "First Steps",
			Description:      "Complete your first lesson",
			Category:         models.BadgeCategoryLearning,
			Tier:             1,
			PointsReward:     10,
			RequirementType:  "lessons_completed",
			RequirementValue: 1,
		},
		{
			Code:             "dedicated_learner",
			Name:             "Dedicated Learner",
			Description:      "Complete 10 lessons",
			Category:         models.BadgeCategoryLearning,
			Tier:             2,
			PointsReward:     50,
			RequirementType:  "lessons_completed",
			RequirementValue: 10,
		},
		{
			Code:             "knowledge_seeker",
			Name:             "Knowledge Seeker",
			Description:      "Complete 50 lessons",
			Category:         models.BadgeCategoryLearning,
			Tier:             3,
			PointsReward:     200,
			RequirementType:  "lessons_completed",
			RequirementValue: 50,
		},
		{
			Code:             "workshop_regular",
			Name:             "Workshop Regular",
			Description:      "Check in to 5 workshops",
			Category:         models.BadgeCategoryLearning,
			Tier:             2,
			PointsReward:     75,
			RequirementType:  "workshop_checkins",
			RequirementValue: 5,
		},
		{
			Code:             "builder",
			Name:             "Builder",
			Description:      "Submit 3 workshop projects",
			Category:         models.BadgeCategoryLearning,
			Tier:             2,
			PointsReward:     100,
			RequirementType:  "workshop_submissions",
			RequirementValue: 3,
		},
		{
			Code:             "conversation_starter",
			Name:             "Conversation Starter",
			Description:      "Create your first discussion post",
			Category:         models.BadgeCategoryCommunity,
			Tier:             1,
			PointsReward:     10,
			RequirementType:  "discussion_posts",
			RequirementValue: 1,
		},
		{
			Code:             "community_voice",
			Name:             "Community Voice",
			Description:      "Create 10 discussion posts",
			Category:         models.BadgeCategoryCommunity,
			Tier:             2,
			PointsReward:     50,
			RequirementType:  "discussion_posts",
			RequirementValue: 10,
		},
		{
			Code:             "helpful_hand",
			Name:             "Helpful Hand",
			Description:      "Answer 10 course questions",
			Category:         models.BadgeCategoryCommunity,
			Tier:             2,
			PointsReward:     75,
			RequirementType:  "course_answers",
			RequirementValue: 10,
		},
		{
			Code:             "critic",
			Name:             "Critic",
			Description:      "Write 5 course reviews",
			Category:         models.BadgeCategoryCommunity,
			Tier:             1,
			PointsReward:     25,
			RequirementType:  "course_reviews",
			RequirementValue: 5,
		},
		{
			Code:             "week_warrior",
			Name:             "Week Warrior",
			Description:      "Maintain a 7-day login streak",
			Category:         models.BadgeCategoryStreak,
			Tier:             1,
			PointsReward:     25,
			RequirementType:  "longest_streak",
			RequirementValue: 7,
		},
		{
			Code:             "unstoppable",
			Name:             "Unstoppable",
			Description:      "Maintain a 30-day login streak",
			Category:         models.BadgeCategoryStreak,
			Tier:             2,
			PointsReward:     100,
			RequirementType:  "longest_streak",
			RequirementValue: 30,
		},
		{
			Code:             "iron_will",
			Name:             "Iron Will",
			Description:      "Maintain a 100-day login streak",
			Category:         models.BadgeCategoryStreak,
			Tier:             3,
			PointsReward:     500,
			RequirementType:  "longest_streak",
			RequirementValue: 100,
		},
		{
			Code:             "point_collector",
			Name:             "Point Collector",
			Description:      "Earn 1,000 total points",
			Category:         models.BadgeCategoryPoints,
			Tier:             1,
			PointsReward:     50,
			RequirementType:  "total_points",
			RequirementValue: 1000,
		},
		{
			Code:             "point_hoarder",
			Name:             "Point Hoarder",
			Description:      "Earn 5,000 total points",
			Category:         models.BadgeCategoryPoints,
			Tier:             2,
			PointsReward:     150,
			RequirementType:  "total_points",
			RequirementValue: 5000,
		},
		{
			Code:             "point_legend",
			Name:             "Point Legend",
			Description:      "Earn 10,000 total points",
			Category:         models.BadgeCategoryPoints,
			Tier:             3,
			PointsReward:     300,
			RequirementType:  "total_points",
			RequirementValue: 10000,
		},
		{
			Code:             "collector",
			Name:             "Collector",
			Description:      "Unlock 10 other badges",
			Category:         models.BadgeCategorySpecial,
			Tier:             3,
			PointsReward:     250,
			RequirementType:  "badge_count",
			RequirementValue: 10,
		},
	}
}
