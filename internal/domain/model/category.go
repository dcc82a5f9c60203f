package model

// Category labels accepted for reputation history entries.
const (
	CategoryProjectContributions = "Project Contributions"
	CategoryLearningSharing      = "Learning & Sharing"
	CategoryCommunityEngagement  = "Community Engagement"
	CategoryAchievements         = "Achievements"
	CategoryInnovationLeadership = "Innovation & Leadership"
	CategoryBonusSpecial         = "Bonus & Special"
	CategoryPenalty              = "Penalty"
)

// Categories lists every accepted category in display order.
func Categories() []string {
	return []string{
		CategoryProjectContributions,
		CategoryLearningSharing,
		CategoryCommunityEngagement,
		CategoryAchievements,
		CategoryInnovationLeadership,
		CategoryBonusSpecial,
		CategoryPenalty,
	}
}

// ValidCategory reports whether c is one of Categories. Matching is exact.
func ValidCategory(c string) bool {
	for _, known := range Categories() {
		if c == known {
			return true
		}
	}
	return false
}
