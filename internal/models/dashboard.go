package models

import "time"

// DashboardStats is derived on every dashboard refresh and never persisted.
// Stale names the fields that fell back to zero because no source answered.
type DashboardStats struct {
	TotalUsers      int      `json:"totalUsers"`
	TotalRecipes    int      `json:"totalRecipes"`
	TotalMessages   int      `json:"totalMessages"`
	PendingMessages int      `json:"pendingMessages"`
	TodayRecipes    int      `json:"todayRecipes"`
	ActiveUsers     int      `json:"activeUsers"`
	AvgRecipeRating float64  `json:"avgRecipeRating"`
	TotalLikes      int      `json:"totalLikes"`
	GrowthRate      float64  `json:"growthRate"`
	CompletionRate  float64  `json:"completionRate"`
	WeeklyGrowth    float64  `json:"weeklyGrowth"`
	UserEngagement  float64  `json:"userEngagement"`
	Stale           []string `json:"stale,omitempty"`
}

// IsStale reports whether field fell back to its default.
func (s *DashboardStats) IsStale(field string) bool {
	for _, f := range s.Stale {
		if f == field {
			return true
		}
	}
	return false
}

// ActivityKind is the source collection of an activity entry.
type ActivityKind string

const (
	ActivityRecipe  ActivityKind = "recipe"
	ActivityMessage ActivityKind = "message"
	ActivityUser    ActivityKind = "user"
)

// Activity is one entry of the admin recent-activity feed.
type Activity struct {
	ID        string       `json:"id"`
	Kind      ActivityKind `json:"kind"`
	Title     string       `json:"title"`
	Actor     string       `json:"actor"`
	Timestamp time.Time    `json:"timestamp"`
}
