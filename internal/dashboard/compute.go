package dashboard

import (
	"math"
	"sort"
	"time"

	"github.com/pageza/recipehub/internal/models"
)

// GrowthRate is the percent change of current against previous. A zero or
// negative baseline yields 0, as does shrinkage.
func GrowthRate(previous, current int) float64 {
	if previous <= 0 {
		return 0
	}
	return nonNegative(round2(float64(current-previous) / float64(previous) * 100))
}

// CompletionRate is a bounded placeholder heuristic: ten percent per recipe
// per user, never above 100.
func CompletionRate(recipes, users int) float64 {
	return nonNegative(round2(math.Min(100, float64(recipes)/float64(max(users, 1))*10)))
}

// UserEngagement is the share of users active in the trailing window.
func UserEngagement(active, users int) float64 {
	return nonNegative(round2(math.Min(100, float64(active)/float64(max(users, 1))*100)))
}

// WeeklyGrowth compares recipes created in the week before now with all
// older recipes. Without older recipes there is nothing to grow against.
func WeeklyGrowth(recipes []models.Recipe, now time.Time) float64 {
	since := now.Add(-7 * 24 * time.Hour)
	recent, older := 0, 0
	for i := range recipes {
		if recipes[i].CreatedAt.IsZero() {
			continue
		}
		if recipes[i].CreatedAt.Before(since) {
			older++
		} else {
			recent++
		}
	}
	if older == 0 {
		return 0
	}
	return nonNegative(round2(float64(recent) / float64(older) * 100))
}

// RecentActivity maps entries created in the window before now to feed
// records, newest first, keeping at most size.
func RecentActivity(recipes []models.Recipe, messages []models.Message, users []models.User, now time.Time, window time.Duration, size int) []models.Activity {
	since := now.Add(-window)
	inWindow := func(t time.Time) bool { return !t.IsZero() && !t.Before(since) && !t.After(now) }

	feed := []models.Activity{}
	for _, r := range recipes {
		if inWindow(r.CreatedAt) {
			feed = append(feed, models.Activity{
				ID:        r.ID,
				Kind:      models.ActivityRecipe,
				Title:     "New recipe: " + r.Title,
				Actor:     r.Author.DisplayName("Chef"),
				Timestamp: r.CreatedAt,
			})
		}
	}
	for _, m := range messages {
		if inWindow(m.CreatedAt) {
			feed = append(feed, models.Activity{
				ID:        m.ID,
				Kind:      models.ActivityMessage,
				Title:     "New " + string(m.Type) + ": " + m.Title,
				Actor:     m.User.DisplayName("User"),
				Timestamp: m.CreatedAt,
			})
		}
	}
	for _, u := range users {
		if inWindow(u.CreatedAt) {
			feed = append(feed, models.Activity{
				ID:        u.ID,
				Kind:      models.ActivityUser,
				Title:     "New user joined: " + u.Name,
				Actor:     "System",
				Timestamp: u.CreatedAt,
			})
		}
	}

	sort.SliceStable(feed, func(i, j int) bool { return feed[i].Timestamp.After(feed[j].Timestamp) })
	if size > 0 && len(feed) > size {
		feed = feed[:size]
	}
	return feed
}

func round2(v float64) float64 { return math.Round(v*100) / 100 }

func nonNegative[T int | float64](v T) T {
	if v < 0 {
		return 0
	}
	return v
}
