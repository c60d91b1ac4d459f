// Package progression holds the user level and coin balance rules.
package progression

import (
	"fmt"

	"rewario/internal/domain"
)

// DefaultTiers mirrors the level table shown to users.
var DefaultTiers = []domain.LevelTier{
	{Level: 1, TasksRequired: 0, MaxTasksPerDay: 5, Benefits: []string{"Access to basic tasks", "Up to $1 per task", "Referral program access"}},
	{Level: 2, TasksRequired: 10, MaxTasksPerDay: 10, Benefits: []string{"Access to medium tasks", "Up to $3 per task", "Bonus coins on weekends"}},
	{Level: 3, TasksRequired: 25, MaxTasksPerDay: 15, Benefits: []string{"Access to premium tasks", "Up to $5 per task", "Weekly bonus rewards"}},
	{Level: 4, TasksRequired: 50, MaxTasksPerDay: 20, Benefits: []string{"Access to all tasks", "Up to $10 per task", "Priority support", "Early access to new features"}},
	{Level: 5, TasksRequired: 100, MaxTasksPerDay: 30, Benefits: []string{"VIP tasks", "Up to $20 per task", "Lower withdrawal threshold", "Personal account manager"}},
}

// ApplyReward credits a completed task's coins. The input user is not modified.
func ApplyReward(u domain.User, coins int) (domain.User, error) {
	if coins < 0 {
		return u, fmt.Errorf("%w: %d coins", domain.ErrInvalidAmount, coins)
	}
	u.Coins += coins
	u.DailyEarnings += coins
	u.CompletedTasks++
	return u, nil
}

// CurrentTier returns the highest tier whose requirement is met, or the lowest tier.
// tiers must be non-empty and sorted ascending by TasksRequired.
func CurrentTier(tiers []domain.LevelTier, completed int) domain.LevelTier {
	return tiers[currentIndex(tiers, completed)]
}

// NextTier returns the tier after the current one; ok is false at the top tier.
func NextTier(tiers []domain.LevelTier, completed int) (domain.LevelTier, bool) {
	i := currentIndex(tiers, completed)
	if i+1 >= len(tiers) {
		return domain.LevelTier{}, false
	}
	return tiers[i+1], true
}

// ProgressToNextTier is the fraction in [0,1] of the way from the current tier to the next.
func ProgressToNextTier(tiers []domain.LevelTier, u domain.User) float64 {
	cur := CurrentTier(tiers, u.CompletedTasks)
	next, ok := NextTier(tiers, u.CompletedTasks)
	if !ok {
		return 1
	}
	span := next.TasksRequired - cur.TasksRequired
	if span <= 0 {
		return 1
	}
	p := float64(u.CompletedTasks-cur.TasksRequired) / float64(span)
	switch {
	case p < 0:
		return 0
	case p > 1:
		return 1
	}
	return p
}

// TasksToNextTier is how many more completions reach the next tier, 0 at the top.
func TasksToNextTier(tiers []domain.LevelTier, completed int) int {
	next, ok := NextTier(tiers, completed)
	if !ok {
		return 0
	}
	if n := next.TasksRequired - completed; n > 0 {
		return n
	}
	return 0
}

func currentIndex(tiers []domain.LevelTier, completed int) int {
	idx := 0
	for i, t := range tiers {
		if t.TasksRequired <= completed {
			idx = i
		}
	}
	return idx
}
