package catalog

import (
	"rewario/internal/domain"
	"rewario/internal/reward"
)

func offerwallPartner(id, name string) domain.Partner {
	return domain.Partner{ID: id, Name: name, Logo: "/icons/" + id + ".png", Type: domain.PartnerOfferwall}
}

func level(n int) *int { return &n }

// SeedTasks is the reference dataset written on first run.
func SeedTasks() []domain.Task {
	tasks := []domain.Task{
		{
			ID:           "task-1",
			Title:        "Install Shopping App",
			Description:  "Download and sign up for the Shopping App to earn coins",
			Type:         domain.TaskAppInstall,
			Partner:      offerwallPartner("tapjoy", "Tapjoy"),
			TrackingURL:  "https://example.com/track?offer=123",
			RewardINR:    50,
			TimeRequired: "5 minutes",
			Instructions: []string{"Download the app", "Create an account", "Complete the tutorial", "Your reward will be credited within 24 hours"},
			Category:     "apps",
		},
		{
			ID:           "task-2",
			Title:        "Complete Survey",
			Description:  "Complete a short survey about your shopping habits",
			Type:         domain.TaskSurvey,
			Partner:      offerwallPartner("fyber", "Fyber"),
			TrackingURL:  "https://example.com/track?offer=456",
			RewardINR:    25,
			TimeRequired: "2 minutes",
			Instructions: []string{"Answer all questions honestly", "Complete all pages of the survey", "Submit the survey when finished"},
			Category:     "surveys",
		},
		{
			ID:           "task-3",
			Title:        "Watch Video Ad",
			Description:  "Watch a full video advertisement to earn coins",
			Type:         domain.TaskVideoAd,
			Partner:      offerwallPartner("chartboost", "Chartboost"),
			TrackingURL:  "https://example.com/track?offer=789",
			RewardINR:    15,
			TimeRequired: "30 seconds",
			Instructions: []string{"Watch the entire video without skipping", "Keep the app in foreground while watching", "After completion, you will be redirected back"},
			Category:     "ads",
		},
		{
			ID:           "task-4",
			Title:        "Play Mobile Game",
			Description:  "Download and reach level 5 in the mobile game",
			Type:         domain.TaskGame,
			Partner:      offerwallPartner("ironsource", "IronSource"),
			TrackingURL:  "https://example.com/track?offer=012",
			RewardINR:    100,
			TimeRequired: "20 minutes",
			Instructions: []string{"Download and install the game", "Create an account or play as guest", "Complete the tutorial", "Reach level 5 in the game"},
			Category:     "games",
			MinLevel:     level(2),
		},
		{
			ID:           "task-5",
			Title:        "Premium Survey",
			Description:  "Complete a detailed marketing survey",
			Type:         domain.TaskSurvey,
			Partner:      offerwallPartner("offertoro", "OfferToro"),
			TrackingURL:  "https://example.com/track?offer=345",
			RewardINR:    75,
			TimeRequired: "5 minutes",
			Instructions: []string{"Answer all questions honestly", "Complete all pages of the survey", "Your reward will be credited once verified"},
			Category:     "surveys",
			MinLevel:     level(2),
		},
		{
			ID:           "task-6",
			Title:        "Refer a Friend",
			Description:  "Get a friend to sign up using your referral code",
			Type:         domain.TaskAffiliate,
			Partner:      offerwallPartner("monlix", "Monlix"),
			TrackingURL:  "https://example.com/track?offer=678",
			RewardINR:    150,
			TimeRequired: "Varies",
			Instructions: []string{"Share your unique referral code with friends", "They must sign up and complete one task", "Both of you will receive rewards"},
			Category:     "referrals",
		},
		{
			ID:           "task-7",
			Title:        "Elite Gaming Task",
			Description:  "Download and complete specific missions in the featured game",
			Type:         domain.TaskGame,
			Partner:      offerwallPartner("adgem", "AdGem"),
			TrackingURL:  "https://example.com/track?offer=901",
			RewardINR:    250,
			TimeRequired: "45 minutes",
			Instructions: []string{"Download the game", "Complete the tutorial", "Reach level 10", "Complete 3 special missions"},
			Category:     "games",
			MinLevel:     level(3),
		},
	}
	for i := range tasks {
		tasks[i].Status = domain.StatusAvailable
		tasks[i].CoinValue = reward.DeriveCoinValue(tasks[i].RewardINR, reward.RateOrDefault(tasks[i].ConversionRate))
	}
	return tasks
}
