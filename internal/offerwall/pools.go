package offerwall

import "rewario/internal/domain"

var categories = []string{"apps", "surveys", "ads", "games", "offers"}

var titles = map[domain.TaskType][]string{
	domain.TaskAppInstall: {"Install Shopping App", "Download Music Player", "Try New Fitness App", "Install Recipe App", "Download Travel App"},
	domain.TaskSurvey:     {"Shopping Habits Survey", "Media Consumption Survey", "Product Feedback Survey", "Market Research Survey", "Consumer Preferences Survey"},
	domain.TaskVideoAd:    {"Watch Product Demo", "View Brand Commercial", "Watch App Tutorial", "View Game Trailer", "Watch Service Overview"},
	domain.TaskGame:       {"Reach Level 5 in RPG Game", "Complete Puzzle Challenge", "Play Casino Game", "Complete Racing Game Tutorial", "Play Strategy Game"},
	domain.TaskAffiliate:  {"Sign Up for Streaming Service", "Create Food Delivery Account", "Subscribe to Newsletter", "Register for Online Course", "Try Premium Service Free Trial"},
}

var descriptions = map[domain.TaskType]string{
	domain.TaskAppInstall: "Download this app and open it to receive your reward",
	domain.TaskSurvey:     "Complete a short survey to earn coins",
	domain.TaskVideoAd:    "Watch a video advertisement to completion",
	domain.TaskGame:       "Install and play this game to earn rewards",
	domain.TaskAffiliate:  "Sign up for this service to earn coins",
}

var durations = map[domain.TaskType][]string{
	domain.TaskAppInstall: {"2 minutes", "3 minutes", "5 minutes"},
	domain.TaskSurvey:     {"5 minutes", "10 minutes", "15 minutes"},
	domain.TaskVideoAd:    {"30 seconds", "1 minute", "2 minutes"},
	domain.TaskGame:       {"10 minutes", "15 minutes", "20 minutes"},
	domain.TaskAffiliate:  {"5 minutes", "7 minutes", "10 minutes"},
}

var instructions = map[domain.TaskType][]string{
	domain.TaskAppInstall: {
		"Download the app from the link provided",
		"Open the app and create an account",
		"Complete the tutorial or intro screens",
		"Allow any required permissions",
	},
	domain.TaskSurvey: {
		"Answer all questions honestly",
		"Complete all pages of the survey",
		"Submit the survey when finished",
	},
	domain.TaskVideoAd: {
		"Watch the entire video without skipping",
		"Keep the app in foreground while watching",
		"After completion, you will be redirected back",
	},
	domain.TaskGame: {
		"Download and install the game",
		"Create an account or play as guest",
		"Complete the tutorial",
		"Reach the required level or objective",
	},
	domain.TaskAffiliate: {
		"Click on the link to visit the partner website",
		"Sign up for an account",
		"Complete any required verification steps",
		"Your reward will be credited within 24 hours",
	},
}
