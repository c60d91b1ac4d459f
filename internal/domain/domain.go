package domain

type TaskType string

const (
	TaskAppInstall TaskType = "app_install"
	TaskSurvey     TaskType = "survey"
	TaskVideoAd    TaskType = "video_ad"
	TaskGame       TaskType = "game"
	TaskAffiliate  TaskType = "affiliate"
)

// TaskTypes lists every task type in declaration order.
var TaskTypes = []TaskType{TaskAppInstall, TaskSurvey, TaskVideoAd, TaskGame, TaskAffiliate}

type TaskStatus string

const (
	StatusAvailable  TaskStatus = "available"
	StatusInProgress TaskStatus = "in_progress"
	StatusCompleted  TaskStatus = "completed"
)

const (
	PartnerOfferwall = "offerwall"
	PartnerDirect    = "direct"
)

// CategoryAll disables category filtering.
const CategoryAll = "all"

type Partner struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Logo string `json:"logo,omitempty"`
	Type string `json:"type" enum:"offerwall,direct"`
}

type Task struct {
	ID              string     `json:"id"`
	Title           string     `json:"title"`
	Description     string     `json:"description"`
	Type            TaskType   `json:"type" enum:"app_install,survey,video_ad,game,affiliate"`
	Partner         Partner    `json:"partner"`
	TrackingURL     string     `json:"trackingUrl"`
	RewardINR       float64    `json:"rewardInr"`
	CoinValue       int        `json:"coinValue"`
	TimeRequired    string     `json:"timeRequired"`
	Instructions    []string   `json:"instructions"`
	Category        string     `json:"category"`
	Status          TaskStatus `json:"status" enum:"available,in_progress,completed"`
	MinLevel        *int       `json:"minLevel,omitempty"`
	ImageURL        string     `json:"imageUrl,omitempty"`
	Offerwall       string     `json:"offerwall,omitempty"`
	OfferwallTaskID string     `json:"offerwallTaskId,omitempty"`
	ConversionRate  *float64   `json:"conversionRate,omitempty"`
}

// Clone returns a deep copy so callers never share mutable slices or pointers.
func (t Task) Clone() Task {
	out := t
	if t.Instructions != nil {
		out.Instructions = append([]string(nil), t.Instructions...)
	}
	if t.MinLevel != nil {
		v := *t.MinLevel
		out.MinLevel = &v
	}
	if t.ConversionRate != nil {
		v := *t.ConversionRate
		out.ConversionRate = &v
	}
	return out
}

// RequiredLevel is the minimum user level gate, 1 when the task has none.
func (t Task) RequiredLevel() int {
	if t.MinLevel == nil || *t.MinLevel < 1 {
		return 1
	}
	return *t.MinLevel
}

type OfferwallProvider struct {
	ID              string `json:"id" yaml:"id"`
	Name            string `json:"name" yaml:"name"`
	Logo            string `json:"logo" yaml:"logo"`
	Description     string `json:"description" yaml:"description"`
	Active          bool   `json:"active" yaml:"active"`
	BackgroundColor string `json:"backgroundColor" yaml:"background_color"`
	TextColor       string `json:"textColor" yaml:"text_color"`
}

type User struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Email          string `json:"email"`
	Level          int    `json:"level"`
	Coins          int    `json:"coins"`
	DailyEarnings  int    `json:"dailyEarnings"`
	ReferralCode   string `json:"referralCode"`
	Avatar         string `json:"avatar,omitempty"`
	JoinDate       string `json:"joinDate,omitempty" format:"date-time"`
	CompletedTasks int    `json:"completedTasks"`
}

// UserPatch enumerates every field a partial update may touch. Nil fields are left unchanged.
// Counters may not go negative, level starts at 1 and completed tasks never decrease.
type UserPatch struct {
	Name           *string `json:"name,omitempty" validate:"omitnil,min=1" minLength:"1"`
	Email          *string `json:"email,omitempty" validate:"omitnil,min=1" minLength:"1"`
	Level          *int    `json:"level,omitempty" validate:"omitnil,min=1" minimum:"1"`
	Coins          *int    `json:"coins,omitempty" validate:"omitnil,min=0" minimum:"0"`
	DailyEarnings  *int    `json:"dailyEarnings,omitempty" validate:"omitnil,min=0" minimum:"0"`
	ReferralCode   *string `json:"referralCode,omitempty"`
	Avatar         *string `json:"avatar,omitempty"`
	CompletedTasks *int    `json:"completedTasks,omitempty" validate:"omitnil,min=0" minimum:"0"`
}

// Apply merges the patch into u and returns the result.
func (p UserPatch) Apply(u User) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Email != nil {
		u.Email = *p.Email
	}
	if p.Level != nil {
		u.Level = *p.Level
	}
	if p.Coins != nil {
		u.Coins = *p.Coins
	}
	if p.DailyEarnings != nil {
		u.DailyEarnings = *p.DailyEarnings
	}
	if p.ReferralCode != nil {
		u.ReferralCode = *p.ReferralCode
	}
	if p.Avatar != nil {
		u.Avatar = *p.Avatar
	}
	if p.CompletedTasks != nil {
		u.CompletedTasks = *p.CompletedTasks
	}
	return u
}

// IsEmpty reports whether the patch touches nothing.
func (p UserPatch) IsEmpty() bool {
	return p == UserPatch{}
}

type LevelTier struct {
	Level          int      `json:"level" yaml:"level"`
	TasksRequired  int      `json:"tasksRequired" yaml:"tasks_required"`
	MaxTasksPerDay int      `json:"maxTasksPerDay" yaml:"max_tasks_per_day"`
	Benefits       []string `json:"benefits" yaml:"benefits"`
}

type TransactionKind string

const (
	TxBonus     TransactionKind = "bonus"
	TxEarned    TransactionKind = "earned"
	TxWithdrawn TransactionKind = "withdrawn"
)

type Transaction struct {
	ID        string          `json:"id"`
	UserID    string          `json:"userId"`
	Kind      TransactionKind `json:"kind" enum:"bonus,earned,withdrawn"`
	Coins     int             `json:"coins"`
	Source    string          `json:"source"`
	CreatedAt string          `json:"createdAt" format:"date-time"`
}

type Event struct {
	ID         int64  `json:"id"`
	TS         string `json:"ts" format:"date-time"`
	Type       string `json:"type"`
	EntityKind string `json:"entity_kind"`
	EntityID   string `json:"entity_id,omitempty"`
	ActorID    string `json:"actor_id"`
	Payload    string `json:"payload_json"`
}
