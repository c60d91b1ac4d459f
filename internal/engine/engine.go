package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math/rand/v2"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"rewario/internal/catalog"
	"rewario/internal/config"
	"rewario/internal/domain"
	"rewario/internal/events"
	"rewario/internal/metrics"
	"rewario/internal/offerwall"
	"rewario/internal/progression"
	"rewario/internal/repo"
	"rewario/internal/reward"
	"rewario/internal/session"
	"rewario/internal/store"
)

const entityTask = "task"
const entityUser = "user"

type Engine struct {
	DB         *sql.DB
	Repo       repo.Repo
	Events     events.Writer
	Config     *config.Config
	Store      store.Store
	Catalog    *catalog.Catalog
	Offerwalls *offerwall.Directory
	Session    *session.Session
	Metrics    *metrics.Metrics
	Log        zerolog.Logger
	Now        func() time.Time
}

// New wires the services over db and st. rng seeds offerwall generation; nil uses the clock.
func New(db *sql.DB, st store.Store, cfg *config.Config, log zerolog.Logger, rng *rand.Rand) Engine {
	if cfg == nil {
		cfg = config.Default()
	}
	sess := session.New(st, log.With().Str("component", "session").Logger())
	sess.SignupBonus = cfg.Rewards.SignupBonus
	return Engine{
		DB:         db,
		Repo:       repo.Repo{DB: db},
		Events:     events.Writer{DB: db},
		Config:     cfg,
		Store:      st,
		Catalog:    catalog.New(st, log.With().Str("component", "catalog").Logger()),
		Offerwalls: offerwall.New(cfg.Offerwall.Providers, rng),
		Session:    sess,
		Metrics:    metrics.New(),
		Log:        log,
		Now:        time.Now,
	}
}

func (e Engine) now() time.Time {
	if e.Now != nil {
		return e.Now()
	}
	return time.Now()
}

// Load restores the task catalog and the active user.
func (e Engine) Load(ctx context.Context) error {
	if err := e.Catalog.Load(ctx); err != nil {
		return err
	}
	return e.Session.Load(ctx)
}

// CurrentUser returns the active user or ErrNotAuthenticated.
func (e Engine) CurrentUser() (domain.User, error) {
	u, ok := e.Session.Current()
	if !ok {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	return u, nil
}

func (e Engine) ListTasks(f catalog.Filter) []domain.Task {
	return e.Catalog.List(f)
}

func (e Engine) GetTask(id string) (domain.Task, error) {
	return e.Catalog.Get(id)
}

func (e Engine) Levels() []domain.LevelTier {
	return e.Config.Levels
}

// StartTask moves a task to in_progress for the active user.
func (e Engine) StartTask(ctx context.Context, id string) (domain.Task, error) {
	u, err := e.CurrentUser()
	if err != nil {
		return domain.Task{}, err
	}
	task, err := e.Catalog.Get(id)
	if err != nil {
		return domain.Task{}, err
	}
	if err := checkLevel(u, task); err != nil {
		return domain.Task{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.Task{}, fmt.Errorf("start task %s: %w", id, err)
	}
	defer tx.Rollback()
	started, err := e.Catalog.Start(ctx, id)
	if err != nil {
		return domain.Task{}, err
	}
	err = e.Events.Append(ctx, tx, events.TaskStarted, entityTask, started.ID, u.ID, events.EventPayload{
		"category": started.Category,
		"partner":  started.Partner.ID,
	})
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		tx.Rollback()
		e.restoreTask(ctx, started.ID, task.Status)
		return domain.Task{}, fmt.Errorf("record task start %s: %w", id, err)
	}
	e.Metrics.TasksStarted.WithLabelValues(started.Category).Inc()
	return started, nil
}

// Completion is the outcome of CompleteTask. Awarded is zero when the task was already completed.
type Completion struct {
	Task      domain.Task `json:"task"`
	User      domain.User `json:"user"`
	Awarded   int         `json:"awarded"`
	LevelUp   bool        `json:"levelUp"`
	Duplicate bool        `json:"duplicate"`
}

// CompleteTask marks a task completed and credits its coins once.
// On failure the task status and the user are put back, so a retry credits again.
func (e Engine) CompleteTask(ctx context.Context, id string) (Completion, error) {
	u, err := e.CurrentUser()
	if err != nil {
		return Completion{}, err
	}
	task, err := e.Catalog.Get(id)
	if err != nil {
		return Completion{}, err
	}
	if task.Status != domain.StatusCompleted {
		if err := checkLevel(u, task); err != nil {
			return Completion{}, err
		}
	}

	// The tx writes last and is rolled back before any restore: the store may share the database
	// and must not wait on the tx's write lock.
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return Completion{}, fmt.Errorf("complete task %s: %w", id, err)
	}
	defer tx.Rollback()

	done, changed, err := e.Catalog.Complete(ctx, id)
	if err != nil {
		return Completion{}, err
	}
	if !changed {
		return Completion{Task: done, User: u, Duplicate: true}, nil
	}
	credited, err := e.Session.ApplyReward(ctx, done.CoinValue, e.Config.Levels)
	if err != nil {
		e.restoreTask(ctx, done.ID, task.Status)
		return Completion{}, fmt.Errorf("credit task %s: %w", done.ID, err)
	}
	if err := e.recordCompletion(ctx, tx, done, credited); err != nil {
		tx.Rollback()
		e.restoreUser(ctx, u)
		e.restoreTask(ctx, done.ID, task.Status)
		return Completion{}, fmt.Errorf("record completion %s: %w", done.ID, err)
	}

	e.Metrics.TasksCompleted.WithLabelValues(done.Category).Inc()
	e.Metrics.CoinsAwarded.Add(float64(done.CoinValue))
	levelUp := credited.Level > u.Level
	if levelUp {
		e.Log.Info().Str("user_id", credited.ID).Int("level", credited.Level).Msg("user reached new level")
	}
	return Completion{Task: done, User: credited, Awarded: done.CoinValue, LevelUp: levelUp}, nil
}

func (e Engine) recordCompletion(ctx context.Context, tx *sql.Tx, task domain.Task, u domain.User) error {
	if err := e.Repo.InsertTransaction(ctx, tx, e.newTransaction(u.ID, domain.TxEarned, task.CoinValue, task.Title)); err != nil {
		return err
	}
	if err := e.Events.Append(ctx, tx, events.TaskCompleted, entityTask, task.ID, u.ID, events.EventPayload{
		"coins":    task.CoinValue,
		"category": task.Category,
		"level":    u.Level,
	}); err != nil {
		return err
	}
	return tx.Commit()
}

func (e Engine) restoreTask(ctx context.Context, id string, status domain.TaskStatus) {
	if err := e.Catalog.Restore(ctx, id, status); err != nil {
		e.Log.Error().Err(err).Str("task_id", id).Str("status", string(status)).Msg("restore task status failed")
	}
}

func (e Engine) restoreUser(ctx context.Context, u domain.User) {
	if err := e.Session.Restore(ctx, u); err != nil {
		e.Log.Error().Err(err).Str("user_id", u.ID).Msg("restore user failed")
	}
}

func checkLevel(u domain.User, task domain.Task) error {
	if need := task.RequiredLevel(); u.Level < need {
		return fmt.Errorf("task %s needs level %d, user is level %d: %w", task.ID, need, u.Level, domain.ErrLevelLocked)
	}
	return nil
}

// Register creates the active user and books the signup bonus.
func (e Engine) Register(ctx context.Context, email, password, name string) (domain.User, error) {
	u, err := e.Session.Register(ctx, email, password, name)
	if err != nil {
		return domain.User{}, err
	}
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return domain.User{}, err
	}
	defer tx.Rollback()
	if u.Coins > 0 {
		if err := e.Repo.InsertTransaction(ctx, tx, e.newTransaction(u.ID, domain.TxBonus, u.Coins, "Signup bonus")); err != nil {
			return domain.User{}, err
		}
	}
	if err := e.Events.Append(ctx, tx, events.UserRegistered, entityUser, u.ID, u.ID, events.EventPayload{
		"email":         u.Email,
		"referral_code": u.ReferralCode,
	}); err != nil {
		return domain.User{}, err
	}
	if err := tx.Commit(); err != nil {
		return domain.User{}, err
	}
	e.Metrics.Registrations.Inc()
	e.Metrics.CoinsAwarded.Add(float64(u.Coins))
	return u, nil
}

func (e Engine) Login(ctx context.Context, email, password string) (domain.User, error) {
	u, err := e.Session.Login(ctx, email, password)
	if err != nil {
		return domain.User{}, err
	}
	if err := e.Events.Append(ctx, nil, events.UserLoggedIn, entityUser, u.ID, u.ID, nil); err != nil {
		return domain.User{}, err
	}
	e.Metrics.Logins.Inc()
	return u, nil
}

// Logout ends the session. It succeeds when nobody is logged in.
func (e Engine) Logout(ctx context.Context) error {
	u, ok := e.Session.Current()
	if err := e.Session.Logout(ctx); err != nil {
		return err
	}
	if !ok {
		return nil
	}
	return e.Events.Append(ctx, nil, events.UserLoggedOut, entityUser, u.ID, u.ID, nil)
}

// UpdateUser applies patch to the active user. ok is false when nobody is logged in.
func (e Engine) UpdateUser(ctx context.Context, patch domain.UserPatch) (domain.User, bool, error) {
	u, ok, err := e.Session.UpdateUser(ctx, patch)
	if err != nil || !ok {
		return u, ok, err
	}
	if err := e.Events.Append(ctx, nil, events.UserUpdated, entityUser, u.ID, u.ID, events.EventPayload{
		"fields": patchFields(patch),
	}); err != nil {
		return domain.User{}, true, err
	}
	return u, true, nil
}

func patchFields(p domain.UserPatch) []string {
	var fields []string
	add := func(set bool, name string) {
		if set {
			fields = append(fields, name)
		}
	}
	add(p.Name != nil, "name")
	add(p.Email != nil, "email")
	add(p.Level != nil, "level")
	add(p.Coins != nil, "coins")
	add(p.DailyEarnings != nil, "dailyEarnings")
	add(p.ReferralCode != nil, "referralCode")
	add(p.Avatar != nil, "avatar")
	add(p.CompletedTasks != nil, "completedTasks")
	return fields
}

// Withdrawal is a completed payout request.
type Withdrawal struct {
	Transaction domain.Transaction `json:"transaction"`
	User        domain.User        `json:"user"`
	ValueINR    decimal.Decimal    `json:"valueInr"`
}

// Withdraw debits coins from the active user. Requests under the configured minimum are rejected.
func (e Engine) Withdraw(ctx context.Context, coins int) (Withdrawal, error) {
	if _, err := e.CurrentUser(); err != nil {
		return Withdrawal{}, err
	}
	if coins <= 0 {
		return Withdrawal{}, fmt.Errorf("%w: %d coins", domain.ErrInvalidAmount, coins)
	}
	if minimum := e.Config.Rewards.MinWithdrawal; coins < minimum {
		return Withdrawal{}, fmt.Errorf("minimum is %d coins: %w", minimum, domain.ErrBelowMinimum)
	}
	before, _ := e.Session.Current()
	tx, err := e.DB.BeginTx(ctx, nil)
	if err != nil {
		return Withdrawal{}, fmt.Errorf("withdraw: %w", err)
	}
	defer tx.Rollback()
	u, err := e.Session.DebitCoins(ctx, coins)
	if err != nil {
		return Withdrawal{}, err
	}
	t := e.newTransaction(u.ID, domain.TxWithdrawn, coins, "Withdrawal")
	value := reward.CoinsToINR(coins, e.Config.Rewards.ConversionRate)
	err = e.Repo.InsertTransaction(ctx, tx, t)
	if err == nil {
		err = e.Events.Append(ctx, tx, events.WalletWithdraw, entityUser, u.ID, u.ID, events.EventPayload{
			"coins":     coins,
			"value_inr": value.StringFixed(2),
		})
	}
	if err == nil {
		err = tx.Commit()
	}
	if err != nil {
		tx.Rollback()
		e.restoreUser(ctx, before)
		return Withdrawal{}, fmt.Errorf("record withdrawal: %w", err)
	}
	e.Metrics.CoinsWithdrawn.Add(float64(coins))
	return Withdrawal{Transaction: t, User: u, ValueINR: value}, nil
}

// Wallet summarizes the active user's balance and ledger.
type Wallet struct {
	Coins         int                            `json:"coins"`
	DailyEarnings int                            `json:"dailyEarnings"`
	ValueINR      decimal.Decimal                `json:"valueInr"`
	MinWithdrawal int                            `json:"minWithdrawal"`
	Totals        map[domain.TransactionKind]int `json:"totals"`
}

func (e Engine) Wallet(ctx context.Context) (Wallet, error) {
	u, err := e.CurrentUser()
	if err != nil {
		return Wallet{}, err
	}
	totals, err := e.Repo.Totals(ctx, u.ID)
	if err != nil {
		return Wallet{}, err
	}
	return Wallet{
		Coins:         u.Coins,
		DailyEarnings: u.DailyEarnings,
		ValueINR:      reward.CoinsToINR(u.Coins, e.Config.Rewards.ConversionRate),
		MinWithdrawal: e.Config.Rewards.MinWithdrawal,
		Totals:        totals,
	}, nil
}

// Transactions lists the active user's ledger, newest first.
func (e Engine) Transactions(ctx context.Context, limit int) ([]domain.Transaction, error) {
	u, err := e.CurrentUser()
	if err != nil {
		return nil, err
	}
	return e.Repo.ListTransactions(ctx, u.ID, limit)
}

// ListEvents returns logged events, newest first.
func (e Engine) ListEvents(ctx context.Context, f repo.EventFilters) ([]domain.Event, error) {
	return e.Repo.LatestEvents(ctx, f)
}

func (e Engine) newTransaction(userID string, kind domain.TransactionKind, coins int, source string) domain.Transaction {
	return domain.Transaction{
		ID:        uuid.NewString(),
		UserID:    userID,
		Kind:      kind,
		Coins:     coins,
		Source:    source,
		CreatedAt: e.now().UTC().Format(time.RFC3339),
	}
}

func (e Engine) Providers() []domain.OfferwallProvider {
	return e.Offerwalls.Providers()
}

func (e Engine) Provider(id string) (domain.OfferwallProvider, error) {
	return e.Offerwalls.Provider(id)
}

// OfferwallTasks returns the cached tasks for a provider, generating and caching them when absent or when refresh is set.
func (e Engine) OfferwallTasks(ctx context.Context, providerID string, count int, refresh bool) ([]domain.Task, error) {
	if _, err := e.Offerwalls.Provider(providerID); err != nil {
		return nil, err
	}
	if count <= 0 {
		count = e.Config.Offerwall.TasksPerProvider
	}
	key := store.OfferwallTasksKey(providerID)
	if !refresh {
		var cached []domain.Task
		err := store.GetJSON(ctx, e.Store, key, &cached)
		switch {
		case err == nil && len(cached) == count:
			return cached, nil
		case err != nil && !errors.Is(err, store.ErrNotFound):
			e.Log.Warn().Err(err).Str("provider", providerID).Msg("discarding offerwall cache")
		}
	}
	tasks := e.Offerwalls.GenerateTasks(providerID, count)
	if err := store.PutJSON(ctx, e.Store, key, tasks); err != nil {
		return nil, fmt.Errorf("cache offerwall tasks: %w", err)
	}
	e.Metrics.OfferwallTasks.WithLabelValues(providerID).Add(float64(len(tasks)))
	return tasks, nil
}

// Referral is the active user's invite link.
type Referral struct {
	Code           string `json:"code"`
	URL            string `json:"url"`
	BonusPerFriend int    `json:"bonusPerFriend"`
}

func (e Engine) Referral() (Referral, error) {
	u, err := e.CurrentUser()
	if err != nil {
		return Referral{}, err
	}
	return Referral{
		Code:           u.ReferralCode,
		URL:            strings.TrimRight(e.Config.Referral.BaseURL, "/") + "/" + url.PathEscape(u.ReferralCode),
		BonusPerFriend: e.Config.Referral.Bonus,
	}, nil
}

// Progress describes the active user's position on the level ladder.
type Progress struct {
	User        domain.User       `json:"user"`
	Current     domain.LevelTier  `json:"current"`
	Next        *domain.LevelTier `json:"next,omitempty"`
	Fraction    float64           `json:"fraction"`
	TasksToNext int               `json:"tasksToNext"`
	TopTier     bool              `json:"topTier"`
}

func (e Engine) Progress() (Progress, error) {
	u, err := e.CurrentUser()
	if err != nil {
		return Progress{}, err
	}
	tiers := e.Config.Levels
	p := Progress{
		User:        u,
		Current:     progression.CurrentTier(tiers, u.CompletedTasks),
		Fraction:    progression.ProgressToNextTier(tiers, u),
		TasksToNext: progression.TasksToNextTier(tiers, u.CompletedTasks),
	}
	if next, ok := progression.NextTier(tiers, u.CompletedTasks); ok {
		p.Next = &next
	} else {
		p.TopTier = true
	}
	return p, nil
}
