// Package catalog owns the canonical task list and its status transitions.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"rewario/internal/domain"
	"rewario/internal/reward"
	"rewario/internal/store"
)

// Filter narrows List. Empty fields match everything.
type Filter struct {
	Category string
	Search   string
}

// Catalog is safe for concurrent use. Every mutation is persisted before it becomes visible.
type Catalog struct {
	store store.Store
	log   zerolog.Logger
	seed  func() []domain.Task

	mu    sync.RWMutex
	tasks []domain.Task
}

func New(s store.Store, log zerolog.Logger) *Catalog {
	return &Catalog{store: s, log: log, seed: SeedTasks}
}

// WithSeed replaces the first-run dataset.
func (c *Catalog) WithSeed(seed func() []domain.Task) *Catalog {
	c.seed = seed
	return c
}

// Load reads the persisted catalog, seeding and saving the reference dataset on first run.
func (c *Catalog) Load(ctx context.Context) error {
	var tasks []domain.Task
	err := store.GetJSON(ctx, c.store, store.KeyTaskCatalog, &tasks)
	switch {
	case errors.Is(err, store.ErrNotFound):
		tasks = c.seed()
		if err := store.PutJSON(ctx, c.store, store.KeyTaskCatalog, tasks); err != nil {
			return fmt.Errorf("seed task catalog: %w", err)
		}
		c.log.Info().Int("tasks", len(tasks)).Msg("seeded task catalog")
	case err != nil:
		return fmt.Errorf("load task catalog: %w", err)
	}
	for i := range tasks {
		if tasks[i].Status == "" {
			tasks[i].Status = domain.StatusAvailable
		}
		tasks[i].CoinValue = reward.DeriveCoinValue(tasks[i].RewardINR, reward.RateOrDefault(tasks[i].ConversionRate))
	}
	c.mu.Lock()
	c.tasks = tasks
	c.mu.Unlock()
	return nil
}

// List returns matching tasks in catalog order.
func (c *Catalog) List(f Filter) []domain.Task {
	category := strings.TrimSpace(f.Category)
	if category == domain.CategoryAll {
		category = ""
	}
	search := strings.ToLower(strings.TrimSpace(f.Search))

	c.mu.RLock()
	defer c.mu.RUnlock()
	res := []domain.Task{}
	for _, t := range c.tasks {
		if category != "" && t.Category != category {
			continue
		}
		if search != "" && !strings.Contains(strings.ToLower(t.Title), search) &&
			!strings.Contains(strings.ToLower(t.Description), search) {
			continue
		}
		res = append(res, t.Clone())
	}
	return res
}

// Categories returns the distinct category tags in first-seen order.
func (c *Catalog) Categories() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	seen := map[string]bool{}
	var res []string
	for _, t := range c.tasks {
		if !seen[t.Category] {
			seen[t.Category] = true
			res = append(res, t.Category)
		}
	}
	return res
}

func (c *Catalog) Get(id string) (domain.Task, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	i := c.indexOf(id)
	if i < 0 {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	return c.tasks[i].Clone(), nil
}

// Start moves an available task to in_progress.
func (c *Catalog) Start(ctx context.Context, id string) (domain.Task, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return domain.Task{}, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	if cur := c.tasks[i].Status; cur != domain.StatusAvailable {
		return domain.Task{}, fmt.Errorf("task %s is %s: %w", id, cur, domain.ErrInvalidTransition)
	}
	return c.commit(ctx, i, domain.StatusInProgress)
}

// Complete marks a task completed from any state. changed is false when it already was.
func (c *Catalog) Complete(ctx context.Context, id string) (task domain.Task, changed bool, err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return domain.Task{}, false, fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	if c.tasks[i].Status == domain.StatusCompleted {
		return c.tasks[i].Clone(), false, nil
	}
	task, err = c.commit(ctx, i, domain.StatusCompleted)
	if err != nil {
		return domain.Task{}, false, err
	}
	return task, true, nil
}

// Restore puts a task back to status without transition checks. Used to undo a change whose follow-up failed.
func (c *Catalog) Restore(ctx context.Context, id string, status domain.TaskStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return fmt.Errorf("task %s: %w", id, domain.ErrNotFound)
	}
	if c.tasks[i].Status == status {
		return nil
	}
	_, err := c.commit(ctx, i, status)
	return err
}

// Reset restores the reference dataset.
func (c *Catalog) Reset(ctx context.Context) error {
	tasks := c.seed()
	c.mu.Lock()
	defer c.mu.Unlock()
	if err := store.PutJSON(ctx, c.store, store.KeyTaskCatalog, tasks); err != nil {
		return fmt.Errorf("save task catalog: %w", err)
	}
	c.tasks = tasks
	return nil
}

// commit persists a copy with task i set to status and swaps it in. Caller holds mu.
func (c *Catalog) commit(ctx context.Context, i int, status domain.TaskStatus) (domain.Task, error) {
	next := make([]domain.Task, len(c.tasks))
	copy(next, c.tasks)
	next[i].Status = status
	if err := store.PutJSON(ctx, c.store, store.KeyTaskCatalog, next); err != nil {
		c.log.Error().Err(err).Str("task_id", next[i].ID).Str("status", string(status)).Msg("persist task catalog failed")
		return domain.Task{}, fmt.Errorf("save task catalog: %w", err)
	}
	c.tasks = next
	return next[i].Clone(), nil
}

func (c *Catalog) indexOf(id string) int {
	for i, t := range c.tasks {
		if t.ID == id {
			return i
		}
	}
	return -1
}
