package catalog_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewario/internal/catalog"
	"rewario/internal/domain"
	"rewario/internal/store"
)

type memStore struct {
	mu      sync.Mutex
	data    map[string][]byte
	failPut bool
}

func newMemStore() *memStore { return &memStore{data: map[string][]byte{}} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func (m *memStore) Put(_ context.Context, key string, value []byte) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failPut {
		return errors.New("disk full")
	}
	m.data[key] = value
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func loaded(t *testing.T, s store.Store) *catalog.Catalog {
	t.Helper()
	c := catalog.New(s, zerolog.Nop())
	require.NoError(t, c.Load(context.Background()))
	return c
}

func TestLoadSeedsAndPersists(t *testing.T) {
	s := newMemStore()
	c := loaded(t, s)
	all := c.List(catalog.Filter{})
	require.Len(t, all, 7)
	for _, task := range all {
		assert.Equal(t, domain.StatusAvailable, task.Status, task.ID)
	}
	assert.Contains(t, s.data, store.KeyTaskCatalog)

	var stored []domain.Task
	require.NoError(t, store.GetJSON(context.Background(), s, store.KeyTaskCatalog, &stored))
	assert.Len(t, stored, 7)
}

func TestSeedCoinValues(t *testing.T) {
	want := map[string]int{"task-1": 40, "task-2": 20, "task-3": 12, "task-4": 80, "task-5": 60, "task-6": 120, "task-7": 200}
	for _, task := range catalog.SeedTasks() {
		assert.Equal(t, want[task.ID], task.CoinValue, task.ID)
	}
}

func TestListFilters(t *testing.T) {
	c := loaded(t, newMemStore())

	surveys := c.List(catalog.Filter{Category: "surveys"})
	require.Len(t, surveys, 2)
	assert.Equal(t, "task-2", surveys[0].ID)
	assert.Equal(t, "task-5", surveys[1].ID)

	assert.Len(t, c.List(catalog.Filter{Category: domain.CategoryAll}), 7)

	found := c.List(catalog.Filter{Search: "survey"})
	ids := []string{}
	for _, task := range found {
		ids = append(ids, task.ID)
	}
	assert.Contains(t, ids, "task-2")
	assert.Contains(t, ids, "task-5")

	assert.Empty(t, c.List(catalog.Filter{Category: "surveys", Search: "gaming"}))
	assert.Len(t, c.List(catalog.Filter{Search: "GAME"}), 2)
}

func TestListReturnsCopies(t *testing.T) {
	c := loaded(t, newMemStore())
	tasks := c.List(catalog.Filter{})
	tasks[0].Instructions[0] = "mutated"
	tasks[0].Status = domain.StatusCompleted

	got, err := c.Get(tasks[0].ID)
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", got.Instructions[0])
	assert.Equal(t, domain.StatusAvailable, got.Status)
}

func TestCategories(t *testing.T) {
	c := loaded(t, newMemStore())
	assert.Equal(t, []string{"apps", "surveys", "ads", "games", "referrals"}, c.Categories())
}

func TestStartAndComplete(t *testing.T) {
	ctx := context.Background()
	c := loaded(t, newMemStore())

	started, err := c.Start(ctx, "task-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, started.Status)

	_, err = c.Start(ctx, "task-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	done, changed, err := c.Complete(ctx, "task-1")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.StatusCompleted, done.Status)

	again, changed, err := c.Complete(ctx, "task-1")
	require.NoError(t, err)
	assert.False(t, changed)
	assert.Equal(t, domain.StatusCompleted, again.Status)

	_, err = c.Start(ctx, "task-1")
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
}

func TestCompleteFromAvailable(t *testing.T) {
	c := loaded(t, newMemStore())
	done, changed, err := c.Complete(context.Background(), "task-3")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, domain.StatusCompleted, done.Status)
}

func TestUnknownTask(t *testing.T) {
	ctx := context.Background()
	c := loaded(t, newMemStore())
	_, err := c.Get("task-999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = c.Start(ctx, "task-999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, _, err = c.Complete(ctx, "task-999")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestFailedPersistLeavesStateUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	c := loaded(t, s)
	s.failPut = true

	_, err := c.Start(ctx, "task-2")
	require.Error(t, err)
	_, _, err = c.Complete(ctx, "task-2")
	require.Error(t, err)

	got, err := c.Get("task-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, got.Status)
}

func TestStatusSurvivesReload(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	c := loaded(t, s)
	_, err := c.Start(ctx, "task-4")
	require.NoError(t, err)
	_, _, err = c.Complete(ctx, "task-6")
	require.NoError(t, err)

	reloaded := loaded(t, s)
	t4, err := reloaded.Get("task-4")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInProgress, t4.Status)
	t6, err := reloaded.Get("task-6")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, t6.Status)
}

func TestCorruptCatalogFailsLoad(t *testing.T) {
	s := newMemStore()
	s.data[store.KeyTaskCatalog] = []byte("{not json")
	c := catalog.New(s, zerolog.Nop())
	assert.Error(t, c.Load(context.Background()))
}

func TestReset(t *testing.T) {
	ctx := context.Background()
	c := loaded(t, newMemStore())
	_, _, err := c.Complete(ctx, "task-1")
	require.NoError(t, err)
	require.NoError(t, c.Reset(ctx))
	got, err := c.Get("task-1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, got.Status)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	c := loaded(t, s)

	_, _, err := c.Complete(ctx, "task-2")
	require.NoError(t, err)
	require.NoError(t, c.Restore(ctx, "task-2", domain.StatusAvailable))

	got, err := c.Get("task-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, got.Status)

	again := loaded(t, s)
	got, err = again.Get("task-2")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusAvailable, got.Status)

	assert.ErrorIs(t, c.Restore(ctx, "nope", domain.StatusAvailable), domain.ErrNotFound)
}
