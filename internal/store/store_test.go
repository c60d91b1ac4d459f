package store_test

import (
	"context"
	"errors"
	"os"
	"testing"

	"rewario/internal/db"
	"rewario/internal/domain"
	"rewario/internal/migrate"
	"rewario/internal/store"
)

func newSQLite(t *testing.T) store.SQLite {
	t.Helper()
	conn, err := db.Open(db.Config{Workspace: t.TempDir()})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	if err := migrate.Migrate(conn); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return store.SQLite{DB: conn}
}

func exerciseStore(t *testing.T, s store.Store) {
	ctx := context.Background()
	if _, err := s.Get(ctx, "missing"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := s.Put(ctx, "k", []byte("v1")); err != nil {
		t.Fatalf("put: %v", err)
	}
	if err := s.Put(ctx, "k", []byte("v2")); err != nil {
		t.Fatalf("overwrite: %v", err)
	}
	got, err := s.Get(ctx, "k")
	if err != nil || string(got) != "v2" {
		t.Fatalf("get: %q %v", got, err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := s.Get(ctx, "k"); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.Delete(ctx, "k"); err != nil {
		t.Fatalf("delete missing: %v", err)
	}
}

func TestSQLiteStore(t *testing.T) {
	exerciseStore(t, newSQLite(t))
}

func TestRedisStore(t *testing.T) {
	addr := os.Getenv("REWARIO_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("REWARIO_TEST_REDIS_ADDR not set")
	}
	r, err := store.NewRedis(context.Background(), store.RedisOptions{Addr: addr, Prefix: "rewario-test:"})
	if err != nil {
		t.Fatalf("connect: %v", err)
	}
	defer r.Close()
	exerciseStore(t, r)
}

func TestJSONRoundTrip(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()
	lvl, rate := 2, 0.8
	task := domain.Task{
		ID:              "task-9",
		Title:           "Complete Survey",
		Description:     "desc",
		Type:            domain.TaskSurvey,
		Partner:         domain.Partner{ID: "fyber", Name: "Fyber", Logo: "/icons/fyber.png", Type: domain.PartnerOfferwall},
		TrackingURL:     "https://example.com/track?offer=1",
		RewardINR:       25.5,
		CoinValue:       20,
		TimeRequired:    "2 minutes",
		Instructions:    []string{"one", "two"},
		Category:        "surveys",
		Status:          domain.StatusInProgress,
		MinLevel:        &lvl,
		Offerwall:       "fyber",
		OfferwallTaskID: "fyber-1",
		ConversionRate:  &rate,
	}
	if err := store.PutJSON(ctx, s, store.KeyTaskCatalog, []domain.Task{task}); err != nil {
		t.Fatalf("put tasks: %v", err)
	}
	var tasks []domain.Task
	if err := store.GetJSON(ctx, s, store.KeyTaskCatalog, &tasks); err != nil {
		t.Fatalf("get tasks: %v", err)
	}
	if len(tasks) != 1 || tasks[0].ID != task.ID || *tasks[0].MinLevel != 2 || *tasks[0].ConversionRate != 0.8 ||
		tasks[0].Partner != task.Partner || tasks[0].Instructions[1] != "two" || tasks[0].RewardINR != 25.5 ||
		tasks[0].Status != domain.StatusInProgress || tasks[0].OfferwallTaskID != "fyber-1" {
		t.Fatalf("task round trip mismatch: %+v", tasks)
	}

	user := domain.User{ID: "u1", Name: "John", Email: "a@b.com", Level: 2, Coins: 150, DailyEarnings: 70,
		ReferralCode: "JOHN42", CompletedTasks: 4, JoinDate: "2024-01-01T00:00:00Z"}
	if err := store.PutJSON(ctx, s, store.KeyCurrentUser, user); err != nil {
		t.Fatalf("put user: %v", err)
	}
	var got domain.User
	if err := store.GetJSON(ctx, s, store.KeyCurrentUser, &got); err != nil {
		t.Fatalf("get user: %v", err)
	}
	if got != user {
		t.Fatalf("user round trip mismatch: %+v != %+v", got, user)
	}
}

func TestGetJSONReportsCorruptValue(t *testing.T) {
	s := newSQLite(t)
	ctx := context.Background()
	if err := s.Put(ctx, store.KeyCurrentUser, []byte("{not json")); err != nil {
		t.Fatal(err)
	}
	var u domain.User
	err := store.GetJSON(ctx, s, store.KeyCurrentUser, &u)
	if err == nil || errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected decode error, got %v", err)
	}
}
