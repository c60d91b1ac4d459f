package app_test

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"rewario/internal/app"
	"rewario/internal/catalog"
	"rewario/internal/config"
)

func TestOpenSeedsWorkspace(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()
	a, err := app.Open(ctx, app.Options{Workspace: dir, LogWriter: io.Discard})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if got := len(a.Engine.ListTasks(catalog.Filter{})); got != 7 {
		t.Fatalf("expected 7 seeded tasks, got %d", got)
	}
	if _, err := a.Engine.Register(ctx, "a@b.com", "pw", "John"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if err := a.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	again, err := app.Open(ctx, app.Options{Workspace: dir, LogWriter: io.Discard})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer again.Close()
	if _, err := again.Engine.CurrentUser(); err != nil {
		t.Fatalf("expected restored session: %v", err)
	}
}

func TestOpenReadsWorkspaceConfig(t *testing.T) {
	dir := t.TempDir()
	yml := "rewards:\n  conversion_rate: 0.5\n  signup_bonus: 250\n  min_withdrawal: 1000\n"
	if err := os.WriteFile(config.Path(dir), []byte(yml), 0o644); err != nil {
		t.Fatal(err)
	}
	a, err := app.Open(context.Background(), app.Options{Workspace: dir, LogWriter: io.Discard})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer a.Close()
	if a.Config.Rewards.SignupBonus != 250 || len(a.Config.Levels) != 5 {
		t.Fatalf("unexpected config %+v", a.Config.Rewards)
	}
	u, err := a.Engine.Register(context.Background(), "a@b.com", "pw", "John")
	if err != nil || u.Coins != 250 {
		t.Fatalf("signup bonus from config not applied: %v %d", err, u.Coins)
	}
}

func TestOpenRejectsBadConfig(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "custom.yml"), []byte("storage:\n  backend: mongo\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := app.Open(context.Background(), app.Options{Workspace: dir, ConfigPath: filepath.Join(dir, "custom.yml"), LogWriter: io.Discard}); err == nil {
		t.Fatalf("expected invalid backend error")
	}
}
