package session_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rewario/internal/domain"
	"rewario/internal/progression"
	"rewario/internal/session"
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

func newSession(s store.Store) *session.Session {
	sess := session.New(s, zerolog.Nop())
	sess.Now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	return sess
}

func TestRegister(t *testing.T) {
	s := newMemStore()
	sess := newSession(s)
	u, err := sess.Register(context.Background(), "a@b.com", "pw", "John")
	require.NoError(t, err)
	assert.Equal(t, 100, u.Coins)
	assert.Equal(t, 1, u.Level)
	assert.Equal(t, 0, u.CompletedTasks)
	assert.Equal(t, 0, u.DailyEarnings)
	assert.True(t, strings.HasPrefix(u.ReferralCode, "JOHN"), u.ReferralCode)
	assert.Len(t, u.ReferralCode, 8)
	assert.NotEmpty(t, u.ID)
	assert.Equal(t, "2026-01-02T03:04:05Z", u.JoinDate)
	assert.True(t, sess.IsAuthenticated())

	var stored domain.User
	require.NoError(t, store.GetJSON(context.Background(), s, store.KeyCurrentUser, &stored))
	assert.Equal(t, u, stored)
}

func TestRegisterMissingFields(t *testing.T) {
	sess := newSession(newMemStore())
	cases := [][3]string{
		{"", "pw", "John"},
		{"a@b.com", "", "John"},
		{"a@b.com", "pw", ""},
		{"a@b.com", "pw", "   "},
	}
	for _, c := range cases {
		_, err := sess.Register(context.Background(), c[0], c[1], c[2])
		assert.ErrorIs(t, err, domain.ErrMissingFields, "%v", c)
	}
	assert.False(t, sess.IsAuthenticated())
}

func TestLoginMissingCredentials(t *testing.T) {
	sess := newSession(newMemStore())
	_, err := sess.Login(context.Background(), "", "pw")
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
	_, err = sess.Login(context.Background(), "a@b.com", "")
	assert.ErrorIs(t, err, domain.ErrMissingCredentials)
	assert.False(t, sess.IsAuthenticated())
}

func TestLoginCreatesStableUser(t *testing.T) {
	s := newMemStore()
	sess := newSession(s)
	first, err := sess.Login(context.Background(), "jane@example.com", "secret")
	require.NoError(t, err)
	assert.Equal(t, "jane", first.Name)
	assert.Equal(t, 100, first.Coins)
	assert.True(t, strings.HasPrefix(first.ReferralCode, "JANE"))

	require.NoError(t, sess.Logout(context.Background()))
	second, err := newSession(s).Login(context.Background(), "jane@example.com", "other")
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestLoginRestoresAccountSnapshot(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sess := newSession(s)
	u, err := sess.Register(ctx, "a@b.com", "pw", "John")
	require.NoError(t, err)
	_, err = sess.ApplyReward(ctx, 40, progression.DefaultTiers)
	require.NoError(t, err)
	require.NoError(t, sess.Logout(ctx))
	assert.False(t, sess.IsAuthenticated())

	back, err := sess.Login(ctx, "a@b.com", "pw")
	require.NoError(t, err)
	assert.Equal(t, u.ID, back.ID)
	assert.Equal(t, 140, back.Coins)
	assert.Equal(t, 1, back.CompletedTasks)
}

func TestLogoutClearsPersistedUser(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sess := newSession(s)
	_, err := sess.Register(ctx, "a@b.com", "pw", "John")
	require.NoError(t, err)
	require.NoError(t, sess.Logout(ctx))
	assert.NotContains(t, s.data, store.KeyCurrentUser)

	reloaded := newSession(s)
	require.NoError(t, reloaded.Load(ctx))
	assert.False(t, reloaded.IsAuthenticated())
	require.NoError(t, reloaded.Logout(ctx))
}

func TestLoadRestoresCurrentUser(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	u, err := newSession(s).Register(ctx, "a@b.com", "pw", "John")
	require.NoError(t, err)

	reloaded := newSession(s)
	require.NoError(t, reloaded.Load(ctx))
	got, ok := reloaded.Current()
	require.True(t, ok)
	assert.Equal(t, u, got)
}

func TestUpdateUser(t *testing.T) {
	ctx := context.Background()
	sess := newSession(newMemStore())

	_, ok, err := sess.UpdateUser(ctx, domain.UserPatch{})
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = sess.Register(ctx, "a@b.com", "pw", "John")
	require.NoError(t, err)
	name := "Johnny"
	avatar := "/me.png"
	u, ok, err := sess.UpdateUser(ctx, domain.UserPatch{Name: &name, Avatar: &avatar})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, "Johnny", u.Name)
	assert.Equal(t, "/me.png", u.Avatar)
	assert.Equal(t, 100, u.Coins)
}

func TestApplyRewardRaisesLevel(t *testing.T) {
	ctx := context.Background()
	sess := newSession(newMemStore())
	_, err := sess.Register(ctx, "a@b.com", "pw", "John")
	require.NoError(t, err)
	completed := 9
	_, _, err = sess.UpdateUser(ctx, domain.UserPatch{CompletedTasks: &completed})
	require.NoError(t, err)

	u, err := sess.ApplyReward(ctx, 50, progression.DefaultTiers)
	require.NoError(t, err)
	assert.Equal(t, 150, u.Coins)
	assert.Equal(t, 50, u.DailyEarnings)
	assert.Equal(t, 10, u.CompletedTasks)
	assert.Equal(t, 2, u.Level)

	_, err = sess.ApplyReward(ctx, -1, progression.DefaultTiers)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}

func TestApplyRewardNeverLowersLevel(t *testing.T) {
	ctx := context.Background()
	sess := newSession(newMemStore())
	_, err := sess.Register(ctx, "a@b.com", "pw", "John")
	require.NoError(t, err)
	lvl := 4
	_, _, err = sess.UpdateUser(ctx, domain.UserPatch{Level: &lvl})
	require.NoError(t, err)
	u, err := sess.ApplyReward(ctx, 10, progression.DefaultTiers)
	require.NoError(t, err)
	assert.Equal(t, 4, u.Level)
}

func TestRequiresActiveUser(t *testing.T) {
	sess := newSession(newMemStore())
	_, err := sess.ApplyReward(context.Background(), 10, progression.DefaultTiers)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
	_, err = sess.DebitCoins(context.Background(), 10)
	assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
}

func TestDebitCoins(t *testing.T) {
	ctx := context.Background()
	sess := newSession(newMemStore())
	_, err := sess.Register(ctx, "a@b.com", "pw", "John")
	require.NoError(t, err)

	_, err = sess.DebitCoins(ctx, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
	_, err = sess.DebitCoins(ctx, 101)
	assert.ErrorIs(t, err, domain.ErrInsufficientCoins)

	u, err := sess.DebitCoins(ctx, 60)
	require.NoError(t, err)
	assert.Equal(t, 40, u.Coins)
}

func TestFailedPersistLeavesUserUnchanged(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sess := newSession(s)
	before, err := sess.Register(ctx, "a@b.com", "pw", "John")
	require.NoError(t, err)
	s.failPut = true

	_, err = sess.ApplyReward(ctx, 50, progression.DefaultTiers)
	require.Error(t, err)
	name := "X"
	_, _, err = sess.UpdateUser(ctx, domain.UserPatch{Name: &name})
	require.Error(t, err)
	_, err = sess.Register(ctx, "c@d.com", "pw", "Other")
	require.Error(t, err)

	after, ok := sess.Current()
	require.True(t, ok)
	assert.Equal(t, before, after)
}

func TestReferralCode(t *testing.T) {
	assert.True(t, strings.HasPrefix(session.ReferralCode("Al"), "AL"))
	assert.True(t, strings.HasPrefix(session.ReferralCode("J. R. Smith"), "JRSM"))
	assert.True(t, strings.HasPrefix(session.ReferralCode("!!"), "USER"))
	assert.NotEqual(t, session.ReferralCode("John"), session.ReferralCode("John"))
}

func TestUpdateUserRejectsInvalidCounters(t *testing.T) {
	ctx := context.Background()
	sess := newSession(newMemStore())
	before, err := sess.Register(ctx, "a@b.com", "pw", "John")
	require.NoError(t, err)
	_, err = sess.ApplyReward(ctx, 10, nil)
	require.NoError(t, err)
	before, _ = sess.Current()

	negative, zero, fewer := -500, 0, 0
	cases := map[string]domain.UserPatch{
		"negative coins":          {Coins: &negative},
		"negative daily earnings": {DailyEarnings: &negative},
		"level zero":              {Level: &zero},
		"negative completed":      {CompletedTasks: &negative},
		"fewer completed":         {CompletedTasks: &fewer},
	}
	for name, patch := range cases {
		t.Run(name, func(t *testing.T) {
			_, ok, err := sess.UpdateUser(ctx, patch)
			assert.True(t, ok)
			assert.ErrorIs(t, err, domain.ErrInvalidAmount)
			cur, _ := sess.Current()
			assert.Equal(t, before, cur)
		})
	}

	more, coins := 5, 0
	u, ok, err := sess.UpdateUser(ctx, domain.UserPatch{CompletedTasks: &more, Coins: &coins})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 5, u.CompletedTasks)
	assert.Equal(t, 0, u.Coins)
}

func TestRestore(t *testing.T) {
	ctx := context.Background()
	s := newMemStore()
	sess := newSession(s)
	before, err := sess.Register(ctx, "a@b.com", "pw", "John")
	require.NoError(t, err)
	_, err = sess.ApplyReward(ctx, 40, nil)
	require.NoError(t, err)

	require.NoError(t, sess.Restore(ctx, before))
	cur, _ := sess.Current()
	assert.Equal(t, before, cur)

	reloaded := newSession(s)
	require.NoError(t, reloaded.Load(ctx))
	got, ok := reloaded.Current()
	require.True(t, ok)
	assert.Equal(t, before.Coins, got.Coins)

	other := before
	other.ID = "someone-else"
	other.Coins = 9999
	require.NoError(t, sess.Restore(ctx, other))
	cur, _ = sess.Current()
	assert.Equal(t, before.Coins, cur.Coins)
}
