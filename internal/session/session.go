// Package session holds the single active user and keeps it in sync with the store.
package session

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/dchest/uniuri"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"rewario/internal/domain"
	"rewario/internal/progression"
	"rewario/internal/store"
)

const (
	DefaultSignupBonus = 100
	DefaultAvatar      = "/avatar.png"

	referralSuffixLen = 4
	referralPrefixLen = 4
)

var referralChars = []byte("ABCDEFGHJKLMNPQRSTUVWXYZ23456789")

type credentials struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
}

type registration struct {
	Email    string `validate:"required"`
	Password string `validate:"required"`
	Name     string `validate:"required"`
}

// Session is safe for concurrent use. A failed write leaves the active user unchanged.
type Session struct {
	store       store.Store
	log         zerolog.Logger
	validate    *validator.Validate
	SignupBonus int
	Now         func() time.Time

	mu   sync.RWMutex
	user *domain.User
}

func New(s store.Store, log zerolog.Logger) *Session {
	return &Session{
		store:       s,
		log:         log,
		validate:    validator.New(),
		SignupBonus: DefaultSignupBonus,
		Now:         time.Now,
	}
}

// Load restores the active user saved by a previous process.
func (s *Session) Load(ctx context.Context) error {
	var u domain.User
	err := store.GetJSON(ctx, s.store, store.KeyCurrentUser, &u)
	if errors.Is(err, store.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("load current user: %w", err)
	}
	s.mu.Lock()
	s.user = &u
	s.mu.Unlock()
	return nil
}

// Current returns a copy of the active user.
func (s *Session) Current() (domain.User, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return domain.User{}, false
	}
	return *s.user, true
}

func (s *Session) IsAuthenticated() bool {
	_, ok := s.Current()
	return ok
}

// Login activates the saved account for email, creating one with signup defaults when none exists.
// Passwords are not verified.
func (s *Session) Login(ctx context.Context, email, password string) (domain.User, error) {
	in := credentials{Email: strings.TrimSpace(email), Password: strings.TrimSpace(password)}
	if err := s.validate.Struct(in); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", domain.ErrMissingCredentials, err)
	}

	var u domain.User
	err := store.GetJSON(ctx, s.store, store.AccountKey(in.Email), &u)
	switch {
	case errors.Is(err, store.ErrNotFound):
		name := in.Email
		if at := strings.IndexByte(name, '@'); at > 0 {
			name = name[:at]
		}
		u = s.newUser(uuid.NewSHA1(uuid.NameSpaceURL, []byte("rewario:"+in.Email)).String(), in.Email, name)
	case err != nil:
		return domain.User{}, fmt.Errorf("load account: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commit(ctx, u); err != nil {
		return domain.User{}, err
	}
	s.log.Info().Str("user_id", u.ID).Msg("user logged in")
	return u, nil
}

// Register creates and activates a new user with the signup bonus.
func (s *Session) Register(ctx context.Context, email, password, name string) (domain.User, error) {
	in := registration{
		Email:    strings.TrimSpace(email),
		Password: strings.TrimSpace(password),
		Name:     strings.TrimSpace(name),
	}
	if err := s.validate.Struct(in); err != nil {
		return domain.User{}, fmt.Errorf("%w: %v", domain.ErrMissingFields, err)
	}
	u := s.newUser(uuid.NewString(), in.Email, in.Name)

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.commit(ctx, u); err != nil {
		return domain.User{}, err
	}
	s.log.Info().Str("user_id", u.ID).Str("referral_code", u.ReferralCode).Msg("user registered")
	return u, nil
}

// Logout saves the account snapshot and clears the active user. It is a no-op when nobody is logged in.
func (s *Session) Logout(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return nil
	}
	if err := store.PutJSON(ctx, s.store, store.AccountKey(s.user.Email), s.user); err != nil {
		return fmt.Errorf("save account: %w", err)
	}
	if err := s.store.Delete(ctx, store.KeyCurrentUser); err != nil {
		return fmt.Errorf("clear current user: %w", err)
	}
	s.log.Info().Str("user_id", s.user.ID).Msg("user logged out")
	s.user = nil
	return nil
}

// UpdateUser merges patch into the active user. ok is false when nobody is logged in.
func (s *Session) UpdateUser(ctx context.Context, patch domain.UserPatch) (u domain.User, ok bool, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.User{}, false, nil
	}
	if err := s.validate.Struct(patch); err != nil {
		return domain.User{}, true, fmt.Errorf("%w: %v", domain.ErrInvalidAmount, err)
	}
	if patch.CompletedTasks != nil && *patch.CompletedTasks < s.user.CompletedTasks {
		return domain.User{}, true, fmt.Errorf("%w: completed tasks cannot go from %d to %d",
			domain.ErrInvalidAmount, s.user.CompletedTasks, *patch.CompletedTasks)
	}
	next := patch.Apply(*s.user)
	if err := s.commit(ctx, next); err != nil {
		return domain.User{}, true, err
	}
	return next, true, nil
}

// Restore replaces the active user with prev when it is still the same account.
// Used to undo a credit whose follow-up failed.
func (s *Session) Restore(ctx context.Context, prev domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil || s.user.ID != prev.ID {
		return nil
	}
	return s.commit(ctx, prev)
}

// ApplyReward credits a completed task and raises the level when a new tier is reached.
func (s *Session) ApplyReward(ctx context.Context, coins int, tiers []domain.LevelTier) (domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	next, err := progression.ApplyReward(*s.user, coins)
	if err != nil {
		return domain.User{}, err
	}
	if len(tiers) > 0 {
		if lvl := progression.CurrentTier(tiers, next.CompletedTasks).Level; lvl > next.Level {
			next.Level = lvl
		}
	}
	if err := s.commit(ctx, next); err != nil {
		return domain.User{}, err
	}
	return next, nil
}

// DebitCoins removes coins from the active user's balance.
func (s *Session) DebitCoins(ctx context.Context, coins int) (domain.User, error) {
	if coins <= 0 {
		return domain.User{}, fmt.Errorf("%w: %d coins", domain.ErrInvalidAmount, coins)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.user == nil {
		return domain.User{}, domain.ErrNotAuthenticated
	}
	if s.user.Coins < coins {
		return domain.User{}, fmt.Errorf("%w: balance %d, requested %d", domain.ErrInsufficientCoins, s.user.Coins, coins)
	}
	next := *s.user
	next.Coins -= coins
	if err := s.commit(ctx, next); err != nil {
		return domain.User{}, err
	}
	return next, nil
}

func (s *Session) newUser(id, email, name string) domain.User {
	return domain.User{
		ID:           id,
		Name:         name,
		Email:        email,
		Level:        1,
		Coins:        s.SignupBonus,
		ReferralCode: ReferralCode(name),
		Avatar:       DefaultAvatar,
		JoinDate:     s.Now().UTC().Format(time.RFC3339),
	}
}

// commit writes u as both the current user and its account snapshot, then makes it active. Caller holds mu.
func (s *Session) commit(ctx context.Context, u domain.User) error {
	if err := store.PutJSON(ctx, s.store, store.AccountKey(u.Email), u); err != nil {
		s.log.Error().Err(err).Str("user_id", u.ID).Msg("persist account failed")
		return fmt.Errorf("save account: %w", err)
	}
	if err := store.PutJSON(ctx, s.store, store.KeyCurrentUser, u); err != nil {
		s.log.Error().Err(err).Str("user_id", u.ID).Msg("persist current user failed")
		return fmt.Errorf("save current user: %w", err)
	}
	s.user = &u
	return nil
}

// ReferralCode is the uppercased alphanumeric prefix of name followed by a random suffix.
func ReferralCode(name string) string {
	var b strings.Builder
	for _, r := range strings.ToUpper(name) {
		if b.Len() >= referralPrefixLen {
			break
		}
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r)) {
			b.WriteRune(r)
		}
	}
	if b.Len() == 0 {
		b.WriteString("USER")
	}
	return b.String() + uniuri.NewLenChars(referralSuffixLen, referralChars)
}
