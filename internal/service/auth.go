package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/JET-SOUZA/jet.iptv/internal/model"
	"github.com/JET-SOUZA/jet.iptv/internal/store"
)

// AuthService implements self-service registration, login and the startup
// admin bootstrap on top of the credential store.
type AuthService struct {
	store             *store.Store
	hasher            *Hasher
	allowRegistration bool
	now               func() time.Time

	// dummyHash is compared against when the username is unknown so that
	// such logins cost the same bcrypt work as a wrong password.
	dummyHash string
}

// NewAuthService builds the service and computes the timing-equalizer hash
// up front.
func NewAuthService(st *store.Store, hasher *Hasher, allowRegistration bool) *AuthService {
	dummy, err := hasher.Hash("jetiptv-timing-equalizer")
	if err != nil {
		// Unreachable with a clamped cost; keep a well-formed cost-10 hash.
		dummy = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"
	}
	return &AuthService{
		store:             st,
		hasher:            hasher,
		allowRegistration: allowRegistration,
		now:               time.Now,
		dummyHash:         dummy,
	}
}

// RegistrationOpen reports whether Register accepts new accounts.
func (s *AuthService) RegistrationOpen() bool {
	return s.allowRegistration
}

// Register creates a non-premium, non-admin account.
func (s *AuthService) Register(ctx context.Context, username, password string) (*model.User, error) {
	if !s.allowRegistration {
		return nil, ErrRegistrationClosed
	}
	username = strings.TrimSpace(username)
	if username == "" || password == "" {
		return nil, ErrMissingFields
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	u := &model.User{Username: username, PasswordHash: hash}
	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// Authenticate verifies a username/password pair and returns the account.
// Unknown usernames still pay for a bcrypt comparison so that response timing
// does not reveal whether an account exists.
func (s *AuthService) Authenticate(ctx context.Context, username, password string) (*model.User, error) {
	username = strings.TrimSpace(username)

	var u *model.User
	if username != "" {
		var err error
		u, err = s.store.GetUserByUsername(ctx, username)
		if err != nil && !errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("lookup user: %w", err)
		}
	}

	if u == nil {
		s.hasher.Verify(s.dummyHash, password)
		return nil, ErrInvalidCredentials
	}
	if !s.hasher.Verify(u.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}
	if u.IsExpired(s.now()) {
		return nil, ErrAccountExpired
	}
	return u, nil
}

// EnsureBootstrapAdmin seeds an admin account when the users table is empty.
// It reports whether an account was created.
func (s *AuthService) EnsureBootstrapAdmin(ctx context.Context, username, password string) (bool, error) {
	if username == "" || password == "" {
		return false, nil
	}

	n, err := s.store.CountUsers(ctx)
	if err != nil {
		return false, err
	}
	if n > 0 {
		return false, nil
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return false, fmt.Errorf("hash password: %w", err)
	}
	u := &model.User{
		Username:     username,
		PasswordHash: hash,
		Premium:      true,
		IsAdmin:      true,
	}
	if err := s.store.CreateUser(ctx, u); err != nil {
		// Another process seeded the same name first.
		if errors.Is(err, store.ErrDuplicateUsername) {
			return false, nil
		}
		return false, fmt.Errorf("create bootstrap admin: %w", err)
	}
	return true, nil
}
