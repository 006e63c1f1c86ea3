package service

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/JET-SOUZA/jet.iptv/internal/model"
	"github.com/JET-SOUZA/jet.iptv/internal/store"
)

// NewUser is the admin form for creating an account. ExpiryHours is the raw
// user input; anything that does not parse to a positive number of hours
// means "no expiry".
type NewUser struct {
	Username    string
	Password    string
	Premium     bool
	IsAdmin     bool
	ExpiryHours string
	Server      string
}

// AdminService holds the account mutations available to administrators.
type AdminService struct {
	store  *store.Store
	hasher *Hasher
	now    func() time.Time
}

func NewAdminService(st *store.Store, hasher *Hasher) *AdminService {
	return &AdminService{store: st, hasher: hasher, now: time.Now}
}

// CreateUser hashes the password and inserts the account. The plaintext
// password is kept as the account's Xtream password so stream URLs can be
// built for it later.
func (s *AdminService) CreateUser(ctx context.Context, in NewUser) (*model.User, error) {
	username := strings.TrimSpace(in.Username)
	if username == "" || in.Password == "" {
		return nil, ErrMissingFields
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	xtreamPass := in.Password
	u := &model.User{
		Username:     username,
		PasswordHash: hash,
		Premium:      in.Premium,
		IsAdmin:      in.IsAdmin,
		XtreamPass:   &xtreamPass,
		ExpiresAt:    s.expiryFrom(in.ExpiryHours),
	}
	if srv := strings.TrimSpace(in.Server); srv != "" {
		u.Server = &srv
	}

	if err := s.store.CreateUser(ctx, u); err != nil {
		return nil, err
	}
	return u, nil
}

// DeleteUser removes an account. Removing an absent id succeeds.
func (s *AdminService) DeleteUser(ctx context.Context, id int64) error {
	return s.store.DeleteUser(ctx, id)
}

// TogglePremium flips an account's premium flag. Absent ids are ignored.
func (s *AdminService) TogglePremium(ctx context.Context, id int64) error {
	return s.store.TogglePremium(ctx, id)
}

// SetExpiry sets the expiry to now plus hours, or clears it when hours is
// blank, malformed or not positive. It returns the stored expiry.
func (s *AdminService) SetExpiry(ctx context.Context, id int64, hours string) (*time.Time, error) {
	exp := s.expiryFrom(hours)
	if err := s.store.SetExpiry(ctx, id, exp); err != nil {
		return nil, err
	}
	return exp, nil
}

// GetUser returns one account, or store.ErrNotFound.
func (s *AdminService) GetUser(ctx context.Context, id int64) (*model.User, error) {
	return s.store.GetUser(ctx, id)
}

// ListUsers returns every account ordered by username.
func (s *AdminService) ListUsers(ctx context.Context) ([]model.User, error) {
	return s.store.ListUsers(ctx)
}

func (s *AdminService) expiryFrom(hours string) *time.Time {
	d, ok := ParseExpiryHours(hours)
	if !ok {
		return nil
	}
	exp := s.now().Add(d).UTC()
	return &exp
}

// ParseExpiryHours parses a relative expiry given in hours. Integer and
// decimal values are accepted. ok is false for blank, malformed, non-finite,
// non-positive or out-of-range input.
func ParseExpiryHours(s string) (time.Duration, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return 0, false
	}
	h, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(h) || math.IsInf(h, 0) || h <= 0 {
		return 0, false
	}
	ns := h * float64(time.Hour)
	if ns >= math.MaxInt64 {
		return 0, false
	}
	d := time.Duration(ns)
	if d <= 0 {
		return 0, false
	}
	return d, true
}
