package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JET-SOUZA/jet.iptv/internal/model"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(Options{}) // in-memory
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func strPtr(s string) *string { return &s }

func TestUserCRUD(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{
		Username:     "alice",
		PasswordHash: "$2a$10$fakehash",
		Premium:      true,
		Server:       strPtr("http://panel.example"),
		XtreamPass:   strPtr("secret"),
	}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if u.ID == 0 {
		t.Fatal("expected non-zero ID after create")
	}

	got, err := s.GetUser(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUser: %v", err)
	}
	if got.Username != "alice" {
		t.Errorf("got username %q, want %q", got.Username, "alice")
	}
	if !got.Premium || got.IsAdmin {
		t.Errorf("got premium=%v admin=%v, want true/false", got.Premium, got.IsAdmin)
	}
	if got.ServerURL() != "http://panel.example" {
		t.Errorf("got server %q", got.ServerURL())
	}
	if got.StoredXtreamPass() != "secret" {
		t.Errorf("got xtream_pass %q", got.StoredXtreamPass())
	}
	if got.ExpiresAt != nil {
		t.Errorf("expected nil expiry, got %v", got.ExpiresAt)
	}

	byName, err := s.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if byName.ID != u.ID {
		t.Errorf("got ID %d, want %d", byName.ID, u.ID)
	}
	if byName.PasswordHash != "$2a$10$fakehash" {
		t.Errorf("password hash not round-tripped: %q", byName.PasswordHash)
	}

	if err := s.DeleteUser(ctx, u.ID); err != nil {
		t.Fatalf("DeleteUser: %v", err)
	}
	if _, err := s.GetUser(ctx, u.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound after delete, got %v", err)
	}
}

func TestGetUserNotFound(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if _, err := s.GetUser(ctx, 999); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUser: expected ErrNotFound, got %v", err)
	}
	if _, err := s.GetUserByUsername(ctx, "ghost"); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetUserByUsername: expected ErrNotFound, got %v", err)
	}
}

func TestCreateUserDuplicate(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	if err := s.CreateUser(ctx, &model.User{Username: "bob", PasswordHash: "h1"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	err := s.CreateUser(ctx, &model.User{Username: "bob", PasswordHash: "h2"})
	if !errors.Is(err, ErrDuplicateUsername) {
		t.Fatalf("expected ErrDuplicateUsername, got %v", err)
	}

	// The original row is untouched.
	got, err := s.GetUserByUsername(ctx, "bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.PasswordHash != "h1" {
		t.Errorf("got hash %q, want h1", got.PasswordHash)
	}
}

func TestUsernamesAreCaseSensitive(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"bob", "Bob", "BOB"} {
		if err := s.CreateUser(ctx, &model.User{Username: name, PasswordHash: "h"}); err != nil {
			t.Fatalf("CreateUser(%q): %v", name, err)
		}
	}
	got, err := s.GetUserByUsername(ctx, "Bob")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.Username != "Bob" {
		t.Errorf("got %q, want exact match Bob", got.Username)
	}
}

func TestMySQLUsernameCollationIsBinary(t *testing.T) {
	// Every statement that defines users.username must pin a binary collation,
	// otherwise MySQL folds case in the unique index.
	var n int
	for _, m := range mysqlDialect.migrations {
		if !strings.Contains(m, "username VARCHAR") {
			continue
		}
		n++
		if !strings.Contains(m, "COLLATE utf8mb4_bin") {
			t.Errorf("username column without binary collation:\n%s", m)
		}
	}
	if n < 2 {
		t.Errorf("found %d username definitions, want create and upgrade", n)
	}
}

func TestCreateUserEmptyUsername(t *testing.T) {
	s := newTestStore(t)
	if err := s.CreateUser(context.Background(), &model.User{PasswordHash: "h"}); !errors.Is(err, ErrEmptyUsername) {
		t.Errorf("expected ErrEmptyUsername, got %v", err)
	}
}

func TestCreateUserConcurrentSameName(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make(chan error, workers)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- s.CreateUser(ctx, &model.User{Username: "race", PasswordHash: "h"})
		}()
	}
	wg.Wait()
	close(errs)

	var ok, dup int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, ErrDuplicateUsername):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != workers-1 {
		t.Errorf("got %d successes and %d duplicates, want 1 and %d", ok, dup, workers-1)
	}

	n, err := s.CountUsers(ctx)
	if err != nil {
		t.Fatalf("CountUsers: %v", err)
	}
	if n != 1 {
		t.Errorf("got %d users, want 1", n)
	}
}

func TestListUsersOrderedByUsername(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"carol", "alice", "bob"} {
		if err := s.CreateUser(ctx, &model.User{Username: name, PasswordHash: "h"}); err != nil {
			t.Fatalf("CreateUser(%s): %v", name, err)
		}
	}

	users, err := s.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	want := []string{"alice", "bob", "carol"}
	if len(users) != len(want) {
		t.Fatalf("got %d users, want %d", len(users), len(want))
	}
	for i, u := range users {
		if u.Username != want[i] {
			t.Errorf("users[%d] = %q, want %q", i, u.Username, want[i])
		}
	}
}

func TestListUsersEmpty(t *testing.T) {
	s := newTestStore(t)
	users, err := s.ListUsers(context.Background())
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if users == nil || len(users) != 0 {
		t.Errorf("expected empty non-nil slice, got %#v", users)
	}
}

// ---------------------------------------------------------------------------
// Premium, admin, expiry
// ---------------------------------------------------------------------------

func TestTogglePremium(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{Username: "dave", PasswordHash: "h"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	for i, want := range []bool{true, false, true} {
		if err := s.TogglePremium(ctx, u.ID); err != nil {
			t.Fatalf("TogglePremium #%d: %v", i, err)
		}
		got, err := s.GetUser(ctx, u.ID)
		if err != nil {
			t.Fatalf("GetUser: %v", err)
		}
		if got.Premium != want {
			t.Errorf("after toggle #%d premium = %v, want %v", i, got.Premium, want)
		}
	}
}

func TestTogglePremiumAbsentIsNoop(t *testing.T) {
	s := newTestStore(t)
	if err := s.TogglePremium(context.Background(), 12345); err != nil {
		t.Errorf("expected nil for absent id, got %v", err)
	}
}

func TestSetPremiumAndAdmin(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{Username: "erin", PasswordHash: "h"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.SetPremium(ctx, u.ID, true); err != nil {
		t.Fatalf("SetPremium: %v", err)
	}
	if err := s.SetAdmin(ctx, u.ID, true); err != nil {
		t.Fatalf("SetAdmin: %v", err)
	}
	got, _ := s.GetUser(ctx, u.ID)
	if !got.Premium || !got.IsAdmin {
		t.Errorf("got premium=%v admin=%v, want both true", got.Premium, got.IsAdmin)
	}

	if err := s.SetPremium(ctx, 999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetPremium absent: expected ErrNotFound, got %v", err)
	}
	if err := s.SetAdmin(ctx, 999, true); !errors.Is(err, ErrNotFound) {
		t.Errorf("SetAdmin absent: expected ErrNotFound, got %v", err)
	}
}

func TestSetExpiry(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{Username: "frank", PasswordHash: "h"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	exp := time.Now().Add(48 * time.Hour).Truncate(time.Second)
	if err := s.SetExpiry(ctx, u.ID, &exp); err != nil {
		t.Fatalf("SetExpiry: %v", err)
	}
	got, _ := s.GetUser(ctx, u.ID)
	if got.ExpiresAt == nil {
		t.Fatal("expected expiry to be set")
	}
	if !got.ExpiresAt.Equal(exp) {
		t.Errorf("got expiry %v, want %v", got.ExpiresAt, exp)
	}

	if err := s.SetExpiry(ctx, u.ID, nil); err != nil {
		t.Fatalf("SetExpiry(nil): %v", err)
	}
	got, _ = s.GetUser(ctx, u.ID)
	if got.ExpiresAt != nil {
		t.Errorf("expected expiry cleared, got %v", got.ExpiresAt)
	}

	if err := s.SetExpiry(ctx, 999, &exp); err != nil {
		t.Errorf("SetExpiry absent: expected nil, got %v", err)
	}
}

func TestSetServerAndPassword(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := &model.User{Username: "gina", PasswordHash: "old"}
	if err := s.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	if err := s.SetServer(ctx, u.ID, "http://tv.example:8080"); err != nil {
		t.Fatalf("SetServer: %v", err)
	}
	if err := s.UpdatePasswordHash(ctx, u.ID, "new"); err != nil {
		t.Fatalf("UpdatePasswordHash: %v", err)
	}
	got, _ := s.GetUser(ctx, u.ID)
	if got.ServerURL() != "http://tv.example:8080" {
		t.Errorf("got server %q", got.ServerURL())
	}
	if got.PasswordHash != "new" {
		t.Errorf("got hash %q, want new", got.PasswordHash)
	}

	if err := s.SetServer(ctx, u.ID, ""); err != nil {
		t.Fatalf("SetServer(\"\"): %v", err)
	}
	got, _ = s.GetUser(ctx, u.ID)
	if got.Server != nil {
		t.Errorf("expected server cleared, got %q", *got.Server)
	}
}

func TestDeleteUserIdempotent(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	if err := s.DeleteUser(ctx, 42); err != nil {
		t.Errorf("first delete: %v", err)
	}
	if err := s.DeleteUser(ctx, 42); err != nil {
		t.Errorf("second delete: %v", err)
	}
}

// ---------------------------------------------------------------------------
// Open / migrate
// ---------------------------------------------------------------------------

func TestNewStoreFileReopen(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	s, err := NewStore(Options{DataDir: dir})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	if err := s.CreateUser(ctx, &model.User{Username: "persist", PasswordHash: "h"}); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}
	s.Close()

	// Re-running migrations against an existing database must succeed.
	s2, err := NewStore(Options{DSN: filepath.Join(dir, "jetiptv.db")})
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.GetUserByUsername(ctx, "persist"); err != nil {
		t.Errorf("GetUserByUsername after reopen: %v", err)
	}
	if s2.Driver() != "sqlite" {
		t.Errorf("got driver %q, want sqlite", s2.Driver())
	}
	if err := s2.Ping(ctx); err != nil {
		t.Errorf("Ping: %v", err)
	}
}

func TestNewStoreUnknownDriver(t *testing.T) {
	if _, err := NewStore(Options{Driver: "oracle"}); err == nil {
		t.Fatal("expected error for unsupported driver")
	}
}

func TestNewStoreRequiresDSN(t *testing.T) {
	for _, driver := range []string{"postgres", "mysql"} {
		t.Run(driver, func(t *testing.T) {
			if _, err := NewStore(Options{Driver: driver}); err == nil {
				t.Fatalf("expected error for %s without DSN", driver)
			}
		})
	}
}

func TestIsUniqueViolationMessageFallback(t *testing.T) {
	tests := []struct {
		d    *dialect
		err  error
		want bool
	}{
		{sqliteDialect, errors.New("constraint failed: UNIQUE constraint failed: users.username (2067)"), true},
		{postgresDialect, errors.New(`ERROR: duplicate key value violates unique constraint "users_username_key"`), true},
		{mysqlDialect, errors.New("Error 1062 (23000): Duplicate entry 'bob' for key 'uq_users_username'"), true},
		{sqliteDialect, errors.New("database is locked"), false},
		{sqliteDialect, nil, false},
	}
	for _, tt := range tests {
		if got := tt.d.isUniqueViolation(tt.err); got != tt.want {
			t.Errorf("%s isUniqueViolation(%v) = %v, want %v", tt.d.name, tt.err, got, tt.want)
		}
	}
}
