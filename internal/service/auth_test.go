package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/JET-SOUZA/jet.iptv/internal/store"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.NewStore(store.Options{})
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func newTestAuth(t *testing.T) (*AuthService, *store.Store) {
	t.Helper()
	st := newTestStore(t)
	return NewAuthService(st, NewHasher(bcrypt.MinCost), true), st
}

func TestHasherRoundTrip(t *testing.T) {
	h := NewHasher(bcrypt.MinCost)
	hash, err := h.Hash("hunter2")
	if err != nil {
		t.Fatalf("Hash: %v", err)
	}
	if hash == "hunter2" {
		t.Fatal("hash must not equal the plaintext")
	}
	if !h.Verify(hash, "hunter2") {
		t.Error("expected Verify to accept the right password")
	}
	if h.Verify(hash, "hunter3") {
		t.Error("expected Verify to reject the wrong password")
	}
	if h.Verify("not-a-bcrypt-hash", "hunter2") {
		t.Error("expected Verify to reject a malformed hash")
	}
}

func TestNewHasherClampsCost(t *testing.T) {
	if got := NewHasher(0).Cost(); got != bcrypt.DefaultCost {
		t.Errorf("cost 0: got %d, want %d", got, bcrypt.DefaultCost)
	}
	if got := NewHasher(99).Cost(); got != bcrypt.DefaultCost {
		t.Errorf("cost 99: got %d, want %d", got, bcrypt.DefaultCost)
	}
	if got := NewHasher(bcrypt.MinCost).Cost(); got != bcrypt.MinCost {
		t.Errorf("min cost: got %d, want %d", got, bcrypt.MinCost)
	}
}

// ---------------------------------------------------------------------------
// Register
// ---------------------------------------------------------------------------

func TestRegister(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	u, err := auth.Register(ctx, "  alice ", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if u.Username != "alice" {
		t.Errorf("got username %q, want trimmed %q", u.Username, "alice")
	}

	got, err := st.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if got.Premium || got.IsAdmin {
		t.Errorf("new account must be non-premium non-admin, got premium=%v admin=%v", got.Premium, got.IsAdmin)
	}
	if got.PasswordHash == "pw" || got.PasswordHash == "" {
		t.Errorf("password not hashed: %q", got.PasswordHash)
	}
}

func TestRegisterDuplicate(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, "bob", "pw"); err != nil {
		t.Fatalf("Register: %v", err)
	}
	if _, err := auth.Register(ctx, "bob", "other"); !errors.Is(err, store.ErrDuplicateUsername) {
		t.Errorf("expected ErrDuplicateUsername, got %v", err)
	}
}

func TestRegisterMissingFields(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	for _, tc := range []struct{ user, pass string }{{"", "pw"}, {"   ", "pw"}, {"carol", ""}} {
		if _, err := auth.Register(ctx, tc.user, tc.pass); !errors.Is(err, ErrMissingFields) {
			t.Errorf("Register(%q, %q): expected ErrMissingFields, got %v", tc.user, tc.pass, err)
		}
	}
}

func TestRegisterClosed(t *testing.T) {
	st := newTestStore(t)
	auth := NewAuthService(st, NewHasher(bcrypt.MinCost), false)
	if auth.RegistrationOpen() {
		t.Fatal("expected registration closed")
	}
	if _, err := auth.Register(context.Background(), "dave", "pw"); !errors.Is(err, ErrRegistrationClosed) {
		t.Errorf("expected ErrRegistrationClosed, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Authenticate
// ---------------------------------------------------------------------------

func TestAuthenticate(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, "erin", "correct"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	u, err := auth.Authenticate(ctx, "erin", "correct")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.Username != "erin" {
		t.Errorf("got username %q", u.Username)
	}
}

func TestAuthenticateUnknownAndWrongAreIndistinguishable(t *testing.T) {
	auth, _ := newTestAuth(t)
	ctx := context.Background()

	if _, err := auth.Register(ctx, "frank", "correct"); err != nil {
		t.Fatalf("Register: %v", err)
	}

	_, errWrong := auth.Authenticate(ctx, "frank", "wrong")
	_, errUnknown := auth.Authenticate(ctx, "nobody", "wrong")
	_, errBlank := auth.Authenticate(ctx, "", "")

	for name, err := range map[string]error{"wrong": errWrong, "unknown": errUnknown, "blank": errBlank} {
		if !errors.Is(err, ErrInvalidCredentials) {
			t.Errorf("%s: expected ErrInvalidCredentials, got %v", name, err)
		}
	}
	if errWrong.Error() != errUnknown.Error() {
		t.Errorf("error text differs: %q vs %q", errWrong, errUnknown)
	}
}

func TestNewAuthServicePrecomputesDummyHash(t *testing.T) {
	auth, _ := newTestAuth(t)
	if auth.dummyHash == "" {
		t.Fatal("dummy hash not computed at construction")
	}
	cost, err := bcrypt.Cost([]byte(auth.dummyHash))
	if err != nil {
		t.Fatalf("dummy hash is not a bcrypt hash: %v", err)
	}
	if cost != bcrypt.MinCost {
		t.Errorf("dummy cost = %d, want configured cost %d", cost, bcrypt.MinCost)
	}

	before := auth.dummyHash
	if _, err := auth.Authenticate(context.Background(), "nobody", "pw"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("Authenticate: %v", err)
	}
	if auth.dummyHash != before {
		t.Error("unknown-user login rebuilt the dummy hash")
	}
}

func TestAuthenticateExpiry(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	u, err := auth.Register(ctx, "gina", "pw")
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	auth.now = func() time.Time { return now }

	tests := []struct {
		name    string
		expires *time.Time
		wantErr error
	}{
		{"no expiry", nil, nil},
		{"future", ptrTime(now.Add(time.Hour)), nil},
		{"past", ptrTime(now.Add(-time.Second)), ErrAccountExpired},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := st.SetExpiry(ctx, u.ID, tt.expires); err != nil {
				t.Fatalf("SetExpiry: %v", err)
			}
			_, err := auth.Authenticate(ctx, "gina", "pw")
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthenticateExpiredWrongPasswordIsInvalid(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	u, _ := auth.Register(ctx, "hank", "pw")
	past := time.Now().Add(-time.Hour)
	st.SetExpiry(ctx, u.ID, &past)

	if _, err := auth.Authenticate(ctx, "hank", "nope"); !errors.Is(err, ErrInvalidCredentials) {
		t.Errorf("expected ErrInvalidCredentials, got %v", err)
	}
}

// ---------------------------------------------------------------------------
// Bootstrap
// ---------------------------------------------------------------------------

func TestEnsureBootstrapAdmin(t *testing.T) {
	auth, st := newTestAuth(t)
	ctx := context.Background()

	created, err := auth.EnsureBootstrapAdmin(ctx, "root", "rootpw")
	if err != nil {
		t.Fatalf("EnsureBootstrapAdmin: %v", err)
	}
	if !created {
		t.Fatal("expected admin to be created on empty store")
	}
	u, err := st.GetUserByUsername(ctx, "root")
	if err != nil {
		t.Fatalf("GetUserByUsername: %v", err)
	}
	if !u.IsAdmin || !u.Premium {
		t.Errorf("bootstrap admin must be admin and premium, got admin=%v premium=%v", u.IsAdmin, u.Premium)
	}

	created, err = auth.EnsureBootstrapAdmin(ctx, "other", "pw")
	if err != nil {
		t.Fatalf("second EnsureBootstrapAdmin: %v", err)
	}
	if created {
		t.Error("expected no seeding on non-empty store")
	}
	if n, _ := st.CountUsers(ctx); n != 1 {
		t.Errorf("got %d users, want 1", n)
	}
}

func TestEnsureBootstrapAdminSkipsWhenUnset(t *testing.T) {
	auth, st := newTestAuth(t)
	created, err := auth.EnsureBootstrapAdmin(context.Background(), "", "")
	if err != nil || created {
		t.Errorf("got created=%v err=%v, want false/nil", created, err)
	}
	if n, _ := st.CountUsers(context.Background()); n != 0 {
		t.Errorf("got %d users, want 0", n)
	}
}

func ptrTime(t time.Time) *time.Time { return &t }
