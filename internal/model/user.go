package model

import "time"

// User is an account that can log in to the front-end. Passwords are stored
// as bcrypt hashes. XtreamPass is the password handed to the upstream Xtream
// panel when building stream URLs and defaults to the plaintext password
// supplied when the account was created.
type User struct {
	ID           int64      `json:"id" db:"id"`
	Username     string     `json:"username" db:"username"`
	PasswordHash string     `json:"-" db:"password_hash"` // bcrypt hash, never expose
	Premium      bool       `json:"premium" db:"premium"`
	IsAdmin      bool       `json:"is_admin" db:"is_admin"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty" db:"expires_at"`
	Server       *string    `json:"server,omitempty" db:"server"`
	XtreamPass   *string    `json:"-" db:"xtream_pass"`
	CreatedAt    time.Time  `json:"created_at" db:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at" db:"updated_at"`
}

// IsExpired reports whether the account has an expiry that lies before now.
func (u *User) IsExpired(now time.Time) bool {
	return u.ExpiresAt != nil && u.ExpiresAt.Before(now)
}

// ServerURL returns the stored Xtream server, or "" when none is set.
func (u *User) ServerURL() string {
	if u.Server == nil {
		return ""
	}
	return *u.Server
}

// StoredXtreamPass returns the stored Xtream password, or "" when none is set.
func (u *User) StoredXtreamPass() string {
	if u.XtreamPass == nil {
		return ""
	}
	return *u.XtreamPass
}
