// Package guard holds the per-route access checks. Each route declares an
// ordered list of checks; evaluation stops at the first denial.
package guard

import (
	"context"
	"errors"

	"github.com/JET-SOUZA/jet.iptv/internal/model"
	"github.com/JET-SOUZA/jet.iptv/internal/session"
	"github.com/JET-SOUZA/jet.iptv/internal/store"
)

// Reason classifies a denial.
type Reason string

const (
	ReasonNone            Reason = ""
	ReasonUnauthenticated Reason = "unauthenticated"
	ReasonNotPremium      Reason = "not_premium"
	ReasonNotAdmin        Reason = "not_admin"
	ReasonLookupFailed    Reason = "lookup_failed"
)

// Flash messages shown after a denial.
const (
	FlashLoginRequired   = "Please log in to access this page."
	FlashPremiumRequired = "Premium access required."
	FlashAdminRequired   = "Admin access required."
	FlashLookupFailed    = "Something went wrong, please try again."
)

// Decision is the outcome of evaluating checks against a session.
type Decision struct {
	Allow    bool
	Reason   Reason
	Redirect string
	Flash    string
}

// Check inspects a session and decides whether the request may proceed.
type Check func(ctx context.Context, s *session.Session) Decision

var allow = Decision{Allow: true}

func deny(reason Reason, redirect, flash string) Decision {
	return Decision{Reason: reason, Redirect: redirect, Flash: flash}
}

// Evaluate runs checks in order and returns the first denial, or an allow
// decision when every check passes.
func Evaluate(ctx context.Context, s *session.Session, checks ...Check) Decision {
	for _, c := range checks {
		if d := c(ctx, s); !d.Allow {
			return d
		}
	}
	return allow
}

// LoggedIn requires a user identity in the session.
func LoggedIn() Check {
	return func(_ context.Context, s *session.Session) Decision {
		if !s.LoggedIn() {
			return deny(ReasonUnauthenticated, "/login", FlashLoginRequired)
		}
		return allow
	}
}

// Premium requires the premium flag cached in the session at login. A
// premium change made by an admin takes effect at the user's next login.
func Premium() Check {
	return func(_ context.Context, s *session.Session) Decision {
		if s == nil || !s.Premium {
			return deny(ReasonNotPremium, "/login", FlashPremiumRequired)
		}
		return allow
	}
}

// UserLookup fetches the current state of an account.
type UserLookup interface {
	GetUser(ctx context.Context, id int64) (*model.User, error)
}

// Admin re-reads is_admin from the store on every request so that a demoted
// admin loses access immediately. A deleted account is treated as not admin;
// any other lookup failure denies with ReasonLookupFailed.
func Admin(users UserLookup) Check {
	return func(ctx context.Context, s *session.Session) Decision {
		if !s.LoggedIn() {
			return deny(ReasonUnauthenticated, "/login", FlashLoginRequired)
		}
		u, err := users.GetUser(ctx, s.UserID)
		if errors.Is(err, store.ErrNotFound) {
			return deny(ReasonNotAdmin, "/", FlashAdminRequired)
		}
		if err != nil {
			return deny(ReasonLookupFailed, "/", FlashLookupFailed)
		}
		if !u.IsAdmin {
			return deny(ReasonNotAdmin, "/", FlashAdminRequired)
		}
		return allow
	}
}
