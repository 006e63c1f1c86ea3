package middleware

import (
	"context"
	"net/http"

	"github.com/JET-SOUZA/jet.iptv/internal/guard"
	"github.com/JET-SOUZA/jet.iptv/internal/session"
)

// Sessions decodes the session cookie once per request and stores the result
// in the request context. Downstream handlers read it with session.FromContext.
func Sessions(m *session.Manager) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := m.Load(r)
			publishSession(r.Context(), s)
			next.ServeHTTP(w, r.WithContext(session.NewContext(r.Context(), s)))
		})
	}
}

// Guard evaluates checks in order against the request's session. On denial
// the decision's flash is queued, the session is saved and the client is sent
// to the decision's redirect target with 303 See Other.
func Guard(m *session.Manager, checks ...guard.Check) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s := session.FromContext(r.Context())
			if s == nil {
				s = m.Load(r)
				publishSession(r.Context(), s)
				r = r.WithContext(session.NewContext(r.Context(), s))
			}

			d := guard.Evaluate(r.Context(), s, checks...)
			if !d.Allow {
				if d.Flash != "" {
					m.AddFlash(s, "error", d.Flash)
				}
				if err := m.Save(w, s); err != nil {
					http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
					return
				}
				http.Redirect(w, r, d.Redirect, http.StatusSeeOther)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

type sessionSinkKey struct{}

// withSessionSink lets an outer middleware observe the session decoded
// further down the chain.
func withSessionSink(ctx context.Context, dst **session.Session) context.Context {
	return context.WithValue(ctx, sessionSinkKey{}, dst)
}

func publishSession(ctx context.Context, s *session.Session) {
	if dst, ok := ctx.Value(sessionSinkKey{}).(**session.Session); ok {
		*dst = s
	}
}
