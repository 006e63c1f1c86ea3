package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JET-SOUZA/jet.iptv/internal/guard"
	"github.com/JET-SOUZA/jet.iptv/internal/model"
	"github.com/JET-SOUZA/jet.iptv/internal/server/middleware"
	"github.com/JET-SOUZA/jet.iptv/internal/session"
	"github.com/JET-SOUZA/jet.iptv/internal/ui"
)

// Flash categories used by the templates.
const (
	flashError   = "error"
	flashSuccess = "success"
	flashInfo    = "info"
)

// msgGeneric is shown whenever an unexpected store or server error occurs.
const msgGeneric = "Something went wrong, please try again."

// writeJSON serializes v as JSON and writes it to the response with the given
// HTTP status code. The Content-Type header is set to application/json.
func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError writes a structured error response using the standard error
// envelope. The optional ctx map provides additional context fields.
func writeError(w http.ResponseWriter, code int, message string, ctx ...map[string]interface{}) {
	var ctxMap map[string]interface{}
	if len(ctx) > 0 {
		ctxMap = ctx[0]
	}
	writeJSON(w, code, model.ErrorResponse{
		Error: model.ErrorDetail{
			Code:    code,
			Message: message,
			Context: ctxMap,
		},
	})
}

// pathID extracts a positive int64 URL parameter.
func pathID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// formBool reports whether a checkbox-style form field is set.
func formBool(r *http.Request, key string) bool {
	switch strings.ToLower(strings.TrimSpace(r.PostFormValue(key))) {
	case "on", "true", "1", "yes":
		return true
	}
	return false
}

// ---------------------------------------------------------------------------
// HTML rendering
// ---------------------------------------------------------------------------

// Pages renders HTML templates and manages the flash/redirect dance shared
// by every page handler.
type Pages struct {
	templates        map[string]*template.Template
	sessions         *session.Manager
	users            guard.UserLookup
	registrationOpen bool
	logger           *slog.Logger
}

// NewPages loads the embedded templates. users is consulted on every render
// to decide whether the admin link is shown.
func NewPages(sessions *session.Manager, users guard.UserLookup, registrationOpen bool, logger *slog.Logger) (*Pages, error) {
	tmpls, err := ui.Templates()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Pages{
		templates:        tmpls,
		sessions:         sessions,
		users:            users,
		registrationOpen: registrationOpen,
		logger:           logger,
	}, nil
}

// pageData is the root value every template receives.
type pageData struct {
	Title            string
	User             *session.Session
	IsAdmin          bool
	Flashes          []session.Flash
	RegistrationOpen bool
	Data             interface{}
}

// current returns the request's session, never nil.
func current(r *http.Request) *session.Session {
	if s := session.FromContext(r.Context()); s != nil {
		return s
	}
	return &session.Session{}
}

// render executes page inside the base layout. Pending flashes are consumed
// and the session cookie is re-issued before the body is written.
func (p *Pages) render(w http.ResponseWriter, r *http.Request, status int, page, title string, data interface{}) {
	t, ok := p.templates[page]
	if !ok {
		p.fail(w, r, fmt.Errorf("unknown page %q", page))
		return
	}

	s := current(r)
	pd := pageData{
		Title:            title,
		User:             s,
		IsAdmin:          p.isAdmin(r, s),
		Flashes:          p.sessions.PopFlashes(s),
		RegistrationOpen: p.registrationOpen,
		Data:             data,
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", pd); err != nil {
		p.fail(w, r, fmt.Errorf("render %s: %w", page, err))
		return
	}
	if err := p.sessions.Save(w, s); err != nil {
		p.fail(w, r, fmt.Errorf("save session: %w", err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	w.Write(buf.Bytes())
}

// isAdmin reads the account's current admin flag. It is not cached in the
// session, so a demotion hides the link on the next page.
func (p *Pages) isAdmin(r *http.Request, s *session.Session) bool {
	if !s.LoggedIn() || p.users == nil {
		return false
	}
	u, err := p.users.GetUser(r.Context(), s.UserID)
	if err != nil {
		return false
	}
	return u.IsAdmin
}

// flash queues a message on the request's session without saving it.
func (p *Pages) flash(r *http.Request, category, msg string) {
	p.sessions.AddFlash(current(r), category, msg)
}

// redirect queues an optional flash, saves the session and answers 303.
func (p *Pages) redirect(w http.ResponseWriter, r *http.Request, to, category, msg string) {
	s := current(r)
	if msg != "" {
		p.sessions.AddFlash(s, category, msg)
	}
	if err := p.sessions.Save(w, s); err != nil {
		p.fail(w, r, fmt.Errorf("save session: %w", err))
		return
	}
	http.Redirect(w, r, to, http.StatusSeeOther)
}

// fail logs err and answers with a bare 500. Used only when rendering itself
// is broken; store errors are reported through flashes instead.
func (p *Pages) fail(w http.ResponseWriter, r *http.Request, err error) {
	p.logger.Error("request failed", "error", err, "path", r.URL.Path,
		"request_id", middleware.GetRequestID(r.Context()))
	http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
}

// internal logs an unexpected error and redirects to `to` with the generic
// flash message.
func (p *Pages) internal(w http.ResponseWriter, r *http.Request, to string, err error) {
	p.logger.Error("request error", "error", err, "path", r.URL.Path,
		"request_id", middleware.GetRequestID(r.Context()))
	p.redirect(w, r, to, flashError, msgGeneric)
}
