package handler

import (
	"errors"
	"net/http"

	"github.com/JET-SOUZA/jet.iptv/internal/service"
	"github.com/JET-SOUZA/jet.iptv/internal/session"
	"github.com/JET-SOUZA/jet.iptv/internal/store"
)

// User-facing messages for the login and registration forms.
const (
	msgInvalidCredentials = "Invalid username or password."
	msgAccountExpired     = "Your account has expired. Please contact the administrator."
	msgMissingFields      = "Username and password are required."
	msgUsernameTaken      = "Username already exists."
	msgRegistered         = "Registration successful! Please log in."
	msgLoggedIn           = "Login successful!"
	msgLoggedOut          = "You have been logged out."
)

// AuthHandler serves registration, login and logout.
type AuthHandler struct {
	auth     *service.AuthService
	sessions *session.Manager
	pages    *Pages
}

func NewAuthHandler(auth *service.AuthService, sessions *session.Manager, pages *Pages) *AuthHandler {
	return &AuthHandler{auth: auth, sessions: sessions, pages: pages}
}

type credentialsForm struct {
	Username string
}

// LoginForm renders the login page. Signed-in users see it too, so a guard
// redirect can show its flash and a fresh login can pick up account changes.
// GET /login
func (h *AuthHandler) LoginForm(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, "login", "Login", credentialsForm{})
}

// Login verifies credentials and establishes the session.
// POST /login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	password := r.PostFormValue("password")

	u, err := h.auth.Authenticate(r.Context(), username, password)
	switch {
	case errors.Is(err, service.ErrInvalidCredentials):
		h.pages.flash(r, flashError, msgInvalidCredentials)
		h.pages.render(w, r, http.StatusOK, "login", "Login", credentialsForm{Username: username})
		return
	case errors.Is(err, service.ErrAccountExpired):
		h.pages.flash(r, flashError, msgAccountExpired)
		h.pages.render(w, r, http.StatusOK, "login", "Login", credentialsForm{Username: username})
		return
	case err != nil:
		h.pages.internal(w, r, "/login", err)
		return
	}

	s := current(r)
	h.sessions.Clear(s)
	h.sessions.Establish(s, u, password)
	h.pages.redirect(w, r, "/", flashSuccess, msgLoggedIn)
}

// Logout drops the identity and keeps only the goodbye flash.
// GET /logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	h.sessions.Clear(current(r))
	h.pages.redirect(w, r, "/", flashInfo, msgLoggedOut)
}

// RegisterForm renders the registration page, or 404 when registration is
// disabled.
// GET /register
func (h *AuthHandler) RegisterForm(w http.ResponseWriter, r *http.Request) {
	if !h.auth.RegistrationOpen() {
		http.NotFound(w, r)
		return
	}
	h.pages.render(w, r, http.StatusOK, "register", "Register", credentialsForm{})
}

// Register creates a non-premium account.
// POST /register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	username := r.PostFormValue("username")
	_, err := h.auth.Register(r.Context(), username, r.PostFormValue("password"))
	switch {
	case errors.Is(err, service.ErrRegistrationClosed):
		http.NotFound(w, r)
		return
	case errors.Is(err, service.ErrMissingFields):
		h.pages.flash(r, flashError, msgMissingFields)
		h.pages.render(w, r, http.StatusOK, "register", "Register", credentialsForm{Username: username})
		return
	case errors.Is(err, store.ErrDuplicateUsername):
		h.pages.flash(r, flashError, msgUsernameTaken)
		h.pages.render(w, r, http.StatusOK, "register", "Register", credentialsForm{Username: username})
		return
	case err != nil:
		h.pages.internal(w, r, "/register", err)
		return
	}
	h.pages.redirect(w, r, "/login", flashSuccess, msgRegistered)
}
