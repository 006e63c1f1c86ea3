package handler

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/JET-SOUZA/jet.iptv/internal/service"
	"github.com/JET-SOUZA/jet.iptv/internal/store"
)

const msgInvalidUserID = "Invalid user id."

// AdminHandler serves the user management dashboard. Every route is mounted
// behind the LoggedIn and Admin checks.
type AdminHandler struct {
	admin *service.AdminService
	pages *Pages
	now   func() time.Time
}

func NewAdminHandler(admin *service.AdminService, pages *Pages) *AdminHandler {
	return &AdminHandler{admin: admin, pages: pages, now: time.Now}
}

type userRow struct {
	ID       int64
	Username string
	Premium  bool
	IsAdmin  bool
	Expires  string
	Expired  bool
}

// Dashboard lists every account.
// GET /admin
func (h *AdminHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	users, err := h.admin.ListUsers(r.Context())
	if err != nil {
		h.pages.internal(w, r, "/", err)
		return
	}

	now := h.now()
	rows := make([]userRow, len(users))
	for i, u := range users {
		rows[i] = userRow{
			ID:       u.ID,
			Username: u.Username,
			Premium:  u.Premium,
			IsAdmin:  u.IsAdmin,
			Expires:  "never",
			Expired:  u.IsExpired(now),
		}
		if u.ExpiresAt != nil {
			rows[i].Expires = u.ExpiresAt.UTC().Format("2006-01-02 15:04 UTC")
		}
	}

	h.pages.render(w, r, http.StatusOK, "admin", "Admin", struct {
		Users []userRow
	}{rows})
}

// Create adds an account from the dashboard form.
// POST /admin/create
func (h *AdminHandler) Create(w http.ResponseWriter, r *http.Request) {
	u, err := h.admin.CreateUser(r.Context(), service.NewUser{
		Username:    r.PostFormValue("username"),
		Password:    r.PostFormValue("password"),
		Premium:     formBool(r, "premium"),
		IsAdmin:     formBool(r, "is_admin"),
		ExpiryHours: r.PostFormValue("expiry_hours"),
		Server:      r.PostFormValue("server"),
	})
	switch {
	case errors.Is(err, service.ErrMissingFields):
		h.pages.redirect(w, r, "/admin", flashError, msgMissingFields)
		return
	case errors.Is(err, store.ErrDuplicateUsername):
		h.pages.redirect(w, r, "/admin", flashError, msgUsernameTaken)
		return
	case err != nil:
		h.pages.internal(w, r, "/admin", err)
		return
	}
	h.pages.redirect(w, r, "/admin", flashSuccess, fmt.Sprintf("User %s created.", u.Username))
}

// Delete removes an account. Unknown ids succeed silently.
// POST /admin/delete/{id}
func (h *AdminHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.pages.redirect(w, r, "/admin", flashError, msgInvalidUserID)
		return
	}
	if err := h.admin.DeleteUser(r.Context(), id); err != nil {
		h.pages.internal(w, r, "/admin", err)
		return
	}
	h.pages.redirect(w, r, "/admin", flashSuccess, "User deleted.")
}

// TogglePremium flips an account's premium flag.
// POST /admin/toggle_premium/{id}
func (h *AdminHandler) TogglePremium(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.pages.redirect(w, r, "/admin", flashError, msgInvalidUserID)
		return
	}
	if err := h.admin.TogglePremium(r.Context(), id); err != nil {
		h.pages.internal(w, r, "/admin", err)
		return
	}
	h.pages.redirect(w, r, "/admin", flashSuccess, "Premium status updated.")
}

// SetExpiry sets an account's expiry from the expiry_hours field. Blank or
// malformed input clears the expiry.
// POST /admin/set_expiry/{id}
func (h *AdminHandler) SetExpiry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		h.pages.redirect(w, r, "/admin", flashError, msgInvalidUserID)
		return
	}
	exp, err := h.admin.SetExpiry(r.Context(), id, r.PostFormValue("expiry_hours"))
	if err != nil {
		h.pages.internal(w, r, "/admin", err)
		return
	}
	msg := "Expiry cleared."
	if exp != nil {
		msg = "Expiry set to " + exp.Format("2006-01-02 15:04 UTC") + "."
	}
	h.pages.redirect(w, r, "/admin", flashSuccess, msg)
}
