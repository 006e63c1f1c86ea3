package handler

import (
	"errors"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JET-SOUZA/jet.iptv/internal/catalog"
	"github.com/JET-SOUZA/jet.iptv/internal/guard"
	"github.com/JET-SOUZA/jet.iptv/internal/store"
	"github.com/JET-SOUZA/jet.iptv/internal/xtream"
)

const (
	msgPlaylistRequired = "Please provide a playlist URL."
	msgPlaylistInvalid  = "Playlist URL must start with http:// or https://."
)

// MediaHandler serves the index, catalog browsing, the player and the
// playlist/Xtream entry forms.
type MediaHandler struct {
	catalog *catalog.Catalog
	users   guard.UserLookup
	pages   *Pages
}

func NewMediaHandler(cat *catalog.Catalog, users guard.UserLookup, pages *Pages) *MediaHandler {
	return &MediaHandler{catalog: cat, users: users, pages: pages}
}

// playerURL returns the player route for a stream URL.
func playerURL(stream string) string {
	return "/player?url=" + url.QueryEscape(stream)
}

// Index renders the landing page.
// GET /
func (h *MediaHandler) Index(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, "index", "Início", struct {
		Categories []string
	}{h.catalog.Names()})
}

// Category lists the streams of one category. Unknown names render an empty
// list.
// GET /category/{name}
func (h *MediaHandler) Category(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	if unescaped, err := url.PathUnescape(name); err == nil {
		name = unescaped
	}
	streams, _ := h.catalog.Streams(name)
	h.pages.render(w, r, http.StatusOK, "category", name, struct {
		Name    string
		Streams []catalog.Stream
	}{name, streams})
}

// Player renders the video player for ?url=.
// GET /player
func (h *MediaHandler) Player(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, "player", "Player", struct {
		URL string
	}{r.URL.Query().Get("url")})
}

// PlaylistForm renders the M3U URL form.
// GET /playlist
func (h *MediaHandler) PlaylistForm(w http.ResponseWriter, r *http.Request) {
	h.pages.render(w, r, http.StatusOK, "playlist", "Playlist", struct{ URL string }{})
}

// Playlist sends the submitted m3u_url to the player.
// POST /playlist
func (h *MediaHandler) Playlist(w http.ResponseWriter, r *http.Request) {
	raw := strings.TrimSpace(r.PostFormValue("m3u_url"))
	if raw == "" {
		h.pages.flash(r, flashError, msgPlaylistRequired)
		h.pages.render(w, r, http.StatusOK, "playlist", "Playlist", struct{ URL string }{})
		return
	}
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		h.pages.flash(r, flashError, msgPlaylistInvalid)
		h.pages.render(w, r, http.StatusOK, "playlist", "Playlist", struct{ URL string }{raw})
		return
	}
	h.pages.redirect(w, r, playerURL(raw), "", "")
}

// PlaylistM3U downloads the whole catalog as an M3U playlist.
// GET /playlist.m3u
func (h *MediaHandler) PlaylistM3U(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "audio/x-mpegurl; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="jetiptv.m3u"`)
	if err := h.catalog.WriteM3U(w); err != nil {
		h.pages.logger.Error("write playlist", "error", err)
	}
}

type xtreamForm struct {
	Server   string
	Username string
}

// storedServer returns the account's saved Xtream server, or "" when the
// account has none or no longer exists.
func (h *MediaHandler) storedServer(r *http.Request) (string, error) {
	u, err := h.users.GetUser(r.Context(), current(r).UserID)
	if errors.Is(err, store.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	return u.ServerURL(), nil
}

// XtreamForm renders the Xtream login form prefilled from the account.
// GET /xtream
func (h *MediaHandler) XtreamForm(w http.ResponseWriter, r *http.Request) {
	server, err := h.storedServer(r)
	if err != nil {
		h.pages.internal(w, r, "/", err)
		return
	}
	h.pages.render(w, r, http.StatusOK, "xtream", "Xtream", xtreamForm{
		Server:   server,
		Username: current(r).Username,
	})
}

// Xtream builds the live stream URL and sends it to the player. Blank form
// fields fall back to the stored server, the session username and the
// session's Xtream password.
// POST /xtream
func (h *MediaHandler) Xtream(w http.ResponseWriter, r *http.Request) {
	server, err := h.storedServer(r)
	if err != nil {
		h.pages.internal(w, r, "/xtream", err)
		return
	}

	s := current(r)
	creds := xtream.Credentials{
		Server:   r.PostFormValue("server"),
		Username: r.PostFormValue("username"),
		Password: r.PostFormValue("password"),
	}.WithDefaults(xtream.Credentials{
		Server:   server,
		Username: s.Username,
		Password: s.XtreamPass,
	})

	stream, err := xtream.BuildStreamURL(creds)
	if err != nil {
		h.pages.flash(r, flashError, xtreamMessage(err))
		h.pages.render(w, r, http.StatusOK, "xtream", "Xtream", xtreamForm{
			Server:   creds.Server,
			Username: creds.Username,
		})
		return
	}
	h.pages.redirect(w, r, playerURL(stream), "", "")
}

func xtreamMessage(err error) string {
	switch {
	case errors.Is(err, xtream.ErrMissingServer):
		return "Please provide the Xtream server URL."
	case errors.Is(err, xtream.ErrInvalidServer):
		return "Server URL must start with http:// or https://."
	case errors.Is(err, xtream.ErrMissingCredentials):
		return "Xtream username and password are required."
	}
	return msgGeneric
}
