package openapi

import "net/http"

// Access levels a route may require, in evaluation order.
const (
	AccessLoggedIn = "logged_in"
	AccessPremium  = "premium"
	AccessAdmin    = "admin"
)

// Response kinds.
const (
	KindHTML     = "html"
	KindRedirect = "redirect"
	KindJSON     = "json"
	KindM3U      = "m3u"
)

// Route describes one HTTP endpoint.
type Route struct {
	Method     string
	Path       string
	Summary    string
	Tag        string
	Access     []string
	PathParams []string
	Query      []string
	Form       []Field
	Responses  []string
}

// Field is a form field accepted by a POST route.
type Field struct {
	Name     string
	Type     string // string, boolean, number
	Required bool
}

var (
	premium = []string{AccessLoggedIn, AccessPremium}
	admin   = []string{AccessLoggedIn, AccessAdmin}

	credentialFields = []Field{
		{Name: "username", Type: "string", Required: true},
		{Name: "password", Type: "string", Required: true},
	}
)

// Routes returns every endpoint served by jetiptv.
func Routes() []Route {
	return []Route{
		{Method: http.MethodGet, Path: "/", Summary: "Landing page", Tag: "pages", Responses: []string{KindHTML}},

		{Method: http.MethodGet, Path: "/register", Summary: "Registration form", Tag: "auth", Responses: []string{KindHTML}},
		{Method: http.MethodPost, Path: "/register", Summary: "Create a non-premium account", Tag: "auth", Form: credentialFields, Responses: []string{KindHTML, KindRedirect}},
		{Method: http.MethodGet, Path: "/login", Summary: "Login form", Tag: "auth", Responses: []string{KindHTML, KindRedirect}},
		{Method: http.MethodPost, Path: "/login", Summary: "Verify credentials and start a session", Tag: "auth", Form: credentialFields, Responses: []string{KindHTML, KindRedirect}},
		{Method: http.MethodGet, Path: "/logout", Summary: "End the session", Tag: "auth", Responses: []string{KindRedirect}},

		{Method: http.MethodGet, Path: "/category/{name}", Summary: "Streams of one category", Tag: "media", Access: premium, PathParams: []string{"name"}, Responses: []string{KindHTML}},
		{Method: http.MethodGet, Path: "/player", Summary: "Video player", Tag: "media", Access: premium, Query: []string{"url"}, Responses: []string{KindHTML}},
		{Method: http.MethodGet, Path: "/playlist", Summary: "M3U URL form", Tag: "media", Access: premium, Responses: []string{KindHTML}},
		{Method: http.MethodPost, Path: "/playlist", Summary: "Play an M3U URL", Tag: "media", Access: premium,
			Form: []Field{{Name: "m3u_url", Type: "string", Required: true}}, Responses: []string{KindHTML, KindRedirect}},
		{Method: http.MethodGet, Path: "/playlist.m3u", Summary: "Catalog as an M3U playlist", Tag: "media", Access: premium, Responses: []string{KindM3U}},
		{Method: http.MethodGet, Path: "/xtream", Summary: "Xtream Codes form", Tag: "media", Access: premium, Responses: []string{KindHTML}},
		{Method: http.MethodPost, Path: "/xtream", Summary: "Build an Xtream live stream URL", Tag: "media", Access: premium,
			Form: []Field{{Name: "server", Type: "string"}, {Name: "username", Type: "string"}, {Name: "password", Type: "string"}},
			Responses: []string{KindHTML, KindRedirect}},

		{Method: http.MethodGet, Path: "/admin", Summary: "User management dashboard", Tag: "admin", Access: admin, Responses: []string{KindHTML}},
		{Method: http.MethodPost, Path: "/admin/create", Summary: "Create an account", Tag: "admin", Access: admin,
			Form: []Field{
				{Name: "username", Type: "string", Required: true},
				{Name: "password", Type: "string", Required: true},
				{Name: "premium", Type: "boolean"},
				{Name: "is_admin", Type: "boolean"},
				{Name: "expiry_hours", Type: "number"},
				{Name: "server", Type: "string"},
			},
			Responses: []string{KindRedirect}},
		{Method: http.MethodPost, Path: "/admin/delete/{id}", Summary: "Delete an account", Tag: "admin", Access: admin, PathParams: []string{"id"}, Responses: []string{KindRedirect}},
		{Method: http.MethodPost, Path: "/admin/toggle_premium/{id}", Summary: "Flip the premium flag", Tag: "admin", Access: admin, PathParams: []string{"id"}, Responses: []string{KindRedirect}},
		{Method: http.MethodPost, Path: "/admin/set_expiry/{id}", Summary: "Set or clear the account expiry", Tag: "admin", Access: admin, PathParams: []string{"id"},
			Form: []Field{{Name: "expiry_hours", Type: "number"}}, Responses: []string{KindRedirect}},

		{Method: http.MethodGet, Path: "/healthz", Summary: "Liveness probe", Tag: "system", Responses: []string{KindJSON}},
		{Method: http.MethodGet, Path: "/readyz", Summary: "Readiness probe", Tag: "system", Responses: []string{KindJSON}},
		{Method: http.MethodGet, Path: "/openapi.json", Summary: "This document", Tag: "system", Responses: []string{KindJSON}},
	}
}
