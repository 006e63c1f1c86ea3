// Package xtream builds stream URLs for Xtream-Codes style panels.
package xtream

import (
	"errors"
	"net/url"
	"strings"
)

var (
	// ErrMissingServer is returned when no server base URL is available.
	ErrMissingServer = errors.New("xtream server is required")
	// ErrInvalidServer is returned when the server is not an absolute http(s) URL.
	ErrInvalidServer = errors.New("xtream server must be an http or https URL")
	// ErrMissingCredentials is returned when the username or password is blank.
	ErrMissingCredentials = errors.New("xtream username and password are required")
)

// Credentials are the form values submitted for an Xtream login.
type Credentials struct {
	Server   string
	Username string
	Password string
}

// WithDefaults fills blank fields from fallback.
func (c Credentials) WithDefaults(fallback Credentials) Credentials {
	if strings.TrimSpace(c.Server) == "" {
		c.Server = fallback.Server
	}
	if strings.TrimSpace(c.Username) == "" {
		c.Username = fallback.Username
	}
	if c.Password == "" {
		c.Password = fallback.Password
	}
	return c
}

// BuildStreamURL returns {server}/live/{username}/{password}/channel.m3u8.
// Username and password are path-escaped; a trailing slash on the server
// is dropped.
func BuildStreamURL(c Credentials) (string, error) {
	server := strings.TrimRight(strings.TrimSpace(c.Server), "/")
	if server == "" {
		return "", ErrMissingServer
	}
	u, err := url.Parse(server)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return "", ErrInvalidServer
	}

	user := strings.TrimSpace(c.Username)
	if user == "" || c.Password == "" {
		return "", ErrMissingCredentials
	}

	return server + "/live/" + url.PathEscape(user) + "/" + url.PathEscape(c.Password) + "/channel.m3u8", nil
}
