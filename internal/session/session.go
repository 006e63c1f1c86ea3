// Package session keeps per-browser state in a signed cookie. Nothing is
// stored server-side: the cookie carries an HS256 JWT whose claims hold the
// logged-in identity and any pending flash messages.
package session

import (
	"context"
	"crypto/rand"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/JET-SOUZA/jet.iptv/internal/model"
)

const (
	// CookieName is the name of the session cookie.
	CookieName = "jetiptv_session"

	issuer     = "jetiptv"
	defaultTTL = 24 * time.Hour
)

// Flash is a one-shot notice shown on the next rendered page.
type Flash struct {
	Category string `json:"category"`
	Message  string `json:"message"`
}

// Session is the decoded state of one browser. The zero value is an
// anonymous session with no pending flashes.
type Session struct {
	UserID     int64   `json:"user_id,omitempty"`
	Premium    bool    `json:"premium,omitempty"`
	Username   string  `json:"username,omitempty"`
	XtreamPass string  `json:"xtream_pass,omitempty"`
	Flashes    []Flash `json:"flashes,omitempty"`
}

// LoggedIn reports whether the session carries a user identity.
func (s *Session) LoggedIn() bool {
	return s != nil && s.UserID != 0
}

type claims struct {
	Session
	jwt.RegisteredClaims
}

// Config configures a Manager.
type Config struct {
	// Secret signs the cookie. When empty a random secret is generated and
	// every session is lost on restart.
	Secret string
	// TTL bounds how long a signed cookie stays valid. Defaults to 24h.
	TTL time.Duration
	// Secure sets the Secure attribute on the cookie.
	Secure bool
	Logger *slog.Logger
}

// Manager encodes and decodes sessions.
type Manager struct {
	secret []byte
	ttl    time.Duration
	secure bool
	logger *slog.Logger
	now    func() time.Time
}

func NewManager(cfg Config) (*Manager, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	secret := []byte(cfg.Secret)
	if len(secret) == 0 {
		secret = make([]byte, 32)
		if _, err := rand.Read(secret); err != nil {
			return nil, err
		}
		logger.Warn("no session secret configured, generated a random one; sessions will not survive a restart")
	}

	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = defaultTTL
	}

	return &Manager{
		secret: secret,
		ttl:    ttl,
		secure: cfg.Secure,
		logger: logger,
		now:    time.Now,
	}, nil
}

// Load decodes the session cookie from r. A missing, tampered, expired or
// foreign-key cookie yields an empty anonymous session.
func (m *Manager) Load(r *http.Request) *Session {
	c, err := r.Cookie(CookieName)
	if err != nil || c.Value == "" {
		return &Session{}
	}

	cl := &claims{}
	token, err := jwt.ParseWithClaims(c.Value, cl, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return m.secret, nil
	}, jwt.WithIssuer(issuer), jwt.WithTimeFunc(m.now))
	if err != nil || !token.Valid {
		m.logger.Debug("discarding invalid session cookie", "error", err)
		return &Session{}
	}

	s := cl.Session
	return &s
}

// Save signs s and writes it as the session cookie. An empty anonymous
// session removes the cookie instead.
func (m *Manager) Save(w http.ResponseWriter, s *Session) error {
	if s == nil || (!s.LoggedIn() && len(s.Flashes) == 0) {
		http.SetCookie(w, m.cookie("", -1))
		return nil
	}

	token, err := m.encode(s)
	if err != nil {
		return err
	}
	http.SetCookie(w, m.cookie(token, 0))
	return nil
}

func (m *Manager) encode(s *Session) (string, error) {
	now := m.now()
	cl := claims{
		Session: *s,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
			Issuer:    issuer,
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, cl).SignedString(m.secret)
}

func (m *Manager) cookie(value string, maxAge int) *http.Cookie {
	return &http.Cookie{
		Name:     CookieName,
		Value:    value,
		Path:     "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   m.secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// Establish records a successful login on s. The Xtream password is the
// account's stored one, or the just-verified plaintext when none is stored.
func (m *Manager) Establish(s *Session, u *model.User, plaintext string) {
	s.UserID = u.ID
	s.Premium = u.Premium
	s.Username = u.Username
	s.XtreamPass = u.StoredXtreamPass()
	if s.XtreamPass == "" {
		s.XtreamPass = plaintext
	}
}

// Clear drops every field of s, including pending flashes.
func (m *Manager) Clear(s *Session) {
	*s = Session{}
}

// AddFlash queues a message for the next rendered page.
func (m *Manager) AddFlash(s *Session, category, message string) {
	s.Flashes = append(s.Flashes, Flash{Category: category, Message: message})
}

// PopFlashes returns the pending flashes and empties the queue.
func (m *Manager) PopFlashes(s *Session) []Flash {
	f := s.Flashes
	s.Flashes = nil
	return f
}

type ctxKey struct{}

// NewContext returns a copy of ctx carrying s.
func NewContext(ctx context.Context, s *Session) context.Context {
	return context.WithValue(ctx, ctxKey{}, s)
}

// FromContext returns the session stored in ctx, or nil.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}
