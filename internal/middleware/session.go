package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"

	"github.com/huonghan/storefront/internal/session"
)

const (
	sessionIDLocal = "session_id"
	sessionLocal   = "session"
	userIDLocal    = "user_id"
)

// Sessions binds a server-side session to every request through an opaque
// cookie holding the session id.
type Sessions struct {
	provider session.Provider
	cookie   string
	ttl      time.Duration
	secure   bool
	logger   *slog.Logger
}

// NewSessions configures cookie sessions backed by provider.
func NewSessions(provider session.Provider, cookie string, ttl time.Duration, secure bool, logger *slog.Logger) *Sessions {
	return &Sessions{provider: provider, cookie: cookie, ttl: ttl, secure: secure, logger: logger}
}

// Handler loads the session named by the cookie, or starts a new one, and
// exposes it through SessionFrom and UserID.
func (s *Sessions) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		id := c.Cookies(s.cookie)
		if _, err := uuid.Parse(id); err != nil {
			id = uuid.NewString()
		}
		s.bind(c, id)

		raw, err := SessionFrom(c).Get(c.UserContext(), session.KeyUser)
		switch {
		case err == nil:
			c.Locals(userIDLocal, string(raw))
		case errors.Is(err, session.ErrNotFound):
		default:
			s.logger.Error("session load failed", slog.Any("error", err))
			return fiber.NewError(http.StatusServiceUnavailable, "session store unavailable")
		}
		return c.Next()
	}
}

// SignIn records userID in a fresh session. The previous session id is
// discarded so a pre-login cookie cannot be replayed.
func (s *Sessions) SignIn(c *fiber.Ctx, userID string) error {
	if old, ok := c.Locals(sessionIDLocal).(string); ok && old != "" {
		if err := s.provider.Destroy(c.UserContext(), old); err != nil {
			s.logger.Warn("destroy previous session", slog.Any("error", err))
		}
	}
	s.bind(c, uuid.NewString())
	if err := SessionFrom(c).Set(c.UserContext(), session.KeyUser, []byte(userID)); err != nil {
		return err
	}
	c.Locals(userIDLocal, userID)
	return nil
}

// SignOut destroys the current session and expires the cookie.
func (s *Sessions) SignOut(c *fiber.Ctx) error {
	if id, ok := c.Locals(sessionIDLocal).(string); ok && id != "" {
		if err := s.provider.Destroy(c.UserContext(), id); err != nil {
			return err
		}
	}
	c.ClearCookie(s.cookie)
	c.Locals(userIDLocal, "")
	return nil
}

func (s *Sessions) bind(c *fiber.Ctx, id string) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cookie,
		Value:    id,
		Path:     "/",
		Expires:  time.Now().Add(s.ttl),
		HTTPOnly: true,
		Secure:   s.secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Locals(sessionIDLocal, id)
	c.Locals(sessionLocal, s.provider.Open(id))
}

// SessionFrom returns the store bound by Sessions.Handler.
func SessionFrom(c *fiber.Ctx) session.Store {
	store, _ := c.Locals(sessionLocal).(session.Store)
	return store
}

// UserID returns the signed-in user's id, or "" for an anonymous session.
func UserID(c *fiber.Ctx) string {
	id, _ := c.Locals(userIDLocal).(string)
	return id
}

// RequireLogin rejects anonymous requests.
func RequireLogin() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if UserID(c) == "" {
			return fiber.NewError(http.StatusUnauthorized, "login required")
		}
		return c.Next()
	}
}
