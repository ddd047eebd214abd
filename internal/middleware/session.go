package middleware

import (
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storm/internal/auth"
	"github.com/example/storm/internal/models"
)

const (
	userContextKey    = "currentUser"
	sessionContextKey = "currentSession"
)

// AuthUser is the identity projection exposed to handlers. It deliberately
// excludes the password hash.
type AuthUser struct {
	ID    uuid.UUID
	Email string
	Name  string
	Phone string
}

// AuthSession identifies the session backing the current request.
type AuthSession struct {
	ID     uuid.UUID
	UserID uuid.UUID
}

// SessionMiddleware resolves the session cookie on every request. An absent
// cookie, unknown token or expired session all yield an anonymous context;
// expiry is checked by comparison, not by row absence, so stale rows that have
// not been purged are still rejected. The invalid path performs no cookie
// writes.
func SessionMiddleware(db *gorm.DB) fiber.Handler {
	return func(c *fiber.Ctx) error {
		token := c.Cookies(auth.SessionCookie)
		if token == "" {
			return c.Next()
		}

		var session models.Session
		err := db.Preload("User").
			Where("token_hash = ?", auth.TokenHash(token)).
			First(&session).Error
		if err != nil {
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
			return c.Next()
		}

		if session.User == nil || !session.ExpiresAt.After(time.Now()) {
			return c.Next()
		}

		c.Locals(sessionContextKey, AuthSession{ID: session.ID, UserID: session.UserID})
		c.Locals(userContextKey, AuthUser{
			ID:    session.User.ID,
			Email: session.User.Email,
			Name:  session.User.Name,
			Phone: session.User.Phone,
		})

		return c.Next()
	}
}

// CurrentUser extracts the authenticated user from context.
func CurrentUser(c *fiber.Ctx) (AuthUser, bool) {
	if user, ok := c.Locals(userContextKey).(AuthUser); ok {
		return user, true
	}
	return AuthUser{}, false
}

// CurrentSession extracts the active session from context.
func CurrentSession(c *fiber.Ctx) (AuthSession, bool) {
	if session, ok := c.Locals(sessionContextKey).(AuthSession); ok {
		return session, true
	}
	return AuthSession{}, false
}
