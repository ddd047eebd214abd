package auth

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storm/internal/models"
)

// SessionCookie is the name of the session cookie.
const SessionCookie = "sid"

// CreateSession persists a new session for the user and returns the plaintext
// token together with its expiry. The plaintext is never stored.
func CreateSession(db *gorm.DB, userID uuid.UUID, ttl time.Duration) (string, time.Time, error) {
	token, err := NewToken()
	if err != nil {
		return "", time.Time{}, err
	}

	expiresAt := time.Now().Add(ttl)
	session := models.Session{
		TokenHash: TokenHash(token),
		UserID:    userID,
		ExpiresAt: expiresAt,
	}

	if err := db.Create(&session).Error; err != nil {
		return "", time.Time{}, err
	}

	return token, expiresAt, nil
}

// DeleteSessionByToken removes the session matching the token's hash. A
// missing row is a no-op success so logout cannot fail on an already expired
// or revoked session.
func DeleteSessionByToken(db *gorm.DB, token string) error {
	return db.Where("token_hash = ?", TokenHash(token)).Delete(&models.Session{}).Error
}

// SetSessionCookie delivers the session token to the client.
func SetSessionCookie(c *fiber.Ctx, token string, expires time.Time, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    token,
		Path:     "/",
		Expires:  expires,
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

// ClearSessionCookie expires the session cookie on the client.
func ClearSessionCookie(c *fiber.Ctx, secure bool) {
	c.Cookie(&fiber.Cookie{
		Name:     SessionCookie,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		HTTPOnly: true,
		Secure:   secure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
