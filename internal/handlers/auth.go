package handlers

import (
	"errors"
	"net/mail"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/storm/internal/auth"
	"github.com/example/storm/internal/config"
	"github.com/example/storm/internal/models"
	"github.com/example/storm/internal/utils"
)

const minPasswordLength = 8

// AuthHandler bundles dependencies for authentication endpoints.
type AuthHandler struct {
	db  *gorm.DB
	cfg *config.Config
}

// NewAuthHandler constructs an AuthHandler.
func NewAuthHandler(db *gorm.DB, cfg *config.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

type registerRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
	Name     string `form:"name"`
	Phone    string `form:"phone"`
}

// Register creates a new user account and logs it in immediately.
func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	email := normalizeEmail(req.Email)
	if email == "" || !validEmail(email) || len(req.Password) < minPasswordLength {
		return fiber.NewError(fiber.StatusBadRequest, "invalid input")
	}

	var existing models.User
	if err := h.db.Where("email = ?", email).First(&existing).Error; err == nil {
		return fiber.NewError(fiber.StatusConflict, "email already registered")
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	passwordHash, err := utils.HashPassword(req.Password)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "failed to hash password")
	}

	user := models.User{
		Email:        email,
		Name:         strings.TrimSpace(req.Name),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: passwordHash,
	}

	if err := h.db.Create(&user).Error; err != nil {
		// Two registrations racing on the same email: the unique index decides,
		// the loser gets the same conflict as the pre-check.
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return fiber.NewError(fiber.StatusConflict, "email already registered")
		}
		return err
	}

	token, expiresAt, err := auth.CreateSession(h.db, user.ID, h.cfg.SessionTTL)
	if err != nil {
		return err
	}

	auth.SetSessionCookie(c, token, expiresAt, h.secureCookies(c))
	return c.Redirect("/account", fiber.StatusSeeOther)
}

type loginRequest struct {
	Email    string `form:"email"`
	Password string `form:"password"`
}

// Login authenticates an existing user. Unknown email and wrong password fail
// identically so the response leaks nothing about which occurred.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	email := normalizeEmail(req.Email)

	var user models.User
	if err := h.db.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
		}
		return err
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		return fiber.NewError(fiber.StatusUnauthorized, "invalid credentials")
	}

	token, expiresAt, err := auth.CreateSession(h.db, user.ID, h.cfg.SessionTTL)
	if err != nil {
		return err
	}

	auth.SetSessionCookie(c, token, expiresAt, h.secureCookies(c))
	return c.Redirect("/account", fiber.StatusSeeOther)
}

// Logout revokes the current session and clears the cookie. Deleting an
// already-absent session is success, so logout never fails.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if token := c.Cookies(auth.SessionCookie); token != "" {
		if err := auth.DeleteSessionByToken(h.db, token); err != nil {
			return err
		}
	}

	auth.ClearSessionCookie(c, h.secureCookies(c))
	return c.Redirect("/", fiber.StatusSeeOther)
}

func (h *AuthHandler) secureCookies(c *fiber.Ctx) bool {
	return c.Protocol() == "https" || h.cfg.Production()
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func validEmail(email string) bool {
	addr, err := mail.ParseAddress(email)
	return err == nil && addr.Address == email
}
