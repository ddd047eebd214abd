package handlers

import (
	"errors"
	"strings"

	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/storm/internal/middleware"
	"github.com/example/storm/internal/models"
)

// AccountHandler manages the authenticated account surface.
type AccountHandler struct {
	db *gorm.DB
}

// NewAccountHandler constructs an AccountHandler.
func NewAccountHandler(db *gorm.DB) *AccountHandler {
	return &AccountHandler{db: db}
}

// Show returns the account page data: the user projection plus the default
// address, if one exists.
func (h *AccountHandler) Show(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return fiber.NewError(fiber.StatusUnauthorized, "unauthorized")
	}

	var address models.UserAddress
	err := h.db.Where("user_id = ? AND is_default = ?", user.ID, true).First(&address).Error
	hasAddress := err == nil
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return err
	}

	data := fiber.Map{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
		"phone": user.Phone,
	}
	if hasAddress {
		data["address"] = address
	}

	return c.JSON(fiber.Map{"success": true, "data": data})
}

type updateAccountRequest struct {
	Name    string `form:"name"`
	Phone   string `form:"phone"`
	Line1   string `form:"line1"`
	Line2   string `form:"line2"`
	City    string `form:"city"`
	State   string `form:"state"`
	Postal  string `form:"postal"`
	Country string `form:"country"`
}

// Update writes profile fields and upserts the single default address. Both
// writes share one transaction; the unique index on (user_id, is_default)
// settles concurrent upserts for the same user.
func (h *AccountHandler) Update(c *fiber.Ctx) error {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		return c.Redirect("/login", fiber.StatusSeeOther)
	}

	var req updateAccountRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	err := h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("id = ?", user.ID).Updates(map[string]interface{}{
			"name":  strings.TrimSpace(req.Name),
			"phone": strings.TrimSpace(req.Phone),
		}).Error; err != nil {
			return err
		}

		var address models.UserAddress
		err := tx.Where("user_id = ? AND is_default = ?", user.ID, true).First(&address).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return tx.Create(&models.UserAddress{
				UserID:     user.ID,
				Line1:      req.Line1,
				Line2:      req.Line2,
				City:       req.City,
				State:      req.State,
				PostalCode: req.Postal,
				Country:    req.Country,
				IsDefault:  true,
			}).Error
		}
		if err != nil {
			return err
		}

		return tx.Model(&address).Updates(map[string]interface{}{
			"line1":       req.Line1,
			"line2":       req.Line2,
			"city":        req.City,
			"state":       req.State,
			"postal_code": req.Postal,
			"country":     req.Country,
		}).Error
	})
	if err != nil {
		return err
	}

	return c.Redirect("/account", fiber.StatusSeeOther)
}
