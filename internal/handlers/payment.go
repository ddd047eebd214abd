package handlers

import (
	"encoding/json"
	"errors"
	"math"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/example/storm/internal/middleware"
	"github.com/example/storm/internal/models"
	"github.com/example/storm/internal/services"
)

// PaymentHandler exposes the checkout endpoints. Each provider sits behind
// the ChargeProvider interface, so the handler records orders the same way no
// matter which processor created the charge.
type PaymentHandler struct {
	db       *gorm.DB
	coinbase services.ChargeProvider
	paypal   services.CaptureProvider
	square   services.ChargeProvider
}

// NewPaymentHandler constructs a PaymentHandler.
func NewPaymentHandler(db *gorm.DB, coinbase services.ChargeProvider, paypal services.CaptureProvider, square services.ChargeProvider) *PaymentHandler {
	return &PaymentHandler{db: db, coinbase: coinbase, paypal: paypal, square: square}
}

type coinbaseCheckoutRequest struct {
	Name     string          `json:"name"`
	Amount   json.RawMessage `json:"amount"`
	Currency string          `json:"currency"`
}

// CoinbaseCreateCheckout creates a hosted Coinbase Commerce checkout and
// returns its URL.
func (h *PaymentHandler) CoinbaseCreateCheckout(c *fiber.Ctx) error {
	var req coinbaseCheckoutRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	amountCents, err := parseAmountCents(req.Amount)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid amount")
	}

	charge, err := h.coinbase.CreateCharge(c.UserContext(), services.ChargeRequest{
		AmountCents: amountCents,
		Currency:    defaultCurrency(req.Currency),
		Description: req.Name,
	})
	if err != nil {
		return providerError(c, err)
	}

	if err := h.recordOrder(c, charge, amountCents, defaultCurrency(req.Currency)); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"hosted_url": charge.CheckoutURL})
}

type paypalCreateRequest struct {
	Amount   json.RawMessage `json:"amount"`
	Currency string          `json:"currency"`
	Title    string          `json:"title"`
}

// PayPalCreate creates a PayPal checkout order and records it locally as
// created.
func (h *PaymentHandler) PayPalCreate(c *fiber.Ctx) error {
	var req paypalCreateRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	amountCents, err := parseAmountCents(req.Amount)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid amount")
	}

	charge, err := h.paypal.CreateCharge(c.UserContext(), services.ChargeRequest{
		AmountCents: amountCents,
		Currency:    defaultCurrency(req.Currency),
		Description: defaultTitle(req.Title),
	})
	if err != nil {
		return providerError(c, err)
	}

	if err := h.recordOrder(c, charge, amountCents, defaultCurrency(req.Currency)); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"id": charge.ProviderID})
}

type paypalCaptureRequest struct {
	OrderID string `json:"orderId"`
}

// PayPalCapture settles a created PayPal order and flips the matching local
// order rows to paid.
func (h *PaymentHandler) PayPalCapture(c *fiber.Ctx) error {
	var req paypalCaptureRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.OrderID == "" {
		return fiber.NewError(fiber.StatusBadRequest, "missing orderId")
	}

	payload, err := h.paypal.CaptureCharge(c.UserContext(), req.OrderID)
	if err != nil {
		return providerError(c, err)
	}

	if err := h.db.Model(&models.Order{}).
		Where("processor = ? AND processor_id = ?", models.ProcessorPayPal, req.OrderID).
		Update("status", models.OrderStatusPaid).Error; err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(payload)
}

type squarePaymentRequest struct {
	Token       string `json:"token"`
	AmountCents int64  `json:"amountCents"`
	Currency    string `json:"currency"`
	Title       string `json:"title"`
}

// SquareCreatePayment charges a tokenized card source through Square and
// returns the provider payload.
func (h *PaymentHandler) SquareCreatePayment(c *fiber.Ctx) error {
	var req squarePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}
	if req.Token == "" || req.AmountCents <= 0 {
		return fiber.NewError(fiber.StatusBadRequest, "invalid input")
	}

	charge, err := h.square.CreateCharge(c.UserContext(), services.ChargeRequest{
		AmountCents: req.AmountCents,
		Currency:    defaultCurrency(req.Currency),
		Description: defaultTitle(req.Title),
		SourceToken: req.Token,
	})
	if err != nil {
		return providerError(c, err)
	}

	if err := h.recordOrder(c, charge, req.AmountCents, defaultCurrency(req.Currency)); err != nil {
		return err
	}

	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(charge.Raw)
}

func (h *PaymentHandler) recordOrder(c *fiber.Ctx, charge *services.Charge, amountCents int64, currency string) error {
	var userID *uuid.UUID
	if user, ok := middleware.CurrentUser(c); ok {
		id := user.ID
		userID = &id
	}

	order := models.Order{
		UserID:      userID,
		AmountCents: amountCents,
		Currency:    currency,
		Processor:   charge.Provider,
		ProcessorID: charge.ProviderID,
		Status:      charge.Status,
	}
	return h.db.Create(&order).Error
}

// providerError passes a provider's non-2xx payload through as a 400;
// transport-level failures surface as a bad gateway.
func providerError(c *fiber.Ctx, err error) error {
	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
		return c.Status(fiber.StatusBadRequest).Send(apiErr.Body)
	}
	return fiber.NewError(fiber.StatusBadGateway, err.Error())
}

// parseAmountCents converts a decimal major-unit amount to minor units.
// Clients send the amount as either a JSON number or a decimal string.
func parseAmountCents(amount json.RawMessage) (int64, error) {
	raw := strings.TrimSpace(string(amount))
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(amount, &raw); err != nil {
			return 0, err
		}
	}

	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(value) || value <= 0 {
		return 0, errors.New("invalid amount")
	}
	return int64(math.Round(value * 100)), nil
}

func defaultCurrency(currency string) string {
	if currency == "" {
		return "USD"
	}
	return currency
}

func defaultTitle(title string) string {
	if title == "" {
		return "Order"
	}
	return title
}
