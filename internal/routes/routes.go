package routes

import (
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"

	"github.com/example/storm/internal/config"
	"github.com/example/storm/internal/handlers"
	"github.com/example/storm/internal/middleware"
	"github.com/example/storm/internal/services"
)

// Register wires up all HTTP routes.
func Register(app *fiber.App, db *gorm.DB, cfg *config.Config) {
	app.Use(middleware.SessionMiddleware(db))

	authHandler := handlers.NewAuthHandler(db, cfg)
	accountHandler := handlers.NewAccountHandler(db)
	paymentHandler := handlers.NewPaymentHandler(db,
		services.NewCoinbaseClient(cfg.CoinbaseAPIKey, services.CoinbaseBaseURL),
		services.NewPayPalClient(cfg.PayPalClientID, cfg.PayPalClientSecret, services.PayPalBaseURL(cfg.PayPalEnv)),
		services.NewSquareClient(cfg.SquareAccessToken, cfg.SquareLocationID, services.SquareBaseURL(cfg.SquareEnv)),
	)

	api := app.Group("/api")

	auth := api.Group("/auth")
	auth.Post("/register", authHandler.Register)
	auth.Post("/login", authHandler.Login)
	auth.Post("/logout", authHandler.Logout)

	account := api.Group("/account")
	account.Get("/", accountHandler.Show)
	account.Post("/update", accountHandler.Update)

	payments := api.Group("/payments")
	payments.Post("/coinbase/create-checkout", paymentHandler.CoinbaseCreateCheckout)
	payments.Post("/paypal/create", paymentHandler.PayPalCreate)
	payments.Post("/paypal/capture", paymentHandler.PayPalCapture)
	payments.Post("/square/create-payment", paymentHandler.SquareCreatePayment)
}
