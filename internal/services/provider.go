package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// Charge statuses as recorded locally. Each provider maps its own status
// vocabulary onto these two values.
const (
	ChargeStatusCreated = "created"
	ChargeStatusPaid    = "paid"
)

// Shared HTTP client for all provider calls, guarded by a single timeout.
var httpClient = &http.Client{Timeout: 15 * time.Second}

// ChargeRequest carries the caller-supplied inputs for creating a charge.
// Amounts are integer minor currency units.
type ChargeRequest struct {
	AmountCents int64
	Currency    string
	Description string
	// SourceToken is the tokenized payment source for providers that charge
	// immediately (Square card nonce). Empty for redirect-based flows.
	SourceToken string
}

// Charge is the provider-agnostic result of creating a charge.
type Charge struct {
	Provider    string
	ProviderID  string
	Status      string
	CheckoutURL string
	Raw         json.RawMessage
}

// ChargeProvider is the capability every payment integration implements.
type ChargeProvider interface {
	Name() string
	CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error)
}

// CaptureProvider is implemented by providers with a separate capture step
// that settles a previously created charge.
type CaptureProvider interface {
	ChargeProvider
	CaptureCharge(ctx context.Context, providerID string) (json.RawMessage, error)
}

// APIError preserves a provider's non-2xx response so handlers can pass the
// payload through to the caller verbatim.
type APIError struct {
	Provider string
	Status   int
	Body     []byte
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s API error: status %d, body: %s", e.Provider, e.Status, string(e.Body))
}

// formatAmount renders minor units as the decimal string provider APIs that
// refuse integer amounts expect ("10.00" for 1000 cents).
func formatAmount(cents int64) string {
	sign := ""
	if cents < 0 {
		sign = "-"
		cents = -cents
	}
	return fmt.Sprintf("%s%d.%02d", sign, cents/100, cents%100)
}
