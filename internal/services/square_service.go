package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/google/uuid"
)

const (
	squareSandboxURL = "https://connect.squareupsandbox.com"
	squareLiveURL    = "https://connect.squareup.com"
)

// SquareBaseURL maps the configured environment flag to an API host.
func SquareBaseURL(env string) string {
	if env == "live" || env == "production" {
		return squareLiveURL
	}
	return squareSandboxURL
}

// SquareClient charges tokenized card sources through the Square Payments
// API. Square settles synchronously, so a COMPLETED payment is already paid
// when the call returns.
type SquareClient struct {
	accessToken string
	locationID  string
	baseURL     string
}

// NewSquareClient constructs a SquareClient against the given API host.
func NewSquareClient(accessToken, locationID, baseURL string) *SquareClient {
	return &SquareClient{
		accessToken: accessToken,
		locationID:  locationID,
		baseURL:     strings.TrimRight(baseURL, "/"),
	}
}

// Name identifies the processor.
func (s *SquareClient) Name() string {
	return "square"
}

type squarePaymentResponse struct {
	Payment struct {
		ID     string `json:"id"`
		Status string `json:"status"`
	} `json:"payment"`
}

// CreateCharge creates and settles a payment from a tokenized card source.
// Every attempt carries a fresh idempotency key.
func (s *SquareClient) CreateCharge(ctx context.Context, chargeReq ChargeRequest) (*Charge, error) {
	payload := map[string]any{
		"source_id":       chargeReq.SourceToken,
		"idempotency_key": uuid.NewString(),
		"amount_money": map[string]any{
			"amount":   chargeReq.AmountCents,
			"currency": chargeReq.Currency,
		},
		"location_id": s.locationID,
		"note":        chargeReq.Description,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("square payment marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/v2/payments", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("square request build: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("square request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Provider: s.Name(), Status: resp.StatusCode, Body: respBody}
	}

	var payment squarePaymentResponse
	if err := json.Unmarshal(respBody, &payment); err != nil {
		return nil, fmt.Errorf("square payment unmarshal: %w", err)
	}

	return &Charge{
		Provider:   s.Name(),
		ProviderID: payment.Payment.ID,
		Status:     mapSquareStatus(payment.Payment.Status),
		Raw:        respBody,
	}, nil
}

func mapSquareStatus(status string) string {
	if status == "COMPLETED" {
		return ChargeStatusPaid
	}
	return ChargeStatusCreated
}
