package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// CoinbaseBaseURL is the Coinbase Commerce API host.
const CoinbaseBaseURL = "https://api.commerce.coinbase.com"

const coinbaseAPIVersion = "2018-03-22"

// CoinbaseClient creates hosted checkouts on Coinbase Commerce. Settlement
// happens entirely on the hosted page, so checkouts have no capture step and
// their orders stay in the created state.
type CoinbaseClient struct {
	apiKey  string
	baseURL string
}

// NewCoinbaseClient constructs a CoinbaseClient against the given API host.
func NewCoinbaseClient(apiKey, baseURL string) *CoinbaseClient {
	return &CoinbaseClient{
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Name identifies the processor.
func (cb *CoinbaseClient) Name() string {
	return "coinbase"
}

type coinbaseCheckoutResponse struct {
	Data struct {
		ID        string `json:"id"`
		HostedURL string `json:"hosted_url"`
	} `json:"data"`
}

// CreateCharge creates a fixed-price checkout and returns its hosted URL.
func (cb *CoinbaseClient) CreateCharge(ctx context.Context, chargeReq ChargeRequest) (*Charge, error) {
	payload := map[string]any{
		"name":         chargeReq.Description,
		"pricing_type": "fixed_price",
		"local_price": map[string]string{
			"amount":   formatAmount(chargeReq.AmountCents),
			"currency": chargeReq.Currency,
		},
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("coinbase checkout marshal: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, cb.baseURL+"/checkouts", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("coinbase request build: %w", err)
	}
	req.Header.Set("X-CC-Api-Key", cb.apiKey)
	req.Header.Set("X-CC-Version", coinbaseAPIVersion)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("coinbase request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &APIError{Provider: cb.Name(), Status: resp.StatusCode, Body: respBody}
	}

	var checkout coinbaseCheckoutResponse
	if err := json.Unmarshal(respBody, &checkout); err != nil {
		return nil, fmt.Errorf("coinbase checkout unmarshal: %w", err)
	}

	return &Charge{
		Provider:    cb.Name(),
		ProviderID:  checkout.Data.ID,
		Status:      ChargeStatusCreated,
		CheckoutURL: checkout.Data.HostedURL,
		Raw:         respBody,
	}, nil
}
