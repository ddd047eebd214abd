package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"
)

const (
	paypalSandboxURL   = "https://api-m.sandbox.paypal.com"
	paypalLiveURL      = "https://api-m.paypal.com"
	tokenRefreshLeeway = 30 * time.Second
)

// PayPalBaseURL maps the configured environment flag to an API host.
func PayPalBaseURL(env string) string {
	if env == "live" {
		return paypalLiveURL
	}
	return paypalSandboxURL
}

// PayPalClient talks to the PayPal Checkout Orders API using a cached
// client-credentials OAuth token.
type PayPalClient struct {
	clientID     string
	clientSecret string
	baseURL      string

	mu          sync.RWMutex
	token       string
	tokenExpiry time.Time
}

// NewPayPalClient constructs a PayPalClient against the given API host.
func NewPayPalClient(clientID, clientSecret, baseURL string) *PayPalClient {
	return &PayPalClient{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
	}
}

// Name identifies the processor.
func (p *PayPalClient) Name() string {
	return "paypal"
}

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
}

func (p *PayPalClient) accessToken(ctx context.Context, force bool) (string, error) {
	if !force {
		p.mu.RLock()
		if p.token != "" && time.Now().Before(p.tokenExpiry) {
			token := p.token
			p.mu.RUnlock()
			return token, nil
		}
		p.mu.RUnlock()
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	// Check again in case another goroutine refreshed while we waited for the lock.
	if !force && p.token != "" && time.Now().Before(p.tokenExpiry) {
		return p.token, nil
	}

	form := url.Values{"grant_type": {"client_credentials"}}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		p.baseURL+"/v1/oauth2/token", strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("paypal auth request build: %w", err)
	}
	req.SetBasicAuth(p.clientID, p.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("paypal auth request: %w", err)
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("paypal auth failed: status %d, body: %s", resp.StatusCode, string(body))
	}

	var tokenResp paypalTokenResponse
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return "", fmt.Errorf("paypal auth unmarshal: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return "", fmt.Errorf("paypal auth: empty access token")
	}

	p.token = tokenResp.AccessToken
	if tokenResp.ExpiresIn > 0 {
		p.tokenExpiry = time.Now().Add(time.Duration(tokenResp.ExpiresIn)*time.Second - tokenRefreshLeeway)
	} else {
		p.tokenExpiry = time.Now().Add(55 * time.Minute)
	}

	return p.token, nil
}

func (p *PayPalClient) do(ctx context.Context, method, path string, payload any) (int, []byte, error) {
	var body []byte
	if payload != nil {
		var err error
		body, err = json.Marshal(payload)
		if err != nil {
			return 0, nil, fmt.Errorf("paypal request marshal: %w", err)
		}
	}

	token, err := p.accessToken(ctx, false)
	if err != nil {
		return 0, nil, err
	}

	status, respBody, err := p.send(ctx, method, path, token, body)
	if err != nil {
		return 0, nil, err
	}

	// Retry once on 401 with a forced token refresh.
	if status == http.StatusUnauthorized {
		token, err = p.accessToken(ctx, true)
		if err != nil {
			return 0, nil, err
		}
		return p.send(ctx, method, path, token, body)
	}

	return status, respBody, nil
}

func (p *PayPalClient) send(ctx context.Context, method, path, token string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, p.baseURL+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("paypal request build: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("paypal request: %w", err)
	}
	defer resp.Body.Close()

	respBody, _ := io.ReadAll(resp.Body)
	return resp.StatusCode, respBody, nil
}

type paypalOrderResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CreateCharge creates a CAPTURE-intent checkout order and returns its id.
func (p *PayPalClient) CreateCharge(ctx context.Context, req ChargeRequest) (*Charge, error) {
	payload := map[string]any{
		"intent": "CAPTURE",
		"purchase_units": []map[string]any{{
			"amount": map[string]string{
				"currency_code": req.Currency,
				"value":         formatAmount(req.AmountCents),
			},
			"description": req.Description,
		}},
	}

	status, body, err := p.do(ctx, http.MethodPost, "/v2/checkout/orders", payload)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &APIError{Provider: p.Name(), Status: status, Body: body}
	}

	var order paypalOrderResponse
	if err := json.Unmarshal(body, &order); err != nil {
		return nil, fmt.Errorf("paypal order unmarshal: %w", err)
	}

	return &Charge{
		Provider:   p.Name(),
		ProviderID: order.ID,
		Status:     mapPayPalStatus(order.Status),
		Raw:        body,
	}, nil
}

// CaptureCharge settles a previously created order and returns the provider's
// capture payload.
func (p *PayPalClient) CaptureCharge(ctx context.Context, providerID string) (json.RawMessage, error) {
	status, body, err := p.do(ctx, http.MethodPost, "/v2/checkout/orders/"+url.PathEscape(providerID)+"/capture", nil)
	if err != nil {
		return nil, err
	}
	if status < 200 || status >= 300 {
		return nil, &APIError{Provider: p.Name(), Status: status, Body: body}
	}
	return body, nil
}

func mapPayPalStatus(status string) string {
	if status == "COMPLETED" {
		return ChargeStatusPaid
	}
	return ChargeStatusCreated
}
