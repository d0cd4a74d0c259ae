package payment

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

	"github.com/shopspring/decimal"

	"subscription-billing/internal/domain/ports/adapter"
	"subscription-billing/internal/infra/metrics"
)

// PayPalGateway implements adapter.PaymentGateway against the PayPal REST
// payments API using direct HTTP calls. The client timeout bounds every
// round-trip; a timeout surfaces as a failed call and is never retried here.
type PayPalGateway struct {
	clientID     string
	clientSecret string
	baseURL      string
	client       *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
}

// NewPayPalGateway creates a gateway for the given mode ("sandbox" | "live").
func NewPayPalGateway(clientID, clientSecret, mode string, timeout time.Duration) (*PayPalGateway, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("paypal: client id and secret are required")
	}
	var baseURL string
	switch mode {
	case "sandbox":
		baseURL = "https://api.sandbox.paypal.com"
	case "live":
		baseURL = "https://api.paypal.com"
	default:
		return nil, fmt.Errorf("paypal: unknown mode %q", mode)
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &PayPalGateway{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      baseURL,
		client:       &http.Client{Timeout: timeout},
	}, nil
}

func (g *PayPalGateway) Name() string { return "paypal" }

type paypalTokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
}

type paypalLink struct {
	Href   string `json:"href"`
	Rel    string `json:"rel"`
	Method string `json:"method"`
}

type paypalPaymentResponse struct {
	ID    string       `json:"id"`
	State string       `json:"state"`
	Links []paypalLink `json:"links"`
}

// token returns a cached OAuth access token, refreshing it when close to expiry.
func (g *PayPalGateway) token(ctx context.Context) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.accessToken != "" && time.Now().Before(g.tokenExpiry.Add(-time.Minute)) {
		return g.accessToken, nil
	}

	body := strings.NewReader(url.Values{"grant_type": {"client_credentials"}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+"/v1/oauth2/token", body)
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.SetBasicAuth(g.clientID, g.clientSecret)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := g.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to fetch token: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read token response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("paypal token error: status %d, body: %s", resp.StatusCode, string(raw))
	}

	var tok paypalTokenResponse
	if err := json.Unmarshal(raw, &tok); err != nil {
		return "", fmt.Errorf("failed to unmarshal token response: %w", err)
	}
	if tok.AccessToken == "" {
		return "", fmt.Errorf("paypal token error: empty access_token")
	}
	g.accessToken = tok.AccessToken
	g.tokenExpiry = time.Now().Add(time.Duration(tok.ExpiresIn) * time.Second)
	return g.accessToken, nil
}

func (g *PayPalGateway) postJSON(ctx context.Context, path string, payload interface{}, out interface{}) error {
	tok, err := g.token(ctx)
	if err != nil {
		return err
	}

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		body = bytes.NewBuffer(raw)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+tok)

	resp, err := g.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("paypal error: status %d, body: %s", resp.StatusCode, string(raw))
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w, body: %s", err, string(raw))
		}
	}
	return nil
}

// CreatePayment initiates a payment and returns the gateway id plus the
// approval redirect URL.
func (g *PayPalGateway) CreatePayment(ctx context.Context, amount decimal.Decimal, currency, description, returnURL, cancelURL string) (*adapter.CreatedPayment, error) {
	start := time.Now()

	payload := map[string]interface{}{
		"intent": "sale",
		"payer":  map[string]string{"payment_method": "paypal"},
		"transactions": []map[string]interface{}{{
			"amount": map[string]string{
				"total":    amount.StringFixed(2),
				"currency": currency,
			},
			"description": description,
		}},
		"redirect_urls": map[string]string{
			"return_url": returnURL,
			"cancel_url": cancelURL,
		},
	}

	var resp paypalPaymentResponse
	err := g.postJSON(ctx, "/v1/payments/payment", payload, &resp)
	metrics.ObserveGatewayRequest("create", start, err)
	if err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, fmt.Errorf("paypal error: payment created without id")
	}

	var approval string
	for _, l := range resp.Links {
		if l.Rel == "approval_url" {
			approval = l.Href
			break
		}
	}
	if approval == "" {
		return nil, fmt.Errorf("paypal error: no approval_url in response for payment %s", resp.ID)
	}
	return &adapter.CreatedPayment{GatewayID: resp.ID, ApprovalURL: approval}, nil
}

// ExecutePayment finalizes a payment after the payer approved it.
func (g *PayPalGateway) ExecutePayment(ctx context.Context, gatewayID, payerID string) error {
	start := time.Now()

	payload := map[string]string{"payer_id": payerID}
	var resp paypalPaymentResponse
	err := g.postJSON(ctx, "/v1/payments/payment/"+url.PathEscape(gatewayID)+"/execute", payload, &resp)
	metrics.ObserveGatewayRequest("execute", start, err)
	if err != nil {
		return err
	}
	if resp.State != "approved" {
		return fmt.Errorf("paypal error: payment %s not approved, state=%q", gatewayID, resp.State)
	}
	return nil
}
