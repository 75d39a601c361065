package cashfree

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const (
	// DefaultBaseURL points at the Cashfree sandbox; production overrides via config
	DefaultBaseURL = "https://sandbox.cashfree.com/pg"
	// DefaultTimeout bounds every outbound gateway call
	DefaultTimeout = 30 * time.Second
	// APIVersion is the x-api-version header value
	APIVersion = "2023-08-01"
)

// Client handles all Cashfree payment gateway interactions
type Client struct {
	appID      string
	secretKey  string
	baseURL    string
	httpClient *http.Client
}

// Config holds configuration for the Cashfree client
type Config struct {
	AppID     string
	SecretKey string
	BaseURL   string
	Timeout   time.Duration
}

// NewClient creates a new Cashfree API client
func NewClient(config Config) *Client {
	if config.BaseURL == "" {
		config.BaseURL = DefaultBaseURL
	}
	if config.Timeout == 0 {
		config.Timeout = DefaultTimeout
	}

	return &Client{
		appID:     config.AppID,
		secretKey: config.SecretKey,
		baseURL:   config.BaseURL,
		httpClient: &http.Client{
			Timeout: config.Timeout,
		},
	}
}

// IsConfigured reports whether gateway credentials are present
func (c *Client) IsConfigured() bool {
	return c.appID != "" && c.secretKey != ""
}

// CustomerDetails identifies the paying customer on an order
type CustomerDetails struct {
	CustomerID    string `json:"customer_id"`
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
	CustomerPhone string `json:"customer_phone"`
}

// OrderMeta carries the URLs the gateway redirects to and notifies on
type OrderMeta struct {
	ReturnURL string `json:"return_url,omitempty"`
	NotifyURL string `json:"notify_url,omitempty"`
}

// CreateOrderRequest represents a request to open an order with the gateway
type CreateOrderRequest struct {
	OrderID         string          `json:"order_id"`
	OrderAmount     float64         `json:"order_amount"`
	OrderCurrency   string          `json:"order_currency"`
	CustomerDetails CustomerDetails `json:"customer_details"`
	OrderMeta       OrderMeta       `json:"order_meta"`
}

// Order represents the gateway's view of an order
type Order struct {
	OrderID          string  `json:"order_id"`
	OrderAmount      float64 `json:"order_amount"`
	OrderCurrency    string  `json:"order_currency"`
	OrderStatus      string  `json:"order_status"` // ACTIVE, PAID, EXPIRED, TERMINATED
	PaymentSessionID string  `json:"payment_session_id"`
	CFOrderID        string  `json:"cf_order_id"`
}

// IsPaid reports whether the gateway has settled the order
func (o *Order) IsPaid() bool {
	return o.OrderStatus == "PAID"
}

// OrderPayment is one payment attempt recorded against an order
type OrderPayment struct {
	CFPaymentID   json.Number `json:"cf_payment_id"`
	PaymentStatus string      `json:"payment_status"` // SUCCESS, FAILED, PENDING
	PaymentGroup  string      `json:"payment_group"`  // upi, credit_card, net_banking...
	PaymentAmount float64     `json:"payment_amount"`
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("x-api-version", APIVersion)
	req.Header.Set("x-client-id", c.appID)
	req.Header.Set("x-client-secret", c.secretKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("gateway returned %d: %s", resp.StatusCode, string(respBody))
	}

	if out != nil {
		if err := json.Unmarshal(respBody, out); err != nil {
			return fmt.Errorf("failed to decode gateway response: %w", err)
		}
	}

	return nil
}

// CreateOrder opens a new order with the gateway and returns its session handle
func (c *Client) CreateOrder(ctx context.Context, req CreateOrderRequest) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodPost, "/orders", req, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrder fetches the authoritative status of an order
func (c *Client) GetOrder(ctx context.Context, orderID string) (*Order, error) {
	var order Order
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID, nil, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

// GetOrderPayments lists payment attempts recorded against an order
func (c *Client) GetOrderPayments(ctx context.Context, orderID string) ([]OrderPayment, error) {
	var payments []OrderPayment
	if err := c.do(ctx, http.MethodGet, "/orders/"+orderID+"/payments", nil, &payments); err != nil {
		return nil, err
	}
	return payments, nil
}

// VerifyWebhookSignature checks the x-webhook-signature header against the
// raw body: base64(HMAC-SHA256(secret, rawBody)). Comparison is constant time.
func (c *Client) VerifyWebhookSignature(rawBody []byte, signature string) bool {
	mac := hmac.New(sha256.New, []byte(c.secretKey))
	mac.Write(rawBody)
	expected := base64.StdEncoding.EncodeToString(mac.Sum(nil))
	return subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
}
