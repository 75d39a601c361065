package cashfree

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
)

func testClient(baseURL string) *Client {
	return NewClient(Config{
		AppID:     "test-app-id",
		SecretKey: "test-secret-key",
		BaseURL:   baseURL,
	})
}

func sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

func TestVerifyWebhookSignature(t *testing.T) {
	client := testClient("")
	body := []byte(`{"data":{"order":{"order_id":"order_1_abc"}},"type":"PAYMENT_SUCCESS_WEBHOOK"}`)

	if !client.VerifyWebhookSignature(body, sign("test-secret-key", body)) {
		t.Error("expected valid signature to verify")
	}

	if client.VerifyWebhookSignature(body, sign("wrong-secret", body)) {
		t.Error("expected signature from wrong secret to fail")
	}

	if client.VerifyWebhookSignature(body, "") {
		t.Error("expected empty signature to fail")
	}

	// Any tampering with the raw body must invalidate the signature
	tampered := append([]byte{}, body...)
	tampered[10] = 'X'
	if client.VerifyWebhookSignature(tampered, sign("test-secret-key", body)) {
		t.Error("expected tampered body to fail verification")
	}
}

func TestIsConfigured(t *testing.T) {
	if !testClient("").IsConfigured() {
		t.Error("expected client with credentials to be configured")
	}
	if NewClient(Config{}).IsConfigured() {
		t.Error("expected client without credentials to be unconfigured")
	}
}

func TestCreateOrder(t *testing.T) {
	var gotAuthHeaders struct {
		clientID, clientSecret, apiVersion string
	}
	var gotReq CreateOrderRequest

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/orders" {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		gotAuthHeaders.clientID = r.Header.Get("x-client-id")
		gotAuthHeaders.clientSecret = r.Header.Get("x-client-secret")
		gotAuthHeaders.apiVersion = r.Header.Get("x-api-version")

		if err := json.NewDecoder(r.Body).Decode(&gotReq); err != nil {
			t.Fatalf("failed to decode request body: %v", err)
		}

		json.NewEncoder(w).Encode(Order{
			OrderID:          gotReq.OrderID,
			OrderAmount:      gotReq.OrderAmount,
			OrderStatus:      "ACTIVE",
			PaymentSessionID: "session_xyz",
		})
	}))
	defer ts.Close()

	client := testClient(ts.URL)
	order, err := client.CreateOrder(context.Background(), CreateOrderRequest{
		OrderID:       "order_1_abc",
		OrderAmount:   999,
		OrderCurrency: "INR",
	})
	if err != nil {
		t.Fatalf("CreateOrder failed: %v", err)
	}

	if gotAuthHeaders.clientID != "test-app-id" || gotAuthHeaders.clientSecret != "test-secret-key" {
		t.Error("expected credentials to be sent as headers")
	}
	if gotAuthHeaders.apiVersion != APIVersion {
		t.Errorf("expected api version %s, got %s", APIVersion, gotAuthHeaders.apiVersion)
	}
	if order.PaymentSessionID != "session_xyz" {
		t.Errorf("expected session handle, got %q", order.PaymentSessionID)
	}
	if order.IsPaid() {
		t.Error("ACTIVE order must not report as paid")
	}
}

func TestGetOrderError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"message":"order not found"}`))
	}))
	defer ts.Close()

	if _, err := testClient(ts.URL).GetOrder(context.Background(), "order_missing"); err == nil {
		t.Fatal("expected error for non-2xx response")
	}
}

func TestGetOrderPayments(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/orders/order_1_abc/payments" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`[{"cf_payment_id":5114917,"payment_status":"SUCCESS","payment_group":"upi","payment_amount":999}]`))
	}))
	defer ts.Close()

	payments, err := testClient(ts.URL).GetOrderPayments(context.Background(), "order_1_abc")
	if err != nil {
		t.Fatalf("GetOrderPayments failed: %v", err)
	}
	if len(payments) != 1 {
		t.Fatalf("expected 1 payment, got %d", len(payments))
	}
	// cf_payment_id arrives as a bare number on the wire
	if payments[0].CFPaymentID.String() != "5114917" {
		t.Errorf("expected cf_payment_id 5114917, got %s", payments[0].CFPaymentID.String())
	}
	if payments[0].PaymentGroup != "upi" {
		t.Errorf("expected payment_group upi, got %s", payments[0].PaymentGroup)
	}
}
