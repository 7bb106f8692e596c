package gateway_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/ariefcatur/go-payment-recon.git/internal/gateway"
)

func TestCreateOrder(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/orders" || r.Method != http.MethodPost {
			t.Errorf("unexpected request: %s %s", r.Method, r.URL.Path)
		}
		user, pass, ok := r.BasicAuth()
		if !ok || user != "key_id" || pass != "key_secret" {
			t.Error("missing or wrong basic auth")
		}
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if req["amount"] != float64(50000) || req["currency"] != "INR" {
			t.Errorf("unexpected body: %v", req)
		}
		if req["payment_capture"] != float64(1) {
			t.Error("auto capture flag not set")
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id": "order_test_1", "amount": 50000, "currency": "INR", "status": "created",
		})
	}))
	defer srv.Close()

	c := gateway.New(srv.URL, "key_id", "key_secret", 2*time.Second)
	id, err := c.CreateOrder(context.Background(), 50000, "INR", "receipt_1")
	if err != nil {
		t.Fatalf("create order: %v", err)
	}
	if id != "order_test_1" {
		t.Errorf("id = %q, want order_test_1", id)
	}
}

func TestCreateOrderProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	c := gateway.New(srv.URL, "key_id", "key_secret", 2*time.Second)
	if _, err := c.CreateOrder(context.Background(), 1000, "INR", ""); err == nil {
		t.Fatal("expected error on 502")
	}
}

func TestCreateOrderEmptyID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"amount": 1000})
	}))
	defer srv.Close()

	c := gateway.New(srv.URL, "key_id", "key_secret", 2*time.Second)
	if _, err := c.CreateOrder(context.Background(), 1000, "INR", ""); err == nil {
		t.Fatal("expected error on missing order id")
	}
}
