package httpx_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ariefcatur/go-payment-recon.git/internal/httpx"
	"github.com/ariefcatur/go-payment-recon.git/internal/payments"
	"github.com/ariefcatur/go-payment-recon.git/internal/recon"
	"github.com/ariefcatur/go-payment-recon.git/internal/signature"
)

var webhookSecret = []byte("webhook-secret")

// stubStore serves a single order; CAS respects the expected status.
type stubStore struct {
	order payments.Order
}

func (s *stubStore) Get(_ context.Context, id string) (payments.Order, error) {
	if id == s.order.ID {
		return s.order, nil
	}
	return payments.Order{}, payments.ErrNotFound
}

func (s *stubStore) GetByProviderOrderID(_ context.Context, pid string) (payments.Order, error) {
	if pid == s.order.ProviderOrderID {
		return s.order, nil
	}
	return payments.Order{}, payments.ErrNotFound
}

func (s *stubStore) CreatePending(_ context.Context, o payments.Order) (payments.Order, error) {
	return o, nil
}

func (s *stubStore) CompareAndTransition(_ context.Context, id string, expected payments.Status, mutate func(*payments.Order)) (payments.Order, error) {
	if id != s.order.ID {
		return payments.Order{}, payments.ErrNotFound
	}
	if s.order.Status != expected {
		return payments.Order{}, payments.ErrConflict
	}
	mutate(&s.order)
	return s.order, nil
}

func newWebhookServer(store recon.Store) *chiServer {
	engine := &recon.Engine{Store: store, WebhookSecret: webhookSecret}
	r := httpx.NewRouter()
	(&httpx.WebhookHandler{Engine: engine}).Register(r)
	return &chiServer{srv: httptest.NewServer(r)}
}

type chiServer struct{ srv *httptest.Server }

func (c *chiServer) post(t *testing.T, body []byte, sig string) (*http.Response, map[string]string) {
	t.Helper()
	req, err := http.NewRequest(http.MethodPost, c.srv.URL+"/webhook/razorpay", bytes.NewReader(body))
	if err != nil {
		t.Fatal(err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sig != "" {
		req.Header.Set("X-Razorpay-Signature", sig)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	var out map[string]string
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestWebhookEndpointValidSignature(t *testing.T) {
	store := &stubStore{order: payments.Order{
		ID:              "ord_1",
		ProviderOrderID: "order_prov_1",
		Status:          payments.StatusPending,
	}}
	s := newWebhookServer(store)
	defer s.srv.Close()

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_prov_1"}}}}`)
	resp, out := s.post(t, body, signature.Sign(body, webhookSecret))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	if out["status"] != "ok" {
		t.Errorf("body status = %q, want ok", out["status"])
	}
	if store.order.Status != payments.StatusCaptured {
		t.Errorf("order status = %s, want CAPTURED", store.order.Status)
	}
}

func TestWebhookEndpointTamperedSignature(t *testing.T) {
	store := &stubStore{order: payments.Order{
		ID:              "ord_1",
		ProviderOrderID: "order_prov_1",
		Status:          payments.StatusPending,
	}}
	s := newWebhookServer(store)
	defer s.srv.Close()

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_1","order_id":"order_prov_1"}}}}`)
	resp, out := s.post(t, body, signature.Sign(body, []byte("wrong-secret")))
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
	if out["status"] != "invalid signature" {
		t.Errorf("body status = %q, want invalid signature", out["status"])
	}
	if store.order.Status != payments.StatusPending {
		t.Errorf("forged webhook mutated order: %s", store.order.Status)
	}
}

func TestWebhookEndpointUnknownOrderAcked(t *testing.T) {
	store := &stubStore{order: payments.Order{
		ID:              "ord_1",
		ProviderOrderID: "order_prov_1",
		Status:          payments.StatusPending,
	}}
	s := newWebhookServer(store)
	defer s.srv.Close()

	body := []byte(`{"event":"payment.captured","payload":{"payment":{"entity":{"id":"pay_9","order_id":"order_unknown"}}}}`)
	resp, out := s.post(t, body, signature.Sign(body, webhookSecret))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200 (provider must stop retrying)", resp.StatusCode)
	}
	if out["status"] != "ok" {
		t.Errorf("body status = %q, want ok", out["status"])
	}
	if store.order.Status != payments.StatusPending {
		t.Errorf("unknown-order webhook mutated local order: %s", store.order.Status)
	}
}

func TestWebhookEndpointMissingSignature(t *testing.T) {
	s := newWebhookServer(&stubStore{})
	defer s.srv.Close()

	body := []byte(`{"event":"payment.captured"}`)
	resp, _ := s.post(t, body, "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", resp.StatusCode)
	}
}
