package httpx

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/ariefcatur/go-payment-recon.git/internal/payments"
	"github.com/ariefcatur/go-payment-recon.git/internal/recon"
	"github.com/ariefcatur/go-payment-recon.git/internal/redisx"
	"github.com/go-chi/chi/v5"
	"github.com/redis/go-redis/v9"
)

type PaymentsHandler struct {
	Engine       *recon.Engine
	Redis        *redis.Client
	GatewayKeyID string // public key id, exposed via /payments/config
}

type CreateOrderReq struct {
	Amount   int64  `json:"amount"` // minor units (paise)
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

type CreateOrderResp struct {
	OrderID         string `json:"order_id"`
	ProviderOrderID string `json:"provider_order_id"`
	Amount          int64  `json:"amount"`
	Currency        string `json:"currency"`
}

type VerifyPaymentReq struct {
	OrderID   string `json:"order_id"`
	PaymentID string `json:"payment_id"`
	Signature string `json:"signature"`
}

type VerifyPaymentResp struct {
	Success   bool   `json:"success"`
	Message   string `json:"message"`
	PaymentID string `json:"paymentId,omitempty"`
}

func (h *PaymentsHandler) Register(r *chi.Mux) {
	r.Post("/payments/orders", h.createOrder)
	r.Post("/payments/verify", h.verifyPayment)
	r.Post("/payments/orders/{id}/cancel", h.cancelOrder)
	r.Get("/payments/orders/{id}", h.getOrder)
	r.Get("/payments/config", h.getConfig)
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

func (h *PaymentsHandler) createOrder(w http.ResponseWriter, r *http.Request) {
	var req CreateOrderReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 10*time.Second)
	defer cancel()

	o, err := h.Engine.CreateOrder(ctx, req.Amount, req.Currency, req.Receipt)
	switch {
	case errors.Is(err, payments.ErrInvalidInput):
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	case errors.Is(err, payments.ErrGatewayUnavailable):
		writeJSON(w, http.StatusBadGateway, map[string]string{"error": "payment gateway unavailable"})
		return
	case errors.Is(err, payments.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "duplicate provider order"})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	// shortcut idempotency per receipt + cache status (DB tetap kebenaran)
	idemKey := fmt.Sprintf(redisx.KeyIdemOrderCreate, o.Receipt)
	_ = h.Redis.Set(ctx, idemKey, o.ID, redisx.TTLIdempotency).Err()
	h.cacheStatus(ctx, o)

	writeJSON(w, http.StatusCreated, CreateOrderResp{
		OrderID:         o.ID,
		ProviderOrderID: o.ProviderOrderID,
		Amount:          o.AmountMinor,
		Currency:        o.Currency,
	})
}

func (h *PaymentsHandler) verifyPayment(w http.ResponseWriter, r *http.Request) {
	var req VerifyPaymentReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid json"})
		return
	}
	if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing fields"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	res, err := h.Engine.VerifyClientPayment(ctx, req.OrderID, req.PaymentID, req.Signature)
	switch {
	case errors.Is(err, payments.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	case errors.Is(err, payments.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "transition conflict, retry"})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	code := http.StatusOK
	if !res.Success {
		code = http.StatusBadRequest
	}
	writeJSON(w, code, VerifyPaymentResp{
		Success:   res.Success,
		Message:   res.Message,
		PaymentID: res.PaymentID,
	})
}

func (h *PaymentsHandler) cancelOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	o, err := h.Engine.CancelOrder(ctx, orderID)
	switch {
	case errors.Is(err, payments.ErrNotFound):
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "order not found"})
		return
	case errors.Is(err, payments.ErrConflict):
		writeJSON(w, http.StatusConflict, map[string]string{"error": "order already terminal"})
		return
	case err != nil:
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}

	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, map[string]any{"order_id": o.ID, "status": o.Status})
}

func (h *PaymentsHandler) getOrder(w http.ResponseWriter, r *http.Request) {
	orderID := chi.URLParam(r, "id")
	if orderID == "" {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing id"})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	// 1) coba cache
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	if s, err := h.Redis.Get(ctx, key).Result(); err == nil && s != "" {
		writeJSON(w, http.StatusOK, json.RawMessage(s))
		return
	}

	// 2) fallback DB
	o, err := h.Engine.Store.Get(ctx, orderID)
	if errors.Is(err, payments.ErrNotFound) {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "not found"})
		return
	}
	if err != nil {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": err.Error()})
		return
	}
	h.cacheStatus(ctx, o)
	writeJSON(w, http.StatusOK, statusBody(o))
}

func (h *PaymentsHandler) getConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"keyId": h.GatewayKeyID})
}

func statusBody(o payments.Order) map[string]any {
	return map[string]any{
		"order_id":          o.ID,
		"provider_order_id": o.ProviderOrderID,
		"status":            o.Status,
		"payment_id":        o.PaymentID,
	}
}

func (h *PaymentsHandler) cacheStatus(ctx context.Context, o payments.Order) {
	key := fmt.Sprintf(redisx.KeyOrderStatus, o.ID)
	b, _ := json.Marshal(statusBody(o))
	_ = h.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}
