package httpx

import (
	"errors"
	"io"
	"net/http"

	"github.com/ariefcatur/go-payment-recon.git/internal/payments"
	"github.com/ariefcatur/go-payment-recon.git/internal/recon"
	"github.com/go-chi/chi/v5"
)

const maxWebhookBody = 1 << 20

// WebhookHandler receives provider push notifications. The signature is
// checked over the raw, undecoded body bytes; re-serialized JSON would not
// match the provider's digest.
type WebhookHandler struct {
	Engine *recon.Engine
}

func (h *WebhookHandler) Register(r *chi.Mux) {
	r.Post("/webhook/razorpay", h.handle)
}

func (h *WebhookHandler) handle(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxWebhookBody))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "unreadable body"})
		return
	}

	sig := r.Header.Get("X-Razorpay-Signature")
	_, err = h.Engine.HandleWebhook(r.Context(), body, sig)
	if errors.Is(err, payments.ErrInvalidSignature) {
		writeJSON(w, http.StatusBadRequest, map[string]string{"status": "invalid signature"})
		return
	}
	if err != nil {
		// transient fault; provider akan retry, idempotency menahan duplikat
		writeJSON(w, http.StatusInternalServerError, map[string]string{"status": "error"})
		return
	}

	// processed & ignored keduanya di-ack supaya provider berhenti redeliver
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
