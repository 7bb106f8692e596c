package recon

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/ariefcatur/go-payment-recon.git/internal/payments"
	"github.com/ariefcatur/go-payment-recon.git/internal/signature"
)

// eventKind is the closed set of webhook events the engine acts on.
// Providers add event types over time; everything else maps to eventUnknown
// and is acknowledged without effect.
type eventKind int

const (
	eventUnknown eventKind = iota
	eventPaymentCaptured
	eventPaymentFailed
	eventOrderPaid
)

func parseEventKind(event string) eventKind {
	switch event {
	case "payment.captured":
		return eventPaymentCaptured
	case "payment.failed":
		return eventPaymentFailed
	case "order.paid":
		return eventOrderPaid
	default:
		return eventUnknown
	}
}

// webhookEvent mirrors the provider's envelope. Payment-scoped events carry
// payload.payment.entity, order-scoped events payload.order.entity.
type webhookEvent struct {
	Event   string `json:"event"`
	Payload struct {
		Payment struct {
			Entity struct {
				ID      string `json:"id"`
				OrderID string `json:"order_id"`
			} `json:"entity"`
		} `json:"payment"`
		Order struct {
			Entity struct {
				ID string `json:"id"`
			} `json:"entity"`
		} `json:"order"`
	} `json:"payload"`
}

func (w webhookEvent) providerOrderID() string {
	if id := w.Payload.Payment.Entity.OrderID; id != "" {
		return id
	}
	return w.Payload.Order.Entity.ID
}

// HandleWebhook verifies rawBody against sigHeader with the webhook secret
// and reconciles the referenced order. Verification happens before any JSON
// parsing; a forged payload never reaches the state machine. Events for
// unknown orders are Ignored, not errors: the caller still acks so the
// provider stops redelivering.
func (e *Engine) HandleWebhook(ctx context.Context, rawBody []byte, sigHeader string) (WebhookOutcome, error) {
	if !signature.Verify(rawBody, sigHeader, e.WebhookSecret) {
		return WebhookIgnored, payments.ErrInvalidSignature
	}

	var ev webhookEvent
	if err := json.Unmarshal(rawBody, &ev); err != nil {
		logIgnored("malformed body", "", "")
		return WebhookIgnored, nil
	}

	providerOrderID := ev.providerOrderID()
	if providerOrderID == "" {
		logIgnored("no order reference", "", ev.Event)
		return WebhookIgnored, nil
	}

	o, err := e.Store.GetByProviderOrderID(ctx, providerOrderID)
	if errors.Is(err, payments.ErrNotFound) {
		logIgnored("unknown order", providerOrderID, ev.Event)
		return WebhookIgnored, nil
	}
	if err != nil {
		return WebhookIgnored, err
	}

	paymentID := ev.Payload.Payment.Entity.ID

	switch parseEventKind(ev.Event) {
	case eventPaymentCaptured:
		return e.applyCaptured(ctx, o, paymentID)
	case eventPaymentFailed:
		return e.applyFailed(ctx, o)
	case eventOrderPaid:
		return e.applyOrderPaid(ctx, o, paymentID)
	default:
		logIgnored("unrecognized event type", providerOrderID, ev.Event)
		return WebhookIgnored, nil
	}
}

// applyCaptured: PENDING/VERIFIED -> CAPTURED; repeat deliveries no-op.
func (e *Engine) applyCaptured(ctx context.Context, o payments.Order, paymentID string) (WebhookOutcome, error) {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		switch o.Status {
		case payments.StatusCaptured:
			return WebhookProcessed, nil
		case payments.StatusFailed, payments.StatusCancelled:
			logIgnored("captured after terminal status", o.ProviderOrderID, "payment.captured")
			return WebhookIgnored, nil
		}

		updated, err := e.Store.CompareAndTransition(ctx, o.ID, o.Status, func(o *payments.Order) {
			o.Status = payments.StatusCaptured
			if o.PaymentID == "" {
				o.PaymentID = paymentID
			}
			o.LastEventSource = payments.SourceWebhook
		})
		if err == nil {
			e.publish(payments.EventPaymentCaptured, updated.ID, payments.PaymentCapturedPayload{
				OrderID:     updated.ID,
				PaymentID:   updated.PaymentID,
				AmountMinor: updated.AmountMinor,
			})
			return WebhookProcessed, nil
		}
		if !errors.Is(err, payments.ErrConflict) {
			return WebhookIgnored, err
		}
		if o, err = e.Store.Get(ctx, o.ID); err != nil {
			return WebhookIgnored, err
		}
	}
	return WebhookIgnored, payments.ErrConflict
}

// applyFailed: any non-terminal -> FAILED; repeat failed deliveries no-op.
func (e *Engine) applyFailed(ctx context.Context, o payments.Order) (WebhookOutcome, error) {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		switch o.Status {
		case payments.StatusFailed:
			return WebhookProcessed, nil
		case payments.StatusCaptured, payments.StatusCancelled:
			logIgnored("failed after terminal status", o.ProviderOrderID, "payment.failed")
			return WebhookIgnored, nil
		}

		updated, err := e.Store.CompareAndTransition(ctx, o.ID, o.Status, func(o *payments.Order) {
			o.Status = payments.StatusFailed
			o.PaymentID = "" // payment id hanya hidup di VERIFIED/CAPTURED
			o.LastEventSource = payments.SourceWebhook
		})
		if err == nil {
			e.publish(payments.EventPaymentFailed, updated.ID, payments.PaymentFailedPayload{
				OrderID: updated.ID,
				Reason:  "PROVIDER_FAILED",
			})
			return WebhookProcessed, nil
		}
		if !errors.Is(err, payments.ErrConflict) {
			return WebhookIgnored, err
		}
		if o, err = e.Store.Get(ctx, o.ID); err != nil {
			return WebhookIgnored, err
		}
	}
	return WebhookIgnored, payments.ErrConflict
}

// applyOrderPaid: informational; advances PENDING -> VERIFIED when the
// webhook beats the client confirmation call. paymentID only set when the
// event payload supplies one.
func (e *Engine) applyOrderPaid(ctx context.Context, o payments.Order, paymentID string) (WebhookOutcome, error) {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		if o.Status != payments.StatusPending {
			return WebhookProcessed, nil
		}

		updated, err := e.Store.CompareAndTransition(ctx, o.ID, payments.StatusPending, func(o *payments.Order) {
			o.Status = payments.StatusVerified
			if paymentID != "" && o.PaymentID == "" {
				o.PaymentID = paymentID
			}
			o.LastEventSource = payments.SourceWebhook
		})
		if err == nil {
			e.publish(payments.EventPaymentVerified, updated.ID, payments.PaymentVerifiedPayload{
				OrderID:   updated.ID,
				PaymentID: updated.PaymentID,
				Source:    string(payments.SourceWebhook),
			})
			return WebhookProcessed, nil
		}
		if !errors.Is(err, payments.ErrConflict) {
			return WebhookIgnored, err
		}
		if o, err = e.Store.Get(ctx, o.ID); err != nil {
			return WebhookIgnored, err
		}
	}
	return WebhookIgnored, payments.ErrConflict
}
