package recon

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	kafkax "github.com/ariefcatur/go-payment-recon.git/internal/kafka"
	"github.com/ariefcatur/go-payment-recon.git/internal/payments"
	"github.com/ariefcatur/go-payment-recon.git/internal/signature"
	"github.com/google/uuid"
	kafkago "github.com/segmentio/kafka-go"
)

// Store is the order persistence contract the engine mutates through.
// CompareAndTransition adalah satu-satunya jalur mutasi.
type Store interface {
	Get(ctx context.Context, id string) (payments.Order, error)
	GetByProviderOrderID(ctx context.Context, providerOrderID string) (payments.Order, error)
	CreatePending(ctx context.Context, o payments.Order) (payments.Order, error)
	CompareAndTransition(ctx context.Context, id string, expected payments.Status, mutate func(*payments.Order)) (payments.Order, error)
}

// Gateway creates orders on the remote payment provider.
type Gateway interface {
	CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (string, error)
}

// Publisher matches kafkax.Producer.Publish.
type Publisher interface {
	Publish(key, value []byte, headers ...kafkago.Header)
}

// Bounded CAS retry sebelum Conflict bocor ke caller.
const maxTransitionRetries = 3

type Engine struct {
	Store          Store
	Gateway        Gateway
	Producer       Publisher // optional; nil = no events
	KeySecret      []byte    // client-path signature secret
	WebhookSecret  []byte    // provider webhook secret (distinct)
	GatewayTimeout time.Duration
	Service        string
}

// VerifyResult is the client-facing outcome of a verification attempt.
// Success=false with nil error is a legitimate negative outcome.
type VerifyResult struct {
	Success   bool
	Message   string
	PaymentID string
	Status    payments.Status
}

// WebhookOutcome: Processed = state advanced (or idempotent repeat of a
// processed event); Ignored = acknowledged without effect (unknown order,
// unknown event type, terminal order).
type WebhookOutcome int

const (
	WebhookProcessed WebhookOutcome = iota
	WebhookIgnored
)

// CreateOrder asks the provider for an order and persists it as PENDING.
// Gateway failure leaves no local record behind, so retrying is safe.
func (e *Engine) CreateOrder(ctx context.Context, amountMinor int64, currency, receipt string) (payments.Order, error) {
	if amountMinor <= 0 {
		return payments.Order{}, fmt.Errorf("%w: amount must be positive", payments.ErrInvalidInput)
	}
	if currency == "" {
		return payments.Order{}, fmt.Errorf("%w: currency required", payments.ErrInvalidInput)
	}
	if receipt == "" {
		receipt = fmt.Sprintf("receipt_%d", time.Now().UnixMilli())
	}

	timeout := e.GatewayTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	gctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	providerOrderID, err := e.Gateway.CreateOrder(gctx, amountMinor, currency, receipt)
	if err != nil {
		return payments.Order{}, fmt.Errorf("%w: %v", payments.ErrGatewayUnavailable, err)
	}

	o, err := e.Store.CreatePending(ctx, payments.Order{
		ID:              uuid.NewString(),
		ProviderOrderID: providerOrderID,
		AmountMinor:     amountMinor,
		Currency:        currency,
		Receipt:         receipt,
	})
	if err != nil {
		return payments.Order{}, err
	}

	e.publish(payments.EventOrderCreated, o.ID, payments.OrderCreatedPayload{
		OrderID:         o.ID,
		ProviderOrderID: o.ProviderOrderID,
		AmountMinor:     o.AmountMinor,
		Currency:        o.Currency,
		Receipt:         o.Receipt,
	})
	return o, nil
}

// VerifyClientPayment checks the client-submitted signature over
// "orderId|paymentId" and advances PENDING -> VERIFIED exactly once.
// Repeat calls return the recorded outcome without re-running the transition.
func (e *Engine) VerifyClientPayment(ctx context.Context, orderID, paymentID, sig string) (VerifyResult, error) {
	o, err := e.Store.Get(ctx, orderID)
	if err != nil {
		return VerifyResult{}, err
	}

	if o.Status != payments.StatusPending {
		return recordedOutcome(o), nil
	}

	payload := []byte(orderID + "|" + paymentID)
	if !signature.Verify(payload, sig, e.KeySecret) {
		// audit counter naik, status tidak berubah
		_, err := e.Store.CompareAndTransition(ctx, orderID, payments.StatusPending, func(o *payments.Order) {
			o.VerificationAttempts++
		})
		if err != nil && !errors.Is(err, payments.ErrConflict) {
			return VerifyResult{}, err
		}
		return VerifyResult{
			Success: false,
			Message: "payment verification failed",
			Status:  o.Status,
		}, nil
	}

	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		updated, err := e.Store.CompareAndTransition(ctx, orderID, payments.StatusPending, func(o *payments.Order) {
			o.Status = payments.StatusVerified
			o.PaymentID = paymentID
			o.VerificationAttempts++
			o.LastEventSource = payments.SourceClient
		})
		if err == nil {
			e.publish(payments.EventPaymentVerified, updated.ID, payments.PaymentVerifiedPayload{
				OrderID:   updated.ID,
				PaymentID: updated.PaymentID,
				Source:    string(payments.SourceClient),
			})
			return VerifyResult{
				Success:   true,
				Message:   "payment verified successfully",
				PaymentID: updated.PaymentID,
				Status:    updated.Status,
			}, nil
		}
		if !errors.Is(err, payments.ErrConflict) {
			return VerifyResult{}, err
		}

		// kalah race (kemungkinan webhook sudah jalan duluan): reload
		o, err = e.Store.Get(ctx, orderID)
		if err != nil {
			return VerifyResult{}, err
		}
		if o.Status != payments.StatusPending {
			return recordedOutcome(o), nil
		}
	}
	return VerifyResult{}, payments.ErrConflict
}

// recordedOutcome maps an already-transitioned order to the idempotent
// verify response.
func recordedOutcome(o payments.Order) VerifyResult {
	switch o.Status {
	case payments.StatusVerified, payments.StatusCaptured:
		return VerifyResult{
			Success:   true,
			Message:   "payment already verified",
			PaymentID: o.PaymentID,
			Status:    o.Status,
		}
	case payments.StatusCancelled:
		return VerifyResult{Success: false, Message: "order cancelled", Status: o.Status}
	default:
		return VerifyResult{Success: false, Message: "payment failed", Status: o.Status}
	}
}

// CancelOrder moves a non-terminal order to CANCELLED. Cancelling an
// already-cancelled order is a no-op.
func (e *Engine) CancelOrder(ctx context.Context, orderID string) (payments.Order, error) {
	for attempt := 0; attempt < maxTransitionRetries; attempt++ {
		o, err := e.Store.Get(ctx, orderID)
		if err != nil {
			return payments.Order{}, err
		}
		if o.Status == payments.StatusCancelled {
			return o, nil
		}
		if o.Status.Terminal() {
			return payments.Order{}, payments.ErrConflict
		}

		updated, err := e.Store.CompareAndTransition(ctx, orderID, o.Status, func(o *payments.Order) {
			o.Status = payments.StatusCancelled
			o.PaymentID = "" // payment id hanya hidup di VERIFIED/CAPTURED
			o.LastEventSource = payments.SourceClient
		})
		if err == nil {
			e.publish(payments.EventOrderCancelled, updated.ID, payments.OrderCancelledPayload{OrderID: updated.ID})
			return updated, nil
		}
		if !errors.Is(err, payments.ErrConflict) {
			return payments.Order{}, err
		}
	}
	return payments.Order{}, payments.ErrConflict
}

func (e *Engine) publish(eventType, orderID string, payload any) {
	if e.Producer == nil {
		return
	}
	ev := payments.Envelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		EventVersion:  1,
		OccurredAt:    time.Now().UTC(),
		Producer:      e.Service,
		CorrelationID: orderID,
		Payload:       kafkax.MustMarshal(payload),
	}
	e.Producer.Publish(payments.PartitionKey(orderID), kafkax.MustMarshal(ev),
		kafkago.Header{Key: "x-event-type", Value: []byte(eventType)},
		kafkago.Header{Key: "x-event-version", Value: []byte("1")},
	)
}

func logIgnored(reason, providerOrderID, event string) {
	log.Printf("webhook ignored: %s (provider_order_id=%s event=%s)", reason, providerOrderID, event)
}
