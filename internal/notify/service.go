package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"log"

	kafkax "github.com/ariefcatur/go-payment-recon.git/internal/kafka"
	"github.com/ariefcatur/go-payment-recon.git/internal/payments"
	"github.com/ariefcatur/go-payment-recon.git/internal/redisx"
	"github.com/redis/go-redis/v9"
	kafkago "github.com/segmentio/kafka-go"
)

// Service fans reconciliation events out to the Redis status cache so GET
// reads stay warm without hitting Postgres. Terminal events are also the
// hook point for receipts/notifications.
type Service struct {
	Redis       *redis.Client
	ServiceName string
}

// HandlePaymentEvent: dipasang sebagai handler consumer.
func (s *Service) HandlePaymentEvent(ctx context.Context, m kafkago.Message) error {
	// 1) decode envelope
	var env payments.Envelope
	if err := json.Unmarshal(m.Value, &env); err != nil {
		return err
	}

	// 2) dedup via Redis (pakai event_id)
	dkey := fmt.Sprintf(redisx.KeyDedup, "notify", env.EventID)
	exists, _ := redisx.Exists(ctx, s.Redis, dkey)
	if exists {
		return nil
	}
	_ = s.Redis.Set(ctx, dkey, "1", redisx.TTLDedup).Err()

	switch env.EventType {
	case payments.EventOrderCreated:
		p, err := kafkax.UnwrapPayload[payments.OrderCreatedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.cache(ctx, p.OrderID, payments.StatusPending, "")

	case payments.EventPaymentVerified:
		p, err := kafkax.UnwrapPayload[payments.PaymentVerifiedPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.cache(ctx, p.OrderID, payments.StatusVerified, p.PaymentID)

	case payments.EventPaymentCaptured:
		p, err := kafkax.UnwrapPayload[payments.PaymentCapturedPayload](env.Payload)
		if err != nil {
			return err
		}
		log.Printf("payment captured: order=%s payment=%s amount=%d", p.OrderID, p.PaymentID, p.AmountMinor)
		return s.cache(ctx, p.OrderID, payments.StatusCaptured, p.PaymentID)

	case payments.EventPaymentFailed:
		p, err := kafkax.UnwrapPayload[payments.PaymentFailedPayload](env.Payload)
		if err != nil {
			return err
		}
		log.Printf("payment failed: order=%s reason=%s", p.OrderID, p.Reason)
		return s.cache(ctx, p.OrderID, payments.StatusFailed, "")

	case payments.EventOrderCancelled:
		p, err := kafkax.UnwrapPayload[payments.OrderCancelledPayload](env.Payload)
		if err != nil {
			return err
		}
		return s.cache(ctx, p.OrderID, payments.StatusCancelled, "")
	}

	// event type baru: skip saja
	return nil
}

func (s *Service) cache(ctx context.Context, orderID string, status payments.Status, paymentID string) error {
	body := map[string]any{"order_id": orderID, "status": status}
	if paymentID != "" {
		body["payment_id"] = paymentID
	}
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	key := fmt.Sprintf(redisx.KeyOrderStatus, orderID)
	return s.Redis.Set(ctx, key, b, redisx.TTLStatusCache).Err()
}
