package payments

import "time"

type Order struct {
	ID                   string
	ProviderOrderID      string
	AmountMinor          int64 // smallest currency unit (e.g. paise)
	Currency             string
	Receipt              string
	Status               Status // lihat status.go
	PaymentID            string
	VerificationAttempts int
	LastEventSource      EventSource
	CreatedAt            time.Time
	UpdatedAt            time.Time
}
