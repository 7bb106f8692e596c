package payments

import "errors"

var (
	ErrNotFound           = errors.New("order not found")
	ErrConflict           = errors.New("order transition conflict")
	ErrInvalidSignature   = errors.New("invalid webhook signature")
	ErrGatewayUnavailable = errors.New("payment gateway unavailable")
	ErrInvalidInput       = errors.New("invalid input")
)
