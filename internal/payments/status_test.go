package payments_test

import (
	"testing"

	"github.com/ariefcatur/go-payment-recon.git/internal/payments"
)

func TestCanTransition(t *testing.T) {
	cases := []struct {
		from, to payments.Status
		want     bool
	}{
		{payments.StatusPending, payments.StatusVerified, true},
		{payments.StatusPending, payments.StatusCaptured, true},
		{payments.StatusPending, payments.StatusFailed, true},
		{payments.StatusPending, payments.StatusCancelled, true},
		{payments.StatusVerified, payments.StatusCaptured, true},
		{payments.StatusVerified, payments.StatusFailed, true},
		{payments.StatusVerified, payments.StatusCancelled, true},
		{payments.StatusVerified, payments.StatusPending, false},
		{payments.StatusCaptured, payments.StatusFailed, false},
		{payments.StatusCaptured, payments.StatusPending, false},
		{payments.StatusFailed, payments.StatusVerified, false},
		{payments.StatusCancelled, payments.StatusPending, false},
	}
	for _, c := range cases {
		if got := payments.CanTransition(c.from, c.to); got != c.want {
			t.Errorf("CanTransition(%s, %s) = %v, want %v", c.from, c.to, got, c.want)
		}
	}
}

func TestTerminal(t *testing.T) {
	terminal := map[payments.Status]bool{
		payments.StatusPending:   false,
		payments.StatusVerified:  false,
		payments.StatusCaptured:  true,
		payments.StatusFailed:    true,
		payments.StatusCancelled: true,
	}
	for s, want := range terminal {
		if got := s.Terminal(); got != want {
			t.Errorf("%s.Terminal() = %v, want %v", s, got, want)
		}
	}
}
