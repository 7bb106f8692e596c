package payments

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Repo struct{ DB *pgxpool.Pool }

const orderColumns = `id, provider_order_id, amount_minor, currency, receipt, status,
	payment_id, verification_attempts, last_event_source, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.ProviderOrderID, &o.AmountMinor, &o.Currency, &o.Receipt,
		&o.Status, &o.PaymentID, &o.VerificationAttempts, &o.LastEventSource,
		&o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrNotFound
	}
	return o, err
}

func (r *Repo) Get(ctx context.Context, id string) (Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM payment_orders WHERE id=$1`, id)
	return scanOrder(row)
}

func (r *Repo) GetByProviderOrderID(ctx context.Context, providerOrderID string) (Order, error) {
	row := r.DB.QueryRow(ctx, `SELECT `+orderColumns+` FROM payment_orders WHERE provider_order_id=$1`, providerOrderID)
	return scanOrder(row)
}

// CreatePending persists a new PENDING order. provider_order_id punya unique
// index; duplikat -> ErrConflict.
func (r *Repo) CreatePending(ctx context.Context, o Order) (Order, error) {
	now := time.Now().UTC()
	o.Status = StatusPending
	o.CreatedAt = now
	o.UpdatedAt = now
	_, err := r.DB.Exec(ctx, `
		INSERT INTO payment_orders(id, provider_order_id, amount_minor, currency, receipt,
			status, payment_id, verification_attempts, last_event_source, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		o.ID, o.ProviderOrderID, o.AmountMinor, o.Currency, o.Receipt,
		o.Status, o.PaymentID, o.VerificationAttempts, o.LastEventSource,
		o.CreatedAt, o.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return Order{}, ErrConflict
		}
		return Order{}, err
	}
	return o, nil
}

// CompareAndTransition applies mutate to the current record and persists it
// only if status masih sama dengan expected. The conditional UPDATE is the
// single synchronization point: kalah race -> ErrConflict, caller reloads.
func (r *Repo) CompareAndTransition(ctx context.Context, id string, expected Status, mutate func(*Order)) (Order, error) {
	o, err := r.Get(ctx, id)
	if err != nil {
		return Order{}, err
	}
	if o.Status != expected {
		return Order{}, ErrConflict
	}

	mutate(&o)
	o.UpdatedAt = time.Now().UTC()

	ct, err := r.DB.Exec(ctx, `
		UPDATE payment_orders
		SET status=$3, payment_id=$4, verification_attempts=$5, last_event_source=$6, updated_at=$7
		WHERE id=$1 AND status=$2`,
		id, expected, o.Status, o.PaymentID, o.VerificationAttempts, o.LastEventSource, o.UpdatedAt,
	)
	if err != nil {
		return Order{}, err
	}
	if ct.RowsAffected() != 1 {
		return Order{}, ErrConflict
	}
	return o, nil
}
