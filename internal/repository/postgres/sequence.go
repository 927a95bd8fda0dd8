package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
)

// PaymentSequence hands out payment numbers from a database sequence. The
// sequence never rolls back, so numbers burned by a failed attempt are gone
// for good and reruns get fresh ones.
type PaymentSequence struct {
	pool *pgxpool.Pool
}

// NewPaymentSequence creates a new PaymentSequence.
func NewPaymentSequence(pool *pgxpool.Pool) *PaymentSequence {
	return &PaymentSequence{pool: pool}
}

// NextPaymentNo returns the next payment number.
func (s *PaymentSequence) NextPaymentNo(ctx context.Context) (int64, error) {
	var no int64
	err := ConnFromCtx(ctx, s.pool).QueryRow(ctx,
		`SELECT nextval('payment_no_seq')`,
	).Scan(&no)
	if err != nil {
		return 0, fmt.Errorf("next payment no: %w", err)
	}
	return no, nil
}
