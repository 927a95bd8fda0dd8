package ledger

import "context"

// Repository is the persistence port for ledger lines.
type Repository interface {
	// Insert appends a new ledger line.
	Insert(ctx context.Context, line *Line) error
	// RefundableByOrder returns the order's PAYMENT lines that still have
	// refundable balance, in payment-number order.
	RefundableByOrder(ctx context.Context, orderNo string) ([]*Line, error)
	// UpdateRemainingRefundable sets the remaining refundable balance of a
	// PAYMENT line.
	UpdateRemainingRefundable(ctx context.Context, paymentNo int64, remaining int64) error
	// ListByOrder returns every ledger line of an order.
	ListByOrder(ctx context.Context, orderNo string) ([]*Line, error)
}

// Sequence hands out payment numbers. Numbers are unique and monotonically
// increasing; a number is never reused, even across failed attempts.
type Sequence interface {
	NextPaymentNo(ctx context.Context) (int64, error)
}
