package order

import "context"

// Repository exposes the order lookups the payment engine needs. Order CRUD
// itself lives elsewhere.
type Repository interface {
	// OwnerByOrderNo returns the member number that owns the order.
	OwnerByOrderNo(ctx context.Context, orderNo string) (string, error)
}
