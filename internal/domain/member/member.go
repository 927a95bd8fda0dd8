package member

import "context"

// Repository is the persistence port for member point balances.
type Repository interface {
	// PointBalance returns the member's current point balance.
	PointBalance(ctx context.Context, memberNo string) (int64, error)
	// AdjustPoints adds delta (positive or negative) to the member's balance.
	AdjustPoints(ctx context.Context, memberNo string, delta int64) error
}
