package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
)

// OrderRepository implements order.Repository using PostgreSQL.
type OrderRepository struct {
	pool *pgxpool.Pool
}

// NewOrderRepository creates a new OrderRepository.
func NewOrderRepository(pool *pgxpool.Pool) *OrderRepository {
	return &OrderRepository{pool: pool}
}

func (r *OrderRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// OwnerByOrderNo returns the member number that placed the order.
func (r *OrderRepository) OwnerByOrderNo(ctx context.Context, orderNo string) (string, error) {
	var memberNo string
	err := r.db(ctx).QueryRow(ctx,
		`SELECT member_no FROM orders WHERE order_no = $1`,
		orderNo,
	).Scan(&memberNo)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return "", domainErrors.ErrOrderNotFound
		}
		return "", fmt.Errorf("query order owner: %w", err)
	}
	return memberNo, nil
}
