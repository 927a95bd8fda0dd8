package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sejinpark/commercepay/internal/iflog"
)

// IfLogRepository implements iflog.Repository using PostgreSQL. It always
// writes through the pool, never through a caller's transaction, so interface
// log rows survive the rollback of the payment they record.
type IfLogRepository struct {
	pool *pgxpool.Pool
}

// NewIfLogRepository creates a new IfLogRepository.
func NewIfLogRepository(pool *pgxpool.Pool) *IfLogRepository {
	return &IfLogRepository{pool: pool}
}

// Insert writes the request half of an interface log entry and returns its
// sequence number.
func (r *IfLogRepository) Insert(ctx context.Context, e *iflog.Entry) (int64, error) {
	var seq int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO payment_interface_log
		 (pg_type, transaction_type, order_no, payment_no, request_json, traded_at)
		 VALUES ($1,$2,$3,$4,$5,$6)
		 RETURNING seq`,
		string(e.PGType), string(e.TransactionType), e.OrderNo, e.PaymentNo, string(e.RequestJSON), e.TradedAt,
	).Scan(&seq)
	if err != nil {
		return 0, fmt.Errorf("insert interface log: %w", err)
	}
	return seq, nil
}

// UpdateResponse fills in the response half of an entry.
func (r *IfLogRepository) UpdateResponse(ctx context.Context, seq int64, responseJSON []byte, resultCode string) error {
	var code *string
	if resultCode != "" {
		code = &resultCode
	}
	_, err := r.pool.Exec(ctx,
		`UPDATE payment_interface_log SET response_json = $2, result_code = $3 WHERE seq = $1`,
		seq, string(responseJSON), code,
	)
	if err != nil {
		return fmt.Errorf("update interface log %d: %w", seq, err)
	}
	return nil
}
