package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
)

// LedgerRepository implements ledger.Repository using PostgreSQL.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

func (r *LedgerRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// scanner is satisfied by both pgx.Row and pgx.Rows.
type scanner interface {
	Scan(dest ...any) error
}

const ledgerColumns = `payment_no, order_no, entry_type, pg_type, method, amount,
	 tid, approval_no, remaining_refundable, paid_at`

// Insert appends a ledger line. Lines are append-only; there is no update
// path except for the remaining refundable balance.
func (r *LedgerRepository) Insert(ctx context.Context, line *ledger.Line) error {
	var pgType *string
	if line.PGType != nil {
		s := string(*line.PGType)
		pgType = &s
	}
	var tid, approvalNo *string
	if line.ExternalRef != nil {
		tid = &line.ExternalRef.TID
		approvalNo = &line.ExternalRef.ApprovalNo
	}

	_, err := r.db(ctx).Exec(ctx,
		`INSERT INTO payment_ledger
		 (payment_no, order_no, entry_type, pg_type, method, amount,
		  tid, approval_no, remaining_refundable, paid_at)
		 VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		line.PaymentNo, line.OrderNo, string(line.EntryType), pgType, string(line.Method),
		line.Amount, tid, approvalNo, line.RemainingRefundable, line.PaidAt,
	)
	if err != nil {
		return fmt.Errorf("insert ledger line: %w", err)
	}
	return nil
}

// RefundableByOrder returns the order's PAYMENT lines with refundable balance
// left, locked for the duration of the transaction.
func (r *LedgerRepository) RefundableByOrder(ctx context.Context, orderNo string) ([]*ledger.Line, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+ledgerColumns+`
		 FROM payment_ledger
		 WHERE order_no = $1 AND entry_type = 'PAYMENT' AND remaining_refundable > 0
		 ORDER BY payment_no
		 FOR UPDATE`,
		orderNo,
	)
	if err != nil {
		return nil, fmt.Errorf("query refundable lines: %w", err)
	}
	defer rows.Close()

	return collectLines(rows)
}

// UpdateRemainingRefundable sets the remaining refundable balance of a line.
func (r *LedgerRepository) UpdateRemainingRefundable(ctx context.Context, paymentNo int64, remaining int64) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE payment_ledger SET remaining_refundable = $2 WHERE payment_no = $1`,
		paymentNo, remaining,
	)
	if err != nil {
		return fmt.Errorf("update ledger line %d: %w", paymentNo, err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrPaymentNotFound
	}
	return nil
}

// ListByOrder returns every ledger line of an order in payment-number order.
func (r *LedgerRepository) ListByOrder(ctx context.Context, orderNo string) ([]*ledger.Line, error) {
	rows, err := r.db(ctx).Query(ctx,
		`SELECT `+ledgerColumns+`
		 FROM payment_ledger
		 WHERE order_no = $1
		 ORDER BY payment_no`,
		orderNo,
	)
	if err != nil {
		return nil, fmt.Errorf("query ledger lines: %w", err)
	}
	defer rows.Close()

	return collectLines(rows)
}

func collectLines(rows pgx.Rows) ([]*ledger.Line, error) {
	var lines []*ledger.Line
	for rows.Next() {
		line, err := scanLine(rows)
		if err != nil {
			return nil, err
		}
		lines = append(lines, line)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate ledger lines: %w", err)
	}
	return lines, nil
}

func scanLine(s scanner) (*ledger.Line, error) {
	var (
		line       ledger.Line
		entryType  string
		method     string
		pgType     *string
		tid        *string
		approvalNo *string
	)
	err := s.Scan(
		&line.PaymentNo, &line.OrderNo, &entryType, &pgType, &method, &line.Amount,
		&tid, &approvalNo, &line.RemainingRefundable, &line.PaidAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domainErrors.ErrPaymentNotFound
		}
		return nil, fmt.Errorf("scan ledger line: %w", err)
	}

	line.EntryType = ledger.EntryType(entryType)
	line.Method = ledger.Method(method)
	if pgType != nil {
		t := ledger.PGType(*pgType)
		line.PGType = &t
	}
	if tid != nil {
		line.ExternalRef = &ledger.ExternalRef{TID: *tid}
		if approvalNo != nil {
			line.ExternalRef.ApprovalNo = *approvalNo
		}
	}
	return &line, nil
}
