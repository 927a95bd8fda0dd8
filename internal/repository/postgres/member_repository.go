package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
)

// MemberRepository implements member.Repository using PostgreSQL.
type MemberRepository struct {
	pool *pgxpool.Pool
}

// NewMemberRepository creates a new MemberRepository.
func NewMemberRepository(pool *pgxpool.Pool) *MemberRepository {
	return &MemberRepository{pool: pool}
}

func (r *MemberRepository) db(ctx context.Context) DBTX {
	return ConnFromCtx(ctx, r.pool)
}

// PointBalance returns the member's point balance, locking the row so a
// concurrent debit cannot slip between the read and the adjustment.
func (r *MemberRepository) PointBalance(ctx context.Context, memberNo string) (int64, error) {
	var balance int64
	err := r.db(ctx).QueryRow(ctx,
		`SELECT point_balance FROM members WHERE member_no = $1 FOR UPDATE`,
		memberNo,
	).Scan(&balance)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, domainErrors.ErrMemberNotFound
		}
		return 0, fmt.Errorf("query point balance: %w", err)
	}
	return balance, nil
}

// AdjustPoints applies delta to the member's point balance. Negative deltas
// debit; the balance check belongs to the caller.
func (r *MemberRepository) AdjustPoints(ctx context.Context, memberNo string, delta int64) error {
	tag, err := r.db(ctx).Exec(ctx,
		`UPDATE members SET point_balance = point_balance + $2, updated_at = now()
		 WHERE member_no = $1`,
		memberNo, delta,
	)
	if err != nil {
		return fmt.Errorf("adjust points: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domainErrors.ErrMemberNotFound
	}
	return nil
}
