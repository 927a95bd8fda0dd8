package strategy

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
	"github.com/sejinpark/commercepay/internal/domain/member"
	"github.com/sejinpark/commercepay/internal/domain/order"
)

// PointStrategy pays with the member's point balance. The debit happens in
// the caller's transaction, so a rollback restores the balance on its own and
// no compensation is ever needed.
type PointStrategy struct {
	members member.Repository
	orders  order.Repository
	logger  zerolog.Logger
}

func NewPointStrategy(members member.Repository, orders order.Repository, logger zerolog.Logger) *PointStrategy {
	return &PointStrategy{members: members, orders: orders, logger: logger}
}

func (s *PointStrategy) Method() ledger.Method { return ledger.MethodPoint }

func (s *PointStrategy) Approve(ctx context.Context, orderCtx OrderContext, req LineRequest) (*Outcome, error) {
	balance, err := s.members.PointBalance(ctx, orderCtx.MemberNo)
	if err != nil {
		return nil, err
	}
	if balance < req.Amount {
		return nil, fmt.Errorf("member %s has %d points, needs %d: %w",
			orderCtx.MemberNo, balance, req.Amount, domainErrors.ErrInsufficientPoints)
	}

	if err := s.members.AdjustPoints(ctx, orderCtx.MemberNo, -req.Amount); err != nil {
		return nil, err
	}

	line, err := ledger.NewPaymentLine(req.PaymentNo, orderCtx.OrderNo, nil, ledger.MethodPoint, req.Amount, nil)
	if err != nil {
		return nil, err
	}

	s.logger.Debug().Str("member_no", orderCtx.MemberNo).Int64("amount", req.Amount).Msg("points debited")
	return &Outcome{Line: line, OK: true, NeedsCompensation: false}, nil
}

// Compensate is intentionally a no-op: the point debit lives inside the local
// transaction and rolls back with it.
func (s *PointStrategy) Compensate(ctx context.Context, out *Outcome) error {
	return nil
}

// Refund restores points to the order's owner, looked up from the order
// rather than trusted from the caller.
func (s *PointStrategy) Refund(ctx context.Context, line *ledger.Line, amount, newRemaining int64) error {
	memberNo, err := s.orders.OwnerByOrderNo(ctx, line.OrderNo)
	if err != nil {
		return err
	}

	if err := s.members.AdjustPoints(ctx, memberNo, amount); err != nil {
		return err
	}

	s.logger.Info().Str("member_no", memberNo).Int64("amount", amount).Str("order_no", line.OrderNo).Msg("points restored")
	return nil
}
