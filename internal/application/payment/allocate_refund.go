package payment

import (
	"context"
	"fmt"
	"sort"

	"github.com/rs/zerolog"

	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
	"github.com/sejinpark/commercepay/internal/infrastructure/observability"
	"github.com/sejinpark/commercepay/internal/strategy"
)

// Allocator spreads a refund amount across an order's refundable payment
// lines, card lines first. The whole allocation runs in one transaction, so
// a provider rejection or a shortfall leaves the ledger untouched.
type Allocator struct {
	ledgerRepo ledger.Repository
	seq        ledger.Sequence
	strategies *strategy.Registry
	txManager  TransactionManager
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

func NewAllocator(
	ledgerRepo ledger.Repository,
	seq ledger.Sequence,
	strategies *strategy.Registry,
	txManager TransactionManager,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Allocator {
	return &Allocator{
		ledgerRepo: ledgerRepo,
		seq:        seq,
		strategies: strategies,
		txManager:  txManager,
		metrics:    metrics,
		logger:     logger,
	}
}

// AllocateRefund refunds amount against the order's remaining refundable
// balance. Card lines are consumed before point lines; within a method, the
// repository's payment-number order decides.
func (a *Allocator) AllocateRefund(ctx context.Context, orderNo string, amount int64) error {
	if amount <= 0 {
		return fmt.Errorf("refund amount %d: %w", amount, domainErrors.ErrInvalidAmount)
	}

	a.logger.Info().Str("order_no", orderNo).Int64("amount", amount).Msg("allocating refund")

	err := a.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return a.allocate(txCtx, orderNo, amount)
	})
	if err != nil {
		a.metrics.RefundsTotal.WithLabelValues("failed").Inc()
		a.logger.Error().Err(err).Str("order_no", orderNo).Msg("refund allocation failed")
		return err
	}

	a.metrics.RefundsTotal.WithLabelValues("completed").Inc()
	a.logger.Info().Str("order_no", orderNo).Int64("amount", amount).Msg("refund allocated")
	return nil
}

func (a *Allocator) allocate(ctx context.Context, orderNo string, amount int64) error {
	rows, err := a.ledgerRepo.RefundableByOrder(ctx, orderNo)
	if err != nil {
		return fmt.Errorf("load refundable lines: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("order %s has no refundable payments: %w", orderNo, domainErrors.ErrPaymentNotFound)
	}

	// Card lines first so external money returns before points do.
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Method == ledger.MethodCard && rows[j].Method != ledger.MethodCard
	})

	remaining := amount
	for _, row := range rows {
		if remaining == 0 {
			break
		}
		consume := min(remaining, row.RemainingRefundable)
		if consume == 0 {
			continue
		}

		strat, err := a.strategies.Get(row.Method)
		if err != nil {
			return err
		}

		refundNo, err := a.seq.NextPaymentNo(ctx)
		if err != nil {
			return fmt.Errorf("assign refund number: %w", err)
		}
		refundLine, err := ledger.NewRefundLine(refundNo, row, consume)
		if err != nil {
			return err
		}
		if err := row.Consume(consume); err != nil {
			return err
		}

		if err := strat.Refund(ctx, row, consume, row.RemainingRefundable); err != nil {
			return fmt.Errorf("refund payment %d: %w", row.PaymentNo, err)
		}

		if err := a.ledgerRepo.Insert(ctx, refundLine); err != nil {
			return fmt.Errorf("persist refund %d: %w", refundNo, err)
		}
		if err := a.ledgerRepo.UpdateRemainingRefundable(ctx, row.PaymentNo, row.RemainingRefundable); err != nil {
			return fmt.Errorf("update payment %d: %w", row.PaymentNo, err)
		}

		a.logger.Debug().Int64("payment_no", row.PaymentNo).Str("method", string(row.Method)).Int64("amount", consume).Msg("refund line committed")
		remaining -= consume
	}

	if remaining > 0 {
		return fmt.Errorf("order %s: %d of %d unallocatable: %w",
			orderNo, remaining, amount, domainErrors.ErrInsufficientRefundable)
	}
	return nil
}
