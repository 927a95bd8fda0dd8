package payment

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
	"github.com/sejinpark/commercepay/internal/infrastructure/observability"
	"github.com/sejinpark/commercepay/internal/strategy"
	"github.com/sejinpark/commercepay/pkg/journal"
)

// Orchestrator drives the approval of an order's payment lines and reverses
// already-approved lines when the order cannot be completed.
type Orchestrator struct {
	ledgerRepo ledger.Repository
	seq        ledger.Sequence
	strategies *strategy.Registry
	txManager  TransactionManager
	metrics    *observability.Metrics
	logger     zerolog.Logger
}

func NewOrchestrator(
	ledgerRepo ledger.Repository,
	seq ledger.Sequence,
	strategies *strategy.Registry,
	txManager TransactionManager,
	metrics *observability.Metrics,
	logger zerolog.Logger,
) *Orchestrator {
	return &Orchestrator{
		ledgerRepo: ledgerRepo,
		seq:        seq,
		strategies: strategies,
		txManager:  txManager,
		metrics:    metrics,
		logger:     logger,
	}
}

// ProcessPayments approves the order's payment lines in the given sequence
// inside one transaction. Any failure aborts the whole order: local effects
// roll back with the transaction, and every approval that had an external
// effect is net-cancelled best effort. Failures surface as a single
// ErrApprovalFailed, except misconfigured lines and an unavailable gateway,
// which come back as their own sentinel errors.
func (o *Orchestrator) ProcessPayments(ctx context.Context, order strategy.OrderContext, reqs []strategy.LineRequest) error {
	if len(reqs) == 0 {
		return fmt.Errorf("order %s has no payment lines: %w", order.OrderNo, domainErrors.ErrInvalidInput)
	}

	o.logger.Info().Str("order_no", order.OrderNo).Int("line_count", len(reqs)).Msg("processing payments")

	start := time.Now()
	jrnl := journal.New(order.OrderNo)

	err := o.txManager.WithTransaction(ctx, func(txCtx context.Context) error {
		return o.approveAll(txCtx, order, reqs, jrnl)
	})
	if err == nil {
		o.metrics.PaymentsTotal.WithLabelValues("completed").Inc()
		o.metrics.PaymentDuration.WithLabelValues("completed").Observe(time.Since(start).Seconds())
		o.logger.Info().Str("order_no", order.OrderNo).Msg("payments processed")
		return nil
	}

	o.metrics.PaymentsTotal.WithLabelValues("failed").Inc()
	o.metrics.PaymentDuration.WithLabelValues("failed").Observe(time.Since(start).Seconds())
	o.logger.Error().Err(err).Str("order_no", order.OrderNo).Msg("payment processing failed")

	// The transaction already rolled back; reverse the external approvals it
	// could not undo. Compensation failures are logged, never surfaced.
	if jrnl.Len() > 0 {
		if compErr := jrnl.Compensate(context.WithoutCancel(ctx)); compErr != nil {
			o.metrics.CompensationsTotal.WithLabelValues("failed").Inc()
			o.logger.Error().Err(compErr).Str("order_no", order.OrderNo).Msg("net-cancellation failed (ignored)")
		} else {
			o.metrics.CompensationsTotal.WithLabelValues("done").Inc()
		}
	}

	// Misconfigured lines and a tripped gateway breaker are not approval
	// verdicts; surface them as-is.
	if errors.Is(err, domainErrors.ErrUnknownMethod) ||
		errors.Is(err, domainErrors.ErrUnknownProvider) ||
		errors.Is(err, domainErrors.ErrGatewayUnavailable) {
		return err
	}

	return fmt.Errorf("order %s: %v: %w", order.OrderNo, err, domainErrors.ErrApprovalFailed)
}

func (o *Orchestrator) approveAll(ctx context.Context, order strategy.OrderContext, reqs []strategy.LineRequest, jrnl *journal.Journal) error {
	for _, req := range reqs {
		paymentNo, err := o.seq.NextPaymentNo(ctx)
		if err != nil {
			return fmt.Errorf("assign payment number: %w", err)
		}
		req.PaymentNo = paymentNo

		strat, err := o.strategies.Get(req.Method)
		if err != nil {
			return err
		}

		out, err := strat.Approve(ctx, order, req)
		if err != nil {
			return err
		}

		// Record the outcome before any further persistence so a failure in
		// the very next statement still leaves this line reversible.
		o.appendOutcome(jrnl, strat, out, paymentNo)

		if !out.OK {
			return fmt.Errorf("payment %d approved externally but could not be completed: %w",
				paymentNo, domainErrors.ErrApprovalFailed)
		}

		if err := o.ledgerRepo.Insert(ctx, out.Line); err != nil {
			return fmt.Errorf("persist payment %d: %w", paymentNo, err)
		}

		o.logger.Debug().Int64("payment_no", paymentNo).Str("method", string(req.Method)).Int64("amount", req.Amount).Msg("payment line committed")
	}
	return nil
}

func (o *Orchestrator) appendOutcome(jrnl *journal.Journal, strat strategy.Strategy, out *strategy.Outcome, paymentNo int64) {
	entry := journal.Entry{Name: fmt.Sprintf("payment-%d", paymentNo)}
	if out.NeedsCompensation {
		entry.Compensate = func(ctx context.Context) error {
			return strat.Compensate(ctx, out)
		}
	}
	jrnl.Append(entry)
}
