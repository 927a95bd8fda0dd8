package strategy

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker/v2"

	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
	"github.com/sejinpark/commercepay/internal/gateway"
	"github.com/sejinpark/commercepay/internal/infrastructure/observability"
)

// CardStrategy charges cards through an external gateway. Card approvals are
// the one thing in the payment flow a transaction rollback cannot undo, so
// every successful gateway call is reported with NeedsCompensation=true and
// enough context to net-cancel it later.
type CardStrategy struct {
	gateways *gateway.Registry
	metrics  *observability.Metrics
	logger   zerolog.Logger
}

func NewCardStrategy(gateways *gateway.Registry, metrics *observability.Metrics, logger zerolog.Logger) *CardStrategy {
	return &CardStrategy{gateways: gateways, metrics: metrics, logger: logger}
}

func (s *CardStrategy) countGatewayCall(pgType ledger.PGType, operation string, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	s.metrics.GatewayRequestsTotal.WithLabelValues(string(pgType), operation, result).Inc()
}

func (s *CardStrategy) Method() ledger.Method { return ledger.MethodCard }

func (s *CardStrategy) Approve(ctx context.Context, order OrderContext, req LineRequest) (*Outcome, error) {
	if req.PGType == nil {
		return nil, fmt.Errorf("card payment without gateway: %w", domainErrors.ErrUnknownProvider)
	}

	client, breaker, err := s.gateways.Get(*req.PGType)
	if err != nil {
		return nil, err
	}

	res, err := breaker.Execute(func() (gateway.Result, error) {
		return client.Approve(ctx, order.OrderNo, req.PaymentNo, req.Auth)
	})
	s.countGatewayCall(*req.PGType, "approve", err)
	if err != nil {
		// The gateway did not approve; nothing external to reverse.
		return nil, mapBreakerErr(*req.PGType, err)
	}

	// The charge exists now. Capture the net-cancel context before anything
	// else can fail.
	compCtx := map[string]any{
		"orderNo":   order.OrderNo,
		"paymentNo": req.PaymentNo,
		"pgType":    string(*req.PGType),
		"auth":      req.Auth,
		"response":  res,
	}

	ref, err := client.ExternalRef(res)
	if err != nil {
		s.logger.Error().Err(err).Str("order_no", order.OrderNo).Msg("card approval succeeded but reference extraction failed")
		return &Outcome{OK: false, NeedsCompensation: true, Context: compCtx}, nil
	}

	line, err := ledger.NewPaymentLine(req.PaymentNo, order.OrderNo, req.PGType, ledger.MethodCard, req.Amount, ref)
	if err != nil {
		s.logger.Error().Err(err).Str("order_no", order.OrderNo).Msg("card approval succeeded but ledger line is invalid")
		return &Outcome{OK: false, NeedsCompensation: true, Context: compCtx}, nil
	}

	return &Outcome{Line: line, OK: true, NeedsCompensation: true, Context: compCtx}, nil
}

// Compensate net-cancels the approval recorded in out.
func (s *CardStrategy) Compensate(ctx context.Context, out *Outcome) error {
	pgType := ledger.PGType(stringFromContext(out.Context, "pgType"))
	orderNo := stringFromContext(out.Context, "orderNo")
	paymentNo, _ := out.Context["paymentNo"].(int64)
	auth, _ := out.Context["auth"].(map[string]any)

	client, _, err := s.gateways.Get(pgType)
	if err != nil {
		return err
	}

	s.logger.Warn().Str("order_no", orderNo).Int64("payment_no", paymentNo).Str("pg_type", string(pgType)).Msg("net-cancelling card approval")

	// A failed net-cancel is a hard failure; the journal logs and swallows it.
	err = client.NetCancel(ctx, orderNo, paymentNo, auth)
	s.countGatewayCall(pgType, "net_cancel", err)
	return err
}

func (s *CardStrategy) Refund(ctx context.Context, line *ledger.Line, amount, newRemaining int64) error {
	if line.PGType == nil || line.ExternalRef == nil {
		return fmt.Errorf("card ledger line %d has no gateway reference: %w", line.PaymentNo, domainErrors.ErrUnknownProvider)
	}

	client, breaker, err := s.gateways.Get(*line.PGType)
	if err != nil {
		return err
	}

	_, err = breaker.Execute(func() (gateway.Result, error) {
		return nil, client.Cancel(ctx, line.OrderNo, line.PaymentNo, line.ExternalRef.TID, amount, newRemaining)
	})
	s.countGatewayCall(*line.PGType, "cancel", err)
	if err != nil {
		return mapBreakerErr(*line.PGType, err)
	}
	return nil
}

// mapBreakerErr turns a tripped circuit breaker into the domain's
// gateway-unavailable error; everything else passes through.
func mapBreakerErr(pgType ledger.PGType, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return fmt.Errorf("gateway %s: %w", pgType, domainErrors.ErrGatewayUnavailable)
	}
	return err
}

func stringFromContext(m map[string]any, key string) string {
	s, _ := m[key].(string)
	return s
}
