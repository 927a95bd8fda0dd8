package payment_test

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sejinpark/commercepay/internal/application/payment"
	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
	"github.com/sejinpark/commercepay/internal/gateway"
	"github.com/sejinpark/commercepay/internal/infrastructure/observability"
	"github.com/sejinpark/commercepay/internal/strategy"
	"github.com/sejinpark/commercepay/internal/testutil"
)

type fixture struct {
	ledgerRepo *testutil.MockLedgerRepository
	seq        *testutil.MockSequence
	members    *testutil.MockMemberRepository
	orders     *testutil.MockOrderRepository
	inicis     *testutil.MockGatewayClient
	toss       *testutil.MockGatewayClient
	txm        *testutil.MockTxManager

	orchestrator *payment.Orchestrator
	allocator    *payment.Allocator
}

// newFixture wires the orchestrator and allocator against in-memory mocks.
// The transaction manager snapshots ledger lines and the balances of the
// given members, and restores both when the unit of work fails, mirroring a
// database rollback.
func newFixture(memberNos ...string) *fixture {
	f := &fixture{
		ledgerRepo: testutil.NewMockLedgerRepository(),
		seq:        testutil.NewMockSequence(),
		members:    testutil.NewMockMemberRepository(),
		orders:     testutil.NewMockOrderRepository(),
		inicis:     testutil.NewMockGatewayClient(ledger.PGInicis),
		toss:       testutil.NewMockGatewayClient(ledger.PGToss),
		txm:        testutil.NewMockTxManager(),
	}

	f.txm.WithTransactionFunc = func(ctx context.Context, fn func(ctx context.Context) error) error {
		linesBefore := f.ledgerRepo.Lines()
		balancesBefore := make(map[string]int64, len(memberNos))
		for _, no := range memberNos {
			balancesBefore[no] = f.members.Balance(no)
		}

		if err := fn(ctx); err != nil {
			f.ledgerRepo.Clear()
			f.ledgerRepo.Seed(linesBefore...)
			for no, bal := range balancesBefore {
				f.members.SetBalance(no, bal)
			}
			return err
		}
		return nil
	}

	metrics := observability.NewMetrics("test", prometheus.NewRegistry())
	gateways := gateway.NewRegistry(metrics, f.inicis, f.toss)
	strategies := strategy.NewRegistry(
		strategy.NewCardStrategy(gateways, metrics, zerolog.Nop()),
		strategy.NewPointStrategy(f.members, f.orders, zerolog.Nop()),
	)
	f.orchestrator = payment.NewOrchestrator(f.ledgerRepo, f.seq, strategies, f.txm, metrics, zerolog.Nop())
	f.allocator = payment.NewAllocator(f.ledgerRepo, f.seq, strategies, f.txm, metrics, zerolog.Nop())
	return f
}

func cardLine(pgType ledger.PGType, amount int64) strategy.LineRequest {
	return strategy.LineRequest{
		Method: ledger.MethodCard,
		PGType: &pgType,
		Amount: amount,
		Auth:   map[string]any{"authToken": "tok", "authUrl": "http://pg/auth"},
	}
}

func pointLine(amount int64) strategy.LineRequest {
	return strategy.LineRequest{Method: ledger.MethodPoint, Amount: amount}
}

func TestProcessPayments_MixedMethodsSucceed(t *testing.T) {
	f := newFixture("M1")
	f.members.SetBalance("M1", 5000)
	f.inicis.ApproveFunc = func(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) (gateway.Result, error) {
		return gateway.Result{"tid": "T1", "applNum": "A1"}, nil
	}

	order := strategy.OrderContext{OrderNo: "ORD-1", MemberNo: "M1"}
	err := f.orchestrator.ProcessPayments(context.Background(), order, []strategy.LineRequest{
		cardLine(ledger.PGInicis, 7000),
		pointLine(3000),
	})
	require.NoError(t, err)

	lines := f.ledgerRepo.Lines()
	require.Len(t, lines, 2)

	assert.Equal(t, int64(1), lines[0].PaymentNo)
	assert.Equal(t, ledger.MethodCard, lines[0].Method)
	assert.Equal(t, int64(7000), lines[0].Amount)
	assert.Equal(t, int64(7000), lines[0].RemainingRefundable)
	assert.Equal(t, "T1", lines[0].ExternalRef.TID)

	assert.Equal(t, int64(2), lines[1].PaymentNo)
	assert.Equal(t, ledger.MethodPoint, lines[1].Method)
	assert.Equal(t, int64(3000), lines[1].RemainingRefundable)

	assert.Equal(t, int64(2000), f.members.Balance("M1"))
	assert.Empty(t, f.inicis.NetCancelCalls())
}

func TestProcessPayments_PointFailureNetCancelsCard(t *testing.T) {
	f := newFixture("M1")
	f.members.SetBalance("M1", 1000)
	f.inicis.ApproveFunc = func(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) (gateway.Result, error) {
		return gateway.Result{"tid": "T1", "applNum": "A1"}, nil
	}

	order := strategy.OrderContext{OrderNo: "ORD-1", MemberNo: "M1"}
	err := f.orchestrator.ProcessPayments(context.Background(), order, []strategy.LineRequest{
		cardLine(ledger.PGInicis, 7000),
		pointLine(3000),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrApprovalFailed)

	// No rows survive the rollback and the balance is untouched.
	assert.Empty(t, f.ledgerRepo.Lines())
	assert.Equal(t, int64(1000), f.members.Balance("M1"))

	// The card approval is reversed exactly once.
	calls := f.inicis.NetCancelCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, "ORD-1", calls[0].OrderNo)
	assert.Equal(t, int64(1), calls[0].PaymentNo)
}

func TestProcessPayments_PointOnlyFailureNeedsNoCompensation(t *testing.T) {
	f := newFixture("M1")
	f.members.SetBalance("M1", 1000)

	order := strategy.OrderContext{OrderNo: "ORD-1", MemberNo: "M1"}
	err := f.orchestrator.ProcessPayments(context.Background(), order, []strategy.LineRequest{
		pointLine(3000),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrApprovalFailed)

	assert.Empty(t, f.ledgerRepo.Lines())
	assert.Equal(t, int64(1000), f.members.Balance("M1"))
	assert.Empty(t, f.inicis.NetCancelCalls())
	assert.Empty(t, f.toss.NetCancelCalls())
}

func TestProcessPayments_CardRejectionAbortsOrder(t *testing.T) {
	f := newFixture("M1")
	f.members.SetBalance("M1", 5000)
	f.toss.ApproveFunc = func(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) (gateway.Result, error) {
		return nil, domainErrors.ErrApprovalRejected
	}

	order := strategy.OrderContext{OrderNo: "ORD-1", MemberNo: "M1"}
	err := f.orchestrator.ProcessPayments(context.Background(), order, []strategy.LineRequest{
		pointLine(3000),
		cardLine(ledger.PGToss, 7000),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrApprovalFailed)

	// The point debit rolled back with the transaction.
	assert.Empty(t, f.ledgerRepo.Lines())
	assert.Equal(t, int64(5000), f.members.Balance("M1"))
	// The rejected card approval left nothing external to reverse.
	assert.Empty(t, f.toss.NetCancelCalls())
}

func TestProcessPayments_UnknownMethod(t *testing.T) {
	f := newFixture("M1")

	order := strategy.OrderContext{OrderNo: "ORD-1", MemberNo: "M1"}
	err := f.orchestrator.ProcessPayments(context.Background(), order, []strategy.LineRequest{
		{Method: ledger.Method("VOUCHER"), Amount: 1000},
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrUnknownMethod)
	assert.NotErrorIs(t, err, domainErrors.ErrApprovalFailed)
	assert.Empty(t, f.ledgerRepo.Lines())
}

func TestProcessPayments_UnknownProviderAfterApprovalStillCompensates(t *testing.T) {
	f := newFixture("M1")
	f.inicis.ApproveFunc = func(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) (gateway.Result, error) {
		return gateway.Result{"tid": "T1", "applNum": "A1"}, nil
	}

	order := strategy.OrderContext{OrderNo: "ORD-1", MemberNo: "M1"}
	err := f.orchestrator.ProcessPayments(context.Background(), order, []strategy.LineRequest{
		cardLine(ledger.PGInicis, 7000),
		cardLine(ledger.PGType("PAYPAL"), 3000),
	})
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrUnknownProvider)

	// The first approval went through and must still be reversed.
	require.Len(t, f.inicis.NetCancelCalls(), 1)
	assert.Empty(t, f.ledgerRepo.Lines())
}

func TestProcessPayments_RerunUsesFreshPaymentNumbers(t *testing.T) {
	f := newFixture("M1")
	f.members.SetBalance("M1", 1000)
	f.inicis.ApproveFunc = func(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) (gateway.Result, error) {
		return gateway.Result{"tid": "T1", "applNum": "A1"}, nil
	}

	order := strategy.OrderContext{OrderNo: "ORD-1", MemberNo: "M1"}
	reqs := []strategy.LineRequest{cardLine(ledger.PGInicis, 7000), pointLine(3000)}

	err := f.orchestrator.ProcessPayments(context.Background(), order, reqs)
	require.Error(t, err)

	f.members.SetBalance("M1", 5000)
	require.NoError(t, f.orchestrator.ProcessPayments(context.Background(), order, reqs))

	// Numbers burned by the failed attempt are never reused.
	lines := f.ledgerRepo.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, int64(3), lines[0].PaymentNo)
	assert.Equal(t, int64(4), lines[1].PaymentNo)
}

func TestProcessPayments_EmptyRequest(t *testing.T) {
	f := newFixture()

	err := f.orchestrator.ProcessPayments(context.Background(), strategy.OrderContext{OrderNo: "ORD-1"}, nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrInvalidInput)
}

func TestProcessPayments_CompensationFailureDoesNotMaskError(t *testing.T) {
	f := newFixture("M1")
	f.members.SetBalance("M1", 0)
	f.inicis.ApproveFunc = func(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) (gateway.Result, error) {
		return gateway.Result{"tid": "T1", "applNum": "A1"}, nil
	}
	f.inicis.NetCancelFunc = func(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) error {
		return assert.AnError
	}

	order := strategy.OrderContext{OrderNo: "ORD-1", MemberNo: "M1"}
	err := f.orchestrator.ProcessPayments(context.Background(), order, []strategy.LineRequest{
		cardLine(ledger.PGInicis, 7000),
		pointLine(3000),
	})

	// The caller still sees the approval failure, not the net-cancel error.
	require.Error(t, err)
	assert.ErrorIs(t, err, domainErrors.ErrApprovalFailed)
	assert.NotErrorIs(t, err, assert.AnError)
}

func TestProcessPayments_FailedNetCancelIsNotRetried(t *testing.T) {
	f := newFixture("M1")
	f.members.SetBalance("M1", 0)
	f.inicis.ApproveFunc = func(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) (gateway.Result, error) {
		return gateway.Result{"tid": "T1", "applNum": "A1"}, nil
	}
	f.inicis.NetCancelFunc = func(ctx context.Context, orderNo string, paymentNo int64, auth map[string]any) error {
		return assert.AnError
	}

	order := strategy.OrderContext{OrderNo: "ORD-1", MemberNo: "M1"}
	err := f.orchestrator.ProcessPayments(context.Background(), order, []strategy.LineRequest{
		cardLine(ledger.PGInicis, 7000),
		pointLine(3000),
	})
	require.Error(t, err)

	// A net-cancel that fails is a hard failure; the gateway is hit once.
	assert.Len(t, f.inicis.NetCancelCalls(), 1)
}
