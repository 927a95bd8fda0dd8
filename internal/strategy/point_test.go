package strategy_test

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
	"github.com/sejinpark/commercepay/internal/strategy"
	"github.com/sejinpark/commercepay/internal/testutil"
)

func TestPointStrategy_Approve_DebitsBalance(t *testing.T) {
	members := testutil.NewMockMemberRepository()
	members.SetBalance("M1", 5000)
	s := strategy.NewPointStrategy(members, testutil.NewMockOrderRepository(), zerolog.Nop())

	out, err := s.Approve(context.Background(),
		strategy.OrderContext{OrderNo: "ORD-1", MemberNo: "M1"},
		strategy.LineRequest{PaymentNo: 1, Method: ledger.MethodPoint, Amount: 3000},
	)
	require.NoError(t, err)

	assert.True(t, out.OK)
	// Point debits roll back with the transaction; they need no net-cancel.
	assert.False(t, out.NeedsCompensation)
	require.NotNil(t, out.Line)
	assert.Equal(t, ledger.MethodPoint, out.Line.Method)
	assert.Nil(t, out.Line.PGType)
	assert.Nil(t, out.Line.ExternalRef)
	assert.Equal(t, int64(2000), members.Balance("M1"))
}

func TestPointStrategy_Approve_InsufficientBalance(t *testing.T) {
	members := testutil.NewMockMemberRepository()
	members.SetBalance("M1", 1000)
	s := strategy.NewPointStrategy(members, testutil.NewMockOrderRepository(), zerolog.Nop())

	_, err := s.Approve(context.Background(),
		strategy.OrderContext{OrderNo: "ORD-1", MemberNo: "M1"},
		strategy.LineRequest{PaymentNo: 1, Method: ledger.MethodPoint, Amount: 3000},
	)
	assert.ErrorIs(t, err, domainErrors.ErrInsufficientPoints)
	// The balance is untouched when the check fails.
	assert.Equal(t, int64(1000), members.Balance("M1"))
}

func TestPointStrategy_Approve_UnknownMember(t *testing.T) {
	s := strategy.NewPointStrategy(testutil.NewMockMemberRepository(), testutil.NewMockOrderRepository(), zerolog.Nop())

	_, err := s.Approve(context.Background(),
		strategy.OrderContext{OrderNo: "ORD-1", MemberNo: "missing"},
		strategy.LineRequest{PaymentNo: 1, Method: ledger.MethodPoint, Amount: 100},
	)
	assert.ErrorIs(t, err, domainErrors.ErrMemberNotFound)
}

func TestPointStrategy_Compensate_IsNoOp(t *testing.T) {
	members := testutil.NewMockMemberRepository()
	members.SetBalance("M1", 5000)
	s := strategy.NewPointStrategy(members, testutil.NewMockOrderRepository(), zerolog.Nop())

	out, err := s.Approve(context.Background(),
		strategy.OrderContext{OrderNo: "ORD-1", MemberNo: "M1"},
		strategy.LineRequest{PaymentNo: 1, Method: ledger.MethodPoint, Amount: 3000},
	)
	require.NoError(t, err)

	require.NoError(t, s.Compensate(context.Background(), out))
	// Compensation must not touch the balance; rollback already did.
	assert.Equal(t, int64(2000), members.Balance("M1"))
}

func TestPointStrategy_Refund_CreditsOrderOwner(t *testing.T) {
	members := testutil.NewMockMemberRepository()
	members.SetBalance("M1", 2000)
	orders := testutil.NewMockOrderRepository()
	orders.SetOwner("ORD-1", "M1")
	s := strategy.NewPointStrategy(members, orders, zerolog.Nop())

	line := testutil.NewPointLine(1, "ORD-1", 3000)
	require.NoError(t, s.Refund(context.Background(), line, 1000, 2000))

	assert.Equal(t, int64(3000), members.Balance("M1"))
}

func TestPointStrategy_Refund_UnknownOrder(t *testing.T) {
	members := testutil.NewMockMemberRepository()
	members.SetBalance("M1", 2000)
	s := strategy.NewPointStrategy(members, testutil.NewMockOrderRepository(), zerolog.Nop())

	line := testutil.NewPointLine(1, "ORD-404", 3000)
	err := s.Refund(context.Background(), line, 1000, 2000)
	assert.ErrorIs(t, err, domainErrors.ErrOrderNotFound)
	assert.Equal(t, int64(2000), members.Balance("M1"))
}
