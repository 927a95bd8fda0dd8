package testutil

import (
	"time"

	"github.com/sejinpark/commercepay/internal/domain/ledger"
)

// NewCardLine builds a committed CARD payment line.
func NewCardLine(paymentNo int64, orderNo string, pgType ledger.PGType, amount int64, tid string) *ledger.Line {
	return &ledger.Line{
		PaymentNo:           paymentNo,
		OrderNo:             orderNo,
		EntryType:           ledger.EntryPayment,
		PGType:              &pgType,
		Method:              ledger.MethodCard,
		Amount:              amount,
		ExternalRef:         &ledger.ExternalRef{TID: tid, ApprovalNo: "A" + tid},
		RemainingRefundable: amount,
		PaidAt:              time.Now(),
	}
}

// NewPointLine builds a committed POINT payment line.
func NewPointLine(paymentNo int64, orderNo string, amount int64) *ledger.Line {
	return &ledger.Line{
		PaymentNo:           paymentNo,
		OrderNo:             orderNo,
		EntryType:           ledger.EntryPayment,
		Method:              ledger.MethodPoint,
		Amount:              amount,
		RemainingRefundable: amount,
		PaidAt:              time.Now(),
	}
}
