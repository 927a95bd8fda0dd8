package ledger

import (
	"time"

	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
)

// EntryType distinguishes money moving into an order from money moving back out.
type EntryType string

const (
	EntryPayment EntryType = "PAYMENT"
	EntryRefund  EntryType = "REFUND"
)

// Method is the payment method of a ledger line.
type Method string

const (
	MethodCard  Method = "CARD"
	MethodPoint Method = "POINT"
)

// PGType identifies the external payment gateway. Point lines carry no PGType.
type PGType string

const (
	PGInicis PGType = "INICIS"
	PGToss   PGType = "TOSS"
)

// ExternalRef holds the gateway references needed to cancel an approved card
// payment later. Point lines have none.
type ExternalRef struct {
	TID        string
	ApprovalNo string
}

// Line is one row of the payment ledger: a PAYMENT recorded at approval time
// or a REFUND recorded when a cancellation consumes part of a payment.
//
// PAYMENT lines are immutable except for RemainingRefundable; REFUND lines are
// immutable once written.
type Line struct {
	PaymentNo           int64
	OrderNo             string
	EntryType           EntryType
	PGType              *PGType
	Method              Method
	Amount              int64
	ExternalRef         *ExternalRef
	RemainingRefundable int64
	PaidAt              time.Time
}

// NewPaymentLine creates a PAYMENT line with its full amount still refundable.
func NewPaymentLine(paymentNo int64, orderNo string, pgType *PGType, method Method, amount int64, ref *ExternalRef) (*Line, error) {
	if paymentNo <= 0 {
		return nil, domainErrors.NewDomainError("invalid_payment_no", "payment number must be assigned", domainErrors.ErrInvalidInput)
	}
	if orderNo == "" {
		return nil, domainErrors.NewDomainError("invalid_order_no", "order number is required", domainErrors.ErrInvalidInput)
	}
	if amount <= 0 {
		return nil, domainErrors.ErrInvalidAmount
	}
	return &Line{
		PaymentNo:           paymentNo,
		OrderNo:             orderNo,
		EntryType:           EntryPayment,
		PGType:              pgType,
		Method:              method,
		Amount:              amount,
		ExternalRef:         ref,
		RemainingRefundable: amount,
		PaidAt:              time.Now(),
	}, nil
}

// NewRefundLine creates a REFUND line consuming part of src. The refund copies
// the source's gateway references so the row can be traced back to the charge.
func NewRefundLine(paymentNo int64, src *Line, amount int64) (*Line, error) {
	if amount <= 0 || amount > src.RemainingRefundable {
		return nil, domainErrors.ErrInvalidAmount
	}
	return &Line{
		PaymentNo:           paymentNo,
		OrderNo:             src.OrderNo,
		EntryType:           EntryRefund,
		PGType:              src.PGType,
		Method:              src.Method,
		Amount:              amount,
		ExternalRef:         src.ExternalRef,
		RemainingRefundable: 0,
		PaidAt:              time.Now(),
	}, nil
}

// Refundable reports whether the line still has balance a refund can consume.
func (l *Line) Refundable() bool {
	return l.EntryType == EntryPayment && l.RemainingRefundable > 0
}

// Consume reduces the remaining refundable balance by amount, keeping the
// 0 <= remaining <= amount invariant.
func (l *Line) Consume(amount int64) error {
	if l.EntryType != EntryPayment {
		return domainErrors.NewDomainError("not_a_payment", "only PAYMENT lines can be consumed", domainErrors.ErrInvalidInput)
	}
	if amount <= 0 || amount > l.RemainingRefundable {
		return domainErrors.ErrInvalidAmount
	}
	l.RemainingRefundable -= amount
	return nil
}
