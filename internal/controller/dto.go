package controller

import (
	"time"

	"github.com/sejinpark/commercepay/internal/domain/ledger"
)

// --- Request DTOs ---
// These DTOs handle HTTP/JSON concerns (validation tags, nullable fields).
// Controllers convert these to application layer types before calling
// business logic.

// PaymentLineRequest holds one payment line of an order.
type PaymentLineRequest struct {
	Method string         `json:"method" validate:"required,oneof=CARD POINT"`
	PGType *string        `json:"pg_type,omitempty" validate:"omitempty,oneof=INICIS TOSS"`
	Amount int64          `json:"amount" validate:"required,gt=0"`
	Auth   map[string]any `json:"auth,omitempty"`
}

// ProcessPaymentsRequest holds the input for paying an order.
type ProcessPaymentsRequest struct {
	MemberNo string               `json:"member_no" validate:"required"`
	Payments []PaymentLineRequest `json:"payments" validate:"required,min=1,dive"`
}

// CancelRequest holds the input for a partial or full refund.
type CancelRequest struct {
	Amount int64 `json:"amount" validate:"required,gt=0"`
}

// --- Response DTOs ---

// LedgerLineResponse represents a ledger line in API responses.
type LedgerLineResponse struct {
	PaymentNo           int64     `json:"payment_no"`
	OrderNo             string    `json:"order_no"`
	EntryType           string    `json:"entry_type"`
	PGType              *string   `json:"pg_type,omitempty"`
	Method              string    `json:"method"`
	Amount              int64     `json:"amount"`
	TID                 *string   `json:"tid,omitempty"`
	ApprovalNo          *string   `json:"approval_no,omitempty"`
	RemainingRefundable int64     `json:"remaining_refundable"`
	PaidAt              time.Time `json:"paid_at"`
}

// OrderPaymentsResponse wraps an order's ledger lines.
type OrderPaymentsResponse struct {
	OrderNo  string               `json:"order_no"`
	Payments []LedgerLineResponse `json:"payments"`
}

// ProcessPaymentsResponse acknowledges a completed order payment.
type ProcessPaymentsResponse struct {
	OrderNo string `json:"order_no"`
	Status  string `json:"status"`
}

// ErrorResponse represents an API error.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// FromLine converts a ledger line to its API representation.
func FromLine(l *ledger.Line) LedgerLineResponse {
	resp := LedgerLineResponse{
		PaymentNo:           l.PaymentNo,
		OrderNo:             l.OrderNo,
		EntryType:           string(l.EntryType),
		Method:              string(l.Method),
		Amount:              l.Amount,
		RemainingRefundable: l.RemainingRefundable,
		PaidAt:              l.PaidAt,
	}
	if l.PGType != nil {
		s := string(*l.PGType)
		resp.PGType = &s
	}
	if l.ExternalRef != nil {
		resp.TID = &l.ExternalRef.TID
		if l.ExternalRef.ApprovalNo != "" {
			resp.ApprovalNo = &l.ExternalRef.ApprovalNo
		}
	}
	return resp
}

// FromLines converts a slice of ledger lines.
func FromLines(orderNo string, lines []*ledger.Line) OrderPaymentsResponse {
	resp := OrderPaymentsResponse{OrderNo: orderNo, Payments: make([]LedgerLineResponse, 0, len(lines))}
	for _, l := range lines {
		resp.Payments = append(resp.Payments, FromLine(l))
	}
	return resp
}
