package strategy

import (
	"context"
	"fmt"

	domainErrors "github.com/sejinpark/commercepay/internal/domain/errors"
	"github.com/sejinpark/commercepay/internal/domain/ledger"
)

// OrderContext identifies the order a payment line belongs to.
type OrderContext struct {
	OrderNo  string
	MemberNo string
}

// LineRequest is one requested payment line. PaymentNo is assigned by the
// orchestrator before the strategy sees the request.
type LineRequest struct {
	PaymentNo int64
	Method    ledger.Method
	PGType    *ledger.PGType
	Amount    int64
	Auth      map[string]any
}

// Outcome is the result of one approve attempt.
//
// OK=false with NeedsCompensation=true is the awkward middle state: the
// external approval already happened but a later local step failed, so the
// line cannot be committed yet must still be reversed.
type Outcome struct {
	// Line is the ledger line to persist. Nil when OK is false.
	Line *ledger.Line
	OK   bool
	// NeedsCompensation is true exactly when the approval had an effect
	// outside the local transaction.
	NeedsCompensation bool
	// Context carries whatever the strategy needs to reverse the approval
	// without re-deriving state.
	Context map[string]any
}

// Strategy handles approval, compensation and refunds for one payment method.
type Strategy interface {
	Method() ledger.Method
	// Approve attempts the payment. An error means nothing irreversible
	// happened for this line; an Outcome must be inspected for OK and
	// NeedsCompensation.
	Approve(ctx context.Context, order OrderContext, req LineRequest) (*Outcome, error)
	// Compensate reverses an approval recorded in out. Best effort: the
	// returned error is logged by the caller, never surfaced.
	Compensate(ctx context.Context, out *Outcome) error
	// Refund reverses amount of a committed ledger line. newRemaining is the
	// refundable balance the line will hold after this refund.
	Refund(ctx context.Context, line *ledger.Line, amount, newRemaining int64) error
}

// Registry dispatches by payment-method tag. Unknown tags are rejected
// outright rather than falling through to a default.
type Registry struct {
	byMethod map[ledger.Method]Strategy
}

func NewRegistry(strategies ...Strategy) *Registry {
	r := &Registry{byMethod: make(map[ledger.Method]Strategy)}
	for _, s := range strategies {
		r.byMethod[s.Method()] = s
	}
	return r
}

func (r *Registry) Get(m ledger.Method) (Strategy, error) {
	s, ok := r.byMethod[m]
	if !ok {
		return nil, fmt.Errorf("method %q: %w", m, domainErrors.ErrUnknownMethod)
	}
	return s, nil
}
