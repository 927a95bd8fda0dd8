package iflog

import (
	"context"
	"encoding/json"
	"time"

	"github.com/rs/zerolog"

	"github.com/sejinpark/commercepay/internal/domain/ledger"
)

// Recorder writes interface log entries on behalf of gateway clients. Logging
// must never break a payment, so every failure here is logged and discarded.
type Recorder struct {
	repo   Repository
	logger zerolog.Logger
}

func NewRecorder(repo Repository, logger zerolog.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Request records an outgoing gateway request and returns the entry's
// sequence, or 0 if the write failed.
func (r *Recorder) Request(ctx context.Context, pgType ledger.PGType, txType TransactionType, orderNo string, paymentNo int64, payload any) int64 {
	body, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error().Err(err).Str("order_no", orderNo).Msg("interface log: marshal request failed (ignored)")
		return 0
	}

	seq, err := r.repo.Insert(context.WithoutCancel(ctx), &Entry{
		PGType:          pgType,
		TransactionType: txType,
		OrderNo:         orderNo,
		PaymentNo:       paymentNo,
		RequestJSON:     body,
		TradedAt:        time.Now(),
	})
	if err != nil {
		r.logger.Error().Err(err).Str("order_no", orderNo).Msg("interface log: insert failed (ignored)")
		return 0
	}
	return seq
}

// Response fills in the gateway response and result code for a previously
// recorded request. A zero seq (failed Request) is a no-op.
func (r *Recorder) Response(ctx context.Context, seq int64, payload any, resultCode string) {
	if seq == 0 {
		return
	}

	body, err := json.Marshal(payload)
	if err != nil {
		r.logger.Error().Err(err).Int64("interface_seq", seq).Msg("interface log: marshal response failed (ignored)")
		return
	}

	if err := r.repo.UpdateResponse(context.WithoutCancel(ctx), seq, body, resultCode); err != nil {
		r.logger.Error().Err(err).Int64("interface_seq", seq).Msg("interface log: update failed (ignored)")
	}
}
