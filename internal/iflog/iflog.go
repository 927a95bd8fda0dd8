package iflog

import (
	"context"
	"time"

	"github.com/sejinpark/commercepay/internal/domain/ledger"
)

// TransactionType is the kind of gateway exchange a log entry records.
type TransactionType string

const (
	TxApproval  TransactionType = "APPROVAL"
	TxCancel    TransactionType = "CANCEL"
	TxNetCancel TransactionType = "NET_CANCEL"
)

// Entry is one recorded gateway request/response pair. The request is written
// before the network call and the response filled in afterwards, so an entry
// with a nil response marks an exchange that never came back.
type Entry struct {
	Seq             int64
	PGType          ledger.PGType
	TransactionType TransactionType
	OrderNo         string
	PaymentNo       int64
	RequestJSON     []byte
	ResponseJSON    []byte
	ResultCode      *string
	TradedAt        time.Time
}

// Repository persists interface log entries. Implementations must write
// outside the caller's transaction so entries survive a rollback.
type Repository interface {
	Insert(ctx context.Context, entry *Entry) (int64, error)
	UpdateResponse(ctx context.Context, seq int64, responseJSON []byte, resultCode string) error
}
