package payment

import "context"

// TransactionManager wraps a unit of work in a database transaction. It is
// the only rollback mechanism for local effects (ledger rows, point debits);
// card approvals are reversed by compensation instead.
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
