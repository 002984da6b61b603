package domain

import "context"

// TxManager runs a function inside one storage transaction. Repository calls
// made with the context passed to fn join that transaction; the transaction
// commits when fn returns nil and rolls back otherwise.
type TxManager interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}
