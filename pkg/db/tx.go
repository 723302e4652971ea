// Package db holds storage-agnostic contracts shared by the repositories.
package db

import "context"

// TxFunc runs inside a transaction. Repositories called with the ctx it
// receives take part in that transaction.
type TxFunc func(ctx context.Context) error

// Transactor runs fn atomically: either every write made through ctx is
// applied or none is.
type Transactor interface {
	ExecuteTransaction(ctx context.Context, fn TxFunc) error
}
