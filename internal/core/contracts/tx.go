package contracts

import "context"

// Transactor runs fn inside a database transaction carried by the context.
// Repositories pick the transaction up from the context they are handed.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}
