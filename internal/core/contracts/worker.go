package contracts

import "context"

type Worker interface {
	// Run blocks until ctx is cancelled
	Run(ctx context.Context) error
}
