package services

import (
	"context"
	"linkup/internal/core/contracts"
	"sync"
	"time"
)

// Session is one accepted connection between Established and Closed.
type Session struct {
	client    contracts.Client
	manager   *ConnectionManager
	startedAt time.Time
	once      sync.Once
}

func (s *Session) Client() contracts.Client { return s.client }

// Close tears the session down exactly once, whichever of the read error,
// close frame, eviction or shutdown paths gets there first.
func (s *Session) Close(ctx context.Context) {
	s.once.Do(func() {
		s.manager.disconnect(ctx, s)
	})
}
