package contracts

//go:generate mockgen -source=presence.go -destination=../../mocks/mock_presence.go -package=mocks

import (
	"context"
	"time"
)

// PresenceStore mirrors presence into an external store for last-seen queries.
// The in-process Registry stays authoritative for who is online.
type PresenceStore interface {
	// Touch records that the users were seen at the given time.
	Touch(ctx context.Context, userIDs []string, at time.Time) error
	// LastSeen returns the last recorded time per user; unknown users are omitted.
	LastSeen(ctx context.Context, userIDs []string) (map[string]time.Time, error)
}
