package contracts

//go:generate mockgen -source=registry.go -destination=../../mocks/mock_registry.go -package=mocks

import (
	"context"
	"linkup/internal/core/domain"
)

// Registry is the authoritative in-process map of online users to their
// live connections.
type Registry interface {
	// Register adds the handle under its user. becameOnline is true when this is
	// the user's first live handle.
	Register(c Client) (becameOnline bool, err error)
	// Unregister removes the handle. Unknown handles are ignored.
	Unregister(c Client) (wentOffline bool)
	// Lookup returns a snapshot of the user's handles.
	Lookup(userID string) []Client
	// OnlineUsers returns the sorted identities with at least one handle.
	OnlineUsers() []string
	// Clients returns a snapshot of every registered handle.
	Clients() []Client
}

// Client represents the minimal interface required for the Registry to
// communicate with an individual WebSocket connection.
type Client interface {
	ID() string
	UserID() string
	// Send queues data for the connection; it must honour ctx cancellation.
	Send(ctx context.Context, data []byte) error
	Close()
}

// Announcer pushes the online roster to connected clients.
type Announcer interface {
	Announce(ctx context.Context) domain.Roster
	Greet(ctx context.Context, c Client)
}

// Router delivers persisted messages to live connections.
type Router interface {
	Route(ctx context.Context, msg domain.Message) domain.DeliveryReport
}
