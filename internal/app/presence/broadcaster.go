package presence

import (
	"context"
	"encoding/json"
	"linkup/internal/app/fanout"
	"linkup/internal/core/contracts"
	"linkup/internal/core/domain"
	"linkup/internal/platform/metrics"
	"linkup/pkg/logging"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/lo"
)

const eventPresence = "presence"

// Broadcaster pushes the online roster to connected clients. Every roster it
// sends carries a fresh version and sends are serialised, so a connection
// never sees versions go backwards.
type Broadcaster struct {
	log         *slog.Logger
	registry    contracts.Registry
	store       contracts.PresenceStore
	metrics     *metrics.Metrics
	pushTimeout time.Duration

	mu      sync.Mutex
	version uint64
	last    []string
}

// NewBroadcaster builds a Broadcaster. store may be nil.
func NewBroadcaster(
	log *slog.Logger,
	registry contracts.Registry,
	store contracts.PresenceStore,
	m *metrics.Metrics,
	pushTimeout time.Duration,
) *Broadcaster {
	return &Broadcaster{
		log:         log,
		registry:    registry,
		store:       store,
		metrics:     m,
		pushTimeout: pushTimeout,
	}
}

// Announce sends the current roster to every registered connection and
// returns the last roster sent. Connections that fail the push are evicted;
// when that takes a user offline the roster is announced again.
func (b *Broadcaster) Announce(ctx context.Context) domain.Roster {
	for {
		roster, changed := b.announceOnce(ctx)
		if !changed {
			return roster
		}
	}
}

func (b *Broadcaster) announceOnce(ctx context.Context) (domain.Roster, bool) {
	b.mu.Lock()
	roster := b.nextLocked()
	previous := b.last
	b.last = roster.Online
	failures := b.pushLocked(ctx, b.registry.Clients(), roster)
	b.mu.Unlock()

	b.metrics.IncAnnouncements()
	b.log.DebugContext(ctx, "presence - announce - success",
		"version", roster.Version, "online", len(roster.Online), "failed", len(failures))
	b.mirror(ctx, lo.Union(previous, roster.Online))
	return roster, b.evict(ctx, failures)
}

// Greet sends the current roster to a single connection, typically one that
// just registered without changing who is online.
func (b *Broadcaster) Greet(ctx context.Context, c contracts.Client) {
	b.mu.Lock()
	roster := b.nextLocked()
	failures := b.pushLocked(ctx, []contracts.Client{c}, roster)
	b.mu.Unlock()

	if b.evict(ctx, failures) {
		b.Announce(ctx)
	}
}

func (b *Broadcaster) nextLocked() domain.Roster {
	b.version++
	return domain.Roster{Version: b.version, Online: b.registry.OnlineUsers()}
}

func (b *Broadcaster) pushLocked(ctx context.Context, clients []contracts.Client, roster domain.Roster) []fanout.Failure {
	data, err := json.Marshal(domain.NewPresenceUpdate(roster))
	if err != nil {
		b.log.ErrorContext(ctx, "presence - encode roster - failed", logging.Err(err))
		return nil
	}
	return fanout.Push(ctx, clients, data, b.pushTimeout)
}

func (b *Broadcaster) evict(ctx context.Context, failures []fanout.Failure) bool {
	for _, f := range failures {
		b.metrics.IncPushFailure(eventPresence)
		b.log.WarnContext(ctx, "presence - push - evicting connection",
			logging.User(f.Client.UserID()), logging.Conn(f.Client.ID()), logging.Err(f.Err))
	}
	return fanout.Evict(b.registry, failures)
}

// mirror records users as seen now. Users that just went offline are included
// so their last-seen time is the moment they left.
func (b *Broadcaster) mirror(ctx context.Context, users []string) {
	if b.store == nil || len(users) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), b.pushTimeout)
	defer cancel()
	if err := b.store.Touch(ctx, users, time.Now()); err != nil {
		b.log.WarnContext(ctx, "presence - mirror - touch failed", "users", len(users), logging.Err(err))
	}
}
