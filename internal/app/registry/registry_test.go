package registry

import (
	"fmt"
	"linkup/internal/core/contracts"
	"linkup/internal/core/domain"
	"linkup/internal/testutil"
	"math/rand"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRegistry_Register_One_User_One_Handle(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	h1 := testutil.NewFakeClient("alice")

	// Given nobody is connected
	req.Empty(registry.OnlineUsers())

	// When alice connects
	becameOnline, err := registry.Register(h1)

	// Then alice is online with exactly one handle
	req.NoError(err)
	req.True(becameOnline)
	req.Equal([]string{"alice"}, registry.OnlineUsers())
	req.Equal([]contracts.Client{h1}, registry.Lookup("alice"))
	req.Equal(Stats{Connections: 1, Users: 1}, registry.Stats())
}

func TestRegistry_Second_Handle_Does_Not_Change_Membership(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	h1 := testutil.NewFakeClient("alice")
	h2 := testutil.NewFakeClient("alice")

	_, err := registry.Register(h1)
	req.NoError(err)

	// When a second tab connects
	becameOnline, err := registry.Register(h2)

	// Then membership did not change but both handles are tracked
	req.NoError(err)
	req.False(becameOnline)
	req.ElementsMatch([]contracts.Client{h1, h2}, registry.Lookup("alice"))
	req.Equal(Stats{Connections: 2, Users: 1}, registry.Stats())
}

func TestRegistry_Unregister_One_Of_Two_Handles_Keeps_User_Online(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	h1 := testutil.NewFakeClient("alice")
	h2 := testutil.NewFakeClient("alice")
	_, _ = registry.Register(h1)
	_, _ = registry.Register(h2)

	// When the first tab disconnects
	wentOffline := registry.Unregister(h1)

	// Then alice stays online through the remaining handle
	req.False(wentOffline)
	req.Equal([]string{"alice"}, registry.OnlineUsers())
	req.Equal([]contracts.Client{h2}, registry.Lookup("alice"))

	// When the second tab disconnects
	wentOffline = registry.Unregister(h2)

	// Then alice is offline and the entry is gone
	req.True(wentOffline)
	req.Empty(registry.OnlineUsers())
	req.Empty(registry.Lookup("alice"))
	req.Empty(registry.byUser)
	req.Empty(registry.byConn)
}

func TestRegistry_Unregister_Twice_Is_Idempotent(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	h1 := testutil.NewFakeClient("alice")
	h2 := testutil.NewFakeClient("bob")
	_, _ = registry.Register(h1)
	_, _ = registry.Register(h2)

	req.True(registry.Unregister(h1))
	before := registry.Stats()

	// When the same handle is deregistered again
	wentOffline := registry.Unregister(h1)

	// Then nothing changes
	req.False(wentOffline)
	req.Equal(before, registry.Stats())
	req.Equal([]string{"bob"}, registry.OnlineUsers())
}

func TestRegistry_Unregister_Unknown_Handle_Is_Noop(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()

	req.NotPanics(func() {
		req.False(registry.Unregister(testutil.NewFakeClient("ghost")))
	})
	req.Empty(registry.OnlineUsers())
}

func TestRegistry_Handle_Is_Registered_At_Most_Once(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	h1 := testutil.NewFakeClient("alice")
	_, err := registry.Register(h1)
	req.NoError(err)

	_, err = registry.Register(h1)

	req.ErrorIs(err, domain.ErrHandleRegistered)
	req.Len(registry.Lookup("alice"), 1)
}

func TestRegistry_Closed_Refuses_Register_And_Ignores_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	h1 := testutil.NewFakeClient("alice")
	_, _ = registry.Register(h1)

	// When the process shuts down
	live := registry.Close()

	// Then the live handles are handed back and the registry is empty
	req.Equal([]contracts.Client{h1}, live)
	req.Empty(registry.OnlineUsers())

	_, err := registry.Register(testutil.NewFakeClient("bob"))
	req.ErrorIs(err, domain.ErrRegistryClosed)
	req.False(registry.Unregister(h1))
	req.Nil(registry.Close())
	req.Empty(registry.OnlineUsers())
}

func TestRegistry_OnResize_Reports_Size(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	var sizes []Stats
	registry.OnResize(func(s Stats) { sizes = append(sizes, s) })
	h1 := testutil.NewFakeClient("alice")

	_, _ = registry.Register(h1)
	registry.Unregister(h1)
	registry.Unregister(h1)

	req.Equal([]Stats{{Connections: 1, Users: 1}, {}}, sizes)
}

func TestRegistry_OnResize_Settles_On_Current_Size_Under_Concurrency(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	var mu sync.Mutex
	var last Stats
	registry.OnResize(func(s Stats) {
		mu.Lock()
		last = s
		mu.Unlock()
	})
	keep := testutil.NewFakeClient("keeper")
	_, err := registry.Register(keep)
	req.NoError(err)

	// When many handles come and go at once
	var wg sync.WaitGroup
	for i := 0; i < 200; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := testutil.NewFakeClient(fmt.Sprintf("u%d", i%7))
			if _, err := registry.Register(h); err == nil && i%2 == 0 {
				registry.Unregister(h)
			}
		}(i)
	}
	wg.Wait()

	// Then the last published size is the registry's size
	mu.Lock()
	defer mu.Unlock()
	req.Equal(registry.Stats(), last)
	req.Equal(101, last.Connections)
}

func TestRegistry_OnlineUsers_Matches_Model_For_Random_Sequences(t *testing.T) {
	req := require.New(t)
	rng := rand.New(rand.NewSource(42))
	users := []string{"u1", "u2", "u3", "u4"}

	for round := 0; round < 50; round++ {
		registry := NewRegistry()
		model := map[string]map[*testutil.FakeClient]bool{}
		var handles []*testutil.FakeClient

		for step := 0; step < 200; step++ {
			if len(handles) == 0 || rng.Intn(2) == 0 {
				h := testutil.NewFakeClient(users[rng.Intn(len(users))])
				_, err := registry.Register(h)
				req.NoError(err)
				handles = append(handles, h)
				if model[h.UserID()] == nil {
					model[h.UserID()] = map[*testutil.FakeClient]bool{}
				}
				model[h.UserID()][h] = true
			} else {
				// Deregister a random handle; may already be gone
				h := handles[rng.Intn(len(handles))]
				registry.Unregister(h)
				delete(model[h.UserID()], h)
				if len(model[h.UserID()]) == 0 {
					delete(model, h.UserID())
				}
			}

			expected := make([]string, 0, len(model))
			for u := range model {
				expected = append(expected, u)
			}
			sort.Strings(expected)
			req.Equal(expected, registry.OnlineUsers(), "round %d step %d", round, step)
			for _, u := range users {
				req.Len(registry.Lookup(u), len(model[u]))
			}
		}
	}
}

func TestRegistry_Concurrent_Register_Unregister(t *testing.T) {
	req := require.New(t)
	registry := NewRegistry()
	var wg sync.WaitGroup

	for i := 0; i < 64; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			h := testutil.NewFakeClient([]string{"alice", "bob"}[i%2])
			_, err := registry.Register(h)
			if err != nil {
				t.Error(err)
				return
			}
			_ = registry.OnlineUsers()
			_ = registry.Lookup(h.UserID())
			registry.Unregister(h)
			registry.Unregister(h)
		}(i)
	}
	wg.Wait()

	req.Empty(registry.OnlineUsers())
	req.Equal(Stats{}, registry.Stats())
}
