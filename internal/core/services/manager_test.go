package services

import (
	"context"
	"linkup/internal/core/domain"
	"linkup/internal/mocks"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type managerFixture struct {
	registry  *mocks.MockRegistry
	announcer *mocks.MockAnnouncer
	client    *mocks.MockClient
	manager   *ConnectionManager
}

func newManagerFixture(t *testing.T) managerFixture {
	ctrl := gomock.NewController(t)
	f := managerFixture{
		registry:  mocks.NewMockRegistry(ctrl),
		announcer: mocks.NewMockAnnouncer(ctrl),
		client:    mocks.NewMockClient(ctrl),
	}
	f.client.EXPECT().ID().Return("conn-1").AnyTimes()
	f.client.EXPECT().UserID().Return("alice").AnyTimes()
	f.manager = NewConnectionManager(slog.New(slog.DiscardHandler), f.registry, f.announcer)
	return f
}

func TestConnectionManager_Connect_First_Handle_Announces(t *testing.T) {
	req := require.New(t)
	f := newManagerFixture(t)

	gomock.InOrder(
		f.registry.EXPECT().Register(f.client).Return(true, nil),
		f.announcer.EXPECT().Announce(gomock.Any()).Return(domain.Roster{Version: 1, Online: []string{"alice"}}),
	)
	f.announcer.EXPECT().Greet(gomock.Any(), gomock.Any()).Times(0)

	session, err := f.manager.Connect(context.Background(), f.client)

	req.NoError(err)
	req.Equal(f.client, session.Client())
}

func TestConnectionManager_Connect_Extra_Tab_Is_Greeted(t *testing.T) {
	req := require.New(t)
	f := newManagerFixture(t)

	gomock.InOrder(
		f.registry.EXPECT().Register(f.client).Return(false, nil),
		f.announcer.EXPECT().Greet(gomock.Any(), f.client),
	)
	f.announcer.EXPECT().Announce(gomock.Any()).Times(0)

	_, err := f.manager.Connect(context.Background(), f.client)

	req.NoError(err)
}

func TestConnectionManager_Connect_Closed_Registry(t *testing.T) {
	req := require.New(t)
	f := newManagerFixture(t)

	// Given the process is shutting down
	f.registry.EXPECT().Register(f.client).Return(false, domain.ErrRegistryClosed)
	f.client.EXPECT().Close()
	f.announcer.EXPECT().Announce(gomock.Any()).Times(0)

	session, err := f.manager.Connect(context.Background(), f.client)

	req.ErrorIs(err, domain.ErrRegistryClosed)
	req.Nil(session)
}

func TestSession_Close_Runs_Once(t *testing.T) {
	req := require.New(t)
	f := newManagerFixture(t)
	f.registry.EXPECT().Register(f.client).Return(true, nil)
	f.announcer.EXPECT().Announce(gomock.Any()).Return(domain.Roster{}).Times(2)
	session, err := f.manager.Connect(context.Background(), f.client)
	req.NoError(err)

	// Expect a single teardown even if every close path fires at once
	gomock.InOrder(
		f.registry.EXPECT().Unregister(f.client).Return(true),
		f.client.EXPECT().Close(),
	)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			session.Close(context.Background())
		}()
	}
	wg.Wait()
}

func TestSession_Close_After_Eviction_Does_Not_Announce(t *testing.T) {
	req := require.New(t)
	f := newManagerFixture(t)
	f.registry.EXPECT().Register(f.client).Return(false, nil)
	f.announcer.EXPECT().Greet(gomock.Any(), f.client)
	session, err := f.manager.Connect(context.Background(), f.client)
	req.NoError(err)

	// Given a failed push already removed the handle
	f.registry.EXPECT().Unregister(f.client).Return(false)
	f.client.EXPECT().Close()
	f.announcer.EXPECT().Announce(gomock.Any()).Times(0)

	session.Close(context.Background())
}
