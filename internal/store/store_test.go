package store

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	s, _, err := Open(Config{
		Driver: "sqlite",
		DSN:    "file:" + t.Name() + "?mode=memory&cache=shared",
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	return s
}

func TestClientCreateGet(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := NewClientWithAddress("10.0.0.1:9000")
	require.NoError(t, s.WithinTx(ctx, func(tx Tx) error {
		return s.CreateClient(ctx, tx, c)
	}))

	got, err := s.GetClient(ctx, nil, c.ID)
	require.NoError(t, err)
	require.Equal(t, c.ID, got.ID)
	require.Equal(t, "10.0.0.1:9000", got.Address)
	require.False(t, got.Connected)
}

func TestGetClientNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	_, err := s.GetClient(ctx, nil, "does-not-exist")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestCreateClientDuplicateIDIsConflict(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := NewClientWithAddress("10.0.0.1:9000")
	require.NoError(t, s.CreateClient(ctx, nil, c))

	dup := NewClientWithAddress("10.0.0.2:9000")
	dup.ID = c.ID
	err := s.CreateClient(ctx, nil, dup)
	require.ErrorIs(t, err, ErrConflict)
}

func TestConnectClientIsExclusive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := NewClient()
	require.NoError(t, s.CreateClient(ctx, nil, c))

	ok, err := s.ConnectClient(ctx, nil, c.ID, "10.0.0.2:1")
	require.NoError(t, err)
	require.True(t, ok, "first connect should win")

	ok, err = s.ConnectClient(ctx, nil, c.ID, "10.0.0.3:1")
	require.NoError(t, err)
	require.False(t, ok, "second connect must be rejected while still connected")

	got, err := s.GetClient(ctx, nil, c.ID)
	require.NoError(t, err)
	require.Equal(t, "10.0.0.2:1", got.Address, "losing connect must not overwrite address")
}

func TestListStaleClients(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	fresh := NewClient()
	fresh.Connected = true
	fresh.LastOnline = time.Now().UTC()
	require.NoError(t, s.CreateClient(ctx, nil, fresh))

	stale := NewClient()
	stale.Connected = false
	stale.LastOnline = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.CreateClient(ctx, nil, stale))

	// Still connected despite a stale LastOnline: a health-ping round trip
	// that stalled for longer than ttl must not make the client disappear
	// while its session is nominally still up.
	staleButConnected := NewClient()
	staleButConnected.Connected = true
	staleButConnected.LastOnline = time.Now().UTC().Add(-time.Hour)
	require.NoError(t, s.CreateClient(ctx, nil, staleButConnected))

	clients, err := s.ListStaleClients(ctx, nil, 5*time.Minute)
	require.NoError(t, err)
	require.Len(t, clients, 1)
	require.Equal(t, stale.ID, clients[0].ID)
}

func TestDisconnectAllClients(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	c := NewClient()
	c.Connected = true
	c.Address = "10.0.0.9:1"
	require.NoError(t, s.CreateClient(ctx, nil, c))

	require.NoError(t, s.DisconnectAllClients(ctx, nil))

	got, err := s.GetClient(ctx, nil, c.ID)
	require.NoError(t, err)
	require.False(t, got.Connected)
	require.Empty(t, got.Address)
}

func TestActionLifecycleAndGetNext(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	client := NewClient()
	require.NoError(t, s.CreateClient(ctx, nil, client))

	first := NewAction(client.ID, CommandPing)
	time.Sleep(time.Millisecond)
	second := NewAction(client.ID, CommandPing)
	require.NoError(t, s.CreateAction(ctx, nil, first))
	require.NoError(t, s.CreateAction(ctx, nil, second))

	next, err := s.GetNextAction(ctx, nil, client.ID)
	require.NoError(t, err)
	require.Equal(t, first.ID, next.ID, "GetNextAction must return the oldest pending action")

	next.State = StateRunning
	now := time.Now().UTC()
	next.StartedAt = &now
	require.NoError(t, s.UpdateAction(ctx, nil, next))

	next, err = s.GetNextAction(ctx, nil, client.ID)
	require.NoError(t, err)
	require.Equal(t, second.ID, next.ID, "running actions must not be returned again")
}

func TestGetNextActionNoneNotFound(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	client := NewClient()
	require.NoError(t, s.CreateClient(ctx, nil, client))

	_, err := s.GetNextAction(ctx, nil, client.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestPingCommandRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	client := NewClient()
	require.NoError(t, s.CreateClient(ctx, nil, client))
	action := NewAction(client.ID, CommandPing)
	require.NoError(t, s.CreateAction(ctx, nil, action))

	require.NoError(t, s.CreatePingCommand(ctx, nil, PingCommand{ActionID: action.ID, Data: "nonce-1"}))

	got, err := s.GetPingCommand(ctx, nil, action.ID)
	require.NoError(t, err)
	require.Equal(t, "nonce-1", got.Data)

	require.NoError(t, s.DeletePingCommand(ctx, nil, action.ID))
	_, err = s.GetPingCommand(ctx, nil, action.ID)
	require.ErrorIs(t, err, ErrNotFound)
}

func TestShellCommandRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	client := NewClient()
	require.NoError(t, s.CreateClient(ctx, nil, client))
	action := NewAction(client.ID, CommandShell)
	require.NoError(t, s.CreateAction(ctx, nil, action))

	require.NoError(t, s.CreateShellCommand(ctx, nil, ShellCommand{
		ActionID: action.ID,
		Cmd:      "uname",
		Args:     `["-a"]`,
		Stdin:    nil,
	}))

	got, err := s.GetShellCommand(ctx, nil, action.ID)
	require.NoError(t, err)
	require.Equal(t, "uname", got.Cmd)
	require.Equal(t, `["-a"]`, got.Args)
}

func TestListActionsByState(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)

	client := NewClient()
	require.NoError(t, s.CreateClient(ctx, nil, client))

	a1 := NewAction(client.ID, CommandPing)
	a2 := NewAction(client.ID, CommandPing)
	a2.State = StateFinished
	require.NoError(t, s.CreateAction(ctx, nil, a1))
	require.NoError(t, s.CreateAction(ctx, nil, a2))

	pending, err := s.ListActionsByState(ctx, nil, StatePending, ListOptions{})
	require.NoError(t, err)
	require.Len(t, pending, 1)
	require.Equal(t, a1.ID, pending[0].ID)

	finished, err := s.ListActionsByState(ctx, nil, StateFinished, ListOptions{})
	require.NoError(t, err)
	require.Len(t, finished, 1)
	require.Equal(t, a2.ID, finished[0].ID)
}
