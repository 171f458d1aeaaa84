package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/kjubybot/notssh-go/internal/store"
)

func TestSweepRemovesFinishedActionsAndStaleClients(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sw, err := NewSweeper(st, newTestLogger())
	require.NoError(t, err)

	fresh := store.NewClientWithAddress("10.0.0.1:9000")
	stale := store.NewClientWithAddress("10.0.0.2:9000")
	stale.LastOnline = time.Now().UTC().Add(-48 * time.Hour)

	require.NoError(t, st.WithinTx(ctx, func(tx store.Tx) error {
		if err := st.CreateClient(ctx, tx, fresh); err != nil {
			return err
		}
		return st.CreateClient(ctx, tx, stale)
	}))

	act := store.NewAction(fresh.ID, store.CommandPing)
	act.State = store.StateFinished
	cmd := store.PingCommand{ActionID: act.ID, Data: "ping"}
	require.NoError(t, st.WithinTx(ctx, func(tx store.Tx) error {
		if err := st.CreateAction(ctx, tx, act); err != nil {
			return err
		}
		return st.CreatePingCommand(ctx, tx, cmd)
	}))

	sw.sweep(ctx)

	_, err = st.GetAction(ctx, nil, act.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.GetPingCommand(ctx, nil, act.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	_, err = st.GetClient(ctx, nil, stale.ID)
	require.ErrorIs(t, err, store.ErrNotFound)

	got, err := st.GetClient(ctx, nil, fresh.ID)
	require.NoError(t, err)
	require.Equal(t, fresh.ID, got.ID)
}

func TestSweepLeavesPendingActionsAlone(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	sw, err := NewSweeper(st, newTestLogger())
	require.NoError(t, err)

	client := store.NewClientWithAddress("10.0.0.1:9000")
	require.NoError(t, st.WithinTx(ctx, func(tx store.Tx) error {
		return st.CreateClient(ctx, tx, client)
	}))

	act := store.NewAction(client.ID, store.CommandPing)
	require.NoError(t, st.WithinTx(ctx, func(tx store.Tx) error {
		return st.CreateAction(ctx, tx, act)
	}))

	sw.sweep(ctx)

	got, err := st.GetAction(ctx, nil, act.ID)
	require.NoError(t, err)
	require.Equal(t, store.StatePending, got.State)
}
