package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kjubybot/notssh-go/internal/rpc/control"
	"github.com/kjubybot/notssh-go/internal/store"
)

// finishAction waits for the action to exist then marks it Finished
// with the given result, standing in for an agent's applyResult.
func finishAction(t *testing.T, st store.Store, actionID string, result []byte) {
	t.Helper()
	ctx := context.Background()
	require.Eventually(t, func() bool {
		_, err := st.GetAction(ctx, nil, actionID)
		return err == nil
	}, time.Second, 10*time.Millisecond)

	require.NoError(t, st.WithinTx(ctx, func(tx store.Tx) error {
		act, err := st.GetAction(ctx, tx, actionID)
		if err != nil {
			return err
		}
		act.State = store.StateFinished
		act.Result = result
		return st.UpdateAction(ctx, tx, act)
	}))
}

func TestControlServiceList(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewControlService(st, newTestLogger())

	c1 := newConnectedClient(t, st)
	c2 := store.NewClientWithAddress("10.0.0.2:9000")
	require.NoError(t, st.WithinTx(ctx, func(tx store.Tx) error {
		return st.CreateClient(ctx, tx, c2)
	}))

	resp, err := svc.List(ctx, &control.ListRequest{})
	require.NoError(t, err)
	require.Len(t, resp.Clients, 2)

	byID := map[string]control.ClientInfo{}
	for _, c := range resp.Clients {
		byID[c.ID] = c
	}
	require.True(t, byID[c1.ID].Connected)
	require.Equal(t, "10.0.0.1:9000", byID[c1.ID].Address)
	require.False(t, byID[c2.ID].Connected)
	require.Equal(t, "10.0.0.2:9000", byID[c2.ID].Address)
}

func TestControlServicePingSuccess(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewControlService(st, newTestLogger())
	client := newConnectedClient(t, st)

	resultCh := make(chan error, 1)
	go func() {
		resp, err := svc.Ping(ctx, &control.PingRequest{ID: client.ID})
		if err == nil {
			_ = resp
		}
		resultCh <- err
	}()

	// Find the enqueued action and complete it the way applyResult would:
	// echo the nonce back as the result.
	require.Eventually(t, func() bool {
		acts, err := st.ListActionsByState(ctx, nil, store.StatePending, store.ListOptions{})
		return err == nil && len(acts) == 1
	}, time.Second, 10*time.Millisecond)

	acts, err := st.ListActionsByState(ctx, nil, store.StatePending, store.ListOptions{})
	require.NoError(t, err)
	require.Len(t, acts, 1)
	finishAction(t, st, acts[0].ID, []byte("ping"))

	require.NoError(t, <-resultCh)
}

func TestControlServicePingClientNotFound(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewControlService(st, newTestLogger())

	_, err := svc.Ping(ctx, &control.PingRequest{ID: "no-such-client"})
	st2, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.NotFound, st2.Code())
}

func TestControlServicePurgeSuccess(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewControlService(st, newTestLogger())
	client := newConnectedClient(t, st)

	resultCh := make(chan *control.PurgeResponse, 1)
	errCh := make(chan error, 1)
	go func() {
		resp, err := svc.Purge(ctx, &control.PurgeRequest{ID: client.ID})
		resultCh <- resp
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		acts, err := st.ListActionsByState(ctx, nil, store.StatePending, store.ListOptions{})
		return err == nil && len(acts) == 1
	}, time.Second, 10*time.Millisecond)

	acts, err := st.ListActionsByState(ctx, nil, store.StatePending, store.ListOptions{})
	require.NoError(t, err)
	finishAction(t, st, acts[0].ID, []byte("purged"))

	require.NoError(t, <-errCh)
	require.Equal(t, "purged", (<-resultCh).Text)
}

func TestControlServiceShellSuccess(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewControlService(st, newTestLogger())
	client := newConnectedClient(t, st)

	resultCh := make(chan *control.ShellResponse, 1)
	errCh := make(chan error, 1)
	go func() {
		resp, err := svc.Shell(ctx, &control.ShellRequest{ID: client.ID, Cmd: "echo", Args: []string{"hi"}})
		resultCh <- resp
		errCh <- err
	}()

	require.Eventually(t, func() bool {
		acts, err := st.ListActionsByState(ctx, nil, store.StatePending, store.ListOptions{})
		return err == nil && len(acts) == 1
	}, time.Second, 10*time.Millisecond)

	acts, err := st.ListActionsByState(ctx, nil, store.StatePending, store.ListOptions{})
	require.NoError(t, err)

	cmd, err := st.GetShellCommand(ctx, nil, acts[0].ID)
	require.NoError(t, err)
	require.Equal(t, "echo", cmd.Cmd)
	require.Equal(t, []string{"hi"}, decodeArgs(cmd.Args))

	finishAction(t, st, acts[0].ID, []byte("hi\n"))

	require.NoError(t, <-errCh)
	require.Equal(t, []byte("hi\n"), (<-resultCh).Stdout)
}

func TestWaitForResultTimesOut(t *testing.T) {
	ctx := context.Background()
	st := newTestStore(t)
	svc := NewControlService(st, newTestLogger())
	client := newConnectedClient(t, st)

	act := store.NewAction(client.ID, store.CommandPing)
	require.NoError(t, st.WithinTx(ctx, func(tx store.Tx) error {
		return st.CreateAction(ctx, tx, act)
	}))

	_, err := svc.waitForResult(ctx, act.ID, 50*time.Millisecond)
	st2, ok := status.FromError(err)
	require.True(t, ok)
	require.Equal(t, codes.DeadlineExceeded, st2.Code())
}
