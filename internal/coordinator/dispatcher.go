package coordinator

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/kjubybot/notssh-go/internal/rpc/fleet"
	"github.com/kjubybot/notssh-go/internal/store"
)

// idlePoll is how long the Dispatcher sleeps after finding no Pending
// action before checking again, matching the original's
// `tokio::time::sleep(Duration::from_secs(1))`.
const idlePoll = time.Second

// dispatch is the Dispatcher: it repeatedly looks up the oldest Pending
// action for this client, commits it to Running, and sends it down the
// stream — in that order. If the stream write or the agent crashes after
// the commit but before delivery, the action is stuck Running forever; this
// is the original's accepted at-most-once delivery gap (Design Notes §9
// Open Question), faithfully reproduced rather than silently fixed with a
// requeue policy.
func (s *AgentSession) dispatch(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		client, err := s.store.GetClient(ctx, nil, s.clientID)
		if err != nil {
			s.logger.Error("cannot get client from database", zap.Error(err))
			return err
		}
		if !client.Connected {
			return errors.New("client disconnected")
		}

		act, peerAct, err := s.nextPeerAction(ctx)
		if err != nil {
			s.logger.Error("cannot prepare next action", zap.Error(err))
			return err
		}
		if peerAct == nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(idlePoll):
				continue
			}
		}

		if err := s.stream.Send(peerAct); err != nil {
			s.logger.Error("cannot send action to client", zap.Error(err), zap.String("action_id", act.ID))
			return err
		}
	}
}

// nextPeerAction fetches the oldest Pending action for the client (if any),
// loads its command payload, commits Pending->Running with a StartedAt
// stamp, and returns the wire Action to send. Returns a nil peerAct, nil
// error when there is nothing pending right now.
func (s *AgentSession) nextPeerAction(ctx context.Context) (store.Action, *fleet.Action, error) {
	var act store.Action
	var peerAct *fleet.Action

	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		var err error
		act, err = s.store.GetNextAction(ctx, tx, s.clientID)
		if errors.Is(err, store.ErrNotFound) {
			peerAct = nil
			return nil
		}
		if err != nil {
			return err
		}

		switch act.Command {
		case store.CommandPing:
			cmd, err := s.store.GetPingCommand(ctx, tx, act.ID)
			if err != nil {
				return err
			}
			peerAct = &fleet.Action{ID: act.ID, Ping: &fleet.PingCmd{Ping: cmd.Data}}
		case store.CommandPurge:
			peerAct = &fleet.Action{ID: act.ID, Purge: &fleet.PurgeCmd{}}
		case store.CommandShell:
			cmd, err := s.store.GetShellCommand(ctx, tx, act.ID)
			if err != nil {
				return err
			}
			peerAct = &fleet.Action{ID: act.ID, Shell: &fleet.ShellCmd{
				Cmd:   cmd.Cmd,
				Args:  decodeArgs(cmd.Args),
				Stdin: cmd.Stdin,
			}}
		}

		now := time.Now().UTC()
		act.StartedAt = &now
		act.State = store.StateRunning
		return s.store.UpdateAction(ctx, tx, act)
	})

	return act, peerAct, err
}
