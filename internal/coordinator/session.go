package coordinator

import (
	"context"
	"errors"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kjubybot/notssh-go/internal/rpc/fleet"
	"github.com/kjubybot/notssh-go/internal/store"
)

// AgentSession is one agent's live Poll stream. It owns three concurrent
// loops for the life of the connection — the inbound result pump, the
// outbound Dispatcher, and the HealthPinger — torn down together as soon as
// any one of them returns, grounded on the original's three
// `tokio::spawn`-ed tasks (poll_results, the try_stream! dispatch loop, and
// ping_client) launched from a single `poll` RPC handler.
type AgentSession struct {
	clientID string
	store    store.Store
	stream   fleet.NotSSH_PollServer
	logger   *zap.Logger
}

func NewAgentSession(clientID string, st store.Store, stream fleet.NotSSH_PollServer, logger *zap.Logger) *AgentSession {
	return &AgentSession{
		clientID: clientID,
		store:    st,
		stream:   stream,
		logger:   logger.Named("session").With(zap.String("client_id", clientID)),
	}
}

// Run blocks until the session ends: the inbound pump sees the stream
// close, the Dispatcher sees the client marked disconnected, or ctx is
// cancelled (coordinator shutdown or session registry eviction). Whichever
// loop returns first determines the error returned; the others are
// cancelled via ctx and their errors discarded, matching the original's
// `tokio::spawn` fire-and-forget tasks, which log on their own and never
// propagate back into the RPC's return value. The inbound pump blocks in
// stream.Recv, which does not observe ctx, so Run does not wait for it:
// once Run returns, the Poll handler returns and the transport ends the
// stream, which unblocks Recv.
func (s *AgentSession) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	inbound := make(chan error, 1)
	go func() {
		defer cancel()
		inbound <- s.inboundPump(ctx)
	}()
	g.Go(func() error {
		defer cancel()
		return s.dispatch(ctx)
	})
	g.Go(func() error {
		defer cancel()
		return runHealthPinger(ctx, s.store, s.clientID, s.logger)
	})

	err := g.Wait()
	select {
	case inErr := <-inbound:
		if inErr != nil || errors.Is(err, context.Canceled) {
			err = inErr
		}
	default:
	}
	s.disconnect(context.Background())
	return err
}

// inboundPump reads Res messages the agent reports and applies them to the
// Action/command tables, grounded on the original's poll_results.
func (s *AgentSession) inboundPump(ctx context.Context) error {
	s.logger.Debug("begin polling results")
	for {
		res, err := s.stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				s.logger.Info("no more results from client")
				return nil
			}
			s.logger.Error("cannot receive result from client", zap.Error(err))
			return err
		}

		if err := s.applyResult(ctx, res); err != nil {
			s.logger.Error("cannot apply result", zap.Error(err))
			if res.Pong == nil && res.Purge == nil && res.Shell == nil {
				return err
			}
			continue
		}
	}
}

func (s *AgentSession) applyResult(ctx context.Context, res *fleet.Res) error {
	if res.Pong == nil && res.Purge == nil && res.Shell == nil {
		return errors.New("result carries none of pong/purge/shell")
	}

	return s.store.WithinTx(ctx, func(tx store.Tx) error {
		act, err := s.store.GetAction(ctx, tx, res.ID)
		if err != nil {
			return err
		}

		switch {
		case res.Pong != nil:
			if err := s.store.DeletePingCommand(ctx, tx, res.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			act.Result = []byte(res.Pong.Pong)
		case res.Purge != nil:
			act.Result = []byte("purged")
		case res.Shell != nil:
			if err := s.store.DeleteShellCommand(ctx, tx, res.ID); err != nil && !errors.Is(err, store.ErrNotFound) {
				return err
			}
			if res.Shell.Code != 0 {
				act.Error = res.Shell.Stderr
			} else {
				act.Result = res.Shell.Stdout
			}
		}
		act.State = store.StateFinished
		if err := s.store.UpdateAction(ctx, tx, act); err != nil {
			return err
		}

		client, err := s.store.GetClient(ctx, tx, s.clientID)
		if err != nil {
			return err
		}
		client.LastOnline = time.Now().UTC()
		return s.store.UpdateClient(ctx, tx, client)
	})
}

// disconnect marks the client as no longer connected. Called once the
// session's loops have all returned, mirroring poll_results' shutdown tail
// in the original.
func (s *AgentSession) disconnect(ctx context.Context) {
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		client, err := s.store.GetClient(ctx, tx, s.clientID)
		if err != nil {
			return err
		}
		client.Connected = false
		client.Address = ""
		client.LastOnline = time.Now().UTC()
		return s.store.UpdateClient(ctx, tx, client)
	})
	if err != nil {
		s.logger.Error("cannot mark client disconnected", zap.Error(err))
	}
}
