package coordinator

import (
	"context"
	"time"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kjubybot/notssh-go/internal/rpc/control"
	"github.com/kjubybot/notssh-go/internal/store"
)

const (
	pingTimeout  = 10 * time.Second
	purgeTimeout = 60 * time.Second
	shellTimeout = 3600 * time.Second
	waitPoll     = 2 * time.Second
)

// ControlService implements control.NotSSHCliServer, the operator-facing
// RPCs served over the local control socket. Grounded on the original's
// cli::CliServer.
type ControlService struct {
	control.UnimplementedNotSSHCliServer

	store  store.Store
	logger *zap.Logger
}

func NewControlService(st store.Store, logger *zap.Logger) *ControlService {
	return &ControlService{store: st, logger: logger.Named("control")}
}

func (c *ControlService) List(ctx context.Context, _ *control.ListRequest) (*control.ListResponse, error) {
	c.logger.Info("List")

	clients, err := c.store.ListClients(ctx, nil, store.ListOptions{})
	if err != nil {
		c.logger.Error("cannot get clients from database", zap.Error(err))
		return nil, toStatus(fromStore("cannot list clients", err))
	}

	out := make([]control.ClientInfo, 0, len(clients))
	for _, cl := range clients {
		address := cl.Address
		if address == "" {
			address = "-"
		}
		out = append(out, control.ClientInfo{ID: cl.ID, Address: address, Connected: cl.Connected})
	}
	return &control.ListResponse{Clients: out}, nil
}

func (c *ControlService) Ping(ctx context.Context, req *control.PingRequest) (*control.PingResponse, error) {
	c.logger.Info("Ping", zap.String("client_id", req.ID))

	const nonce = "ping"
	act := store.NewAction(req.ID, store.CommandPing)
	cmd := store.PingCommand{ActionID: act.ID, Data: nonce}

	if err := c.enqueue(ctx, req.ID, act, func(tx store.Tx) error {
		return c.store.CreatePingCommand(ctx, tx, cmd)
	}); err != nil {
		return nil, err
	}

	done, err := c.waitForResult(ctx, act.ID, pingTimeout)
	if err != nil {
		return nil, err
	}

	if done.Result != nil && string(done.Result) == nonce {
		return &control.PingResponse{}, nil
	}
	return nil, status.Error(codes.Unavailable, "could not receive ping from client")
}

func (c *ControlService) Purge(ctx context.Context, req *control.PurgeRequest) (*control.PurgeResponse, error) {
	c.logger.Info("Purge", zap.String("client_id", req.ID))

	act := store.NewAction(req.ID, store.CommandPurge)
	if err := c.enqueue(ctx, req.ID, act, nil); err != nil {
		return nil, err
	}

	done, err := c.waitForResult(ctx, act.ID, purgeTimeout)
	if err != nil {
		return nil, err
	}

	if done.Result != nil && string(done.Result) == "purged" {
		return &control.PurgeResponse{Text: string(done.Result)}, nil
	}
	return nil, status.Error(codes.Unavailable, "could not receive purge result from client")
}

func (c *ControlService) Shell(ctx context.Context, req *control.ShellRequest) (*control.ShellResponse, error) {
	c.logger.Info("Shell", zap.String("client_id", req.ID))

	act := store.NewAction(req.ID, store.CommandShell)
	cmd := store.ShellCommand{ActionID: act.ID, Cmd: req.Cmd, Args: encodeArgs(req.Args), Stdin: req.Stdin}

	if err := c.enqueue(ctx, req.ID, act, func(tx store.Tx) error {
		return c.store.CreateShellCommand(ctx, tx, cmd)
	}); err != nil {
		return nil, err
	}

	done, err := c.waitForResult(ctx, act.ID, shellTimeout)
	if err != nil {
		return nil, err
	}

	if done.Result != nil {
		return &control.ShellResponse{Stdout: done.Result}, nil
	}
	if done.Error != nil {
		return &control.ShellResponse{Stderr: done.Error}, nil
	}
	return nil, status.Error(codes.Unavailable, "cannot receive shell result from client")
}

// enqueue verifies the client exists, creates act, and runs extra (the
// command-specific payload insert) inside the same transaction.
func (c *ControlService) enqueue(ctx context.Context, clientID string, act store.Action, extra func(store.Tx) error) error {
	return c.store.WithinTx(ctx, func(tx store.Tx) error {
		if _, err := c.store.GetClient(ctx, tx, clientID); err != nil {
			return toStatus(fromStore("cannot get client from database", err))
		}
		if err := c.store.CreateAction(ctx, tx, act); err != nil {
			return toStatus(fromStore("cannot create action in database", err))
		}
		if extra != nil {
			if err := extra(tx); err != nil {
				return toStatus(fromStore("cannot create command in database", err))
			}
		}
		return nil
	})
}

// waitForResult polls every 2s until actionID reaches Finished or ctx's
// deadline (set by the caller's per-command timeout) expires, matching the
// original's wait_for_result.
func (c *ControlService) waitForResult(ctx context.Context, actionID string, timeout time.Duration) (store.Action, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ticker := time.NewTicker(waitPoll)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.logger.Error("gave up waiting for result", zap.String("action_id", actionID))
			return store.Action{}, status.Error(codes.DeadlineExceeded, "action timeout")
		case <-ticker.C:
		}

		act, err := c.store.GetAction(ctx, nil, actionID)
		if err != nil {
			c.logger.Error("cannot get action from database", zap.Error(err))
			continue
		}
		if act.State == store.StateFinished {
			return act, nil
		}
	}
}
