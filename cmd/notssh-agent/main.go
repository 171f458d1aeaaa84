// Command notssh-agent is the reference notssh agent: it registers with a
// coordinator, persists the assigned id, and executes whatever ping, purge,
// or shell actions are dispatched down its Poll stream. It is intentionally
// thin — no local job queue, no metrics, no TLS — matching this spec's
// Non-goal scope for the agent binary.
package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"os"
	"os/exec"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"

	"github.com/kjubybot/notssh-go/internal/rpc/fleet"

	_ "github.com/kjubybot/notssh-go/internal/rpc/codec"
)

const (
	backoffInitial = time.Second
	backoffMax     = 60 * time.Second
	backoffFactor  = 2.0
	jitterFraction = 0.2
)

type args struct {
	endpoint string
	idFile   string
	logLevel string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &args{}

	root := &cobra.Command{
		Use:   "notssh-agent",
		Short: "notssh agent — connects to a coordinator and executes dispatched actions",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return run(cmd.Context(), a)
		},
	}

	root.Flags().StringVarP(&a.endpoint, "endpoint", "e", "", "coordinator address (example: 192.168.1.2:3144)")
	root.Flags().StringVarP(&a.idFile, "client-id", "c", defaultIDFile(), "path to id file")
	root.Flags().StringVarP(&a.logLevel, "log-level", "l", "warn", "log level (debug, info, warn, error)")
	root.MarkFlagRequired("endpoint") //nolint:errcheck

	return root
}

func defaultIDFile() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".notssh_id"
	}
	return filepath.Join(home, ".notssh_id")
}

func run(ctx context.Context, a *args) error {
	logger, err := buildLogger(a.logLevel)
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	ag := &agent{
		endpoint: a.endpoint,
		idFile:   a.idFile,
		logger:   logger,
	}
	ag.run(ctx)
	return nil
}

// agent holds the persistent connection state across reconnects: the
// assigned client id, once known, is reused for every future Poll.
type agent struct {
	endpoint string
	idFile   string
	logger   *zap.Logger

	id string
}

// run is the outer reconnect loop: connect, register if needed, poll until
// the stream fails, then retry with exponential backoff + jitter. Blocks
// until ctx is cancelled.
func (a *agent) run(ctx context.Context) {
	a.id = a.loadID()

	backoff := backoffInitial
	for {
		if ctx.Err() != nil {
			a.logger.Info("agent stopped")
			return
		}

		a.logger.Info("connecting", zap.String("endpoint", a.endpoint))
		if err := a.connect(ctx); err != nil {
			a.logger.Warn("session failed, retrying",
				zap.Error(err),
				zap.Duration("backoff", backoff),
			)
			select {
			case <-ctx.Done():
				return
			case <-time.After(jitter(backoff)):
			}
			backoff = nextBackoff(backoff)
			continue
		}

		backoff = backoffInitial
	}
}

// connect dials the coordinator, registers if no id is known yet, and runs
// the Poll loop until it ends.
func (a *agent) connect(ctx context.Context) error {
	conn, err := grpc.NewClient(
		a.endpoint,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return fmt.Errorf("dial failed: %w", err)
	}
	defer conn.Close()

	client := fleet.NewNotSSHClient(conn)

	if a.id == "" {
		resp, err := client.Register(ctx, &fleet.RegisterRequest{})
		if err != nil {
			return fmt.Errorf("register failed: %w", err)
		}
		a.id = resp.ID
		if err := a.saveID(a.id); err != nil {
			a.logger.Warn("failed to persist client id", zap.Error(err))
		}
		a.logger.Info("registered", zap.String("client_id", a.id))
	}

	outCtx := metadata.NewOutgoingContext(ctx, metadata.Pairs("x-client-id", a.id))
	stream, err := client.Poll(outCtx)
	if err != nil {
		return fmt.Errorf("poll open failed: %w", err)
	}

	return a.pollLoop(stream)
}

// pollLoop receives dispatched actions and executes each one, sending its
// result back on the same stream, until Recv fails.
func (a *agent) pollLoop(stream fleet.NotSSH_PollClient) error {
	for {
		act, err := stream.Recv()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("poll recv: %w", err)
		}

		res := a.execute(act)
		if err := stream.Send(res); err != nil {
			return fmt.Errorf("poll send: %w", err)
		}
	}
}

// execute runs the one command set on act and builds the matching Res.
func (a *agent) execute(act *fleet.Action) *fleet.Res {
	switch {
	case act.Ping != nil:
		return &fleet.Res{ID: act.ID, Pong: &fleet.Ping{Pong: act.Ping.Ping}}
	case act.Purge != nil:
		a.logger.Warn("purge requested, removing persisted id")
		if err := os.Remove(a.idFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			a.logger.Warn("failed to remove id file", zap.Error(err))
		}
		return &fleet.Res{ID: act.ID, Purge: &fleet.Purge{}}
	case act.Shell != nil:
		return &fleet.Res{ID: act.ID, Shell: a.runShell(act.Shell)}
	default:
		a.logger.Error("action contains no command", zap.String("action_id", act.ID))
		return &fleet.Res{ID: act.ID}
	}
}

func (a *agent) runShell(cmd *fleet.ShellCmd) *fleet.ShellResult {
	c := exec.Command(cmd.Cmd, cmd.Args...)
	c.Stdin = bytes.NewReader(cmd.Stdin)

	var stdout, stderr bytes.Buffer
	c.Stdout = &stdout
	c.Stderr = &stderr

	code := 0
	if err := c.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			code = exitErr.ExitCode()
		} else {
			a.logger.Error("shell command failed to start", zap.Error(err))
			code = -1
		}
	}

	return &fleet.ShellResult{
		Code:   int32(code),
		Stdout: stdout.Bytes(),
		Stderr: stderr.Bytes(),
	}
}

func (a *agent) loadID() string {
	data, err := os.ReadFile(a.idFile)
	if err != nil {
		return ""
	}
	return string(bytes.TrimSpace(data))
}

func (a *agent) saveID(id string) error {
	return os.WriteFile(a.idFile, []byte(id), 0o600)
}

func nextBackoff(current time.Duration) time.Duration {
	next := time.Duration(float64(current) * backoffFactor)
	if next > backoffMax {
		return backoffMax
	}
	return next
}

func jitter(d time.Duration) time.Duration {
	delta := float64(d) * jitterFraction
	offset := (rand.Float64()*2 - 1) * delta
	return time.Duration(float64(d) + offset)
}

func buildLogger(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	switch level {
	case "debug":
		cfg = zap.NewDevelopmentConfig()
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	case "info":
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case "warn":
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case "error":
		cfg.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	default:
		cfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	}
	return cfg.Build()
}
