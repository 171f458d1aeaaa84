package coordinator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	"go.uber.org/zap"

	"github.com/kjubybot/notssh-go/internal/store"
)

// clientTTL is how long a client may sit disconnected before the Sweeper
// deletes it, matching the original's CLIENT_TTL (24h of inactivity).
const clientTTL = 24 * time.Hour

// sweepInterval matches the original's hourly GC tick.
const sweepInterval = time.Hour

// Sweeper periodically deletes Finished actions (and their command payload
// rows) and stale disconnected clients, and forces every client offline on
// shutdown. Grounded on the original's gc(); scheduled here with
// go-co-op/gocron/v2, the same scheduler the teacher uses for policy runs,
// reused for a single fixed-interval job instead of per-policy cron
// expressions.
type Sweeper struct {
	cron   gocron.Scheduler
	store  store.Store
	logger *zap.Logger
}

func NewSweeper(st store.Store, logger *zap.Logger) (*Sweeper, error) {
	cron, err := gocron.NewScheduler()
	if err != nil {
		return nil, fmt.Errorf("sweeper: cannot create scheduler: %w", err)
	}
	return &Sweeper{cron: cron, store: st, logger: logger.Named("sweeper")}, nil
}

// Start registers the hourly sweep job and starts the scheduler.
func (s *Sweeper) Start() error {
	_, err := s.cron.NewJob(
		gocron.DurationJob(sweepInterval),
		gocron.NewTask(func() { s.sweep(context.Background()) }),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("sweeper: cannot schedule sweep job: %w", err)
	}
	s.logger.Info("starting GC")
	s.cron.Start()
	return nil
}

// Stop halts the scheduler and runs the final shutdown pass that forces
// every connected client offline, matching the original's gc() tail that
// runs once after the watch channel fires.
func (s *Sweeper) Stop(ctx context.Context) error {
	s.logger.Info("stopping GC")
	if err := s.cron.Shutdown(); err != nil {
		return fmt.Errorf("sweeper: cannot shut down scheduler: %w", err)
	}
	return s.store.WithinTx(ctx, func(tx store.Tx) error {
		return s.store.DisconnectAllClients(ctx, tx)
	})
}

func (s *Sweeper) sweep(ctx context.Context) {
	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		finished, err := s.store.ListActionsByState(ctx, tx, store.StateFinished, store.ListOptions{})
		if err != nil {
			return fmt.Errorf("cannot list finished actions: %w", err)
		}
		s.logger.Debug("removing finished actions", zap.Int("count", len(finished)))
		for _, act := range finished {
			var delErr error
			switch act.Command {
			case store.CommandPing:
				delErr = s.store.DeletePingCommand(ctx, tx, act.ID)
			case store.CommandPurge:
				delErr = nil
			case store.CommandShell:
				delErr = s.store.DeleteShellCommand(ctx, tx, act.ID)
			}
			if delErr != nil && !errors.Is(delErr, store.ErrNotFound) {
				s.logger.Error("cannot delete command from database", zap.Error(delErr), zap.String("action_id", act.ID))
				continue
			}
			if err := s.store.DeleteAction(ctx, tx, act.ID); err != nil {
				s.logger.Error("cannot delete action from database", zap.Error(err), zap.String("action_id", act.ID))
			}
		}

		stale, err := s.store.ListStaleClients(ctx, tx, clientTTL)
		if err != nil {
			return fmt.Errorf("cannot list disconnected clients: %w", err)
		}
		s.logger.Debug("removing stale clients", zap.Int("count", len(stale)))
		for _, client := range stale {
			if err := s.store.DeleteClient(ctx, tx, client.ID); err != nil {
				s.logger.Error("cannot delete stale client from database", zap.Error(err), zap.String("client_id", client.ID))
			}
		}
		return nil
	})
	if err != nil {
		s.logger.Error("sweep failed", zap.Error(err))
	}
}
