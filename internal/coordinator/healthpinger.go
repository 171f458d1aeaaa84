package coordinator

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/kjubybot/notssh-go/internal/store"
)

// pingInterval is how often the HealthPinger enqueues a Ping action for a
// connected client, matching the original's PING_INTERVAL.
const pingInterval = 60 * time.Second

// runHealthPinger enqueues a Ping action for clientID every pingInterval,
// stopping as soon as the client is no longer connected or ctx is
// cancelled. Grounded on the original's ping_client: it shares the
// Dispatcher's queue rather than writing to the stream directly, so the
// resulting ping goes through the same at-most-once delivery path as any
// operator-issued action.
func runHealthPinger(ctx context.Context, st store.Store, clientID string, logger *zap.Logger) error {
	logger = logger.Named("healthpinger")
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}

		client, err := st.GetClient(ctx, nil, clientID)
		if err != nil {
			logger.Error("cannot get client from database", zap.Error(err))
			return err
		}
		if !client.Connected {
			logger.Info("client is not connected, stopping")
			return nil
		}

		act := store.NewAction(clientID, store.CommandPing)
		cmd := store.PingCommand{ActionID: act.ID, Data: "ping"}

		err = st.WithinTx(ctx, func(tx store.Tx) error {
			if err := st.CreateAction(ctx, tx, act); err != nil {
				return err
			}
			return st.CreatePingCommand(ctx, tx, cmd)
		})
		if err != nil {
			logger.Error("cannot enqueue health ping", zap.Error(err))
			return err
		}
	}
}
