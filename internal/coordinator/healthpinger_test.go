package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// runHealthPinger only checks the client's connected state once per
// pingInterval tick, so the fastest deterministic behavior to exercise
// without waiting out the real interval is immediate cancellation.
func TestRunHealthPingerStopsOnCancel(t *testing.T) {
	st := newTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := runHealthPinger(ctx, st, "does-not-matter", newTestLogger())
	require.ErrorIs(t, err, context.Canceled)
}
