package coordinator

import (
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"google.golang.org/grpc/metadata"

	"github.com/kjubybot/notssh-go/internal/rpc/fleet"
	"github.com/kjubybot/notssh-go/internal/store"
)

func newTestStore(t *testing.T) store.Store {
	t.Helper()
	s, _, err := store.Open(store.Config{
		Driver: "sqlite",
		DSN:    "file::memory:?cache=shared",
		Logger: zap.NewNop(),
	})
	require.NoError(t, err)
	return s
}

func newTestLogger() *zap.Logger {
	return zap.NewNop()
}

// fakeServerStream is a minimal, in-memory stand-in for fleet.NotSSH_PollServer:
// Send hands an Action to the test over toClient, Recv delivers a Res the
// test injects over fromClient. Closing fromClient makes Recv return io.EOF,
// the way a real client closing its send half would.
type fakeServerStream struct {
	ctx        context.Context
	toClient   chan *fleet.Action
	fromClient chan *fleet.Res
}

func newFakeServerStream(ctx context.Context) *fakeServerStream {
	return &fakeServerStream{
		ctx:        ctx,
		toClient:   make(chan *fleet.Action, 16),
		fromClient: make(chan *fleet.Res, 16),
	}
}

func (f *fakeServerStream) Send(a *fleet.Action) error {
	select {
	case f.toClient <- a:
		return nil
	case <-f.ctx.Done():
		return f.ctx.Err()
	}
}

func (f *fakeServerStream) Recv() (*fleet.Res, error) {
	select {
	case r, ok := <-f.fromClient:
		if !ok {
			return nil, io.EOF
		}
		return r, nil
	case <-f.ctx.Done():
		return nil, f.ctx.Err()
	}
}

func (f *fakeServerStream) SetHeader(metadata.MD) error  { return nil }
func (f *fakeServerStream) SendHeader(metadata.MD) error { return nil }
func (f *fakeServerStream) SetTrailer(metadata.MD)       {}
func (f *fakeServerStream) Context() context.Context     { return f.ctx }
func (f *fakeServerStream) SendMsg(any) error            { return nil }
func (f *fakeServerStream) RecvMsg(any) error            { return nil }

var _ fleet.NotSSH_PollServer = (*fakeServerStream)(nil)
