package coordinator

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSessionRegistryRegisterDeregister(t *testing.T) {
	r := NewSessionRegistry(newTestLogger())

	_, cancel := context.WithCancel(context.Background())
	r.Register("client-1", cancel)
	require.ElementsMatch(t, []string{"client-1"}, r.ConnectedClients())

	r.Deregister("client-1")
	require.Empty(t, r.ConnectedClients())
}

func TestSessionRegistryCancelAll(t *testing.T) {
	r := NewSessionRegistry(newTestLogger())

	ctx1, cancel1 := context.WithCancel(context.Background())
	ctx2, cancel2 := context.WithCancel(context.Background())
	r.Register("client-1", cancel1)
	r.Register("client-2", cancel2)

	r.CancelAll()

	require.Error(t, ctx1.Err())
	require.Error(t, ctx2.Err())
}

func TestSessionRegistryReplacesStaleEntry(t *testing.T) {
	r := NewSessionRegistry(newTestLogger())

	_, firstCancel := context.WithCancel(context.Background())
	r.Register("client-1", firstCancel)

	secondCtx, secondCancel := context.WithCancel(context.Background())
	r.Register("client-1", secondCancel)

	require.ElementsMatch(t, []string{"client-1"}, r.ConnectedClients())
	r.CancelAll()
	require.Error(t, secondCtx.Err())
}
