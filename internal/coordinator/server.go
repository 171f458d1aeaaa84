package coordinator

import (
	"context"
	"fmt"
	"net"
	"net/netip"

	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"

	"github.com/kjubybot/notssh-go/internal/rpc/fleet"
	"github.com/kjubybot/notssh-go/internal/store"
)

// clientIDHeader is the gRPC metadata key an agent presents its assigned id
// in on every Poll call, matching the original's "x-client-id" header.
const clientIDHeader = "x-client-id"

// Server implements fleet.NotSSHServer, the agent-facing service. Grounded
// on the original's api::Server and the teacher's grpc.Server wiring. No
// interceptor is installed: agents identify themselves by presenting their
// own previously-issued id in the x-client-id header, which Poll reads
// directly, matching this spec's Non-goals.
type Server struct {
	fleet.UnimplementedNotSSHServer

	store    store.Store
	registry *SessionRegistry
	logger   *zap.Logger
}

func NewServer(st store.Store, registry *SessionRegistry, logger *zap.Logger) *Server {
	return &Server{store: st, registry: registry, logger: logger.Named("fleet")}
}

func (s *Server) Register(ctx context.Context, _ *fleet.RegisterRequest) (*fleet.RegisterResponse, error) {
	s.logger.Info("Register")

	client := store.NewClientWithAddress(peerAddr(ctx))

	err := s.store.WithinTx(ctx, func(tx store.Tx) error {
		return s.store.CreateClient(ctx, tx, client)
	})
	if err != nil {
		s.logger.Error("cannot insert client in database", zap.Error(err))
		return nil, toStatus(fromStore("cannot insert client in database", err))
	}

	s.logger.Info("new client registered", zap.String("client_id", client.ID))
	return &fleet.RegisterResponse{ID: client.ID}, nil
}

func (s *Server) Poll(stream fleet.NotSSH_PollServer) error {
	s.logger.Info("Poll")

	ctx := stream.Context()
	id, err := clientIDFromContext(ctx)
	if err != nil {
		return err
	}

	ok, err := s.store.ConnectClient(ctx, nil, id, peerAddr(ctx))
	if err != nil {
		s.logger.Error("cannot get client from database", zap.Error(err))
		return toStatus(fromStore("cannot get client from database", err))
	}
	if !ok {
		return status.Error(codes.InvalidArgument, "client is already connected")
	}

	s.logger.Info("client connected", zap.String("client_id", id))

	sessionCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.registry.Register(id, cancel)
	defer s.registry.Deregister(id)

	session := NewAgentSession(id, s.store, stream, s.logger)
	return session.Run(sessionCtx)
}

func clientIDFromContext(ctx context.Context) (string, error) {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return "", status.Error(codes.InvalidArgument, "x-client-id header is missing")
	}
	vals := md.Get(clientIDHeader)
	if len(vals) == 0 || vals[0] == "" {
		return "", status.Error(codes.InvalidArgument, "x-client-id header is missing")
	}
	return vals[0], nil
}

func peerAddr(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return ""
	}
	if ap, err := netip.ParseAddrPort(p.Addr.String()); err == nil {
		return ap.String()
	}
	return p.Addr.String()
}

// ListenAndServe starts the agent-facing gRPC server on listenAddr and
// blocks until ctx is cancelled or a fatal error occurs.
func (s *Server) ListenAndServe(ctx context.Context, listenAddr string) error {
	lis, err := net.Listen("tcp", listenAddr)
	if err != nil {
		return fmt.Errorf("coordinator: failed to listen on %s: %w", listenAddr, err)
	}

	grpcServer := grpc.NewServer()
	fleet.RegisterNotSSHServer(grpcServer, s)

	go func() {
		<-ctx.Done()
		s.logger.Info("fleet server shutting down gracefully")
		s.registry.CancelAll()
		grpcServer.GracefulStop()
	}()

	s.logger.Info("fleet server listening", zap.String("addr", listenAddr))
	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("coordinator: server error: %w", err)
	}
	return nil
}

// ListenAndServeControl starts the operator-facing control service over a
// UNIX domain socket at socketPath, mirroring the original's
// UnixListenerStream-backed tonic server.
func ListenAndServeControl(ctx context.Context, socketPath string, svc *ControlService) error {
	if err := removeStaleSocket(socketPath); err != nil {
		return fmt.Errorf("coordinator: cannot remove stale socket: %w", err)
	}

	lis, err := net.Listen("unix", socketPath)
	if err != nil {
		return fmt.Errorf("coordinator: failed to listen on %s: %w", socketPath, err)
	}

	grpcServer := grpc.NewServer()
	registerControl(grpcServer, svc)

	go func() {
		<-ctx.Done()
		svc.logger.Info("control server shutting down gracefully")
		grpcServer.GracefulStop()
	}()

	svc.logger.Info("control server listening", zap.String("socket", socketPath))
	if err := grpcServer.Serve(lis); err != nil {
		return fmt.Errorf("coordinator: control server error: %w", err)
	}
	return nil
}
