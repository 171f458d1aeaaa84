// Package fleet defines the agent-facing RPC surface: Register and the
// bidirectional Poll stream an agent holds open for its whole lifetime.
// Types and service descriptors here are hand-written in the shape
// protoc-gen-go-grpc would emit from a .proto mirroring the original's
// gen/notssh.rs, since no protoc toolchain is available to this build; see
// internal/rpc/codec for the wire encoding these messages are sent with.
package fleet

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/kjubybot/notssh-go/internal/rpc/codec"
)

// RegisterRequest carries no fields; the coordinator assigns a fresh id.
type RegisterRequest struct{}

// RegisterResponse carries the id the coordinator assigned this agent.
type RegisterResponse struct {
	ID string
}

// Ping is the agent's half of a ping round trip: it echoes the nonce back.
type Ping struct {
	Pong string
}

// Purge acknowledges a purge command; it carries no payload.
type Purge struct{}

// ShellResult carries a completed shell command's exit code and output.
type ShellResult struct {
	Code   int32
	Stdout []byte
	Stderr []byte
}

// Res is one message an agent sends on its Poll stream: the result of
// whichever action ID it is reporting on. Exactly one of Pong, Purge, Shell
// is set, mirroring the original's `oneof res.Result`.
type Res struct {
	ID    string
	Pong  *Ping
	Purge *Purge
	Shell *ShellResult
}

// PingCmd is the coordinator's half of a ping: the nonce the agent must echo.
type PingCmd struct {
	Ping string
}

// PurgeCmd instructs the agent to purge itself; no payload.
type PurgeCmd struct{}

// ShellCmd instructs the agent to execute cmd with args, feeding stdin.
type ShellCmd struct {
	Cmd   string
	Args  []string
	Stdin []byte
}

// Action is one message the coordinator sends down the Poll stream. Exactly
// one of Ping, Purge, Shell is set, mirroring the original's `oneof
// action.Command`.
type Action struct {
	ID    string
	Ping  *PingCmd
	Purge *PurgeCmd
	Shell *ShellCmd
}

// NotSSHServer is the service agents call. Implementations register with
// RegisterNotSSHServer.
type NotSSHServer interface {
	Register(context.Context, *RegisterRequest) (*RegisterResponse, error)
	Poll(NotSSH_PollServer) error
}

// NotSSH_PollServer is the server-side handle for the bidirectional Poll
// stream: Recv reads a Res the agent reports, Send writes an Action to
// dispatch.
type NotSSH_PollServer interface {
	Send(*Action) error
	Recv() (*Res, error)
	grpc.ServerStream
}

type notSSHPollServer struct {
	grpc.ServerStream
}

func (x *notSSHPollServer) Send(m *Action) error { return x.ServerStream.SendMsg(m) }
func (x *notSSHPollServer) Recv() (*Res, error) {
	m := new(Res)
	if err := x.ServerStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

func _NotSSH_Register_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(RegisterRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NotSSHServer).Register(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/notssh.NotSSH/Register"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(NotSSHServer).Register(ctx, req.(*RegisterRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NotSSH_Poll_Handler(srv any, stream grpc.ServerStream) error {
	return srv.(NotSSHServer).Poll(&notSSHPollServer{stream})
}

// ServiceDesc is the grpc.ServiceDesc for NotSSHServer, handed to
// grpc.Server.RegisterService the same way a generated *_grpc.pb.go would.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "notssh.NotSSH",
	HandlerType: (*NotSSHServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: _NotSSH_Register_Handler},
	},
	Streams: []grpc.StreamDesc{
		{
			StreamName:    "Poll",
			Handler:       _NotSSH_Poll_Handler,
			ServerStreams: true,
			ClientStreams: true,
		},
	},
	Metadata: "notssh.proto",
}

func RegisterNotSSHServer(s grpc.ServiceRegistrar, srv NotSSHServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// NotSSHClient is the agent-side stub.
type NotSSHClient interface {
	Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error)
	Poll(ctx context.Context, opts ...grpc.CallOption) (NotSSH_PollClient, error)
}

type notSSHClient struct {
	cc grpc.ClientConnInterface
}

func NewNotSSHClient(cc grpc.ClientConnInterface) NotSSHClient {
	return &notSSHClient{cc}
}

func (c *notSSHClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*RegisterResponse, error) {
	out := new(RegisterResponse)
	if err := c.cc.Invoke(ctx, "/notssh.NotSSH/Register", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

// NotSSH_PollClient is the client-side handle for the Poll stream: Send
// reports a Res, Recv reads the next dispatched Action.
type NotSSH_PollClient interface {
	Send(*Res) error
	Recv() (*Action, error)
	grpc.ClientStream
}

type notSSHPollClient struct {
	grpc.ClientStream
}

func (c *notSSHClient) Poll(ctx context.Context, opts ...grpc.CallOption) (NotSSH_PollClient, error) {
	stream, err := c.cc.NewStream(ctx, &ServiceDesc.Streams[0], "/notssh.NotSSH/Poll", opts...)
	if err != nil {
		return nil, err
	}
	return &notSSHPollClient{stream}, nil
}

func (x *notSSHPollClient) Send(m *Res) error { return x.ClientStream.SendMsg(m) }
func (x *notSSHPollClient) Recv() (*Action, error) {
	m := new(Action)
	if err := x.ClientStream.RecvMsg(m); err != nil {
		return nil, err
	}
	return m, nil
}

// CallOptionsWithCodec forces the gob-backed "proto" codec on a call. Dial
// options already register it process-wide via codec's init(), so this is
// rarely needed; it exists for tests that build calls without a full Dial.
func CallOptionsWithCodec() grpc.CallOption {
	return grpc.CallContentSubtype(codec.Name)
}

// errUnimplemented is returned by UnimplementedNotSSHServer's methods.
var errUnimplemented = status.Error(codes.Unimplemented, "method not implemented")

// UnimplementedNotSSHServer can be embedded to satisfy NotSSHServer while
// new methods are added, matching the forward-compatibility convention of
// protoc-gen-go-grpc's Unimplemented*Server types.
type UnimplementedNotSSHServer struct{}

func (UnimplementedNotSSHServer) Register(context.Context, *RegisterRequest) (*RegisterResponse, error) {
	return nil, errUnimplemented
}
func (UnimplementedNotSSHServer) Poll(NotSSH_PollServer) error { return errUnimplemented }
