// Package control defines the operator-facing RPC surface served over the
// local UNIX domain socket: List, Ping, Purge, Shell. All four are unary;
// see internal/rpc/fleet for the hand-written-stub rationale this package
// shares.
package control

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

type ListRequest struct{}

type ClientInfo struct {
	ID        string
	Address   string
	Connected bool
}

type ListResponse struct {
	Clients []ClientInfo
}

type PingRequest struct {
	ID string
}

type PingResponse struct{}

type PurgeRequest struct {
	ID string
}

type PurgeResponse struct {
	Text string
}

type ShellRequest struct {
	ID    string
	Cmd   string
	Args  []string
	Stdin []byte
}

type ShellResponse struct {
	Stdout []byte
	Stderr []byte
}

// NotSSHCliServer is the service notsshctl calls over the control socket.
type NotSSHCliServer interface {
	List(context.Context, *ListRequest) (*ListResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
	Purge(context.Context, *PurgeRequest) (*PurgeResponse, error)
	Shell(context.Context, *ShellRequest) (*ShellResponse, error)
}

func _NotSSHCli_List_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ListRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NotSSHCliServer).List(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/notssh.NotSSHCli/List"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(NotSSHCliServer).List(ctx, req.(*ListRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NotSSHCli_Ping_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PingRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NotSSHCliServer).Ping(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/notssh.NotSSHCli/Ping"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(NotSSHCliServer).Ping(ctx, req.(*PingRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NotSSHCli_Purge_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(PurgeRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NotSSHCliServer).Purge(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/notssh.NotSSHCli/Purge"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(NotSSHCliServer).Purge(ctx, req.(*PurgeRequest))
	}
	return interceptor(ctx, in, info, handler)
}

func _NotSSHCli_Shell_Handler(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
	in := new(ShellRequest)
	if err := dec(in); err != nil {
		return nil, err
	}
	if interceptor == nil {
		return srv.(NotSSHCliServer).Shell(ctx, in)
	}
	info := &grpc.UnaryServerInfo{Server: srv, FullMethod: "/notssh.NotSSHCli/Shell"}
	handler := func(ctx context.Context, req any) (any, error) {
		return srv.(NotSSHCliServer).Shell(ctx, req.(*ShellRequest))
	}
	return interceptor(ctx, in, info, handler)
}

// ServiceDesc is the grpc.ServiceDesc for NotSSHCliServer.
var ServiceDesc = grpc.ServiceDesc{
	ServiceName: "notssh.NotSSHCli",
	HandlerType: (*NotSSHCliServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "List", Handler: _NotSSHCli_List_Handler},
		{MethodName: "Ping", Handler: _NotSSHCli_Ping_Handler},
		{MethodName: "Purge", Handler: _NotSSHCli_Purge_Handler},
		{MethodName: "Shell", Handler: _NotSSHCli_Shell_Handler},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "notssh_cli.proto",
}

func RegisterNotSSHCliServer(s grpc.ServiceRegistrar, srv NotSSHCliServer) {
	s.RegisterService(&ServiceDesc, srv)
}

// NotSSHCliClient is the notsshctl-side stub.
type NotSSHCliClient interface {
	List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error)
	Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error)
	Purge(ctx context.Context, in *PurgeRequest, opts ...grpc.CallOption) (*PurgeResponse, error)
	Shell(ctx context.Context, in *ShellRequest, opts ...grpc.CallOption) (*ShellResponse, error)
}

type notSSHCliClient struct {
	cc grpc.ClientConnInterface
}

func NewNotSSHCliClient(cc grpc.ClientConnInterface) NotSSHCliClient {
	return &notSSHCliClient{cc}
}

func (c *notSSHCliClient) List(ctx context.Context, in *ListRequest, opts ...grpc.CallOption) (*ListResponse, error) {
	out := new(ListResponse)
	if err := c.cc.Invoke(ctx, "/notssh.NotSSHCli/List", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *notSSHCliClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	out := new(PingResponse)
	if err := c.cc.Invoke(ctx, "/notssh.NotSSHCli/Ping", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *notSSHCliClient) Purge(ctx context.Context, in *PurgeRequest, opts ...grpc.CallOption) (*PurgeResponse, error) {
	out := new(PurgeResponse)
	if err := c.cc.Invoke(ctx, "/notssh.NotSSHCli/Purge", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *notSSHCliClient) Shell(ctx context.Context, in *ShellRequest, opts ...grpc.CallOption) (*ShellResponse, error) {
	out := new(ShellResponse)
	if err := c.cc.Invoke(ctx, "/notssh.NotSSHCli/Shell", in, out, opts...); err != nil {
		return nil, err
	}
	return out, nil
}

var errUnimplemented = status.Error(codes.Unimplemented, "method not implemented")

// UnimplementedNotSSHCliServer can be embedded to satisfy NotSSHCliServer
// while new methods are added.
type UnimplementedNotSSHCliServer struct{}

func (UnimplementedNotSSHCliServer) List(context.Context, *ListRequest) (*ListResponse, error) {
	return nil, errUnimplemented
}
func (UnimplementedNotSSHCliServer) Ping(context.Context, *PingRequest) (*PingResponse, error) {
	return nil, errUnimplemented
}
func (UnimplementedNotSSHCliServer) Purge(context.Context, *PurgeRequest) (*PurgeResponse, error) {
	return nil, errUnimplemented
}
func (UnimplementedNotSSHCliServer) Shell(context.Context, *ShellRequest) (*ShellResponse, error) {
	return nil, errUnimplemented
}
