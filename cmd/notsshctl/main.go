// Command notsshctl is the thin operator CLI for notssh: it dials the
// coordinator's control socket and issues one List, Ping, Purge, or Shell
// request per invocation.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	"github.com/kjubybot/notssh-go/internal/rpc/control"

	_ "github.com/kjubybot/notssh-go/internal/rpc/codec"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var socket string

	root := &cobra.Command{
		Use:   "notsshctl",
		Short: "notsshctl — operate a notssh fleet from the command line",
	}
	root.PersistentFlags().StringVarP(&socket, "socket", "s", "/run/notssh/cli.sock", "coordinator control socket")

	root.AddCommand(
		newListCmd(&socket),
		newPingCmd(&socket),
		newPurgeCmd(&socket),
		newShellCmd(&socket),
	)
	return root
}

func dial(socket string) (control.NotSSHCliClient, *grpc.ClientConn, error) {
	conn, err := grpc.NewClient(
		"unix:"+socket,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("cannot dial control socket %s: %w", socket, err)
	}
	conn.Connect()
	return control.NewNotSSHCliClient(conn), conn, nil
}

func newListCmd(socket *string) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "list known clients",
		RunE: func(cmd *cobra.Command, _ []string) error {
			client, conn, err := dial(*socket)
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := client.List(cmd.Context(), &control.ListRequest{})
			if err != nil {
				return err
			}
			for _, c := range resp.Clients {
				fmt.Printf("%s\t%s\tconnected=%t\n", c.ID, c.Address, c.Connected)
			}
			return nil
		},
	}
}

func newPingCmd(socket *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ping <client-id>",
		Short: "ping a client and wait for the round trip",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, conn, err := dial(*socket)
			if err != nil {
				return err
			}
			defer conn.Close()

			if _, err := client.Ping(cmd.Context(), &control.PingRequest{ID: args[0]}); err != nil {
				return err
			}
			fmt.Println("pong")
			return nil
		},
	}
}

func newPurgeCmd(socket *string) *cobra.Command {
	return &cobra.Command{
		Use:   "purge <client-id>",
		Short: "instruct a client to purge itself and wait for confirmation",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, conn, err := dial(*socket)
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := client.Purge(cmd.Context(), &control.PurgeRequest{ID: args[0]})
			if err != nil {
				return err
			}
			fmt.Println(resp.Text)
			return nil
		},
	}
}

func newShellCmd(socket *string) *cobra.Command {
	var stdinArg string

	cmd := &cobra.Command{
		Use:   "shell <client-id> <command> [args...]",
		Short: "run a shell command on a client and print its output",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			client, conn, err := dial(*socket)
			if err != nil {
				return err
			}
			defer conn.Close()

			resp, err := client.Shell(cmd.Context(), &control.ShellRequest{
				ID:    args[0],
				Cmd:   args[1],
				Args:  args[2:],
				Stdin: []byte(stdinArg),
			})
			if err != nil {
				return err
			}
			os.Stdout.Write(resp.Stdout)
			os.Stderr.Write(resp.Stderr)
			return nil
		},
	}
	cmd.Flags().StringVar(&stdinArg, "stdin", "", "data to feed the command on stdin")
	return cmd
}
