package coordinator

import (
	"errors"
	"os"

	"google.golang.org/grpc"

	"github.com/kjubybot/notssh-go/internal/rpc/control"
)

func registerControl(s grpc.ServiceRegistrar, svc *ControlService) {
	control.RegisterNotSSHCliServer(s, svc)
}

// removeStaleSocket unlinks a leftover UNIX socket file from a previous run
// so net.Listen("unix", ...) can bind again, matching the original's
// fs::remove_file(&cfg.socket) with NotFound treated as success.
func removeStaleSocket(path string) error {
	err := os.Remove(path)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
