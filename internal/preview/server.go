package preview

import (
	"fmt"
	"net"
	"runtime"

	billy "github.com/go-git/go-billy/v5"
	nfs "github.com/willscott/go-nfs"
	nfshelper "github.com/willscott/go-nfs/helpers"

	"github.com/agentic-research/loom/internal/tree"
)

// Server serves an assembled tree over NFS.
type Server struct {
	listener net.Listener
	port     int
	swap     *SwapFS
}

// NewServer starts an NFS server on listen (":0" picks an ephemeral
// port), serving the given store read-only.
func NewServer(store *tree.Store, listen string) (*Server, error) {
	if listen == "" {
		listen = ":0"
	}
	listener, err := net.Listen("tcp", listen)
	if err != nil {
		return nil, fmt.Errorf("nfs listen: %w", err)
	}
	port := listener.Addr().(*net.TCPAddr).Port

	swap := NewSwapFS(NewReadOnly(store.Filesystem()))
	handler := nfshelper.NewNullAuthHandler(billy.Filesystem(swap))
	cacheHelper := nfshelper.NewCachingHandler(handler, 4096)

	go func() {
		_ = nfs.Serve(listener, cacheHelper)
	}()

	return &Server{listener: listener, port: port, swap: swap}, nil
}

// Port returns the TCP port the NFS server is listening on.
func (s *Server) Port() int {
	return s.port
}

// Swap replaces the served tree with a newly assembled one. Live mounts
// see the new content on their next operation.
func (s *Server) Swap(store *tree.Store) {
	s.swap.Swap(NewReadOnly(store.Filesystem()))
}

// Close stops the NFS server by closing the listener.
func (s *Server) Close() error {
	return s.listener.Close()
}

// MountCommand returns the OS-specific shell command that mounts this
// server at mountpoint. Printed for the user; never executed by loom.
func MountCommand(port int, mountpoint string) string {
	switch runtime.GOOS {
	case "darwin":
		return fmt.Sprintf(
			"sudo mount -t nfs -o port=%d,mountport=%d,vers=3,tcp,locallocks,noresvport,rdonly localhost:/ %s",
			port, port, mountpoint)
	default:
		return fmt.Sprintf(
			"sudo mount -t nfs -o port=%d,mountport=%d,vers=3,tcp,nolock,ro localhost:/ %s",
			port, port, mountpoint)
	}
}
