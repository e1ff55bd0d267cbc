package daemon

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"

	"github.com/matheus3301/tabroom/internal/api"
	"github.com/matheus3301/tabroom/internal/lock"
	"github.com/matheus3301/tabroom/internal/profile"
	"go.uber.org/zap"
	"google.golang.org/grpc"
)

// Server is the tab's control plane: a gRPC server on the session socket.
type Server struct {
	grpc   *grpc.Server
	ln     net.Listener
	path   string
	logger *zap.Logger
}

// NewServer binds the session socket. Requiring the lock guarantees that any
// socket file already present belongs to a dead daemon.
func NewServer(p Params, _ *lock.Lock, logger *zap.Logger, tabSvc *api.TabService) (*Server, error) {
	path := p.SocketPath
	if path == "" {
		path = profile.SocketPath(p.Profile, p.Session)
	}

	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("remove stale socket: %w", err)
	}
	ln, err := net.Listen("unix", path)
	if err != nil {
		return nil, fmt.Errorf("listen %s: %w", path, err)
	}
	if err := os.Chmod(path, 0600); err != nil {
		_ = ln.Close()
		return nil, fmt.Errorf("chmod socket: %w", err)
	}

	srv := grpc.NewServer()
	api.RegisterTabServiceServer(srv, tabSvc)
	return &Server{grpc: srv, ln: ln, path: path, logger: logger.Named("grpc")}, nil
}

// SocketPath returns the bound socket path.
func (s *Server) SocketPath() string {
	return s.path
}

// Start serves until Stop. A stopped server returns nil.
func (s *Server) Start() error {
	s.logger.Info("serving", zap.String("socket", s.path))
	err := s.grpc.Serve(s.ln)
	if errors.Is(err, grpc.ErrServerStopped) {
		return nil
	}
	return err
}

// Stop drains in-flight calls, forcing the remaining ones closed when ctx ends,
// and removes the socket.
func (s *Server) Stop(ctx context.Context) {
	drained := make(chan struct{})
	go func() {
		s.grpc.GracefulStop()
		close(drained)
	}()
	select {
	case <-drained:
	case <-ctx.Done():
		s.logger.Warn("graceful stop timed out, closing connections")
		s.grpc.Stop()
		<-drained
	}
	_ = os.Remove(s.path)
	s.logger.Info("stopped")
}
