package grpc

import (
	"context"
	"net"
	"time"

	"github.com/dmitrijs2005/moodkeeper/internal/coprocessor"
	"github.com/dmitrijs2005/moodkeeper/internal/logging"
	"github.com/dmitrijs2005/moodkeeper/internal/relayerapi"
	"google.golang.org/grpc"
)

// GRPCServer exposes the mock coprocessor over the relayer wire contract.
type GRPCServer struct {
	address   string
	cp        *coprocessor.Coprocessor
	logger    logging.Logger
	jwtSecret []byte

	// shutdownTimeout bounds GracefulStop; zero waits for in-flight calls.
	shutdownTimeout time.Duration
}

func NewGRPCServer(a string, l logging.Logger, cp *coprocessor.Coprocessor, secretKey string) *GRPCServer {
	return &GRPCServer{
		address:   a,
		logger:    l.With("module", "grpc_server"),
		cp:        cp,
		jwtSecret: []byte(secretKey),
	}
}

// WithShutdownTimeout forces a hard stop when a graceful one takes longer
// than d.
func (s *GRPCServer) WithShutdownTimeout(d time.Duration) *GRPCServer {
	s.shutdownTimeout = d
	return s
}

// Register attaches the relayer service to srv.
func (s *GRPCServer) Register(srv *grpc.Server) {
	relayerapi.RegisterServer(srv, s)
}

// NewServer builds a grpc.Server with the access-token interceptor.
func (s *GRPCServer) NewServer(opts ...grpc.ServerOption) *grpc.Server {
	opts = append([]grpc.ServerOption{grpc.ChainUnaryInterceptor(s.loggingInterceptor, s.accessTokenInterceptor)}, opts...)
	srv := grpc.NewServer(opts...)
	s.Register(srv)
	return srv
}

// Serve accepts connections on lis until ctx is cancelled.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv := s.NewServer()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		s.stop(srv)
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String(), "kms", s.cp.KMSAddress().Hex())

	return srv.Serve(lis)
}

func (s *GRPCServer) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

func (s *GRPCServer) stop(srv *grpc.Server) {
	if s.shutdownTimeout <= 0 {
		srv.GracefulStop()
		return
	}

	stopped := make(chan struct{})
	go func() {
		srv.GracefulStop()
		close(stopped)
	}()

	timer := time.NewTimer(s.shutdownTimeout)
	defer timer.Stop()

	select {
	case <-stopped:
	case <-timer.C:
		s.logger.Warn(context.Background(), "graceful stop timed out, forcing")
		srv.Stop()
	}
}
