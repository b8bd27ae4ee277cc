package grpcinterface

import (
	"fmt"
	"net"

	log "github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/senda-network/senda-daemon/internal/interfaces"
	"github.com/senda-network/senda-daemon/internal/interfaces/grpc/interceptor"
)

// EscrowServiceName is the name under which the health status of the escrow
// daemon is reported, along with the overall "" service.
const EscrowServiceName = "senda.v1.Escrow"

type ServiceOpts struct {
	Port int
}

func (o ServiceOpts) validate() error {
	if o.Port <= 0 {
		return fmt.Errorf("invalid grpc listening port %d", o.Port)
	}
	return nil
}

type service struct {
	opts   ServiceOpts
	server *grpc.Server
	health *health.Server
}

func NewService(opts ServiceOpts) (interfaces.Service, error) {
	if err := opts.validate(); err != nil {
		return nil, fmt.Errorf("invalid opts: %s", err)
	}
	return &service{opts: opts}, nil
}

func (s *service) Start() error {
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", s.opts.Port))
	if err != nil {
		return err
	}

	server := grpc.NewServer(
		interceptor.UnaryInterceptor(),
		interceptor.StreamInterceptor(),
	)
	healthSvc := health.NewServer()
	healthpb.RegisterHealthServer(server, healthSvc)
	healthSvc.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	healthSvc.SetServingStatus(
		EscrowServiceName, healthpb.HealthCheckResponse_SERVING,
	)

	go func() {
		if err := server.Serve(lis); err != nil {
			log.WithError(err).Error("grpc interface stopped unexpectedly")
		}
	}()

	s.server = server
	s.health = healthSvc
	log.Infof("grpc interface listening on %s", lis.Addr())
	return nil
}

func (s *service) Stop() {
	if s.server == nil {
		return
	}
	s.health.Shutdown()
	s.server.GracefulStop()
	log.Debug("disabled grpc interface")
}
