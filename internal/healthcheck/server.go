package healthcheck

import (
	"context"
	"net"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// Checker проверка одной зависимости
type Checker func(ctx context.Context) error

// Server gRPC health v1 с состоянием хранилища и сервиса инференса.
// Пустое имя сервиса отражает общее состояние: SERVING, только если проходят все проверки.
type Server struct {
	grpcServer *grpc.Server
	health     *health.Server
	checks     map[string]Checker
	logger     *logrus.Logger
}

// NewServer создает сервер; до первого Refresh все сервисы в состоянии NOT_SERVING
func NewServer(checks map[string]Checker, logger *logrus.Logger) *Server {
	s := &Server{
		grpcServer: grpc.NewServer(),
		health:     health.NewServer(),
		checks:     checks,
		logger:     logger,
	}

	s.health.SetServingStatus("", healthpb.HealthCheckResponse_NOT_SERVING)
	for name := range checks {
		s.health.SetServingStatus(name, healthpb.HealthCheckResponse_NOT_SERVING)
	}
	healthpb.RegisterHealthServer(s.grpcServer, s.health)
	return s
}

// Refresh выполняет все проверки и обновляет статусы
func (s *Server) Refresh(ctx context.Context) {
	names := make([]string, 0, len(s.checks))
	for name := range s.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	overall := healthpb.HealthCheckResponse_SERVING
	for _, name := range names {
		status := healthpb.HealthCheckResponse_SERVING
		if err := s.checks[name](ctx); err != nil {
			status = healthpb.HealthCheckResponse_NOT_SERVING
			overall = healthpb.HealthCheckResponse_NOT_SERVING
			s.logger.WithError(err).WithField("service", name).Warn("Проверка здоровья не пройдена")
		}
		s.health.SetServingStatus(name, status)
	}
	s.health.SetServingStatus("", overall)
}

// Run периодически обновляет статусы до отмены контекста
func (s *Server) Run(ctx context.Context, interval time.Duration) {
	s.Refresh(ctx)

	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.Refresh(ctx)
		}
	}
}

// Serve обслуживает gRPC на listener до Stop
func (s *Server) Serve(lis net.Listener) error {
	return s.grpcServer.Serve(lis)
}

// Stop переводит сервисы в NOT_SERVING и останавливает сервер
func (s *Server) Stop() {
	s.health.Shutdown()
	s.grpcServer.GracefulStop()
}
