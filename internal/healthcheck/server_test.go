package healthcheck

import (
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/test/bufconn"
)

func startServer(t *testing.T, checks map[string]Checker) (*Server, healthpb.HealthClient) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)

	server := NewServer(checks, log)
	lis := bufconn.Listen(1 << 20)
	go func() { _ = server.Serve(lis) }()
	t.Cleanup(server.Stop)

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) {
			return lis.DialContext(ctx)
		}),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return server, healthpb.NewHealthClient(conn)
}

func status(t *testing.T, client healthpb.HealthClient, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	resp, err := client.Check(ctx, &healthpb.HealthCheckRequest{Service: service})
	require.NoError(t, err)
	return resp.GetStatus()
}

func TestRefreshReportsPerService(t *testing.T) {
	inferenceErr := errors.New("connection refused")
	server, client := startServer(t, map[string]Checker{
		"storage":   func(context.Context) error { return nil },
		"inference": func(context.Context) error { return inferenceErr },
	})

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, client, "storage"))

	server.Refresh(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, client, "storage"))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, client, "inference"))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, status(t, client, ""))

	inferenceErr = nil
	server.Refresh(context.Background())
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, client, "inference"))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, status(t, client, ""))
}

func TestRunStopsWithContext(t *testing.T) {
	server, client := startServer(t, map[string]Checker{
		"storage": func(context.Context) error { return nil },
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		server.Run(ctx, 10*time.Millisecond)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		resp, err := client.Check(context.Background(), &healthpb.HealthCheckRequest{})
		return err == nil && resp.GetStatus() == healthpb.HealthCheckResponse_SERVING
	}, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
