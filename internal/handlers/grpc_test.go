package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/thisdougb/gamehealth/internal/probe"
)

func checkService(t *testing.T, server *health.Server, service string) healthpb.HealthCheckResponse_ServingStatus {
	t.Helper()
	resp, err := server.Check(context.Background(), &healthpb.HealthCheckRequest{Service: service})
	if status.Code(err) == codes.NotFound {
		return healthpb.HealthCheckResponse_SERVICE_UNKNOWN
	}
	require.NoError(t, err)
	return resp.Status
}

func TestStatusPublisher(t *testing.T) {
	server := health.NewServer()
	publisher := NewStatusPublisher(server)

	publisher.Publish(probe.SystemHealthReport{
		Overall: probe.StatusWarning,
		Modules: []probe.ModuleHealthStatus{
			{ModuleID: "roulette", Status: probe.StatusHealthy},
			{ModuleID: "trivia", Status: probe.StatusWarning},
			{ModuleID: "poker", Status: probe.StatusError},
		},
	})

	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkService(t, server, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkService(t, server, ModuleService("roulette")))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, checkService(t, server, ModuleService("trivia")))
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkService(t, server, ModuleService("poker")))

	publisher.Publish(probe.SystemHealthReport{
		Overall: probe.StatusError,
		Modules: []probe.ModuleHealthStatus{
			{ModuleID: "roulette", Status: probe.StatusHealthy},
		},
	})

	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkService(t, server, ""))
	assert.Equal(t, healthpb.HealthCheckResponse_SERVICE_UNKNOWN, checkService(t, server, ModuleService("trivia")))

	publisher.Shutdown()
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, checkService(t, server, ModuleService("roulette")))
}
