// Command gamehealthd serves the health HTTP API and gRPC health service
// of a monitor configured from the HEALTH_* environment.
package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	grpchealth "google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"github.com/thisdougb/gamehealth"
	"github.com/thisdougb/gamehealth/internal/config"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "gamehealthd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = config.SetContextCorrelationId(ctx, "gamehealthd")

	monitor, err := health.NewMonitor(ctx)
	if err != nil {
		return fmt.Errorf("start monitor: %w", err)
	}
	defer func() {
		if err := monitor.Close(); err != nil {
			config.LogError(ctx, fmt.Sprintf("close monitor: %v", err))
		}
	}()

	httpServer := &http.Server{
		Addr:              config.StringValue("HEALTH_HTTP_ADDR"),
		Handler:           monitor.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := grpchealth.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	monitor.PublishTo(healthSrv)

	lis, err := net.Listen("tcp", config.StringValue("HEALTH_GRPC_ADDR"))
	if err != nil {
		return fmt.Errorf("listen gRPC: %w", err)
	}

	errCh := make(chan error, 3)
	go func() {
		config.LogInfo(ctx, "http server started on "+httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("http server: %w", err)
		}
	}()
	go func() {
		config.LogInfo(ctx, "grpc server started on "+lis.Addr().String())
		if err := grpcServer.Serve(lis); err != nil {
			errCh <- fmt.Errorf("grpc server: %w", err)
		}
	}()
	go func() {
		if err := monitor.RunEvery(ctx, config.DurationValue("HEALTH_CHECK_INTERVAL"), ""); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- fmt.Errorf("health checks: %w", err)
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
		config.LogInfo(ctx, "shutdown signal received")
	case runErr = <-errCh:
		config.LogError(ctx, runErr.Error())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	healthSrv.Shutdown()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		config.LogWarn(ctx, fmt.Sprintf("http shutdown: %v", err))
	}
	grpcServer.GracefulStop()
	return runErr
}
