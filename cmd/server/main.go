package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"
	grpclib "google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	grpcadapter "github.com/simaogato/shiftescrow-backend/internal/adapter/grpc"
	httpadapter "github.com/simaogato/shiftescrow-backend/internal/adapter/http"
	"github.com/simaogato/shiftescrow-backend/internal/app"
	"github.com/simaogato/shiftescrow-backend/internal/config"
)

const shutdownTimeout = 10 * time.Second

func main() {
	configPath := os.Getenv("CONFIG_PATH")
	if configPath == "" {
		configPath = "configs/default.yaml"
	}

	// 1. Load configuration
	cfg, err := config.Load(configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logger := app.NewLogger(cfg.ServiceID)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 2. Initialize storage and services
	application, err := app.New(ctx, cfg, logger)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer func() {
		if err := application.Close(); err != nil {
			logger.Error("failed to close resources", "module", "cmd.server", "operation", "shutdown", "outcome", "failure", "error", err)
		}
	}()

	// 3. Initialize background workers
	locker, err := application.Locker(ctx)
	if err != nil {
		log.Fatalf("Failed to initialize sweeper lock: %v", err)
	}
	publisher, err := application.Publisher()
	if err != nil {
		log.Fatalf("Failed to initialize event publisher: %v", err)
	}
	sweep := application.Sweeper(locker)
	relay := application.OutboxWorker(publisher)

	// 4. Build gRPC server with logging and auth interceptors
	grpcServer := grpclib.NewServer(
		grpclib.ChainUnaryInterceptor(
			grpcadapter.LoggingInterceptor(logger),
			grpcadapter.AuthInterceptor(application.Tokens),
		),
	)
	grpcadapter.RegisterEscrowServiceServer(grpcServer, grpcadapter.NewServer(application.Ledger, application.Dispute, cfg.Rates()))
	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	reflection.Register(grpcServer)

	lis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		log.Fatalf("Failed to listen on %s: %v", cfg.GRPCAddr, err)
	}

	// 5. Build dashboard HTTP server
	handler := httpadapter.NewHandler(logger, application.Tokens, application.Ledger, application.Dispute, application.Dashboard, application.Ready)
	httpServer := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           httpadapter.NewRouter(handler),
		ReadHeaderTimeout: 5 * time.Second,
	}

	// 6. Run everything until a signal arrives or a component fails
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("gRPC server listening", "module", "cmd.server", "operation", "serve_grpc", "addr", cfg.GRPCAddr)
		return grpcServer.Serve(lis)
	})
	g.Go(func() error {
		logger.Info("HTTP server listening", "module", "cmd.server", "operation", "serve_http", "addr", cfg.HTTPAddr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return ignoreCanceled(sweep.Run(gctx))
	})
	g.Go(func() error {
		return ignoreCanceled(relay.Run(gctx))
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdown(logger, grpcServer, healthServer, httpServer)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped with error", "module", "cmd.server", "operation", "run", "outcome", "failure", "error", err)
		_ = application.Close()
		os.Exit(1)
	}
	logger.Info("server stopped", "module", "cmd.server", "operation", "run", "outcome", "success")
}

// shutdown drains both servers, forcing the gRPC server once the timeout expires
func shutdown(logger *slog.Logger, grpcServer *grpclib.Server, healthServer *health.Server, httpServer *http.Server) {
	logger.Info("shutting down gracefully", "module", "cmd.server", "operation", "shutdown")
	healthServer.Shutdown()

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		logger.Warn("http shutdown incomplete", "module", "cmd.server", "operation", "shutdown", "outcome", "failure", "error", err)
	}

	stopped := make(chan struct{})
	go func() {
		grpcServer.GracefulStop()
		close(stopped)
	}()
	select {
	case <-stopped:
	case <-ctx.Done():
		grpcServer.Stop()
	}
}

func ignoreCanceled(err error) error {
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
