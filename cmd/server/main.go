package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	api "github.com/Outercircl-dev/backend/internal/api/grpc"
	"github.com/Outercircl-dev/backend/internal/api/grpc/interceptor"
	httpapi "github.com/Outercircl-dev/backend/internal/api/http"
	"github.com/Outercircl-dev/backend/internal/bootstrap"
	"github.com/Outercircl-dev/backend/internal/config"
	"github.com/Outercircl-dev/backend/internal/logger"
	"github.com/Outercircl-dev/backend/internal/notify"
	"github.com/Outercircl-dev/backend/internal/security"
	"github.com/Outercircl-dev/backend/internal/service"
)

func main() {
	// Parse command-line flags
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize logger
	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Outercircl participation backend...", "log_level", cfg.Log.Level, "log_format", cfg.Log.Format)
	logger.Info("Server configuration", "address", cfg.GetServerAddress(), "ops_address", cfg.GetOpsAddress())

	ctx := context.Background()

	// Initialize Database
	db, err := bootstrap.OpenDatabase(ctx, cfg)
	if err != nil {
		logger.Error("Failed to connect to database", "error", err)
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	// Initialize Metrics and Repositories
	m, registry := bootstrap.NewMetrics(cfg)
	store := bootstrap.NewStore(db, cfg, m)

	// Initialize event delivery
	notifier, err := bootstrap.NewNotifier(ctx, cfg, store, m)
	if err != nil {
		logger.Error("Failed to initialize notifier", "error", err)
		log.Fatalf("Failed to initialize notifier: %v", err)
	}
	defer notifier.Close()

	var inline service.EventDispatcher
	background := notify.NewBackgroundDelivery(notifier.Dispatcher, cfg.Outbox.InlineTimeout())
	if *cfg.Outbox.DispatchInline {
		inline = background
	} else {
		logger.Info("Inline dispatch disabled; events are delivered by the outbox sweep")
	}

	// Initialize Services
	moderation := service.AllowModeration
	if !*cfg.Participation.ModerationEnabled {
		moderation = service.DenyModeration
	}
	participationSvc := service.NewParticipationService(store, service.NewCapacityGate(moderation), inline, m)

	// Initialize Security
	tokenManager := security.NewTokenManager(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.AccessTokenExpiry)*time.Minute)
	authInterceptor := interceptor.NewAuthInterceptor(tokenManager)

	// Set up gRPC server
	lis, err := net.Listen("tcp", cfg.GetServerAddress())
	if err != nil {
		logger.Error("Failed to listen", "error", err, "address", cfg.GetServerAddress())
		log.Fatalf("Failed to listen: %v", err)
	}

	s := grpc.NewServer(
		grpc.UnaryInterceptor(authInterceptor.Unary()),
	)

	// Register services
	api.RegisterParticipationServiceServer(s, api.NewParticipationHandler(participationSvc))
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(api.ParticipationServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(s, healthSrv)

	// Register reflection service for grpcurl
	reflection.Register(s)

	// Set up HTTP server for health and metrics
	opsServer := &http.Server{
		Addr:              cfg.GetOpsAddress(),
		Handler:           httpapi.NewOpsRouter(store, registry),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		logger.Info("Ops HTTP server listening", "address", opsServer.Addr)
		if err := opsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
		<-sigChan

		logger.Info("Shutting down...")
		healthSrv.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := opsServer.Shutdown(shutdownCtx); err != nil {
			logger.Error("Failed to shut down HTTP server", "error", err)
		}
		s.GracefulStop()
	}()

	logger.Info("gRPC server listening", "address", cfg.GetServerAddress())
	if err := s.Serve(lis); err != nil {
		logger.Error("Failed to serve gRPC", "error", err)
		log.Fatalf("Failed to serve: %v", err)
	}
	background.Wait()
	logger.Info("Server stopped. Goodbye!")
}
