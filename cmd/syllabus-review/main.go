package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/joseph-ayodele/syllabus-review/internal/api"
	"github.com/joseph-ayodele/syllabus-review/internal/common"
	"github.com/joseph-ayodele/syllabus-review/internal/core"
	"github.com/joseph-ayodele/syllabus-review/internal/export"
	repo "github.com/joseph-ayodele/syllabus-review/internal/repository"
	svc "github.com/joseph-ayodele/syllabus-review/internal/server"
	"github.com/joseph-ayodele/syllabus-review/internal/services/session"
)

var version = "dev"

func main() {
	_ = godotenv.Load(".env")

	cfg := common.LoadConfig()
	logger := common.NewLogger(os.Stdout, cfg.Log)
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if !cfg.HasLLMCredential() {
		logger.Warn("no LLM credential configured, fallback fields will be Unknown", "provider", cfg.LLM.Provider)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	drv, err := repo.Open(ctx, repo.Config{}, logger)
	if err != nil {
		logger.Error("failed to open session store", "error", err)
		os.Exit(1)
	}
	defer repo.Close(drv, logger)

	if err := repo.HealthCheck(ctx, drv, 5*time.Second, logger); err != nil {
		logger.Error("failed to ping session store", "error", err)
		os.Exit(1)
	}

	pipeline, err := core.NewPipeline(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build pipeline", "error", err)
		os.Exit(1)
	}

	sessions := session.NewService(
		repo.NewSessionRepository(drv, logger),
		repo.NewDocumentRepository(drv, logger),
		pipeline.Processor,
		pipeline.Catalog,
		export.NewService(logger),
		cfg.Session,
		logger,
	)
	go sessions.Run(ctx)

	// HTTP
	health := func(ctx context.Context) error { return repo.HealthCheck(ctx, drv, 2*time.Second, logger) }
	e := api.NewServer(api.NewHandler(sessions, health, version, logger), cfg.Server.UploadMaxBytes, logger)
	go func() {
		logger.Info("http listening", "addr", cfg.Server.HTTPAddr)
		if err := e.Start(cfg.Server.HTTPAddr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	// gRPC
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	grpcServer, healthServer := svc.NewGRPCServer(svc.NewReviewService(sessions, logger), logger)
	go func() {
		logger.Info("grpc listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcServer.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	healthServer.Shutdown()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown error", "error", err)
	}
	grpcServer.GracefulStop()
}
