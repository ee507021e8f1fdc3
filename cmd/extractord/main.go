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

	"github.com/joseph-ayodele/mxdocs-extractor/internal/app"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/common"
	"github.com/joseph-ayodele/mxdocs-extractor/internal/server"
)

func main() {
	cfg := common.LoadConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.LogLevel}))
	slog.SetDefault(logger)

	if err := cfg.Validate(); err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// thresholds are calibrated here; the service does not start without them
	a, err := app.New(ctx, cfg, app.Options{}, logger)
	if err != nil {
		logger.Error("failed to start extractor", "error", err)
		os.Exit(1)
	}
	defer a.Close()
	for dt, p := range a.Profiles.All() {
		logger.Info("thresholds.loaded", "doc_type", dt, "mean_length", p.MeanLength, "min_length", p.MinLength)
	}

	opts := []server.Option{
		server.WithMetrics(a.Metrics),
		server.WithRequestTimeout(cfg.Server.RequestTimeout),
		server.WithMaxBodyBytes(cfg.Server.MaxBodyBytes),
	}
	var health server.HealthChecker
	if a.DB != nil {
		health = a.DB
		opts = append(opts, server.WithJobs(a.Jobs), server.WithHealth(a.DB))
	}
	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           server.NewServer(a.Processor, logger, opts...).Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	grpcSrv, hs := server.NewGRPCServer(logger)
	lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
	if err != nil {
		logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
		os.Exit(1)
	}
	go server.WatchHealth(ctx, hs, health, 15*time.Second, logger)

	go func() {
		logger.Info("grpc health listening", "addr", cfg.Server.GRPCAddr)
		if err := grpcSrv.Serve(lis); err != nil {
			logger.Error("gRPC serve error", "error", err)
			stop()
		}
	}()
	go func() {
		logger.Info("mxdocs-extractor listening", "addr", cfg.Server.HTTPAddr)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", "error", err)
	}
	grpcSrv.GracefulStop()
	logger.Info("stopped")
}
