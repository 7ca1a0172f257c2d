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

	"github.com/joseph-ayodele/order-intake/internal/auth"
	"github.com/joseph-ayodele/order-intake/internal/bootstrap"
	"github.com/joseph-ayodele/order-intake/internal/common"
	"github.com/joseph-ayodele/order-intake/internal/export"
	repo "github.com/joseph-ayodele/order-intake/internal/repository"
	"github.com/joseph-ayodele/order-intake/internal/server"
	"github.com/joseph-ayodele/order-intake/internal/services/order"
)

func main() {
	cfg := common.LoadConfig()
	logger := bootstrap.NewLogger(cfg.Log, os.Stdout)
	slog.SetDefault(logger)

	usedDevSecret, err := cfg.Validate()
	if err != nil {
		logger.Error("invalid configuration", "error", err)
		os.Exit(2)
	}
	if usedDevSecret {
		logger.Warn("SECRET_KEY not set, using the development key; do not run this in production")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := bootstrap.OpenDatabase(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	extractor, err := bootstrap.NewExtractor(cfg, logger)
	if err != nil {
		logger.Error("failed to build extractor", "error", err)
		os.Exit(1)
	}

	ordersRepo := repo.NewOrderRepository(db, logger)
	usersRepo := repo.NewUserRepository(db, logger)
	activityRepo := repo.NewActivityRepository(db, logger)

	orderService := order.NewService(ordersRepo, extractor, cfg.Extract.Timeout, logger)
	authService := auth.NewService(usersRepo, auth.NewTokenIssuer(cfg.Auth.SecretKey, cfg.Auth.TokenExpiresIn), logger)
	exportService := export.NewService(ordersRepo, logger)

	api := server.New(orderService, authService, exportService, activityRepo, server.Options{
		MaxUploadBytes: cfg.Server.MaxUploadBytes,
		Production:     cfg.IsProduction(),
	}, logger)

	httpServer := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		// uploads may sit in the extractor for up to EXTRACT_TIMEOUT
		WriteTimeout: cfg.Extract.Timeout + 30*time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	// gRPC admin listener: health + reflection
	admin := server.NewAdmin(db, logger)
	if cfg.Server.GRPCAddr != "" {
		lis, err := net.Listen("tcp", cfg.Server.GRPCAddr)
		if err != nil {
			logger.Error("failed to listen on address", "addr", cfg.Server.GRPCAddr, "error", err)
			os.Exit(1)
		}
		go admin.Watch(ctx, 15*time.Second)
		go func() {
			if err := admin.Serve(lis); err != nil {
				logger.Error("gRPC serve error", "error", err)
			}
		}()
	}

	go func() {
		logger.Info("order-intake listening", "addr", cfg.Server.HTTPAddr, "environment", cfg.Environment)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http serve error", "error", err)
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Error("http shutdown", "error", err)
	}
	admin.Stop()
}
