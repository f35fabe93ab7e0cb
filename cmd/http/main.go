package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"tokoku/marketplace/internal/config"
	"tokoku/marketplace/internal/handler"
	"tokoku/marketplace/internal/logger"
	"tokoku/marketplace/internal/metrics"
	"tokoku/marketplace/internal/repository"
	"tokoku/marketplace/internal/service"
	"tokoku/marketplace/internal/service/media"
)

const serviceName = "marketplace"

func main() {
	// 1. Load config
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load config: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(logger.Config{
		Level:       cfg.LogLevel,
		Environment: cfg.Env,
		ServiceName: serviceName,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to build logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()
	zap.ReplaceGlobals(log)

	// 2. Setup Database
	ctx := context.Background()
	poolCfg, err := pgxpool.ParseConfig(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to parse database URL", zap.Error(err))
	}
	poolCfg.MaxConns = int32(cfg.DBMaxConns)

	dbPool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer dbPool.Close()

	if err := dbPool.Ping(ctx); err != nil {
		log.Fatal("Failed to ping database", zap.Error(err))
	}

	repo := repository.NewMarketRepository(dbPool)
	if err := repo.Migrate(ctx); err != nil {
		log.Fatal("Failed to apply schema", zap.Error(err))
	}
	log.Info("Connected to database", zap.Int32("max_conns", poolCfg.MaxConns))

	// 3. Setup Logic
	images, err := media.NewClient(media.Config{
		CloudinaryURL: cfg.Media.CloudinaryURL,
		Source:        cfg.Media.Source,
		SpoolDir:      cfg.Media.SpoolDir,
		Folder:        cfg.Media.Folder,
	})
	if err != nil {
		log.Fatal("Failed to configure media uploader", zap.Error(err))
	}

	m := metrics.New(serviceName)

	h := handler.NewHandler(
		handler.Options{
			Logger:         log,
			Metrics:        m,
			AllowedOrigins: cfg.CORSAllowedOrigins,
			RequestTimeout: cfg.RequestTimeout,
		},
		handler.NewOrderHandler(service.NewOrderService(repo), m),
		handler.NewProfileHandler(service.NewProfileService(repo), m),
		handler.NewProductHandler(service.NewProductService(repo, images, cfg.DefaultSellerID), cfg.Media.MaxUploadSize),
	)

	// 4. Setup Server
	server := &http.Server{
		Addr:    ":" + cfg.ServerPort,
		Handler: h,
	}

	// 5. Run Server with Graceful Shutdown
	go func() {
		log.Info("Starting server", zap.String("port", cfg.ServerPort), zap.String("env", cfg.Env))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 2)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
		return
	}

	log.Info("Server exiting")
}
