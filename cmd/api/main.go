package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/safar/storefront/internal/api"
	"github.com/safar/storefront/internal/config"
	"github.com/safar/storefront/internal/database"
	"github.com/safar/storefront/internal/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Load config: %v", err)
	}

	logg := logger.New(cfg.Log)
	defer logg.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	db, err := database.NewConnection(ctx, &cfg.Database, logg)
	if err != nil {
		logg.Fatal("connect to database", zap.Error(err))
	}
	defer db.Close()

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      api.NewRouter(db, logg),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	if err := serve(ctx, server, logg); err != nil {
		logg.Error("server error", zap.Error(err))
	}
}

// serve runs server until ctx is done or the listener fails, then shuts it
// down. A listener failure is returned so main can still run its deferred
// cleanup.
func serve(ctx context.Context, server *http.Server, logg *zap.Logger) error {
	serveErr := make(chan error, 1)
	go func() {
		logg.Info("server starting", zap.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serveErr <- err
		}
	}()

	var err error
	select {
	case <-ctx.Done():
		logg.Info("shutting down server")
	case err = <-serveErr:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if shutdownErr := server.Shutdown(shutdownCtx); shutdownErr != nil {
		logg.Error("server forced to shutdown", zap.Error(shutdownErr))
	}
	return err
}
