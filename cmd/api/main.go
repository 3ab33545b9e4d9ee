package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/circulx/products-rag/internal/app"
	"github.com/circulx/products-rag/internal/config"
	apphttp "github.com/circulx/products-rag/internal/http"
	"github.com/circulx/products-rag/internal/logger"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.Load()
	log := logger.Must(cfg.LogLevel, cfg.LogFormat)
	defer func() { _ = log.Sync() }()

	a := app.New(app.NewConnector(cfg, log.Named("startup")), log.Named("startup"))
	defer func() {
		if err := a.Close(); err != nil {
			log.Warn("closing clients", zap.Error(err))
		}
	}()

	h := apphttp.NewHandler(a, log.Named("http"))
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           apphttp.NewRouter(h, log.Named("http")),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("API listening", zap.String("addr", srv.Addr))
		errCh <- srv.ListenAndServe()
	}()

	// Startup runs in the background; /query reports Loading until it is done.
	a.Start(ctx)

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("server failed", zap.Error(err))
		}
	case <-ctx.Done():
		log.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("graceful shutdown failed", zap.Error(err))
		}
	}
}
