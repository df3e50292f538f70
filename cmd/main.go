package main

import (
	"context"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rafaeljonasferreira-web/presence-dashboard/config"
	"github.com/rafaeljonasferreira-web/presence-dashboard/internal/service"
	httpx "github.com/rafaeljonasferreira-web/presence-dashboard/internal/transport/http"
	"github.com/rafaeljonasferreira-web/presence-dashboard/internal/transport/ws"
	"github.com/rafaeljonasferreira-web/presence-dashboard/pkg/logger"
	"github.com/rafaeljonasferreira-web/presence-dashboard/web"
)

func main() {
	// --- config ---
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger.Init(logger.Config{
		Env:       logger.Env(cfg.Logging.Env),
		Service:   cfg.Logging.Service,
		Version:   cfg.Logging.Version,
		Backend:   logger.Backend(cfg.Logging.Backend),
		AddSource: cfg.Logging.AddSource,
		Debug:     cfg.Logging.Debug,
	})
	slog.Info("starting presence-dashboard",
		"env", cfg.Logging.Env, "version", cfg.Logging.Version)

	// --- presence core ---
	ledger := service.NewLedger()
	hub := ws.NewHub()
	wsServer := ws.NewServer(hub, ledger)
	broadcaster := service.NewBroadcaster(ledger, hub, cfg.BroadcastInterval())

	// --- HTTP ---
	router := httpx.NewRouter(wsServer, web.Assets())
	httpSrv := &http.Server{
		Addr:         cfg.HTTP.Addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- run ---
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go broadcaster.Run(ctx)

	errCh := make(chan error, 1)
	go func() {
		slog.Info("http listen", "addr", cfg.HTTP.Addr)
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	// --- graceful shutdown ---
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		slog.Info("shutdown signal", "sig", sig)
	case err := <-errCh:
		slog.Error("server error", "err", err)
	}

	cancel() // stop the broadcaster

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	_ = httpSrv.Shutdown(ctxShutdown)
	slog.Info("stopped")
}
