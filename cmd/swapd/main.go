package main

import (
	"context"
	"flag"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"swapd/config"
	"swapd/gateway"
	"swapd/native/escrow"
	"swapd/observability/logging"
	"swapd/state"
	"swapd/storage"
)

func main() {
	var cfgPath string
	flag.StringVar(&cfgPath, "config", "./config.toml", "path to daemon configuration")
	flag.Parse()

	cfg, err := config.Load(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup("swapd", cfg.LogEnv, cfg.LogFile)
	logger.Info("starting", "network", cfg.NetworkName, "dataDir", cfg.DataDir)

	db, err := storage.NewLevelDB(filepath.Join(cfg.DataDir, "chaindata"))
	if err != nil {
		logger.Error("open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	manager := state.NewManager(db)
	engine := escrow.NewEngine()
	engine.SetState(manager)
	if cfg.RentDeposit > 0 {
		engine.SetRentDeposit(cfg.RentDeposit)
	}

	server := gateway.NewServer(engine, logger, prometheus.DefaultRegisterer)
	httpServer := &http.Server{
		Addr:         cfg.ListenAddress,
		Handler:      server.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	listener, err := net.Listen("tcp", cfg.ListenAddress)
	if err != nil {
		logger.Error("listen", "error", err)
		os.Exit(1)
	}
	go func() {
		logger.Info("listening", "address", listener.Addr().String())
		if serveErr := httpServer.Serve(listener); serveErr != nil && serveErr != http.ErrServerClosed {
			logger.Error("serve", "error", serveErr)
			stop()
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.Warn("graceful shutdown failed", "error", err)
	}
	logger.Info("stopped")
}
