package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Scrimzay/ballwars/internal/config"
	"github.com/Scrimzay/ballwars/internal/relay"
	"github.com/Scrimzay/ballwars/internal/server"
	"github.com/charmbracelet/log"
	"github.com/gin-gonic/gin"
	"golang.org/x/sync/errgroup"
)

func main() {
	logger := log.NewWithOptions(os.Stderr, log.Options{ReportTimestamp: true, Prefix: "relay"})
	logger.Info("=== STARTING BALLWARS RELAY ===")

	cfg, err := config.Load(logger)
	if err != nil {
		logger.Fatal("Bad configuration", "err", err)
	}
	logger.SetLevel(cfg.LogLevel)
	if cfg.LogLevel > log.DebugLevel {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("Creating hub...")
	hub := relay.NewHub(cfg.Settings(), logger)

	logger.Info("Setting up router...")
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           server.SetupRouter(hub, logger),
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, ctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		return hub.Run(ctx)
	})
	eg.Go(func() error {
		logger.Info("Server starting", "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-ctx.Done()
		logger.Info("=== SHUTTING DOWN ===")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := eg.Wait(); err != nil {
		logger.Fatal("Server failed", "err", err)
	}
}
