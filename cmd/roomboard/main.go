package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dukerupert/roomboard/internal/apiclient"
	"github.com/dukerupert/roomboard/internal/config"
	"github.com/dukerupert/roomboard/internal/database"
	"github.com/dukerupert/roomboard/internal/logging"
	"github.com/dukerupert/roomboard/internal/roomwatch"
	"github.com/dukerupert/roomboard/internal/server"
	"github.com/dukerupert/roomboard/internal/session"
	"github.com/dukerupert/roomboard/internal/store"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "roomboard: %v\n", err)
		os.Exit(1)
	}

	logger := logging.Setup(cfg.LogLevel, cfg.LogFormat)

	db, err := database.Open(cfg.DBPath)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	client := apiclient.NewClient(cfg.APIBaseURL,
		apiclient.WithHTTPClient(&http.Client{Timeout: cfg.APITimeout}),
		apiclient.WithLogger(logger),
	)

	sealer, err := session.NewSealer(cfg.SessionSecret)
	if err != nil {
		slog.Error("session sealer", "error", err)
		os.Exit(1)
	}
	manager := session.NewManager(store.NewSessionStore(db), client, sealer, cfg.SessionTTL, logger)

	loc := cfg.Location()
	srv, err := server.New(client, manager, server.Options{
		EnforceAdmin: cfg.EnforceAdmin,
		Location:     loc,
		Watch: roomwatch.Config{
			Refresh: cfg.RefreshInterval,
			Clock:   cfg.ClockInterval,
		},
		AllowedOrigins: cfg.AllowedOrigins,
		TrustProxy:     cfg.TrustProxy,
		Now:            func() time.Time { return time.Now().In(loc) },
	}, logger)
	if err != nil {
		slog.Error("failed to build server", "error", err)
		os.Exit(1)
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       10 * time.Second,
		// No WriteTimeout: kiosk sockets stay open for hours. Upstream calls
		// are bounded by the API client timeout.
		IdleTimeout: 120 * time.Second,
	}

	reaper := session.NewReaper(manager, time.Hour)
	reaper.Start(context.Background())

	cleanupCtx, cleanupCancel := context.WithCancel(context.Background())
	defer cleanupCancel()
	go func() {
		ticker := time.NewTicker(10 * time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				srv.RateLimiter().Cleanup()
			case <-cleanupCtx.Done():
				return
			}
		}
	}()

	go func() {
		slog.Info("roomboard starting",
			"addr", cfg.Addr(),
			"api", cfg.APIBaseURL,
			"timezone", loc.String(),
			"enforce_admin", cfg.EnforceAdmin,
		)
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down", "kiosk_clients", srv.Hub().ClientCount())
	cleanupCancel()
	reaper.Stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(ctx); err != nil {
		slog.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
