package cmd

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/patrickmn/go-cache"
	"github.com/spf13/cobra"

	"github.com/pocketledger/ledger-core/api"
	"github.com/pocketledger/ledger-core/currency"
	"github.com/pocketledger/ledger-core/ledger"
	"github.com/pocketledger/ledger-core/schedule"
	"github.com/pocketledger/ledger-core/store/sqlite"
	"github.com/pocketledger/ledger-core/wishlist"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	RunE: func(cmd *cobra.Command, args []string) error {
		store, err := sqlite.New(cfg.DatabasePath)
		if err != nil {
			return err
		}
		defer store.Close()

		registry := currency.NewRegistry()
		ledgerSvc := ledger.NewService(store, registry, ledger.WithLogger(log))
		wishSvc := wishlist.NewService(store, ledgerSvc)
		engine := schedule.NewEngine(store, ledgerSvc)
		engine.Log = log

		balanceCache := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
		handler := api.NewHandler(ledgerSvc, wishSvc, engine, registry, balanceCache, log)
		auth := api.NewTokenAuthority(cfg.JWTSecret)
		router := api.NewRouter(handler, auth, api.RouterConfig{
			CORSOrigins:  cfg.CORSOrigins,
			RateLimitRPS: cfg.RateLimitRPS,
			RateBurst:    cfg.RateBurst,
		})

		if cfg.ReplayInterval > 0 {
			scheduler := api.NewReplayScheduler(store, engine, log)
			scheduler.Handler = handler
			scheduler.CheckInterval = cfg.ReplayInterval
			scheduler.Start()
			defer scheduler.Stop()
		}

		server := &http.Server{
			Addr:         ":" + cfg.Port,
			Handler:      router,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		}

		go func() {
			log.Info("server starting", "addr", server.Addr, "db", cfg.DatabasePath)
			if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.Error("server failed", "error", err)
				os.Exit(1)
			}
		}()

		quit := make(chan os.Signal, 1)
		signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
		<-quit

		log.Info("shutting down server")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			return err
		}

		log.Info("server stopped")
		return nil
	},
}
