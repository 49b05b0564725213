package main

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/roamkit/roamkit/internal/config"
	"github.com/roamkit/roamkit/internal/logging"
	"github.com/roamkit/roamkit/pkg/adapters/httpapi"
	"github.com/roamkit/roamkit/pkg/adapters/redisstore"
	"github.com/roamkit/roamkit/pkg/gate"
	"github.com/roamkit/roamkit/pkg/invoker"
	"github.com/roamkit/roamkit/pkg/orchestrator"
	"github.com/roamkit/roamkit/pkg/ports"
	"github.com/roamkit/roamkit/pkg/stages"
	"github.com/roamkit/roamkit/pkg/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the trip-planning HTTP server",
	Long:  `Starts the planner API: synchronous and streamed chat endpoints, session management, health and metrics.`,
	Run: func(cmd *cobra.Command, args []string) {
		configPath, _ := cmd.Flags().GetString("config")
		port, _ := cmd.Flags().GetString("port")
		verbose, _ := cmd.Flags().GetBool("verbose")

		cfg, err := config.Load(configPath)
		if err != nil {
			fmt.Printf("Error loading config: %v\n", err)
			os.Exit(1)
		}
		if port != "" {
			cfg.Server.Port = port
		}

		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger := logging.New(level)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		handler := buildHandler(ctx, cfg, logger)

		srv := &http.Server{
			Addr:    net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
			Handler: handler,
		}

		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("server listening", "addr", srv.Addr)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			logger.Error("server failed", "err", err)
			os.Exit(1)

		case <-ctx.Done():
			logger.Info("shutting down")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()

			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("graceful shutdown did not complete", "err", err)
				if err := srv.Close(); err != nil {
					logger.Error("forced close failed", "err", err)
				}
			}
			logger.Info("server stopped")
		}
	},
}

// buildHandler wires the whole stack: store with failover, gate,
// invoker, stage table, orchestrator, HTTP surface.
func buildHandler(ctx context.Context, cfg config.Config, logger *slog.Logger) http.Handler {
	var durable ports.StateStore
	if cfg.Redis.Addr != "" {
		durable = redisstore.New(cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	} else {
		logger.Warn("no redis address configured; state will not survive restarts")
	}

	failover := store.NewFailover(durable,
		store.WithLogger(logger),
		store.WithProbeInterval(cfg.Redis.ProbeInterval))
	go failover.StartProbing(ctx)

	inv := invoker.New(
		invoker.WithLogger(logger),
		invoker.WithAttempts(cfg.Invoker.Attempts),
		invoker.WithBackoff(cfg.Invoker.BaseBackoff, cfg.Invoker.JitterFraction),
		invoker.WithStageTimeout(cfg.Invoker.StageTimeout))

	table := orchestrator.StageTable(stages.Default(stages.NewCatalog()))

	orch := orchestrator.New(failover, table, inv,
		orchestrator.WithLogger(logger),
		orchestrator.WithStateTTL(cfg.Session.TTL),
		orchestrator.WithTurnTimeout(cfg.Session.TurnTimeout),
		orchestrator.WithMaxItineraryGap(cfg.Session.MaxItineraryGap),
		orchestrator.WithQueuedTurns(false))

	g := gate.New(failover, cfg.Rate.RequestsPerMinute, cfg.Rate.Burst, cfg.Session.TTL,
		gate.WithLogger(logger))

	if cfg.Server.APIKey == "" {
		logger.Warn("no api key configured; accepting any bearer token")
	}
	verifier := httpapi.StaticVerifier{Key: cfg.Server.APIKey}

	srv := httpapi.NewServer(orch, g, verifier,
		httpapi.WithLogger(logger),
		httpapi.WithAllowedOrigins(cfg.Server.AllowedOrigins))
	return srv.Handler()
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringP("port", "p", "", "Port to listen on (overrides config)")
	serveCmd.Flags().BoolP("verbose", "v", false, "Enable debug logging")
}
