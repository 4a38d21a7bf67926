package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/jwalitptl/appointment-api/internal/app"
	"github.com/jwalitptl/appointment-api/internal/config"
	"github.com/jwalitptl/appointment-api/internal/handler/health"
	"github.com/jwalitptl/appointment-api/internal/handler/prometheus"
	"github.com/jwalitptl/appointment-api/internal/middleware"
	"github.com/jwalitptl/appointment-api/internal/repository/postgres"
	"github.com/jwalitptl/appointment-api/pkg/logger"
	"github.com/jwalitptl/appointment-api/pkg/metrics"
)

const metricsNamespace = "medapp"

var configFile string

func main() {
	root := &cobra.Command{
		Use:           "worker",
		Short:         "Runs reminder promotion and retention sweeps",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&configFile, "config", "", "path to config file")

	root.AddCommand(runCmd(), onceCmd(), migrateCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func setup() (*config.Config, *logger.Logger, error) {
	cfg, err := config.LoadConfig(configFile)
	if err != nil {
		return nil, nil, err
	}
	log := logger.Init(&logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	return cfg, log.WithFields(map[string]interface{}{"component": "worker"}), nil
}

func runCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Start the sweep scheduler and its health server",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			reg := prom.NewRegistry()
			m := metrics.NewMetrics(reg, metricsNamespace)

			rt, err := app.Open(ctx, cfg, log, m)
			if err != nil {
				return err
			}
			defer rt.Close()

			scheduler, err := rt.Scheduler(log, m)
			if err != nil {
				return err
			}

			if cfg.IsProduction() {
				gin.SetMode(gin.ReleaseMode)
			}
			promHandler := prometheus.New(reg, metricsNamespace)
			engine := gin.New()
			engine.Use(middleware.Recovery(), promHandler.Middleware())
			health.NewHandler(rt.DB).RegisterRoutes(engine)
			engine.GET("/metrics", promHandler.Handler())

			srv := &http.Server{
				Addr:              fmt.Sprintf(":%d", cfg.Sweeps.HealthPort),
				Handler:           engine,
				ReadHeaderTimeout: 5 * time.Second,
			}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error(err, "health server failed")
					stop()
				}
			}()

			scheduler.Start()
			<-ctx.Done()
			log.Info("shutting down worker")

			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				log.Error(err, "health server forced to shutdown")
			}
			return scheduler.Stop(shutdownCtx)
		},
	}
}

func onceCmd() *cobra.Command {
	var at string
	cmd := &cobra.Command{
		Use:   "once <job>",
		Short: "Run a single sweep immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			now := time.Now()
			if at != "" {
				parsed, err := time.Parse(time.RFC3339, at)
				if err != nil {
					return fmt.Errorf("invalid --now: %w", err)
				}
				now = parsed
			}

			cfg, log, err := setup()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			rt, err := app.Open(ctx, cfg, log, metrics.Nop())
			if err != nil {
				return err
			}
			defer rt.Close()

			scheduler, err := rt.Scheduler(log, metrics.Nop())
			if err != nil {
				return err
			}
			job, ok := scheduler.Job(args[0])
			if !ok {
				return fmt.Errorf("unknown job %q (available: %v)", args[0], scheduler.JobNames())
			}

			report, err := scheduler.RunOnce(ctx, job, now)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().StringVar(&at, "now", "", "evaluate the sweep at this RFC3339 instant")
	return cmd
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			db, err := postgres.NewDB(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()

			if err := postgres.Migrate(cmd.Context(), db); err != nil {
				return err
			}
			log.Info("schema up to date")
			return nil
		},
	}
}
