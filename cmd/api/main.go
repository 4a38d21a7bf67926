package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/time/rate"

	"github.com/jwalitptl/appointment-api/internal/app"
	"github.com/jwalitptl/appointment-api/internal/config"
	appointmentHandler "github.com/jwalitptl/appointment-api/internal/handler/appointment"
	"github.com/jwalitptl/appointment-api/internal/handler/health"
	notificationHandler "github.com/jwalitptl/appointment-api/internal/handler/notification"
	patientHandler "github.com/jwalitptl/appointment-api/internal/handler/patient"
	"github.com/jwalitptl/appointment-api/internal/handler/prometheus"
	"github.com/jwalitptl/appointment-api/internal/middleware"
	"github.com/jwalitptl/appointment-api/internal/router"
	appointmentService "github.com/jwalitptl/appointment-api/internal/service/appointment"
	patientService "github.com/jwalitptl/appointment-api/internal/service/patient"
	"github.com/jwalitptl/appointment-api/internal/validator"
	"github.com/jwalitptl/appointment-api/internal/worker"
	"github.com/jwalitptl/appointment-api/pkg/auth"
	"github.com/jwalitptl/appointment-api/pkg/logger"
	"github.com/jwalitptl/appointment-api/pkg/metrics"
)

const metricsNamespace = "medapp"

func main() {
	configFile := flag.String("config", "", "path to config file")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	log := logger.Init(&logger.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})

	if err := run(cfg, log); err != nil {
		log.Error(err, "server exited with error")
		os.Exit(1)
	}
	log.Info("server exited")
}

// run owns every resource it opens, so returning releases them.
func run(cfg *config.Config, log *logger.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prom.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg, metricsNamespace)

	rt, err := app.Open(ctx, cfg, log, m)
	if err != nil {
		return fmt.Errorf("failed to initialize runtime: %w", err)
	}
	defer rt.Close()

	if err := validator.RegisterGin(); err != nil {
		return fmt.Errorf("failed to register validators: %w", err)
	}

	// Services
	appointments := appointmentService.NewService(
		rt.Repos.Appointments,
		rt.Repos.Doctors,
		rt.Repos.Patients,
		rt.Notify,
		appointmentService.Config{Location: rt.Location, PersistReminders: cfg.Scheduling.PersistReminders},
		log,
		m,
	)
	patients := patientService.NewService(rt.Repos.Patients, rt.Repos.Doctors, log)

	jwt := auth.NewJWTService(cfg.JWT.Secret, cfg.JWT.Issuer, time.Duration(cfg.JWT.ExpiryHours)*time.Hour)

	cors := middleware.DefaultCORSConfig()
	if len(cfg.Server.AllowOrigins) > 0 {
		cors.AllowOrigins = cfg.Server.AllowOrigins
	}

	r := router.NewRouter(middleware.NewAuthMiddleware(jwt), router.Handlers{
		Health:       health.NewHandler(rt.DB),
		Metrics:      prometheus.New(reg, metricsNamespace),
		Appointment:  appointmentHandler.NewHandler(appointments),
		Notification: notificationHandler.NewHandler(rt.Notify),
		Patient:      patientHandler.NewHandler(patients),
	}, router.RouterConfig{
		RateLimit:      rate.Limit(cfg.RateLimit.RequestsPerSecond),
		RateBurst:      cfg.RateLimit.Burst,
		RateClientTTL:  cfg.RateLimit.ClientTTL,
		RequestTimeout: cfg.Server.RequestTimeout,
		CORSConfig:     cors,
		Production:     cfg.IsProduction(),
	})

	var scheduler *worker.Scheduler
	if cfg.Sweeps.Embedded {
		scheduler, err = rt.Scheduler(log.WithFields(map[string]interface{}{"component": "scheduler"}), m)
		if err != nil {
			return fmt.Errorf("failed to build scheduler: %w", err)
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           r.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Info("server starting", "port", cfg.Server.Port, "environment", cfg.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error(err, "server failed")
			stop()
		}
	}()

	<-ctx.Done()
	log.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error(err, "server forced to shutdown")
	}
	if scheduler != nil {
		if err := scheduler.Stop(shutdownCtx); err != nil {
			log.Error(err, "scheduler did not stop in time")
		}
	}
	return nil
}
