// Package app wires the stores, delivery channels and services shared by the
// API and worker binaries.
package app

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/jwalitptl/appointment-api/internal/config"
	"github.com/jwalitptl/appointment-api/internal/repository"
	"github.com/jwalitptl/appointment-api/internal/repository/postgres"
	"github.com/jwalitptl/appointment-api/internal/service/notification"
	"github.com/jwalitptl/appointment-api/internal/worker"
	"github.com/jwalitptl/appointment-api/pkg/logger"
	"github.com/jwalitptl/appointment-api/pkg/messaging"
	"github.com/jwalitptl/appointment-api/pkg/messaging/redis"
	"github.com/jwalitptl/appointment-api/pkg/metrics"
	"github.com/jwalitptl/appointment-api/pkg/push"
)

type Repositories struct {
	Appointments  repository.AppointmentRepository
	Doctors       repository.DoctorRepository
	Patients      repository.PatientRepository
	Notifications repository.NotificationRepository
}

func NewRepositories(db *sqlx.DB) Repositories {
	base := postgres.NewBaseRepository(db)
	return Repositories{
		Appointments:  postgres.NewAppointmentRepository(db),
		Doctors:       postgres.NewDoctorRepository(db),
		Patients:      postgres.NewPatientRepository(base),
		Notifications: postgres.NewNotificationRepository(base),
	}
}

// Runtime holds the process-wide resources. Close releases them in reverse
// order of acquisition.
type Runtime struct {
	Config   *config.Config
	Location *time.Location
	DB       *sqlx.DB
	Repos    Repositories
	Notify   notification.Service

	broker *redis.RedisBroker
}

// Open connects to Postgres, applies migrations and builds the notification
// service with whichever delivery channels are configured.
func Open(ctx context.Context, cfg *config.Config, log *logger.Logger, m *metrics.Metrics) (*Runtime, error) {
	loc, err := cfg.Scheduling.Location()
	if err != nil {
		return nil, err
	}

	db, err := postgres.NewDB(cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	if err := postgres.Migrate(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	rt := &Runtime{
		Config:   cfg,
		Location: loc,
		DB:       db,
		Repos:    NewRepositories(db),
	}

	var broker messaging.Broker
	if cfg.Redis.Enabled {
		rb, err := redis.NewRedisBroker(redis.Config{
			URL:          cfg.Redis.URL,
			MaxRetries:   cfg.Redis.MaxRetries,
			RetryBackoff: cfg.Redis.RetryBackoff,
			PoolSize:     cfg.Redis.PoolSize,
			MinIdleConns: cfg.Redis.MinIdleConns,
		}, *log.Zerolog())
		if err != nil {
			// In-app delivery is best effort; run without it.
			log.Error(err, "redis broker unavailable, in-app delivery disabled")
		} else {
			rt.broker = rb
			broker = rb
		}
	}

	dispatcher, err := newDispatcher(ctx, cfg.Push, log)
	if err != nil {
		rt.Close()
		return nil, err
	}

	rt.Notify = notification.NewService(rt.Repos.Notifications, dispatcher, broker, cfg.Redis.Channel, log, m)
	return rt, nil
}

func newDispatcher(ctx context.Context, cfg config.PushConfig, log *logger.Logger) (push.Dispatcher, error) {
	if !cfg.Enabled {
		log.Warn("push delivery disabled, notifications will only be logged")
		return push.NewLogDispatcher(*log.Zerolog()), nil
	}
	d, err := push.NewFCMDispatcher(ctx, push.FCMConfig{
		CredentialsFile: cfg.CredentialsFile,
		ProjectID:       cfg.ProjectID,
		SendTimeout:     cfg.SendTimeout,
		BreakerFailures: cfg.BreakerFailures,
		BreakerCooldown: cfg.BreakerCooldown,
	}, *log.Zerolog())
	if err != nil {
		return nil, fmt.Errorf("failed to init push dispatcher: %w", err)
	}
	return d, nil
}

// Scheduler builds the sweep scheduler over the runtime's stores.
func (rt *Runtime) Scheduler(log *logger.Logger, m *metrics.Metrics) (*worker.Scheduler, error) {
	return worker.NewFromConfig(rt.Config.Sweeps, rt.Location, worker.Dependencies{
		Notifications: rt.Repos.Notifications,
		Appointments:  rt.Repos.Appointments,
		Deliverer:     rt.Notify,
	}, log, m)
}

func (rt *Runtime) Close() {
	if rt.broker != nil {
		rt.broker.Close()
	}
	if rt.DB != nil {
		rt.DB.Close()
	}
}
