package push

import (
	"context"
	"fmt"
	"time"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"google.golang.org/api/option"

	"github.com/jwalitptl/appointment-api/pkg/circuitbreaker"
)

// Sender is the slice of *messaging.Client used for delivery.
type Sender interface {
	Send(ctx context.Context, message *messaging.Message) (string, error)
}

type FCMConfig struct {
	CredentialsFile string
	ProjectID       string
	SendTimeout     time.Duration
	// Consecutive failures before the breaker opens.
	BreakerFailures uint32
	BreakerCooldown time.Duration
}

// FCMDispatcher sends through Firebase Cloud Messaging behind a circuit
// breaker so a provider outage fails fast instead of stalling sweeps.
type FCMDispatcher struct {
	sender  Sender
	cb      *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  zerolog.Logger
}

func NewFCMDispatcher(ctx context.Context, cfg FCMConfig, logger zerolog.Logger) (*FCMDispatcher, error) {
	var appCfg *firebase.Config
	if cfg.ProjectID != "" {
		appCfg = &firebase.Config{ProjectID: cfg.ProjectID}
	}

	var opts []option.ClientOption
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	app, err := firebase.NewApp(ctx, appCfg, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}

	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create messaging client: %w", err)
	}

	return NewFCMDispatcherWithSender(client, cfg, logger), nil
}

func NewFCMDispatcherWithSender(sender Sender, cfg FCMConfig, logger zerolog.Logger) *FCMDispatcher {
	if cfg.SendTimeout <= 0 {
		cfg.SendTimeout = 10 * time.Second
	}
	if cfg.BreakerFailures == 0 {
		cfg.BreakerFailures = 5
	}
	if cfg.BreakerCooldown <= 0 {
		cfg.BreakerCooldown = 30 * time.Second
	}

	cb := circuitbreaker.New(circuitbreaker.Settings{
		Name:     "fcm",
		Failures: cfg.BreakerFailures,
		Cooldown: cfg.BreakerCooldown,
	}, logger)

	return &FCMDispatcher{
		sender:  sender,
		cb:      cb,
		timeout: cfg.SendTimeout,
		logger:  logger,
	}
}

func (d *FCMDispatcher) Dispatch(ctx context.Context, token, title, body string) Result {
	if token == "" {
		return Result{Err: ErrNoToken}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	id, err := d.cb.Execute(func() (interface{}, error) {
		return d.sender.Send(ctx, &messaging.Message{
			Token: token,
			Notification: &messaging.Notification{
				Title: title,
				Body:  body,
			},
		})
	})
	if err != nil {
		if messaging.IsUnregistered(err) {
			d.logger.Debug().Err(err).Msg("device token no longer registered")
		}
		return Result{Err: fmt.Errorf("fcm send: %w", err)}
	}

	return Result{Delivered: true, MessageID: id.(string)}
}
