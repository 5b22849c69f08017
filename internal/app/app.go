// Package app assembles the services shared by the HTTP server and the shell.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/stackit-qa/apiserver/config"
	"github.com/stackit-qa/apiserver/internal/db"
	"github.com/stackit-qa/apiserver/internal/mq"
	"github.com/stackit-qa/apiserver/internal/render"
	"github.com/stackit-qa/apiserver/internal/services"
	"github.com/stackit-qa/apiserver/internal/storage"
	"go.uber.org/zap"
)

// App holds the wired services and the connections backing them.
type App struct {
	Forum         *services.ForumService
	Notifications *services.NotificationService
	Identity      *services.IdentityService
	Help          *services.HelpBot
	Sanitizer     *render.Sanitizer
	Logger        *zap.Logger

	db      *sql.DB
	storage *storage.Storage
	mq      *mq.MQ
}

// New opens the configured backends, builds the services, restores the
// persisted session and seeds demo content when asked to.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Logger: logger, Sanitizer: render.NewSanitizer()}

	if cfg.Session.Backend == config.SessionBackendPostgres {
		conn, err := db.Open(ctx, cfg)
		if err != nil {
			return nil, fmt.Errorf("open database: %w", err)
		}
		a.db = conn
	}

	sessions, err := storage.Open(ctx, cfg, a.db)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.storage = sessions

	broker, err := mq.Open(ctx, cfg)
	if err != nil {
		a.Close()
		return nil, err
	}
	a.mq = broker

	if err := a.build(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	return a, nil
}

// NewInMemory builds the services over caller-provided session storage with
// no broker and no database.
func NewInMemory(ctx context.Context, cfg config.Config, sessions services.SessionStorage, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	a := &App{Logger: logger, Sanitizer: render.NewSanitizer()}
	if err := a.buildWith(ctx, cfg, sessions); err != nil {
		return nil, err
	}
	return a, nil
}

func (a *App) build(ctx context.Context, cfg config.Config) error {
	return a.buildWith(ctx, cfg, a.storage)
}

func (a *App) buildWith(ctx context.Context, cfg config.Config, sessions services.SessionStorage) error {
	notificationOpts := []services.NotificationOption{
		services.WithNotificationLogger(a.Logger.Named("notifications")),
	}
	if a.mq != nil {
		notificationOpts = append(notificationOpts, services.WithPublisher(a.mq, cfg.MQ.Channel))
	}
	a.Notifications = services.NewNotificationService(notificationOpts...)

	a.Forum = services.NewForumService(a.Notifications, services.WithForumLogger(a.Logger.Named("forum")))

	a.Identity = services.NewIdentityService(sessions, services.IdentityConfig{
		SessionKey:        cfg.Session.Key,
		Delay:             cfg.Auth.Delay,
		VerifyCredentials: cfg.Auth.Mode == config.AuthModeVerified,
		Logger:            a.Logger.Named("identity"),
	})

	help, err := services.NewHelpBot(services.DefaultHelpRules, cfg.Help.TypingDelay)
	if err != nil {
		return err
	}
	a.Help = help

	if cfg.SeedDemo {
		if err := services.SeedDemo(ctx, a.Forum, a.Identity); err != nil {
			return fmt.Errorf("seed demo content: %w", err)
		}
		a.Logger.Info("seeded demo content")
	}

	user, err := a.Identity.Restore(ctx)
	if err != nil {
		// A corrupt snapshot leaves the session signed out.
		a.Logger.Warn("failed to restore session", zap.Error(err))
	} else if user != nil {
		a.Logger.Info("restored session", zap.String("user_id", user.ID), zap.String("username", user.Username))
	}
	return nil
}

// Broker returns the message queue, or nil when none is configured.
func (a *App) Broker() *mq.MQ {
	return a.mq
}

// Close releases the broker, storage and database connections.
func (a *App) Close() {
	if a.mq != nil {
		if err := a.mq.Close(); err != nil {
			a.Logger.Warn("failed to close mq", zap.Error(err))
		}
	}
	if a.storage != nil {
		if err := a.storage.Close(); err != nil {
			a.Logger.Warn("failed to close storage", zap.Error(err))
		}
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}
