package app

import (
	"context"
	"time"

	httpapi "github.com/shestoi/GoMarket/internal/profile/api/http"
	"github.com/shestoi/GoMarket/internal/profile/config"
	mongorepo "github.com/shestoi/GoMarket/internal/profile/repository/mongo"
	"github.com/shestoi/GoMarket/internal/profile/service"
	platformapp "github.com/shestoi/GoMarket/platform/app"
)

// App Profile Service: consumers order-created / cart-updated / order-status-changed и HTTP API профилей
type App struct {
	base *platformapp.Base
}

// Build создаёт и настраивает все зависимости Profile Service
func Build(cfg config.Config) (*App, error) {
	base, err := platformapp.NewBase(config.ServiceName, cfg.Common)
	if err != nil {
		return nil, err
	}
	base.Logger.Info("Profile settings", cfg.Fields()...)

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := base.ConnectMongo(ctx)
	if err != nil {
		return nil, err
	}
	users, err := mongorepo.NewUserProfileRepository(ctx, db)
	if err != nil {
		return nil, err
	}
	sellers, err := mongorepo.NewSellerProfileRepository(ctx, db)
	if err != nil {
		return nil, err
	}

	profiles := service.NewProfileService(base.Logger, users, sellers, service.Options{
		OptimisticLocking: cfg.OptimisticLocking,
		MaxCASRetries:     cfg.CASMaxRetries,
	}).WithConflictCounter(base.Metrics.ProfileConflicts)

	mws, err := base.HandlerMiddlewares(ctx)
	if err != nil {
		return nil, err
	}
	handlers := service.NewEventHandlers(base.Logger, profiles, service.NewPrometheusCartAnalytics(base.Metrics))
	if err := handlers.Register(base.Registry, mws...); err != nil {
		return nil, err
	}

	httpapi.Mount(base.Router, httpapi.NewHandler(base.Logger, profiles))

	return &App{base: base}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	return a.base.Run()
}
