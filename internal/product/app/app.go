package app

import (
	"context"
	"time"

	httpapi "github.com/shestoi/GoMarket/internal/product/api/http"
	"github.com/shestoi/GoMarket/internal/product/config"
	mongorepo "github.com/shestoi/GoMarket/internal/product/repository/mongo"
	"github.com/shestoi/GoMarket/internal/product/service"
	platformapp "github.com/shestoi/GoMarket/platform/app"
	"github.com/shestoi/GoMarket/platform/events"
)

// App Product Service: HTTP API товаров, producer product-events и consumer user-events
type App struct {
	base *platformapp.Base
}

// Build создаёт и настраивает все зависимости Product Service
func Build(cfg config.Config) (*App, error) {
	base, err := platformapp.NewBase(config.ServiceName, cfg.Common)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	db, err := base.ConnectMongo(ctx)
	if err != nil {
		return nil, err
	}
	repo, err := mongorepo.NewRepository(ctx, db)
	if err != nil {
		return nil, err
	}

	producer := events.NewProducer(base.Publisher())
	products := service.NewProductService(base.Logger, repo, producer).
		WithCascadeCounter(base.Metrics.CascadeDeletions)

	mws, err := base.HandlerMiddlewares(ctx)
	if err != nil {
		return nil, err
	}
	if err := service.NewEventHandlers(base.Logger, products).Register(base.Registry, mws...); err != nil {
		return nil, err
	}

	httpapi.Mount(base.Router, httpapi.NewHandler(base.Logger, products))

	return &App{base: base}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	return a.base.Run()
}
