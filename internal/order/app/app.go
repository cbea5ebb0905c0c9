package app

import (
	"context"
	"time"

	httpapi "github.com/shestoi/GoMarket/internal/order/api/http"
	"github.com/shestoi/GoMarket/internal/order/config"
	mongorepo "github.com/shestoi/GoMarket/internal/order/repository/mongo"
	"github.com/shestoi/GoMarket/internal/order/service"
	platformapp "github.com/shestoi/GoMarket/platform/app"
	"github.com/shestoi/GoMarket/platform/events"
)

// App Order Service: HTTP API заказов и корзины, producer order-created, order-status-changed и cart-updated
type App struct {
	base *platformapp.Base
}

// Build создаёт и настраивает все зависимости Order Service
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

	orders := service.NewOrderService(base.Logger, repo, events.NewProducer(base.Publisher()))
	httpapi.Mount(base.Router, httpapi.NewHandler(base.Logger, orders))

	return &App{base: base}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	return a.base.Run()
}
