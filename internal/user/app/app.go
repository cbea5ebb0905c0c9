package app

import (
	"context"
	"time"

	httpapi "github.com/shestoi/GoMarket/internal/user/api/http"
	"github.com/shestoi/GoMarket/internal/user/config"
	mongorepo "github.com/shestoi/GoMarket/internal/user/repository/mongo"
	"github.com/shestoi/GoMarket/internal/user/service"
	platformapp "github.com/shestoi/GoMarket/platform/app"
	"github.com/shestoi/GoMarket/platform/events"
)

// App User Service: HTTP API пользователей и producer user-events; consumers нет
type App struct {
	base *platformapp.Base
}

// Build создаёт и настраивает все зависимости User Service
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

	users := service.NewUserService(base.Logger, repo, events.NewProducer(base.Publisher()))
	httpapi.Mount(base.Router, httpapi.NewHandler(base.Logger, users))

	return &App{base: base}, nil
}

// Run запускает сервис и блокируется до получения сигнала shutdown
func (a *App) Run() error {
	return a.base.Run()
}
