package app

import (
	"context"
	"fmt"
	"os"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/medscribe/medscribe-backend/internal/db"
	"github.com/medscribe/medscribe-backend/internal/dify"
	"github.com/medscribe/medscribe-backend/internal/logger"
	"github.com/medscribe/medscribe-backend/internal/tasks"
)

type App struct {
	Log       *logger.Logger
	DB        *gorm.DB
	Router    *gin.Engine
	Cfg       Config
	Repos     Repos
	Services  Services
	TaskStore *tasks.Store
	Bus       tasks.Bus
	cancel    context.CancelFunc
}

func New() (*App, error) {
	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	log.Info("Loading environment variables...")
	cfg := LoadConfig(log)

	pg, err := db.NewPostgresService(log)
	if err != nil {
		log.Sync()
		return nil, fmt.Errorf("init postgres: %w", err)
	}
	if err := pg.AutoMigrateAll(); err != nil {
		log.Sync()
		return nil, fmt.Errorf("postgres automigrate: %w", err)
	}
	theDB := pg.DB()

	taskStore := tasks.NewStore(log, cfg.TaskTTL)

	var bus tasks.Bus
	if cfg.RedisAddr != "" {
		bus, err = tasks.NewRedisBus(log, cfg.RedisAddr, cfg.RedisChannel)
		if err != nil {
			log.Sync()
			return nil, fmt.Errorf("init redis bus: %w", err)
		}
	}

	reposet := wireRepos(theDB, log)
	serviceset := wireServices(theDB, log, cfg, reposet)
	handlerset := wireHandlers(log, serviceset, taskStore, bus)
	middleware := wireMiddleware(log, serviceset)
	router := wireRouter(cfg, handlerset, middleware)

	return &App{
		Log:       log,
		DB:        theDB,
		Router:    router,
		Cfg:       cfg,
		Repos:     reposet,
		Services:  serviceset,
		TaskStore: taskStore,
		Bus:       bus,
	}, nil
}

// Start launches the background workers: the task store sweeper and, when a
// bus is configured, the cross-replica event forwarder.
func (a *App) Start() {
	if a == nil || a.cancel != nil {
		return
	}
	ctx, cancel := context.WithCancel(context.Background())
	a.cancel = cancel

	a.TaskStore.Start(ctx)

	if a.Bus != nil {
		err := a.Bus.StartForwarder(ctx, func(userID uuid.UUID, taskID string, ev dify.NormalizedEvent) {
			a.TaskStore.Append(userID, taskID, ev)
		})
		if err != nil {
			a.Log.Error("Failed to start task bus forwarder", "error", err)
		}
	}
}

func (a *App) Run(addr string) error {
	if a == nil || a.Router == nil {
		return fmt.Errorf("app not initialized")
	}
	return a.Router.Run(addr)
}

func (a *App) Close() {
	if a == nil {
		return
	}
	if a.cancel != nil {
		a.cancel()
		a.cancel = nil
	}
	if a.Bus != nil {
		a.Bus.Close()
	}
	if a.Log != nil {
		a.Log.Sync()
	}
}
