package main

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/tuition-ledger/internal/config"
	"github.com/iliyamo/tuition-ledger/internal/database"
	"github.com/iliyamo/tuition-ledger/internal/handler"
	"github.com/iliyamo/tuition-ledger/internal/logger"
	"github.com/iliyamo/tuition-ledger/internal/middleware"
	"github.com/iliyamo/tuition-ledger/internal/queue"
	"github.com/iliyamo/tuition-ledger/internal/repository"
	"github.com/iliyamo/tuition-ledger/internal/router"
	"github.com/iliyamo/tuition-ledger/internal/seed"
	"github.com/iliyamo/tuition-ledger/internal/service"
)

func main() {
	if err := config.LoadDotEnv(); err != nil {
		logrus.WithError(err).Fatal("read .env")
	}
	cfg := config.Load()
	log := logger.New(cfg.LogLevel)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := openDB(cfg)
	if err != nil {
		log.WithError(err).Fatal("open database")
	}
	defer db.Close()

	if err := database.Migrate(ctx, db, cfg.DBDriver); err != nil {
		log.WithError(err).Fatal("migrate schema")
	}
	store := repository.NewStore(db, cfg.DBDriver)

	if cfg.SeedEnabled {
		res, err := seed.Run(ctx, store, seed.Config{
			AdminEmail:    cfg.AdminEmail,
			AdminPassword: cfg.AdminPassword,
			AdminName:     "Administrator",
			BcryptCost:    cfg.BcryptCost,
		}, log)
		if err != nil {
			log.WithError(err).Fatal("seed")
		}
		log.WithFields(logrus.Fields{"admin_created": res.AdminCreated, "schools_created": res.SchoolsCreated}).Info("seed complete")
	}

	var pub queue.Publisher = queue.NopPublisher{}
	if cfg.EventsEnabled {
		async := queue.NewAsync(queue.NewAMQPPublisher(cfg.RabbitURL, log), 256, log)
		defer async.Close()
		pub = async
		go queue.NewConsumer(cfg.RabbitURL, cfg.EventLogPath, log).Run(ctx)
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Warn("redis unavailable: rate limiting and response cache disabled")
	} else {
		defer rdb.Close()
	}

	advances := service.NewAdvanceService(store, pub, log, nil)
	savings := service.NewSavingsService(store, pub, log, nil)
	admin := service.NewAdminService(store, advances, savings, log)

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Validator = handler.NewValidator()
	e.Use(echomw.Recover())
	e.Use(middleware.RequestLogger(log))
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb, log))
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, log)

	router.RegisterRoutes(e, db)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, repository.NewUserRepo(store), repository.NewTokenRepo(store), log), cfg.JWTSecret)
	router.RegisterStudent(e, handler.NewAdvanceHandler(advances, log), handler.NewSavingsHandler(savings, log), cfg.JWTSecret, cache)
	router.RegisterAdmin(e, handler.NewAdminHandler(admin, log), cfg.JWTSecret, cache)

	addr := ":" + cfg.Port
	go func() {
		log.WithFields(logrus.Fields{"addr": addr, "env": cfg.Env, "db": cfg.DBDriver}).Info("listening")
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.WithError(err).Fatal("server stopped")
		}
	}()

	<-ctx.Done()
	log.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		log.WithError(err).Error("graceful shutdown")
	}
}

func openDB(cfg config.Config) (*sql.DB, error) {
	if cfg.DBDriver == database.SQLite {
		return database.OpenSQLite(cfg.SQLitePath)
	}
	return database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
}
