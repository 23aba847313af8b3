package main

import (
	"context"
	"database/sql"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	gconfig "github.com/goliatone/go-config/config"
	"github.com/goliatone/go-errors"
	"github.com/goliatone/go-logger/glog"
	"github.com/goliatone/go-router"
	"github.com/redis/go-redis/v9"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"

	squeeze "github.com/rungchan2/squeeze-backend"
	"github.com/rungchan2/squeeze-backend/analysis"
	"github.com/rungchan2/squeeze-backend/cache"
	"github.com/rungchan2/squeeze-backend/cmd/server/config"
)

type App struct {
	config       *gconfig.Container[*config.AppConfig]
	logger       *glog.BaseLogger
	bunDB        *bun.DB
	redis        *redis.Client
	orchestrator *cache.Orchestrator
	service      *analysis.Service
	srv          router.Server[*fiber.App]
}

func (a *App) Config() *config.AppConfig {
	return a.config.Raw()
}

func (a *App) GetLogger(name string) glog.Logger {
	return a.logger.GetLogger(name)
}

func main() {
	lgr := glog.NewLogger(
		glog.WithLoggerTypePretty(),
		glog.WithLevel(glog.Info),
		glog.WithName("squeeze"),
		glog.WithAddSource(false),
		glog.WithRichErrorHandler(errors.ToSlogAttributes),
	)

	cfg := gconfig.New(&config.AppConfig{}).
		WithLogger(lgr.GetLogger("config"))

	ctx := context.Background()
	if err := cfg.Load(ctx); err != nil {
		lgr.Error("unable to load configuration", "error", err)
		os.Exit(1)
	}

	app := &App{
		config: cfg,
		logger: lgr,
	}

	if err := WithCache(app); err != nil {
		lgr.Error("unable to initialize cache", "error", err)
		os.Exit(1)
	}

	if err := WithPersistence(app); err != nil {
		lgr.Error("unable to initialize persistence", "error", err)
		os.Exit(1)
	}

	WithAnalysis(app)

	if err := WithHTTPServer(app); err != nil {
		lgr.Error("unable to initialize http server", "error", err)
		os.Exit(1)
	}

	addr := app.Config().GetServer().GetAddress()
	lgr.Info("listening", "address", addr)
	app.srv.Serve(addr)

	WaitExitSignal()

	lgr.Info("shutting down")
	if err := app.redis.Close(); err != nil {
		lgr.Warn("redis close", "error", err)
	}
	if err := app.bunDB.Close(); err != nil {
		lgr.Warn("database close", "error", err)
	}
}

func WithCache(app *App) error {
	cfg := app.Config().GetCache()

	opts, err := redis.ParseURL(cfg.GetRedisURL())
	if err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "invalid redis url")
	}
	app.redis = redis.NewClient(opts)

	app.orchestrator = cache.New(cache.NewRedisTier(app.redis),
		cache.WithLogger(app.GetLogger("cache")),
		cache.WithDefaultTTL(cfg.GetDefaultTTL()),
		cache.WithWaitTimeout(cfg.GetWaitTimeout()),
		cache.WithComputeTimeout(cfg.GetComputeTimeout()),
		cache.WithStaleRetention(cfg.GetStaleRetention()),
		cache.WithMemoryHorizon(cfg.GetMemoryHorizon()),
	)
	return nil
}

func WithPersistence(app *App) error {
	sqldb, err := sql.Open(sqliteshim.ShimName, app.Config().GetDatabase().GetDSN())
	if err != nil {
		return err
	}
	app.bunDB = bun.NewDB(sqldb, sqlitedialect.New())
	return nil
}

func WithAnalysis(app *App) {
	repo := analysis.NewPostsRepository(app.bunDB)
	app.service = analysis.NewService(repo, app.orchestrator,
		analysis.WithLogger(app.GetLogger("analysis")),
		analysis.WithTTL(analysis.AnalysisRangeWordFrequency, app.Config().GetCache().GetRangeTTL()),
	)
}

func WithHTTPServer(app *App) error {
	srv := router.NewFiberAdapter(func(a *fiber.App) *fiber.App {
		return router.DefaultFiberOptions(fiber.New(fiber.Config{
			AppName:       "squeeze-backend",
			StrictRouting: false,
		}))
	})
	srv.Router().WithLogger(app.GetLogger("router"))

	errorHandler := squeeze.MakeJSONErrorHandler(app.GetLogger("http"))

	decoder, err := squeeze.NewClaimsDecoder(app.Config().GetAuth())
	if err != nil {
		return err
	}
	decoder.WithLogger(app.GetLogger("decoder"))

	resolver := squeeze.NewCredentialResolver(app.Config().GetAuth().GetProjectRef())

	teacherGuard := squeeze.RouteGuard(squeeze.GuardConfig{
		Resolver:     resolver,
		Decoder:      decoder,
		MinimumRole:  squeeze.RoleTeacher,
		ErrorHandler: errorHandler,
		Logger:       app.GetLogger("guard"),
	})

	controller := analysis.NewHTTPController(app.service, analysis.HTTPConfig{
		ErrorHandler: errorHandler,
		Logger:       app.GetLogger("analysis:ctrl"),
	})
	controller.RegisterRoutes(srv.Router().Group("/api/v1/analyze"), teacherGuard)

	RegisterHealthRoutes(app, srv)

	app.srv = srv
	return nil
}

// RegisterHealthRoutes exposes the unauthenticated liveness endpoints.
func RegisterHealthRoutes(app *App, srv router.Server[*fiber.App]) {
	srv.Router().Get("/health", func(ctx router.Context) error {
		return ctx.JSON(router.StatusOK, map[string]any{"status": "ok"})
	})

	srv.Router().Get("/health/detail", func(ctx router.Context) error {
		redisStatus := "ok"
		if err := app.orchestrator.Ping(ctx.Context()); err != nil {
			redisStatus = err.Error()
		}

		dbStatus := "ok"
		if err := app.bunDB.PingContext(ctx.Context()); err != nil {
			dbStatus = err.Error()
		}

		return ctx.JSON(router.StatusOK, map[string]any{
			"status":   "ok",
			"redis":    redisStatus,
			"database": dbStatus,
			"cache":    app.orchestrator.Stats(),
		})
	})
}

func WaitExitSignal() os.Signal {
	ch := make(chan os.Signal, 3)
	signal.Notify(ch,
		syscall.SIGINT,
		syscall.SIGQUIT,
		syscall.SIGTERM,
	)
	return <-ch
}
