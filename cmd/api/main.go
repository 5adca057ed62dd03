package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	httptransport "github.com/pedrovega1/it-helpdesk/internal/api/http"
	"github.com/pedrovega1/it-helpdesk/internal/api/http/handlers"
	"github.com/pedrovega1/it-helpdesk/internal/auth"
	"github.com/pedrovega1/it-helpdesk/internal/bot"
	"github.com/pedrovega1/it-helpdesk/internal/cache"
	"github.com/pedrovega1/it-helpdesk/internal/config"
	"github.com/pedrovega1/it-helpdesk/internal/events"
	"github.com/pedrovega1/it-helpdesk/internal/observability"
	"github.com/pedrovega1/it-helpdesk/internal/persistence"
	"github.com/pedrovega1/it-helpdesk/internal/repository"
	"github.com/pedrovega1/it-helpdesk/internal/service"
	"github.com/pedrovega1/it-helpdesk/migrations"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), migrations.Files, logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	pool := pg.PoolHandle()
	queryTimeout := cfg.Postgres.QueryTimeout()
	ticketRepo := repository.NewTicketRepository(pool, queryTimeout)
	messageRepo := repository.NewMessageRepository(pool, queryTimeout)
	historyRepo := repository.NewHistoryRepository(pool, queryTimeout)

	var listing cache.ListingCache
	var cacheProbe handlers.Pinger
	if cfg.Cache.UseRedis {
		redis := persistence.NewRedis(cfg.Redis, logger)
		defer redis.Close()
		listing = cache.NewRedisCache(redis.Client, cfg.Cache.TTL, logger)
		cacheProbe = redis
	} else {
		listing = cache.NewMemoryCache(cfg.Cache.TTL)
	}

	dispatcher := events.NewInMemoryDispatcher()
	lifecycle := service.NewLifecycleService(service.LifecycleDependencies{
		TicketRepo:  ticketRepo,
		MessageRepo: messageRepo,
		HistoryRepo: historyRepo,
		Listing:     listing,
		Dispatcher:  dispatcher,
		Logger:      logger,
	})

	intake := bot.NewIntake(lifecycle, logger)
	telegram, err := bot.NewTelegram(cfg.Bot, intake, logger)
	if err != nil {
		logger.Fatal("failed to init telegram bot", zap.Error(err))
	}

	notifications := service.NewNotificationService(telegram, dispatcher, logger)
	notifications.RegisterHandlers()

	tokens := auth.NewTokenManager(cfg.Auth.JWTSecret, cfg.Auth.TokenTTLHours)
	blacklist := auth.NewTokenBlacklist()
	authMiddleware := auth.NewAuthMiddleware(tokens, blacklist)

	metrics := observability.NewMetrics()

	app := fiber.New()
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, cacheProbe, metrics),
		Auth:           handlers.NewAuthHandler(cfg.Auth.PasswordHash, tokens, blacklist),
		Tickets:        handlers.NewTicketsHandler(lifecycle),
		AuthMiddleware: authMiddleware,
		LoginLimiter: httptransport.NewRateLimiter(cfg.Auth.LoginRateLimit,
			time.Duration(cfg.Auth.LoginRateWindowMin)*time.Minute),
		APILimiter: httptransport.NewRateLimiter(cfg.Auth.APIRateLimit,
			time.Duration(cfg.Auth.APIRateWindowMin)*time.Minute),
	})

	go telegram.Start()

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	telegram.Stop()
	_ = app.Shutdown()
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
