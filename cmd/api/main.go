package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	httptransport "github.com/spec-kit/crm-service/internal/api/http"
	"github.com/spec-kit/crm-service/internal/api/http/handlers"
	"github.com/spec-kit/crm-service/internal/auth"
	"github.com/spec-kit/crm-service/internal/catalog"
	"github.com/spec-kit/crm-service/internal/clock"
	"github.com/spec-kit/crm-service/internal/config"
	"github.com/spec-kit/crm-service/internal/events"
	"github.com/spec-kit/crm-service/internal/observability"
	"github.com/spec-kit/crm-service/internal/persistence"
	"github.com/spec-kit/crm-service/internal/repository"
	"github.com/spec-kit/crm-service/internal/repository/memory"
	"github.com/spec-kit/crm-service/internal/service"
	"github.com/spec-kit/crm-service/internal/worker"
)

type stores struct {
	staff    repository.StaffRepository
	accounts repository.AccountRepository
	rules    repository.RuleRepository
	tickets  repository.TicketRepository
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := observability.NewMetrics(registry)

	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		logger.Fatal("failed to connect postgres", zap.Error(err))
	}
	defer pg.Close()

	if pg.Enabled() && cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			logger.Fatal("failed to run migrations", zap.Error(err))
		}
	}

	var redis *persistence.Redis
	var feed repository.NotificationRepository = memory.NewNotificationStore()
	if cfg.Notification.Backend == config.NotifyBackendRedis {
		redis = persistence.NewRedis(ctx, cfg.Redis, logger)
		defer redis.Close()
		feed = repository.NewRedisNotificationRepository(redis.Client, cfg.Notification.FeedKey)
	}

	repos := newStores(pg)
	clk := clock.Real()
	dispatcher := events.NewInMemoryDispatcher(logger)

	authService := service.NewAuthService(*cfg, service.AuthDependencies{StaffRepo: repos.staff})
	staffService := service.NewStaffService(*cfg, service.StaffDependencies{
		StaffRepo: repos.staff,
		Clock:     clk,
		Logger:    logger,
	})
	ruleService := service.NewRuleService(service.RuleDependencies{
		RuleRepo:    repos.rules,
		AccountRepo: repos.accounts,
		Logger:      logger,
	})
	ticketService := service.NewTicketService(service.TicketDependencies{
		TicketRepo:  repos.tickets,
		AccountRepo: repos.accounts,
		Dispatcher:  dispatcher,
		Clock:       clk,
		Logger:      logger,
		Metrics:     metrics,
	})
	accountService := service.NewAccountService(service.AccountDependencies{
		AccountRepo: repos.accounts,
		RuleRepo:    repos.rules,
		Tickets:     ticketService,
		Dispatcher:  dispatcher,
		Clock:       clk,
		Logger:      logger,
		Metrics:     metrics,
	})
	notificationService := service.NewNotificationService(dispatcher, feed, clk, logger, cfg.Notification)
	worker.StartNotificationWorker(notificationService)

	rules, err := catalog.LoadFile(cfg.Engine.RulesFile)
	if err != nil {
		logger.Fatal("failed to load rule catalog", zap.String("file", cfg.Engine.RulesFile), zap.Error(err))
	}
	if err := ruleService.Seed(ctx, rules); err != nil {
		logger.Fatal("failed to seed rule catalog", zap.Error(err))
	}
	if err := staffService.EnsureBootstrapAdmin(ctx, cfg.Auth.BootstrapAdminName, cfg.Auth.BootstrapAdminEmail, cfg.Auth.BootstrapAdminPass); err != nil {
		logger.Fatal("failed to bootstrap admin", zap.Error(err))
	}
	if _, err := ticketService.RebuildIndex(ctx); err != nil {
		logger.Fatal("failed to index sla deadlines", zap.Error(err))
	}

	sweeper := worker.NewSLASweeper(ticketService, cfg.Engine.SweepInterval(), logger)
	go sweeper.Run(ctx)

	app := fiber.New(fiber.Config{AppName: cfg.App.Name})
	httptransport.RegisterMiddlewares(app, logger, metrics, cfg.App.RequestTimeout())

	httptransport.RegisterRoutes(app, httptransport.RouteConfig{
		Health:         handlers.NewHealthHandler(cfg.App.Name, cfg.App.Version, pg, redis),
		Staff:          handlers.NewStaffHandler(authService, staffService),
		Accounts:       handlers.NewAccountsHandler(accountService, clk),
		Rules:          handlers.NewRulesHandler(ruleService),
		Tickets:        handlers.NewTicketsHandler(ticketService, clk),
		Notifications:  handlers.NewNotificationsHandler(notificationService),
		AuthMiddleware: auth.NewAuthMiddleware(authService.TokenManager(), repos.staff),
		Metrics:        registry,
	})

	go func() {
		if err := app.Listen(cfg.App.Addr()); err != nil {
			logger.Fatal("fiber listen", zap.Error(err))
		}
	}()

	waitForShutdown(logger)

	cancel()
	_ = app.Shutdown()
}

func newStores(pg *persistence.Postgres) stores {
	if pg.Enabled() {
		pool := pg.PoolHandle()
		return stores{
			staff:    repository.NewStaffRepository(pool),
			accounts: repository.NewAccountRepository(pool),
			rules:    repository.NewRuleRepository(pool),
			tickets:  repository.NewTicketRepository(pool),
		}
	}
	return stores{
		staff:    memory.NewStaffStore(),
		accounts: memory.NewAccountStore(),
		rules:    memory.NewRuleStore(),
		tickets:  memory.NewTicketStore(),
	}
}

func waitForShutdown(logger *zap.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))
}
