package main // Entry point package

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"

	"github.com/iliyamo/fest-registration/internal/authz"
	"github.com/iliyamo/fest-registration/internal/config"
	"github.com/iliyamo/fest-registration/internal/database"
	"github.com/iliyamo/fest-registration/internal/handler"
	"github.com/iliyamo/fest-registration/internal/logger"
	"github.com/iliyamo/fest-registration/internal/mailer"
	"github.com/iliyamo/fest-registration/internal/metrics"
	"github.com/iliyamo/fest-registration/internal/middleware"
	"github.com/iliyamo/fest-registration/internal/queue"
	"github.com/iliyamo/fest-registration/internal/repository"
	"github.com/iliyamo/fest-registration/internal/router"
	"github.com/iliyamo/fest-registration/internal/service"
)

func main() {
	// A missing .env is fine; real deployments set the environment directly.
	_ = godotenv.Load()
	cfg := config.Load()

	zlog, err := logger.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer func() { _ = zlog.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.Open(ctx, database.Options{
		User: cfg.DBUser, Password: cfg.DBPass,
		Host: cfg.DBHost, Port: cfg.DBPort,
		Name: cfg.DBName, MaxOpenConns: cfg.DBMaxConns,
	})
	if err != nil {
		zlog.Fatal("database open failed", zap.Error(err))
	}
	defer db.Close()
	if cfg.AutoMigrate {
		if err := database.Migrate(ctx, db, database.MySQLSchema); err != nil {
			zlog.Fatal("database migrate failed", zap.Error(err))
		}
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	rdb := config.NewRedisClient(config.LoadRedisConfig(), zlog)
	cache := middleware.NewRedisCache(config.LoadCacheConfig(), rdb, zlog)
	limit := func(scope string) echo.MiddlewareFunc {
		return middleware.NewRateLimiter(config.LoadRateLimitConfig(scope), rdb, zlog)
	}

	tierRepo := repository.NewTierPassRepo(db)
	eventRepo := repository.NewEventRegRepo(db)
	sources := service.Sources{TierPass: tierRepo, Event: eventRepo}
	policy := authz.NewRolePolicy(cfg.ReviewerRoles...)
	users := repository.NewUserRepo(db)
	if cfg.AdminEmail != "" {
		created, err := users.EnsureAdmin(ctx, cfg.AdminEmail, cfg.AdminPassword, cfg.BcryptCost)
		switch {
		case errors.Is(err, repository.ErrBootstrapTaken):
			zlog.Warn("bootstrap admin email belongs to a non-admin account; not promoted", zap.String("email", cfg.AdminEmail))
		case err != nil:
			zlog.Fatal("bootstrap admin failed", zap.Error(err))
		case created:
			zlog.Info("bootstrap admin created", zap.String("email", cfg.AdminEmail))
		}
	}

	publisher := queue.NewPublisher(cfg.AMQPURL, zlog)
	resolver := service.NewResolver(sources)
	agg := service.NewAggregator(sources, m)
	approvals := service.NewApprovals(sources, publisher, zlog,
		service.WithMetrics(m),
		service.WithRejectNotice(cfg.NotifyOnReject),
	)
	submissions := service.NewSubmissions(sources, tierRepo, eventRepo, eventRepo, zlog, m)

	sender := mailer.NewSMTPSender(mailer.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.Username,
		Password: cfg.SMTP.Password,
		From:     cfg.SMTP.From,
	})
	consumer := queue.NewConsumer(cfg.AMQPURL, sender, zlog, m)
	go func() {
		if err := consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			zlog.Error("notice consumer stopped", zap.Error(err))
		}
	}()

	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.RequestLogger(zlog))
	e.Use(middleware.Recover(zlog))

	router.RegisterRoutes(e, handler.NewHealthHandler(db), reg)
	router.RegisterAuth(e, handler.NewAuthHandler(cfg, users, repository.NewTokenRepo(db), policy, zlog), cfg.JWTSecret, limit(config.ScopeAuth))
	router.RegisterPublic(e, handler.NewPublicRegistrationHandler(submissions, resolver, zlog), handler.NewCatalogHandler(eventRepo, zlog), cache, limit(config.ScopeSubmit))
	router.RegisterAdmin(e, handler.NewAdminRegistrationHandler(agg, resolver, approvals, zlog), handler.NewAdminUserHandler(users, zlog), cfg.JWTSecret, policy, limit(config.ScopeAdmin))

	addr := ":" + cfg.Port
	zlog.Info("listening", zap.String("addr", addr), zap.String("env", cfg.Env))
	go func() {
		if err := e.Start(addr); err != nil && !errors.Is(err, http.ErrServerClosed) {
			zlog.Fatal("server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		zlog.Error("shutdown failed", zap.Error(err))
	}
	if rdb != nil {
		_ = rdb.Close()
	}
}
