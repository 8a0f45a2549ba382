package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Smartconnectcrm/smartconnect-website/config"
	"github.com/Smartconnectcrm/smartconnect-website/db"
	_ "github.com/Smartconnectcrm/smartconnect-website/docs"
	"github.com/Smartconnectcrm/smartconnect-website/handlers"
	"github.com/Smartconnectcrm/smartconnect-website/internal/classifier"
	"github.com/Smartconnectcrm/smartconnect-website/logger"
	"github.com/Smartconnectcrm/smartconnect-website/router"
	"github.com/Smartconnectcrm/smartconnect-website/services"
	"github.com/Smartconnectcrm/smartconnect-website/store"
	"github.com/Smartconnectcrm/smartconnect-website/store/postgres"
	"github.com/Smartconnectcrm/smartconnect-website/store/redisstore"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
)

const (
	retentionJanitorInterval = time.Hour
	cspReportKeyCap          = 10000
	shutdownTimeout          = 15 * time.Second
)

// @title           SmartConnect Website API
// @version         1.0
// @description     Contact form admission and operator endpoints of the SmartConnect marketing site.
// @BasePath        /api
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
func main() {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	logger.InitLogger()
	log := logger.GetLogger()
	defer logger.Close()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	redisClient := redis.NewClient(config.RedisOptions(&cfg.Redis))
	defer redisClient.Close()
	if err := config.PingRedis(ctx, redisClient, 5, 2*time.Second); err != nil {
		// The limiter decides per request how to treat an unreachable Redis.
		log.Warnw("Redis not reachable at startup", "error", err, "failClosed", cfg.RateLimit.FailClosed)
	}

	var (
		auditStore store.AuditStore
		dbPinger   services.Pinger
	)
	if cfg.UsesPostgres() {
		pool, err := connectPostgres(ctx, &cfg.Database)
		if err != nil {
			log.Fatalf("Failed to initialize postgres audit store: %v", err)
		}
		defer pool.Close()
		auditStore = postgres.NewAuditStore(pool)
		dbPinger = pool
	} else if cfg.Audit.Enabled {
		auditStore = redisstore.NewAuditStore(redisClient)
	}

	policy, err := classifier.LoadPolicy(cfg.Contact.PolicyFile)
	if err != nil {
		log.Fatalf("Failed to load content policy: %v", err)
	}

	auditService := services.NewAuditService(auditStore, cfg.Audit)
	mailService := services.NewMailService(&cfg.Mail, services.NewMailSender(&cfg.Mail))
	rateLimitService := services.NewRateLimitService(redisClient, cfg.RateLimit)
	admissionService := services.NewAdmissionService(
		rateLimitService,
		classifier.New(policy),
		mailService,
		auditService,
		cfg.Contact.MinFillTime,
		cfg.Mail.SendTimeout,
	)
	healthService := services.NewHealthService(dbPinger, redisClient, cfg.RateLimit.FailClosed, cfg.Server.Version)

	go auditService.RunRetentionJanitor(ctx, retentionJanitorInterval)

	sitemapHandler, err := handlers.NewSitemapHandler(cfg.Server.SiteURL, time.Now())
	if err != nil {
		log.Fatalf("Failed to build sitemap: %v", err)
	}

	r, err := router.SetupRouter(router.Dependencies{
		Config:             cfg,
		ContactHandler:     handlers.NewContactHandler(admissionService),
		ContactLogsHandler: handlers.NewContactLogsHandler(auditService, cfg.Audit.DefaultListLimit, cfg.Audit.MaxListLimit),
		CSPReportHandler:   handlers.NewCSPReportHandler(services.NewMemoryLimiter(cfg.RateLimit.CSPReportsPerMinute, time.Minute, cspReportKeyCap)),
		SitemapHandler:     sitemapHandler,
		HealthHandler:      handlers.NewHealthHandler(healthService),
		Logger:             log,
	})
	if err != nil {
		log.Fatalf("Failed to set up router: %v", err)
	}

	srv := &http.Server{
		Addr:              ":" + cfg.Server.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      45 * time.Second,
		IdleTimeout:       120 * time.Second,
	}

	go func() {
		log.Infow("Starting server", "port", cfg.Server.Port, "environment", cfg.Server.Environment)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorw("Server forced to shutdown", "error", err)
	}
	log.Info("Server exited")
}

// connectPostgres opens the pool and brings the audit schema up to date.
func connectPostgres(ctx context.Context, cfg *config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolConfig, err := config.PostgresPoolConfig(cfg)
	if err != nil {
		return nil, err
	}
	pool, err := pgxpool.NewWithConfig(ctx, poolConfig)
	if err != nil {
		return nil, err
	}
	if err := db.RunMigrations(cfg.URL()); err != nil {
		pool.Close()
		return nil, err
	}
	return pool, nil
}
