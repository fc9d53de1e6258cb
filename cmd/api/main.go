package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/nanumlink/nanumlink-backend/api/routes"
	"github.com/nanumlink/nanumlink-backend/internal/auth"
	"github.com/nanumlink/nanumlink-backend/internal/donations"
	"github.com/nanumlink/nanumlink-backend/internal/matches"
	"github.com/nanumlink/nanumlink-backend/internal/notifications"
	"github.com/nanumlink/nanumlink-backend/internal/organizations"
	"github.com/nanumlink/nanumlink-backend/internal/pickups"
	"github.com/nanumlink/nanumlink-backend/internal/quotes"
	"github.com/nanumlink/nanumlink-backend/internal/receipts"
	"github.com/nanumlink/nanumlink-backend/internal/users"
	"github.com/nanumlink/nanumlink-backend/pkg/auth/session"
	"github.com/nanumlink/nanumlink-backend/pkg/config"
	"github.com/nanumlink/nanumlink-backend/pkg/db"
	"github.com/nanumlink/nanumlink-backend/pkg/logger"
	"github.com/nanumlink/nanumlink-backend/pkg/metrics"
	"github.com/nanumlink/nanumlink-backend/pkg/migrate"
	"github.com/nanumlink/nanumlink-backend/pkg/outbox"
	"github.com/nanumlink/nanumlink-backend/pkg/redis"
	"github.com/nanumlink/nanumlink-backend/pkg/storage/gcs"
)

const shutdownGrace = 15 * time.Second

func main() {
	logg := logger.New(logger.Options{ServiceName: "api"})

	if err := godotenv.Load(); err != nil {
		logg.Warn(context.Background(), ".env file not found, relying on environment")
	}

	cfg, err := config.Load()
	if err != nil {
		logg.Error(context.Background(), "failed to load config", err)
		os.Exit(1)
	}
	cfg.Service.Kind = "api"

	logg = logger.New(logger.Options{
		ServiceName: "api",
		Level:       logger.ParseLevel(cfg.App.LogLevel),
		WarnStack:   cfg.App.LogWarnStack,
	})

	dbClient, err := db.New(context.Background(), cfg.DB, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap database", err)
		os.Exit(1)
	}
	defer func() {
		if err := dbClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing database", err)
		}
	}()

	if err := migrate.MaybeRunDev(context.Background(), cfg, logg, dbClient); err != nil {
		logg.Error(context.Background(), "failed to run dev migrations", err)
		os.Exit(1)
	}

	redisClient, err := redis.New(context.Background(), cfg.Redis, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap redis", err)
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing redis", err)
		}
	}()

	gcsClient, err := gcs.NewClient(context.Background(), cfg.GCS, cfg.GCP, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to bootstrap object storage", err)
		os.Exit(1)
	}
	defer func() {
		if err := gcsClient.Close(); err != nil {
			logg.Error(context.Background(), "error closing object storage", err)
		}
	}()

	sessionManager, err := session.NewManager(redisClient, cfg.JWT)
	if err != nil {
		logg.Error(context.Background(), "failed to create session manager", err)
		os.Exit(1)
	}

	gormDB := dbClient.DB()
	outboxSvc := outbox.NewService(outbox.NewRepository(gormDB), logg)

	orgRepo := organizations.NewRepository(gormDB)
	donationRepo := donations.NewRepository(gormDB)
	matchRepo := matches.NewRepository(gormDB)
	quoteRepo := quotes.NewRepository(gormDB)
	pickupRepo := pickups.NewRepository(gormDB)

	authService, err := auth.NewService(auth.ServiceParams{
		UserRepo:       users.NewRepository(gormDB),
		OrgRepo:        orgRepo,
		SessionManager: sessionManager,
		JWTConfig:      cfg.JWT,
		PasswordConfig: cfg.Password,
	})
	if err != nil {
		logg.Error(context.Background(), "failed to create auth service", err)
		os.Exit(1)
	}

	orgService, err := organizations.NewService(orgRepo, dbClient, outboxSvc, gcsClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create organization service", err)
		os.Exit(1)
	}

	donationService, err := donations.NewService(donationRepo, dbClient, outboxSvc, gcsClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create donation service", err)
		os.Exit(1)
	}

	matchService, err := matches.NewService(matchRepo, donationRepo, dbClient, outboxSvc, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create match service", err)
		os.Exit(1)
	}

	quoteService, err := quotes.NewService(quoteRepo, donationRepo, dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create quote service", err)
		os.Exit(1)
	}

	pickupService, err := pickups.NewService(pickupRepo, donationRepo, dbClient, outboxSvc)
	if err != nil {
		logg.Error(context.Background(), "failed to create pickup service", err)
		os.Exit(1)
	}

	receiptService, err := receipts.NewService(matchRepo, donationRepo, orgRepo, quoteRepo, dbClient, outboxSvc, gcsClient, logg)
	if err != nil {
		logg.Error(context.Background(), "failed to create receipt service", err)
		os.Exit(1)
	}

	notificationService, err := notifications.NewService(notifications.NewRepository(gormDB))
	if err != nil {
		logg.Error(context.Background(), "failed to create notification service", err)
		os.Exit(1)
	}

	httpMetrics := metrics.NewHTTPMetrics(prometheus.DefaultRegisterer)

	router := routes.NewRouter(routes.Deps{
		Config:         cfg,
		Logger:         logg,
		Redis:          redisClient,
		SessionManager: sessionManager,
		HTTPMetrics:    httpMetrics,

		AuthService:         authService,
		OrganizationService: orgService,
		DonationService:     donationService,
		MatchService:        matchService,
		QuoteService:        quoteService,
		PickupService:       pickupService,
		ReceiptService:      receiptService,
		NotificationService: notificationService,
	})

	port := os.Getenv("PORT")
	if port == "" {
		port = cfg.App.Port
	}
	addr := ":" + port
	ctx := logg.WithFields(context.Background(), map[string]any{
		"env":  cfg.App.Env,
		"addr": addr,
	})
	logg.Info(ctx, "starting api server")

	server := &http.Server{
		Addr:    addr,
		Handler: router,
	}

	runCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		serveErr <- server.ListenAndServe()
	}()

	select {
	case err := <-serveErr:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logg.Error(ctx, "api server stopped unexpectedly", err)
			os.Exit(1)
		}
	case <-runCtx.Done():
		logg.Info(ctx, "shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logg.Error(ctx, "graceful shutdown failed", err)
			os.Exit(1)
		}
	}
	logg.Info(ctx, "api server stopped")
}
