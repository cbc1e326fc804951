package main

import (
	"context"
	"database/sql"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	apihttp "rentloop-backend/internal/api/http"
	"rentloop-backend/internal/billing"
	"rentloop-backend/internal/config"
	"rentloop-backend/internal/jobs"
	"rentloop-backend/internal/logger"
	"rentloop-backend/internal/payments"
	"rentloop-backend/internal/processor"
	"rentloop-backend/internal/reconcile"
	"rentloop-backend/internal/repository/postgres"
	"rentloop-backend/internal/service"
)

func main() {
	configPath := flag.String("config", "config/config.dev.yaml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.Log.Level, cfg.Log.Format)
	logger.Info("Starting Rentloop Payments Server...", "log_level", cfg.Log.Level)

	logger.Info("Connecting to database...", "host", cfg.Database.Host, "port", cfg.Database.Port)
	db, err := sql.Open("postgres", cfg.GetDatabaseConnectionString())
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("Failed to ping database: %v", err)
	}
	logger.Info("Database connection established")

	store := postgres.NewStore(db)

	emailService := service.NewEmailService(cfg.Email.APIKey, cfg.Email.FromEmail, cfg.Email.FromName)
	alertService := service.NewAlertService(cfg.Email.APIKey, cfg.Email.FromEmail, cfg.Email.OpsEmail)

	fees := billing.NewFeeSchedule(cfg.Billing.ShortTermFeeRate, cfg.Billing.LongTermFeeRate, cfg.Billing.FeeThresholdMonths)
	processorClient := processor.NewHTTPClient(cfg.Processor.BaseURL, cfg.Processor.APIKey, cfg.Processor.Timeout())
	executor := payments.NewExecutor(processorClient, fees, cfg.Processor.Timeout())

	jobRunner := jobs.NewJobRunner(
		&jobs.Store{Payments: store.PaymentRepository, Bookings: store.BookingRepository},
		executor,
		&jobs.Services{Email: emailService, Alerts: alertService},
		cfg,
	)

	reconciler := reconcile.NewHandler(
		store.PayoutAccountRepository,
		store.TransferRepository,
		store.BookingRepository,
		store.HostRepository,
		emailService,
		alertService,
	)

	router := apihttp.NewRouter(
		apihttp.NewWebhookHandler(reconciler, cfg.Processor.WebhookSecret),
		apihttp.NewCronHandler(jobRunner, cfg.Cron.Secret),
		apihttp.NewLedgerHandler(store.LedgerRepository),
	)

	server := &http.Server{
		Addr:         cfg.GetServerAddress(),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		logger.Info("HTTP server listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("HTTP server failed", "error", err)
			os.Exit(1)
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down HTTP server...")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Graceful shutdown failed", "error", err)
	}
	logger.Info("Server stopped. Goodbye!")
}
