package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/spf13/cobra"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"

	httpapi "github.com/airdatahub/airdata-fetch/internal/api/http"
	"github.com/airdatahub/airdata-fetch/internal/config"
	"github.com/airdatahub/airdata-fetch/internal/measurement"
	"github.com/airdatahub/airdata-fetch/internal/measurement/adapters"
	"github.com/airdatahub/airdata-fetch/internal/notify"
	"github.com/airdatahub/airdata-fetch/internal/scheduler"
	"github.com/airdatahub/airdata-fetch/internal/store"
)

var (
	flagDryRun   bool
	flagNoNotify bool
	flagSource   string
	flagInterval time.Duration
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "airdata-fetch",
		Short:         "Periodically fetches, normalizes and persists air quality measurements",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          run,
	}

	rootCmd.Flags().BoolVar(&flagDryRun, "dry-run", false, "fetch and normalize without writing to the store or notifying")
	rootCmd.Flags().BoolVar(&flagNoNotify, "no-notifications", false, "suppress failure mail")
	rootCmd.Flags().StringVar(&flagSource, "source", "", "run only the named source")
	rootCmd.Flags().DurationVar(&flagInterval, "interval", 0, "override the fetch interval")

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	// Load configuration; flags override the environment.
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = flagDryRun
	}
	if cmd.Flags().Changed("no-notifications") {
		cfg.NotificationsDisabled = flagNoNotify
	}
	if cmd.Flags().Changed("interval") {
		cfg.FetchInterval = flagInterval
	}

	sources, err := config.FilterSources(cfg.Sources, flagSource)
	if err != nil {
		return err
	}

	logger, err := newLogger()
	if err != nil {
		return fmt.Errorf("failed to initialize logging: %w", err)
	}
	defer logger.Sync() //nolint:errcheck
	log := logger.Sugar()

	// Connect to the store and establish the schema. The pipeline's dedup
	// guarantee depends on the unique index; without it we refuse to run.
	connectCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		return fmt.Errorf("mongo connect failed: %w", err)
	}
	defer func() {
		_ = client.Disconnect(context.Background())
	}()
	if err := client.Ping(connectCtx, nil); err != nil {
		return fmt.Errorf("mongo ping failed: %w", err)
	}

	gateway := store.NewMongoGateway(client, cfg.MongoDatabase, cfg.MongoCollection, log)
	if err := gateway.EnsureSchema(connectCtx); err != nil {
		log.Errorw("schema initialization failed", "error", err)
		return fmt.Errorf("schema initialization failed: %w", err)
	}

	// Shared HTTP client for outbound adapter calls.
	httpClient := &http.Client{
		Timeout: cfg.HTTPTimeout,
	}

	// Adapter registry, populated once at startup.
	registry := measurement.NewRegistry()
	registry.Register("eea", adapters.NewEEAAdapter(httpClient, cfg.EEABaseURL))
	registry.Register("airnow", adapters.NewAirNowAdapter(httpClient, cfg.AirNowBaseURL))

	// Notification channels.
	mailer := notify.NewSMTPMailer(cfg.SMTPAddr, cfg.SMTPFrom, cfg.SMTPUsername, cfg.SMTPPassword)
	var webhook notify.Webhook
	if cfg.WebhookURL != "" {
		webhook = notify.NewRestyWebhook(cfg.WebhookURL, cfg.WebhookKey)
	}
	dispatcher := notify.NewDispatcher(mailer, webhook, cfg.NotificationsDisabled, cfg.DryRun, log)

	runner := measurement.NewRunner(registry, gateway, dispatcher, cfg.DryRun, log)

	// Scheduler that drives the recurring ingestion cycle.
	sched := scheduler.New(sources, cfg.FetchInterval, runner, dispatcher, cfg.DryRun, log)
	if err := sched.Start(); err != nil {
		return fmt.Errorf("failed to start scheduler: %w", err)
	}
	defer sched.Stop()

	// Ops surface: health plus last-cycle status.
	app := fiber.New(fiber.Config{
		AppName:               "airdata-fetch",
		DisableStartupMessage: true,
		ReadTimeout:           10 * time.Second,
		WriteTimeout:          10 * time.Second,
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			code := fiber.StatusInternalServerError
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
			return c.Status(code).JSON(fiber.Map{
				"error":   true,
				"message": err.Error(),
			})
		},
	})

	app.Use(recover.New())

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"status":  "ok",
			"service": "airdata-fetch",
		})
	})

	httpapi.RegisterRoutes(app, sched)

	go func() {
		if err := app.Listen(":" + cfg.Port); err != nil {
			log.Errorw("fiber server stopped", "error", err)
		}
	}()

	// Wait for termination signal.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	shutdownCtx, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Errorw("error during shutdown", "error", err)
	}
	return nil
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("LOGGING_LEVEL") == "DEVELOPMENT" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
