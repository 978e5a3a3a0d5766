package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/recover"
	accounts "github.com/goliatone/go-accounts"
	"github.com/goliatone/go-accounts/internal/config"
	"github.com/goliatone/go-accounts/internal/logging"
	"github.com/goliatone/go-accounts/queue"
	"github.com/goliatone/go-accounts/repository"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "accountsd: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}

	lg, err := logging.Init(cfg.Log)
	if err != nil {
		return fmt.Errorf("failed to init logger: %w", err)
	}
	defer lg.Sync()

	logger := logging.NewAdapter(lg, "accounts")

	store, err := repository.Open(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer store.Close()

	if err := store.Ping(ctx); err != nil {
		return fmt.Errorf("db ping: %w", err)
	}

	if cfg.AutoMigrate {
		if err := store.Migrate(ctx); err != nil {
			return err
		}
		lg.Info("migrations applied", zap.String("driver", store.Driver))
	}

	var producer *queue.Producer
	if cfg.Kafka.Enabled() {
		producer = queue.NewProducer(cfg.Kafka)
		defer producer.Close()
	}

	notifier, err := buildNotifier(cfg, logger, producer)
	if err != nil {
		return err
	}

	sinks := accounts.MultiActivitySink{}

	registry := prometheus.NewRegistry()
	if cfg.Metrics {
		registry.MustRegister(
			prometheus.NewGoCollector(),
			prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}),
		)
		metrics, err := accounts.NewMetricsSink(registry)
		if err != nil {
			return err
		}
		sinks = append(sinks, metrics)
	}

	if producer != nil {
		sinks = append(sinks, queue.NewActivityPublisher(producer, cfg.Kafka.ActivityTopic))
	}

	lifecycle := accounts.NewLifecycle(store.Manager, &cfg.Accounts,
		accounts.WithLogger(logger),
		accounts.WithNotifier(notifier),
		accounts.WithActivitySink(sinks),
	)

	app := fiber.New(fiber.Config{
		AppName:               "accountsd",
		DisableStartupMessage: cfg.IsProd(),
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return accounts.WriteError(c, logger, err)
		},
	})
	app.Use(recover.New())

	if cfg.Metrics {
		app.Get("/metrics", adaptor.HTTPHandler(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))
	}

	app.Get("/healthz", func(c *fiber.Ctx) error {
		if err := store.Ping(c.UserContext()); err != nil {
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{"status": "unavailable"})
		}
		return c.JSON(fiber.Map{"status": "ok"})
	})

	auther := accounts.NewRouteAuthenticator(lifecycle,
		accounts.WithSessionCookie(cfg.CookieName, cfg.CookieSecure),
		accounts.WithRouteLogger(logger),
	)

	accounts.RegisterAccountRoutes(app.Group(cfg.Prefix), lifecycle,
		accounts.WithControllerLogger(logger),
		accounts.WithControllerDebug(!cfg.IsProd()),
		accounts.WithRouteAuthenticator(auther),
	)

	errs := make(chan error, 1)
	go func() {
		lg.Info("listening", zap.String("addr", cfg.Addr), zap.String("prefix", cfg.Prefix))
		errs <- app.Listen(cfg.Addr)
	}()

	select {
	case err := <-errs:
		return err
	case <-ctx.Done():
	}

	lg.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return app.ShutdownWithContext(shutdownCtx)
}

func buildNotifier(cfg *config.ServerConfig, logger accounts.Logger, producer *queue.Producer) (accounts.Notifier, error) {
	switch cfg.Notifier {
	case config.NotifierSMTP:
		mailer, err := accounts.NewMailNotifier(
			accounts.NewSMTPSender(cfg.SMTP),
			cfg.SiteName,
			accounts.WithMailLogger(logger),
		)
		if err != nil {
			return nil, err
		}
		return mailer, nil
	case config.NotifierKafka:
		return queue.NewNotificationPublisher(producer, cfg.Kafka.NotificationTopic), nil
	default:
		return accounts.LogNotifier{Logger: logger}, nil
	}
}
