package cmd

import (
	"context"
	"database/sql"

	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/sirupsen/logrus"
	"github.com/vibast-solutions/ms-go-fees/app/clock"
	"github.com/vibast-solutions/ms-go-fees/app/fees"
	"github.com/vibast-solutions/ms-go-fees/app/provider"
	"github.com/vibast-solutions/ms-go-fees/app/publisher"
	"github.com/vibast-solutions/ms-go-fees/app/repository"
	"github.com/vibast-solutions/ms-go-fees/app/service"
	"github.com/vibast-solutions/ms-go-fees/config"
)

const notificationQueueSize = 1024

type services struct {
	feeCache   *fees.ConfigCache
	fees       *service.FeeService
	orders     *service.OrderService
	refunds    *service.RefundService
	organizers *service.OrganizerService
	webhooks   *service.WebhookService
}

func mustCreateServices() (*config.Config, *services, func()) {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("Failed to load configuration")
	}
	if err := configureLogging(cfg); err != nil {
		logrus.WithError(err).Fatal("Failed to configure logging")
	}

	db, err := sql.Open(repository.SQLDriverName(cfg.Database.Driver), cfg.Database.DSN)
	if err != nil {
		logrus.WithError(err).Fatal("Failed to connect to database")
	}

	db.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	db.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.Database.ConnMaxLifetime)

	if err := db.Ping(); err != nil {
		_ = db.Close()
		logrus.WithError(err).Fatal("Failed to ping database")
	}

	conn := repository.WithDialect(db, cfg.Database.Driver)
	countryRepo := repository.NewCountryFeeConfigRepository(conn)
	overrideRepo := repository.NewOrganizerFeeOverrideRepository(conn)
	organizerRepo := repository.NewOrganizerRepository(conn)
	orderRepo := repository.NewOrderRepository(conn)
	refundRepo := repository.NewRefundRequestRepository(conn)
	webhookRepo := repository.NewWebhookEventRepository(conn)
	auditRepo := repository.NewAuditLogRepository(conn)
	payoutRepo := repository.NewPayoutRepository(conn)

	kafkaPublisher := publisher.NewKafkaPublisher(cfg.Kafka.Brokers, cfg.Kafka.NotificationsTopic, publisher.RetryConfig{
		MaxAttempts: cfg.Kafka.MaxAttempts,
		BaseDelay:   cfg.Kafka.BaseDelay,
		MaxDelay:    cfg.Kafka.MaxDelay,
		Jitter:      cfg.Kafka.Jitter,
	})
	dispatcher := publisher.NewDispatcher(kafkaPublisher, notificationQueueSize)
	dispatcher.Start(context.Background())

	clk := clock.NewSystem()
	feeCache := fees.NewConfigCache(countryRepo, clk, cfg.Fees.CacheTTL)
	resolver := fees.NewResolver(feeCache, overrideRepo)

	organizerService := service.NewOrganizerService(organizerRepo, payoutRepo, auditRepo, dispatcher, clk, cfg.State.MaxRetries)
	providerRegistry := provider.NewRegistry(provider.NewStripeProvider(provider.StripeConfig{
		WebhookSecret:             cfg.Stripe.WebhookSecret,
		SignatureToleranceSeconds: cfg.Stripe.SignatureToleranceSeconds,
	}))

	svc := &services{
		feeCache:   feeCache,
		fees:       service.NewFeeService(resolver, feeCache, countryRepo, overrideRepo, organizerRepo, auditRepo, clk),
		orders:     service.NewOrderService(orderRepo, organizerRepo, resolver, clk),
		refunds:    service.NewRefundService(refundRepo, orderRepo, auditRepo, dispatcher, clk, cfg.State.MaxRetries),
		organizers: organizerService,
		webhooks: service.NewWebhookService(webhookRepo, providerRegistry, organizerService, clk, service.WebhookConfig{
			AckTimeout: cfg.Webhooks.AckTimeout,
			ClaimTTL:   cfg.Webhooks.ClaimTTL,
			BatchSize:  cfg.Webhooks.BatchSize,
		}),
	}

	cleanup := func() {
		dispatcher.Close()
		if err := kafkaPublisher.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close notification publisher")
		}
		if err := db.Close(); err != nil {
			logrus.WithError(err).Warn("Failed to close database")
		}
	}

	return cfg, svc, cleanup
}
