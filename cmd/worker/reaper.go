package worker

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/storekit/wa-bridge/internal/config"
	"github.com/storekit/wa-bridge/internal/db"
	"github.com/storekit/wa-bridge/internal/events"
	"github.com/storekit/wa-bridge/internal/logger"
	"github.com/storekit/wa-bridge/internal/repository"
	"github.com/storekit/wa-bridge/internal/session"
	"github.com/storekit/wa-bridge/internal/webhook"
	"github.com/storekit/wa-bridge/internal/worker"
)

var reaperCmd = &cobra.Command{
	Use:   "reaper",
	Short: "Sweep expired sessions, enforce retention, replay failed webhook events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath(cmd))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		mysqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer mysqlDB.Close()

		messagesRepo := repository.NewMessagesRepository(mysqlDB)
		templatesRepo := repository.NewTemplatesRepository(mysqlDB)
		contactsRepo := repository.NewContactsRepository(mysqlDB)
		sessionsRepo := repository.NewSessionsRepository(mysqlDB)
		eventsRepo := repository.NewWebhookEventsRepository(mysqlDB)

		sessions := session.NewStore(sessionsRepo, cfg.Session.TTL, cfg.Session.ReapBatch)

		var publisher events.Publisher = events.NopPublisher{}
		if cfg.Kafka.Enabled() {
			kp := events.NewKafkaPublisher(cfg.Kafka.Brokers)
			defer func() { _ = kp.Close() }()
			publisher = kp
		}

		pipeline := webhook.NewPipeline(
			cfg.Provider.VerifyToken,
			cfg.Provider.AppSecret,
			eventsRepo,
			messagesRepo,
			templatesRepo,
			contactsRepo,
			sessions,
			publisher,
			logger.L(),
		)

		r := &worker.Reaper{
			Sessions:  sessions,
			Messages:  messagesRepo,
			Events:    eventsRepo,
			Pipeline:  pipeline,
			Interval:  cfg.Session.ReapInterval,
			Retention: cfg.Retention.MaxAge,
			Batch:     cfg.Retention.Batch,
			Log:       logger.L(),
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return r.Run(ctx)
	},
}
