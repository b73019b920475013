package worker

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/storekit/wa-bridge/internal/config"
	"github.com/storekit/wa-bridge/internal/db"
	"github.com/storekit/wa-bridge/internal/events"
	"github.com/storekit/wa-bridge/internal/logger"
	"github.com/storekit/wa-bridge/internal/repository"
	"github.com/storekit/wa-bridge/internal/worker"
)

var eventsCmd = &cobra.Command{
	Use:   "events",
	Short: "Consume the domain event stream",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(configPath(cmd))
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		logger.Init(cfg.Log.Level)

		if !cfg.Kafka.Enabled() {
			return fmt.Errorf("kafka brokers not configured")
		}

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

		consumer := events.NewConsumer(events.ConsumerConfig{
			Brokers:        cfg.Kafka.Brokers,
			Topic:          events.TopicMessageReceived,
			GroupID:        cfg.Kafka.GroupID,
			MinBytes:       cfg.Kafka.MinBytes,
			MaxBytes:       cfg.Kafka.MaxBytes,
			CommitInterval: time.Duration(cfg.Kafka.CommitInterval) * time.Millisecond,
		})
		defer func() { _ = consumer.Close() }()

		w := &worker.EventsConsumer{
			Consumer: consumer,
			Contacts: repository.NewContactsRepository(mysqlDB),
			Log:      logger.L(),
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		return w.Run(ctx)
	},
}
