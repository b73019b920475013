package cmd

import (
	"context"
	"fmt"
	"log"

	"github.com/spf13/cobra"
	"github.com/storekit/wa-bridge/internal/config"
	"github.com/storekit/wa-bridge/internal/db"
	"github.com/storekit/wa-bridge/internal/model"
	"github.com/storekit/wa-bridge/internal/repository"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Seed the database with demo templates and contacts",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}

		sqlDB, err := db.NewMySQLConnection(cfg.MySQL.DSN, db.MySQLOpts{
			MaxOpenConns:    cfg.MySQL.MaxOpenConns,
			MaxIdleConns:    cfg.MySQL.MaxIdleConns,
			ConnMaxLifetime: cfg.MySQL.ConnMaxLifetime,
			ConnMaxIdleTime: cfg.MySQL.ConnMaxIdleTime,
			PingTimeout:     cfg.MySQL.PingTimeout,
		})
		if err != nil {
			return fmt.Errorf("mysql connect: %w", err)
		}
		defer sqlDB.Close()

		ctx := context.Background()

		log.Println(">> Seeding demo templates...")
		templates := repository.NewTemplatesRepository(sqlDB)
		for _, t := range demoTemplates() {
			if err := templates.Upsert(ctx, t); err != nil {
				return fmt.Errorf("seed template %s/%s: %w", t.Name, t.Language, err)
			}
		}

		log.Println(">> Seeding demo contacts...")
		contacts := repository.NewContactsRepository(sqlDB)
		for _, c := range demoContacts() {
			if err := contacts.UpsertInbound(ctx, c.Phone, c.Name); err != nil {
				return fmt.Errorf("seed contact %s: %w", c.Phone, err)
			}
		}

		log.Println(">> Seed completed")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}

// demoTemplates returns deterministic demo rows; seeding is idempotent because
// the repository upserts on name+language.
func demoTemplates() []model.Template {
	return []model.Template{
		{
			Name:      "order_confirmation",
			Language:  "en",
			Body:      "Hi {{1}}! Your order {{order_id}} has been confirmed. Total: {{total}}.",
			Variables: `["order_id","total"]`,
			Category:  model.CategoryTransactional,
			Approval:  model.TemplateApproved,
		},
		{
			Name:      "shipping_update",
			Language:  "en",
			Body:      "Good news {{1}}! Your order {{order_id}} shipped. Track it here: {{tracking_url}}",
			Variables: `["order_id","tracking_url"]`,
			Category:  model.CategoryTransactional,
			Approval:  model.TemplateApproved,
		},
		{
			Name:      "abandoned_cart",
			Language:  "en",
			Body:      "{{1}}, you left {{count}} item(s) in your cart. Complete your purchase today!",
			Variables: `["count"]`,
			Category:  model.CategoryMarketing,
			Approval:  model.TemplatePending,
		},
		{
			Name:      "login_code",
			Language:  "en",
			Body:      "Your verification code is {{1}}. It expires in 10 minutes.",
			Variables: `[]`,
			Category:  model.CategoryOTP,
			Approval:  model.TemplateApproved,
		},
	}
}

func demoContacts() []model.Contact {
	return []model.Contact{
		{Phone: "15550000001", Name: "Demo Buyer"},
		{Phone: "15550000002", Name: "Repeat Customer"},
		{Phone: "15550000003", Name: ""},
	}
}
