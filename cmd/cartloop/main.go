package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/urfave/cli/v2"

	"github.com/cartloop/internal/ai"
	"github.com/cartloop/internal/api"
	"github.com/cartloop/internal/carts"
	"github.com/cartloop/internal/config"
	"github.com/cartloop/internal/convo"
	"github.com/cartloop/internal/database"
	"github.com/cartloop/internal/jobqueue"
	"github.com/cartloop/internal/messaging"
	"github.com/cartloop/internal/observability"
	"github.com/cartloop/internal/store"
)

func main() {
	app := &cli.App{
		Name:  "cartloop",
		Usage: "abandoned cart recovery and WhatsApp FAQ triage for e-commerce merchants",
		Commands: []*cli.Command{
			{
				Name:  "serve",
				Usage: "start the webhook server and reminder scheduler",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    "config",
						Usage:   "path to cartloop.toml",
						EnvVars: []string{"CARTLOOP_CONFIG"},
					},
				},
				Action: runServe,
			},
			{
				Name:  "init-config",
				Usage: "write a sample configuration file",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:  "path",
						Value: "cartloop.toml",
						Usage: "where to write the sample config",
					},
				},
				Action: func(c *cli.Context) error {
					path := c.String("path")
					if err := config.InitConfig(path); err != nil {
						return err
					}
					fmt.Printf("Wrote sample configuration to %s\n", path)
					return nil
				},
			},
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal().Err(err).Msg("cartloop exited with error")
	}
}

func runServe(c *cli.Context) error {
	cfg, err := config.LoadConfig(c.String("config"))
	if err != nil {
		return err
	}
	if err := config.Validate(cfg); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	db, err := database.NewDB()
	if err != nil {
		return err
	}
	defer db.Close()

	dbURL, err := database.LoadDatabaseURL()
	if err != nil {
		return err
	}

	tenantRepo := store.NewTenantRepo(db)
	cartRepo := store.NewCartRepo(db)
	convRepo := store.NewConversationRepo(db)

	metrics := observability.NewMetrics("cartloop", prometheus.DefaultRegisterer)

	gateway := messaging.NewTwilioGateway(messaging.TwilioConfig{
		AccountSID: cfg.Twilio.AccountSID,
		AuthToken:  cfg.Twilio.AuthToken,
		BaseURL:    cfg.Twilio.BaseURL,
	})

	provider, err := ai.New(c.Context, ai.Config{
		Provider: cfg.AI.Provider,
		APIKey:   cfg.AI.APIKey,
		Model:    cfg.AI.Model,
	})
	if err != nil {
		return fmt.Errorf("initialize answer provider: %w", err)
	}

	manager := carts.NewManager(cartRepo)
	engine := convo.NewEngine(convRepo, provider, gateway, metrics, cfg.Server.DashboardURL)

	queueCfg := jobqueue.DefaultQueueConfig()
	queueCfg.SweepInterval = time.Duration(cfg.Reminder.SweepIntervalMinutes) * time.Minute
	queueCfg.ReminderThreshold = time.Duration(cfg.Reminder.ThresholdMinutes) * time.Minute

	sweeper := jobqueue.NewSweeper(tenantRepo, cartRepo, gateway, metrics, queueCfg.ReminderThreshold)
	queue, err := jobqueue.NewJobQueue(dbURL, sweeper, queueCfg)
	if err != nil {
		return fmt.Errorf("initialize job queue: %w", err)
	}

	if err := queue.Start(c.Context); err != nil {
		return fmt.Errorf("start job queue: %w", err)
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := queue.Stop(ctx); err != nil {
			log.Error().Err(err).Msg("Job queue shutdown failed")
		}
	}()

	log.Info().
		Int("port", cfg.Server.Port).
		Dur("sweep_interval", queueCfg.SweepInterval).
		Dur("reminder_threshold", queueCfg.ReminderThreshold).
		Msg("Starting cartloop")

	server := api.NewServer(cfg.Server.Port, tenantRepo, convRepo, manager, engine, metrics)
	return server.Start()
}
