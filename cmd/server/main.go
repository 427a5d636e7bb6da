package main

import (
	"context"
	"database/sql"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"

	"github.com/ironlady/newsletter-platform/internal/api"
	"github.com/ironlady/newsletter-platform/internal/config"
	"github.com/ironlady/newsletter-platform/internal/content"
	"github.com/ironlady/newsletter-platform/internal/dispatch"
	"github.com/ironlady/newsletter-platform/internal/pkg/distlock"
	"github.com/ironlady/newsletter-platform/internal/pkg/logger"
	"github.com/ironlady/newsletter-platform/internal/repository/postgres"
	"github.com/ironlady/newsletter-platform/internal/scheduler"
	"github.com/ironlady/newsletter-platform/internal/service/campaign"
	"github.com/ironlady/newsletter-platform/internal/service/subscriber"
	"github.com/ironlady/newsletter-platform/internal/service/template"
	"github.com/ironlady/newsletter-platform/internal/transport"
)

func main() {
	configPath := flag.String("config", "config/config.yaml", "path to configuration file")
	flag.Parse()

	cfg, err := config.LoadFromEnv(*configPath)
	if err != nil {
		logger.Error("load config", "path", *configPath, "error", err.Error())
		os.Exit(1)
	}

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		logger.Error("open database", "error", err.Error())
		os.Exit(1)
	}
	defer db.Close()
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	if err := db.PingContext(ctx); err != nil {
		cancel()
		logger.Error("ping database", "error", err.Error())
		os.Exit(1)
	}
	cancel()

	var redisClient *redis.Client
	if cfg.Redis.Addr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		pingCtx, pingCancel := context.WithTimeout(context.Background(), 3*time.Second)
		if err := redisClient.Ping(pingCtx).Err(); err != nil {
			logger.Warn("redis unreachable, falling back to pg advisory locks", "error", err.Error())
			redisClient = nil
		}
		pingCancel()
	}

	var mailer transport.Transport
	if cfg.SES.FromEmail != "" {
		sesTransport, err := transport.NewSESTransport(context.Background(), cfg.SES)
		if err != nil {
			logger.Error("init ses transport", "error", err.Error())
			os.Exit(1)
		}
		mailer = sesTransport
	} else {
		logger.Warn("no from_email configured, using noop transport")
		mailer = transport.NoopTransport{}
	}

	subscriberRepo := postgres.NewSubscriberRepo(db)
	templateRepo := postgres.NewTemplateRepo(db)
	campaignRepo := postgres.NewCampaignRepo(db)

	subscribers := subscriber.NewService(subscriberRepo)
	templates := template.NewService(templateRepo)

	dispatcher := dispatch.New(
		dispatch.NewSubscriberResolver(subscriberRepo),
		mailer,
		dispatch.WithConcurrency(cfg.Dispatch.Concurrency),
		dispatch.WithRecipientTimeout(cfg.Dispatch.RecipientTimeout()),
	)

	campaigns := campaign.NewService(campaignRepo, templates, dispatcher,
		campaign.WithLockFactory(func(key string) distlock.DistLock {
			return distlock.NewLock(redisClient, db, key, 10*time.Minute)
		}),
	)

	generator := content.NewGenerator(cfg.Anthropic.APIKey, cfg.Anthropic.Model, cfg.Anthropic.MaxTokens, nil)

	var trigger *scheduler.Trigger
	if cfg.Scheduler.Enabled {
		job := scheduler.NewMonthlyNewsletter(templates, campaigns)
		trigger = scheduler.NewTrigger(job, cfg.Scheduler.DayOfMonth, cfg.Scheduler.Hour,
			scheduler.WithLock(distlock.NewLock(redisClient, db, "scheduler:monthly", time.Hour)),
		)
		trigger.Start()
	}

	server := api.NewServer(cfg.Server, subscribers, templates, campaigns, generator)

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Info("shutting down", "signal", sig.String())
	case err := <-errCh:
		if err != nil {
			logger.Error("server failed", "error", err.Error())
		}
	}

	if trigger != nil {
		trigger.Stop()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown", "error", err.Error())
	}
}
