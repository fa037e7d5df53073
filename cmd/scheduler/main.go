package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"

	"github.com/gimmyalex/lending-engine/internal/config"
	"github.com/gimmyalex/lending-engine/internal/repository"
	"github.com/gimmyalex/lending-engine/internal/service"
	"github.com/gimmyalex/lending-engine/pkg/logger"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		slog.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting repayment reminder scheduler")

	db, err := sqlx.Connect("postgres", cfg.Database.URL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()

	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer redisClient.Close()

	loanRepo := repository.NewLoanRepository(db)
	uow := repository.NewUnitOfWork(db)
	loanService := service.NewLoanService(loanRepo, uow, redisClient, cfg)

	location, err := time.LoadLocation(cfg.Scheduler.Timezone)
	if err != nil {
		slog.Error("invalid scheduler timezone", "timezone", cfg.Scheduler.Timezone, "error", err)
		os.Exit(1)
	}

	c := cron.New(cron.WithSeconds(), cron.WithLocation(location))

	_, err = c.AddFunc(cfg.Scheduler.ReminderCron, func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
		defer cancel()

		published, err := loanService.PublishDueReminders(ctx)
		if err != nil {
			slog.Error("due reminder job failed", "error", err)
			return
		}
		slog.Info("due reminder job finished", "published", published)
	})
	if err != nil {
		slog.Error("failed to schedule reminder job", "error", err)
		os.Exit(1)
	}

	c.Start()
	slog.Info("scheduler started", "cron", cfg.Scheduler.ReminderCron, "timezone", cfg.Scheduler.Timezone)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	slog.Info("shutting down scheduler")
	<-c.Stop().Done()
	slog.Info("scheduler stopped")
}
