package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/slack-go/slack"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/id"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/otel"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/db"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/automation"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/poller"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/queue"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/scheduler"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/integration"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/service/issue_tracker"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/store"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/worker"
)

func main() {
	ctx := context.Background()

	cfg, err := config.Load(config.ServiceTypeWorker)
	if err != nil {
		slog.ErrorContext(ctx, "failed to load config", "error", err)
		os.Exit(1)
	}

	fmt.Printf("%s\n", banner)

	telemetry, err := otel.Setup(ctx, cfg.OTel)
	if err != nil {
		os.Stderr.WriteString("failed to initialize otel: " + err.Error() + "\n")
		os.Exit(1)
	}

	// Automation runs mirror their log lines to the logs channel.
	var runLogs *logger.ChannelBuffer
	if cfg.Slack.LogsChannelID != "" {
		runLogs = logger.NewChannelBuffer(slog.LevelInfo, 0)
		logger.Setup(cfg, runLogs)
	} else {
		logger.Setup(cfg)
	}

	slog.InfoContext(ctx, "updater worker starting",
		"env", cfg.Env,
		"vcs", cfg.VCS.Provider,
		"repositories", cfg.Automation.Repositories,
		"consumer_group", cfg.Pipeline.RedisGroup,
		"consumer_name", cfg.Pipeline.RedisConsumer)

	// Different node ID than the server.
	if err := id.Init(2); err != nil {
		slog.ErrorContext(ctx, "failed to initialize id generator", "error", err)
		os.Exit(1)
	}

	database, err := db.New(ctx, cfg.DB)
	if err != nil {
		slog.ErrorContext(ctx, "failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer database.Close()
	slog.InfoContext(ctx, "database connected")

	redisOpts, err := redis.ParseURL(cfg.Pipeline.RedisURL)
	if err != nil {
		slog.ErrorContext(ctx, "failed to parse redis url", "error", err)
		os.Exit(1)
	}

	redisClient := redis.NewClient(redisOpts)
	if err := redisClient.Ping(ctx).Err(); err != nil {
		slog.ErrorContext(ctx, "failed to connect to redis", "error", err)
		os.Exit(1)
	}
	defer redisClient.Close()
	slog.InfoContext(ctx, "redis connected", "stream", cfg.Pipeline.RedisStream)

	consumer, err := queue.NewRedisConsumer(redisClient, queue.ConsumerConfig{
		Stream:       cfg.Pipeline.RedisStream,
		Group:        cfg.Pipeline.RedisGroup,
		Consumer:     cfg.Pipeline.RedisConsumer,
		DLQStream:    cfg.Pipeline.RedisDLQStream,
		BatchSize:    10,
		Block:        5 * time.Second,
		MaxAttempts:  cfg.Pipeline.MaxAttempts,
		RequeueDelay: time.Second,
	})
	if err != nil {
		slog.ErrorContext(ctx, "failed to create consumer", "error", err)
		os.Exit(1)
	}
	producer := queue.NewRedisProducer(redisClient, cfg.Pipeline.RedisStream, slog.Default())

	tracker := issue_tracker.NewJiraService(cfg.Jira, cfg.Automation.EndDateField)
	repos, err := integration.NewRepositorySource(cfg.VCS)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create repository source", "error", err)
		os.Exit(1)
	}

	stores := store.NewStores(database.Queries())
	services := service.NewServices(stores, service.NewTxRunner(database), tracker, producer, cfg)

	runner := automation.NewRunner(automation.Config{
		Repositories:    cfg.Automation.Repositories,
		Queries:         cfg.Automation.Automation.Queries,
		Concurrency:     cfg.Automation.Automation.Concurrency,
		ParentTimeout:   cfg.Automation.Automation.ParentTimeout,
		StatusChannelID: cfg.Slack.StatusChangeChannelID,
		LogsChannelID:   cfg.Slack.LogsChannelID,
	}, tracker, repos, producer, runLogs)

	watchPoller := poller.New(poller.Config{
		BatchSize:    cfg.Automation.Watch.BatchSize,
		BatchTimeout: cfg.Automation.Watch.BatchTimeout,
		FetchTimeout: cfg.Automation.Watch.FetchTimeout,
		BatchDelay:   cfg.Automation.Watch.BatchDelay,
	}, tracker, stores.Snapshots(), services.Watches(), producer)

	coordinator, err := scheduler.NewCoordinator(
		scheduler.ConfigFromFile(cfg.Automation),
		newJobs(runner, watchPoller, services),
		scheduler.RealClock(),
	)
	if err != nil {
		slog.ErrorContext(ctx, "failed to create scheduler", "error", err)
		os.Exit(1)
	}

	dispatcher := notify.NewDispatcher(notify.NewSlackSink(slack.New(cfg.Slack.BotToken)))
	delivery := worker.New(consumer, dispatcher, worker.Config{MaxAttempts: cfg.Pipeline.MaxAttempts})
	reclaimer := worker.NewReclaimer(consumer, delivery.Handle, worker.ReclaimerConfig{
		Consumer:      cfg.Pipeline.RedisConsumer + "-reclaimer",
		MinIdle:       5 * time.Minute,
		Interval:      time.Minute,
		BatchSize:     10,
		MaxDeliveries: 5,
	})

	runCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- delivery.Run(runCtx)
	}()
	go reclaimer.Run(runCtx)

	slog.InfoContext(ctx, "worker initialized and running",
		"next_explicit_run", scheduler.NextRun(cfg.Automation.RunTimes, time.Now()))

	// Blocks until SIGINT/SIGTERM.
	if err := coordinator.Run(runCtx); err != nil {
		slog.ErrorContext(ctx, "scheduler error", "error", err)
	}

	slog.InfoContext(ctx, "shutting down worker...")

	shutdownCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := coordinator.Shutdown(shutdownCtx); err != nil {
		slog.WarnContext(ctx, "units still running at shutdown", "error", err)
	}

	select {
	case <-shutdownCtx.Done():
		slog.WarnContext(ctx, "shutdown timeout exceeded")
	case err := <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			slog.ErrorContext(ctx, "delivery worker error during shutdown", "error", err)
		}
	}

	if telemetry != nil {
		if err := telemetry.Shutdown(shutdownCtx); err != nil {
			slog.ErrorContext(shutdownCtx, "otel shutdown error", "error", err)
		}
	}

	slog.InfoContext(ctx, "worker shutdown complete")
}

const banner = `
  _   _ ___ ___   _ _____ ___ ___   __      _____  ___ _  _____ ___
 | | | | _ \   \ /_\_   _| __| _ \  \ \    / / _ \| _ \ |/ / __| _ \
 | |_| |  _/ |) / _ \| | | _||   /   \ \/\/ / (_) |   / ' <| _||   /
  \___/|_| |___/_/ \_\_| |___|_|_\    \_/\_/ \___/|_|_\_|\_\___|_|_\
`
