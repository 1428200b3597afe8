package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/slack-go/slack"

	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/id"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/common/logger"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/core/config"
	"github.com/NotTheRightGuy/Auto-JIRA-Status-Updater/internal/notify"
)

// loadConfig loads the full configuration, honouring --config.
func loadConfig() (config.Config, error) {
	if configFile != "" {
		if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
			return config.Config{}, err
		}
	}
	cfg, err := config.Load(config.ServiceTypeUpdater)
	if err != nil {
		return config.Config{}, err
	}
	logger.Setup(cfg)
	if err := id.Init(3); err != nil {
		return config.Config{}, fmt.Errorf("initializing id generator: %w", err)
	}
	return cfg, nil
}

func fileConfigPath() string {
	if configFile != "" {
		return configFile
	}
	if p, ok := os.LookupEnv("CONFIG_FILE"); ok {
		return p
	}
	return "config.json"
}

// logPublisher stands in for chat delivery when no bot token is configured.
type logPublisher struct{}

func (logPublisher) Enqueue(ctx context.Context, n notify.Notification) error {
	slog.InfoContext(ctx, "notification (chat disabled)",
		"kind", n.Kind,
		"channel_id", n.ChannelID,
		"observer_id", n.ObserverID,
		"text", n.Payload.PlainText())
	return nil
}

type publisher interface {
	Enqueue(ctx context.Context, n notify.Notification) error
}

// newPublisher delivers straight to Slack; the CLI does not use the stream.
func newPublisher(cfg config.Config) publisher {
	if !cfg.Slack.Enabled() {
		return logPublisher{}
	}
	return notify.NewDispatcher(notify.NewSlackSink(slack.New(cfg.Slack.BotToken)))
}
