package main

import (
	"errors"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/iliyamo/quote-board/internal/queue"
)

var activityLog string

var consumeCmd = &cobra.Command{
	Use:   "consume",
	Short: "Append published domain events to the activity log",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		if cfg.RabbitMQURL == "" {
			return errors.New("RABBITMQ_URL is required for consume")
		}
		path := cfg.ActivityLog
		if activityLog != "" {
			path = activityLog
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		log.WithField("path", path).Info("activity consumer starting")
		return queue.Consume(ctx, cfg.RabbitMQURL, path)
	},
}

func init() {
	consumeCmd.Flags().StringVar(&activityLog, "log-file", "", "Override ACTIVITY_LOG_PATH")
	rootCmd.AddCommand(consumeCmd)
}
