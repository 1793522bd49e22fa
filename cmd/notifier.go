/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/booklend/apiserver/config"
	"github.com/booklend/apiserver/internal/mq"
	"github.com/booklend/apiserver/internal/services"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

// notifierCmd consumes rental lifecycle events from the broker and logs
// checkout/return activity. It runs until interrupted.
var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Consume and log rental lifecycle events",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		logger, err := zap.NewProduction()
		if err != nil {
			return fmt.Errorf("init logger failed: %w", err)
		}
		defer logger.Sync()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.FromConfig(ctx, cfg.Broker)
		if err != nil {
			return fmt.Errorf("init broker failed: %w", err)
		}
		if broker == nil {
			return errors.New("BROKER_BACKEND is required for the notifier")
		}
		defer broker.Close()

		logger.Info("notifier listening", zap.String("channel", cfg.Broker.Channel))

		err = broker.Subscribe(ctx, cfg.Broker.Channel, func(ctx context.Context, msg mq.Message) error {
			var event services.RentalEvent
			if err := json.Unmarshal(msg.Data, &event); err != nil {
				logger.Warn("discarding malformed event", zap.String("message_id", msg.ID), zap.Error(err))
				return nil
			}
			logger.Info("rental event",
				zap.String("type", event.Type),
				zap.String("rental_id", event.RentalID),
				zap.String("book_id", event.BookID),
				zap.String("user_id", event.UserID),
				zap.Time("occurred_at", event.OccurredAt),
			)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(notifierCmd)
}
