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

	"github.com/spf13/cobra"
	"github.com/stackit-qa/apiserver/config"
	"github.com/stackit-qa/apiserver/internal/mq"
	"github.com/stackit-qa/apiserver/types"
)

// notificationsCmd represents the notifications command.
var notificationsCmd = &cobra.Command{
	Use:   "notifications",
	Short: "Inspect notification events on the message broker",
}

var notificationsTailCmd = &cobra.Command{
	Use:   "tail",
	Short: "Print notification events as they are published",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		broker, err := mq.Open(ctx, cfg)
		if err != nil {
			return err
		}
		if broker == nil {
			return errors.New("no message broker configured; set MQ_BACKEND to rabbitmq or pubsub")
		}
		defer func() {
			_ = broker.Close()
		}()

		user, _ := cmd.Flags().GetString("user")
		out := cmd.OutOrStdout()
		err = broker.Subscribe(ctx, cfg.MQ.Channel, func(ctx context.Context, msg mq.Message) error {
			if user != "" && msg.Attributes["user_id"] != user {
				return nil
			}
			var n types.Notification
			if err := json.Unmarshal(msg.Data, &n); err != nil {
				return fmt.Errorf("decode notification %s: %w", msg.ID, err)
			}
			fmt.Fprintf(out, "%s  %-8s  %s  %s\n", n.CreatedAt.Format("15:04:05"), n.Type, n.UserID, n.Message)
			return nil
		})
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(notificationsCmd)
	notificationsCmd.AddCommand(notificationsTailCmd)

	notificationsTailCmd.Flags().String("user", "", "Only print events for this user id")
}
