/*
Copyright © 2026 NAME HERE <EMAIL ADDRESS>
*/
package cmd

import (
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"
	"github.com/stackit-qa/apiserver/config"
	"github.com/stackit-qa/apiserver/internal/app"
	"github.com/stackit-qa/apiserver/internal/logging"
	"github.com/stackit-qa/apiserver/internal/shell"
)

// shellCmd represents the shell command
var shellCmd = &cobra.Command{
	Use:   "shell",
	Short: "Use the forum from the terminal",
	Long: `Starts an interactive StackIt session in the terminal. The signed-in
user is persisted to the session backend and restored on the next start.

	stackit shell --seed
`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.LoadConfig()
		if seed, _ := cmd.Flags().GetBool("seed"); seed {
			cfg.SeedDemo = true
		}

		// Development logging would interleave with the prompt.
		level, _ := cmd.Flags().GetString("log-level")
		logger, err := logging.New(cfg.Env, level)
		if err != nil {
			return fmt.Errorf("build logger: %w", err)
		}
		defer func() { _ = logger.Sync() }()

		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
		defer stop()

		a, err := app.New(ctx, cfg, logger)
		if err != nil {
			return err
		}
		defer a.Close()

		return shell.New(a, cmd.InOrStdin(), cmd.OutOrStdout()).Run(ctx)
	},
}

func init() {
	rootCmd.AddCommand(shellCmd)

	shellCmd.Flags().Bool("seed", false, "Load demo questions and answers on start")
	shellCmd.Flags().String("log-level", "error", "Log level for the shell session")
}
