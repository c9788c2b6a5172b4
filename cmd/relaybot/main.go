// Command relaybot runs the Telegram menu bot with its Gemini chat relay.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/m3rciful/relaybot/core/buildinfo"
	"github.com/m3rciful/relaybot/core/cmd"
	"github.com/m3rciful/relaybot/core/logger"
	"github.com/m3rciful/relaybot/internal/app"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:           "relaybot",
	Short:         "Telegram menu bot with a Gemini chat relay",
	SilenceUsage:  true,
	SilenceErrors: true,
	RunE: func(c *cobra.Command, _ []string) error {
		return cmd.Run(c.Context(), cmd.Options{
			ConfigPath:   configPath,
			ConfigEnvVar: cmd.DefaultConfigEnvVar,
			LoadConfig: func(path string) (cmd.ConfigCarrier, error) {
				return app.LoadConfig(path)
			},
			Bootstrap: func(ctx context.Context, carrier cmd.ConfigCarrier) (cmd.TelegramApp, error) {
				cfg, ok := carrier.(*app.Config)
				if !ok {
					return nil, fmt.Errorf("unexpected config type %T", carrier)
				}
				return app.New(ctx, cfg, app.Options{})
			},
		})
	},
}

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply Postgres migrations and exit",
	RunE: func(_ *cobra.Command, _ []string) error {
		cfg, err := app.LoadConfig(cmd.ResolveConfigPath(configPath, cmd.DefaultConfigEnvVar, ""))
		if err != nil {
			return err
		}
		defer func() { _ = logger.Shutdown() }()
		return app.Migrate(cfg)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	Run: func(c *cobra.Command, _ []string) {
		fmt.Fprintln(c.OutOrStdout(), "relaybot", buildinfo.Summary())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to YAML config (or set "+cmd.DefaultConfigEnvVar+" env)")
	rootCmd.AddCommand(migrateCmd, versionCmd)
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "relaybot:", err)
		os.Exit(1)
	}
}
