package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"FinWalk/internal/di"
	"FinWalk/pkg/config"
	"FinWalk/pkg/server"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "finwalk",
	Short: "Walk-forward optimization of moving-average crossover rules",
	Long: `finwalk splits a price series into rolling in-sample/out-of-sample windows,
picks the best crossover parameters on each in-sample segment, scores them
out of sample and tests whether the out-of-sample scores differ from the
in-sample ones.`,
	SilenceUsage: true,
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the walk-forward HTTP API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		app, err := initApp(nil)
		if err != nil {
			return err
		}
		return app.Serve(cmd.Context())
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "config/config.yaml", "config file path")
	rootCmd.AddCommand(serveCmd, runCmd)
}

func initApp(adjust func(*config.Config)) (*server.App, error) {
	cfg, err := config.LoadWithEnv(configPath)
	if err != nil {
		return nil, fmt.Errorf("config load failed: %w", err)
	}
	if adjust != nil {
		adjust(cfg)
	}
	app, err := di.InitializeApp(cfg)
	if err != nil {
		return nil, fmt.Errorf("app initialization failed: %w", err)
	}
	return app, nil
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
