package main

import (
	"os"

	"github.com/rotisserie/eris"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/landing-verdict/backend/config"
	"github.com/landing-verdict/backend/logging"
)

var (
	cfg        *config.Config
	configPath string
)

var rootCmd = &cobra.Command{
	Use:   "landing-verdict",
	Short: "Landing page decision verdicts",
	Long:  "Extracts conversion signals from landing pages, scores decision blockers and infers the visitor's decision stage.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var paths []string
		if configPath != "" {
			paths = append(paths, configPath)
		}
		c, err := config.Load(paths...)
		if err != nil {
			return eris.Wrap(err, "load config")
		}
		cfg = c

		if _, err := logging.New(cfg.Log); err != nil {
			return eris.Wrap(err, "init logger")
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		_ = zap.L().Sync()
	},
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config-dir", "", "directory containing config.yaml")
	rootCmd.AddCommand(serveCmd, analyzeCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
