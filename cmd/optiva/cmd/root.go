package cmd

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/awnumar/memguard"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jmcleod/optiva/internal/config"
)

var (
	cfgFile string
	v       = viper.New()
	cfg     *config.Config
	logger  *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "optiva",
	Short: "Optiva is a client for the Optiva lifestyle tracker",
	Long: `A command line client for the Optiva lifestyle tracker API.
Sessions are stored per profile and refreshed transparently.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(v, cfgFile)
		if err != nil {
			return err
		}
		cfg = loaded
		logger = cfg.NewLogger(os.Stderr)
		slog.SetDefault(logger)
		return nil
	},
}

// Execute runs the CLI. Secrets held by memguard are wiped before exit.
func Execute() {
	memguard.CatchInterrupt()
	err := rootCmd.Execute()
	if err != nil {
		memguard.SafeExit(1)
	}
	memguard.Purge()
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&cfgFile, "config", "", "Config file (default $HOME/.optiva/config.yaml)")
	f.String("api-url", "", "Base URL of the Optiva API")
	f.StringP("profile", "p", "", "Session profile name")
	f.String("data-dir", "", "Directory for local session storage")
	f.String("store", "", "Session storage backend: bbolt, memory, redis or postgres")
	f.String("log-level", "", "Log level: debug, info, warn or error")
	f.String("log-format", "", "Log format: text or json")

	for key, flag := range map[string]string{
		"api_url":    "api-url",
		"profile":    "profile",
		"data_dir":   "data-dir",
		"store":      "store",
		"log_level":  "log-level",
		"log_format": "log-format",
	} {
		if err := v.BindPFlag(key, f.Lookup(flag)); err != nil {
			panic(fmt.Sprintf("binding flag %s: %v", flag, err))
		}
	}
}
