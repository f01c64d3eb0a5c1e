package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiaomi-sm6250/powerhal/internal/config"
	"github.com/xiaomi-sm6250/powerhal/internal/logger"
	"github.com/xiaomi-sm6250/powerhal/internal/ui"
)

var (
	flagConfig   string
	flagListen   string
	flagLogLevel string
)

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfig, "config", "", "Path to powerhal.yaml (default: $POWERHAL_CONFIG, /vendor/etc/powerhal.yaml, ~/.powerhal/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&flagListen, "listen", "", "Address of the HAL endpoint (default 127.0.0.1:7787)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn or error")
}

var rootCmd = &cobra.Command{
	Use:   "powerhal",
	Short: "powerhal: power HAL for sm6250 devices",
	Long: `powerhal translates framework power requests (interaction, launch,
sustained performance, audio and rendering hints, device modes) into
hint-engine actions on the device's sysfs nodes.

Run "powerhal serve" to start the HAL. The other commands talk to a
running HAL over its local WebSocket endpoint.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		ui.Error("%v", err)
		os.Exit(1)
	}
}

// loadConfig resolves configuration and applies its log level.
func loadConfig(policy string) (*config.Config, error) {
	cfg, err := config.Load(config.Flags{
		ConfigPath: flagConfig,
		Listen:     flagListen,
		PolicyPath: policy,
		LogLevel:   flagLogLevel,
	})
	if err != nil {
		return nil, fmt.Errorf("configuration error: %w", err)
	}
	lvl, err := logger.ParseLevel(cfg.LogLevel)
	if err != nil {
		return nil, err
	}
	logger.SetLevel(lvl)
	return cfg, nil
}
