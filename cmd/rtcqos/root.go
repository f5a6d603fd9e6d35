package main

import (
	"github.com/spf13/cobra"

	"github.com/luongdev/rtcqos/pkg/config"
	"github.com/luongdev/rtcqos/pkg/logger"
)

var (
	// Used for flags.
	cfgFile string
	conf    *config.Config

	rootCmd = &cobra.Command{
		Use:           "rtcqos",
		Short:         "rtcqos derives session quality metrics from WebRTC stats captures",
		Long:          `Classifies periodic getStats() polls and computes round-trip time, bitrate, jitter and packet loss per peer`,
		SilenceUsage:  true,
		SilenceErrors: false,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return initConfig()
		},
	}
)

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (YAML)")
}

// Execute executes the root command.
func Execute() error {
	defer logger.Sync()
	return rootCmd.Execute()
}

func initConfig() error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	conf = cfg

	logger.Init(logger.ParseLogLevel(conf.Logging.Level), conf.Logging.Format)
	return nil
}
