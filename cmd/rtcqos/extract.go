package main

import (
	"encoding/json"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/luongdev/rtcqos/pkg/calculator"
	"github.com/luongdev/rtcqos/pkg/logger"
	"github.com/luongdev/rtcqos/pkg/processor"
	"github.com/luongdev/rtcqos/pkg/stats"
)

var (
	extractLocal    string
	extractRemotes  []string
	extractSelected []string
	extractIndent   bool
)

var extractCmd = &cobra.Command{
	Use:   "extract",
	Short: "compute the metrics report of capture files and print it as JSON",
	RunE:  extractMain,
}

func init() {
	extractCmd.Flags().StringVarP(&extractLocal, "local", "l", "", "local peer capture file")
	extractCmd.Flags().StringArrayVarP(&extractRemotes, "remote", "r", nil, "remote peer capture file, repeatable")
	extractCmd.Flags().StringSliceVarP(&extractSelected, "selected", "s", nil, "stat types to keep, comma separated (default all, with SDP)")
	extractCmd.Flags().BoolVar(&extractIndent, "indent", false, "indent the JSON output")

	rootCmd.AddCommand(extractCmd)
}

func readCapture(path string) (*stats.RawCapture, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	capture, err := stats.DecodeCapture(f)
	if err != nil {
		return nil, errors.Wrap(err, path)
	}
	return capture, nil
}

// selectedFilter resolves the allow-list: the flag wins, then the config.
func selectedFilter(cmd *cobra.Command) stats.Filter {
	if cmd.Flags().Changed("selected") {
		if extractSelected == nil {
			return stats.Filter{}
		}
		return stats.Filter(extractSelected)
	}
	return stats.Filter(conf.Stats.SelectedStats)
}

func extractMain(cmd *cobra.Command, args []string) error {
	if extractLocal == "" && len(extractRemotes) == 0 {
		return errors.New("at least one of --local or --remote is required")
	}

	var local *stats.RawCapture
	if extractLocal != "" {
		c, err := readCapture(extractLocal)
		if err != nil {
			return err
		}
		local = c
	}

	remotes := make([]*stats.RawCapture, 0, len(extractRemotes))
	for _, path := range extractRemotes {
		c, err := readCapture(path)
		if err != nil {
			return err
		}
		remotes = append(remotes, c)
	}

	extractor := processor.NewExtractor(calculator.NewQoSCalculator(logger.Logr("calculator")))
	report := extractor.ExtractRaw(local, remotes, selectedFilter(cmd))

	enc := json.NewEncoder(cmd.OutOrStdout())
	if extractIndent {
		enc.SetIndent("", "  ")
	}
	return enc.Encode(report)
}
