package main

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/luongdev/rtcqos/pkg/logger"
	"github.com/luongdev/rtcqos/pkg/server"
	"github.com/luongdev/rtcqos/pkg/stats"
)

var classifySelected []string

var classifyCmd = &cobra.Command{
	Use:   "classify <capture.json>",
	Short: "print the classified snapshots of a capture file as JSON",
	Args:  cobra.ExactArgs(1),
	RunE:  classifyMain,
}

func init() {
	classifyCmd.Flags().StringSliceVarP(&classifySelected, "selected", "s", nil, "stat types to keep, comma separated (default all, with SDP)")

	rootCmd.AddCommand(classifyCmd)
}

func classifyMain(cmd *cobra.Command, args []string) error {
	raw, err := readCapture(args[0])
	if err != nil {
		return err
	}

	filter := stats.Filter(conf.Stats.SelectedStats)
	if cmd.Flags().Changed("selected") {
		filter = stats.Filter(append([]string{}, classifySelected...))
	}

	capture := stats.BuildCapture(raw, filter)
	resp := server.ClassifyResponse{Capture: capture}
	if media, err := capture.SDP.Summary(); err != nil {
		logger.Warn("Failed to summarize session descriptors: %v", err)
	} else {
		resp.Media = media
	}
	return json.NewEncoder(cmd.OutOrStdout()).Encode(resp)
}
