// Package cmd holds the cobra subcommands attached to the humacli root.
package cmd

import (
	"context"
	"encoding/json"
	"os"
	"runtime"

	"github.com/spf13/cobra"

	"github.com/avhost/castnode/internal/device"
	"github.com/avhost/castnode/internal/events"
	"github.com/avhost/castnode/internal/logging"
	"github.com/avhost/castnode/internal/platform"
	"github.com/avhost/castnode/internal/probe"
)

// CreateProbeCmd creates the probe command.
func CreateProbeCmd() *cobra.Command {
	var encoderBinary string
	var logJSON bool

	cmd := &cobra.Command{
		Use:   "probe [kind]",
		Short: "Probe device capabilities",
		Long: `Runs the encoder's device listing mode for the given kind (camera or microphone), ` +
			`parses the transcript and prints the capability snapshot as JSON.`,
		Args: cobra.ExactArgs(1),
		Run: func(_ *cobra.Command, args []string) {
			loggingConfig := logging.Config{
				Level:  "warn",
				Format: "text",
			}
			if logJSON {
				loggingConfig.Format = "json"
			}
			logging.Initialize(loggingConfig)
			logger := logging.GetLogger("probe")

			kind := device.Kind(args[0])
			if !kind.Valid() || kind == device.ScreenRegion {
				logger.Error("Kind must be camera or microphone", "kind", args[0])
				os.Exit(1)
			}

			profile, err := platform.ForOS(runtime.GOOS)
			if err != nil {
				logger.Error("Unsupported platform", "error", err)
				os.Exit(1)
			}

			prober := probe.New(encoderBinary, profile, events.New(),
				probe.WithLogger(logger))

			snap, err := prober.Snapshot(context.Background(), kind, true)
			if err != nil {
				logger.Error("Probe failed", "error", err)
				os.Exit(1)
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(snap); err != nil {
				logger.Error("Failed to encode snapshot", "error", err)
				os.Exit(1)
			}
		},
	}

	cmd.Flags().StringVar(&encoderBinary, "encoder-binary", "ffmpeg", "Encoder binary used for the listing probe")
	cmd.Flags().BoolVar(&logJSON, "log-json", false, "Use JSON log format")

	return cmd
}
