package cmd

import (
	"context"
	"fmt"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/avhost/castnode/internal/device"
	"github.com/avhost/castnode/internal/events"
	"github.com/avhost/castnode/internal/logging"
	"github.com/avhost/castnode/internal/plan"
	"github.com/avhost/castnode/internal/platform"
	"github.com/avhost/castnode/internal/probe"
)

// CreatePlanCmd creates the plan command.
func CreatePlanCmd() *cobra.Command {
	var encoderBinary string
	var sourceID string
	var kindName string
	var audioID string
	var sink string
	var qualityName string
	var skipProbe bool

	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Print the planned encoder invocation",
		Long: `Resolves the capture device, consults the quality table and prints the encoder ` +
			`argument vector that a session start would spawn, without spawning anything.`,
		Run: func(_ *cobra.Command, _ []string) {
			logging.Initialize(logging.Config{Level: "warn", Format: "text"})
			logger := logging.GetLogger("plan")

			kind := device.Kind(kindName)
			if !kind.Valid() {
				logger.Error("Unknown device kind", "kind", kindName)
				os.Exit(1)
			}
			quality := plan.Quality(qualityName)
			if !quality.Valid() {
				logger.Error("Unknown quality profile", "quality", qualityName)
				os.Exit(1)
			}

			profile, err := platform.ForOS(runtime.GOOS)
			if err != nil {
				logger.Error("Unsupported platform", "error", err)
				os.Exit(1)
			}

			// Screens are index-addressed; everything else gets a capability
			// probe unless the caller opts out.
			var caps *device.CapabilitySnapshot
			if kind != device.ScreenRegion && !skipProbe {
				prober := probe.New(encoderBinary, profile, events.New(),
					probe.WithLogger(logger))
				snap, probeErr := prober.Snapshot(context.Background(), kind, true)
				if probeErr != nil {
					logger.Warn("Probe failed, planning without capabilities", "error", probeErr)
				} else {
					caps = &snap
				}
			}

			source, err := device.Resolve(sourceID, kind, profile.DefaultDeviceIndex(kind), caps)
			if err != nil {
				logger.Error("Cannot resolve capture device", "error", err)
				os.Exit(1)
			}

			req := plan.Request{
				Source:  source,
				Sink:    sink,
				Quality: quality,
			}
			if audioID != "" {
				audio, audioErr := device.Resolve(audioID, device.Microphone,
					profile.DefaultDeviceIndex(device.Microphone), nil)
				if audioErr != nil {
					logger.Error("Cannot resolve audio device", "error", audioErr)
					os.Exit(1)
				}
				req.Audio = &audio
			}

			planner := plan.NewPlanner(profile, plan.DefaultTable())
			p, err := planner.Build(req, caps)
			if err != nil {
				logger.Error("Planning failed", "error", err)
				os.Exit(1)
			}

			fmt.Println(encoderBinary + " " + strings.Join(p.Args(), " "))
		},
	}

	cmd.Flags().StringVar(&encoderBinary, "encoder-binary", "ffmpeg", "Encoder binary name used in the printed command")
	cmd.Flags().StringVar(&sourceID, "source", "", "Platform device identifier (empty selects the default)")
	cmd.Flags().StringVar(&kindName, "kind", "camera", "Capture source kind (camera, microphone, screen)")
	cmd.Flags().StringVar(&audioID, "audio", "", "Optional audio device to mux alongside video")
	cmd.Flags().StringVar(&sink, "sink", "", "RTMP(S) publish address")
	cmd.Flags().StringVar(&qualityName, "quality", "standard", "Quality profile (low, standard, high)")
	cmd.Flags().BoolVar(&skipProbe, "skip-probe", false, "Plan without probing device capabilities")

	return cmd
}
