package plan

import (
	"errors"
	"fmt"
	"strings"

	"github.com/avhost/castnode/internal/device"
	"github.com/avhost/castnode/internal/platform"
)

// ErrInvalidSinkAddress indicates a sink URL that fails the scheme check.
var ErrInvalidSinkAddress = errors.New("invalid sink address")

// Request is the caller's one-shot input to planning. Immutable.
type Request struct {
	Source  device.Ref
	Audio   *device.Ref
	Sink    string
	Quality Quality
}

// Plan is the fully resolved argument set for one session. Deterministic
// given (Request, CapabilitySnapshot); consumed once by the supervisor.
type Plan struct {
	InputArgs           []string `json:"input_args"`
	OutputArgs          []string `json:"output_args"`
	ResolvedFrameRate   float64  `json:"resolved_frame_rate"`
	ResolvedBitrateKbps int      `json:"resolved_bitrate_kbps"`
}

// Args returns the complete argument vector for the encoder subprocess.
func (p Plan) Args() []string {
	args := make([]string, 0, len(p.InputArgs)+len(p.OutputArgs))
	args = append(args, p.InputArgs...)
	args = append(args, p.OutputArgs...)
	return args
}

// Planner builds pipeline plans against one platform profile and the
// process-wide quality table.
type Planner struct {
	profile platform.Profile
	table   *Table
}

// NewPlanner creates a Planner.
func NewPlanner(profile platform.Profile, table *Table) *Planner {
	return &Planner{profile: profile, table: table}
}

// Build resolves a request into a plan. Pure: no subprocess is touched and
// no state is created, so a planning failure leaves nothing to clean up.
//
// Argument order is a correctness requirement of the encoder's argument
// grammar: input-format flags, device flags, audio flags (only with an
// audio source), output/encoder flags, sink address last.
func (p *Planner) Build(req Request, caps *device.CapabilitySnapshot) (Plan, error) {
	if err := validateSink(req.Sink); err != nil {
		return Plan{}, err
	}

	quality := req.Quality
	if quality == "" {
		quality = Standard
	}
	profile, ok := p.table.Get(quality)
	if !ok {
		return Plan{}, fmt.Errorf("unknown quality profile %q", string(req.Quality))
	}

	frameRate := p.resolveFrameRate(req.Source, caps, profile.FrameRateCeiling)

	inputArgs := p.profile.InputArgs(req.Source, frameRate)
	if req.Audio != nil {
		inputArgs = append(inputArgs, p.profile.AudioArgs(*req.Audio)...)
		inputArgs = append(inputArgs, "-map", "0:v", "-map", "1:a")
	}

	outputArgs := buildOutputArgs(profile, req.Audio != nil, req.Sink)

	return Plan{
		InputArgs:           inputArgs,
		OutputArgs:          outputArgs,
		ResolvedFrameRate:   frameRate,
		ResolvedBitrateKbps: profile.BitrateKbps,
	}, nil
}

// resolveFrameRate picks the highest rate the device reports that does not
// exceed the profile ceiling, falling back to the platform default table
// when the device reports nothing usable.
func (p *Planner) resolveFrameRate(source device.Ref, caps *device.CapabilitySnapshot, ceiling float64) float64 {
	if cap := caps.Lookup(source.PlatformID); cap != nil {
		// FrameRates is sorted descending, so the first rate under the
		// ceiling is the best one.
		for _, fps := range cap.FrameRates {
			if fps <= ceiling {
				return fps
			}
		}
	}
	return p.profile.DefaultFrameRate(source.Kind)
}

func buildOutputArgs(profile Profile, withAudio bool, sink string) []string {
	args := []string{
		"-c:v", "libx264",
		"-preset", profile.Preset,
		"-b:v", fmt.Sprintf("%dk", profile.BitrateKbps),
		"-maxrate", fmt.Sprintf("%dk", profile.MaxBitrateKbps),
		"-bufsize", fmt.Sprintf("%dk", profile.BufSizeKbps),
		"-g", fmt.Sprintf("%d", profile.GOP),
		"-pix_fmt", "yuv420p",
	}

	if withAudio {
		args = append(args, "-c:a", "aac", "-b:a", "128k", "-ar", "44100")
	}

	// Sink address is always last.
	args = append(args, "-f", "flv", sink)
	return args
}

// validateSink is a minimal scheme check; full URL validation is the
// subprocess's concern. An empty or placeholder sink must never reach the
// spawn path.
func validateSink(sink string) error {
	rest, ok := strings.CutPrefix(sink, "rtmp://")
	if !ok {
		rest, ok = strings.CutPrefix(sink, "rtmps://")
	}
	if !ok || rest == "" {
		return fmt.Errorf("%w: %q", ErrInvalidSinkAddress, sink)
	}
	return nil
}
