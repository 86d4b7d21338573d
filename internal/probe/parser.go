package probe

import (
	"bufio"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/avhost/castnode/internal/device"
	"github.com/avhost/castnode/internal/platform"
)

// Parse converts a device-listing transcript into a capability snapshot.
//
// The transcript is free text whose exact phrasing is not a stable contract
// of the external binary, so parsing is cursor-based and lenient: a line
// matching the header pattern opens a new device record, mode lines attach
// a frame rate to the currently open record only, and everything else is
// skipped. A transcript with no device headers yields a valid empty
// snapshot.
func Parse(raw string, kind device.Kind, spec platform.ProbeSpec) device.CapabilitySnapshot {
	snapshot := device.CapabilitySnapshot{
		Kind:       kind,
		CapturedAt: time.Now(),
	}

	var current *record

	flush := func() {
		if current == nil {
			return
		}
		// The enumeration position is the device's canonical index; the
		// resolver leans on snapshot ordering for index-addressed lookups.
		snapshot.Devices = append(snapshot.Devices, current.capability(kind, len(snapshot.Devices)))
		current = nil
	}

	scanner := bufio.NewScanner(strings.NewReader(raw))
	for scanner.Scan() {
		line := scanner.Text()

		if m := match(spec.Header, line); m != nil {
			flush()
			current = &record{
				id:    m["id"],
				rates: make(map[float64]struct{}),
				sizes: make(map[device.Resolution]struct{}),
			}
			continue
		}

		// Mode and size lines only count while a device record is open.
		if current == nil {
			continue
		}

		if m := match(spec.Mode, line); m != nil {
			if fps, err := strconv.ParseFloat(m["fps"], 64); err == nil && fps > 0 {
				current.rates[fps] = struct{}{}
			}
			current.addSize(m)
			continue
		}

		if m := match(spec.Size, line); m != nil {
			current.addSize(m)
		}
	}

	flush()
	return snapshot
}

type record struct {
	id        string
	rates     map[float64]struct{}
	sizes     map[device.Resolution]struct{}
	sizeOrder []device.Resolution
}

func (r *record) addSize(m map[string]string) {
	w, errW := strconv.Atoi(m["w"])
	h, errH := strconv.Atoi(m["h"])
	if errW != nil || errH != nil || w <= 0 || h <= 0 {
		return
	}
	res := device.Resolution{Width: w, Height: h}
	if _, seen := r.sizes[res]; seen {
		return
	}
	r.sizes[res] = struct{}{}
	r.sizeOrder = append(r.sizeOrder, res)
}

func (r *record) capability(kind device.Kind, index int) device.Capability {
	rates := make([]float64, 0, len(r.rates))
	for fps := range r.rates {
		rates = append(rates, fps)
	}
	// Descending, so rates[0] answers "best frame rate" directly.
	sort.Sort(sort.Reverse(sort.Float64Slice(rates)))

	return device.Capability{
		Device:      device.Ref{Kind: kind, PlatformID: r.id, CanonicalIndex: index},
		FrameRates:  rates,
		Resolutions: r.sizeOrder,
	}
}

// match runs re against line and returns named capture groups, or nil.
func match(re *regexp.Regexp, line string) map[string]string {
	if re == nil {
		return nil
	}
	sub := re.FindStringSubmatch(line)
	if sub == nil {
		return nil
	}
	names := re.SubexpNames()
	out := make(map[string]string, len(names))
	for i, name := range names {
		if name != "" && i < len(sub) {
			out[name] = sub[i]
		}
	}
	return out
}
