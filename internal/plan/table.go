// Package plan turns a stream request plus a capability snapshot into the
// fully resolved encoder argument vector for one session.
package plan

import (
	"sync"
)

// Quality selects a row of the quality table.
type Quality string

const (
	Low      Quality = "low"
	Standard Quality = "standard"
	High     Quality = "high"
)

// Valid reports whether q is a known quality profile.
func (q Quality) Valid() bool {
	switch q {
	case Low, Standard, High:
		return true
	}
	return false
}

// Profile is one row of the quality table. All rate values are kbps.
type Profile struct {
	BitrateKbps      int     `toml:"bitrate_kbps" json:"bitrate_kbps"`
	MaxBitrateKbps   int     `toml:"max_bitrate_kbps" json:"max_bitrate_kbps"`
	BufSizeKbps      int     `toml:"buf_size_kbps" json:"buf_size_kbps"`
	GOP              int     `toml:"gop" json:"gop"`
	Preset           string  `toml:"preset" json:"preset"`
	FrameRateCeiling float64 `toml:"frame_rate_ceiling" json:"frame_rate_ceiling"`
}

// defaultProfiles is the built-in quality table. Bitrates target common
// RTMP ingest guidance; GOP is two seconds at the profile ceiling.
var defaultProfiles = map[Quality]Profile{
	Low: {
		BitrateKbps:      1000,
		MaxBitrateKbps:   1200,
		BufSizeKbps:      2000,
		GOP:              60,
		Preset:           "veryfast",
		FrameRateCeiling: 30,
	},
	Standard: {
		BitrateKbps:      2500,
		MaxBitrateKbps:   3000,
		BufSizeKbps:      5000,
		GOP:              60,
		Preset:           "veryfast",
		FrameRateCeiling: 30,
	},
	High: {
		BitrateKbps:      6000,
		MaxBitrateKbps:   6600,
		BufSizeKbps:      12000,
		GOP:              120,
		Preset:           "fast",
		FrameRateCeiling: 60,
	},
}

// Table is the quality lookup table. Reads are concurrent; an override
// reload replaces the whole table atomically, never editing rows in place.
type Table struct {
	mu       sync.RWMutex
	profiles map[Quality]Profile
}

// DefaultTable returns a Table seeded with the built-in profiles.
func DefaultTable() *Table {
	return &Table{profiles: cloneProfiles(defaultProfiles)}
}

// Get returns the profile for the given quality.
func (t *Table) Get(q Quality) (Profile, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	p, ok := t.profiles[q]
	return p, ok
}

// Replace swaps in a new set of profiles. Qualities missing from the new
// set fall back to the built-in defaults so a partial override file cannot
// leave a quality unplannable.
func (t *Table) Replace(profiles map[Quality]Profile) {
	next := cloneProfiles(defaultProfiles)
	for q, p := range profiles {
		if q.Valid() {
			next[q] = p
		}
	}

	t.mu.Lock()
	t.profiles = next
	t.mu.Unlock()
}

// All returns a copy of every profile currently in the table.
func (t *Table) All() map[Quality]Profile {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return cloneProfiles(t.profiles)
}

// Overrides is the on-disk shape of a quality override file.
type Overrides struct {
	Profiles map[string]Profile `toml:"profiles"`
}

// ApplyOverrides replaces the table from a parsed override file.
func (t *Table) ApplyOverrides(o Overrides) {
	profiles := make(map[Quality]Profile, len(o.Profiles))
	for name, p := range o.Profiles {
		profiles[Quality(name)] = p
	}
	t.Replace(profiles)
}

func cloneProfiles(src map[Quality]Profile) map[Quality]Profile {
	dst := make(map[Quality]Profile, len(src))
	for q, p := range src {
		dst[q] = p
	}
	return dst
}
