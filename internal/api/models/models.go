package models

import (
	"time"
)

// Health check models
type HealthData struct {
	Status  string `json:"status" example:"ok" doc:"Service status"`
	Message string `json:"message" example:"API is healthy" doc:"Status message"`
}

type HealthResponse struct {
	Body HealthData
}

// Version models
type VersionData struct {
	Version   string `json:"version" example:"dev" doc:"Application version"`
	GitCommit string `json:"git_commit" example:"abc1234" doc:"Git commit SHA"`
	BuildDate string `json:"build_date" example:"2025-06-15 14:30" doc:"Build timestamp"`
	GoVersion string `json:"go_version" example:"go1.24.0" doc:"Go compiler version"`
	Platform  string `json:"platform" example:"linux/amd64" doc:"Platform"`
}

type VersionResponse struct {
	Body VersionData
}

// Session models
type DeviceKind string

const (
	KindCamera     DeviceKind = "camera"
	KindMicrophone DeviceKind = "microphone"
	KindScreen     DeviceKind = "screen"
)

type SessionRequestData struct {
	SourceID string     `json:"source_id,omitempty" example:"/dev/video0" doc:"Platform device identifier; empty selects the platform default"`
	Kind     DeviceKind `json:"kind" enum:"camera,microphone,screen" example:"camera" doc:"Capture source kind"`
	AudioID  string     `json:"audio_id,omitempty" example:"hw:1,0" doc:"Optional audio device to mux alongside video"`
	Sink     string     `json:"sink" minLength:"1" example:"rtmp://live.example.com/app/key" doc:"RTMP(S) publish address"`
	Quality  string     `json:"quality" enum:"low,standard,high" example:"standard" doc:"Quality profile"`
}

type SessionRequest struct {
	Body SessionRequestData
}

type SessionData struct {
	SessionID    string    `json:"session_id" example:"2d9e7f3a-6a0f-4f59-9c30-2b1a4f0e8d11" doc:"Session identifier"`
	SourceKey    string    `json:"source_key" example:"camera:/dev/video0" doc:"Resolved source identity"`
	Sink         string    `json:"sink" example:"rtmp://live.example.com/app/key" doc:"Publish sink address"`
	Quality      string    `json:"quality" example:"standard" doc:"Quality profile"`
	State        string    `json:"state" example:"running" doc:"Lifecycle state"`
	StartedAt    time.Time `json:"started_at,omitempty" doc:"When the encoder was spawned"`
	FrameRate    float64   `json:"frame_rate,omitempty" example:"30" doc:"Resolved capture frame rate"`
	BitrateKbps  int       `json:"bitrate_kbps,omitempty" example:"2500" doc:"Target video bitrate"`
	UsedFallback bool      `json:"used_fallback,omitempty" doc:"Whether device resolution fell back to a default"`
	LastError    string    `json:"last_error,omitempty" doc:"Stderr tail from a crashed encoder; readable once"`
	ExitCode     int       `json:"exit_code,omitempty" example:"1" doc:"Subprocess exit code for crashed sessions"`
}

type SessionResponse struct {
	Body SessionData
}

type SessionListData struct {
	Sessions []SessionData `json:"sessions" doc:"All registered sessions, oldest first"`
	Count    int           `json:"count" example:"2" doc:"Number of sessions"`
}

type SessionListResponse struct {
	Body SessionListData
}

// Device capability models
type ResolutionData struct {
	Width  int `json:"width" example:"1920" doc:"Horizontal pixels"`
	Height int `json:"height" example:"1080" doc:"Vertical pixels"`
}

type DeviceCapabilityData struct {
	PlatformID  string           `json:"platform_id" example:"/dev/video0" doc:"Platform device identifier"`
	Index       int              `json:"index" example:"0" doc:"Canonical device index"`
	FrameRates  []float64        `json:"frame_rates" doc:"Supported frame rates, highest first"`
	Resolutions []ResolutionData `json:"resolutions,omitempty" doc:"Supported capture resolutions"`
}

type DeviceListData struct {
	Kind       string                 `json:"kind" example:"camera" doc:"Device kind probed"`
	Devices    []DeviceCapabilityData `json:"devices" doc:"Discovered devices"`
	CapturedAt time.Time              `json:"captured_at" doc:"When the probe transcript was captured"`
}

type DeviceListResponse struct {
	Body DeviceListData
}

// Quality profile models
type ProfileData struct {
	Quality          string  `json:"quality" example:"standard" doc:"Profile name"`
	BitrateKbps      int     `json:"bitrate_kbps" example:"2500" doc:"Target bitrate"`
	MaxBitrateKbps   int     `json:"max_bitrate_kbps" example:"3000" doc:"Rate control ceiling"`
	BufSizeKbps      int     `json:"buf_size_kbps" example:"5000" doc:"Rate control buffer"`
	GOP              int     `json:"gop" example:"60" doc:"Keyframe interval in frames"`
	Preset           string  `json:"preset" example:"veryfast" doc:"Encoder preset"`
	FrameRateCeiling float64 `json:"frame_rate_ceiling" example:"30" doc:"Maximum frame rate for this profile"`
}

type ProfileListData struct {
	Profiles []ProfileData `json:"profiles" doc:"Current quality table rows"`
}

type ProfileListResponse struct {
	Body ProfileListData
}
