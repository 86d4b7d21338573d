package main

import (
	"errors"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"time"

	"github.com/danielgtaylor/huma/v2/humacli"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avhost/castnode/cmd"
	"github.com/avhost/castnode/internal/api"
	"github.com/avhost/castnode/internal/config"
	"github.com/avhost/castnode/internal/events"
	"github.com/avhost/castnode/internal/logging"
	"github.com/avhost/castnode/internal/plan"
	"github.com/avhost/castnode/internal/platform"
	"github.com/avhost/castnode/internal/probe"
	"github.com/avhost/castnode/internal/session"
)

// Options for the CLI - flat structure with toml mapping.
type Options struct {
	Config string `help:"Path to configuration file" short:"c" default:"config.toml"`

	// Server settings
	Port string `help:"Port to listen on" short:"p" default:":8080" toml:"server.port" env:"SERVER_PORT"`

	// Encoder settings
	EncoderBinary string `help:"Encoder binary to spawn" default:"ffmpeg" toml:"encoder.binary" env:"ENCODER_BINARY"`
	StopTimeoutMs int    `help:"Graceful stop timeout in milliseconds" default:"3000" toml:"encoder.stop_timeout_ms" env:"ENCODER_STOP_TIMEOUT_MS"`

	// Quality profile settings
	ProfilesFile string `help:"Quality profile overrides file (hot-reloaded)" default:"" toml:"profiles.file" env:"PROFILES_FILE"`

	// Auth settings
	AuthUsername string `help:"Basic auth username" default:"admin" toml:"auth.username" env:"AUTH_USERNAME"`
	AuthPassword string `help:"Basic auth password" default:"password" toml:"auth.password" env:"AUTH_PASSWORD"`

	// Logging settings
	LoggingLevel   string `help:"Global logging level (debug, info, warn, error)" default:"info" toml:"logging.level" env:"LOGGING_LEVEL"`
	LoggingFormat  string `help:"Logging format (text, json)" default:"text" toml:"logging.format" env:"LOGGING_FORMAT"`
	LoggingSession string `help:"Session supervisor logging level" default:"info" toml:"logging.session" env:"LOGGING_SESSION"`
	LoggingEncoder string `help:"Encoder output logging level" default:"info" toml:"logging.encoder" env:"LOGGING_ENCODER"`
	LoggingProbe   string `help:"Capability prober logging level" default:"info" toml:"logging.probe" env:"LOGGING_PROBE"`
	LoggingAPI     string `help:"API logging level" default:"info" toml:"logging.api" env:"LOGGING_API"`
	LoggingHTTP    string `help:"HTTP request logging level" default:"info" toml:"logging.http" env:"LOGGING_HTTP"`
}

func main() {
	cli := humacli.New(func(hooks humacli.Hooks, opts *Options) {
		if loadErr := config.LoadConfig(opts, nil); loadErr != nil {
			slog.Warn("Failed to load config", "error", loadErr)
		}

		logging.Initialize(logging.Config{
			Level:  opts.LoggingLevel,
			Format: opts.LoggingFormat,
			Modules: map[string]string{
				"session": opts.LoggingSession,
				"encoder": opts.LoggingEncoder,
				"probe":   opts.LoggingProbe,
				"api":     opts.LoggingAPI,
				"http":    opts.LoggingHTTP,
			},
		})

		logger := logging.GetLogger("main")

		eventBus := events.New()

		// Bridge every log entry onto the bus so SSE clients see them live.
		logging.SetLogCallback(func(entry logging.LogEntry) {
			eventBus.Publish(events.LogEntryEvent{
				Timestamp:  entry.Timestamp.Format(time.RFC3339Nano),
				Level:      entry.Level,
				Module:     entry.Module,
				Message:    entry.Message,
				Attributes: entry.Attributes,
			})
		})

		profile, err := platform.ForOS(runtime.GOOS)
		if err != nil {
			logger.Error("Unsupported platform", "error", err)
			os.Exit(1)
		}

		table := plan.DefaultTable()
		prober := probe.New(opts.EncoderBinary, profile, eventBus)
		planner := plan.NewPlanner(profile, table)

		registryOpts := []session.RegistryOption{}
		if opts.StopTimeoutMs > 0 {
			registryOpts = append(registryOpts,
				session.WithStopTimeout(time.Duration(opts.StopTimeoutMs)*time.Millisecond))
		}
		registry := session.NewRegistry(opts.EncoderBinary, profile, prober, planner,
			eventBus, registryOpts...)

		// Hot-reload quality profile overrides when a file is configured.
		var profileWatcher *config.Watcher[plan.Overrides]
		if opts.ProfilesFile != "" {
			profileWatcher = config.NewConfigWatcher(
				opts.ProfilesFile,
				config.LoadProfileOverrides,
				logger,
			)
			profileWatcher.OnReload(func(o plan.Overrides) {
				table.ApplyOverrides(o)
				logger.Info("Quality profiles reloaded", "file", opts.ProfilesFile)
			})

			// Seed the table before serving so the first session already
			// sees the overrides.
			if overrides, loadErr := config.LoadProfileOverrides(opts.ProfilesFile); loadErr == nil {
				table.ApplyOverrides(overrides)
			} else {
				logger.Warn("Failed to load profile overrides", "error", loadErr)
			}
		}

		server := api.NewServer(&api.Options{
			AuthUsername:      opts.AuthUsername,
			AuthPassword:      opts.AuthPassword,
			Registry:          registry,
			Prober:            prober,
			Table:             table,
			EventBus:          eventBus,
			PrometheusHandler: promhttp.Handler(),
		})

		hooks.OnStart(func() {
			if profileWatcher != nil {
				if startErr := profileWatcher.Start(); startErr != nil {
					logger.Warn("Failed to start profile watcher, hot-reload disabled", "error", startErr)
				}
			}

			logger.Info("Starting HTTP server", "port", opts.Port)
			if startErr := server.Start(opts.Port); startErr != nil && !errors.Is(startErr, http.ErrServerClosed) {
				logger.Error("Failed to start HTTP server", "error", startErr)
				os.Exit(1)
			}
		})

		hooks.OnStop(func() {
			logger.Info("Shutting down server")
			if stopErr := server.Stop(); stopErr != nil {
				logger.Error("Error stopping HTTP server", "error", stopErr)
			}

			// Encoders go down after the listener stops accepting work.
			registry.StopAll()

			if profileWatcher != nil {
				if stopErr := profileWatcher.Stop(); stopErr != nil {
					logger.Error("Error stopping profile watcher", "error", stopErr)
				}
			}
		})
	})

	cli.Root().AddCommand(cmd.CreateProbeCmd())
	cli.Root().AddCommand(cmd.CreatePlanCmd())

	cli.Run()
}
