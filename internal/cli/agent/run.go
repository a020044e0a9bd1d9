package agent

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/omarabid-archived/pyroscope/internal/config"
	"github.com/omarabid-archived/pyroscope/internal/logging"
	"github.com/omarabid-archived/pyroscope/pkg/agent"
	"github.com/omarabid-archived/pyroscope/pkg/agent/backend"
)

// overrides holds command-line values applied on top of the file/env
// configuration. Zero values mean "not set".
type overrides struct {
	ApplicationName string
	ServerAddress   string
	AuthToken       string
	Tags            map[string]string
	Profiler        string
	Period          time.Duration
	SampleRate      uint32
	LogLevel        string
	LogFormat       string
	NoHostTags      bool
}

// AddFlags registers the override flags on a FlagSet.
func (o *overrides) AddFlags(flags *pflag.FlagSet) {
	flags.StringVar(&o.ApplicationName, "application-name", "", "Name profiles are stored under (overrides config file)")
	flags.StringVar(&o.ServerAddress, "server-address", "", "Pyroscope server base URL (overrides config file)")
	flags.StringVar(&o.AuthToken, "auth-token", "", "Bearer token for uploads")
	flags.StringToStringVar(&o.Tags, "tag", nil, "Tag attached to every profile (repeatable, format: key=value)")
	flags.StringVar(&o.Profiler, "profiler", "", "Profile source (cpu, alloc)")
	flags.DurationVar(&o.Period, "period", 0, "Session length (e.g. 10s)")
	flags.Uint32Var(&o.SampleRate, "sample-rate", 0, "CPU sampling frequency in Hz")
	flags.StringVar(&o.LogLevel, "log-level", "", "Logging level (trace, debug, info, warn, error)")
	flags.StringVar(&o.LogFormat, "log-format", "", "Logging format (json, pretty)")
	flags.BoolVar(&o.NoHostTags, "no-host-tags", false, "Disable automatic host metadata tags (hostname, os, arch, runtime)")
}

// NewRunCmd creates the run command.
func NewRunCmd() *cobra.Command {
	var (
		configFile string
		flags      overrides
	)

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the profiling agent as a daemon",
		Long: `Run the profiling agent as a long-running daemon.

The agent profiles its own process and ships a profile to the server
every period, which makes this command a smoke test for a server
deployment. To profile your application, embed the pkg/agent library
in it instead.

The agent will:
- Collect CPU (or heap allocation) profiles in fixed sessions
- Upload each session to the configured Pyroscope server
- Retry transient upload failures with exponential backoff
- Run until stopped by signal, draining queued uploads on shutdown

Configuration sources (in order of precedence):
1. Command-line flags
2. Environment variables (PYROSCOPE_*)
3. Config file (--config flag, /etc/pyroscope/agent.yaml, or ./pyroscope-agent.yaml)
4. Defaults

Environment Variables:
  PYROSCOPE_APPLICATION_NAME  - Name profiles are stored under
  PYROSCOPE_SERVER_ADDRESS    - Pyroscope server base URL
  PYROSCOPE_AUTH_TOKEN        - Bearer token for uploads
  PYROSCOPE_TAGS              - Tags (format: key=value,key=value)
  PYROSCOPE_PROFILER          - Profile source (cpu, alloc)
  PYROSCOPE_PERIOD            - Session length (e.g. 10s)
  PYROSCOPE_LOG_LEVEL         - Logging level (trace, debug, info, warn, error)
  PYROSCOPE_LOG_FORMAT        - Logging format (json, pretty)

Configuration File Format:
  application_name: my.service
  server_address: http://localhost:4040
  profiler: cpu
  period: 10s
  tags:
    env: production
  upload:
    queue_capacity: 10
    max_retries: 3

Examples:
  # Against a local server
  pyroscope-agent run --application-name my.service

  # With a config file
  pyroscope-agent run --config /etc/pyroscope/agent.yaml

  # With environment variables
  PYROSCOPE_APPLICATION_NAME=my.service PYROSCOPE_TAGS=env=staging pyroscope-agent run

  # Heap allocation profiling with extra tags
  pyroscope-agent run --application-name my.service --profiler alloc --tag team=platform`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configFile)
			if err != nil {
				return fmt.Errorf("failed to load agent configuration: %w", err)
			}

			applyOverrides(cfg, flags)

			logger := logging.New(logging.Config{
				Level:  cfg.Log.Level,
				Pretty: cfg.Log.Format != "json",
			})

			tags := cfg.Tags
			if !cfg.HostTags.Disabled {
				tags = mergeTags(hostTags(logger), cfg.Tags)
			}

			b, err := newBackend(cfg.Profiler)
			if err != nil {
				return err
			}

			a, err := agent.New(agent.Config{
				ApplicationName:     cfg.ApplicationName,
				ServerAddress:       cfg.ServerAddress,
				AuthToken:           cfg.AuthToken,
				Tags:                tags,
				Period:              cfg.Period,
				SampleRate:          cfg.SampleRate,
				UploadQueueCapacity: cfg.Upload.QueueCapacity,
				MaxRetries:          cfg.Upload.MaxRetries,
				HTTPTimeout:         cfg.Upload.Timeout,
				ShutdownTimeout:     cfg.Upload.ShutdownTimeout,
				Backend:             b,
				Logger:              logger,
			})
			if err != nil {
				return fmt.Errorf("failed to create agent: %w", err)
			}

			if err := a.Start(); err != nil {
				return fmt.Errorf("failed to start agent: %w", err)
			}

			logger.Info().
				Str("application", cfg.ApplicationName).
				Str("server", cfg.ServerAddress).
				Str("profiler", cfg.Profiler).
				Dur("period", cfg.Period).
				Msg("Agent started - waiting for shutdown signal")

			// Wait for interrupt signal.
			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
			sig := <-sigChan

			logger.Info().
				Str("signal", sig.String()).
				Msg("Received shutdown signal - stopping agent")

			if err := a.Stop(); err != nil {
				return fmt.Errorf("failed to stop agent: %w", err)
			}

			logger.Info().Msg("Agent stopped")
			return nil
		},
	}

	cmd.Flags().StringVar(&configFile, "config", "", "Path to agent configuration file")
	flags.AddFlags(cmd.Flags())

	return cmd
}

// applyOverrides applies non-zero command-line values on top of the
// file/env configuration.
func applyOverrides(cfg *config.Config, o overrides) {
	if o.ApplicationName != "" {
		cfg.ApplicationName = o.ApplicationName
	}
	if o.ServerAddress != "" {
		cfg.ServerAddress = o.ServerAddress
	}
	if o.AuthToken != "" {
		cfg.AuthToken = o.AuthToken
	}
	if o.Profiler != "" {
		cfg.Profiler = o.Profiler
	}
	if o.Period > 0 {
		cfg.Period = o.Period
	}
	if o.SampleRate > 0 {
		cfg.SampleRate = o.SampleRate
	}
	if o.LogLevel != "" {
		cfg.Log.Level = o.LogLevel
	}
	if o.LogFormat != "" {
		cfg.Log.Format = o.LogFormat
	}
	if o.NoHostTags {
		cfg.HostTags.Disabled = true
	}
	if len(o.Tags) > 0 {
		if cfg.Tags == nil {
			cfg.Tags = make(map[string]string, len(o.Tags))
		}
		for k, v := range o.Tags {
			cfg.Tags[k] = v
		}
	}
}

// mergeTags overlays configured tags on top of the automatic host tags.
func mergeTags(host, configured map[string]string) map[string]string {
	merged := make(map[string]string, len(host)+len(configured))
	for k, v := range host {
		merged[k] = v
	}
	for k, v := range configured {
		merged[k] = v
	}
	return merged
}

// newBackend builds the profile source selected by the configuration.
func newBackend(profiler string) (backend.Backend, error) {
	switch profiler {
	case "cpu":
		return backend.NewCPU(), nil
	case "alloc":
		return backend.NewAlloc(), nil
	default:
		return nil, fmt.Errorf("unknown profiler %q (expected cpu or alloc)", profiler)
	}
}
