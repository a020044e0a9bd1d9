package config

import (
	"github.com/omarabid-archived/pyroscope/pkg/agent"
)

// DefaultServerAddress is where a locally running Pyroscope server
// listens by default.
const DefaultServerAddress = "http://localhost:4040"

// DefaultAgentConfig returns an agent config with sensible defaults.
func DefaultAgentConfig() *Config {
	return &Config{
		ServerAddress: DefaultServerAddress,
		Profiler:      "cpu",
		Period:        agent.DefaultPeriod,
		SampleRate:    agent.DefaultSampleRate,
		Upload: UploadConfig{
			QueueCapacity:   agent.DefaultQueueCapacity,
			MaxRetries:      agent.DefaultMaxRetries,
			Timeout:         agent.DefaultHTTPTimeout,
			ShutdownTimeout: agent.DefaultShutdownTimeout,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "pretty",
		},
	}
}
