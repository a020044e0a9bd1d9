package config

import (
	"time"
)

// Config represents the pyroscope-agent configuration file.
//
// Values are resolved in layers: built-in defaults, then the YAML file,
// then PYROSCOPE_* environment variables. Command-line flags are applied
// on top by the CLI.
type Config struct {
	// ApplicationName is the base name profiles are stored under on the
	// server. Tags are appended to it as name{k=v,...}.
	ApplicationName string `yaml:"application_name" env:"PYROSCOPE_APPLICATION_NAME"`

	// ServerAddress is the base URL of the Pyroscope server.
	ServerAddress string `yaml:"server_address" env:"PYROSCOPE_SERVER_ADDRESS"`

	// AuthToken, when set, is sent as a Bearer token on every upload.
	AuthToken string `yaml:"auth_token,omitempty" env:"PYROSCOPE_AUTH_TOKEN"`

	// Tags are attached to every profile. The env form is a
	// comma-separated list of key=value pairs.
	Tags map[string]string `yaml:"tags,omitempty" env:"PYROSCOPE_TAGS"`

	// Profiler selects the profile source: "cpu" or "alloc".
	Profiler string `yaml:"profiler" env:"PYROSCOPE_PROFILER"`

	// Period is the profiling session length.
	Period time.Duration `yaml:"period" env:"PYROSCOPE_PERIOD"`

	// SampleRate is the CPU sampling frequency in Hz.
	SampleRate uint32 `yaml:"sample_rate" env:"PYROSCOPE_SAMPLE_RATE"`

	Upload   UploadConfig   `yaml:"upload"`
	Log      LogConfig      `yaml:"log"`
	HostTags HostTagsConfig `yaml:"host_tags"`
}

// UploadConfig contains upload pipeline settings.
type UploadConfig struct {
	// QueueCapacity bounds the number of sessions waiting for upload.
	// When full, the oldest session is dropped.
	QueueCapacity int `yaml:"queue_capacity" env:"PYROSCOPE_UPLOAD_QUEUE_CAPACITY"`

	// MaxRetries caps delivery attempts per session for transient failures.
	MaxRetries int `yaml:"max_retries" env:"PYROSCOPE_UPLOAD_MAX_RETRIES"`

	// Timeout bounds a single HTTP upload request.
	Timeout time.Duration `yaml:"timeout" env:"PYROSCOPE_UPLOAD_TIMEOUT"`

	// ShutdownTimeout bounds the queue drain on stop.
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout" env:"PYROSCOPE_SHUTDOWN_TIMEOUT"`
}

// LogConfig contains logging settings.
type LogConfig struct {
	Level  string `yaml:"level" env:"PYROSCOPE_LOG_LEVEL"`   // trace, debug, info, warn, error
	Format string `yaml:"format" env:"PYROSCOPE_LOG_FORMAT"` // json, pretty
}

// HostTagsConfig controls the automatic host metadata tags (hostname,
// os, arch, runtime) added to the configured tag set.
type HostTagsConfig struct {
	Disabled bool `yaml:"disabled,omitempty" env:"PYROSCOPE_HOST_TAGS_DISABLED"`
}
