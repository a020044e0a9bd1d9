package agent

import (
	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v4/host"

	"github.com/omarabid-archived/pyroscope/internal/runtime"
)

// hostTags returns the automatic host metadata tags. Collection failures
// are not fatal; profiles are simply uploaded without host tags.
func hostTags(logger zerolog.Logger) map[string]string {
	tags := map[string]string{
		"runtime": string(runtime.Detect()),
	}

	info, err := host.Info()
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to read host info, skipping host tags")
		return tags
	}

	if info.Hostname != "" {
		tags["hostname"] = info.Hostname
	}
	if info.OS != "" {
		tags["os"] = info.OS
	}
	if info.KernelArch != "" {
		tags["arch"] = info.KernelArch
	}

	return tags
}
