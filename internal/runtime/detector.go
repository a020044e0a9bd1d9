// Package runtime detects the environment the agent process runs in.
package runtime

import (
	"os"
	"strings"
)

// Environment identifies where the process is running.
type Environment string

const (
	Kubernetes Environment = "kubernetes"
	Docker     Environment = "docker"
	Native     Environment = "native"
)

// Detect returns the runtime environment of the current process.
// Kubernetes is checked before Docker since pods also satisfy the
// Docker heuristics.
func Detect() Environment {
	if isKubernetes() {
		return Kubernetes
	}
	if isDocker() {
		return Docker
	}
	return Native
}

// isKubernetes checks for the Kubernetes environment.
func isKubernetes() bool {
	// Check for Kubernetes environment variables.
	return os.Getenv("KUBERNETES_SERVICE_HOST") != ""
}

// isDocker checks if running in a Docker container.
func isDocker() bool {
	// Check for Docker-specific files.
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return true
	}

	// Check cgroup for docker.
	data, err := os.ReadFile("/proc/1/cgroup")
	if err == nil && strings.Contains(string(data), "docker") {
		return true
	}

	return false
}
