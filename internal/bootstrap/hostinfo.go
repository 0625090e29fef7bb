// Package bootstrap wires configuration and logging before the first
// elevation attempt.
package bootstrap

import (
	"os"
	"runtime"

	"github.com/shirou/gopsutil/v3/host"
)

// UnknownHostFallback is used when the hostname cannot be determined.
const UnknownHostFallback = "unknown-host"

// HostFacts identifies the machine in the JSON log.
type HostFacts struct {
	Hostname        string
	Platform        string
	PlatformVersion string
	KernelVersion   string
}

// Replaced in tests.
var (
	hostInfo   = host.Info
	osHostname = os.Hostname
)

// CollectHostFacts queries the host. It never fails: missing values fall
// back to os.Hostname and runtime.GOOS.
func CollectHostFacts() HostFacts {
	facts := HostFacts{Platform: runtime.GOOS}
	if info, err := hostInfo(); err == nil && info != nil {
		facts.Hostname = info.Hostname
		if info.Platform != "" {
			facts.Platform = info.Platform
		}
		facts.PlatformVersion = info.PlatformVersion
		facts.KernelVersion = info.KernelVersion
	}
	if facts.Hostname == "" {
		facts.Hostname = GetHostname()
	}
	return facts
}

// GetHostname returns the hostname or UnknownHostFallback.
func GetHostname() string {
	hostname, err := osHostname()
	if err != nil || hostname == "" {
		return UnknownHostFallback
	}
	return hostname
}
