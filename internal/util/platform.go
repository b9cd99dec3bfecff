package util

import (
	"fmt"
	"os"
	"runtime"
	"time"

	"github.com/shirou/gopsutil/v3/host"
	"github.com/shirou/gopsutil/v3/mem"
)

// AppVersion is overridden at build time with -ldflags "-X".
var AppVersion = "0.1.0"

// SystemInfo holds information about the host system.
type SystemInfo struct {
	Platform     string        `json:"platform"`
	Hostname     string        `json:"hostname"`
	OS           string        `json:"os"`
	Architecture string        `json:"architecture"`
	CPUCores     int           `json:"cpu_cores"`
	TotalMemory  uint64        `json:"total_memory_mb"`
	Uptime       time.Duration `json:"uptime_ns"`
}

// GetSystemInfo gathers host metadata. Fields gopsutil cannot read are
// left empty.
func GetSystemInfo() SystemInfo {
	info := SystemInfo{
		Platform:     runtime.GOOS,
		Architecture: runtime.GOARCH,
		CPUCores:     runtime.NumCPU(),
	}

	if hostname, err := os.Hostname(); err == nil {
		info.Hostname = hostname
	}

	if hostInfo, err := host.Info(); err == nil {
		info.OS = fmt.Sprintf("%s %s", hostInfo.Platform, hostInfo.PlatformVersion)
		info.Uptime = time.Duration(hostInfo.Uptime) * time.Second
	}

	if memInfo, err := mem.VirtualMemory(); err == nil {
		info.TotalMemory = memInfo.Total / (1024 * 1024)
	}

	return info
}
