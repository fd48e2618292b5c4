// Package platform detects the host platform once and answers the questions
// the rest of the tool cares about: which clipboard command to use and
// whether fsnotify can be trusted on a given path.
package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"strings"
)

// Platform represents the detected platform
type Platform string

const (
	PlatformMacOS   Platform = "macos"
	PlatformLinux   Platform = "linux"
	PlatformWSL1    Platform = "wsl1"
	PlatformWSL2    Platform = "wsl2"
	PlatformWindows Platform = "windows"
	PlatformUnknown Platform = "unknown"
)

// cached detection result
var detectedPlatform Platform
var detectionDone bool

// Detect returns the current platform, caching the result
func Detect() Platform {
	if detectionDone {
		return detectedPlatform
	}

	detectedPlatform = detectPlatform()
	detectionDone = true
	return detectedPlatform
}

func detectPlatform() Platform {
	switch runtime.GOOS {
	case "darwin":
		return PlatformMacOS
	case "windows":
		return PlatformWindows
	case "linux":
		return detectLinuxOrWSL()
	default:
		return PlatformUnknown
	}
}

// detectLinuxOrWSL distinguishes between native Linux and WSL (1 or 2)
func detectLinuxOrWSL() Platform {
	if os.Getenv("WSL_DISTRO_NAME") != "" {
		return detectWSLVersion()
	}

	procVersion, err := os.ReadFile("/proc/version")
	if err != nil {
		return PlatformLinux
	}

	versionStr := string(procVersion)
	if strings.Contains(versionStr, "microsoft") || strings.Contains(versionStr, "Microsoft") {
		return detectWSLVersion()
	}

	return PlatformLinux
}

// detectWSLVersion distinguishes between WSL1 and WSL2. WSL2 kernels carry a
// "microsoft-standard" signature; WSL1 has "Microsoft" without it.
func detectWSLVersion() Platform {
	procVersion, err := os.ReadFile("/proc/version")
	if err == nil {
		versionStr := string(procVersion)
		if strings.Contains(versionStr, "microsoft-standard") {
			return PlatformWSL2
		}
		if strings.Contains(versionStr, "Microsoft") {
			return PlatformWSL1
		}
	}

	// /run/WSL and /dev/vsock exist only under WSL2
	if _, err := os.Stat("/run/WSL"); err == nil {
		return PlatformWSL2
	}
	if _, err := os.Stat("/dev/vsock"); err == nil {
		return PlatformWSL2
	}

	// Detected WSL but not the version; WSL1 is the safer assumption
	return PlatformWSL1
}

// IsWSL returns true if running in any WSL environment
func IsWSL() bool {
	p := Detect()
	return p == PlatformWSL1 || p == PlatformWSL2
}

// String returns a human-readable platform name
func (p Platform) String() string {
	switch p {
	case PlatformMacOS:
		return "macOS"
	case PlatformLinux:
		return "Linux"
	case PlatformWSL1:
		return "WSL1"
	case PlatformWSL2:
		return "WSL2"
	case PlatformWindows:
		return "Windows"
	default:
		return "Unknown"
	}
}

// CheckFsnotifySupport checks whether a path's filesystem delivers fsnotify
// events reliably. Returns a warning message on problematic filesystems
// (9p, nfs, cifs, sshfs), or an empty string when watching should work.
// The sync daemon logs the warning so users know record changes may only be
// picked up on the polling interval.
func CheckFsnotifySupport(path string) string {
	// Only relevant on Linux (WSL2 uses 9p for Windows filesystem access)
	if runtime.GOOS != "linux" {
		return ""
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		return ""
	}

	mounts, err := os.ReadFile("/proc/mounts")
	if err != nil {
		return ""
	}

	// /proc/mounts format: device mountpoint fstype options ...
	// The longest mountpoint prefix wins.
	var matchedMount, matchedFsType string
	for _, line := range strings.Split(string(mounts), "\n") {
		fields := strings.Fields(line)
		if len(fields) < 3 {
			continue
		}
		mountPoint := fields[1]
		fsType := fields[2]

		if strings.HasPrefix(absPath, mountPoint) {
			if len(mountPoint) > len(matchedMount) {
				matchedMount = mountPoint
				matchedFsType = fsType
			}
		}
	}

	if matchedFsType == "" {
		return ""
	}

	switch {
	case matchedFsType == "9p":
		return "state dir on 9p mount (WSL2 Windows filesystem): record changes only picked up on the sync interval"
	case matchedFsType == "nfs" || matchedFsType == "nfs4":
		return "state dir on NFS mount: change events may be unreliable, sync interval still refreshes"
	case matchedFsType == "cifs" || matchedFsType == "smbfs":
		return "state dir on CIFS/SMB mount: change events may be unreliable, sync interval still refreshes"
	case strings.HasPrefix(matchedFsType, "fuse.sshfs"):
		return "state dir on SSHFS mount: change events do not fire, sync interval still refreshes"
	}

	return ""
}
