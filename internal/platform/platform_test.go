package platform

import (
	"runtime"
	"testing"
)

func TestDetect(t *testing.T) {
	detectionDone = false
	detectedPlatform = ""

	p := Detect()
	if p == "" {
		t.Error("Detect() returned empty platform")
	}

	switch runtime.GOOS {
	case "darwin":
		if p != PlatformMacOS {
			t.Errorf("on darwin, Detect() = %s, want macos", p)
		}
	case "linux":
		if p != PlatformLinux && p != PlatformWSL1 && p != PlatformWSL2 {
			t.Errorf("on linux, Detect() = %s, want linux or wsl", p)
		}
	case "windows":
		if p != PlatformWindows {
			t.Errorf("on windows, Detect() = %s, want windows", p)
		}
	}

	// Detection is cached
	if p2 := Detect(); p != p2 {
		t.Errorf("Detect() not cached: got %s then %s", p, p2)
	}
}

func TestPlatformString(t *testing.T) {
	tests := []struct {
		platform Platform
		expected string
	}{
		{PlatformMacOS, "macOS"},
		{PlatformLinux, "Linux"},
		{PlatformWSL1, "WSL1"},
		{PlatformWSL2, "WSL2"},
		{PlatformWindows, "Windows"},
		{PlatformUnknown, "Unknown"},
	}

	for _, tt := range tests {
		if got := tt.platform.String(); got != tt.expected {
			t.Errorf("Platform(%s).String() = %s, want %s", tt.platform, got, tt.expected)
		}
	}
}

func TestIsWSL(t *testing.T) {
	tests := []struct {
		platform Platform
		isWSL    bool
	}{
		{PlatformMacOS, false},
		{PlatformLinux, false},
		{PlatformWSL1, true},
		{PlatformWSL2, true},
		{PlatformWindows, false},
	}

	for _, tt := range tests {
		detectedPlatform = tt.platform
		detectionDone = true

		if got := IsWSL(); got != tt.isWSL {
			t.Errorf("IsWSL() for %s = %v, want %v", tt.platform, got, tt.isWSL)
		}
	}

	detectionDone = false
}

func TestCheckFsnotifySupportTempDir(t *testing.T) {
	// The test tempdir sits on a regular local filesystem on every CI
	// platform this runs on, so no warning is expected.
	if warning := CheckFsnotifySupport(t.TempDir()); warning != "" {
		t.Logf("unexpected fsnotify warning (network-mounted tmp?): %s", warning)
	}
}

func TestCheckFsnotifySupportMissingPath(t *testing.T) {
	// A nonexistent path still resolves to some mount; must not panic and
	// must return a string either way.
	_ = CheckFsnotifySupport("/definitely/not/a/real/path")
}
