package main

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/agentbar/agentbar/internal/cache"
)

func writeSlotCache(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cache.env")
	snap := cache.Snapshot{
		Timestamp: time.Now().Unix(),
		Active:    []string{"ttys009", "ttys012"},
		Slots: []cache.Entry{
			{TTY: "/dev/ttys012", ShortTTY: "ttys012", PID: 4242, CWD: "/tmp/p2", ProjectHash: "-tmp-p2", Transcript: "/tmp/t.jsonl", Status: "active"},
			{TTY: "/dev/ttys009", ShortTTY: "ttys009", PID: 4100, CWD: "/tmp/p1", ProjectHash: "-tmp-p1"},
		},
	}
	if err := cache.Write(path, snap); err != nil {
		t.Fatalf("write cache: %v", err)
	}
	return path
}

func TestHandleSlotShown(t *testing.T) {
	path := writeSlotCache(t)
	out := captureStdout(t, func() {
		handleSlot([]string{"--cache", path, "1"})
	})

	for _, want := range []string{
		"SLOT=1\n",
		"STATE=shown\n",
		"TTY=/dev/ttys012\n",
		"TTY_SHORT=ttys012\n",
		"PID=4242\n",
		"CWD=/tmp/p2\n",
		"PROJECT_HASH=-tmp-p2\n",
		"TRANSCRIPT=/tmp/t.jsonl\n",
		"STATUS=active\n",
		"CACHE_AGE_SECS=",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestHandleSlotPluginFilename(t *testing.T) {
	path := writeSlotCache(t)
	out := captureStdout(t, func() {
		handleSlot([]string{"--cache", path, "AgentBar-2.1s.sh"})
	})

	if !strings.Contains(out, "TTY_SHORT=ttys009\n") {
		t.Errorf("plugin filename should select slot 2:\n%s", out)
	}
	if strings.Contains(out, "TRANSCRIPT=") {
		t.Errorf("slot 2 has no transcript, output:\n%s", out)
	}
	if strings.Contains(out, "STATUS=") {
		t.Errorf("slot 2 has no status, output:\n%s", out)
	}
}

func TestHandleSlotOutOfRange(t *testing.T) {
	path := writeSlotCache(t)
	out := captureStdout(t, func() {
		handleSlot([]string{"--cache", path, "3"})
	})
	if out != "STATE=hidden\n" {
		t.Errorf("output = %q, want STATE=hidden", out)
	}
}

func TestHandleSlotMissingCache(t *testing.T) {
	out := captureStdout(t, func() {
		handleSlot([]string{"--cache", filepath.Join(t.TempDir(), "absent.env"), "1"})
	})
	if out != "STATE=hidden\n" {
		t.Errorf("output = %q, want STATE=hidden", out)
	}
}

func TestHandleSlotNoArgs(t *testing.T) {
	out := captureStdout(t, func() {
		handleSlot(nil)
	})
	if out != "STATE=hidden\n" {
		t.Errorf("output = %q, want STATE=hidden", out)
	}
}
